package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const sideEffectTimeout = 5 * time.Second

type Options struct {
	InstanceID        string
	CountdownFrom     int
	CountdownInterval time.Duration
	MinPlayers        int

	// Directory and Recorder are optional.
	Directory RoomDirectory
	Recorder  MatchRecorder

	Now func() time.Time
}

// Coordinator runs the room lifecycle: join, ready-up, countdown, play,
// scoring, finish and eviction. Every mutation of a room happens while that
// room's lock is held, so operations on one room never interleave and
// broadcasts leave in the order the mutations happened.
type Coordinator struct {
	registry  *Registry
	transport Broadcaster
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc

	spawnMu sync.Mutex
	closed  bool
	wg      sync.WaitGroup
}

func NewCoordinator(transport Broadcaster, opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MinPlayers < 1 {
		opts.MinPlayers = 2
	}
	if opts.CountdownFrom < 0 {
		opts.CountdownFrom = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		registry:  NewRegistry(opts.Now),
		transport: transport,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *Coordinator) Registry() *Registry {
	return c.registry
}

func (c *Coordinator) InstanceID() string {
	return c.opts.InstanceID
}

func (c *Coordinator) now() time.Time {
	return c.opts.Now().UTC()
}

// Close stops running countdowns and waits for pending side effects.
func (c *Coordinator) Close() {
	c.spawnMu.Lock()
	c.closed = true
	c.spawnMu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// spawn runs fn on a tracked goroutine. It reports false once Close has
// started, so no goroutine is added while Close is waiting.
func (c *Coordinator) spawn(fn func()) bool {
	c.spawnMu.Lock()
	defer c.spawnMu.Unlock()

	if c.closed {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
	return true
}

func (c *Coordinator) CreateRoom(gameSlug string) string {
	roomID := c.registry.CreateRoom(gameSlug)
	log.Info().Str("roomId", roomID).Str("gameSlug", gameSlug).Msg("Room created.")

	if c.opts.Directory != nil {
		c.background(func(ctx context.Context) {
			if err := c.opts.Directory.Register(ctx, roomID); err != nil {
				log.Error().Err(err).Str("roomId", roomID).Msg("Failed to register room in directory.")
			}
		})
	}
	return roomID
}

func (c *Coordinator) Room(roomID string) (RoomSnapshot, bool) {
	room, ok := c.registry.GetRoom(roomID)
	if !ok {
		return RoomSnapshot{}, false
	}
	return room.Snapshot(), true
}

func (c *Coordinator) Rooms() []RoomSnapshot {
	rooms := c.registry.ListRooms()
	snapshots := make([]RoomSnapshot, 0, len(rooms))
	for _, room := range rooms {
		snapshots = append(snapshots, room.Snapshot())
	}
	return snapshots
}

// LocateRoom asks the directory which instance holds a room this process
// does not have.
func (c *Coordinator) LocateRoom(ctx context.Context, roomID string) (string, error) {
	if c.opts.Directory == nil {
		return "", ErrRoomNotFound
	}
	owner, err := c.opts.Directory.Lookup(ctx, roomID)
	if err != nil {
		return "", err
	}
	if owner == c.opts.InstanceID {
		return "", ErrRoomNotFound
	}
	return owner, nil
}

func (c *Coordinator) Join(connectionID, roomID string, identity *PlayerIdentity) error {
	if identity.missing() {
		c.SendError(connectionID, roomID, ErrMissingIdentity)
		return ErrMissingIdentity
	}

	room, ok := c.registry.GetRoom(roomID)
	if !ok {
		c.SendError(connectionID, roomID, ErrRoomNotFound)
		return ErrRoomNotFound
	}

	// The target room is checked before the connection gives up its current
	// one, so a rejected join leaves the old membership untouched.
	room.mu.Lock()
	if err := c.joinableLocked(room, connectionID); err != nil || room.players[connectionID] != nil {
		defer room.mu.Unlock()
		return c.finishJoinLocked(room, connectionID, identity, err)
	}
	room.mu.Unlock()

	if current, ok := c.registry.LookupRoomForConnection(connectionID); ok && current != roomID {
		c.Leave(connectionID)
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	return c.finishJoinLocked(room, connectionID, identity, c.joinableLocked(room, connectionID))
}

func (c *Coordinator) joinableLocked(room *Room, connectionID string) error {
	if room.removed {
		return ErrRoomNotFound
	}
	if _, already := room.players[connectionID]; already {
		return nil
	}
	if room.state.Status != StatusWaiting {
		return ErrGameAlreadyStarted
	}
	return nil
}

// finishJoinLocked reports err, re-sends the snapshot to a member, or
// inserts the player. Caller holds room.mu.
func (c *Coordinator) finishJoinLocked(room *Room, connectionID string, identity *PlayerIdentity, err error) error {
	if err != nil {
		c.SendError(connectionID, room.ID, err)
		return err
	}

	if _, already := room.players[connectionID]; already {
		c.sendTo(connectionID, room.ID, EventRoomJoined, map[string]any{
			"room":     room.snapshotLocked(),
			"playerId": connectionID,
		})
		return nil
	}

	player := &PlayerState{
		ID:            connectionID,
		WalletAddress: identity.WalletAddress,
		Username:      identity.Username,
	}
	room.addPlayerLocked(player)
	c.registry.MapConnectionToRoom(connectionID, room.ID)
	c.transport.Subscribe(room.ID, connectionID)

	log.Info().Str("roomId", room.ID).Str("connectionId", connectionID).Int("players", len(room.players)).Msg("Player joined room.")

	c.sendTo(connectionID, room.ID, EventRoomJoined, map[string]any{
		"room":     room.snapshotLocked(),
		"playerId": connectionID,
	})
	c.broadcastExcept(room.ID, connectionID, EventPlayerJoined, map[string]any{"player": *player})
	return nil
}

// Leave handles both the explicit leave message and a dropped connection.
func (c *Coordinator) Leave(connectionID string) {
	roomID, ok := c.registry.LookupRoomForConnection(connectionID)
	if !ok {
		return
	}

	room, ok := c.registry.GetRoom(roomID)
	if !ok {
		c.registry.UnmapConnection(connectionID)
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	c.registry.UnmapConnection(connectionID)
	c.transport.Unsubscribe(roomID, connectionID)
	if !room.removePlayerLocked(connectionID) {
		return
	}

	log.Info().Str("roomId", roomID).Str("connectionId", connectionID).Int("players", len(room.players)).Msg("Player left room.")

	c.broadcast(roomID, EventPlayerLeft, map[string]any{"playerId": connectionID})

	if len(room.players) == 0 {
		c.evictLocked(room)
		return
	}
	c.broadcastStateLocked(room)
}

func (c *Coordinator) evictLocked(room *Room) {
	room.removed = true
	c.registry.RemoveRoom(room.ID)
	log.Info().Str("roomId", room.ID).Msg("Room emptied and removed.")

	if c.opts.Directory != nil {
		roomID := room.ID
		c.background(func(ctx context.Context) {
			if err := c.opts.Directory.Unregister(ctx, roomID); err != nil {
				log.Error().Err(err).Str("roomId", roomID).Msg("Failed to unregister room from directory.")
			}
		})
	}
}

// withPlayer runs fn under the room lock of the connection's room. It
// reports ErrMissingIdentity to the connection when there is no player.
func (c *Coordinator) withPlayer(connectionID string, fn func(room *Room, player *PlayerState)) error {
	roomID, ok := c.registry.LookupRoomForConnection(connectionID)
	if !ok {
		c.SendError(connectionID, "", ErrMissingIdentity)
		return ErrMissingIdentity
	}
	room, ok := c.registry.GetRoom(roomID)
	if !ok {
		c.SendError(connectionID, roomID, ErrMissingIdentity)
		return ErrMissingIdentity
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	player, ok := room.players[connectionID]
	if !ok || room.removed {
		c.SendError(connectionID, roomID, ErrMissingIdentity)
		return ErrMissingIdentity
	}
	fn(room, player)
	return nil
}

func (c *Coordinator) SetReady(connectionID string, ready bool) error {
	return c.withPlayer(connectionID, func(room *Room, player *PlayerState) {
		player.Ready = ready

		c.broadcast(room.ID, EventPlayerReadyChanged, map[string]any{
			"playerId": player.ID,
			"ready":    ready,
		})
		c.broadcastStateLocked(room)

		c.maybeStartLocked(room)
	})
}

// maybeStartLocked applies the auto-start rule against the current state.
func (c *Coordinator) maybeStartLocked(room *Room) {
	if room.state.Status != StatusWaiting {
		return
	}
	if len(room.players) < c.opts.MinPlayers || !room.allReadyLocked() {
		return
	}

	if c.ctx.Err() != nil {
		return
	}

	room.state.Status = StatusCountdown
	if !c.spawn(func() { c.runCountdown(room) }) {
		room.state.Status = StatusWaiting
		return
	}

	log.Info().Str("roomId", room.ID).Int("players", len(room.players)).Msg("All players ready, starting countdown.")
	c.broadcastStateLocked(room)
}

func (c *Coordinator) UpdateScore(connectionID string, score int) error {
	if score < 0 {
		roomID, _ := c.registry.LookupRoomForConnection(connectionID)
		c.SendError(connectionID, roomID, ErrInvalidScore)
		return ErrInvalidScore
	}

	return c.withPlayer(connectionID, func(room *Room, player *PlayerState) {
		player.Score = score

		c.broadcast(room.ID, EventScoreUpdated, map[string]any{
			"playerId": player.ID,
			"score":    score,
		})
		c.broadcastStateLocked(room)
	})
}

// EndGame finishes the match. Calling it on a finished room re-broadcasts
// the existing result without changing it.
func (c *Coordinator) EndGame(roomID, winnerID string) (RoomSnapshot, error) {
	room, ok := c.registry.GetRoom(roomID)
	if !ok {
		return RoomSnapshot{}, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.removed {
		return RoomSnapshot{}, ErrRoomNotFound
	}

	firstEnd := room.state.Status != StatusFinished
	if firstEnd {
		endTime := c.now()
		room.state.Status = StatusFinished
		room.state.EndTime = &endTime
		room.state.Winner = ""
		if _, ok := room.players[winnerID]; ok {
			room.state.Winner = winnerID
		}
		log.Info().Str("roomId", roomID).Str("winner", room.state.Winner).Msg("Game ended.")
	}

	var winner any
	if p, ok := room.players[room.state.Winner]; ok && room.state.Winner != "" {
		winner = *p
	}

	snapshot := room.snapshotLocked()
	c.broadcast(roomID, EventGameEnded, map[string]any{
		"winner":  winner,
		"endTime": *snapshot.State.EndTime,
	})
	c.broadcastStateLocked(room)

	if firstEnd && c.opts.Recorder != nil {
		result := newMatchResult(snapshot)
		c.background(func(ctx context.Context) {
			if err := c.opts.Recorder.RecordMatch(ctx, result); err != nil {
				log.Error().Err(err).Str("roomId", result.RoomID).Msg("Failed to record match result.")
			}
		})
	}

	return snapshot, nil
}

func (c *Coordinator) background(fn func(ctx context.Context)) {
	c.spawn(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), sideEffectTimeout)
		defer cancel()
		fn(ctx)
	})
}
