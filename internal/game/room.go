package game

import (
	"sync"
	"time"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCountdown Status = "countdown"
	StatusPlaying   Status = "playing"
	StatusFinished  Status = "finished"
)

type PlayerState struct {
	ID            string `json:"id"`
	WalletAddress string `json:"walletAddress"`
	Username      string `json:"username"`
	Score         int    `json:"score"`
	Ready         bool   `json:"ready"`
}

type GameState struct {
	Status    Status     `json:"status"`
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Winner    string     `json:"winner,omitempty"`
}

// Room is the live state of one lobby. All fields behind mu are owned by the
// Coordinator; nothing else mutates them.
type Room struct {
	ID        string
	GameSlug  string
	CreatedAt time.Time

	mu      sync.Mutex
	players map[string]*PlayerState // connectionID -> player
	order   []string                // join order, for display
	state   GameState
	removed bool
}

func newRoom(id, gameSlug string, createdAt time.Time) *Room {
	return &Room{
		ID:        id,
		GameSlug:  gameSlug,
		CreatedAt: createdAt,
		players:   make(map[string]*PlayerState),
		state:     GameState{Status: StatusWaiting},
	}
}

// RoomSnapshot is the serialized form of a room sent to clients.
type RoomSnapshot struct {
	ID        string        `json:"id"`
	GameSlug  string        `json:"gameSlug"`
	Players   []PlayerState `json:"players"`
	State     GameState     `json:"state"`
	CreatedAt time.Time     `json:"createdAt"`
}

func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() RoomSnapshot {
	players := make([]PlayerState, 0, len(r.order))
	for _, id := range r.order {
		players = append(players, *r.players[id])
	}

	state := r.state
	if state.StartTime != nil {
		t := *state.StartTime
		state.StartTime = &t
	}
	if state.EndTime != nil {
		t := *state.EndTime
		state.EndTime = &t
	}

	return RoomSnapshot{
		ID:        r.ID,
		GameSlug:  r.GameSlug,
		Players:   players,
		State:     state,
		CreatedAt: r.CreatedAt,
	}
}

func (r *Room) addPlayerLocked(p *PlayerState) {
	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
}

func (r *Room) removePlayerLocked(id string) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Room) allReadyLocked() bool {
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}
