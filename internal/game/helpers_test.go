package game

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"grepcoin_multiplayer/internal/realtime"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	coord     *Coordinator
	transport *realtime.RoomManager
	clients   map[string]*realtime.Client
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	if opts.CountdownInterval == 0 {
		opts.CountdownInterval = 5 * time.Millisecond
	}
	if opts.CountdownFrom == 0 {
		opts.CountdownFrom = 3
	}

	transport := realtime.NewRoomManager()
	coord := NewCoordinator(transport, opts)
	t.Cleanup(coord.Close)

	return &harness{
		coord:     coord,
		transport: transport,
		clients:   make(map[string]*realtime.Client),
	}
}

func (h *harness) connect(id string) {
	c := realtime.NewClient(id, 512, nil)
	h.transport.AddClient(c)
	h.clients[id] = c
}

func identity(name string) *PlayerIdentity {
	return &PlayerIdentity{ID: name, WalletAddress: "0x" + name, Username: name}
}

// joinAll connects and joins each id, then discards the join chatter.
func (h *harness) joinAll(t *testing.T, roomID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		h.connect(id)
		require.NoError(t, h.coord.Join(id, roomID, identity(id)))
	}
	for _, id := range ids {
		h.drain(t, id)
	}
}

// startedRoom returns a room whose two members have readied up, so it no
// longer accepts joins.
func (h *harness) startedRoom(t *testing.T) string {
	t.Helper()
	roomID := h.coord.CreateRoom("tap-speed")
	h.joinAll(t, roomID, "x", "y")
	require.NoError(t, h.coord.SetReady("x", true))
	require.NoError(t, h.coord.SetReady("y", true))
	require.Equal(t, StatusCountdown, h.status(t, roomID))
	return roomID
}

func (h *harness) next(t *testing.T, connectionID string) ServerEvent {
	t.Helper()
	select {
	case data, ok := <-h.clients[connectionID].Outbox():
		require.True(t, ok, "outbox of %s closed", connectionID)
		var ev ServerEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for an event on %s", connectionID)
	}
	return ServerEvent{}
}

func (h *harness) waitFor(t *testing.T, connectionID string, eventType EventType) ServerEvent {
	t.Helper()
	for {
		if ev := h.next(t, connectionID); ev.EventType == eventType {
			return ev
		}
	}
}

func (h *harness) drain(t *testing.T, connectionID string) []ServerEvent {
	t.Helper()
	var events []ServerEvent
	for {
		select {
		case data := <-h.clients[connectionID].Outbox():
			var ev ServerEvent
			require.NoError(t, json.Unmarshal(data, &ev))
			events = append(events, ev)
		default:
			return events
		}
	}
}

func (h *harness) status(t *testing.T, roomID string) Status {
	t.Helper()
	snapshot, ok := h.coord.Room(roomID)
	require.True(t, ok)
	return snapshot.State.Status
}

func eventTypes(events []ServerEvent) []EventType {
	types := make([]EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	return types
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Register(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

func (m *mockDirectory) Unregister(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

func (m *mockDirectory) Lookup(ctx context.Context, roomID string) (string, error) {
	args := m.Called(ctx, roomID)
	return args.String(0), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordMatch(ctx context.Context, result MatchResult) error {
	return m.Called(ctx, result).Error(0)
}
