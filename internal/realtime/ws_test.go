package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg, ok := <-c.Outbox():
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestRoomManager_Broadcast(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(*RoomManager) map[string]*Client
		roomID       string
		except       string
		wantReceived map[string]int
	}{
		{
			name: "broadcast to room members",
			setup: func(m *RoomManager) map[string]*Client {
				clients := map[string]*Client{
					"a": NewClient("a", 4, nil),
					"b": NewClient("b", 4, nil),
				}
				for id, c := range clients {
					m.AddClient(c)
					m.Subscribe("room1", id)
				}
				return clients
			},
			roomID:       "room1",
			wantReceived: map[string]int{"a": 1, "b": 1},
		},
		{
			name: "no cross-room broadcast",
			setup: func(m *RoomManager) map[string]*Client {
				a := NewClient("a", 4, nil)
				b := NewClient("b", 4, nil)
				m.AddClient(a)
				m.AddClient(b)
				m.Subscribe("room1", "a")
				m.Subscribe("room2", "b")
				return map[string]*Client{"a": a, "b": b}
			},
			roomID:       "room1",
			wantReceived: map[string]int{"a": 1, "b": 0},
		},
		{
			name: "except skips the sender",
			setup: func(m *RoomManager) map[string]*Client {
				clients := map[string]*Client{
					"a": NewClient("a", 4, nil),
					"b": NewClient("b", 4, nil),
				}
				for id, c := range clients {
					m.AddClient(c)
					m.Subscribe("room1", id)
				}
				return clients
			},
			roomID:       "room1",
			except:       "a",
			wantReceived: map[string]int{"a": 0, "b": 1},
		},
		{
			name: "unsubscribed client is not reached",
			setup: func(m *RoomManager) map[string]*Client {
				a := NewClient("a", 4, nil)
				m.AddClient(a)
				m.Subscribe("room1", "a")
				m.Unsubscribe("room1", "a")
				return map[string]*Client{"a": a}
			},
			roomID:       "room1",
			wantReceived: map[string]int{"a": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewRoomManager()
			clients := tt.setup(m)

			m.BroadcastExcept(tt.roomID, tt.except, []byte("hello"))

			for id, want := range tt.wantReceived {
				assert.Len(t, drain(clients[id]), want, "client %s", id)
			}
		})
	}
}

func TestRoomManager_SubscribeMovesClient(t *testing.T) {
	m := NewRoomManager()
	c := NewClient("a", 4, nil)
	m.AddClient(c)

	m.Subscribe("room1", "a")
	m.Subscribe("room2", "a")

	m.Broadcast("room1", []byte("one"))
	m.Broadcast("room2", []byte("two"))

	assert.Equal(t, []string{"two"}, drain(c))

	rooms, clients := m.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, clients)
}

func TestRoomManager_RemoveClient(t *testing.T) {
	m := NewRoomManager()
	c := NewClient("a", 4, nil)
	m.AddClient(c)
	m.Subscribe("room1", "a")

	m.RemoveClient(c)
	m.RemoveClient(c)

	rooms, clients := m.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, clients)

	_, ok := <-c.Outbox()
	assert.False(t, ok, "outbox should be closed")
	assert.False(t, c.Send([]byte("late")))
}

func TestRoomManager_SendTo(t *testing.T) {
	m := NewRoomManager()
	a := NewClient("a", 4, nil)
	b := NewClient("b", 4, nil)
	m.AddClient(a)
	m.AddClient(b)

	m.SendTo("a", []byte("direct"))
	m.SendTo("missing", []byte("nobody"))

	assert.Equal(t, []string{"direct"}, drain(a))
	assert.Empty(t, drain(b))
}

func TestRoomManager_SlowClientIsClosed(t *testing.T) {
	m := NewRoomManager()
	c := NewClient("slow", 1, nil)
	m.AddClient(c)
	m.Subscribe("room1", "slow")

	m.Broadcast("room1", []byte("first"))
	m.Broadcast("room1", []byte("second"))

	msg, ok := <-c.Outbox()
	require.True(t, ok)
	assert.Equal(t, "first", string(msg))

	_, ok = <-c.Outbox()
	assert.False(t, ok, "overflowing client should be closed")
}

func TestClient_Allow(t *testing.T) {
	unlimited := NewClient("a", 1, nil)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow())
	}

	limited := NewClient("b", 1, rate.NewLimiter(rate.Limit(1), 2))
	assert.True(t, limited.Allow())
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow())
}
