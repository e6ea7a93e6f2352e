package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// RoomManager fans messages out to the clients subscribed to a room. A client
// belongs to at most one room at a time.
type RoomManager struct {
	mu            sync.RWMutex
	clients       map[string]*Client            // connectionID -> client
	rooms         map[string]map[string]*Client // roomID -> connectionID -> client
	subscriptions map[string]string             // connectionID -> roomID
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		clients:       make(map[string]*Client),
		rooms:         make(map[string]map[string]*Client),
		subscriptions: make(map[string]string),
	}
}

func (m *RoomManager) AddClient(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
}

// RemoveClient drops the client and its room subscription, then closes it.
func (m *RoomManager) RemoveClient(c *Client) {
	m.mu.Lock()
	if current, ok := m.clients[c.ID]; ok && current == c {
		delete(m.clients, c.ID)
		m.unsubscribeLocked(c.ID)
	}
	m.mu.Unlock()

	c.Close()
}

func (m *RoomManager) Subscribe(roomID, connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.clients[connectionID]
	if !ok {
		return
	}
	m.unsubscribeLocked(connectionID)

	members, ok := m.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		m.rooms[roomID] = members
	}
	members[connectionID] = client
	m.subscriptions[connectionID] = roomID
}

func (m *RoomManager) Unsubscribe(roomID, connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscriptions[connectionID] != roomID {
		return
	}
	m.unsubscribeLocked(connectionID)
}

func (m *RoomManager) unsubscribeLocked(connectionID string) {
	roomID, ok := m.subscriptions[connectionID]
	if !ok {
		return
	}
	delete(m.subscriptions, connectionID)

	members := m.rooms[roomID]
	delete(members, connectionID)
	if len(members) == 0 {
		delete(m.rooms, roomID)
	}
}

func (m *RoomManager) Broadcast(roomID string, msg []byte) {
	m.BroadcastExcept(roomID, "", msg)
}

func (m *RoomManager) BroadcastExcept(roomID, exceptConnectionID string, msg []byte) {
	m.mu.RLock()
	members := make([]*Client, 0, len(m.rooms[roomID]))
	for id, c := range m.rooms[roomID] {
		if id != exceptConnectionID {
			members = append(members, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range members {
		m.deliver(c, msg)
	}
}

func (m *RoomManager) SendTo(connectionID string, msg []byte) {
	m.mu.RLock()
	c, ok := m.clients[connectionID]
	m.mu.RUnlock()

	if ok {
		m.deliver(c, msg)
	}
}

// deliver closes clients that cannot keep up; their read loop then runs the
// normal disconnect path.
func (m *RoomManager) deliver(c *Client, msg []byte) {
	if c.Send(msg) {
		return
	}
	log.Warn().Str("connectionId", c.ID).Msg("Client outbox full or closed, dropping connection.")
	c.Close()
}

func (m *RoomManager) Stats() (rooms, clients int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms), len(m.clients)
}
