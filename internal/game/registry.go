package game

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry maps room ids to rooms and connection ids to the room they occupy.
// It never fails: absence is reported through the boolean returns.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	sessions map[string]string // connectionID -> roomID

	newID func() string
	now   func() time.Time
}

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		sessions: make(map[string]string),
		newID:    uuid.NewString,
		now:      now,
	}
}

func (reg *Registry) CreateRoom(gameSlug string) string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	id := reg.newID()
	for {
		if _, taken := reg.rooms[id]; !taken {
			break
		}
		id = reg.newID()
	}

	reg.rooms[id] = newRoom(id, gameSlug, reg.now().UTC())
	return id
}

func (reg *Registry) GetRoom(roomID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// ListRooms returns rooms ordered by creation time, then id.
func (reg *Registry) ListRooms() []*Room {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms
}

func (reg *Registry) RemoveRoom(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, roomID)
}

func (reg *Registry) MapConnectionToRoom(connectionID, roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.sessions[connectionID] = roomID
}

func (reg *Registry) UnmapConnection(connectionID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.sessions, connectionID)
}

func (reg *Registry) LookupRoomForConnection(connectionID string) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	roomID, ok := reg.sessions[connectionID]
	return roomID, ok
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
