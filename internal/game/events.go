package game

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventRoomJoined         EventType = "room-joined"
	EventPlayerJoined       EventType = "player-joined"
	EventPlayerLeft         EventType = "player-left"
	EventPlayerReadyChanged EventType = "player-ready-changed"
	EventScoreUpdated       EventType = "score-updated"
	EventRoomStateUpdated   EventType = "room-state-updated"
	EventCountdown          EventType = "countdown"
	EventGameStarted        EventType = "game-started"
	EventGameEnded          EventType = "game-ended"
	EventError              EventType = "error"
)

type ServerEvent struct {
	EventType EventType      `json:"eventType"`
	RoomID    string         `json:"roomId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Broadcaster is the transport the coordinator publishes through.
type Broadcaster interface {
	Subscribe(roomID, connectionID string)
	Unsubscribe(roomID, connectionID string)
	Broadcast(roomID string, msg []byte)
	BroadcastExcept(roomID, exceptConnectionID string, msg []byte)
	SendTo(connectionID string, msg []byte)
}

func encodeEvent(roomID string, eventType EventType, payload map[string]any, at time.Time) []byte {
	data, err := json.Marshal(ServerEvent{
		EventType: eventType,
		RoomID:    roomID,
		Timestamp: at.UTC(),
		Payload:   payload,
	})
	if err != nil {
		log.Error().Err(err).Str("eventType", string(eventType)).Msg("Failed to marshal event.")
		return nil
	}
	return data
}

func (c *Coordinator) broadcast(roomID string, eventType EventType, payload map[string]any) {
	if data := encodeEvent(roomID, eventType, payload, c.now()); data != nil {
		c.transport.Broadcast(roomID, data)
	}
}

func (c *Coordinator) broadcastExcept(roomID, exceptConnectionID string, eventType EventType, payload map[string]any) {
	if data := encodeEvent(roomID, eventType, payload, c.now()); data != nil {
		c.transport.BroadcastExcept(roomID, exceptConnectionID, data)
	}
}

func (c *Coordinator) sendTo(connectionID, roomID string, eventType EventType, payload map[string]any) {
	if data := encodeEvent(roomID, eventType, payload, c.now()); data != nil {
		c.transport.SendTo(connectionID, data)
	}
}

// broadcastStateLocked sends the full room snapshot. Caller holds room.mu.
func (c *Coordinator) broadcastStateLocked(room *Room) {
	c.broadcast(room.ID, EventRoomStateUpdated, map[string]any{
		"room": room.snapshotLocked(),
	})
}

// SendError reports err to a single connection.
func (c *Coordinator) SendError(connectionID, roomID string, err error) {
	log.Warn().Err(err).Str("connectionId", connectionID).Str("roomId", roomID).Msg("Rejected client action.")
	c.sendTo(connectionID, roomID, EventError, map[string]any{
		"message": err.Error(),
	})
}
