package game

import (
	"encoding/json"
	"fmt"
)

type MessageType string

const (
	MessageJoinRoom    MessageType = "join-room"
	MessageLeaveRoom   MessageType = "leave-room"
	MessagePlayerReady MessageType = "player-ready"
	MessageScoreUpdate MessageType = "score-update"
)

type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type PlayerIdentity struct {
	ID            string `json:"id"`
	WalletAddress string `json:"walletAddress"`
	Username      string `json:"username"`
}

func (p *PlayerIdentity) missing() bool {
	return p == nil || (p.WalletAddress == "" && p.Username == "")
}

type JoinRoomPayload struct {
	RoomID string          `json:"roomId"`
	Player *PlayerIdentity `json:"player"`
}

type PlayerReadyPayload struct {
	Ready *bool `json:"ready"`
}

type ScoreUpdatePayload struct {
	Score *int `json:"score"`
}

func decodePayload(msg ClientMessage, into any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: %s requires a payload", ErrInvalidMessage, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, into); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// HandleMessage decodes one client frame and dispatches it. Failures have
// already been reported to the connection when an error is returned.
func (c *Coordinator) HandleMessage(connectionID string, data []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.SendError(connectionID, "", ErrInvalidMessage)
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch msg.Type {
	case MessageJoinRoom:
		var payload JoinRoomPayload
		if err := decodePayload(msg, &payload); err != nil {
			c.SendError(connectionID, "", ErrInvalidMessage)
			return err
		}
		return c.Join(connectionID, payload.RoomID, payload.Player)

	case MessageLeaveRoom:
		c.Leave(connectionID)
		return nil

	case MessagePlayerReady:
		var payload PlayerReadyPayload
		if err := decodePayload(msg, &payload); err != nil || payload.Ready == nil {
			c.SendError(connectionID, "", ErrInvalidMessage)
			return ErrInvalidMessage
		}
		return c.SetReady(connectionID, *payload.Ready)

	case MessageScoreUpdate:
		var payload ScoreUpdatePayload
		if err := decodePayload(msg, &payload); err != nil || payload.Score == nil {
			c.SendError(connectionID, "", ErrInvalidMessage)
			return ErrInvalidMessage
		}
		return c.UpdateScore(connectionID, *payload.Score)

	default:
		c.SendError(connectionID, "", ErrInvalidMessage)
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}
}
