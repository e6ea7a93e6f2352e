package actions

import (
	"net/http"

	"grepcoin_multiplayer/internal/config"
	"grepcoin_multiplayer/internal/game"
	"grepcoin_multiplayer/internal/realtime"

	"github.com/gobuffalo/buffalo"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type gameSocket struct {
	coordinator *game.Coordinator
	transport   *realtime.RoomManager
	upgrader    websocket.Upgrader
	rate        rate.Limit
	burst       int
}

func newGameSocket(coordinator *game.Coordinator, transport *realtime.RoomManager, cfg config.Config) *gameSocket {
	return &gameSocket{
		coordinator: coordinator,
		transport:   transport,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(cfg.AllowedOrigins),
		},
		rate:  rate.Limit(cfg.MessageRate),
		burst: cfg.MessageBurst,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Serve upgrades the request and pumps frames into the coordinator until the
// peer goes away. A dropped connection takes the same leave path as an
// explicit leave-room.
func (s *gameSocket) Serve(c buffalo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("Websocket upgrade failed.")
		return nil
	}

	client := realtime.NewClient(uuid.NewString(), realtime.DefaultOutboxSize, rate.NewLimiter(s.rate, s.burst))
	s.transport.AddClient(client)
	log.Info().Str("connectionId", client.ID).Msg("Client connected.")

	go client.WritePump(conn)

	client.ReadPump(conn, func(data []byte) {
		if !client.Allow() {
			s.coordinator.SendError(client.ID, "", game.ErrRateLimited)
			return
		}
		_ = s.coordinator.HandleMessage(client.ID, data)
	})

	s.coordinator.Leave(client.ID)
	s.transport.RemoveClient(client)
	log.Info().Str("connectionId", client.ID).Msg("Client disconnected.")
	return nil
}
