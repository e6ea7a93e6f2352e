package game

import (
	"time"

	"github.com/rs/zerolog/log"
)

// runCountdown emits CountdownFrom..0, one tick per interval, then commits
// the room to playing. Ready toggles do not interrupt it; ending the game
// does. If the room lost
// players below the start floor meanwhile, it goes back to waiting instead.
func (c *Coordinator) runCountdown(room *Room) {
	for count := c.opts.CountdownFrom; count >= 0; count-- {
		if count != c.opts.CountdownFrom && !c.sleep(c.opts.CountdownInterval) {
			return
		}

		room.mu.Lock()
		if room.removed || room.state.Status != StatusCountdown {
			room.mu.Unlock()
			return
		}
		c.broadcast(room.ID, EventCountdown, map[string]any{"count": count})
		room.mu.Unlock()
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.removed || room.state.Status != StatusCountdown {
		return
	}

	if len(room.players) < c.opts.MinPlayers {
		room.state.Status = StatusWaiting
		for _, p := range room.players {
			p.Ready = false
		}
		log.Info().Str("roomId", room.ID).Int("players", len(room.players)).Msg("Countdown finished without enough players, back to waiting.")
		c.broadcastStateLocked(room)
		return
	}

	startTime := c.now()
	room.state.Status = StatusPlaying
	room.state.StartTime = &startTime
	log.Info().Str("roomId", room.ID).Msg("Game started.")

	c.broadcast(room.ID, EventGameStarted, map[string]any{"startTime": startTime})
	c.broadcastStateLocked(room)
}

func (c *Coordinator) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}
