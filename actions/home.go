package actions

import (
	"context"
	"net/http"
	"time"

	"github.com/gobuffalo/buffalo"
	"github.com/gobuffalo/buffalo/render"
	"github.com/rs/zerolog/log"
)

var r = render.New(render.Options{})

func HomeHandler(c buffalo.Context) error {
	return c.Render(http.StatusOK, r.JSON(map[string]string{
		"service":    "grepcoin-multiplayer",
		"instanceId": settings.InstanceID,
	}))
}

func HealthHandler(c buffalo.Context) error {
	openRooms, connections := transport.Stats()

	redisStatus := "disabled"
	if roomStore != nil {
		ctx, cancel := context.WithTimeout(c, time.Second)
		defer cancel()
		if err := roomStore.GetRedis().Ping(ctx).Err(); err != nil {
			log.Error().Err(err).Msg("Redis ping failed.")
			redisStatus = "unreachable"
		} else {
			redisStatus = "ok"
		}
	}

	return c.Render(http.StatusOK, r.JSON(map[string]any{
		"status":      "ok",
		"instanceId":  settings.InstanceID,
		"rooms":       coordinator.Registry().Len(),
		"activeRooms": openRooms,
		"connections": connections,
		"redis":       redisStatus,
	}))
}
