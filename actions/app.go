package actions

import (
	"net/http"
	"sync"

	"grepcoin_multiplayer/actions/rooms"
	"grepcoin_multiplayer/internal/config"
	"grepcoin_multiplayer/internal/game"
	"grepcoin_multiplayer/internal/realtime"

	"github.com/gobuffalo/buffalo"
	"github.com/gobuffalo/middleware/contenttype"
	"github.com/gobuffalo/middleware/forcessl"
	"github.com/gobuffalo/middleware/paramlogger"
	"github.com/gobuffalo/x/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/unrolled/secure"
)

var (
	app         *buffalo.App
	appOnce     sync.Once
	settings    config.Config
	coordinator *game.Coordinator
	transport   *realtime.RoomManager
	roomStore   *game.RedisStore
)

func App() *buffalo.App {
	appOnce.Do(func() {
		var err error
		settings, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid configuration.")
		}

		app = buffalo.New(buffalo.Options{
			Env:          settings.Env,
			SessionStore: sessions.Null{},
			PreWares: []buffalo.PreWare{
				corsHandler(settings.AllowedOrigins),
			},
			SessionName: "_grepcoin_multiplayer_session",
		})

		app.Use(forceSSL())
		app.Use(paramlogger.ParameterLogger)
		app.Use(contenttype.Set("application/json"))

		transport = realtime.NewRoomManager()

		opts := game.Options{
			InstanceID:        settings.InstanceID,
			CountdownFrom:     settings.CountdownFrom,
			CountdownInterval: settings.CountdownInterval,
			MinPlayers:        settings.MinPlayers,
		}

		// Redis only carries routing hints and finished matches; rooms stay in memory.
		if settings.RedisAddr != "" {
			redisClient := redis.NewClient(&redis.Options{
				Addr:     settings.RedisAddr,
				Password: settings.RedisPassword,
				DB:       settings.RedisDB,
			})
			roomStore = game.NewRedisStore(redisClient, settings.InstanceID, settings.RoomDirectoryTTL)
			opts.Directory = roomStore
			opts.Recorder = roomStore
		}

		coordinator = game.NewCoordinator(transport, opts)

		app.GET("/", HomeHandler)
		app.GET("/healthz", HealthHandler)
		app.GET("/ws", newGameSocket(coordinator, transport, settings).Serve)

		rooms.Register(app, rooms.NewRoomsController(coordinator))

		log.Info().Str("instanceId", settings.InstanceID).Bool("redis", roomStore != nil).Msg("Multiplayer coordinator ready.")
	})

	return app
}

// Shutdown stops countdowns and flushes pending Redis writes.
func Shutdown() {
	if coordinator != nil {
		coordinator.Close()
	}
	if roomStore != nil {
		_ = roomStore.GetRedis().Close()
	}
}

func corsHandler(origins []string) buffalo.PreWare {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}).Handler
}

func forceSSL() buffalo.MiddlewareFunc {
	return forcessl.Middleware(secure.Options{
		SSLRedirect:     false,
		SSLProxyHeaders: map[string]string{"X-Forwarded-Proto": "https"},
	})
}
