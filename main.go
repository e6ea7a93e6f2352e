package main

import (
	"grepcoin_multiplayer/actions"
	"grepcoin_multiplayer/internal/logger"

	"github.com/gobuffalo/envy"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.Init(envy.Get("GO_ENV", "development"), envy.Get("LOG_LEVEL", "info"))

	err := actions.App().Serve()
	actions.Shutdown()
	if err != nil {
		log.Fatal().Err(err).Msg("Server stopped.")
	}
}
