package main

import (
	"context"
	"os"
	"os/signal"

	"matchlink/backend/internal/cli"
	"matchlink/backend/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureCLI()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
