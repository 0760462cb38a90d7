package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"red-herring-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("herring exited")
		os.Exit(1)
	}
}
