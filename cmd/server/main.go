// Command server runs the gto-trainer HTTP API.
package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gto-trainer/internal/config"
	"gto-trainer/internal/httpapi"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.Load()
	api := httpapi.New()

	addr := cfg.Bind + ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("gto-trainer listening")

	if err := http.ListenAndServe(addr, api.Router()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
