package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	zlog "github.com/rs/zerolog/log"

	"genecross/api/internal/config"
	"genecross/api/internal/cross"
	"genecross/api/internal/handle"
	"genecross/api/internal/httpserver"
	"genecross/api/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.ValidateBackends(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := cross.New(cfg.CrossServiceURL, cfg.CrossTimeout)
	h := handle.New(client, log, cfg.CrossTimeout)

	mux := http.NewServeMux()
	httpserver.Mount(mux, nil)
	mux.HandleFunc("/v1/options", h.Options)
	mux.HandleFunc("/v1/cross", h.Cross)

	log.Info().Str("upstream", client.URL()).Msg("cross-proxy starting")
	if err := httpserver.Run(ctx, ":"+cfg.Port, mux, log); err != nil {
		log.Fatal().Err(err).Msg("cross-proxy stopped")
	}
}
