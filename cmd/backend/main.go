package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/finfabric/analytics-gateway/internal/backend"
	"github.com/finfabric/analytics-gateway/internal/config"
)

const (
	exitConfigError  = 1
	exitRuntimeFatal = 2
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	cfg := config.LoadBackend()
	log.Logger = log.With().Str("service", cfg.ServiceName).Logger()

	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(exitConfigError)
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      backend.New(cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// An unusable listen address is a configuration fault, not a runtime one.
	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Error().Err(err).Str("addr", cfg.HTTPAddr).Msg("cannot bind listen address")
		os.Exit(exitConfigError)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting backend")
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("backend failed")
		os.Exit(exitRuntimeFatal)
	case <-sigChan:
	}

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("backend shutdown error")
		os.Exit(exitRuntimeFatal)
	}

	log.Info().Msg("backend stopped")
}
