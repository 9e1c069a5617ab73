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

	"github.com/finfabric/analytics-gateway/internal/config"
	"github.com/finfabric/analytics-gateway/internal/gateway"
)

const (
	exitConfigError  = 1
	exitRuntimeFatal = 2
)

func main() {
	// Configure structured logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "gateway").Logger()

	cfg := config.LoadGateway()

	// Pretty logging for local dev
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(exitConfigError)
	}

	srv := gateway.New(cfg)

	// Warm the key cache so the first request does not pay the fetch.
	// Non-fatal: the first verification triggers a fetch if this fails.
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := srv.Keys().Refresh(warmCtx); err != nil {
		log.Warn().Err(err).Msg("JWKS warm-up failed, continuing")
	}
	warmCancel()

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
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
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting gateway")
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("gateway failed")
		os.Exit(exitRuntimeFatal)
	case <-sigChan:
	}

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway shutdown error")
		os.Exit(exitRuntimeFatal)
	}

	log.Info().Msg("gateway stopped")
}
