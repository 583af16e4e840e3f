package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/app"
	"github.com/BrandonDHaskell/portaria/internal/config"
	"github.com/BrandonDHaskell/portaria/internal/grpcapi"
	"github.com/BrandonDHaskell/portaria/internal/httpapi"
	"github.com/BrandonDHaskell/portaria/internal/logging"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logging.Error().Err(err).Msg("load config")
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger := logging.With("portaria-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("close database")
		}
	}()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:            logging.With("http"),
		Addr:              cfg.Server.HTTPAddr,
		IngestService:     a.Ingest,
		SessionService:    a.Sessions,
		PersonService:     a.People,
		CameraRegistry:    a.Cameras,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Ingest.RateLimitRequests,
		RateLimitWindow:   cfg.Ingest.RateLimitWindow,
	})

	go func() {
		logger.Info().Str("addr", cfg.Server.HTTPAddr).Str("env", cfg.Server.Env).Str("zone", a.Zone.Name()).Msg("listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	// gRPC health (optional)
	var health *grpcapi.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error().Err(err).Str("addr", cfg.Server.GRPCAddr).Msg("grpc listen")
			stop()
		} else {
			health = grpcapi.NewServer(logging.With("grpc"), a.Ready)
			go func() {
				logger.Info().Str("addr", cfg.Server.GRPCAddr).Msg("grpc health listening")
				if err := health.Serve(ctx, lis); err != nil {
					logger.Error().Err(err).Msg("grpc server error")
					stop()
				}
			}()
		}
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if health != nil {
		health.Shutdown(shutdownCtx)
	}
	_ = srv.Shutdown(shutdownCtx)
}
