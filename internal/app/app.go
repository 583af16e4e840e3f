// Package app wires configuration, storage and services together. The
// server and the CLI both build one App and close it when they are done.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonDHaskell/portaria/internal/config"
	"github.com/BrandonDHaskell/portaria/internal/db"
	"github.com/BrandonDHaskell/portaria/internal/logging"
	"github.com/BrandonDHaskell/portaria/internal/portaria/biometric"
	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/service"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store/sqlite"
)

type App struct {
	Config config.Config
	Zone   localtime.Zone
	DB     *sql.DB
	Writer *db.Worker

	Artifacts *biometric.ArtifactStore
	Encoder   biometric.Encoder

	Ingest   *service.IngestService
	Sessions *service.SessionService
	People   *service.PersonService
	Cameras  *service.CameraRegistry
}

// Open opens the database (applying migrations), optionally seeds dev data
// and builds every service. The caller owns the returned App and must Close
// it.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	zone, err := localtime.LoadZone(cfg.Timezone.Name)
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(ctx, db.Config{Path: cfg.Database.Path, Env: cfg.Server.Env})
	if err != nil {
		return nil, err
	}

	if cfg.Database.SeedDev && cfg.IsDev() {
		res, err := db.SeedDev(ctx, conn, db.SeedDevOptions{Zone: zone})
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("seed dev data: %w", err)
		}
		logging.Info().Int("people", res.People).Int("events", res.Events).Msg("dev seed applied")
	}

	artifacts, err := biometric.NewArtifactStore(cfg.Storage.UploadDir)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	var encoder biometric.Encoder = biometric.DisabledEncoder{}
	if cfg.Encoder.URL != "" {
		encoder = biometric.NewHTTPEncoder(biometric.HTTPConfig{
			URL:              cfg.Encoder.URL,
			Timeout:          cfg.Encoder.Timeout,
			FailureThreshold: cfg.Encoder.FailureThreshold,
			OpenTimeout:      cfg.Encoder.OpenTimeout,
		})
	} else {
		logging.Warn().Msg("encoder.url is empty, face encoding disabled")
	}

	writer := db.NewWorker(conn)

	people := sqlite.NewPersonStore(conn, writer)
	events := sqlite.NewEventStore(conn, writer)
	cameras := service.NewCameraRegistry(sqlite.NewCameraStore(conn, writer), zone)

	return &App{
		Config:    cfg,
		Zone:      zone,
		DB:        conn,
		Writer:    writer,
		Artifacts: artifacts,
		Encoder:   encoder,
		Ingest:    service.NewIngestService(people, events, cameras, zone),
		Sessions:  service.NewSessionService(events, people, zone, cfg.Export.LookaheadDays),
		People:    service.NewPersonService(people, artifacts, encoder, zone),
		Cameras:   cameras,
	}, nil
}

// Ready reports whether the database answers.
func (a *App) Ready(ctx context.Context) error {
	return a.DB.PingContext(ctx)
}

// Close stops the writer and closes the database. Pending writes submitted
// before Close finish first.
func (a *App) Close() error {
	a.Writer.Close()
	return a.DB.Close()
}
