package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/portaria/internal/app"
	"github.com/BrandonDHaskell/portaria/internal/db"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	var req types.AccessLogRequest

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record an entry or exit by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.TimestampUTC == "" {
				req.TimestampUTC = time.Now().UTC().Format(time.RFC3339)
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				resp, err := a.Ingest.LogAccess(c, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s at %s\n", resp.Message, resp.PersonName, resp.EventType, resp.TimestampLocal)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.PersonSystemID, "person", "", "person_system_id")
	cmd.Flags().StringVar(&req.EventType, "type", "", "entry or exit")
	cmd.Flags().StringVar(&req.TimestampUTC, "at", "", "ISO 8601 instant (default now)")
	cmd.Flags().StringVar(&req.CameraID, "camera", "", "Camera ID to record")
	return cmd
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample people and three days of events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.IsDev() && !force {
				return errors.New("refusing to seed a prod database; pass --force to override")
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				res, err := db.SeedDev(c, a.DB, db.SeedDevOptions{Zone: a.Zone})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d person(s) and %d event(s)\n", res.People, res.Events)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Seed even when server.env is prod")
	return cmd
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			c := cmd.Context()
			if c == nil {
				c = context.Background()
			}

			conn, err := db.Open(c, db.Config{Path: cfg.Database.Path, Env: cfg.Server.Env, SkipMigrate: true})
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := db.MigrateReport(c, conn)
			if err != nil {
				return err
			}
			versions, err := db.Versions(c, conn)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema is up to date")
			} else {
				fmt.Fprintf(out, "applied %d migration(s): %v\n", len(applied), applied)
			}
			if len(versions) > 0 {
				fmt.Fprintf(out, "schema version %d\n", versions[len(versions)-1])
			}
			return nil
		},
	}
}
