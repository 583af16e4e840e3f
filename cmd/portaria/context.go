package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/portaria/internal/app"
	"github.com/BrandonDHaskell/portaria/internal/config"
	"github.com/BrandonDHaskell/portaria/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		// Commands print their own results; keep the log quiet unless asked.
		level := cfg.Logging.Level
		if level == "info" {
			level = "warn"
		}
		logging.Init(logging.Config{Level: level, Format: "console"})
		c.config = cfg
	})
	return c.config, c.configErr
}

// withApp opens the database and services for the duration of fn.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	// The seed command seeds explicitly.
	cfg.Database.SeedDev = false

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
