package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/forPelevin/subalign/internal/config"
	"github.com/forPelevin/subalign/internal/logging"
	"github.com/forPelevin/subalign/internal/pipeline"
)

// commandContext holds the global flags and lazily loaded state shared by
// subcommands.
type commandContext struct {
	configPath string
	verbose    bool
	quiet      bool

	cfg    *config.Config
	logger *slog.Logger
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(strings.TrimSpace(c.configPath))
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	switch {
	case c.verbose:
		level = "debug"
	case c.quiet:
		level = "error"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format, Output: os.Stderr})
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}

// openApp loads config and wires the application. The caller closes it.
func (c *commandContext) openApp(ctx context.Context) (*pipeline.App, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return pipeline.Open(ctx, cfg, logger)
}
