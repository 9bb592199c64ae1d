package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"reelkeeper/internal/api"
	"reelkeeper/internal/config"
	"reelkeeper/internal/logging"
	"reelkeeper/internal/services"
)

type commandContext struct {
	configFlag  *string
	jsonFlag    *bool
	verboseFlag *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	serviceOnce sync.Once
	service     *api.Service
	serviceErr  error

	// serviceOptions is consulted when the service is first built.
	serviceOptions []api.Option
}

func newCommandContext(configFlag *string, jsonFlag, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		jsonFlag:    jsonFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// logger writes to the log file, and to stderr as well under --verbose.
// stdout stays reserved for command output.
func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg, c.verboseFlag != nil && *c.verboseFlag)
}

func (c *commandContext) ensureService() (*api.Service, error) {
	c.serviceOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.serviceErr = err
			return
		}
		logger, err := c.logger()
		if err != nil {
			c.serviceErr = err
			return
		}
		c.service, c.serviceErr = api.New(cfg, logger, c.serviceOptions...)
	})
	return c.service, c.serviceErr
}

func (c *commandContext) close() error {
	if c.service == nil {
		return nil
	}
	return c.service.Close()
}

// runContext tags the command context with a fresh run id and stage.
func runContext(cmd *cobra.Command, stage string) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithRunID(ctx, uuid.NewString())
	return services.WithStage(ctx, stage)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
