package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"downpour/internal/config"
	"downpour/internal/logging"
	"downpour/internal/supervisor"
)

const defaultPidPath = "~/.local/share/downpour/downpour.pid"

// newSupervisor is a seam for tests to inject a fake process environment.
var newSupervisor = supervisor.New

type commandContext struct {
	configFlag *string
	pidFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, pidFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		pidFlag:    pidFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path != "" {
			c.config, c.configErr = config.LoadFile(path)
			return
		}
		c.config, c.configErr = config.Load(nil)
	})
	return c.config, c.configErr
}

// configOrNil returns the configuration when loadable. Stop and status only
// need the pid file, so they proceed without one.
func (c *commandContext) configOrNil() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) pidPath() (string, error) {
	var path string
	if c.pidFlag != nil {
		path = strings.TrimSpace(*c.pidFlag)
	}
	if path == "" {
		path = defaultPidPath
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", err
	}
	return expanded, nil
}

func (c *commandContext) logger() *slog.Logger {
	logger, err := logging.NewFromConfig(c.configOrNil())
	if err != nil {
		return logging.NewNop()
	}
	return logger
}
