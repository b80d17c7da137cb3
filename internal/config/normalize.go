package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWorkflow(); err != nil {
		return err
	}
	c.normalizeScanner()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeWorkflow() error {
	if strings.TrimSpace(c.Workflow.DefinitionsDir) == "" {
		c.Workflow.DefinitionsDir = defaultDefinitionsDir
	}
	var err error
	if c.Workflow.DefinitionsDir, err = expandPath(c.Workflow.DefinitionsDir); err != nil {
		return fmt.Errorf("workflow.definitions_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScanner() {
	if c.Scanner.RateLimitWindowSeconds == 0 {
		c.Scanner.RateLimitWindowSeconds = defaultRateLimitWindowSeconds
	}
	if c.Scanner.RateLimitMaxScans == 0 {
		c.Scanner.RateLimitMaxScans = defaultRateLimitMaxScans
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
