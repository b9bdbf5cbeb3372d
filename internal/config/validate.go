package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHashing(); err != nil {
		return err
	}
	if err := c.validateSimilarity(); err != nil {
		return err
	}
	if err := c.validatePruning(); err != nil {
		return err
	}
	if err := c.validateBackup(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateHashing() error {
	switch c.Hashing.Algorithm {
	case "phash", "ahash", "dhash":
	default:
		return fmt.Errorf("hashing.algorithm must be one of phash, ahash, dhash (got %q)", c.Hashing.Algorithm)
	}
	if c.Hashing.HashSize > 32 {
		return errors.New("hashing.hash_size must be at most 32")
	}
	return nil
}

func (c *Config) validateSimilarity() error {
	if c.Similarity.Threshold < 0 {
		return errors.New("similarity.threshold must not be negative")
	}
	if c.Similarity.RetryBudget > 10 {
		return errors.New("similarity.retry_budget must be at most 10")
	}
	return nil
}

func (c *Config) validatePruning() error {
	if c.Pruning.MinKeep < 1 {
		return errors.New("pruning.min_keep must be at least 1")
	}
	return nil
}

func (c *Config) validateBackup() error {
	if c.Backup.MaxContainerBackups > 100 {
		return errors.New("backup.max_container_backups must be at most 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
