package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeHashing()
	c.normalizeSimilarity()
	c.normalizePruning()
	c.normalizeBackup()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = defaultDatabasePath
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	c.Paths.TrashFolderName = strings.TrimSpace(c.Paths.TrashFolderName)
	if c.Paths.TrashFolderName == "" {
		c.Paths.TrashFolderName = defaultTrashFolderName
	}
	return nil
}

func (c *Config) normalizeHashing() {
	c.Hashing.Algorithm = strings.ToLower(strings.TrimSpace(c.Hashing.Algorithm))
	if c.Hashing.Algorithm == "" {
		c.Hashing.Algorithm = defaultHashAlgorithm
	}
	if c.Hashing.HashSize <= 0 {
		c.Hashing.HashSize = defaultHashSize
	}
	if c.Hashing.Workers <= 0 {
		c.Hashing.Workers = defaultHashWorkers
	}
}

func (c *Config) normalizeSimilarity() {
	if c.Similarity.Threshold < 0 {
		c.Similarity.Threshold = defaultThreshold
	}
	if c.Similarity.Workers <= 0 {
		c.Similarity.Workers = defaultSimilarityWorkers
	}
	if c.Similarity.RetryBudget < 0 {
		c.Similarity.RetryBudget = defaultRetryBudget
	}
}

func (c *Config) normalizePruning() {
	if c.Pruning.MinKeep <= 0 {
		c.Pruning.MinKeep = defaultMinKeep
	}
	c.Pruning.PreferKeywords = trimKeywords(c.Pruning.PreferKeywords)
	c.Pruning.DiscardKeywords = trimKeywords(c.Pruning.DiscardKeywords)
}

func (c *Config) normalizeBackup() {
	c.Backup.SevenZipBinary = strings.TrimSpace(c.Backup.SevenZipBinary)
	if c.Backup.SevenZipBinary == "" {
		c.Backup.SevenZipBinary = defaultSevenZipBinary
	}
	if c.Backup.MaxContainerBackups <= 0 {
		c.Backup.MaxContainerBackups = defaultMaxBackups
	}
	if c.Backup.ToolTimeout <= 0 {
		c.Backup.ToolTimeout = defaultToolTimeoutSeconds
	}
	cleaned := make([]string, 0, len(c.Backup.FallbackBinaries))
	for _, binary := range c.Backup.FallbackBinaries {
		if trimmed := strings.TrimSpace(binary); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, defaultFallbackBinaries...)
	}
	c.Backup.FallbackBinaries = cleaned
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

func trimKeywords(keywords []string) []string {
	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
