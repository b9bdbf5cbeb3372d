package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database location configuration.
type Paths struct {
	DatabasePath    string `toml:"database_path"`
	LogDir          string `toml:"log_dir"`
	TrashFolderName string `toml:"trash_folder_name"`
	WorkDir         string `toml:"work_dir"`
}

// Hashing contains fingerprint computation settings.
type Hashing struct {
	Algorithm string `toml:"algorithm"`
	HashSize  int    `toml:"hash_size"`
	Workers   int    `toml:"workers"`
}

// Similarity contains duplicate-group detection settings.
type Similarity struct {
	Threshold   float64 `toml:"threshold"`
	Workers     int     `toml:"workers"`
	RetryBudget int     `toml:"retry_budget"`
}

// Pruning contains tie-break rule configuration for duplicate groups.
type Pruning struct {
	MinKeep         int      `toml:"min_keep"`
	VersionRule     bool     `toml:"version_rule"`
	PreferKeywords  []string `toml:"prefer_keywords"`
	DiscardKeywords []string `toml:"discard_keywords"`
	PreferSmallest  bool     `toml:"prefer_smallest"`
}

// Backup contains backup-and-delete transaction settings.
type Backup struct {
	Enabled             bool     `toml:"enabled"`
	ForceDelete         bool     `toml:"force_delete"`
	MaxContainerBackups int      `toml:"max_container_backups"`
	SevenZipBinary      string   `toml:"sevenzip_binary"`
	FallbackBinaries    []string `toml:"fallback_binaries"`
	ToolTimeout         int      `toml:"tool_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dupecull.
//
// Configuration sections by subsystem:
//   - Paths: fingerprint database, log directory, trash naming
//   - Hashing: perceptual hash algorithm, size, and worker count
//   - Similarity: distance threshold, workers, retry budget
//   - Pruning: minimum survivors and keyword rule lists
//   - Backup: extraction tools, container backups, force-delete policy
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Hashing    Hashing    `toml:"hashing"`
	Similarity Similarity `toml:"similarity"`
	Pruning    Pruning    `toml:"pruning"`
	Backup     Backup     `toml:"backup"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dupecull/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dupecull.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required before a run.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Paths.WorkDir, filepath.Dir(c.Paths.DatabasePath)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
