package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dupecull/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDB := filepath.Join(tempHome, ".local", "share", "dupecull", "fingerprints.db")
	if cfg.Paths.DatabasePath != wantDB {
		t.Fatalf("unexpected database path: got %q want %q", cfg.Paths.DatabasePath, wantDB)
	}
	if cfg.Paths.TrashFolderName != "trash" {
		t.Fatalf("unexpected trash folder name: %q", cfg.Paths.TrashFolderName)
	}
	if cfg.Hashing.Algorithm != "phash" {
		t.Fatalf("unexpected hash algorithm: %q", cfg.Hashing.Algorithm)
	}
	if cfg.Pruning.MinKeep != 1 {
		t.Fatalf("unexpected min_keep: %d", cfg.Pruning.MinKeep)
	}
	if cfg.Backup.ForceDelete {
		t.Fatal("expected force_delete disabled by default")
	}
	if cfg.Backup.SevenZipBinary != "7z" {
		t.Fatalf("unexpected 7z binary: %q", cfg.Backup.SevenZipBinary)
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
database_path = "` + filepath.Join(dir, "db", "prints.db") + `"
trash_folder_name = "  recycle  "

[hashing]
algorithm = "DHash"
workers = 0

[similarity]
threshold = 6

[backup]
fallback_binaries = ["", "  "]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Hashing.Algorithm != "dhash" {
		t.Fatalf("algorithm not normalized: %q", cfg.Hashing.Algorithm)
	}
	if cfg.Hashing.Workers <= 0 {
		t.Fatalf("workers not defaulted: %d", cfg.Hashing.Workers)
	}
	if cfg.Similarity.Threshold != 6 {
		t.Fatalf("threshold not honored: %v", cfg.Similarity.Threshold)
	}
	if cfg.Paths.TrashFolderName != "recycle" {
		t.Fatalf("trash folder name not trimmed: %q", cfg.Paths.TrashFolderName)
	}
	// Blank fallback entries collapse to the defaults.
	if len(cfg.Backup.FallbackBinaries) == 0 {
		t.Fatal("expected fallback binaries to be populated")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad algorithm": "[hashing]\nalgorithm = \"md5\"\n",
		"bad level":     "[logging]\nlevel = \"verbose\"\n",
		"bad format":    "[logging]\nformat = \"xml\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSampleConfigMentionsEverySection(t *testing.T) {
	sample := config.SampleConfig()
	for _, section := range []string{"[paths]", "[hashing]", "[similarity]", "[pruning]", "[backup]", "[logging]"} {
		if !strings.Contains(sample, section) {
			t.Errorf("sample config missing %s", section)
		}
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DatabasePath = filepath.Join(dir, "db", "prints.db")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.WorkDir = filepath.Join(dir, "work")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, want := range []string{filepath.Join(dir, "db"), cfg.Paths.LogDir, cfg.Paths.WorkDir} {
		if info, err := os.Stat(want); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", want)
		}
	}
}
