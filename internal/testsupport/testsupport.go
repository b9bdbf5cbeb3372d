// Package testsupport holds shared test fixtures.
package testsupport

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"dupecull/internal/config"
)

// BuildZip writes a zip archive at path containing the given entries, keyed
// by internal path.
func BuildZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create archive directory: %v", err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	writer := zip.NewWriter(file)
	for name, content := range entries {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create archive entry %s: %v", name, err)
		}
		if _, err := entry.Write(content); err != nil {
			t.Fatalf("write archive entry %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("finalize archive: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
}

// TempConfig returns a default configuration rooted inside a temporary
// directory, with backups enabled and external tools left unset.
func TempConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DatabasePath = filepath.Join(dir, "fingerprints.db")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.WorkDir = filepath.Join(dir, "work")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}
