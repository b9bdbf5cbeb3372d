package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIdentifyCommand(t *testing.T) {
	output, err := runCommand(t, "identify", "/data/a.jpg", "/data/book.zip!pages/01.jpg")
	if err != nil {
		t.Fatalf("identify: %v\n%s", err, output)
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 identifiers, got %q", output)
	}
	if !strings.HasPrefix(lines[0], "file:///") || !strings.HasPrefix(lines[1], "archive:///") {
		t.Fatalf("unexpected identifiers: %v", lines)
	}
}

func TestIdentifyCommandReportsMalformed(t *testing.T) {
	output, err := runCommand(t, "identify", "archive:///broken")
	if err == nil {
		t.Fatalf("expected failure for malformed identifier, got:\n%s", output)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, output)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample config: %v", err)
	}
	if !strings.Contains(string(data), "[hashing]") {
		t.Fatalf("sample config missing hashing section:\n%s", data)
	}

	// Re-running without --overwrite must refuse.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestGroupsCommandWithExplicitConfig(t *testing.T) {
	base := t.TempDir()
	library := filepath.Join(base, "library")
	if err := os.MkdirAll(library, 0o755); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(base, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`database_path = "` + filepath.Join(base, "fingerprints.db") + `"`,
		`log_dir = "` + filepath.Join(base, "logs") + `"`,
		`work_dir = "` + filepath.Join(base, "work") + `"`,
	}, "\n")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	output, err := runCommand(t, "--config", configPath, "groups", library)
	if err != nil {
		t.Fatalf("groups: %v\n%s", err, output)
	}
	if !strings.Contains(output, "No near-duplicate groups found.") {
		t.Fatalf("expected empty-library message, got:\n%s", output)
	}
}
