package trash

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"dupecull/internal/services"
)

// Strategy extracts one archive entry into destRoot, preserving the entry's
// internal path below it. The first strategy that materializes the file wins.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, container, internalPath, destRoot string) error
}

// SevenZipStrategy shells out to a 7z-compatible binary.
type SevenZipStrategy struct {
	binary  string
	exec    Executor
	timeout time.Duration
}

// NewSevenZipStrategy builds the primary extraction strategy.
func NewSevenZipStrategy(binary string, executor Executor, timeout time.Duration) *SevenZipStrategy {
	if executor == nil {
		executor = commandExecutor{}
	}
	return &SevenZipStrategy{binary: binary, exec: executor, timeout: timeout}
}

func (s *SevenZipStrategy) Name() string { return "7z" }

func (s *SevenZipStrategy) Extract(ctx context.Context, container, internalPath, destRoot string) error {
	if strings.TrimSpace(s.binary) == "" {
		return services.Wrap(services.ErrConfiguration, "trash", "extract", "no 7z binary configured", nil)
	}
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	args := []string{"x", container, "-o" + destRoot, "-y", internalPath}
	if err := s.exec.Run(runCtx, s.binary, args, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, "trash", "extract", s.binary, err)
	}
	return verifyExtracted(destRoot, internalPath)
}

// BuiltinZipStrategy reads zip containers directly, covering hosts without
// any extraction tool installed.
type BuiltinZipStrategy struct{}

func (BuiltinZipStrategy) Name() string { return "builtin-zip" }

func (BuiltinZipStrategy) Extract(ctx context.Context, container, internalPath, destRoot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reader, err := zip.OpenReader(container)
	if err != nil {
		return services.Wrap(services.ErrValidation, "trash", "extract", "open container", err)
	}
	defer reader.Close()

	want := filepath.ToSlash(internalPath)
	for _, entry := range reader.File {
		if filepath.ToSlash(entry.Name) != want {
			continue
		}
		return writeEntry(entry, filepath.Join(destRoot, filepath.FromSlash(want)))
	}
	return services.Wrap(services.ErrNotFound, "trash", "extract",
		fmt.Sprintf("%s has no entry %s", container, internalPath), nil)
}

func writeEntry(entry *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create trash directory: %w", err)
	}
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create trash file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("write trash file: %w", err)
	}
	return out.Close()
}

// FallbackToolStrategy tries secondary 7z-compatible binaries at known
// install locations when the primary tool and the builtin reader both fail.
type FallbackToolStrategy struct {
	binaries []string
	exec     Executor
	timeout  time.Duration
}

// NewFallbackToolStrategy builds the last-resort extraction strategy.
func NewFallbackToolStrategy(binaries []string, executor Executor, timeout time.Duration) *FallbackToolStrategy {
	if executor == nil {
		executor = commandExecutor{}
	}
	return &FallbackToolStrategy{binaries: binaries, exec: executor, timeout: timeout}
}

func (s *FallbackToolStrategy) Name() string { return "fallback-tool" }

func (s *FallbackToolStrategy) Extract(ctx context.Context, container, internalPath, destRoot string) error {
	var lastErr error
	for _, binary := range s.binaries {
		if strings.TrimSpace(binary) == "" {
			continue
		}
		if _, err := exec.LookPath(binary); err != nil {
			lastErr = err
			continue
		}
		runCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		args := []string{"x", container, "-o" + destRoot, "-y", internalPath}
		if err := s.exec.Run(runCtx, binary, args, nil); err != nil {
			lastErr = err
			continue
		}
		if err := verifyExtracted(destRoot, internalPath); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no fallback binary available")
	}
	return services.Wrap(services.ErrExternalTool, "trash", "extract", "fallback tools", lastErr)
}

// verifyExtracted confirms the strategy left the entry where the trash layout
// expects it.
func verifyExtracted(destRoot, internalPath string) error {
	dest := filepath.Join(destRoot, filepath.FromSlash(internalPath))
	info, err := os.Stat(dest)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "trash", "extract",
			fmt.Sprintf("expected %s after extraction", dest), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrExternalTool, "trash", "extract",
			fmt.Sprintf("%s is a directory", dest), nil)
	}
	return nil
}
