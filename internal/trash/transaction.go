package trash

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dupecull/internal/config"
	"dupecull/internal/fileutil"
	"dupecull/internal/services"
)

// Entry names one archive member scheduled for removal together with the
// pruning reason, which becomes a trash subdirectory.
type Entry struct {
	InternalPath string
	Reason       string
}

// Options control backup behavior around removals.
type Options struct {
	// BackupEnabled gates every backup step. Disabling it removes without
	// any safety copy.
	BackupEnabled bool
	// ForceDelete lets the transaction proceed past backup failures.
	ForceDelete bool
	// MaxContainerBackups caps whole-container sibling copies; zero disables
	// them.
	MaxContainerBackups int
	// TrashFolderName is appended to the container stem to form the trash
	// directory name.
	TrashFolderName string
	// ToolTimeout bounds each external tool invocation.
	ToolTimeout time.Duration
}

// Transaction executes backup-then-delete removals. Strategies are tried in
// order for each backup; the commit step always runs the configured 7z
// binary.
type Transaction struct {
	strategies []Strategy
	exec       Executor
	binary     string
	opts       Options
	logger     *slog.Logger
}

// NewTransaction wires a transaction from explicit parts. Most callers use
// FromConfig.
func NewTransaction(strategies []Strategy, executor Executor, binary string, opts Options, logger *slog.Logger) *Transaction {
	if executor == nil {
		executor = commandExecutor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TrashFolderName == "" {
		opts.TrashFolderName = "trash"
	}
	return &Transaction{
		strategies: strategies,
		exec:       executor,
		binary:     binary,
		opts:       opts,
		logger:     logger,
	}
}

// FromConfig builds the standard strategy chain: configured 7z binary, the
// builtin zip reader, then fallback binaries.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Transaction {
	executor := commandExecutor{}
	timeout := time.Duration(cfg.Backup.ToolTimeout) * time.Second
	strategies := []Strategy{
		NewSevenZipStrategy(cfg.Backup.SevenZipBinary, executor, timeout),
		BuiltinZipStrategy{},
		NewFallbackToolStrategy(cfg.Backup.FallbackBinaries, executor, timeout),
	}
	return NewTransaction(strategies, executor, cfg.Backup.SevenZipBinary, Options{
		BackupEnabled:       cfg.Backup.Enabled,
		ForceDelete:         cfg.Backup.ForceDelete,
		MaxContainerBackups: cfg.Backup.MaxContainerBackups,
		TrashFolderName:     cfg.Paths.TrashFolderName,
		ToolTimeout:         timeout,
	}, logger)
}

// Remove backs up and then deletes the named entries from container. Backup
// failures abort the transaction unless ForceDelete is set; a delete failure
// is always terminal. Cancellation is honored between entries but never
// during the commit.
func (t *Transaction) Remove(ctx context.Context, container string, entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "nothing to remove", nil
	}
	info, err := os.Stat(container)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "trash", "remove", container, err)
	}

	if t.opts.BackupEnabled {
		if err := t.checkFreeSpace(container, info.Size()); err != nil {
			if !t.opts.ForceDelete {
				return "", err
			}
			t.logger.Warn("continuing without backup", "container", container, "error", err)
		} else {
			for _, entry := range entries {
				if err := ctx.Err(); err != nil {
					return "", err
				}
				if err := t.backupEntry(ctx, container, entry); err != nil {
					if !t.opts.ForceDelete {
						return "", err
					}
					t.logger.Warn("entry backup failed, forced removal continues",
						"container", container, "entry", entry.InternalPath, "error", err)
				}
			}
			if err := t.backupContainer(container); err != nil {
				if !t.opts.ForceDelete {
					return "", err
				}
				t.logger.Warn("container backup failed, forced removal continues",
					"container", container, "error", err)
			}
		}
	}

	if err := t.commit(ctx, container, entries); err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %d entries from %s", len(entries), filepath.Base(container)), nil
}

// RemoveFile trashes a loose file: the backup copy lands in the sibling trash
// directory under the reason, then the original is deleted.
func (t *Transaction) RemoveFile(ctx context.Context, path, reason string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "trash", "remove file", path, err)
	}

	if t.opts.BackupEnabled {
		backupErr := t.backupLooseFile(path, reason, info.Size())
		if backupErr != nil {
			if !t.opts.ForceDelete {
				return "", backupErr
			}
			t.logger.Warn("file backup failed, forced removal continues", "path", path, "error", backupErr)
		}
	}

	if err := os.Remove(path); err != nil {
		return "", services.Wrap(services.ErrTransient, "trash", "remove file", path, err)
	}
	return fmt.Sprintf("removed %s", filepath.Base(path)), nil
}

// TrashDir returns the sibling trash directory for a container or loose file.
func (t *Transaction) TrashDir(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(filepath.Dir(path), stem+"."+t.opts.TrashFolderName)
}

func (t *Transaction) checkFreeSpace(container string, need int64) error {
	free, err := freeBytes(filepath.Dir(container))
	if err != nil {
		return services.Wrap(services.ErrTransient, "trash", "free space check", container, err)
	}
	if free < uint64(need) {
		return services.Wrap(services.ErrValidation, "trash", "free space check",
			fmt.Sprintf("%d bytes free, need %d", free, need), nil)
	}
	return nil
}

func (t *Transaction) backupEntry(ctx context.Context, container string, entry Entry) error {
	reason := entry.Reason
	if reason == "" {
		reason = "unspecified"
	}
	destRoot := filepath.Join(t.TrashDir(container), reason)
	dest := filepath.Join(destRoot, filepath.FromSlash(entry.InternalPath))
	if _, err := os.Stat(dest); err == nil {
		return services.Wrap(services.ErrValidation, "trash", "backup entry",
			fmt.Sprintf("trash entry %s already exists", dest), nil)
	}
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "trash", "backup entry", destRoot, err)
	}

	var lastErr error
	for _, strategy := range t.strategies {
		err := strategy.Extract(ctx, container, entry.InternalPath, destRoot)
		if err == nil {
			t.logger.Debug("entry backed up",
				"container", container, "entry", entry.InternalPath, "strategy", strategy.Name())
			return nil
		}
		lastErr = err
		t.logger.Debug("extraction strategy failed",
			"strategy", strategy.Name(), "entry", entry.InternalPath, "error", err)
	}
	return services.Wrap(services.ErrExternalTool, "trash", "backup entry", entry.InternalPath, lastErr)
}

func (t *Transaction) backupContainer(container string) error {
	if t.opts.MaxContainerBackups <= 0 {
		return nil
	}
	dest, err := fileutil.NextBackupPath(container, t.opts.MaxContainerBackups)
	if err != nil {
		return services.Wrap(services.ErrValidation, "trash", "container backup", container, err)
	}
	if err := fileutil.CopyFileVerified(container, dest); err != nil {
		return services.Wrap(services.ErrTransient, "trash", "container backup", container, err)
	}
	t.logger.Debug("container backed up", "container", container, "backup", dest)
	return nil
}

func (t *Transaction) backupLooseFile(path, reason string, size int64) error {
	if err := t.checkFreeSpace(path, size); err != nil {
		return err
	}
	if reason == "" {
		reason = "unspecified"
	}
	dest := filepath.Join(t.TrashDir(path), reason, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		return services.Wrap(services.ErrValidation, "trash", "backup file",
			fmt.Sprintf("trash entry %s already exists", dest), nil)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "trash", "backup file", dest, err)
	}
	if err := fileutil.CopyFileVerified(path, dest); err != nil {
		return services.Wrap(services.ErrTransient, "trash", "backup file", path, err)
	}
	return nil
}

// commit deletes the entries from the container through the configured 7z
// binary using a manifest file. The manifest is removed regardless of the
// outcome, and an in-flight delete is never cancelled.
func (t *Transaction) commit(ctx context.Context, container string, entries []Entry) error {
	if strings.TrimSpace(t.binary) == "" {
		return services.Wrap(services.ErrConfiguration, "trash", "commit", "no 7z binary configured", nil)
	}
	manifest := container + ".delete.txt"
	var lines strings.Builder
	for _, entry := range entries {
		lines.WriteString(entry.InternalPath)
		lines.WriteString("\n")
	}
	if err := os.WriteFile(manifest, []byte(lines.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "trash", "commit", "write manifest", err)
	}
	defer func() {
		if err := os.Remove(manifest); err != nil {
			t.logger.Warn("manifest cleanup failed", "manifest", manifest, "error", err)
		}
	}()

	commitCtx := context.WithoutCancel(ctx)
	if t.opts.ToolTimeout > 0 {
		var cancel context.CancelFunc
		commitCtx, cancel = context.WithTimeout(commitCtx, t.opts.ToolTimeout)
		defer cancel()
	}
	args := []string{"d", container, "@" + manifest, "-y"}
	if err := t.exec.Run(commitCtx, t.binary, args, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, "trash", "commit", container, err)
	}
	return nil
}
