package trash

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dupecull/internal/services"
	"dupecull/internal/testsupport"
)

// fakeExecutor records invocations and simulates 7z behavior: extraction
// writes a placeholder file, deletion rewrites the container without the
// manifest entries.
type fakeExecutor struct {
	calls   [][]string
	failAll bool
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, _ func(string)) error {
	f.calls = append(f.calls, append([]string{binary}, args...))
	if f.failAll {
		return errors.New("tool exploded")
	}
	if len(args) == 0 {
		return errors.New("no arguments")
	}
	switch args[0] {
	case "x":
		// args: x container -oDEST -y internal
		destRoot := strings.TrimPrefix(args[2], "-o")
		dest := filepath.Join(destRoot, filepath.FromSlash(args[4]))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return os.WriteFile(dest, []byte("extracted"), 0o644)
	case "d":
		// Deletion succeeds if the manifest exists.
		manifest := strings.TrimPrefix(args[2], "@")
		if _, err := os.Stat(manifest); err != nil {
			return err
		}
		return nil
	default:
		return errors.New("unexpected subcommand " + args[0])
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		BackupEnabled:       true,
		MaxContainerBackups: 2,
		TrashFolderName:     "trash",
	}
}

func newTestTransaction(exec Executor) *Transaction {
	strategies := []Strategy{NewSevenZipStrategy("7z", exec, 0)}
	return NewTransaction(strategies, exec, "7z", testOptions(), quietLogger())
}

func TestRemoveBacksUpThenDeletes(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "album.zip")
	testsupport.BuildZip(t, container, map[string][]byte{
		"pages/01.jpg": []byte("one"),
		"pages/02.jpg": []byte("two"),
	})

	exec := &fakeExecutor{}
	tx := newTestTransaction(exec)

	msg, err := tx.Remove(context.Background(), container, []Entry{
		{InternalPath: "pages/01.jpg", Reason: "size"},
	})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !strings.Contains(msg, "removed 1 entries") {
		t.Fatalf("unexpected message: %q", msg)
	}

	backup := filepath.Join(dir, "album.trash", "size", "pages", "01.jpg")
	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if _, err := os.Stat(container + ".bak"); err != nil {
		t.Fatalf("container backup missing: %v", err)
	}
	if _, err := os.Stat(container + ".delete.txt"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("manifest should be cleaned up: %v", err)
	}

	last := exec.calls[len(exec.calls)-1]
	if last[1] != "d" || last[2] != container {
		t.Fatalf("expected delete invocation last, got %v", last)
	}
}

func TestRemoveAbortsOnBackupFailure(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "album.zip")
	testsupport.BuildZip(t, container, map[string][]byte{"a.jpg": []byte("a")})

	exec := &fakeExecutor{failAll: true}
	tx := newTestTransaction(exec)

	_, err := tx.Remove(context.Background(), container, []Entry{{InternalPath: "a.jpg", Reason: "size"}})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool failure, got %v", err)
	}
	// Delete must never have run.
	for _, call := range exec.calls {
		if call[1] == "d" {
			t.Fatal("delete ran despite backup failure")
		}
	}
}

func TestRemoveForceDeleteSkipsFailedBackup(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "album.zip")
	testsupport.BuildZip(t, container, map[string][]byte{"a.jpg": []byte("a")})

	// Extraction fails, deletion succeeds.
	exec := &fakeExecutor{}
	strategies := []Strategy{NewSevenZipStrategy("", exec, 0)} // unconfigured binary fails
	opts := testOptions()
	opts.ForceDelete = true
	tx := NewTransaction(strategies, exec, "7z", opts, quietLogger())

	msg, err := tx.Remove(context.Background(), container, []Entry{{InternalPath: "a.jpg", Reason: "size"}})
	if err != nil {
		t.Fatalf("forced remove: %v", err)
	}
	if msg == "" {
		t.Fatal("expected a completion message")
	}
}

func TestRemoveFallsThroughToBuiltinZip(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "album.zip")
	testsupport.BuildZip(t, container, map[string][]byte{"pages/01.jpg": []byte("payload")})

	exec := &fakeExecutor{}
	strategies := []Strategy{
		NewSevenZipStrategy("", exec, 0), // fails: no binary
		BuiltinZipStrategy{},
	}
	tx := NewTransaction(strategies, exec, "7z", testOptions(), quietLogger())

	if _, err := tx.Remove(context.Background(), container, []Entry{
		{InternalPath: "pages/01.jpg", Reason: "dimension"},
	}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	backup := filepath.Join(dir, "album.trash", "dimension", "pages", "01.jpg")
	content, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("builtin backup missing: %v", err)
	}
	if string(content) != "payload" {
		t.Fatalf("backup content corrupted: %q", content)
	}
}

func TestRemoveRejectsExistingTrashEntry(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "album.zip")
	testsupport.BuildZip(t, container, map[string][]byte{"a.jpg": []byte("a")})

	collision := filepath.Join(dir, "album.trash", "size", "a.jpg")
	if err := os.MkdirAll(filepath.Dir(collision), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(collision, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	tx := newTestTransaction(&fakeExecutor{})
	_, err := tx.Remove(context.Background(), container, []Entry{{InternalPath: "a.jpg", Reason: "size"}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("existing trash entry must fail explicitly, got %v", err)
	}
	if got, _ := os.ReadFile(collision); string(got) != "old" {
		t.Fatalf("existing trash entry was overwritten: %q", got)
	}
}

func TestRemoveFreeSpaceShortfall(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "album.zip")
	testsupport.BuildZip(t, container, map[string][]byte{"a.jpg": []byte("a")})

	original := freeBytes
	freeBytes = func(string) (uint64, error) { return 0, nil }
	t.Cleanup(func() { freeBytes = original })

	tx := newTestTransaction(&fakeExecutor{})
	_, err := tx.Remove(context.Background(), container, []Entry{{InternalPath: "a.jpg", Reason: "size"}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected free space failure, got %v", err)
	}
}

func TestRemoveHonorsCancellationBetweenEntries(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "album.zip")
	testsupport.BuildZip(t, container, map[string][]byte{
		"a.jpg": []byte("a"),
		"b.jpg": []byte("b"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tx := newTestTransaction(&fakeExecutor{})
	_, err := tx.Remove(ctx, container, []Entry{
		{InternalPath: "a.jpg", Reason: "size"},
		{InternalPath: "b.jpg", Reason: "size"},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestRemoveContainerBackupCap(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "album.zip")
	testsupport.BuildZip(t, container, map[string][]byte{"a.jpg": []byte("a")})

	// Occupy both backup slots.
	for _, suffix := range []string{".bak", ".bak1"} {
		if err := os.WriteFile(container+suffix, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tx := newTestTransaction(&fakeExecutor{})
	_, err := tx.Remove(context.Background(), container, []Entry{{InternalPath: "a.jpg", Reason: "size"}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("exhausted backup slots must abort, got %v", err)
	}
}

func TestRemoveFile(t *testing.T) {
	dir := t.TempDir()
	loose := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(loose, []byte("image"), 0o644); err != nil {
		t.Fatal(err)
	}

	tx := newTestTransaction(&fakeExecutor{})
	if _, err := tx.RemoveFile(context.Background(), loose, "quality"); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	if _, err := os.Stat(loose); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("original should be gone: %v", err)
	}
	backup := filepath.Join(dir, "photo.trash", "quality", "photo.jpg")
	content, err := os.ReadFile(backup)
	if err != nil || string(content) != "image" {
		t.Fatalf("backup missing or corrupted: %q err=%v", content, err)
	}
}

func TestRemoveEmptyEntryList(t *testing.T) {
	tx := newTestTransaction(&fakeExecutor{})
	msg, err := tx.Remove(context.Background(), "/nonexistent.zip", nil)
	if err != nil || msg == "" {
		t.Fatalf("empty entry list must be a no-op: msg=%q err=%v", msg, err)
	}
}
