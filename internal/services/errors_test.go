package services_test

import (
	"errors"
	"strings"
	"testing"

	"dupecull/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "trash", "extract", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"trash", "extract", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "grouper", "distance", "oracle failed", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestRecoverable(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "store", "put", "db busy", errors.New("locked"))
	if !services.Recoverable(transient) {
		t.Fatal("transient errors should be recoverable")
	}
	validation := services.Wrap(services.ErrValidation, "identity", "canonicalize", "bad protocol", nil)
	if services.Recoverable(validation) {
		t.Fatal("validation errors should abort")
	}
}
