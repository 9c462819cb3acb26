package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"tunefetch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extract", "ffmpeg", "failed", base)
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
	for _, fragment := range []string{"extract", "ffmpeg", "failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "tag", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestDetails(t *testing.T) {
	cause := errors.New("exec: not found")
	err := fmt.Errorf("outer: %w", services.Wrap(services.ErrSpawnFailed, "normalize", "mp3gain", "tool missing", cause))

	details := services.Details(err)
	if details.Kind != "spawn_failed" {
		t.Fatalf("unexpected kind %q", details.Kind)
	}
	if details.Stage != "normalize" || details.Operation != "mp3gain" {
		t.Fatalf("unexpected context %+v", details)
	}
	if details.Message != "tool missing" {
		t.Fatalf("unexpected message %q", details.Message)
	}
	if !errors.Is(details.Cause, cause) {
		t.Fatalf("expected cause to be preserved, got %v", details.Cause)
	}
}

func TestDetailsForPlainError(t *testing.T) {
	details := services.Details(errors.New("  plain  "))
	if details.Kind != "unknown" {
		t.Fatalf("expected unknown kind, got %q", details.Kind)
	}
	if details.Message != "plain" {
		t.Fatalf("expected trimmed message, got %q", details.Message)
	}
	if got := services.Details(nil); got.Kind != "" {
		t.Fatalf("expected empty details for nil, got %+v", got)
	}
}

func TestKindPrefersCancellation(t *testing.T) {
	err := errors.Join(services.ErrNonZeroExit, services.ErrCancelled)
	if kind := services.Kind(err); kind != "cancelled" {
		t.Fatalf("expected cancelled to win, got %q", kind)
	}
}
