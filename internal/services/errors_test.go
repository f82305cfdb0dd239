package services_test

import (
	"errors"
	"strings"
	"testing"

	"anitrack/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "session", "launch", "failed", base)
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
	for _, fragment := range []string{"session", "launch", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	storeErr := services.Wrap(services.ErrStore, "tracking", "upsert", "", errors.New("disk"))
	if kind := services.Kind(storeErr); kind != "store" {
		t.Fatalf("expected store kind, got %q", kind)
	}
	metaErr := services.Wrap(services.ErrMetadataUnavailable, "metadata", "episodes", "", nil)
	if kind := services.Kind(metaErr); kind != "metadata" {
		t.Fatalf("expected metadata kind, got %q", kind)
	}
	if !services.Advisory(metaErr) || services.Advisory(storeErr) {
		t.Fatal("only metadata failures are advisory")
	}
	if kind := services.Kind(nil); kind != "" {
		t.Fatalf("expected empty kind for nil, got %q", kind)
	}
	if kind := services.Kind(errors.New("x")); kind != "transient" {
		t.Fatalf("expected transient fallback, got %q", kind)
	}
}
