package services_test

import (
	"errors"
	"strings"
	"testing"

	"scribe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "agent", "poll", "failed", base)
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
	for _, fragment := range []string{"agent", "poll", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected default transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestFailureKindMapping(t *testing.T) {
	cases := []struct {
		marker error
		want   string
	}{
		{services.ErrConfiguration, "configuration"},
		{services.ErrValidation, "validation"},
		{services.ErrNotFound, "not_found"},
		{services.ErrTimeout, "timeout"},
		{services.ErrExternalTool, "external_tool"},
		{services.ErrTransient, "transient"},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "llm", "request", "call failed", nil)
		if got := services.FailureKind(err); got != tc.want {
			t.Fatalf("FailureKind(%v) = %q, want %q", tc.marker, got, tc.want)
		}
	}

	if got := services.FailureKind(nil); got != "" {
		t.Fatalf("expected empty kind for nil error, got %q", got)
	}
	if got := services.FailureKind(errors.New("plain")); got != "unknown" {
		t.Fatalf("expected unknown kind for untagged error, got %q", got)
	}
}
