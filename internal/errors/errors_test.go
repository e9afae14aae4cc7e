package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := ErrPhaseNotReady("Design", "phase Plan is not completed")

	if err.Code != CodePhaseNotReady {
		t.Errorf("Code = %s, want %s", err.Code, CodePhaseNotReady)
	}

	msg := err.Error()
	if msg != "phase Design is not ready: phase Plan is not completed" {
		t.Errorf("Error() = %q", msg)
	}
}

func TestErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")
	err := ErrStateCorrupt(".vibe/state.json", cause)

	if !errors.Is(err, ErrStateCorrupt("", nil)) {
		t.Error("errors.Is should match by code")
	}

	if errors.Unwrap(err) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestTransientClassification(t *testing.T) {
	tests := []struct {
		err       error
		transient bool
	}{
		{ErrProviderRateLimit("anthropic"), true},
		{ErrProviderTimeout("openai", "60s"), true},
		{ErrProviderAuth("google", "GOOGLE_API_KEY"), false},
		{ErrProviderInvalidRequest("anthropic", "unknown model"), false},
		{ErrConfigMissing("project_name"), false},
		{fmt.Errorf("plain error"), false},
	}

	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.transient {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.transient)
		}
	}
}

func TestAsVibeErrorUnwrapsChain(t *testing.T) {
	inner := ErrProviderRateLimit("anthropic")
	wrapped := fmt.Errorf("generate: %w", inner)

	ve := AsVibeError(wrapped)
	if ve == nil {
		t.Fatal("AsVibeError returned nil for wrapped VibeError")
	}
	if ve.Code != CodeProviderRateLimit {
		t.Errorf("Code = %s, want %s", ve.Code, CodeProviderRateLimit)
	}

	if AsVibeError(fmt.Errorf("plain")) != nil {
		t.Error("AsVibeError should return nil for non-VibeError")
	}
}

func TestUserMessage(t *testing.T) {
	err := ErrConcurrentAccess("alice@laptop", 4242)
	msg := err.UserMessage()

	for _, want := range []string{"Error:", "Why:", "alice@laptop", "Fix:"} {
		if !strings.Contains(msg, want) {
			t.Errorf("UserMessage missing %q:\n%s", want, msg)
		}
	}
}
