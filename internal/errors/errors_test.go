package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(CodeUnavailable, "exchange request failed", errors.New("connection refused"))
	if got := err.Error(); got != "exchange request failed: connection refused" {
		t.Fatalf("unexpected message: %s", got)
	}
	if New(CodeUsage, "Missing token_id").Error() != "Missing token_id" {
		t.Fatal("expected bare message without cause")
	}
}

func TestExitCodeAndTypeNameThroughWrapping(t *testing.T) {
	base := New(CodeAuth, "authentication rejected")
	wrapped := fmt.Errorf("build session: %w", base)
	if got := ExitCode(wrapped); got != int(CodeAuth) {
		t.Fatalf("expected exit code %d, got %d", CodeAuth, got)
	}
	if got := TypeName(wrapped); got != "auth_error" {
		t.Fatalf("unexpected type name: %s", got)
	}
	if got := ExitCode(errors.New("plain")); got != int(CodeInternal) {
		t.Fatalf("expected internal exit code, got %d", got)
	}
	if ExitCode(nil) != 0 || TypeName(nil) != "" {
		t.Fatal("expected zero values for nil error")
	}
}
