package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true)

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_WrappedCodeLookup(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrAgentNotFound, "agent booking not found")
	wrapped := fmt.Errorf("handoff: %w", inner)

	if !IsErrorCode(wrapped, ErrAgentNotFound) {
		t.Fatalf("expected wrapped error to carry %s", ErrAgentNotFound)
	}
	if IsErrorCode(errors.New("plain"), ErrAgentNotFound) {
		t.Fatalf("plain error must not carry a code")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain error must not be retryable")
	}
}
