package dErrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestHasCode(t *testing.T) {
	base := New(CodeNotFound, "missing")
	wrapped := Wrap(base, CodeInternal, "lookup failed")

	if !HasCode(base, CodeNotFound) {
		t.Fatalf("expected base error to carry its code")
	}
	if !HasCode(wrapped, CodeInternal) {
		t.Fatalf("expected outer code on wrapped error")
	}
	if !HasCode(wrapped, CodeNotFound) {
		t.Fatalf("expected inner code to survive wrapping")
	}
	if HasCode(wrapped, CodeConflict) {
		t.Fatalf("did not expect an absent code to match")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CodeInternal, "nothing") != nil {
		t.Fatalf("expected wrapping nil to stay nil")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(CodeValidation, "bad")); got != CodeValidation {
		t.Fatalf("expected validation code, got %q", got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != CodeInternal {
		t.Fatalf("expected internal for uncoded errors, got %q", got)
	}
}

func TestUnwrapChain(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(cause, CodeUnavailable, "store unreachable")

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the cause through the wrapper")
	}
}
