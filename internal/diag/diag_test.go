package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsByCode(t *testing.T) {
	err := Newf(ParseError, "{$a", "unbalanced braces: %d open", 1)
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected errors.Is to match ErrParse")
	}
	if errors.Is(err, ErrTypeMismatch) {
		t.Errorf("did not expect errors.Is to match ErrTypeMismatch")
	}

	wrapped := fmt.Errorf("render: %w", err)
	if !errors.Is(wrapped, ErrParse) {
		t.Errorf("expected wrapped error to match ErrParse")
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ScheduledTargetMissing, "$gold", "target missing", cause)
	want := `SCHEDULED_TARGET_MISSING: target missing (in "$gold"): boom`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected Unwrap to expose the cause")
	}
}

func TestWarnings(t *testing.T) {
	var w Warnings
	w.Add(nil)
	w.Add(New(UnknownIdentifier, "$x", "unknown quality"))
	if len(w) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(w))
	}
	if !w.Has(UnknownIdentifier) || w.Has(TypeMismatch) {
		t.Errorf("unexpected Has results for %v", w)
	}
}
