package hints_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tmerle/syncbak/pkg/hints"
)

func TestNew(t *testing.T) {
	err := hints.New("nothing to do")
	if err.Error() != "nothing to do" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !hints.IsHint(err) {
		t.Error("IsHint() = false for a freshly created hint")
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("skipped step")
	hint := hints.Wrap(base)

	if !hints.IsHint(hint) {
		t.Error("IsHint() = false for a wrapped error")
	}
	if !errors.Is(hint, base) {
		t.Error("wrapped hint lost its underlying error")
	}
	if hints.Wrap(nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestIsHintThroughChain(t *testing.T) {
	hint := hints.New("inner hint")
	wrapped := fmt.Errorf("outer context: %w", hint)

	if !hints.IsHint(wrapped) {
		t.Error("IsHint() = false for a hint buried in a wrap chain")
	}
}

func TestIsHintRejectsOrdinaryErrors(t *testing.T) {
	if hints.IsHint(errors.New("hard failure")) {
		t.Error("IsHint() = true for an ordinary error")
	}
	if hints.IsHint(nil) {
		t.Error("IsHint(nil) = true")
	}
}
