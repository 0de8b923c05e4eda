package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	if KindOf(New(KindConflict, "taken")) != KindConflict {
		t.Error("direct classification lost")
	}

	wrapped := fmt.Errorf("outer context: %w", New(KindNotFound, "missing"))
	if KindOf(wrapped) != KindNotFound {
		t.Error("classification lost through fmt.Errorf wrapping")
	}

	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("unclassified error should report unknown")
	}
	if KindOf(nil) != KindUnknown {
		t.Error("nil error should report unknown")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindStorageUnavailable, cause, "pin failed")

	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if !IsKind(err, KindStorageUnavailable) {
		t.Error("kind lost on wrap")
	}
}

func TestIsKindWalksChain(t *testing.T) {
	cause := New(KindReverted, "sold out")
	outer := Wrap(KindPartialFailure, cause, "confirmed but not recorded")

	if !IsKind(outer, KindPartialFailure) {
		t.Error("outer kind not matched")
	}
	if !IsKind(outer, KindReverted) {
		t.Error("wrapped cause kind not matched")
	}
	if IsKind(outer, KindNotFound) {
		t.Error("absent kind matched")
	}
	if KindOf(outer) != KindPartialFailure {
		t.Error("KindOf should report the outermost classification")
	}
}

func TestKindString(t *testing.T) {
	pairs := map[Kind]string{
		KindInvalidArgument: "invalid_argument",
		KindPartialFailure:  "partial_failure",
		KindReverted:        "reverted",
		KindUnknown:         "unknown",
	}
	for kind, want := range pairs {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
