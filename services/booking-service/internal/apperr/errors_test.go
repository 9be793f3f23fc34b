package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(KindSlotUnavailable, "slot taken at %s", "10:00")
	wrapped := fmt.Errorf("book: %w", base)

	if KindOf(wrapped) != KindSlotUnavailable {
		t.Fatalf("expected slot_unavailable, got %q", KindOf(wrapped))
	}
	if !Is(wrapped, KindSlotUnavailable) {
		t.Fatal("expected Is to match")
	}
	if Is(wrapped, KindNotFound) {
		t.Fatal("unexpected match for not_found")
	}
}

func TestPlainErrorsHaveNoKind(t *testing.T) {
	if KindOf(errors.New("boom")) != "" {
		t.Fatal("expected empty kind")
	}
	if Is(nil, KindNotFound) {
		t.Fatal("nil must not match")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("bad digit")
	err := Wrap(KindParse, cause, "cannot read %q", "2x")
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Error() != `cannot read "2x": bad digit` {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
