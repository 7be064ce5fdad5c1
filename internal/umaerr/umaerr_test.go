package umaerr

import (
	"errors"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NotFoundf("/path/to/file", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause")
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := NotFoundf("/a", errors.New("x"))
	b := NotFoundf("/b", errors.New("y"))
	c := CipherOpenf("/c", errors.New("z"))

	if !errors.Is(a, b) {
		t.Errorf("expected two NotFound errors to match via errors.Is")
	}
	if errors.Is(a, c) {
		t.Errorf("expected NotFound and CipherOpen to not match")
	}
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := New(Integrity, "story-42", nil)
	want := "integrity: story-42"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
