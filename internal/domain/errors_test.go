package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDuplicateErrorIs(t *testing.T) {
	err := fmt.Errorf("import: %w", &DuplicateError{Existing: DuplicateItem{ID: 7, Path: "PDFS/a.pdf"}})

	if !errors.Is(err, ErrDuplicate) {
		t.Fatal("wrapped DuplicateError should match ErrDuplicate")
	}
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatal("errors.As should find *DuplicateError")
	}
	if dup.Existing.ID != 7 {
		t.Errorf("expected existing ID 7, got %d", dup.Existing.ID)
	}
}

func TestHelpersWrapSentinels(t *testing.T) {
	testCases := []struct {
		err      error
		sentinel error
	}{
		{NotFound("panel %d", 3), ErrNotFound},
		{Invalid("bad width %d", -1), ErrValidation},
	}

	for _, tc := range testCases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Errorf("%v should wrap %v", tc.err, tc.sentinel)
		}
	}
}
