package errors

import (
	"fmt"
	"testing"
)

func TestReconcilerErrorBasics(t *testing.T) {
	err := New(CategoryParse, CodeInvalidFormat, "bad row")

	if err.Category != CategoryParse {
		t.Errorf("expected category %s, got %s", CategoryParse, err.Category)
	}
	if err.Code != CodeInvalidFormat {
		t.Errorf("expected code %s, got %s", CodeInvalidFormat, err.Code)
	}
	if err.Error() != "bad row" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	err.WithSuggestion("fix the row")
	expected := "bad row (suggestion: fix the row)"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := Wrap(cause, CategoryStore, CodeStoreUnavailable, "store down")

	if err.Unwrap() != cause {
		t.Error("expected Unwrap to return the cause")
	}
	if Wrap(nil, CategoryStore, CodeStoreUnavailable, "ignored") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryReconciliation, 5},
		{CategoryInternal, 5},
		{CategoryStore, 6},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "x")
		if got := err.GetExitCode(); got != tt.expected {
			t.Errorf("category %s: expected exit code %d, got %d", tt.category, tt.expected, got)
		}
	}
}

func TestReconciliationErrorNoData(t *testing.T) {
	err := ReconciliationError(CodeNoReconcilableData, "merge", nil)

	if !IsCode(err, CodeNoReconcilableData) {
		t.Error("expected CodeNoReconcilableData")
	}
	if err.Context["operation"] != "merge" {
		t.Errorf("expected operation context, got %v", err.Context)
	}
}

func TestStoreErrorSessionNotFound(t *testing.T) {
	err := StoreError(CodeSessionNotFound, "abc-123", nil)

	if err.Category != CategoryStore {
		t.Errorf("expected store category, got %s", err.Category)
	}
	if err.Context["session_id"] != "abc-123" {
		t.Errorf("expected session id in context, got %v", err.Context)
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		New(CategoryParse, CodeInvalidData, "a"),
		New(CategoryParse, CodeInvalidData, "b"),
		New(CategoryStore, CodeSessionExpired, "c"),
	}

	summary := NewErrorSummary(errs)
	if summary.Total != 3 {
		t.Errorf("expected 3 errors, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryParse] != 2 {
		t.Errorf("expected 2 parse errors, got %d", summary.ByCategory[CategoryParse])
	}
	if !summary.HasCategory(CategoryStore) {
		t.Error("expected store category present")
	}
	if summary.GetExitCode() != 6 {
		t.Errorf("expected exit code 6, got %d", summary.GetExitCode())
	}

	empty := NewErrorSummary(nil)
	if empty.GetExitCode() != 0 {
		t.Errorf("expected exit code 0 for empty summary, got %d", empty.GetExitCode())
	}
	if empty.Error() != "no errors" {
		t.Errorf("unexpected message: %s", empty.Error())
	}
}

func TestAsReconcilerError(t *testing.T) {
	inner := New(CategoryValidation, CodeInvalidKey, "bad key")
	wrapped := fmt.Errorf("outer: %w", inner)

	extracted, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("expected to extract ReconcilerError from chain")
	}
	if extracted.Code != CodeInvalidKey {
		t.Errorf("expected CodeInvalidKey, got %s", extracted.Code)
	}

	if _, ok := AsReconcilerError(fmt.Errorf("plain")); ok {
		t.Error("plain error should not extract")
	}
}
