package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestWrapKeepsCode(t *testing.T) {
	base := NotFound("Session not found or expired")
	wrapped := Wrap(base, "info lookup failed")

	if got := GetCode(wrapped); got != CodeNotFound {
		t.Errorf("Expected code %s, got %s", CodeNotFound, got)
	}
	if !stderrors.Is(wrapped, base) {
		t.Error("Expected wrapped error to unwrap to base")
	}
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("boom"), "Error splitting dataset")

	if got := GetCode(wrapped); got != CodeInternalError {
		t.Errorf("Expected code %s, got %s", CodeInternalError, got)
	}
	if wrapped.Error() != "Error splitting dataset: boom" {
		t.Errorf("Unexpected message: %q", wrapped.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Expected nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Expected nil")
	}
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", ParseError("Error processing dataset", fmt.Errorf("line 3")))

	if !HasCode(err, CodeParseError) {
		t.Errorf("Expected PARSE_ERROR, got %s", GetCode(err))
	}
	if GetCode(fmt.Errorf("plain")) != "UNKNOWN" {
		t.Error("Expected UNKNOWN for plain errors")
	}
}
