package errors

import (
	"errors"
	"testing"
)

func TestNewInvalidStage(t *testing.T) {
	err := NewInvalidStage(7)
	if err.Code != ErrInvalidStage {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidStage)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Details["stage"] != 7 {
		t.Errorf("Details[stage] = %v, want 7", err.Details["stage"])
	}
}

func TestErrorString(t *testing.T) {
	err := NewInvalidRequest("stage is required")
	want := "INVALID_REQUEST: stage is required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound("user-123")
	if !Is(err, ErrNotFound) {
		t.Error("Is(err, ErrNotFound) = false, want true")
	}
	if Is(err, ErrInternal) {
		t.Error("Is(err, ErrInternal) = true, want false")
	}
	if Is(errors.New("plain"), ErrNotFound) {
		t.Error("Is(plain error) = true, want false")
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}
