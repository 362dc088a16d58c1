package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	err := Wrap(stdErrors.New("boom"), "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}
	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}
	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("trip service: load: %w", ErrNotFound.WithMessage("trip not found"))

	if !stdErrors.Is(wrapped, ErrNotFound) {
		t.Fatal("expected wrapped copy to match ErrNotFound")
	}
	if stdErrors.Is(wrapped, ErrForbidden) {
		t.Fatal("did not expect match against ErrForbidden")
	}
}

func TestFromError(t *testing.T) {
	if out := FromError(ErrNotFound); out != ErrNotFound {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	out := FromError(stdErrors.New("raw"))
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("tripId is required")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "tripId is required" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
