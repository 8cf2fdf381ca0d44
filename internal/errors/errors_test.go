package errors

import (
	"fmt"
	"io"
	"testing"

	stderrors "errors"
)

func TestKifuError_Error(t *testing.T) {
	err := &KifuError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "player not found: alice",
	}

	expected := "NOT_FOUND: player not found: alice"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("at least one name is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "at least one name is required" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("alice")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["name"] != "alice" {
		t.Errorf("Details[name] = %v, want %q", err.Details["name"], "alice")
	}
}

func TestNewFetchFailed(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		err := NewFetchFailed("http://x/api", 503, nil)
		if err.Code != ErrFetchFailed {
			t.Errorf("Code = %q, want %q", err.Code, ErrFetchFailed)
		}
		if err.Status != 503 {
			t.Errorf("Status = %d, want 503", err.Status)
		}
		if err.Details["status"] != 503 {
			t.Errorf("Details[status] = %v, want 503", err.Details["status"])
		}
		if err.Message != "fetch http://x/api: status 503" {
			t.Errorf("Message = %q", err.Message)
		}
	})

	t.Run("transport error", func(t *testing.T) {
		err := NewFetchFailed("http://x/api", 0, io.ErrUnexpectedEOF)
		if err.Status != 0 {
			t.Errorf("Status = %d, want 0", err.Status)
		}
		if !stderrors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("expected wrapped cause to be reachable via errors.Is")
		}
	})
}

func TestNewStoreUnavailable(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewStoreUnavailable(cause)

	if err.Code != ErrStoreUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrStoreUnavailable)
	}
	if err.Message != "store unavailable: permission denied" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))
		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Message != "database connection failed" {
			t.Errorf("Message = %q", err.Message)
		}
	})

	t.Run("nil error", func(t *testing.T) {
		err := NewInternal(nil)
		if err.Message != "internal error" {
			t.Errorf("Message = %q, want %q", err.Message, "internal error")
		}
	})
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     ErrorCode
		expected bool
	}{
		{"matching code", NewNotFound("bob"), ErrNotFound, true},
		{"different code", NewNotFound("bob"), ErrFetchFailed, false},
		{"wrapped", fmt.Errorf("resolve bob: %w", NewNotFound("bob")), ErrNotFound, true},
		{"plain error", fmt.Errorf("boom"), ErrInternal, false},
		{"nil error", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(NewFetchFailed("u", 429, nil)); got != 429 {
		t.Errorf("StatusOf() = %d, want 429", got)
	}
	if got := StatusOf(fmt.Errorf("plain")); got != 0 {
		t.Errorf("StatusOf(plain) = %d, want 0", got)
	}
}
