package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "postgres duplicate key",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
		{
			name:        "mongo duplicate key",
			err:         errors.New("write exception: E11000 duplicate key error collection"),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "timeout wins over deadline",
			err:         errors.New("context deadline exceeded (timeout)"),
			wantCode:    "DB006",
			wantMessage: "Operation timed out",
		},
		{
			name:        "missing rejection reason",
			err:         &ValidationError{Field: "reason", Message: "is required"},
			wantCode:    "VAL001",
			wantMessage: "A rejection reason is required",
		},
		{
			name:        "generic validation",
			err:         &ValidationError{Field: "from", Message: "must be before to"},
			wantCode:    "VAL005",
			wantMessage: "The request could not be processed",
		},
		{
			name:        "wrapped user not found",
			err:         fmt.Errorf("approve user: %w", NewNotFound("user", "u1")),
			wantCode:    "NF001",
			wantMessage: "User not found",
		},
		{
			name:        "submission not found",
			err:         NewNotFound("submission", "s1"),
			wantCode:    "NF003",
			wantMessage: "Submission not found",
		},
		{
			name:        "export busy",
			err:         ErrTooManyExports,
			wantCode:    "EXP001",
			wantMessage: "System is busy processing other exports",
		},
		{
			name:        "wrapped cancellation",
			err:         fmt.Errorf("list users: %w", context.Canceled),
			wantCode:    "REQ001",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "unknown resource falls back to text",
			err:         NewNotFound("activity", "a1"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "rate limit",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value violates"),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(NewNotFound("template", "t1"))

	expected := "Template not found (Code: NF002). Refresh the list"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", errors.New("duplicate key"), true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := NewNotFound("user", "u9")
		userErr := NewUserError(techErr)

		if userErr.Error() != "User not found" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrNotFound) {
			t.Error("Unwrap() should expose ErrNotFound")
		}
	})
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(fmt.Errorf("reject: %w", &ValidationError{Field: "reason", Message: "is required"})) {
		t.Error("IsValidation() = false for wrapped ValidationError")
	}
	if IsValidation(errors.New("validation failed")) {
		t.Error("IsValidation() = true for plain error")
	}
}
