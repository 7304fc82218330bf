package core

import (
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
			name: "nil error returns empty",
		},
		{
			name:        "missing column sentinel",
			err:         fmt.Errorf("%w: remark (accepted: 发货备注)", ErrMissingColumn),
			wantCode:    "VAL004",
			wantMessage: "Required column is missing from CSV",
		},
		{
			name:        "too many batches sentinel",
			err:         fmt.Errorf("convert: %w", ErrTooManyBatches),
			wantCode:    "BAT001",
			wantMessage: "System is busy converting other files",
		},
		{
			name:        "batch not found sentinel",
			err:         ErrBatchNotFound,
			wantCode:    "BAT002",
			wantMessage: "Batch not found",
		},
		{
			name:        "empty file sentinel",
			err:         ErrEmptyFile,
			wantCode:    "FILE005",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "deadline before generic timeout",
			err:         errors.New("context deadline exceeded (timeout)"),
			wantCode:    "BAT004",
			wantMessage: "Request timed out",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "invalid json body",
			err:         fmt.Errorf("invalid json body: %w", errors.New("unexpected EOF")),
			wantCode:    "VAL001",
			wantMessage: "Request body is not valid JSON",
		},
		{
			name:        "http body limit",
			err:         errors.New("http: request body too large"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum upload size",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("RATE LIMIT exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
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
	result := FormatUserError(ErrBatchNotFound)

	expected := "Batch not found (Code: BAT002). The result may have expired. Please convert the file again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"known error", ErrTooManyBatches, true},
		{"unknown error", errors.New("random internal error xyz"), false},
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
		techErr := fmt.Errorf("read remarks: %w", ErrMissingColumn)
		userErr := NewUserError(techErr)

		if userErr.Error() != "Required column is missing from CSV" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if userErr.User.Code != "VAL004" {
			t.Errorf("Code = %q, want VAL004", userErr.User.Code)
		}
		if !errors.Is(userErr, ErrMissingColumn) {
			t.Error("Unwrap() should expose the sentinel")
		}
	})
}
