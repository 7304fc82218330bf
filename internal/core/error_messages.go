package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// # Validation Errors (VAL)
//
//	VAL001 - Invalid request body: an API body is not valid JSON
//	         Patterns: "invalid json"
//	VAL004 - Missing column: a remark or handle column is absent
//	         Patterns: "missing required column"
//	VAL007 - Invalid profile: the label profile failed validation
//	         Patterns: "invalid profile"
//
// # File Errors (FILE)
//
//	FILE001 - File too large         Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV            Patterns: "invalid csv"
//	FILE004 - No file                Patterns: "no file provided"
//	FILE005 - Empty file             Patterns: "empty file"
//
// # Batch Errors (BAT)
//
//	BAT001 - System busy             Patterns: "too many batches"
//	BAT002 - Batch expired           Patterns: "batch not found"
//	BAT003 - Request cancelled       Patterns: "context canceled"
//	BAT004 - Request timed out       Patterns: "context deadline exceeded"
//
// # Database Errors (DB)
//
//	DB004 - Connection refused       Patterns: "connection refused"
//	DB005 - Connection reset         Patterns: "connection reset"
//	DB006 - Timeout                  Patterns: "timeout"
//	DB008 - History disabled         Patterns: "history store not configured"
//
// # Rate Limiting (RATE)
//
//	RATE001 - Too many requests      Patterns: "rate limit"
//
// ERR000 is the fallback when nothing matches; check the logs for the
// technical error. Patterns are matched case-insensitively with
// strings.Contains and the first match wins, so specific patterns come first.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "invalid json",
		msg: UserMessage{
			Message: "Request body is not valid JSON",
			Action:  `Send a JSON object such as {"text": "...", "handle": "..."}`,
			Code:    "VAL001",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from CSV",
			Action:  "Make sure the file has a remark column (发货备注) and a Handle column",
			Code:    "VAL004",
		},
	},
	{
		pattern: "invalid profile",
		msg: UserMessage{
			Message: "Label profile is invalid",
			Action:  "Fix the listed profile fields and reload",
			Code:    "VAL007",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Export the sheet as comma-separated values and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header and data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "too many batches",
		msg: UserMessage{
			Message: "System is busy converting other files",
			Action:  "Please wait a moment and try again",
			Code:    "BAT001",
		},
	},
	{
		pattern: "batch not found",
		msg: UserMessage{
			Message: "Batch not found",
			Action:  "The result may have expired. Please convert the file again",
			Code:    "BAT002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "BAT003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "BAT004",
		},
	},
	{
		pattern: "history store not configured",
		msg: UserMessage{
			Message: "Batch history is not enabled",
			Action:  "Set DATABASE_URL to keep batch history",
			Code:    "DB008",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
