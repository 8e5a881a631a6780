package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. When users encounter errors, they can quote the
// code to support staff for faster diagnosis.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV: File is not valid comma or tab separated text
//	          Patterns: "invalid csv"
//
//	FILE003 - Unsupported format: Extension is not .csv, .tsv, .xls or .xlsx
//	          Patterns: "unsupported file format"
//
//	FILE004 - No file: No file was selected
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file has no header row
//	          Patterns: "empty file"
//
//	FILE006 - Invalid spreadsheet: Workbook could not be read
//	          Patterns: "invalid spreadsheet"
//
// # Generation Errors (GEN001-GEN099)
//
//	GEN001 - Unsupported output type: output_file_type is not csv, tsv, xls or xlsx
//	         Patterns: "unsupported output file type"
//
//	GEN002 - Invalid row count: num_rows is not a whole number in range
//	         Patterns: "invalid row count"
//
//	GEN003 - Invalid fill strategy: fill_strategy is not synthetic or observed
//	         Patterns: "invalid fill strategy"
//
//	GEN004 - Model failure: the model could not be trained on the data
//	         Patterns: "fit model"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many generations in progress
//	         Patterns: "too many concurrent generations"
//
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the application logs, keyed by
// request ID, for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Upload a smaller file or split it into parts",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV or TSV",
			Action:  "Ensure the file is comma or tab separated with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "Unsupported file format",
			Action:  "Upload CSV, Excel (.xls/.xlsx), or TSV",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file uploaded",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with at least a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "invalid spreadsheet",
		msg: UserMessage{
			Message: "The spreadsheet could not be read",
			Action:  "Re-save the workbook in Excel and upload it again",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Generation Errors (GEN001-GEN004)
	// =========================================================================
	{
		pattern: "unsupported output file type",
		msg: UserMessage{
			Message: "Unsupported output file type",
			Action:  "Choose csv, tsv, xls or xlsx",
			Code:    "GEN001",
		},
	},
	{
		pattern: "invalid row count",
		msg: UserMessage{
			Message: "Invalid number of rows",
			Action:  "Enter a whole number of rows within the allowed range",
			Code:    "GEN002",
		},
	},
	{
		pattern: "invalid fill strategy",
		msg: UserMessage{
			Message: "Invalid fill strategy",
			Action:  "Choose synthetic or observed",
			Code:    "GEN003",
		},
	},
	{
		pattern: "fit model",
		msg: UserMessage{
			Message: "The model could not be trained on this file",
			Action:  "Check that the file has data rows and try again",
			Code:    "GEN004",
		},
	},

	// =========================================================================
	// Upload Errors (UPL002-UPL005)
	// =========================================================================
	{
		pattern: "too many concurrent generations",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Request fewer rows or upload a smaller file",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first pattern match, or the ERR000 fallback.
//
// Example:
//
//	err := fmt.Errorf("%w: %q", tabular.ErrUnsupportedOutputFormat, "json")
//	msg := MapError(err)
//	// msg.Code == "GEN001"
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
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
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
