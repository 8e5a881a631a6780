package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/datapoint/internal/model"
	"github.com/JonMunkholm/datapoint/internal/tabular"
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
			name:        "file too large maps correctly",
			err:         fmt.Errorf("%w: limit is 50MB", ErrFileTooLarge),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum upload size",
		},
		{
			name:        "invalid csv maps correctly",
			err:         fmt.Errorf("%w: record on line 3: wrong number of fields", tabular.ErrInvalidCSV),
			wantCode:    "FILE002",
			wantMessage: "File is not a valid CSV or TSV",
		},
		{
			name:        "unsupported input maps correctly",
			err:         fmt.Errorf("%w: %q", tabular.ErrUnsupportedInputFormat, "data.json"),
			wantCode:    "FILE003",
			wantMessage: "Unsupported file format",
		},
		{
			name:        "missing file maps correctly",
			err:         ErrNoFile,
			wantCode:    "FILE004",
			wantMessage: "No file uploaded",
		},
		{
			name:        "empty file maps correctly",
			err:         tabular.ErrEmptyFile,
			wantCode:    "FILE005",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "broken workbook maps correctly",
			err:         fmt.Errorf("%w: zip: not a valid zip file", tabular.ErrInvalidSpreadsheet),
			wantCode:    "FILE006",
			wantMessage: "The spreadsheet could not be read",
		},
		{
			name:        "unsupported output maps correctly",
			err:         fmt.Errorf("%w: %q", tabular.ErrUnsupportedOutputFormat, "json"),
			wantCode:    "GEN001",
			wantMessage: "Unsupported output file type",
		},
		{
			name:        "row count maps correctly",
			err:         fmt.Errorf("%w: 0", ErrInvalidRowCount),
			wantCode:    "GEN002",
			wantMessage: "Invalid number of rows",
		},
		{
			name:        "fill strategy maps correctly",
			err:         fmt.Errorf("%w: %q", ErrInvalidStrategy, "magic"),
			wantCode:    "GEN003",
			wantMessage: "Invalid fill strategy",
		},
		{
			name:        "fit failure maps correctly",
			err:         fmt.Errorf("fit model ctgan: %w", model.ErrNoRows),
			wantCode:    "GEN004",
			wantMessage: "The model could not be trained on this file",
		},
		{
			name:        "busy maps correctly",
			err:         ErrTooManyGenerations,
			wantCode:    "UPL002",
			wantMessage: "System is busy processing other files",
		},
		{
			name:        "cancel maps correctly",
			err:         context.Canceled,
			wantCode:    "UPL004",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "timeout maps correctly",
			err:         fmt.Errorf("sample model: %w", context.DeadlineExceeded),
			wantCode:    "UPL005",
			wantMessage: "Request timed out",
		},
		{
			name:        "rate limit maps correctly",
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
			err:         errors.New("INVALID CSV: bare quote"),
			wantCode:    "FILE002",
			wantMessage: "File is not a valid CSV or TSV",
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
	result := FormatUserError(ErrNoFile)

	expected := "No file uploaded (Code: FILE004). Please select a file to upload"
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
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  tabular.ErrEmptyFile,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
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
		techErr := fmt.Errorf("%w: %q", tabular.ErrUnsupportedOutputFormat, "pdf")
		userErr := NewUserError(techErr)

		if userErr.Error() != "Unsupported output file type" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, tabular.ErrUnsupportedOutputFormat) {
			t.Error("Unwrap() should return original error")
		}
	})
}
