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
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "no active artifact",
			err:         ErrNoActiveArtifact,
			wantCode:    "CONV001",
			wantMessage: "No binary is loaded or selected",
		},
		{
			name:        "wrapped open error keeps its code",
			err:         fmt.Errorf("convert: %w", &OpenError{Reason: "unrecognized object file format"}),
			wantCode:    "CONV002",
			wantMessage: "The binary could not be opened for symbol lookup",
		},
		{
			name:        "stale conversion",
			err:         ErrStaleConversion,
			wantCode:    "CONV003",
			wantMessage: "The selection changed while converting",
		},
		{
			name:        "pattern error",
			err:         &PatternError{Pattern: "(", Err: errors.New("missing )")},
			wantCode:    "CLN001",
			wantMessage: "The cleanup pattern is not a valid expression",
		},
		{
			name:        "non-terminating rule",
			err:         &NonTerminatingRuleError{Pattern: "x", Iterations: 1000, Reason: "no fixed point"},
			wantCode:    "CLN002",
			wantMessage: "The cleanup pattern keeps changing the text",
		},
		{
			name:        "artifact not found",
			err:         fmt.Errorf("remove abc: %w", ErrArtifactNotFound),
			wantCode:    "REG001",
			wantMessage: "The binary is no longer in the list",
		},
		{
			name:        "file too large maps by text",
			err:         errors.New("http: request body too large"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
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
			err:         errors.New("Remote Resolver: 502 Bad Gateway"),
			wantCode:    "CONV005",
			wantMessage: "The remote resolver returned an error",
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
	result := FormatUserError(ErrEmptyTag)

	expected := "Tags must contain at least one character (Code: REG003). Enter a tag name"
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
			err:  ErrIndexOutOfRange,
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
