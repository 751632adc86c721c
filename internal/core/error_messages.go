// Package core provides the conversion and registry logic for addr2line.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Codes are stable; quote them when reporting a problem.
//
// # Conversion Errors (CONV001-CONV099)
//
//	CONV001 - No active binary: No binary is loaded or selected
//	          Action: Upload a binary with debug info and select it
//	          Matches: ErrNoActiveArtifact
//
//	CONV002 - Unreadable binary: The binary could not be opened for symbol lookup
//	          Action: Upload an unstripped ELF, Mach-O or PE file with DWARF
//	          Matches: *OpenError
//
//	CONV003 - Superseded: The selection changed while converting
//	          Action: None, the newer conversion is shown
//	          Matches: ErrStaleConversion
//
//	CONV004 - System busy: Too many conversions in progress
//	          Action: Please wait a moment and try again
//	          Matches: ErrTooManyConversions
//
//	CONV005 - Remote resolver failed: The remote service returned an error
//	          Action: Check the resolver service and try again
//	          Patterns: "remote resolver"
//
// # Cleanup Errors (CLN001-CLN099)
//
//	CLN001 - Invalid pattern: The cleanup pattern is not a valid expression
//	         Action: Fix the pattern syntax; output shows the uncleaned text
//	         Matches: *PatternError
//
//	CLN002 - Infinite rule: The cleanup pattern keeps changing the text
//	         Action: Make sure the captured text cannot match again
//	         Matches: *NonTerminatingRuleError
//
//	CLN003 - Pattern too slow: A cleanup pass timed out
//	         Action: Simplify the pattern to avoid heavy backtracking
//	         Matches: ErrCleanupTimeout
//
// # Registry Errors (REG001-REG099)
//
//	REG001 - Binary not found: The binary is no longer in the list
//	REG002 - Bad position: The position is outside the list
//	REG003 - Empty tag: Tags must contain at least one character
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large      Patterns: "file too large", "request body too large"
//	FILE004 - No file             Patterns: "no file provided"
//	FILE005 - Empty file          Patterns: "empty file"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled    Patterns: "context canceled"
//	REQ002 - Request timeout      Patterns: "context deadline exceeded"
//	REQ003 - Bad request body     Patterns: "invalid request body"
//	RATE001 - Rate limited        Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original
// technical error.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorMatcher maps an error class to a user message. Typed matchers run
// before string patterns so wrapped errors keep their code.
type errorMatcher struct {
	match func(error) bool
	msg   UserMessage
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

func as[T error]() func(error) bool {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

var errorMatchers = []errorMatcher{
	{
		match: is(ErrNoActiveArtifact),
		msg: UserMessage{
			Message: "No binary is loaded or selected",
			Action:  "Upload a binary with debug info and select it",
			Code:    "CONV001",
		},
	},
	{
		match: as[*OpenError](),
		msg: UserMessage{
			Message: "The binary could not be opened for symbol lookup",
			Action:  "Upload an unstripped ELF, Mach-O or PE file with DWARF",
			Code:    "CONV002",
		},
	},
	{
		match: is(ErrStaleConversion),
		msg: UserMessage{
			Message: "The selection changed while converting",
			Action:  "The newer conversion is shown",
			Code:    "CONV003",
		},
	},
	{
		match: is(ErrTooManyConversions),
		msg: UserMessage{
			Message: "System is busy processing other conversions",
			Action:  "Please wait a moment and try again",
			Code:    "CONV004",
		},
	},
	{
		match: as[*PatternError](),
		msg: UserMessage{
			Message: "The cleanup pattern is not a valid expression",
			Action:  "Fix the pattern syntax; output shows the uncleaned text",
			Code:    "CLN001",
		},
	},
	{
		match: as[*NonTerminatingRuleError](),
		msg: UserMessage{
			Message: "The cleanup pattern keeps changing the text",
			Action:  "Make sure the captured text cannot match again",
			Code:    "CLN002",
		},
	},
	{
		match: is(ErrCleanupTimeout),
		msg: UserMessage{
			Message: "A cleanup pass timed out",
			Action:  "Simplify the pattern to avoid heavy backtracking",
			Code:    "CLN003",
		},
	},
	{
		match: is(ErrArtifactNotFound),
		msg: UserMessage{
			Message: "The binary is no longer in the list",
			Action:  "Refresh the list and try again",
			Code:    "REG001",
		},
	},
	{
		match: is(ErrIndexOutOfRange),
		msg: UserMessage{
			Message: "The position is outside the list",
			Action:  "Refresh the list and try again",
			Code:    "REG002",
		},
	},
	{
		match: is(ErrEmptyTag),
		msg: UserMessage{
			Message: "Tags must contain at least one character",
			Action:  "Enter a tag name",
			Code:    "REG003",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "remote resolver",
		msg: UserMessage{
			Message: "The remote resolver returned an error",
			Action:  "Check the resolver service and try again",
			Code:    "CONV005",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Upload a smaller file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Upload a smaller file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a non-empty file",
			Code:    "FILE005",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller input or try again later",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Check the request fields and try again",
			Code:    "REQ003",
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

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors are matched with errors.Is/As first, then the error text is
// searched for known patterns. Unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, m := range errorMatchers {
		if m.match(err) {
			return m.msg
		}
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

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
