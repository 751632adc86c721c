package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveArtifact is returned when a conversion is requested but no
	// artifact is loaded or selected.
	ErrNoActiveArtifact = errors.New("no active artifact")

	// ErrArtifactNotFound is returned when an id does not name a registry item.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrIndexOutOfRange is returned for positional operations outside items.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrEmptyTag is returned when a blank tag is added.
	ErrEmptyTag = errors.New("tag must not be empty")

	// ErrStaleConversion is returned when the active artifact changed, or a
	// newer conversion committed, while a conversion was in flight. The result
	// was discarded.
	ErrStaleConversion = errors.New("conversion superseded by a newer selection")

	// ErrCleanupTimeout is returned when one cleanup pass exceeds the match timeout.
	ErrCleanupTimeout = errors.New("cleanup pattern match timed out")

	// ErrHandleClosed is returned by resolver handles used after Close.
	ErrHandleClosed = errors.New("resolver handle already closed")
)

// NoActivePlaceholder is the output shown when a conversion has no artifact to use.
const NoActivePlaceholder = "Please load and select a binary"

// OpenError reports that a resolver rejected a binary blob.
type OpenError struct {
	Reason string
	Err    error
}

func (e *OpenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("open binary: %s: %v", e.Reason, e.Err)
	}
	return "open binary: " + e.Reason
}

func (e *OpenError) Unwrap() error { return e.Err }

// AddressParseError reports a matched token whose digits do not fit an address.
type AddressParseError struct {
	Token string
	Err   error
}

func (e *AddressParseError) Error() string {
	return fmt.Sprintf("invalid address %q: %v", e.Token, e.Err)
}

func (e *AddressParseError) Unwrap() error { return e.Err }

// PatternError reports a cleanup pattern that does not compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid cleanup pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// NonTerminatingRuleError reports a cleanup rule that never reached a fixed point.
type NonTerminatingRuleError struct {
	Pattern    string
	Iterations int
	Reason     string
}

func (e *NonTerminatingRuleError) Error() string {
	return fmt.Sprintf("cleanup pattern %q stopped after %d iterations (%s); check it for a potential infinite loop",
		e.Pattern, e.Iterations, e.Reason)
}
