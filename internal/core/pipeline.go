package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Conversion is the outcome of one conversion request.
//
// Output is what should be shown. When cleanup fails, Output is the resolved
// text before cleanup and Diagnostic explains why. When the backend fails,
// Output carries the error message.
type Conversion struct {
	ArtifactID string    `json:"artifactId,omitempty"`
	Output     string    `json:"output"`
	Resolved   string    `json:"resolved"`
	Diagnostic string    `json:"diagnostic,omitempty"`
	Addresses  int       `json:"addresses"`
	Unresolved int       `json:"unresolved"`
	Warnings   []Warning `json:"warnings,omitempty"`
}

// Converter runs a Backend and then the cleanup rule.
type Converter struct {
	backend Backend
	cleanup *CleanupEngine
	limiter *ConversionLimiter
	timeout time.Duration
}

// NewConverter creates a converter. limiter may be nil for no limit;
// timeout <= 0 disables the per-conversion deadline.
func NewConverter(backend Backend, cleanup *CleanupEngine, limiter *ConversionLimiter, timeout time.Duration) *Converter {
	return &Converter{
		backend: backend,
		cleanup: cleanup,
		limiter: limiter,
		timeout: timeout,
	}
}

// Cleanup runs pattern over text to a fixed point. It is the same transform
// Run applies after resolution.
func (c *Converter) Cleanup(text, pattern string) (string, error) {
	return c.cleanup.Apply(text, pattern)
}

// Limiter returns the converter's limiter, or nil.
func (c *Converter) Limiter() *ConversionLimiter { return c.limiter }

// Run resolves addresses in text against binary and applies pattern.
//
// The returned Conversion is non-nil whenever there is something to show,
// including alongside these errors: *OpenError and other backend failures
// (Output holds the message), *PatternError, *NonTerminatingRuleError and
// ErrCleanupTimeout (Output holds the uncleaned text).
func (c *Converter) Run(ctx context.Context, text string, binary []byte, pattern string) (*Conversion, error) {
	text = ValidText(text)
	rule, ruleErr := c.cleanup.Compile(pattern)

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer c.limiter.Release()
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := c.backend.Convert(runCtx, text, binary)
	if err != nil {
		return &Conversion{
			Output:     "Error during conversion: " + err.Error(),
			Diagnostic: err.Error(),
		}, fmt.Errorf("convert: %w", err)
	}

	conv := &Conversion{
		Output:     res.Text,
		Resolved:   res.Text,
		Addresses:  res.Resolved + res.Unresolved,
		Unresolved: res.Unresolved,
		Warnings:   res.Warnings,
	}

	slog.Debug("addresses resolved",
		"resolved", res.Resolved,
		"unresolved", res.Unresolved,
		"warnings", len(res.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if ruleErr != nil {
		conv.Diagnostic = ruleErr.Error()
		return conv, ruleErr
	}

	cleaned, iterations, err := rule.Apply(res.Text)
	if err != nil {
		conv.Diagnostic = err.Error()
		return conv, err
	}
	if !rule.IsNoop() {
		slog.Debug("cleanup applied", "iterations", iterations)
	}
	conv.Output = cleaned
	return conv, nil
}
