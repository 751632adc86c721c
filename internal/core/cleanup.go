package core

// cleanup.go implements the user-defined cleanup rule applied after address
// resolution.
//
// A rule is one pattern. Every match is replaced by the concatenation of its
// capture groups, so the rule keeps only the captured pieces of what it
// matched. The replacement is repeated until the text stops changing.
//
// Patterns use ECMAScript syntax (regexp2) so rules written for browser
// tooling keep their meaning, and are always global and multiline.

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	gocache "github.com/patrickmn/go-cache"
)

// MaxCleanupIterations is the number of passes a rule may make before it is
// declared non-terminating.
const MaxCleanupIterations = 1000

// DefaultCleanupMaxOutput bounds the text a rule may grow to (16MB).
const DefaultCleanupMaxOutput = 16 << 20

// CleanupOptions tunes rule compilation. Zero values disable the guard.
type CleanupOptions struct {
	// MatchTimeout bounds a single pass over the text.
	MatchTimeout time.Duration

	// MaxOutputBytes bounds the size the text may grow to between passes.
	MaxOutputBytes int
}

// CleanupRule is a compiled cleanup pattern. The zero-pattern rule is a no-op.
type CleanupRule struct {
	pattern   string
	re        *regexp2.Regexp
	maxOutput int
}

// CompileCleanup compiles pattern into a rule. A blank pattern yields a rule
// that returns its input unchanged. Invalid syntax returns a *PatternError.
func CompileCleanup(pattern string, opts CleanupOptions) (*CleanupRule, error) {
	if strings.TrimSpace(pattern) == "" {
		return &CleanupRule{pattern: pattern}, nil
	}

	re, err := regexp2.Compile(pattern, regexp2.ECMAScript|regexp2.Multiline)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	if opts.MatchTimeout > 0 {
		re.MatchTimeout = opts.MatchTimeout
	}

	return &CleanupRule{pattern: pattern, re: re, maxOutput: opts.MaxOutputBytes}, nil
}

// Pattern returns the source pattern.
func (r *CleanupRule) Pattern() string { return r.pattern }

// IsNoop reports whether the rule never changes text.
func (r *CleanupRule) IsNoop() bool { return r.re == nil }

// Apply runs the rule to a fixed point and returns the result with the number
// of passes made. A rule that matches nothing makes exactly one pass.
//
// A rule still changing the text after MaxCleanupIterations passes, or
// growing it past the output bound, fails with *NonTerminatingRuleError.
func (r *CleanupRule) Apply(text string) (string, int, error) {
	if r.re == nil {
		return text, 0, nil
	}

	cur := text
	prev := ""
	iterations := 0
	for iterations == 0 || cur != prev {
		if iterations >= MaxCleanupIterations {
			return "", iterations, &NonTerminatingRuleError{
				Pattern:    r.pattern,
				Iterations: iterations,
				Reason:     "no fixed point reached",
			}
		}

		prev = cur
		next, err := r.re.ReplaceFunc(cur, keepCaptures, -1, -1)
		if err != nil {
			return "", iterations, fmt.Errorf("%w: %v", ErrCleanupTimeout, err)
		}
		cur = next
		iterations++

		if r.maxOutput > 0 && len(cur) > r.maxOutput {
			return "", iterations, &NonTerminatingRuleError{
				Pattern:    r.pattern,
				Iterations: iterations,
				Reason:     fmt.Sprintf("output grew past %d bytes", r.maxOutput),
			}
		}
	}

	return cur, iterations, nil
}

// keepCaptures replaces a match with its capture groups in group order.
// Groups that did not take part in the match contribute nothing.
func keepCaptures(m regexp2.Match) string {
	groups := m.Groups()
	if len(groups) <= 1 {
		return ""
	}

	var b strings.Builder
	for _, g := range groups[1:] {
		if len(g.Captures) == 0 {
			continue
		}
		b.WriteString(g.String())
	}
	return b.String()
}

// ValidText replaces each run of invalid UTF-8 bytes in text with U+FFFD.
// Patterns match runes, so text is made valid before it is stored or
// converted; otherwise a matching pass would rewrite bytes it never matched.
func ValidText(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "\uFFFD")
}

// CleanupEngine compiles and applies cleanup rules, caching compiled rules by
// pattern text.
type CleanupEngine struct {
	opts  CleanupOptions
	rules *gocache.Cache
}

// NewCleanupEngine creates an engine. Compiled rules expire after ttl without
// use; ttl <= 0 keeps them for the life of the engine.
func NewCleanupEngine(opts CleanupOptions, ttl time.Duration) *CleanupEngine {
	expiration := gocache.NoExpiration
	cleanupInterval := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanupInterval = 2 * ttl
	}
	return &CleanupEngine{
		opts:  opts,
		rules: gocache.New(expiration, cleanupInterval),
	}
}

// Compile returns the compiled rule for pattern, from cache when possible.
func (e *CleanupEngine) Compile(pattern string) (*CleanupRule, error) {
	if v, ok := e.rules.Get(pattern); ok {
		if rule, ok := v.(*CleanupRule); ok {
			return rule, nil
		}
	}

	rule, err := CompileCleanup(pattern, e.opts)
	if err != nil {
		return nil, err
	}
	e.rules.SetDefault(pattern, rule)
	return rule, nil
}

// Apply compiles pattern and runs it over text to a fixed point.
func (e *CleanupEngine) Apply(text, pattern string) (string, error) {
	rule, err := e.Compile(pattern)
	if err != nil {
		return "", err
	}
	out, _, err := rule.Apply(ValidText(text))
	if err != nil {
		return "", err
	}
	return out, nil
}
