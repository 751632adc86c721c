package core

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Session owns the state one user works with: the artifact registry, the
// input text, the cleanup pattern, and the last rendered conversion.
//
// Commands run one at a time under the session lock. Conversions read what
// they need under the lock, resolve without it, and commit their output only
// if they are still current (see Convert).
type Session struct {
	mu        sync.Mutex
	registry  *Registry
	converter *Converter

	input   string
	pattern string
	output  *Conversion

	started   uint64
	committed uint64
}

// NewSession creates a session over a loaded registry.
func NewSession(registry *Registry, converter *Converter) *Session {
	return &Session{
		registry:  registry,
		converter: converter,
		output:    &Conversion{},
	}
}

// Effect tells the caller what a command changed.
type Effect struct {
	// Reconvert is set when the active artifact, the input, or the pattern
	// changed and the output should be recomputed.
	Reconvert bool `json:"reconvert"`

	// IDs lists artifacts created by the command.
	IDs []string `json:"ids,omitempty"`
}

// Dispatch runs cmd as one unit of work.
func (s *Session) Dispatch(ctx context.Context, cmd Command) (Effect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.activeID()
	effect, err := cmd.apply(ctx, s)
	if s.activeID() != before {
		effect.Reconvert = true
	}

	if err != nil {
		slog.Warn("command failed", "command", cmd.Name(), "error", err)
		return effect, err
	}
	slog.Debug("command applied", "command", cmd.Name(), "reconvert", effect.Reconvert)
	return effect, nil
}

func (s *Session) activeID() string {
	if a, ok := s.registry.Active(); ok {
		return a.ID
	}
	return ""
}

// Convert resolves the current input against the active artifact and
// applies the cleanup pattern.
//
// The active artifact's id is captured when the conversion starts. If by the
// time resolution finishes another artifact is active, or a conversion that
// started later has already committed, the result is dropped and
// ErrStaleConversion is returned; the previously rendered output stays.
//
// Blank input renders as itself without needing an artifact. With no active
// artifact the output is NoActivePlaceholder and ErrNoActiveArtifact is
// returned. Other conversion-scoped errors are returned together with the
// Conversion that was rendered for them.
func (s *Session) Convert(ctx context.Context) (*Conversion, error) {
	s.mu.Lock()
	s.started++
	seq := s.started
	input, pattern := s.input, s.pattern
	active, hasActive := s.registry.Active()
	activeID := s.activeID()
	s.mu.Unlock()

	if strings.TrimSpace(input) == "" {
		return s.commit(seq, activeID, &Conversion{Output: input, Resolved: input}, nil)
	}
	if !hasActive {
		return s.commit(seq, activeID, &Conversion{Output: NoActivePlaceholder}, ErrNoActiveArtifact)
	}

	binary, err := active.Content(ctx)
	if err != nil {
		conv := &Conversion{
			ArtifactID: active.ID,
			Output:     "Error during conversion: " + err.Error(),
			Diagnostic: err.Error(),
		}
		return s.commit(seq, active.ID, conv, err)
	}

	conv, err := s.converter.Run(ctx, input, binary, pattern)
	if conv == nil {
		return nil, err
	}
	conv.ArtifactID = active.ID
	return s.commit(seq, active.ID, conv, err)
}

// commit stores conv as the rendered output unless it went stale: a newer
// conversion committed, or the active artifact is no longer artifactID ("" for
// none) as captured when the conversion started.
func (s *Session) commit(seq uint64, artifactID string, conv *Conversion, convErr error) (*Conversion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.committed || s.activeID() != artifactID {
		slog.Info("discarding stale conversion", "artifact_id", artifactID, "seq", seq, "committed", s.committed)
		return nil, ErrStaleConversion
	}

	s.committed = seq
	s.output = conv
	return conv, convErr
}

// Output returns the last committed conversion.
func (s *Session) Output() Conversion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.output
}

// Cleanup applies pattern to text with the session's cleanup engine,
// without touching session state.
func (s *Session) Cleanup(text, pattern string) (string, error) {
	return s.converter.Cleanup(text, pattern)
}

// State is a snapshot of the session for presentation.
type State struct {
	Entries      []Entry  `json:"entries"`
	ActiveIndex  *int     `json:"activeIndex"`
	Tags         []string `json:"tags"`
	SelectedTags []string `json:"selectedTags"`
	Input        string   `json:"input"`
	Pattern      string   `json:"pattern"`
}

// State returns a snapshot of the registry and editor state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Entries:      s.registry.Entries(),
		Tags:         s.registry.Tags(),
		SelectedTags: s.registry.SelectedTags(),
		Input:        s.input,
		Pattern:      s.pattern,
	}
	if idx, ok := s.registry.ActiveIndex(); ok {
		st.ActiveIndex = &idx
	}
	return st
}

// TagSuggestions returns tags the artifact could be given, from the tags
// other artifacts use.
func (s *Session) TagSuggestions(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.TagSuggestions(id)
}
