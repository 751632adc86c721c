package core

import "context"

// Command is one user gesture applied to a Session through Dispatch.
type Command interface {
	Name() string
	apply(ctx context.Context, s *Session) (Effect, error)
}

// AddArtifacts adds one or more uploaded binaries in a single gesture. The
// order record is saved once for the whole batch.
type AddArtifacts struct {
	Uploads []Upload
}

func (AddArtifacts) Name() string { return "add_artifacts" }

func (c AddArtifacts) apply(ctx context.Context, s *Session) (Effect, error) {
	ids, err := s.registry.AddMany(ctx, c.Uploads)
	return Effect{IDs: ids}, err
}

// RemoveArtifact deletes an artifact.
type RemoveArtifact struct {
	ID string
}

func (RemoveArtifact) Name() string { return "remove_artifact" }

func (c RemoveArtifact) apply(ctx context.Context, s *Session) (Effect, error) {
	return Effect{}, s.registry.Remove(ctx, c.ID)
}

// ReorderArtifact moves the artifact at From to To.
type ReorderArtifact struct {
	From int
	To   int
}

func (ReorderArtifact) Name() string { return "reorder_artifact" }

func (c ReorderArtifact) apply(ctx context.Context, s *Session) (Effect, error) {
	return Effect{}, s.registry.Reorder(ctx, c.From, c.To)
}

// RenameArtifact sets an artifact's display name.
type RenameArtifact struct {
	ID          string
	DisplayName string
}

func (RenameArtifact) Name() string { return "rename_artifact" }

func (c RenameArtifact) apply(ctx context.Context, s *Session) (Effect, error) {
	return Effect{}, s.registry.Rename(ctx, c.ID, c.DisplayName)
}

// AddTag tags an artifact.
type AddTag struct {
	ID  string
	Tag string
}

func (AddTag) Name() string { return "add_tag" }

func (c AddTag) apply(ctx context.Context, s *Session) (Effect, error) {
	return Effect{}, s.registry.AddTag(ctx, c.ID, c.Tag)
}

// RemoveTag untags an artifact.
type RemoveTag struct {
	ID  string
	Tag string
}

func (RemoveTag) Name() string { return "remove_tag" }

func (c RemoveTag) apply(ctx context.Context, s *Session) (Effect, error) {
	return Effect{}, s.registry.RemoveTag(ctx, c.ID, c.Tag)
}

// SelectArtifact makes the artifact at Index active.
type SelectArtifact struct {
	Index int
}

func (SelectArtifact) Name() string { return "select_artifact" }

func (c SelectArtifact) apply(_ context.Context, s *Session) (Effect, error) {
	if err := s.registry.SetActive(c.Index); err != nil {
		return Effect{}, err
	}
	return Effect{Reconvert: true}, nil
}

// ToggleTagFilter adds or removes a tag from the presentation filter.
type ToggleTagFilter struct {
	Tag string
}

func (ToggleTagFilter) Name() string { return "toggle_tag_filter" }

func (c ToggleTagFilter) apply(_ context.Context, s *Session) (Effect, error) {
	s.registry.ToggleSelectedTag(c.Tag)
	return Effect{}, nil
}

// SetInput replaces the input text. Invalid UTF-8 is stored as U+FFFD.
type SetInput struct {
	Text string
}

func (SetInput) Name() string { return "set_input" }

func (c SetInput) apply(_ context.Context, s *Session) (Effect, error) {
	s.input = ValidText(c.Text)
	return Effect{Reconvert: true}, nil
}

// ClearInput empties the input and the rendered output.
type ClearInput struct{}

func (ClearInput) Name() string { return "clear_input" }

func (ClearInput) apply(_ context.Context, s *Session) (Effect, error) {
	s.input = ""
	s.started++
	s.committed = s.started
	s.output = &Conversion{}
	return Effect{}, nil
}

// SetCleanupPattern replaces the cleanup pattern. The pattern is compiled
// lazily by the next conversion, so an invalid pattern is reported there.
type SetCleanupPattern struct {
	Pattern string
}

func (SetCleanupPattern) Name() string { return "set_cleanup_pattern" }

func (c SetCleanupPattern) apply(_ context.Context, s *Session) (Effect, error) {
	s.pattern = c.Pattern
	return Effect{Reconvert: true}, nil
}

// ApplyCleanupToInput runs the cleanup pattern over the input text itself
// and replaces the input with the result. On failure the input is kept.
type ApplyCleanupToInput struct{}

func (ApplyCleanupToInput) Name() string { return "apply_cleanup_to_input" }

func (ApplyCleanupToInput) apply(_ context.Context, s *Session) (Effect, error) {
	if s.input == "" {
		return Effect{}, nil
	}
	cleaned, err := s.converter.Cleanup(s.input, s.pattern)
	if err != nil {
		return Effect{}, err
	}
	s.input = cleaned
	return Effect{Reconvert: true}, nil
}
