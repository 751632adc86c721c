package core

import (
	"context"
	"log/slog"
)

// Resolver opens a symbol lookup session over one binary blob.
// Open returns an *OpenError when the bytes are not a symbol-bearing binary.
type Resolver interface {
	Open(ctx context.Context, binary []byte) (ResolverHandle, error)
}

// AddressResolver maps one address to an optional location. ok=false means
// the address has no known location; that is not an error.
type AddressResolver interface {
	Resolve(ctx context.Context, addr uint64) (location string, ok bool, err error)
}

// ResolverHandle resolves addresses against one opened binary. Close releases
// all resources and must be called exactly once per successful Open.
type ResolverHandle interface {
	AddressResolver
	Close() error
}

// Backend turns raw log text into resolved text using one binary.
// LocalBackend does this in-process; a remote implementation performs the
// whole exchange in one request.
type Backend interface {
	Convert(ctx context.Context, text string, binary []byte) (*Resolution, error)
}

// LocalBackend resolves addresses in-process with a Resolver.
type LocalBackend struct {
	Resolver Resolver
}

// NewLocalBackend creates a backend over r.
func NewLocalBackend(r Resolver) *LocalBackend {
	return &LocalBackend{Resolver: r}
}

// Convert opens one handle for the whole text and closes it before returning,
// on every exit path.
func (b *LocalBackend) Convert(ctx context.Context, text string, binary []byte) (*Resolution, error) {
	handle, err := b.Resolver.Open(ctx, binary)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			slog.Warn("resolver close failed", "error", err)
		}
	}()

	return SubstituteLines(ctx, text, handle)
}
