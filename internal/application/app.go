// Package application assembles the symbolizer from configuration: the
// artifact store, the registry loaded from it, the resolver backend, the
// converter and the session. The server and the CLI both start here.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/addr2line-web/addr2line/internal/config"
	"github.com/addr2line-web/addr2line/internal/core"
	"github.com/addr2line-web/addr2line/internal/dwarfsym"
	"github.com/addr2line-web/addr2line/internal/remote"
	"github.com/addr2line-web/addr2line/internal/store"
)

// App holds the wired components. Close releases the store.
type App struct {
	Store     store.Store
	Registry  *core.Registry
	Converter *core.Converter
	Session   *core.Session
}

// New opens the configured store, loads the registry from it and builds a
// session around it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	converter, err := NewConverter(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg, err := core.LoadRegistry(ctx, st, st, core.WithActiveFollowsReorder(cfg.Registry.ActiveFollowsReorder))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load registry: %w", err)
	}
	slog.Info("registry loaded", "artifacts", reg.Len())

	return &App{
		Store:     st,
		Registry:  reg,
		Converter: converter,
		Session:   core.NewSession(reg, converter),
	}, nil
}

// Close closes the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// NewConverter builds the resolver backend, cleanup engine and limiter
// from cfg.
func NewConverter(cfg *config.Config) (*core.Converter, error) {
	backend, err := NewBackend(cfg.Resolver)
	if err != nil {
		return nil, err
	}

	cleanup := core.NewCleanupEngine(core.CleanupOptions{
		MatchTimeout:   cfg.Cleanup.MatchTimeout,
		MaxOutputBytes: cfg.Cleanup.MaxOutputBytes,
	}, cfg.Cleanup.CacheTTL)
	limiter := core.NewConversionLimiter(cfg.Convert.MaxConcurrent, cfg.Convert.MaxWaitTime)

	return core.NewConverter(backend, cleanup, limiter, cfg.Convert.Timeout), nil
}

// NewBackend returns the in-process DWARF backend or the remote client.
func NewBackend(cfg config.ResolverConfig) (core.Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "local", "":
		slog.Info("using local resolver", "functions", cfg.Functions)
		return core.NewLocalBackend(dwarfsym.New(dwarfsym.Options{Functions: cfg.Functions})), nil
	case "remote":
		client, err := remote.NewClient(remote.Config{
			URL:     cfg.RemoteURL,
			Timeout: cfg.RemoteTimeout,
			APIKey:  cfg.RemoteAPIKey,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using remote resolver", "url", cfg.RemoteURL)
		return client, nil
	default:
		return nil, fmt.Errorf("unknown resolver backend %q", cfg.Backend)
	}
}
