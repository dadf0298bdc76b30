package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/internal/config"
	"github.com/aretw0/policylab/pkg/catalog"
	"github.com/aretw0/policylab/pkg/observability"
	"github.com/aretw0/policylab/pkg/session"
)

// App bundles a Lab with the resources it was built from.
type App struct {
	Lab      *policylab.Lab
	Logger   *slog.Logger
	Registry *prometheus.Registry

	backend *config.Backend
}

// NewApp wires the catalog, the configured session store, logging and metrics into a Lab.
// Close must be called to release the store.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	cat, err := catalog.Default(catalog.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("load built-in catalog: %w", err)
	}
	if cfg.CatalogDir != "" {
		if err := cat.LoadDir(cfg.CatalogDir); err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogDir, err)
		}
	}

	backend, err := config.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithHooks(observability.Combine(observability.LogHooks(logger), metrics.Hooks())),
	}
	if cfg.Store.Prefix != "" {
		opts = append(opts, session.WithPrefix(cfg.Store.Prefix))
	}
	if backend.Locker != nil {
		opts = append(opts, session.WithLocker(backend.Locker))
	}

	return &App{
		Lab:      policylab.New(cat, session.NewManager(backend.Store, opts...), policylab.WithLogger(logger)),
		Logger:   logger,
		Registry: registry,
		backend:  backend,
	}, nil
}

// Close releases the session store.
func (a *App) Close() error {
	return a.backend.Close()
}
