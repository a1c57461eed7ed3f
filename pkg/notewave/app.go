package notewave

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/notewave/notewave/pkg/identity"
	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
	"github.com/notewave/notewave/pkg/store/memory"
	"github.com/notewave/notewave/pkg/store/postgres"
	"github.com/notewave/notewave/pkg/store/surreal"
	"github.com/notewave/notewave/pkg/workspace"
)

// App owns the store, the workspace client and the HTTP router.
type App struct {
	cfg    *Config
	log    zerolog.Logger
	store  store.Store
	client *workspace.Client
	router *mux.Router
}

// New builds the application from its configuration: opens the selected
// backend, wraps it read-only when configured, and wires the workspace
// client and routes.
func New(ctx context.Context, cfg *Config) (*App, error) {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	backing, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}

	var s store.Store = backing
	if cfg.ReadOnly {
		s = store.NewReadOnly(backing, func() bool { return true })
	}

	var id identity.Provider
	if cfg.AuthSecret != "" {
		id = identity.NewTokenProvider([]byte(cfg.AuthSecret), cfg.AuthToken)
	} else {
		id = identity.NewStatic(models.NewUserID())
	}

	a := &App{
		cfg:    cfg,
		log:    log,
		store:  s,
		client: workspace.New(s, id, workspace.WithLogger(log)),
	}
	a.router = a.routes()
	return a, nil
}

func openStore(ctx context.Context, cfg *Config) (store.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return memory.New(), nil
	case BackendPostgres:
		return postgres.New(cfg.PostgresDSN)
	case BackendSurreal:
		return surreal.New(ctx, surreal.Config{
			URL:       cfg.SurrealURL,
			Namespace: cfg.SurrealNamespace,
			Database:  cfg.SurrealDatabase,
			Username:  cfg.SurrealUsername,
			Password:  cfg.SurrealPassword,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level: %w", err)
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger(), nil
}

// Router exposes the HTTP handler, mainly for tests.
func (a *App) Router() http.Handler { return a.router }

// Client exposes the workspace client, mainly for tests.
func (a *App) Client() *workspace.Client { return a.client }

// Migrate initializes the backend schema and exits.
func (a *App) Migrate(ctx context.Context) error {
	a.log.Info().Str("backend", a.cfg.Backend).Msg("running migrations")
	return a.store.Migrate(ctx)
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.Addr,
		Handler:      a.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.Addr).Str("backend", a.cfg.Backend).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("closing store")
	}
	return nil
}
