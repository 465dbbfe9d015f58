// ABOUTME: Gateway orchestrator that wires the store, registry and engine behind an HTTP server
// ABOUTME: Manages the listener, health and metrics endpoints, and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/auth"
	"github.com/2389/keyward/internal/config"
	"github.com/2389/keyward/internal/engine"
	"github.com/2389/keyward/internal/store"
)

// Gateway serves the keyward HTTP API.
type Gateway struct {
	config     *config.Config
	store      store.Store
	engine     *engine.Engine
	metrics    *Metrics
	httpServer *http.Server
	logger     *slog.Logger

	// verifier guards account creation; nil leaves it open
	verifier auth.TokenVerifier
}

// initStore opens the SQLite database, creating its directory if needed.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return s, nil
}

// New creates a gateway backed by the database named in cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	reg, err := cfg.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("building module registry: %w", err)
	}

	st, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(st, reg, cfg.Params(), account.SystemClock{}, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	logger.Info("module registry loaded",
		"manager", reg.Address().Hex(),
		"modules", len(reg.Entries()),
		"capacity", reg.Capacity(),
	)
	return NewWithEngine(cfg, st, eng, logger), nil
}

// NewWithEngine builds a gateway around an existing engine. The gateway
// takes ownership of st and closes it on Shutdown.
func NewWithEngine(cfg *config.Config, st store.Store, eng *engine.Engine, logger *slog.Logger) *Gateway {
	g := &Gateway{
		config: cfg,
		store:  st,
		engine: eng,
		logger: logger.With("component", "gateway"),
	}
	if cfg.Auth.JWTSecret != "" {
		g.verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	} else {
		g.logger.Warn("auth.jwt_secret is empty, account creation is open to any caller")
	}
	if cfg.Metrics.Enabled {
		g.metrics = NewMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", g.handleHealth)
	if g.metrics != nil {
		mux.Handle("GET "+cfg.Metrics.Path, g.metrics.Handler())
	}
	g.registerAPIRoutes(mux)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g
}

// Handler returns the root HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Engine returns the gateway's engine.
func (g *Gateway) Engine() *engine.Engine {
	return g.engine
}

// startServer serves on ln and reports the terminal error on the returned channel.
func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()
	return errCh
}

// waitForShutdownSignal blocks until ctx ends or the server fails.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context cancelled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address %s: %w", g.config.Server.HTTPAddr, err)
	}

	errCh := g.startServer(ln)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// The Run context is already cancelled at this point.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and closes the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
