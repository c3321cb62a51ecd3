package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/securevibes/authgate/internal/adapter/outbound/api"
	"github.com/securevibes/authgate/internal/adapter/outbound/memory"
	"github.com/securevibes/authgate/internal/adapter/outbound/sqlite"
	"github.com/securevibes/authgate/internal/adapter/outbound/state"
	"github.com/securevibes/authgate/internal/adapter/outbound/telemetry"
	"github.com/securevibes/authgate/internal/config"
	"github.com/securevibes/authgate/internal/domain/gateway"
	"github.com/securevibes/authgate/internal/domain/session"
	"github.com/securevibes/authgate/internal/service"
)

// baseTransport is the round tripper beneath the hook chain.
// Tests replace it to control connection lifetimes.
var baseTransport http.RoundTripper = http.DefaultTransport

// app holds the components shared by every command.
type app struct {
	cfg      *config.AuthgateConfig
	logger   *slog.Logger
	store    *session.Store
	client   *api.Client
	auth     *service.AuthService
	nav      *gateway.History
	registry *prometheus.Registry

	transport *gateway.Transport

	closers []func(context.Context) error
}

// newApp loads configuration and wires the session store, the gateway hooks
// and the API client. stderr receives logs, spans and user prompts.
// onLoginPage positions the navigator at the login path, so a 401 during
// sign-in does not prompt for another sign-in.
func newApp(stderr io.Writer, onLoginPage bool) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	metrics := telemetry.NewMetrics(a.registry)

	storage, err := a.openStorage()
	if err != nil {
		return nil, err
	}

	a.store = session.NewStore(
		telemetry.InstrumentStorage(storage, metrics),
		session.WithKey(cfg.Session.Key),
		session.WithLogger(logger),
	)
	a.store.Initialize()
	unobserve := telemetry.ObserveSession(a.store, metrics)
	a.closers = append(a.closers, func(context.Context) error {
		unobserve()
		return nil
	})

	start := "/"
	if onLoginPage {
		start = cfg.Gateway.LoginPath
	}
	a.nav = gateway.NewHistory(start)
	a.nav.OnNavigate(func(path string) {
		if path == cfg.Gateway.LoginPath {
			fmt.Fprintln(stderr, "Session expired or revoked. Run 'authgate login' to sign in again.")
		}
	})

	// Chain order: request id, span, metrics, credential, 401 handling.
	a.transport = gateway.NewTransport(baseTransport)
	if cfg.Gateway.RequestID {
		a.transport = a.transport.Use(gateway.RequestIDHook())
	}
	if cfg.Tracing.Enabled {
		tp, err := telemetry.NewTracerProvider(stderr)
		if err != nil {
			a.close(context.Background())
			return nil, err
		}
		a.closers = append(a.closers, func(ctx context.Context) error { return shutdownTracer(ctx, tp) })
		a.transport = a.transport.Use(telemetry.TracingHook(tp))
	}
	a.transport = a.transport.Use(
		telemetry.MetricsHook(metrics),
		gateway.AuthHook(a.store),
		gateway.UnauthorizedHook(a.store, a.nav, cfg.Gateway.LoginPath, logger),
	)
	logger.Debug("gateway ready", "hooks", a.transport.Hooks())

	a.client = api.NewClient(
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(cfg.API.TimeoutDuration()),
		api.WithTransport(a.transport),
		api.WithLogger(logger),
	)
	a.auth = service.NewAuthService(a.client, a.store, logger)

	if path := cfg.Metrics.Textfile; path != "" {
		a.closers = append(a.closers, func(context.Context) error {
			return telemetry.WriteTextfile(path, a.registry)
		})
	}

	return a, nil
}

// openStorage returns the backend selected by session.storage.
func (a *app) openStorage() (session.Storage, error) {
	switch a.cfg.Session.Storage {
	case config.StorageFile:
		return state.NewFileStorage(a.cfg.Session.Path, a.logger), nil
	case config.StorageSQLite:
		db, err := sqlite.Open(a.cfg.Session.Path, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open session database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		return db, nil
	case config.StorageMemory:
		return memory.NewStorage(), nil
	default:
		return session.NopStorage{}, nil
	}
}

// close releases resources in reverse order of acquisition. Errors are
// logged.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}

func shutdownTracer(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer: %w", err)
	}
	return nil
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
