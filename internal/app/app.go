// Package app is the composition root of the opsboard client. It opens storage, builds
// the request pipeline and wires the session and feature stores on top of it. With no
// backend URL configured the mock backend runs in process behind the same pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/miradorstack/opsboard/internal/audit"
	"github.com/miradorstack/opsboard/internal/auth"
	"github.com/miradorstack/opsboard/internal/config"
	"github.com/miradorstack/opsboard/internal/correlation"
	"github.com/miradorstack/opsboard/internal/deployments"
	"github.com/miradorstack/opsboard/internal/incidents"
	"github.com/miradorstack/opsboard/internal/logs"
	"github.com/miradorstack/opsboard/internal/pipeline"
	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/tokens"
)

// Log sources understood by LogsConfig.Source.
const (
	SourceSimulated = "simulated"
	SourceWebSocket = "websocket"
	SourceNATS      = "nats"
)

// App holds the wired client.
type App struct {
	Config      *config.Config
	Storage     storage.Provider
	Tokens      *tokens.Store
	Correlation *correlation.Context
	Pipeline    *pipeline.Pipeline
	Session     *auth.Session
	AuditLog    *audit.Log
	Recorder    *audit.Recorder
	Audit       *audit.Store
	Incidents   *incidents.Store
	Deployments *deployments.Store
	Logs        *logs.Store
	// Backend is set when the mock backend runs in process.
	Backend *Backend

	logger   *slog.Logger
	nc       *nats.Conn
	stopFeed context.CancelFunc
	feedDone chan struct{}
}

// New wires an App from cfg and restores any persisted session. Close releases it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (a *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	provider, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		DatabaseURL: cfg.Storage.DatabaseURL,
		Valkey:      storage.ValkeyConfig(cfg.Storage.Valkey),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a = &App{
		Config:      cfg,
		Storage:     provider,
		Tokens:      tokens.NewStore(provider, logger),
		Correlation: correlation.New(),
		logger:      logger,
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	if strings.EqualFold(cfg.Logs.Source, SourceNATS) {
		natsURL := cfg.Logs.NATSURL
		if natsURL == "" {
			natsURL = nats.DefaultURL
		}
		a.nc, err = nats.Connect(natsURL, nats.Name("opsboard"))
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
	}

	transport, err := a.transport(ctx)
	if err != nil {
		return nil, err
	}

	var (
		authClient *auth.Client
		session    *auth.Session
	)
	retry := pipeline.DefaultRetryConfig()
	if cfg.Client.MaxRetries > 0 {
		retry.MaxRetries = cfg.Client.MaxRetries
	}
	if cfg.Client.RetryDelay > 0 {
		retry.BaseDelay = cfg.Client.RetryDelay
	}
	retry.Logger = logger
	a.Pipeline = pipeline.New(transport.Handle,
		pipeline.NormalizeErrors(a.Correlation, logger),
		pipeline.Sanitize(),
		pipeline.Correlate(a.Correlation),
		pipeline.Authenticate(pipeline.AuthConfig{
			Tokens: a.Tokens,
			Refresh: func(ctx context.Context, refreshToken string) (tokens.Pair, error) {
				return auth.Refresher(authClient)(ctx, refreshToken)
			},
			OnSessionExpired: func(ctx context.Context) {
				if session != nil {
					session.Expire(ctx)
				}
			},
			Logger: logger,
		}),
		pipeline.Retry(retry),
	)
	authClient = auth.NewClient(a.Pipeline)

	a.AuditLog = audit.NewLog(provider, cfg.Audit.MaxEntries)
	a.Recorder = audit.NewRecorder(a.AuditLog, audit.RecorderConfig{
		QueueSize: cfg.Audit.QueueSize,
		CurrentUser: func() string {
			if session == nil {
				return ""
			}
			return session.CurrentUser()
		},
		Logger: logger.With(slog.String("component", "audit")),
	})

	session, err = auth.NewSession(auth.SessionConfig{
		API:         authClient,
		Tokens:      a.Tokens,
		Correlation: a.Correlation,
		Storage:     provider,
		Audit:       a.Recorder,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	a.Session = session

	if a.Audit, err = audit.NewStore(a.AuditLog, cfg.Audit.PageSize, logger); err != nil {
		return nil, err
	}
	a.Incidents, err = incidents.NewStore(incidents.StoreConfig{
		API:      incidents.NewClient(a.Pipeline, incidents.Mapper{RiskThreshold: cfg.Incidents.RiskThreshold}),
		Storage:  provider,
		Audit:    a.Recorder,
		PageSize: cfg.Incidents.PageSize,
		Logger:   logger.With(slog.String("component", "incidents")),
	})
	if err != nil {
		return nil, err
	}
	a.Deployments, err = deployments.NewStore(deployments.StoreConfig{
		API:          deployments.NewClient(a.Pipeline),
		Authorizer:   session,
		Audit:        a.Recorder,
		PageSize:     cfg.Deployments.PageSize,
		TickInterval: cfg.Deployments.TickInterval,
		Logger:       logger.With(slog.String("component", "deployments")),
	})
	if err != nil {
		return nil, err
	}

	source, err := a.logSource()
	if err != nil {
		return nil, err
	}
	a.Logs, err = logs.NewStore(logs.StoreConfig{
		Source:   source,
		PageSize: cfg.Logs.PageSize,
		Logger:   logger.With(slog.String("component", "logs")),
	})
	if err != nil {
		return nil, err
	}

	if session.Restore(ctx) {
		logger.Debug("session restored", slog.String("user", session.CurrentUser()))
	}
	return a, nil
}

// transport returns the HTTP transport for the configured backend, starting the
// in-process backend when no URL is set.
func (a *App) transport(ctx context.Context) (*pipeline.HTTPTransport, error) {
	cfg := a.Config
	if cfg.Client.BaseURL != "" {
		return pipeline.NewHTTPTransport(cfg.Client.BaseURL, cfg.Client.Timeout), nil
	}

	var opts BackendOptions
	opts.Logger = a.logger.With(slog.String("component", "backend"))
	if a.nc != nil {
		opts.Publisher = &logs.NATSPublisher{Conn: a.nc, Subject: cfg.Logs.Subject}
	}
	backend, err := NewBackend(ctx, cfg, a.Storage, opts)
	if err != nil {
		return nil, err
	}
	a.Backend = backend

	// The in-process feed only reaches the client through NATS.
	if opts.Publisher != nil {
		feedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.stopFeed = cancel
		a.feedDone = make(chan struct{})
		go func() {
			defer close(a.feedDone)
			backend.RunFeed(feedCtx)
		}()
	}
	return pipeline.NewHandlerTransport(backend.Router, cfg.Client.Timeout), nil
}

func (a *App) logSource() (logs.Source, error) {
	cfg := a.Config.Logs
	logger := a.logger.With(slog.String("component", "logs"))
	switch strings.ToLower(cfg.Source) {
	case "", SourceSimulated:
		return logs.NewSimulated(), nil
	case SourceNATS:
		return &logs.NATSSource{Conn: a.nc, Subject: cfg.Subject, Logger: logger}, nil
	case SourceWebSocket:
		streamURL, err := StreamURL(cfg.StreamURL, a.Config.Client.BaseURL)
		if err != nil {
			return nil, err
		}
		return &logs.WebSocketSource{URL: streamURL, Token: a.Tokens.AccessToken, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown log source %q", cfg.Source)
	}
}

// StreamURL returns explicit when set, otherwise the websocket form of the log stream
// endpoint under baseURL.
func StreamURL(explicit, baseURL string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if baseURL == "" {
		return "", errors.New("websocket log source needs a stream URL or a backend URL")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + logs.StreamPath
	return u.String(), nil
}

// Close stops streaming, flushes the audit queue and releases connections and storage.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Logs != nil {
		a.Logs.Stop()
	}
	if a.stopFeed != nil {
		a.stopFeed()
		<-a.feedDone
	}
	if a.Recorder != nil {
		if err := a.Recorder.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush audit: %w", err))
		}
	}
	if a.nc != nil {
		a.nc.Close()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
