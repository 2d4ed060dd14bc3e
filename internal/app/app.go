package app

import (
	"context"
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/moltin/transfer-flow-data/internal/config"
	"github.com/moltin/transfer-flow-data/internal/handler"
	"github.com/moltin/transfer-flow-data/internal/moltin"
	"github.com/moltin/transfer-flow-data/internal/secrets"
	"github.com/moltin/transfer-flow-data/internal/service"
	"github.com/moltin/transfer-flow-data/pkg/logger"
	"github.com/moltin/transfer-flow-data/pkg/metrics"
	"github.com/moltin/transfer-flow-data/pkg/tracer"
)

// App holds everything built once per process and reused by every invocation.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Metrics  *metrics.Collector
	Tracer   *sdktrace.TracerProvider
	Handler  *handler.Handler
	secretFn func(ctx context.Context, arn string) (string, error)
}

type Option func(*App)

// WithSecretResolver replaces the Secrets Manager lookup used when only
// MOLTIN_CLIENT_SECRET_ARN is configured.
func WithSecretResolver(fn func(ctx context.Context, arn string) (string, error)) Option {
	return func(a *App) { a.secretFn = fn }
}

func resolveFromSecretsManager(ctx context.Context, arn string) (string, error) {
	api, err := secrets.NewAPI(ctx)
	if err != nil {
		return "", err
	}
	return secrets.ClientSecret(ctx, api, arn)
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg, secretFn: resolveFromSecretsManager}
	for _, opt := range opts {
		opt(a)
	}

	log, err := logger.New(cfg.App, cfg.Log)
	if err != nil {
		return nil, err
	}
	a.Log = log

	tp, err := tracer.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initialising tracer: %w", err)
	}
	a.Tracer = tp

	a.Metrics = metrics.NewCollector(cfg.App.Name)

	secret := cfg.Moltin.ClientSecret
	if secret == "" {
		secret, err = a.secretFn(ctx, cfg.Moltin.ClientSecretARN)
		if err != nil {
			return nil, fmt.Errorf("resolving platform client secret: %w", err)
		}
	}

	client, err := moltin.New(ctx, moltin.Config{
		BaseURL:      cfg.Moltin.BaseURL,
		APIVersion:   cfg.Moltin.APIVersion,
		ClientID:     cfg.Moltin.ClientID,
		ClientSecret: secret,
		Timeout:      cfg.Moltin.Timeout,
	}, moltin.WithMetrics(a.Metrics))
	if err != nil {
		return nil, fmt.Errorf("creating platform client: %w", err)
	}

	processor := service.NewProcessor(client, a.Log, a.Metrics, cfg.Transfer.Concurrency)
	a.Handler = handler.New(processor, a.Log, a.Metrics)

	a.Log.Info("transfer-flows initialised",
		zap.String("platform", cfg.Moltin.BaseURL),
		zap.Int("concurrency", cfg.Transfer.Concurrency),
		zap.Bool("tracing", cfg.Tracing.Enabled),
	)
	return a, nil
}

// Flush exports spans and pushes metrics collected by the last invocation.
// Failures are logged, never returned to the caller of the function.
func (a *App) Flush(ctx context.Context) {
	if err := a.Tracer.ForceFlush(ctx); err != nil {
		a.Log.Warn("flushing spans", zap.Error(err))
	}
	if url := a.Config.Metrics.PushgatewayURL; url != "" {
		if err := a.Metrics.Push(ctx, url, a.Config.Metrics.Job); err != nil {
			a.Log.Warn("pushing metrics", zap.Error(err))
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.Tracer.Shutdown(ctx)
	// Sync on stdout/stderr returns EINVAL on Linux; ignore it.
	_ = a.Log.Sync()
	return err
}
