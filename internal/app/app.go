package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/resumeinsider/internal/adapter/api"
	"github.com/pscheid92/resumeinsider/internal/adapter/metrics"
	"github.com/pscheid92/resumeinsider/internal/adapter/tokenstore"
	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/platform/config"
	"github.com/pscheid92/resumeinsider/internal/platform/crypto"
	"github.com/pscheid92/resumeinsider/internal/reconciler"
	"github.com/pscheid92/resumeinsider/internal/session"
)

// New builds the service graph from configuration and restores the persisted
// session. Metrics are registered on reg. Close the returned Service when done.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*Service, error) {
	store, closeStore, err := newTokenStore(ctx, cfg, reg)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithRateLimit(cfg.APIRateLimit, cfg.APIBurst),
		api.WithMetrics(metrics.NewAPIMetrics(reg)),
	)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("create API client: %w", err)
	}

	mgr := session.NewManager(client, store, session.WithMetrics(metrics.NewSessionMetrics(reg)))
	jobs := reconciler.New(client.Jobs(mgr.Transport), mgr, reconciler.WithMetrics(metrics.NewJobMetrics(reg)))

	svc := NewService(mgr, jobs, cfg.PollInterval)
	svc.closers = append(svc.closers, closeStore)
	svc.Restore(ctx)
	return svc, nil
}

func newTokenStore(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (domain.TokenStore, func() error, error) {
	var (
		store     domain.TokenStore
		closeFunc = func() error { return nil }
	)

	switch cfg.TokenStore {
	case config.TokenStoreMemory:
		store = tokenstore.NewMemory()
	case config.TokenStoreRedis:
		rdb, err := tokenstore.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rdb.AddHook(tokenstore.NewMetricsHook(metrics.NewStoreMetrics(reg)))
		store = tokenstore.NewRedis(rdb, cfg.RedisKey)
		closeFunc = rdb.Close
	default:
		store = tokenstore.NewFile(cfg.TokenFile)
	}

	if cfg.TokenKey != "" {
		svc, err := crypto.NewAesGcmCryptoService(cfg.TokenKey)
		if err != nil {
			_ = closeFunc()
			return nil, nil, fmt.Errorf("token encryption: %w", err)
		}
		store = tokenstore.NewEncrypted(store, svc)
	}
	return store, closeFunc, nil
}
