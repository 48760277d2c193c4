// Package app wires the session storage, the authenticated API client and
// the domain services from a configuration.
package app

import (
	"context"

	"github.com/Urientropy/centavo/apiclient"
	"github.com/Urientropy/centavo/auth"
	"github.com/Urientropy/centavo/finance"
	"github.com/Urientropy/centavo/internal/config"
	"github.com/Urientropy/centavo/inventory"
	"github.com/Urientropy/centavo/production"
	"github.com/Urientropy/centavo/products"
	"github.com/Urientropy/centavo/resources"
	"github.com/Urientropy/centavo/sessions"
	"github.com/Urientropy/centavo/sessions/redisrepo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config     config.Config
	Auth       *auth.Service
	Inventory  *inventory.Service
	Products   *products.Service
	Production *production.Service
	Finance    *finance.Service

	closers []func() error
}

type Option func(*appOptions)

type appOptions struct {
	repo          sessions.Repo
	clientOptions []apiclient.Option
}

// WithSessionRepo replaces the storage chosen by SESSION_STORE.
func WithSessionRepo(repo sessions.Repo) Option {
	return func(o *appOptions) {
		o.repo = repo
	}
}

// WithClientOptions adds API client options after the configured ones.
func WithClientOptions(opts ...apiclient.Option) Option {
	return func(o *appOptions) {
		o.clientOptions = append(o.clientOptions, opts...)
	}
}

// New builds the application. Every service shares the one API client owned
// by the auth service.
func New(ctx context.Context, cfg config.Config, nav auth.Navigator, options ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("[app.New] config is required")
	}

	var o appOptions
	for _, opt := range options {
		opt(&o)
	}

	a := &App{Config: cfg}

	repo := o.repo
	if repo == nil {
		var closer func() error
		var err error
		repo, closer, err = newSessionRepo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	clientOptions := append([]apiclient.Option{
		apiclient.WithTimeout(cfg.GetRequestTimeout()),
		apiclient.WithCSRF(cfg.GetCSRFEnabled(), cfg.GetCSRFCookieName()),
	}, o.clientOptions...)

	authService, err := auth.NewService(ctx, cfg.GetAPIBaseURL(), repo, nav, auth.WithClientOptions(clientOptions...))
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "[app.New] auth service")
	}
	a.Auth = authService

	client := authService.Client()
	storeOptions := []resources.Option{
		resources.WithPageSize(cfg.GetPageSize()),
		resources.WithValidator(authService.Validator().Validate),
	}

	if a.Inventory, err = inventory.NewService(client, storeOptions...); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "[app.New] inventory")
	}
	if a.Products, err = products.NewService(client, storeOptions...); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "[app.New] products")
	}
	if a.Production, err = production.NewService(client, storeOptions...); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "[app.New] production")
	}
	if a.Finance, err = finance.NewService(client, storeOptions...); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "[app.New] finance")
	}

	log.Debug().
		Str("api", cfg.GetAPIBaseURL()).
		Str("session_store", string(cfg.GetSessionStore())).
		Bool("authenticated", authService.IsAuthenticated()).
		Msg("application ready")
	return a, nil
}

func newSessionRepo(ctx context.Context, cfg config.Config) (sessions.Repo, func() error, error) {
	switch cfg.GetSessionStore() {
	case config.StorageMemory:
		return sessions.NewInMemoryRepo(), nil, nil
	case config.StorageRedis:
		client, err := redisrepo.NewClient(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB())
		if err != nil {
			return nil, nil, errors.Wrap(err, "[app.New] redis session store")
		}
		repo, err := redisrepo.New(client, cfg.GetRedisKeyPrefix())
		if err != nil {
			_ = client.Close()
			return nil, nil, errors.Wrap(err, "[app.New] redis session store")
		}
		return repo, client.Close, nil
	default:
		repo, err := sessions.NewFileRepo(cfg.GetSessionFile())
		if err != nil {
			return nil, nil, errors.Wrap(err, "[app.New] file session store")
		}
		return repo, nil, nil
	}
}

// Close releases the session storage connection, if any.
func (a *App) Close() error {
	var firstErr error
	for _, closer := range a.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
