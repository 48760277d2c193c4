// Package redisrepo stores session keys in redis, for clients that share one
// session across processes or hosts.
package redisrepo

import (
	"context"
	"time"

	clienterrors "github.com/Urientropy/centavo/internal/errors"
	"github.com/Urientropy/centavo/sessions"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Repo struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ sessions.Repo = (*Repo)(nil)

type Option func(*Repo)

// WithTTL expires every stored key after ttl. Zero keeps keys forever.
func WithTTL(ttl time.Duration) Option {
	return func(r *Repo) {
		r.ttl = ttl
	}
}

func New(client redis.UniversalClient, prefix string, opts ...Option) (*Repo, error) {
	if client == nil {
		return nil, errors.New("[redisrepo.New] client is required")
	}
	r := &Repo{client: client, prefix: prefix}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NewClient opens a redis client and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "[redisrepo.NewClient] ping %s", addr)
	}
	return client, nil
}

func (r *Repo) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", clienterrors.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "[redisrepo.Get] %s", key)
	}
	return v, nil
}

func (r *Repo) Set(ctx context.Context, key, value string) error {
	return errors.Wrapf(r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(), "[redisrepo.Set] %s", key)
}

func (r *Repo) Remove(ctx context.Context, key string) error {
	return errors.Wrapf(r.client.Del(ctx, r.prefix+key).Err(), "[redisrepo.Remove] %s", key)
}
