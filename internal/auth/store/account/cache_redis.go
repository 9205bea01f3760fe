package account

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"clientauth/pkg/domain"
	"clientauth/pkg/platform/circuit"
)

var (
	identityCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clientauth_identity_cache_lookups_total",
		Help: "Identity cache lookups by result (hit, miss, error, bypass)",
	}, []string{"result"})
)

const identityKeyPrefix = "clientauth:identity:"

// IdentityLoader resolves an account identifier into its identity.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, accountIdentifier string) (domain.Identity, error)
}

// CachedIdentities is a Redis read-through cache in front of an
// IdentityLoader. Only the public identity is cached, never the credential
// hash. Redis failures fall back to the loader; repeated failures open a
// breaker and Redis is skipped until a probe succeeds.
type CachedIdentities struct {
	client  redis.Cmdable
	next    IdentityLoader
	ttl     time.Duration
	logger  *slog.Logger
	breaker *circuit.Breaker
}

type CacheOption func(*CachedIdentities)

// WithBreaker replaces the default breaker.
func WithBreaker(b *circuit.Breaker) CacheOption {
	return func(c *CachedIdentities) {
		if b != nil {
			c.breaker = b
		}
	}
}

// NewCachedIdentities wraps next. A non-positive ttl disables caching.
func NewCachedIdentities(client redis.Cmdable, next IdentityLoader, ttl time.Duration, logger *slog.Logger, opts ...CacheOption) *CachedIdentities {
	if logger == nil {
		logger = slog.Default()
	}
	c := &CachedIdentities{
		client:  client,
		next:    next,
		ttl:     ttl,
		logger:  logger,
		breaker: circuit.New("identity-cache", circuit.WithFailureThreshold(3), circuit.WithCooldown(10*time.Second)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cachedIdentity struct {
	AccountIdentifier string   `json:"sub"`
	Authorities       []string `json:"auth"`
}

func (c *CachedIdentities) LoadIdentity(ctx context.Context, accountIdentifier string) (domain.Identity, error) {
	if c.ttl <= 0 {
		return c.next.LoadIdentity(ctx, accountIdentifier)
	}
	if !c.breaker.Allow() {
		identityCacheLookups.WithLabelValues("bypass").Inc()
		return c.next.LoadIdentity(ctx, accountIdentifier)
	}
	key := identityKeyPrefix + accountIdentifier

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil || errors.Is(err, redis.Nil) {
		c.recordSuccess(ctx)
	} else {
		c.recordFailure(ctx, err)
	}
	switch {
	case err == nil:
		var cached cachedIdentity
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil && cached.AccountIdentifier == accountIdentifier {
			identityCacheLookups.WithLabelValues("hit").Inc()
			return domain.Identity{
				AccountIdentifier: cached.AccountIdentifier,
				Authorities:       nonNil(cached.Authorities),
			}, nil
		}
		identityCacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		identityCacheLookups.WithLabelValues("miss").Inc()
	default:
		identityCacheLookups.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "identity cache read failed", "error", err)
		return c.next.LoadIdentity(ctx, accountIdentifier)
	}

	identity, err := c.next.LoadIdentity(ctx, accountIdentifier)
	if err != nil {
		return domain.Identity{}, err
	}

	payload, err := json.Marshal(cachedIdentity{
		AccountIdentifier: identity.AccountIdentifier,
		Authorities:       nonNil(identity.Authorities),
	})
	if err == nil {
		if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.WarnContext(ctx, "identity cache write failed", "error", setErr)
			c.recordFailure(ctx, setErr)
		}
	}
	return identity, nil
}

func (c *CachedIdentities) recordFailure(ctx context.Context, err error) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "identity cache disabled after repeated failures", "breaker", c.breaker.Name(), "error", err)
	}
}

func (c *CachedIdentities) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "identity cache re-enabled", "breaker", c.breaker.Name())
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
