// Package workspace is the core of the collaborative editor: it owns the
// optimistic mutation protocol that keeps the local cache responsive while
// every write is validated against the store.
//
// Every mutation runs four phases:
//
//  1. optimistic: patch the cache so the caller sees the result immediately,
//     keeping a snapshot of the pre-write state;
//  2. persist: write to the store, with the version precondition the caller
//     read; transport failures retry the same precondition;
//  3. resolve: on success replace the optimistic value with the confirmed
//     record; on a version conflict roll the snapshot back and mark the
//     scope stale so the next read reloads; on any other failure roll back
//     and return the error;
//  4. fan out: mark derived scopes (page previews, database rows) stale.
//
// Realtime change events never write data into the cache. They only mark
// scopes stale, which cannot race an in-flight optimistic write.
package workspace

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/notewave/notewave/pkg/cache"
	"github.com/notewave/notewave/pkg/identity"
	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 200 * time.Millisecond
)

// Client coordinates the cache and the store for one user session.
type Client struct {
	store    store.Store
	cache    *cache.Cache
	identity identity.Provider
	log      zerolog.Logger

	maxRetries uint64
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRetry tunes the persist-phase retry policy for transport failures.
func WithRetry(maxRetries uint64, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// New creates a workspace client on top of s, acting as the user id
// resolves.
func New(s store.Store, id identity.Provider, opts ...Option) *Client {
	c := &Client{
		store:      s,
		cache:      cache.New(),
		identity:   id,
		log:        zerolog.Nop(),
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache exposes the client's cache. Views read through it; tests inspect it.
func (c *Client) Cache() *cache.Cache { return c.cache }

// Store exposes the underlying store.
func (c *Client) Store() store.Store { return c.store }

// persist runs fn with the client's retry policy. Only transport errors are
// retried; the operation re-runs with the same precondition, so a write
// that actually landed before the response was lost surfaces as a version
// conflict on the retry rather than a double apply. Conflict, not-found and
// validation errors return immediately.
func (c *Client) persist(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewConstant(c.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && errors.Is(err, store.ErrTransport) {
			c.log.Warn().Str("op", op).Err(err).Msg("transport failure, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		c.log.Debug().Str("op", op).Err(err).Msg("persist failed")
	}
	return err
}

// userID resolves the acting user.
func (c *Client) userID() (models.UserID, error) {
	return c.identity.CurrentUserID()
}
