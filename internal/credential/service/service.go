// Package service keeps the packet service access credential valid across
// invocations. Callers invoke EnsureValid before any authenticated call; a
// stored credential is reused until its expiry date arrives and refreshed
// through the identity provider otherwise.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"haulgate/internal/credential/metrics"
	"haulgate/internal/credential/models"
	"haulgate/internal/credential/store"
	dErrors "haulgate/pkg/domain-errors"
)

const (
	defaultRefreshTimeout = 30 * time.Second
	defaultLockPoll       = 100 * time.Millisecond
	refreshKey            = "credential"
)

// IdentityProvider exchanges the configured login for a fresh credential.
type IdentityProvider interface {
	Refresh(ctx context.Context, grant models.PasswordGrant) (*models.AccessCredential, error)
}

// Manager owns the cached credential. Safe for concurrent use: callers that
// find the credential expired share one in-flight refresh.
type Manager struct {
	store          store.Store
	provider       IdentityProvider
	grant          models.PasswordGrant
	clock          func() time.Time
	logger         *slog.Logger
	metrics        *metrics.Metrics
	refreshTimeout time.Duration
	lockPoll       time.Duration
	flight         singleflight.Group
}

// Option configures the Manager.
type Option func(*Manager)

// WithClock overrides the time source used for expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithRefreshTimeout bounds a shared refresh independently of the callers
// waiting on it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshTimeout = d
		}
	}
}

// WithLockPollInterval sets how often a worker waiting on another worker's
// refresh re-reads the store. Only used with stores that implement
// store.Locker.
func WithLockPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lockPoll = d
		}
	}
}

// New creates a Manager. Panics if a required dependency is nil.
func New(st store.Store, provider IdentityProvider, grant models.PasswordGrant, opts ...Option) *Manager {
	if st == nil {
		panic("credential.New: store is required")
	}
	if provider == nil {
		panic("credential.New: identity provider is required")
	}

	m := &Manager{
		store:          st,
		provider:       provider,
		grant:          grant,
		clock:          time.Now,
		logger:         slog.Default(),
		refreshTimeout: defaultRefreshTimeout,
		lockPoll:       defaultLockPoll,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureValid returns a credential usable today, refreshing it when the
// stored one is absent, corrupt or expired.
//
// Errors: CodeCredentialUnavailable when the store cannot be read, when the
// refresh or its persistence fails, or when ctx ends while waiting on a
// refresh.
func (m *Manager) EnsureValid(ctx context.Context) (models.AccessCredential, error) {
	cred, err := m.loadUsable(ctx)
	if err != nil {
		return models.AccessCredential{}, err
	}
	if cred != nil {
		m.recordReuse()
		return *cred, nil
	}

	ch := m.flight.DoChan(refreshKey, func() (any, error) {
		// Detached so one caller giving up does not fail the others.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()
		return m.refresh(fctx)
	})

	select {
	case <-ctx.Done():
		return models.AccessCredential{}, dErrors.Wrap(ctx.Err(), dErrors.CodeCredentialUnavailable, "gave up waiting for credential refresh")
	case res := <-ch:
		if res.Err != nil {
			return models.AccessCredential{}, res.Err
		}
		return res.Val.(models.AccessCredential), nil
	}
}

// Current reports the stored credential without refreshing it.
func (m *Manager) Current(ctx context.Context) (models.Status, error) {
	cred, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrCorrupt):
		return models.Status{}, nil
	case err != nil:
		return models.Status{}, dErrors.Wrap(err, dErrors.CodeCredentialUnavailable, "failed to read stored credential")
	}
	return models.Status{
		Present:    true,
		Usable:     cred.UsableAt(m.clock()),
		ExpiresAt:  cred.ExpiresAt,
		ObtainedAt: cred.ObtainedAt,
	}, nil
}

// Health reports whether the backing store is reachable.
func (m *Manager) Health(ctx context.Context) error {
	return m.store.Health(ctx)
}

// refresh runs inside the single flight. It reads the store again first: a
// caller may have loaded a stale record just before a previous flight saved
// a fresh one. Shared stores are re-read again once the cross-process lock
// is held.
func (m *Manager) refresh(ctx context.Context) (models.AccessCredential, error) {
	cred, err := m.loadUsable(ctx)
	if err != nil {
		return models.AccessCredential{}, err
	}
	if cred != nil {
		m.recordReuse()
		return *cred, nil
	}

	if locker, ok := m.store.(store.Locker); ok {
		cred, release, err := m.acquireLock(ctx, locker)
		if err != nil {
			return models.AccessCredential{}, err
		}
		if cred != nil {
			m.recordReuse()
			return *cred, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				m.logger.WarnContext(ctx, "failed to release credential refresh lock", "error", err)
			}
		}()

		cred, err = m.loadUsable(ctx)
		if err != nil {
			return models.AccessCredential{}, err
		}
		if cred != nil {
			m.recordReuse()
			return *cred, nil
		}
	}

	return m.authenticate(ctx)
}

// acquireLock takes the cross-process refresh lock. While another worker
// holds it the store is polled; if that worker's credential shows up first it
// is returned instead of the lock.
func (m *Manager) acquireLock(ctx context.Context, locker store.Locker) (*models.AccessCredential, func(context.Context) error, error) {
	ticker := time.NewTicker(m.lockPoll)
	defer ticker.Stop()

	for {
		release, acquired, err := locker.TryLock(ctx, m.refreshTimeout)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to take credential refresh lock", "error", err)
			m.recordRefresh(metrics.ResultStoreError)
			return nil, nil, dErrors.Wrap(err, dErrors.CodeCredentialUnavailable, "failed to take credential refresh lock")
		}
		if acquired {
			return nil, release, nil
		}

		select {
		case <-ctx.Done():
			return nil, nil, dErrors.Wrap(ctx.Err(), dErrors.CodeCredentialUnavailable, "timed out waiting for another worker to refresh the credential")
		case <-ticker.C:
		}

		cred, err := m.loadUsable(ctx)
		if err != nil {
			return nil, nil, err
		}
		if cred != nil {
			return cred, nil, nil
		}
	}
}

// authenticate calls the identity provider and persists the result.
func (m *Manager) authenticate(ctx context.Context) (models.AccessCredential, error) {
	start := time.Now()
	defer func() {
		if m.metrics != nil {
			m.metrics.ObserveRefreshDuration(time.Since(start))
		}
	}()

	cred, err := m.provider.Refresh(ctx, m.grant)
	if err != nil {
		m.logger.ErrorContext(ctx, "credential refresh failed", "error", err)
		m.recordRefresh(metrics.ResultProviderError)
		return models.AccessCredential{}, dErrors.Wrap(err, dErrors.CodeCredentialUnavailable, "failed to refresh access credential")
	}
	if cred == nil || cred.Token == "" || cred.ExpiresAt.IsZero() {
		m.logger.ErrorContext(ctx, "identity provider returned an incomplete credential")
		m.recordRefresh(metrics.ResultProviderError)
		return models.AccessCredential{}, dErrors.New(dErrors.CodeCredentialUnavailable, "identity provider returned an incomplete credential")
	}
	if cred.ObtainedAt.IsZero() {
		cred.ObtainedAt = m.clock().UTC()
	}

	if err := m.store.Save(ctx, *cred); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist refreshed credential", "error", err)
		m.recordRefresh(metrics.ResultStoreError)
		return models.AccessCredential{}, dErrors.Wrap(err, dErrors.CodeCredentialUnavailable, "failed to persist access credential")
	}

	m.recordRefresh(metrics.ResultSuccess)
	m.logger.InfoContext(ctx, "credential refreshed", "credential", *cred)
	return *cred, nil
}

// loadUsable returns the stored credential when it is usable today and nil
// when it is absent, corrupt or expired. Any other read failure is returned
// as CodeCredentialUnavailable.
func (m *Manager) loadUsable(ctx context.Context) (*models.AccessCredential, error) {
	cred, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	case errors.Is(err, store.ErrCorrupt):
		m.logger.WarnContext(ctx, "stored credential is corrupt; refreshing", "error", err)
		if m.metrics != nil {
			m.metrics.IncrementCorrupt()
		}
		return nil, nil
	case err != nil:
		m.logger.ErrorContext(ctx, "stored credential unreadable", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeCredentialUnavailable, "failed to read stored credential")
	}
	if !cred.UsableAt(m.clock()) {
		return nil, nil
	}
	return cred, nil
}

func (m *Manager) recordReuse() {
	if m.metrics != nil {
		m.metrics.IncrementReuse()
	}
}

func (m *Manager) recordRefresh(result string) {
	if m.metrics != nil {
		m.metrics.IncrementRefresh(result)
	}
}
