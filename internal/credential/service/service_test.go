package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"haulgate/internal/credential/metrics"
	"haulgate/internal/credential/models"
	"haulgate/internal/credential/store"
	dErrors "haulgate/pkg/domain-errors"
	"haulgate/pkg/platform/upstream"
	"haulgate/pkg/testutil"
)

type fakeProvider struct {
	calls   atomic.Int32
	err     error
	expires time.Time
	release chan struct{}
	mu      sync.Mutex
	grants  []models.PasswordGrant
}

func (p *fakeProvider) Refresh(ctx context.Context, grant models.PasswordGrant) (*models.AccessCredential, error) {
	n := p.calls.Add(1)
	p.mu.Lock()
	p.grants = append(p.grants, grant)
	p.mu.Unlock()
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return &models.AccessCredential{
		Token:     "fresh-" + string(rune('0'+n)),
		ExpiresAt: p.expires,
	}, nil
}

type failingStore struct {
	store.Store
	saveErr error
	loadErr error
}

func (f failingStore) Load(ctx context.Context) (*models.AccessCredential, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.Store.Load(ctx)
}

func (f failingStore) Save(ctx context.Context, cred models.AccessCredential) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save(ctx, cred)
}

type ManagerSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	store    *store.Memory
	provider *fakeProvider
	metrics  *metrics.Metrics
	manager  *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	s.store = store.NewMemory()
	s.provider = &fakeProvider{expires: s.now.AddDate(0, 0, 14)}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.manager = s.newManager(s.store)
}

func (s *ManagerSuite) newManager(st store.Store) *Manager {
	return New(st, s.provider, models.PasswordGrant{Username: "broker", Password: "pw"},
		WithClock(func() time.Time { return s.now }),
		WithMetrics(s.metrics),
		WithRefreshTimeout(time.Second),
	)
}

func (s *ManagerSuite) seed(token string, expires time.Time) {
	s.Require().NoError(s.store.Save(s.ctx, models.AccessCredential{Token: token, ExpiresAt: expires}))
}

func (s *ManagerSuite) TestEnsureValidReusesCredentialExpiringTomorrow() {
	s.seed("cached", time.Date(2026, 10, 15, 0, 0, 1, 0, time.UTC))

	cred, err := s.manager.EnsureValid(s.ctx)
	s.Require().NoError(err)
	s.Equal("cached", cred.Token)
	s.Equal(int32(0), s.provider.calls.Load())
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.ReusesTotal))
}

func (s *ManagerSuite) TestEnsureValidRefreshesCredentialExpiringToday() {
	s.seed("stale", time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC))

	cred, err := s.manager.EnsureValid(s.ctx)
	s.Require().NoError(err)
	s.Equal("fresh-1", cred.Token)
	s.Equal(int32(1), s.provider.calls.Load())
	s.True(s.now.Equal(cred.ObtainedAt), "obtained_at defaults to the refresh time")

	stored, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal("fresh-1", stored.Token)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.RefreshesTotal.WithLabelValues(metrics.ResultSuccess)))

	s.Run("second call reuses the refreshed credential", func() {
		again, err := s.manager.EnsureValid(s.ctx)
		s.Require().NoError(err)
		s.Equal("fresh-1", again.Token)
		s.Equal(int32(1), s.provider.calls.Load())
	})
}

func (s *ManagerSuite) TestEnsureValidFirstRun() {
	cred, err := s.manager.EnsureValid(s.ctx)
	s.Require().NoError(err)
	s.Equal("fresh-1", cred.Token)
	s.Equal([]models.PasswordGrant{{Username: "broker", Password: "pw"}}, s.provider.grants)
}

func (s *ManagerSuite) TestEnsureValidPastExpiry() {
	s.seed("old", s.now.AddDate(0, 0, -3))

	cred, err := s.manager.EnsureValid(s.ctx)
	s.Require().NoError(err)
	s.Equal("fresh-1", cred.Token)
}

func (s *ManagerSuite) TestEnsureValidProviderFailure() {
	s.seed("stale", s.now)
	s.provider.err = upstream.New(upstream.CategoryAuthentication, "packet-token", "login rejected", nil)

	_, err := s.manager.EnsureValid(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCredentialUnavailable))
	s.Equal(upstream.CategoryAuthentication, upstream.CategoryOf(err))
	s.Equal(int32(1), s.provider.calls.Load(), "no automatic retry")

	stored, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal("stale", stored.Token, "failed refresh leaves the stored record alone")
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.RefreshesTotal.WithLabelValues(metrics.ResultProviderError)))
}

func (s *ManagerSuite) TestEnsureValidIncompleteCredential() {
	s.provider.expires = time.Time{}

	_, err := s.manager.EnsureValid(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeCredentialUnavailable))
}

func (s *ManagerSuite) TestEnsureValidSaveFailure() {
	m := s.newManager(failingStore{Store: s.store, saveErr: errors.New("disk full")})

	_, err := m.EnsureValid(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCredentialUnavailable))
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.RefreshesTotal.WithLabelValues(metrics.ResultStoreError)))
}

func (s *ManagerSuite) TestEnsureValidCorruptOrUnreadableStore() {
	s.Run("corrupt record is refreshed", func() {
		m := s.newManager(failingStore{Store: s.store, loadErr: store.ErrCorrupt})
		cred, err := m.EnsureValid(s.ctx)
		s.Require().NoError(err)
		s.NotEmpty(cred.Token)
		// Counted once on the first read and once on the in-flight re-read.
		s.Equal(float64(2), promtest.ToFloat64(s.metrics.CorruptRecordsTotal))
	})

	s.Run("unreadable store is unavailable without refreshing", func() {
		calls := s.provider.calls.Load()
		m := s.newManager(failingStore{Store: s.store, loadErr: errors.New("permission denied")})
		_, err := m.EnsureValid(s.ctx)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCredentialUnavailable))
		s.ErrorContains(err, "permission denied")
		s.Equal(calls, s.provider.calls.Load())
	})
}

func (s *ManagerSuite) TestEnsureValidConcurrentCallersShareOneRefresh() {
	s.seed("stale", s.now)
	s.provider.release = make(chan struct{})

	go func() {
		// Let every caller reach the flight before it completes.
		for s.provider.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(20 * time.Millisecond)
		close(s.provider.release)
	}()

	tokens := make([]string, 16)
	result := testutil.RunConcurrent(16, func(idx int) error {
		cred, err := s.manager.EnsureValid(s.ctx)
		tokens[idx] = cred.Token
		return err
	})

	s.Equal(int32(16), result.Successes)
	s.Equal(int32(1), s.provider.calls.Load())
	for _, tok := range tokens {
		s.Equal("fresh-1", tok)
	}
}

// A caller that loaded the stale record before another caller's flight
// finished must not authenticate a second time.
func (s *ManagerSuite) TestRefreshRechecksStore() {
	s.seed("fresh-elsewhere", s.now.AddDate(0, 0, 7))

	cred, err := s.manager.refresh(s.ctx)
	s.Require().NoError(err)
	s.Equal("fresh-elsewhere", cred.Token)
	s.Equal(int32(0), s.provider.calls.Load())
}

func (s *ManagerSuite) TestEnsureValidCallerCancellation() {
	s.provider.release = make(chan struct{})
	defer close(s.provider.release)

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	_, err := s.manager.EnsureValid(ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCredentialUnavailable))
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *ManagerSuite) newRedisManager(client *redis.Client, opts ...Option) *Manager {
	opts = append([]Option{
		WithClock(func() time.Time { return s.now }),
		WithMetrics(s.metrics),
		WithRefreshTimeout(time.Second),
		WithLockPollInterval(5 * time.Millisecond),
	}, opts...)
	return New(store.NewRedis(client, ""), s.provider, models.PasswordGrant{Username: "broker", Password: "pw"}, opts...)
}

func (s *ManagerSuite) TestEnsureValidWorkersSharingRedisRefreshOnce() {
	mr := miniredis.RunT(s.T())
	workers := make([]*Manager, 2)
	for i := range workers {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		s.T().Cleanup(func() { _ = client.Close() })
		workers[i] = s.newRedisManager(client)
	}
	s.provider.release = make(chan struct{})

	go func() {
		for s.provider.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(30 * time.Millisecond)
		close(s.provider.release)
	}()

	tokens := make([]string, 8)
	result := testutil.RunConcurrent(8, func(idx int) error {
		cred, err := workers[idx%2].EnsureValid(s.ctx)
		tokens[idx] = cred.Token
		return err
	})

	s.Equal(int32(8), result.Successes)
	s.Equal(int32(1), s.provider.calls.Load())
	for _, tok := range tokens {
		s.Equal("fresh-1", tok)
	}
	s.False(mr.Exists(store.DefaultRedisKey+":lock"), "lock is released after the refresh")
}

func (s *ManagerSuite) TestEnsureValidWaitsOutLockHeldElsewhere() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })
	s.Require().NoError(mr.Set(store.DefaultRedisKey+":lock", "another-worker"))

	m := s.newRedisManager(client, WithRefreshTimeout(50*time.Millisecond))
	_, err := m.EnsureValid(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCredentialUnavailable))
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Equal(int32(0), s.provider.calls.Load())

	val, err := mr.Get(store.DefaultRedisKey + ":lock")
	s.Require().NoError(err)
	s.Equal("another-worker", val, "a waiter never drops a lock it does not own")
}

func (s *ManagerSuite) TestCurrent() {
	s.Run("absent", func() {
		st, err := s.manager.Current(s.ctx)
		s.Require().NoError(err)
		s.False(st.Present)
		s.False(st.Usable)
	})

	s.Run("present and usable", func() {
		s.seed("tok", s.now.AddDate(0, 0, 2))
		st, err := s.manager.Current(s.ctx)
		s.Require().NoError(err)
		s.True(st.Present)
		s.True(st.Usable)
	})

	s.Run("present but expiring today", func() {
		s.seed("tok", s.now.Add(time.Hour))
		st, err := s.manager.Current(s.ctx)
		s.Require().NoError(err)
		s.True(st.Present)
		s.False(st.Usable)
	})

	s.Run("does not refresh", func() {
		s.Equal(int32(0), s.provider.calls.Load())
	})
}

func (s *ManagerSuite) TestNewPanicsOnMissingDependencies() {
	s.Panics(func() { New(nil, s.provider, models.PasswordGrant{}) })
	s.Panics(func() { New(s.store, nil, models.PasswordGrant{}) })
}
