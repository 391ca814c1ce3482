// Package app assembles the credential manager, registry client, invitation
// sender and invite service from configuration. The server and the batch CLI
// share it so both run with the same wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	credmetrics "haulgate/internal/credential/metrics"
	credmodels "haulgate/internal/credential/models"
	"haulgate/internal/credential/provider"
	credservice "haulgate/internal/credential/service"
	"haulgate/internal/credential/store"
	invitemetrics "haulgate/internal/invite/metrics"
	"haulgate/internal/invite/sender"
	inviteservice "haulgate/internal/invite/service"
	"haulgate/internal/platform/config"
	"haulgate/internal/platform/redis"
	regclient "haulgate/internal/registry/client"
	regmetrics "haulgate/internal/registry/metrics"
	"haulgate/pkg/platform/circuit"
	"haulgate/pkg/platform/tracer"
)

// App holds the long-lived components. Close releases network handles.
type App struct {
	Credentials *credservice.Manager
	Registry    *regclient.Client
	Invites     *inviteservice.Service
	Redis       *redis.Client
}

// Options tune assembly for the calling process.
type Options struct {
	Logger *slog.Logger
	// Registerer receives every collector; nil means the default registerer.
	Registerer prometheus.Registerer
	Tracer     tracer.Tracer
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	tr := opts.Tracer
	if tr == nil {
		tr = tracer.NewOTel()
	}

	a := &App{}
	var deps store.Dependencies
	if cfg.Credential.Driver == store.DriverRedis {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.Redis = client
		deps.Redis = client
	}
	st, err := store.New(store.Config{
		Driver:   cfg.Credential.Driver,
		FilePath: cfg.Credential.FilePath,
		RedisKey: cfg.Credential.RedisKey,
	}, deps)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("credential store: %w", err)
	}

	idp := provider.New(provider.Config{
		BaseURL: cfg.Packet.BaseURL,
		Timeout: cfg.Packet.Timeout,
	})
	a.Credentials = credservice.New(st, idp,
		credmodels.PasswordGrant{Username: cfg.Packet.Username, Password: cfg.Packet.Password},
		credservice.WithLogger(logger.With("component", "credential")),
		credservice.WithMetrics(credmetrics.New(reg)),
		credservice.WithRefreshTimeout(cfg.Credential.RefreshTimeout),
	)

	a.Registry = regclient.New(regclient.Config{
		BaseURL:     cfg.Registry.BaseURL,
		ServiceKey:  cfg.Registry.ServiceKey,
		CustomerKey: cfg.Registry.CustomerKey,
		Timeout:     cfg.Registry.Timeout,
	},
		regclient.WithLimiter(registryLimiter(cfg.Registry)),
		regclient.WithBreaker(circuit.New("registry",
			circuit.WithFailureThreshold(cfg.Registry.BreakerFailures),
			circuit.WithCooldown(cfg.Registry.BreakerCooldown),
		)),
		regclient.WithTracer(tr),
		regclient.WithMetrics(regmetrics.New(reg)),
		regclient.WithLogger(logger.With("component", "registry")),
	)

	invites := sender.New(sender.Config{
		BaseURL: cfg.Packet.BaseURL,
		Timeout: cfg.Packet.Timeout,
	})
	a.Invites = inviteservice.New(a.Credentials, a.Registry, invites,
		inviteservice.WithTimeout(cfg.Invite.Timeout),
		inviteservice.WithMetrics(invitemetrics.New(reg)),
		inviteservice.WithTracer(tr),
		inviteservice.WithLogger(logger.With("component", "invite")),
	)
	return a, nil
}

// registryLimiter paces registry calls. A zero rate disables pacing.
func registryLimiter(cfg config.Registry) *rate.Limiter {
	if cfg.RatePerSecond == 0 {
		return rate.NewLimiter(rate.Inf, cfg.Burst)
	}
	return rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close() //nolint:errcheck // shutdown path
	}
}
