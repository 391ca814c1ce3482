// Package store holds the single cached access credential.
//
// Every driver keeps at most one record and overwrites it wholesale on Save;
// there is no delete. A missing record is reported as ErrNotFound so the
// manager can treat first runs as "expired".
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"haulgate/internal/credential/models"
)

var (
	// ErrNotFound means no credential has been stored yet.
	ErrNotFound = errors.New("credential not found")
	// ErrCorrupt means a stored record exists but cannot be decoded.
	ErrCorrupt = errors.New("credential record corrupt")
)

// Store persists the cached access credential.
type Store interface {
	Load(ctx context.Context) (*models.AccessCredential, error)
	Save(ctx context.Context, cred models.AccessCredential) error
	Health(ctx context.Context) error
}

// Locker is implemented by drivers whose record is shared between processes.
// The manager holds the lock around a refresh so that only one worker
// authenticates at a time.
type Locker interface {
	// TryLock takes the refresh lock for at most ttl without waiting. When
	// acquired is true, release drops the lock if it has not expired and
	// passed to another holder.
	TryLock(ctx context.Context, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// Driver identifiers.
const (
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config selects and configures a driver.
type Config struct {
	Driver   string
	FilePath string
	RedisKey string
}

// Dependencies carries handles required by networked drivers.
type Dependencies struct {
	Redis RedisClient
}

// New builds the store selected by cfg.Driver.
func New(cfg Config, deps Dependencies) (Store, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return NewFile(cfg.FilePath)
	case DriverRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis credential store requires a redis client")
		}
		return NewRedis(deps.Redis, cfg.RedisKey), nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported credential store driver %q", cfg.Driver)
	}
}

// document is the persisted layout shared by the file and redis drivers.
type document struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	ObtainedAt  time.Time `json:"obtained_at"`
}

func toDocument(cred models.AccessCredential) document {
	return document{
		AccessToken: cred.Token,
		ExpiresAt:   cred.ExpiresAt.UTC(),
		ObtainedAt:  cred.ObtainedAt.UTC(),
	}
}

func (d document) credential() (*models.AccessCredential, error) {
	if d.AccessToken == "" || d.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("%w: missing token or expiry", ErrCorrupt)
	}
	return &models.AccessCredential{
		Token:      d.AccessToken,
		ExpiresAt:  d.ExpiresAt,
		ObtainedAt: d.ObtainedAt,
	}, nil
}

func validate(cred models.AccessCredential) error {
	if cred.Token == "" {
		return fmt.Errorf("credential token is required")
	}
	if cred.ExpiresAt.IsZero() {
		return fmt.Errorf("credential expiry is required")
	}
	return nil
}
