package models

import (
	"log/slog"
	"time"

	id "haulgate/pkg/domain"
)

// AccessCredential is the bearer token used against the packet service API.
//
// Expiry is judged at day granularity in UTC: a credential is usable only
// while the calendar date of ExpiresAt is strictly later than today's. A token
// whose expiry falls later today is therefore already treated as expired.
type AccessCredential struct {
	Token      string    `json:"access_token"`
	ExpiresAt  time.Time `json:"expires_at"`
	ObtainedAt time.Time `json:"obtained_at"`
}

// UsableAt reports whether the credential may still be presented at now.
func (c AccessCredential) UsableAt(now time.Time) bool {
	if c.Token == "" || c.ExpiresAt.IsZero() {
		return false
	}
	return id.Day(c.ExpiresAt.UTC()).After(id.Day(now.UTC()))
}

// LogValue keeps the token out of structured logs.
func (c AccessCredential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("expires_at", c.ExpiresAt),
		slog.Time("obtained_at", c.ObtainedAt),
	)
}

// PasswordGrant holds the packet service API login used to mint credentials.
// Supplied once at startup and never mutated.
type PasswordGrant struct {
	Username string
	Password string
}

// LogValue keeps the password out of structured logs.
func (g PasswordGrant) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", g.Username))
}

// Status is the token-free view of the stored credential.
type Status struct {
	Present    bool
	Usable     bool
	ExpiresAt  time.Time
	ObtainedAt time.Time
}
