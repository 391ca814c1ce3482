// Package provider implements the identity provider for the packet service:
// an OAuth-style password grant against its /token endpoint.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"haulgate/internal/credential/models"
	"haulgate/pkg/platform/upstream"
)

const (
	serviceName    = "packet-token"
	tokenPath      = "/token"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20

	// expiresLayout is the layout of the ".issued" and ".expires" fields.
	expiresLayout = time.RFC1123
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Clock      func() time.Time
}

// Client requests credentials from the token endpoint.
type Client struct {
	baseURL string
	client  HTTPDoer
	clock   func() time.Time
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		clock:   clock,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Issued      string `json:".issued"`
	Expires     string `json:".expires"`
}

type tokenError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// Refresh performs the password grant and returns the new credential.
//
// Errors are *upstream.Error: CategoryAuthentication for rejected logins,
// CategoryBadData when the response carries no token or no usable expiry,
// CategoryTimeout/CategoryOutage for transport failures.
func (c *Client) Refresh(ctx context.Context, grant models.PasswordGrant) (*models.AccessCredential, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", grant.Username)
	form.Set("password", grant.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, upstream.New(upstream.CategoryInternal, serviceName, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	requestedAt := c.clock()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, upstream.FromTransport(ctx, serviceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, upstream.New(upstream.CategoryBadData, serviceName, "failed to read response", err)
	}

	if perr := upstream.FromStatus(serviceName, resp.StatusCode); perr != nil {
		return nil, classifyRejection(perr, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, upstream.New(upstream.CategoryBadData, serviceName, "failed to decode token response", err)
	}
	return tr.credential(requestedAt)
}

// classifyRejection treats invalid_grant as an authentication failure; the
// token endpoint reports bad logins with 400 rather than 401.
func classifyRejection(perr *upstream.Error, body []byte) error {
	var te tokenError
	if json.Unmarshal(body, &te) == nil && te.Error == "invalid_grant" {
		perr.Category = upstream.CategoryAuthentication
		perr.Message = "login rejected"
		if te.Description != "" {
			perr.Message = "login rejected: " + te.Description
		}
	}
	return perr
}

func (tr tokenResponse) credential(requestedAt time.Time) (*models.AccessCredential, error) {
	if tr.AccessToken == "" {
		return nil, upstream.New(upstream.CategoryBadData, serviceName, "token response has no access_token", nil)
	}

	obtained := requestedAt.UTC()
	if issued, err := time.Parse(expiresLayout, tr.Issued); err == nil {
		obtained = issued.UTC()
	}

	var expires time.Time
	if parsed, err := time.Parse(expiresLayout, tr.Expires); err == nil {
		expires = parsed.UTC()
	} else if tr.ExpiresIn > 0 {
		expires = obtained.Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else {
		return nil, upstream.New(upstream.CategoryBadData, serviceName,
			fmt.Sprintf("token response has no usable expiry (.expires=%q)", tr.Expires), nil)
	}

	return &models.AccessCredential{
		Token:      tr.AccessToken,
		ExpiresAt:  expires,
		ObtainedAt: obtained,
	}, nil
}
