package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"haulgate/internal/credential/models"
	"haulgate/pkg/platform/upstream"
)

type ProviderSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	handler http.HandlerFunc
	server  *httptest.Server
	release chan struct{}
	client  *Client
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderSuite))
}

func (s *ProviderSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	s.release = make(chan struct{})
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))
	s.client = New(Config{
		BaseURL: s.server.URL + "/",
		Timeout: time.Second,
		Clock:   func() time.Time { return s.now },
	})
}

func (s *ProviderSuite) TearDownTest() {
	// Unblock stalled handlers so Close does not wait on them.
	close(s.release)
	s.server.Close()
}

func (s *ProviderSuite) respond(status int, body string) {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

var grant = models.PasswordGrant{Username: "broker", Password: "s3cret"}

func (s *ProviderSuite) TestRefreshSendsPasswordGrant() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/token", r.URL.Path)
		s.Equal("application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		s.Require().NoError(r.ParseForm())
		s.Equal("password", r.PostForm.Get("grant_type"))
		s.Equal("broker", r.PostForm.Get("username"))
		s.Equal("s3cret", r.PostForm.Get("password"))
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":1209599,` +
			`".issued":"Wed, 14 Oct 2026 18:00:00 GMT",".expires":"Wed, 28 Oct 2026 18:00:00 GMT"}`))
	}

	cred, err := s.client.Refresh(s.ctx, grant)
	s.Require().NoError(err)
	s.Equal("tok", cred.Token)
	s.True(time.Date(2026, 10, 28, 18, 0, 0, 0, time.UTC).Equal(cred.ExpiresAt))
	s.True(time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC).Equal(cred.ObtainedAt))
}

func (s *ProviderSuite) TestRefreshExpiryFallbacks() {
	s.Run("expires_in when .expires is absent", func() {
		s.respond(http.StatusOK, `{"access_token":"tok","expires_in":86400}`)
		cred, err := s.client.Refresh(s.ctx, grant)
		s.Require().NoError(err)
		s.True(s.now.Add(24 * time.Hour).Equal(cred.ExpiresAt))
		s.True(s.now.Equal(cred.ObtainedAt))
	})

	s.Run("no parsable expiry fails", func() {
		s.respond(http.StatusOK, `{"access_token":"tok",".expires":"next tuesday"}`)
		_, err := s.client.Refresh(s.ctx, grant)
		s.Require().Error(err)
		s.Equal(upstream.CategoryBadData, upstream.CategoryOf(err))
	})

	s.Run("missing token fails", func() {
		s.respond(http.StatusOK, `{"expires_in":86400}`)
		_, err := s.client.Refresh(s.ctx, grant)
		s.Equal(upstream.CategoryBadData, upstream.CategoryOf(err))
	})

	s.Run("non-JSON body fails", func() {
		s.respond(http.StatusOK, `<html>maintenance</html>`)
		_, err := s.client.Refresh(s.ctx, grant)
		s.Equal(upstream.CategoryBadData, upstream.CategoryOf(err))
	})
}

func (s *ProviderSuite) TestRefreshRejections() {
	tests := []struct {
		name     string
		status   int
		body     string
		expected upstream.Category
	}{
		{"invalid grant", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"The user name or password is incorrect."}`, upstream.CategoryAuthentication},
		{"other bad request", http.StatusBadRequest, `{"error":"unsupported_grant_type"}`, upstream.CategoryBadData},
		{"unauthorized", http.StatusUnauthorized, ``, upstream.CategoryAuthentication},
		{"outage", http.StatusServiceUnavailable, ``, upstream.CategoryOutage},
		{"throttled", http.StatusTooManyRequests, ``, upstream.CategoryRateLimited},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.respond(tt.status, tt.body)
			_, err := s.client.Refresh(s.ctx, grant)
			s.Require().Error(err)
			s.Equal(tt.expected, upstream.CategoryOf(err))
			s.NotContains(err.Error(), "s3cret")
		})
	}
}

func (s *ProviderSuite) TestRefreshTransportFailure() {
	s.Run("timeout", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			select {
			case <-r.Context().Done():
			case <-s.release:
			}
		}
		ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
		defer cancel()
		_, err := s.client.Refresh(ctx, grant)
		s.Equal(upstream.CategoryTimeout, upstream.CategoryOf(err))
		s.True(upstream.IsTransient(err))
	})

	s.Run("connection refused", func() {
		client := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
		_, err := client.Refresh(s.ctx, grant)
		s.Equal(upstream.CategoryOutage, upstream.CategoryOf(err))
	})
}
