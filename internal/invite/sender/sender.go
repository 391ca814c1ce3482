// Package sender requests escalated invitations from the packet service.
package sender

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	credmodels "haulgate/internal/credential/models"
	"haulgate/internal/invite/models"
	id "haulgate/pkg/domain"
	"haulgate/pkg/platform/upstream"
)

const (
	serviceName    = "packet-invite"
	invitePath     = "/api/v1/carrier/getcustomerpacketwithsw"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

type Sender struct {
	baseURL string
	client  HTTPDoer
}

func New(cfg Config) *Sender {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Sender{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
	}
}

// inviteResponse is the packet service reply. Message is present only when
// an invitation was issued.
type inviteResponse struct {
	Message *string `json:"Message"`
}

// Send asks the packet service to invite the carrier.
//
// A reply without a Message means the carrier already completed the packet;
// that is reported as SendStatusAlreadyOnboarded, not as an error. Failures
// are *upstream.Error.
func (s *Sender) Send(ctx context.Context, dot id.DOTNumber, cred credmodels.AccessCredential) (models.Receipt, error) {
	q := url.Values{}
	q.Set("DOTNumber", dot.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+invitePath+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return models.Receipt{}, upstream.New(upstream.CategoryInternal, serviceName, "failed to create request", err)
	}
	req.Header.Set("Authorization", "bearer "+cred.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Receipt{}, upstream.FromTransport(ctx, serviceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Receipt{}, upstream.New(upstream.CategoryBadData, serviceName, "failed to read response", err)
	}
	if perr := upstream.FromStatus(serviceName, resp.StatusCode); perr != nil {
		return models.Receipt{}, perr
	}

	// An empty reply fails to decode like any other malformed one; only a
	// decoded reply without Message means the packet is already filled out.
	var ir inviteResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		return models.Receipt{}, upstream.New(upstream.CategoryBadData, serviceName, "failed to decode invite response", err)
	}
	if ir.Message == nil {
		return models.Receipt{Status: models.SendStatusAlreadyOnboarded}, nil
	}
	return models.Receipt{Status: models.SendStatusSent, Message: *ir.Message}, nil
}
