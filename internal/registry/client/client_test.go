package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"golang.org/x/time/rate"

	"haulgate/internal/registry/metrics"
	id "haulgate/pkg/domain"
	dErrors "haulgate/pkg/domain-errors"
	"haulgate/pkg/platform/circuit"
	"haulgate/pkg/platform/upstream"
)

type ClientSuite struct {
	suite.Suite
	ctx     context.Context
	hits    atomic.Int32
	method  string
	query   url.Values
	path    string
	status  int
	body    string
	server  *httptest.Server
	metrics *metrics.Metrics
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx = context.Background()
	s.hits.Store(0)
	s.status = http.StatusOK
	s.body = fullLookup
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.method, s.path, s.query = r.Method, r.URL.Path, r.URL.Query()
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(s.body))
	}))
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) newClient(opts ...Option) *Client {
	opts = append([]Option{WithMetrics(s.metrics)}, opts...)
	return New(Config{
		BaseURL:     s.server.URL,
		ServiceKey:  "svc-key",
		CustomerKey: "cust-key",
		Timeout:     time.Second,
	}, opts...)
}

func (s *ClientSuite) TestFetchSendsLookupRequest() {
	rec, err := s.newClient().Fetch(s.ctx, id.DOTNumber("1234567"))
	s.Require().NoError(err)
	s.Equal("Sample Freight LLC", rec.LegalName)

	s.Equal(http.MethodPost, s.method)
	s.Equal(lookupPath, s.path)
	q := s.query
	s.Equal("CarrierLookup", q.Get("Action"))
	s.Equal("svc-key", q.Get("ServiceKey"))
	s.Equal("cust-key", q.Get("CustomerKey"))
	s.Equal("1234567", q.Get("number"))
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.LookupsTotal.WithLabelValues(metrics.ResultFound)))
}

func (s *ClientSuite) TestFetchNotFound() {
	s.body = `<CarrierService32><ResponseDO><status>SUCCESS</status></ResponseDO></CarrierService32>`

	_, err := s.newClient().Fetch(s.ctx, id.DOTNumber("99"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLookupFailure))
	s.Equal(upstream.CategoryNotFound, upstream.CategoryOf(err))
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.LookupsTotal.WithLabelValues(string(upstream.CategoryNotFound))))
}

func (s *ClientSuite) TestFetchStatusMapping() {
	tests := []struct {
		status   int
		expected upstream.Category
	}{
		{http.StatusUnauthorized, upstream.CategoryAuthentication},
		{http.StatusNotFound, upstream.CategoryNotFound},
		{http.StatusTooManyRequests, upstream.CategoryRateLimited},
		{http.StatusBadGateway, upstream.CategoryOutage},
		{http.StatusTeapot, upstream.CategoryInternal},
	}
	for _, tt := range tests {
		s.Run(http.StatusText(tt.status), func() {
			s.status = tt.status
			_, err := s.newClient().Fetch(s.ctx, id.DOTNumber("1"))
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeLookupFailure))
			s.Equal(tt.expected, upstream.CategoryOf(err))
		})
	}
}

func (s *ClientSuite) TestBreakerShortCircuitsOutages() {
	s.status = http.StatusServiceUnavailable
	c := s.newClient(WithBreaker(circuit.New("registry", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))))

	for i := 0; i < 2; i++ {
		_, err := c.Fetch(s.ctx, id.DOTNumber("1"))
		s.Equal(upstream.CategoryOutage, upstream.CategoryOf(err))
	}
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.CircuitOpen))
	s.Error(c.Health(s.ctx))

	_, err := c.Fetch(s.ctx, id.DOTNumber("1"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLookupFailure))
	s.Equal(upstream.CategoryCircuitOpen, upstream.CategoryOf(err))
	s.True(upstream.IsTransient(err))
	s.Equal(int32(2), s.hits.Load(), "open circuit must not reach the registry")
}

func (s *ClientSuite) TestNotFoundDoesNotTripBreaker() {
	s.status = http.StatusNotFound
	c := s.newClient(WithBreaker(circuit.New("registry", circuit.WithFailureThreshold(1))))

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(s.ctx, id.DOTNumber("1"))
		s.Equal(upstream.CategoryNotFound, upstream.CategoryOf(err))
	}
	s.Equal(int32(3), s.hits.Load())
	s.NoError(c.Health(s.ctx))
}

func (s *ClientSuite) TestLimiterWaitHonorsContext() {
	c := s.newClient(WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))

	_, err := c.Fetch(s.ctx, id.DOTNumber("1"))
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, id.DOTNumber("1"))
	s.Require().Error(err)
	s.Equal(upstream.CategoryTimeout, upstream.CategoryOf(err))
	s.Equal(int32(1), s.hits.Load())
}

func (s *ClientSuite) TestTransportErrorsHideServiceKeys() {
	c := New(Config{BaseURL: "http://127.0.0.1:1", ServiceKey: "svc-key", CustomerKey: "cust-key", Timeout: time.Second})

	_, err := c.Fetch(s.ctx, id.DOTNumber("1"))
	s.Require().Error(err)
	s.Equal(upstream.CategoryOutage, upstream.CategoryOf(err))
	s.NotContains(err.Error(), "svc-key")
	s.NotContains(err.Error(), "cust-key")
}
