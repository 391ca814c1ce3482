// Package service orchestrates escalated invites: it keeps the packet
// credential valid, looks the carrier up, decides eligibility and sends the
// invitation when the carrier qualifies.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	credmodels "haulgate/internal/credential/models"
	"haulgate/internal/eligibility"
	"haulgate/internal/invite/metrics"
	"haulgate/internal/invite/models"
	id "haulgate/pkg/domain"
	dErrors "haulgate/pkg/domain-errors"
	"haulgate/pkg/platform/middleware/requesttime"
	"haulgate/pkg/platform/tracer"
)

const defaultTimeout = 30 * time.Second

// CredentialSource yields a credential that is valid today.
type CredentialSource interface {
	EnsureValid(ctx context.Context) (credmodels.AccessCredential, error)
}

// RegistryLookup fetches the current regulatory record of a carrier.
type RegistryLookup interface {
	Fetch(ctx context.Context, dot id.DOTNumber) (*eligibility.CarrierRecord, error)
}

// InvitationSender issues the escalated invitation.
type InvitationSender interface {
	Send(ctx context.Context, dot id.DOTNumber, cred credmodels.AccessCredential) (models.Receipt, error)
}

type Service struct {
	credentials CredentialSource
	registry    RegistryLookup
	sender      InvitationSender
	timeout     time.Duration
	newID       func() uuid.UUID
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
	logger      *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithTimeout bounds a whole escalation. Default is 30s.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithIDGenerator overrides how correlation IDs are minted.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New creates the invite service. Panics if a required dependency is nil.
func New(credentials CredentialSource, registry RegistryLookup, sender InvitationSender, opts ...Option) *Service {
	if credentials == nil {
		panic("invite.New: credential source is required")
	}
	if registry == nil {
		panic("invite.New: registry lookup is required")
	}
	if sender == nil {
		panic("invite.New: invitation sender is required")
	}

	s := &Service{
		credentials: credentials,
		registry:    registry,
		sender:      sender,
		timeout:     defaultTimeout,
		newID:       uuid.New,
		tracer:      tracer.NewNoop(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Escalate runs the full escalated invite flow for one carrier.
//
// Every call validates the credential first. A non-eligible decision is an
// ordinary result with Invite.Status SendStatusSkipped.
//
// Errors: CodeCredentialUnavailable, CodeLookupFailure (including not found)
// and CodeInviteFailure, each wrapping the underlying cause.
func (s *Service) Escalate(ctx context.Context, dot id.DOTNumber) (_ *models.Result, err error) {
	correlationID := s.newID()
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, tracer.SpanInviteEscalate,
		tracer.String(tracer.AttrDOTNumber, dot.String()),
		tracer.String(tracer.AttrCorrelationID, correlationID.String()),
	)
	logger := s.logger.With("correlation_id", correlationID.String(), "dot_number", dot.String())

	var result *models.Result
	defer func() {
		label := metrics.ResultFailed
		if err == nil {
			label = string(result.Invite.Status)
			span.SetAttributes(tracer.String(tracer.AttrSendResult, label))
		}
		if s.metrics != nil {
			s.metrics.IncrementEscalation(label)
			s.metrics.ObserveEscalateDuration(time.Since(start))
		}
		span.End(err)
	}()

	cred, err := s.credentials.EnsureValid(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "escalation aborted: credential unavailable", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeCredentialUnavailable, "no usable packet credential")
	}

	evaluation, err := s.evaluate(ctx, dot, logger)
	if err != nil {
		return nil, err
	}
	result = &models.Result{
		CorrelationID: correlationID,
		Evaluation:    *evaluation,
		Invite:        models.Receipt{Status: models.SendStatusSkipped},
	}
	if !evaluation.Decision.IsEligible() {
		return result, nil
	}

	receipt, err := s.send(ctx, dot, cred)
	if err != nil {
		logger.ErrorContext(ctx, "invitation failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInviteFailure, "failed to send escalated invite")
	}
	result.Invite = receipt
	logger.InfoContext(ctx, "escalation finished", "invite_status", string(receipt.Status), "message", receipt.Message)
	return result, nil
}

// Evaluate looks the carrier up and decides eligibility without inviting.
// The packet credential is not needed and not touched.
func (s *Service) Evaluate(ctx context.Context, dot id.DOTNumber) (*models.Evaluation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.evaluate(ctx, dot, s.logger.With("dot_number", dot.String()))
}

func (s *Service) evaluate(ctx context.Context, dot id.DOTNumber, logger *slog.Logger) (_ *models.Evaluation, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanInviteEvaluate, tracer.String(tracer.AttrDOTNumber, dot.String()))
	defer func() { span.End(err) }()

	record, err := s.registry.Fetch(ctx, dot)
	if err != nil {
		logger.WarnContext(ctx, "carrier lookup failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeLookupFailure, "carrier lookup failed")
	}

	// One reference date per evaluation; request-scoped when served over HTTP.
	today := id.Day(requesttime.Now(ctx))
	decision := eligibility.Decide(*record, today)

	span.SetAttributes(
		tracer.String(tracer.AttrOutcome, string(decision.Outcome)),
		tracer.String(tracer.AttrReason, reasonLabel(decision)),
		tracer.Int64(tracer.AttrWaitDays, int64(decision.WaitDays)),
	)
	if s.metrics != nil {
		s.metrics.IncrementDecision(string(decision.Outcome), reasonLabel(decision))
	}
	logDecision(ctx, logger, decision)

	return &models.Evaluation{
		DOTNumber:   record.DOTNumber,
		LegalName:   record.LegalName,
		Decision:    decision,
		EvaluatedOn: today,
	}, nil
}

func (s *Service) send(ctx context.Context, dot id.DOTNumber, cred credmodels.AccessCredential) (_ models.Receipt, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanInviteSend, tracer.String(tracer.AttrDOTNumber, dot.String()))
	defer func() { span.End(err) }()
	return s.sender.Send(ctx, dot, cred)
}

// reasonLabel is the low-cardinality label describing why a decision came out
// the way it did.
func reasonLabel(d eligibility.Decision) string {
	switch d.Outcome {
	case eligibility.OutcomeIneligible:
		return string(d.Reason)
	case eligibility.OutcomeIndeterminate:
		return string(d.Cause)
	default:
		if d.Note != "" {
			return "lapse_allowance"
		}
		return "none"
	}
}

func logDecision(ctx context.Context, logger *slog.Logger, d eligibility.Decision) {
	switch d.Outcome {
	case eligibility.OutcomeEligible:
		logger.InfoContext(ctx, "carrier eligible", "outcome", d.Outcome, "note", d.Note)
	case eligibility.OutcomeIneligible:
		logger.InfoContext(ctx, "carrier ineligible", "outcome", d.Outcome, "reason", d.Reason, "wait_days", d.WaitDays)
	default:
		logger.WarnContext(ctx, "carrier needs manual review", "outcome", d.Outcome, "cause", d.Cause, "fields", d.Fields)
	}
}
