// Package batch escalates a list of carriers with bounded parallelism.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"haulgate/internal/invite/models"
	id "haulgate/pkg/domain"
	dErrors "haulgate/pkg/domain-errors"
	"haulgate/pkg/platform/upstream"
)

const DefaultConcurrency = 4

type Escalator interface {
	Escalate(ctx context.Context, dot id.DOTNumber) (*models.Result, error)
}

// Outcome is one line of a batch report. Exactly one of Result and Err is set.
type Outcome struct {
	DOTNumber id.DOTNumber
	Result    *models.Result
	Err       error
}

// ErrorCode returns the domain code of a failed outcome.
func (o Outcome) ErrorCode() dErrors.Code { return dErrors.CodeOf(o.Err) }

// Retryable reports whether a failed outcome is worth scheduling again.
func (o Outcome) Retryable() bool {
	return o.Err != nil && (upstream.IsTransient(o.Err) || dErrors.HasCode(o.Err, dErrors.CodeCredentialUnavailable))
}

// Run escalates every DOT number, at most concurrency at a time, and returns
// outcomes in input order. A failed escalation does not stop the others;
// only ctx cancellation does, leaving the remaining outcomes with ctx's error.
func Run(ctx context.Context, svc Escalator, dots []id.DOTNumber, concurrency int) []Outcome {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	outcomes := make([]Outcome, len(dots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, dot := range dots {
		outcomes[i].DOTNumber = dot
		if gctx.Err() != nil {
			outcomes[i].Err = dErrors.Wrap(gctx.Err(), dErrors.CodeTimeout, "batch cancelled")
			continue
		}
		g.Go(func() error {
			res, err := svc.Escalate(gctx, dot)
			outcomes[i].Result, outcomes[i].Err = res, err
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors
	return outcomes
}
