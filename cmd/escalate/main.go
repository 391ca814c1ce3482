// Command escalate sends escalated onboarding invites for a list of carriers.
//
//	escalate [-concurrency 4] [-file dots.yaml] [-as-of 2026-01-31] [DOT ...]
//
// One JSON report line per carrier is written to stdout; logs go to stderr.
// The exit status is 1 when any escalation failed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"haulgate/internal/app"
	"haulgate/internal/invite/batch"
	"haulgate/internal/platform/config"
	"haulgate/internal/platform/logger"
	id "haulgate/pkg/domain"
	"haulgate/pkg/platform/middleware/requesttime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintln(os.Stderr, "escalate:", err)
		}
		os.Exit(1)
	}
}

var errFailures = errors.New("one or more escalations failed")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("escalate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	concurrency := fs.Int("concurrency", batch.DefaultConcurrency, "maximum escalations in flight")
	file := fs.String("file", "", "YAML file listing DOT numbers")
	envFile := fs.String("env", ".env", "optional .env file")
	asOf := fs.String("as-of", "", "evaluate as of this date (YYYY-MM-DD) instead of today")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dots, err := collectDOTs(*file, fs.Args())
	if err != nil {
		return err
	}
	if len(dots) == 0 {
		return errors.New("no DOT numbers given; pass them as arguments or with -file")
	}
	if *asOf != "" {
		day, err := id.ParseDate(*asOf)
		if err != nil {
			return fmt.Errorf("-as-of: %w", err)
		}
		ctx = requesttime.WithTime(ctx, day)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel) //nolint:errcheck // validated by Load
	log := logger.NewWithWriter(stderr, level)

	services, err := app.New(ctx, cfg, app.Options{Logger: log})
	if err != nil {
		return err
	}
	defer services.Close()

	log.InfoContext(ctx, "escalating carriers", "count", len(dots), "concurrency", *concurrency)
	outcomes := batch.Run(ctx, services.Invites, dots, *concurrency)
	failed, err := writeReport(stdout, outcomes)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "batch finished", "count", len(outcomes), "failed", failed)
	if failed > 0 {
		return errFailures
	}
	return nil
}

// reportLine is the stdout record for one carrier.
type reportLine struct {
	DOTNumber     string `json:"dot_number"`
	CorrelationID string `json:"correlation_id,omitempty"`
	LegalName     string `json:"legal_name,omitempty"`
	Outcome       string `json:"outcome,omitempty"`
	Reason        string `json:"reason,omitempty"`
	WaitDays      int    `json:"wait_days,omitempty"`
	Cause         string `json:"cause,omitempty"`
	Note          string `json:"note,omitempty"`
	Invite        string `json:"invite,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
}

func writeReport(w io.Writer, outcomes []batch.Outcome) (failed int, err error) {
	enc := json.NewEncoder(w)
	for _, o := range outcomes {
		line := reportLine{DOTNumber: o.DOTNumber.String()}
		if o.Err != nil {
			failed++
			line.Error = o.Err.Error()
			line.ErrorCode = string(o.ErrorCode())
			line.Retryable = o.Retryable()
		} else {
			d := o.Result.Decision
			line.CorrelationID = o.Result.CorrelationID.String()
			line.LegalName = o.Result.LegalName
			line.Outcome = string(d.Outcome)
			line.Reason = string(d.Reason)
			line.WaitDays = d.WaitDays
			line.Cause = string(d.Cause)
			line.Note = d.Note
			line.Invite = string(o.Result.Invite.Status)
		}
		if err := enc.Encode(line); err != nil {
			return failed, fmt.Errorf("write report: %w", err)
		}
	}
	return failed, nil
}
