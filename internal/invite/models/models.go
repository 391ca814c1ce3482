package models

import (
	"time"

	"github.com/google/uuid"

	"haulgate/internal/eligibility"
	id "haulgate/pkg/domain"
)

// SendStatus is what happened to the invitation step of an escalation.
type SendStatus string

const (
	// SendStatusSent means the packet service issued the invitation.
	SendStatusSent SendStatus = "sent"
	// SendStatusAlreadyOnboarded means the carrier already completed the
	// packet, so there was nothing to send.
	SendStatusAlreadyOnboarded SendStatus = "already_onboarded"
	// SendStatusSkipped means the decision was not eligible and no call was made.
	SendStatusSkipped SendStatus = "skipped"
)

// Receipt is the packet service's answer to an invitation request.
type Receipt struct {
	Status  SendStatus
	Message string
}

// Evaluation is a decision together with the record facts it was made on.
type Evaluation struct {
	DOTNumber   id.DOTNumber
	LegalName   string
	Decision    eligibility.Decision
	EvaluatedOn time.Time
}

// Result is the outcome of one escalated invite attempt.
type Result struct {
	CorrelationID uuid.UUID
	Evaluation
	Invite Receipt
}

// Invited reports whether this attempt caused an invitation to be issued.
func (r Result) Invited() bool {
	return r.Invite.Status == SendStatusSent
}
