package handler

import (
	"haulgate/internal/eligibility"
	"haulgate/internal/invite/models"
	id "haulgate/pkg/domain"
)

type DecisionResponse struct {
	Outcome  eligibility.Outcome `json:"outcome"`
	Reason   eligibility.Reason  `json:"reason,omitempty"`
	WaitDays int                 `json:"wait_days,omitempty"`
	Note     string              `json:"note,omitempty"`
	Cause    eligibility.Cause   `json:"cause,omitempty"`
	Fields   map[string]string   `json:"fields,omitempty"`
	Message  string              `json:"message,omitempty"`
}

type EvaluationResponse struct {
	DOTNumber   string           `json:"dot_number"`
	LegalName   string           `json:"legal_name,omitempty"`
	EvaluatedOn string           `json:"evaluated_on"`
	Decision    DecisionResponse `json:"decision"`
}

type InviteResponse struct {
	Status  models.SendStatus `json:"status"`
	Message string            `json:"message,omitempty"`
}

type EscalateResponse struct {
	CorrelationID string `json:"correlation_id"`
	EvaluationResponse
	Invite InviteResponse `json:"invite"`
}

func toDecisionResponse(d eligibility.Decision) DecisionResponse {
	return DecisionResponse{
		Outcome:  d.Outcome,
		Reason:   d.Reason,
		WaitDays: d.WaitDays,
		Note:     d.Note,
		Cause:    d.Cause,
		Fields:   d.Fields,
		Message:  d.Message,
	}
}

func toEvaluationResponse(e *models.Evaluation) *EvaluationResponse {
	return &EvaluationResponse{
		DOTNumber:   e.DOTNumber.String(),
		LegalName:   e.LegalName,
		EvaluatedOn: e.EvaluatedOn.Format(id.DateLayout),
		Decision:    toDecisionResponse(e.Decision),
	}
}

func toEscalateResponse(r *models.Result) *EscalateResponse {
	return &EscalateResponse{
		CorrelationID:      r.CorrelationID.String(),
		EvaluationResponse: *toEvaluationResponse(&r.Evaluation),
		Invite: InviteResponse{
			Status:  r.Invite.Status,
			Message: r.Invite.Message,
		},
	}
}
