package handler

import (
	"strings"

	id "haulgate/pkg/domain"
	dErrors "haulgate/pkg/domain-errors"
)

type EscalateRequest struct {
	DOTNumber string `json:"dot_number"`

	dot id.DOTNumber
}

func (r *EscalateRequest) Normalize() {
	r.DOTNumber = strings.TrimSpace(r.DOTNumber)
}

// Validate parses the DOT number; the parsed value is kept on the request.
func (r *EscalateRequest) Validate() error {
	if r.DOTNumber == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "dot_number is required")
	}
	dot, err := id.ParseDOTNumber(r.DOTNumber)
	if err != nil {
		return err
	}
	r.dot = dot
	return nil
}
