package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"haulgate/internal/invite/models"
	id "haulgate/pkg/domain"
	"haulgate/pkg/platform/httputil"
	request "haulgate/pkg/platform/middleware/request"
)

// Service is the invite orchestration the handler drives.
type Service interface {
	Escalate(ctx context.Context, dot id.DOTNumber) (*models.Result, error)
	Evaluate(ctx context.Context, dot id.DOTNumber) (*models.Evaluation, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/invites/escalate", h.HandleEscalate)
	r.Get("/carriers/{dot}/eligibility", h.HandleEligibility)
}

// HandleEscalate evaluates a carrier and sends the onboarding invite when it
// is eligible. Ineligible carriers are a 200 with invite status "skipped".
func (h *Handler) HandleEscalate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.IDFromContext(ctx)

	req, ok := httputil.DecodeJSON[EscalateRequest](w, r, h.logger)
	if !ok {
		return
	}

	res, err := h.service.Escalate(ctx, req.dot)
	if err != nil {
		h.logger.ErrorContext(ctx, "escalate invite failed", "error", err, "request_id", requestID, "dot_number", req.dot)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toEscalateResponse(res))
}

// HandleEligibility reports the decision for a carrier without sending
// anything.
func (h *Handler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.IDFromContext(ctx)

	dot, err := id.ParseDOTNumber(chi.URLParam(r, "dot"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	eval, err := h.service.Evaluate(ctx, dot)
	if err != nil {
		h.logger.ErrorContext(ctx, "evaluate carrier failed", "error", err, "request_id", requestID, "dot_number", dot)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toEvaluationResponse(eval))
}
