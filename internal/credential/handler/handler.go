package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"haulgate/internal/credential/models"
	"haulgate/pkg/platform/httputil"
	request "haulgate/pkg/platform/middleware/request"
)

type Service interface {
	Current(ctx context.Context) (models.Status, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/credential/status", h.HandleStatus)
}

// StatusResponse describes the stored credential. The token itself is never
// part of it.
type StatusResponse struct {
	Present    bool       `json:"present"`
	Usable     bool       `json:"usable"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	ObtainedAt *time.Time `json:"obtained_at,omitempty"`
}

// HandleStatus reports whether the stored credential is usable today. It does
// not trigger a refresh.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.service.Current(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential status failed", "error", err, "request_id", request.IDFromContext(ctx))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(status))
}

func toStatusResponse(s models.Status) *StatusResponse {
	res := &StatusResponse{Present: s.Present, Usable: s.Usable}
	if !s.ExpiresAt.IsZero() {
		t := s.ExpiresAt.UTC()
		res.ExpiresAt = &t
	}
	if !s.ObtainedAt.IsZero() {
		t := s.ObtainedAt.UTC()
		res.ObtainedAt = &t
	}
	return res
}
