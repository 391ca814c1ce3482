package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "haulgate/pkg/domain-errors"
	"haulgate/pkg/platform/upstream"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error       string `json:"error"`
	Category    string `json:"category,omitempty"`
	Description string `json:"error_description,omitempty"`
	Retryable   bool   `json:"retryable,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding error cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates a domain error into an HTTP reply. Errors without a
// domain code are reported as internal errors without detail.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
		return
	}

	response := ErrorResponse{
		Error:       string(domainErr.Code),
		Description: domainErr.Message,
	}
	var ue *upstream.Error
	if errors.As(err, &ue) {
		response.Category = string(ue.Category)
		response.Retryable = ue.Transient()
	}
	WriteJSON(w, ErrorStatus(err), response)
}

// ErrorStatus picks the HTTP status for err. Lookup failures split on the
// upstream category: a carrier the registry does not know is 404, anything
// else is a bad gateway.
func ErrorStatus(err error) int {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeLookupFailure && upstream.CategoryOf(err) == upstream.CategoryNotFound {
		return http.StatusNotFound
	}
	return DomainCodeToHTTPStatus(code)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeCredentialUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeLookupFailure, dErrors.CodeInviteFailure:
		return http.StatusBadGateway
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
