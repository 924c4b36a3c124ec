package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"go.uber.org/zap"
)

type errorResponse struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamStorage):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *ListingHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorResponse{Message: err.Error()}

	var denied *domain.AccessDeniedError
	if errors.As(err, &denied) {
		body.Reason = string(denied.Reason)
	}
	if code == http.StatusInternalServerError {
		body.Message = "internal server error"
	}

	fields := []zap.Field{zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err)}
	if code >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields...)
	} else {
		h.logger.Debug("Request rejected", fields...)
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
