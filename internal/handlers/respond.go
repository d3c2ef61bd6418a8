// Package handlers exposes the marketplace services as a JSON API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"event-marketplace/internal/middleware"
	"event-marketplace/internal/models"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type apiError struct {
	status     int
	code       string
	retryAfter int
}

// errorStatus maps a service error onto its HTTP status and a stable code.
// Order matters: ReservationError and ValidationError unwrap to sentinels.
func errorStatus(err error) apiError {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return apiError{status: http.StatusBadRequest, code: "invalid_input"}
	case errors.Is(err, models.ErrUnauthenticated):
		return apiError{status: http.StatusUnauthorized, code: "unauthenticated"}
	case errors.Is(err, models.ErrNotOwner):
		return apiError{status: http.StatusForbidden, code: "not_owner"}
	case errors.Is(err, models.ErrForbidden):
		return apiError{status: http.StatusForbidden, code: "forbidden"}
	case models.IsNotFound(err):
		return apiError{status: http.StatusNotFound, code: "not_found"}
	case errors.Is(err, models.ErrSoldOut), errors.Is(err, models.ErrCapacityExceeded):
		return apiError{status: http.StatusConflict, code: "sold_out"}
	case errors.Is(err, models.ErrEventUnavailable):
		return apiError{status: http.StatusConflict, code: "event_unavailable"}
	case errors.Is(err, models.ErrAlreadyRefunded):
		return apiError{status: http.StatusConflict, code: "already_refunded"}
	case errors.Is(err, models.ErrInvalidTransition):
		return apiError{status: http.StatusConflict, code: "invalid_transition"}
	case errors.Is(err, models.ErrDuplicateEntry):
		return apiError{status: http.StatusConflict, code: "duplicate"}
	case errors.Is(err, models.ErrRequestInProgress):
		return apiError{status: http.StatusConflict, code: "request_in_progress", retryAfter: 1}
	case errors.Is(err, models.ErrInvalidTicketCode):
		return apiError{status: http.StatusUnprocessableEntity, code: "invalid_ticket_code"}
	case errors.Is(err, models.ErrIdempotencyKeyUsed):
		return apiError{status: http.StatusUnprocessableEntity, code: "idempotency_key_reused"}
	case errors.Is(err, models.ErrContention):
		return apiError{status: http.StatusServiceUnavailable, code: "contention", retryAfter: 1}
	case errors.Is(err, models.ErrStorageUnavailable):
		return apiError{status: http.StatusServiceUnavailable, code: "storage_unavailable"}
	default:
		return apiError{status: http.StatusInternalServerError, code: "internal"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeServiceError renders err for the client. Internal errors are logged and
// replaced with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	e := errorStatus(err)
	message := err.Error()
	if e.status == http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err,
		)
		message = "internal server error"
	}
	if e.retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.retryAfter))
	}
	writeError(w, e.status, e.code, message)
}

// decodeJSON reads a single JSON object from the body, rejecting unknown fields
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &models.ValidationError{Message: "malformed JSON body: " + err.Error()}
	}
	return nil
}

func requestMeta(r *http.Request) models.RequestMeta {
	return models.RequestMeta{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// pagination reads limit and offset query parameters, ignoring junk
func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return max(limit, 0), max(offset, 0)
}
