package handler

// RESPONSE HELPERS:
// Every response body is JSON. Errors always have the same shape,
//
//	{"message": "Character name is required"}
//
// so a client reads one field regardless of the status code.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/sakif/teyvat-companion/internal/apperror"
)

const (
	msgInternal    = "Internal Server Error"
	msgInvalidJSON = "Invalid JSON body"

	// maxBodyBytes caps request bodies; builds with long notes are the
	// largest legitimate payload.
	maxBodyBytes = 1 << 20
)

// MessageResponse is the body of every error and of plain confirmations.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data as JSON with the given status. Headers must be set
// before WriteHeader; anything after is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeError maps a service error to HTTP.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400
//	ErrUnauthorized → 401
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	ErrUnavailable  → 503
//	ErrInternal     → 500 with the AppError's safe message
//	anything else   → 500 "Internal Server Error", reported to Sentry
//
// Raw store errors never reach the client; they can carry SQL or paths.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		case errors.Is(err, apperror.ErrUnavailable):
			status = http.StatusServiceUnavailable
		}
		writeMessage(w, status, appErr.Message)
		return
	}

	logger.Error("unhandled error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	captureException(r, err)
	writeMessage(w, http.StatusInternalServerError, msgInternal)
}

// captureException reports err to Sentry through the request's hub when the
// sentryhttp middleware installed one. Without sentry.Init it is a no-op.
func captureException(r *http.Request, err error) {
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// decodeJSON reads the request body into dst. Any failure, including an
// empty body, is answered with 400 "Invalid JSON body" and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			logger.Debug("empty request body", slog.String("path", r.URL.Path))
		} else {
			logger.Warn("invalid JSON body",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
		}
		writeMessage(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}
