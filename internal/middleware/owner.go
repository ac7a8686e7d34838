package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/teyvat-companion/internal/apperror"
	"github.com/sakif/teyvat-companion/internal/auth"
)

// OwnerLookup returns the owning user id of the resource with the given id.
// It must return an apperror.ErrNotFound error when the resource is missing.
type OwnerLookup func(ctx context.Context, id string) (ownerID string, err error)

// RequireOwner guards a route with an "{id}" URL parameter so that only the
// resource's owner reaches the handler. It must run after auth.RequireAuth.
//
// Existence is checked before ownership:
//
//	resource missing   → 404 "Data not found"
//	caller not owner   → 403 "You are not authorized"
//	lookup failed      → 500 "Internal Server Error"
//
// The check and the handler's write are separate statements; a concurrent
// delete in between surfaces as a 404 from the handler instead.
func RequireOwner(lookup OwnerLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				writeMessage(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ownerID, err := lookup(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					writeMessage(w, http.StatusNotFound, "Data not found")
					return
				}
				logger.Error("ownership lookup failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			if ownerID != callerID {
				writeMessage(w, http.StatusForbidden, "You are not authorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
