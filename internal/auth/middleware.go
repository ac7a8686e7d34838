package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/teyvat-companion/internal/model"
)

// contextKey is unexported so no other package can read or shadow the
// values this package stores in a request context.
type contextKey string

const userKey contextKey = "user"

// UserFinder loads the account a token refers to.
// repository.UserRepository satisfies it.
type UserFinder interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// invalidTokenBody is the one response every rejection gets, so a client
// cannot tell a missing header from an expired token or a deleted user.
const invalidTokenBody = `{"message":"Invalid token"}`

// RequireAuth protects a route group with bearer tokens.
//
// FLOW:
//
//	no Authorization header          → 401
//	header not "Bearer <token>"      → 401
//	token fails TokenService.Validate → 401
//	token's user no longer exists    → 401
//	otherwise                        → user stored in context, next handler runs
//
// The user is re-read from the store on every request. That costs one
// primary-key lookup and means deleting an account locks out its tokens
// immediately.
func RequireAuth(tokens *TokenService, users UserFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				rejectInvalidToken(w)
				return
			}

			userID, err := tokens.Validate(raw)
			if err != nil {
				rejectInvalidToken(w)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil || user == nil {
				rejectInvalidToken(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user. RequireAuth uses it; tests
// use it to call handlers without minting tokens.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user attached by RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// UserIDFromContext is shorthand for UserFromContext(ctx).ID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.ID, true
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func rejectInvalidToken(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(invalidTokenBody))
}
