package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/teyvat-companion/internal/auth"
	"github.com/sakif/teyvat-companion/internal/model"
	"github.com/sakif/teyvat-companion/internal/repository"
	"github.com/sakif/teyvat-companion/internal/repository/sqlite"
	"github.com/sakif/teyvat-companion/internal/service"
)

// =========================================================================
// HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newAuthService(t *testing.T, users repository.UserRepository, google service.IdentityVerifier) *service.AuthService {
	t.Helper()

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	return service.NewAuthService(users, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), google, discardLogger())
}

func createUser(t *testing.T, store repository.UserRepository, email string) *model.User {
	t.Helper()

	u := &model.User{Name: "Traveler", Email: email, PasswordHash: "x"}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

// newRequest builds a JSON request. user, when non-nil, is attached the way
// RequireAuth would; id, when non-empty, is set as the chi "{id}" parameter.
func newRequest(method, path, body string, user *model.User, id string) *http.Request {
	var r io.Reader = http.NoBody
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if user != nil {
		ctx = auth.WithUser(ctx, user)
	}
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func requireMessage(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	require.Equal(t, status, rr.Code, rr.Body.String())
	body := decodeBody[map[string]string](t, rr)
	require.Equal(t, message, body["message"])
}
