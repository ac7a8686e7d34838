package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/teyvat-companion/internal/auth"
	"github.com/sakif/teyvat-companion/internal/model"
	"github.com/sakif/teyvat-companion/internal/service"
)

const (
	msgRegistered = "User registered successfully"

	stateCookieName = "oauth_state"
	msgInvalidState = "Invalid OAuth state"
	msgMissingCode  = "Missing OAuth code"
)

// AuthHandler serves registration, login and the Google sign-in flows.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create an account
//   - HandleLogin          → email/password login, returns a bearer token
//   - HandleGoogleLogin    → exchange a Google ID token for a bearer token
//   - HandleGoogleRedirect → start the server-side OAuth code flow
//   - HandleGoogleCallback → finish it and return a bearer token
//   - HandleMe             → return the authenticated user
type AuthHandler struct {
	auth   *service.AuthService
	google *auth.GoogleProvider
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil; the code-flow
// routes are then not registered.
func NewAuthHandler(authService *service.AuthService, google *auth.GoogleProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		google: google,
		logger: logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse echoes the stored (normalised) name and email.
type RegisterResponse struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	GoogleToken string `json:"googleToken"`
}

// LoginResponse is returned by every login flavour.
type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	User        model.PublicUser `json:"user"`
}

func newLoginResponse(res *service.AuthResult) LoginResponse {
	return LoginResponse{AccessToken: res.Token, User: res.User.Public()}
}

// HandleRegister creates an account.
//
// HTTP: POST /register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Name:    user.Name,
		Email:   user.Email,
		Message: msgRegistered,
	})
}

// HandleLogin checks email and password and issues a bearer token.
//
// HTTP: POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newLoginResponse(res))
}

// HandleGoogleLogin signs in with an ID token obtained by the client from
// Google Identity Services.
//
// HTTP: POST /google-login
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	res, err := h.auth.LoginWithGoogle(r.Context(), req.GoogleToken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newLoginResponse(res))
}

// HandleGoogleRedirect sends the browser to Google's consent page.
//
// HTTP: GET /auth/google/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and must come
// back unchanged on the callback.
func (h *AuthHandler) HandleGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the code flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter against the cookie
//  2. Exchange the code; the returned id_token is verified like /google-login
//  3. Find or create the user and issue a bearer token
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("google callback: missing state cookie")
		writeMessage(w, http.StatusBadRequest, msgInvalidState)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		writeMessage(w, http.StatusBadRequest, msgInvalidState)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization", slog.String("error", errParam))
		writeMessage(w, http.StatusUnauthorized, service.MsgInvalidCredentials)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeMessage(w, http.StatusBadRequest, msgMissingCode)
		return
	}

	identity, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		writeMessage(w, http.StatusInternalServerError, service.MsgGoogleLoginFailed)
		return
	}

	res, err := h.auth.LoginWithGoogleIdentity(r.Context(), identity)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newLoginResponse(res))
}

// HandleMe returns the authenticated user's public profile.
//
// HTTP: GET /users/me
// Auth: Required (RequireAuth has already loaded the user)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}
