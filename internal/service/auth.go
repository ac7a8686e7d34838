// Package service holds the business rules, between the HTTP handlers and
// the repositories:
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, enforces rules, orchestrates
//	Repository      → reads/writes the database
//
// Services take repository interfaces, never a concrete store, so tests pass
// hand-written fakes and the server can swap SQLite for Postgres.
//
// Errors: validation and auth failures come back as *apperror.AppError;
// store failures are wrapped with %w and left for the handler to turn into
// a generic 500.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/teyvat-companion/internal/apperror"
	"github.com/sakif/teyvat-companion/internal/auth"
	"github.com/sakif/teyvat-companion/internal/model"
	"github.com/sakif/teyvat-companion/internal/repository"
)

// Client-facing messages. Handlers and tests compare against these.
const (
	MsgNameRequired        = "Name is required"
	MsgEmailRequired       = "Email is required"
	MsgEmailInvalid        = "Invalid email format"
	MsgPasswordRequired    = "Password is required"
	MsgPasswordTooLong     = "Password must be 72 bytes or fewer"
	MsgEmailTaken          = "Email already registered"
	MsgInvalidCredentials  = "Invalid email/password"
	MsgGoogleTokenRequired = "Google token is required"
	MsgGoogleLoginFailed   = "Internal server error"
)

// IdentityVerifier turns a Google ID token into a verified identity.
// *auth.GoogleVerifier implements it.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*auth.GoogleIdentity, error)
}

// AuthService handles registration, login and Google sign-in.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	google    IdentityVerifier
	logger    *slog.Logger
}

// NewAuthService wires the dependencies. google may be nil when Google
// sign-in is not configured; LoginWithGoogle then always fails with 500.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	google IdentityVerifier,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		google:    google,
		logger:    logger,
	}
}

// AuthResult is a logged-in session: the account and its bearer token.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an account.
//
// Name and email are trimmed and the email lower-cased before storing.
// The first failing check wins, in this order: name, email, email format,
// password, password length, duplicate email.
//
// Duplicate detection relies on the store's unique index, not a prior
// lookup, so two concurrent registrations for one email cannot both succeed.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", MsgNameRequired)
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", MsgEmailRequired)
	}
	if !validEmail(email) {
		return nil, apperror.ValidationFailed("email", MsgEmailInvalid)
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", MsgPasswordRequired)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", MsgPasswordTooLong)
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("email", MsgEmailTaken)
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// Login checks credentials and issues a token. An unknown email and a wrong
// password produce the same error, so callers cannot probe which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	if email == "" {
		return nil, apperror.ValidationFailed("email", MsgEmailRequired)
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", MsgPasswordRequired)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(user)
}

// LoginWithGoogle verifies a Google ID token and signs the holder in,
// creating an account on first use. Anything past the empty-token check
// that fails is reported as a single 500.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, apperror.ValidationFailed("googleToken", MsgGoogleTokenRequired)
	}
	if s.google == nil {
		s.logger.Warn("google login attempted but not configured")
		return nil, apperror.Internal(MsgGoogleLoginFailed)
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.logger.Warn("google token rejected", slog.String("error", err.Error()))
		return nil, apperror.Internal(MsgGoogleLoginFailed)
	}

	return s.LoginWithGoogleIdentity(ctx, identity)
}

// LoginWithGoogleIdentity signs in an already-verified Google identity.
// The OAuth callback uses it after exchanging the authorization code.
func (s *AuthService) LoginWithGoogleIdentity(ctx context.Context, identity *auth.GoogleIdentity) (*AuthResult, error) {
	user, err := s.findOrCreateGoogleUser(ctx, identity)
	if err != nil {
		s.logger.Error("google login failed", slog.String("error", err.Error()))
		return nil, apperror.Internal(MsgGoogleLoginFailed)
	}

	s.logger.Info("user authenticated via Google", slog.String("userID", user.ID))
	return s.issue(user)
}

func (s *AuthService) findOrCreateGoogleUser(ctx context.Context, identity *auth.GoogleIdentity) (*model.User, error) {
	if identity == nil {
		return nil, errors.New("service/auth: google identity must not be nil")
	}
	if !identity.EmailVerified {
		return nil, fmt.Errorf("service/auth: %w", auth.ErrGoogleEmailUnverified)
	}
	email := normalizeEmail(identity.Email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up google user: %w", err)
	}

	hash, err := s.passwords.Hash(auth.RandomPassword())
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing placeholder password: %w", err)
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	user = &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent first sign-in for the same email.
		if errors.Is(err, apperror.ErrConflict) {
			return s.users.GetUserByEmail(ctx, email)
		}
		return nil, fmt.Errorf("service/auth: creating google user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts a bare RFC 5322 address with a dotted domain.
// Display-name forms like "Amber <amber@mail.com>" are rejected.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	_, domain, ok := strings.Cut(email, "@")
	return ok && strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}
