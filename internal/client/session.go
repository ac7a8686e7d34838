// Package client is the Go SDK for the companion API. It keeps an explicit
// Session (bearer token + cached user) and a Store of cached server state
// that a UI or CLI reads from.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sakif/teyvat-companion/internal/model"
)

const sessionDirName = "teyvat-companion"

// DefaultSessionPath returns <user config dir>/teyvat-companion/session.json.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("client: locating config dir: %w", err)
	}
	return filepath.Join(dir, sessionDirName, "session.json"), nil
}

// Session holds the caller's bearer token and the user it belongs to.
//
// Nothing is written to disk implicitly: LoadSession reads once at startup,
// Save persists, Clear wipes memory and file together. A Session is safe
// for concurrent use.
type Session struct {
	mu    sync.RWMutex
	path  string
	token string
	user  *model.PublicUser
}

type sessionFile struct {
	AccessToken string            `json:"access_token"`
	User        *model.PublicUser `json:"user,omitempty"`
}

// NewSession returns an empty session bound to path. An empty path keeps
// the session in memory only.
func NewSession(path string) *Session {
	return &Session{path: path}
}

// LoadSession reads the session stored at path. A missing file yields an
// empty session, not an error.
func LoadSession(path string) (*Session, error) {
	s := NewSession(path)
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("client: reading session: %w", err)
	}

	var f sessionFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("client: decoding session %s: %w", path, err)
	}
	s.token = f.AccessToken
	s.user = f.User
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the cached user, or nil.
func (s *Session) User() *model.PublicUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Set replaces the token and user in memory. Call Save to persist.
func (s *Session) Set(token string, user *model.PublicUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
}

// SetUser refreshes the cached user without touching the token.
func (s *Session) SetUser(user model.PublicUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
}

// Save writes the session to its file with mode 0600.
func (s *Session) Save() error {
	s.mu.RLock()
	f := sessionFile{AccessToken: s.token, User: s.user}
	path := s.path
	s.mu.RUnlock()

	if path == "" {
		return nil
	}

	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("client: encoding session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("client: creating session dir: %w", err)
	}

	// Write then rename so a crash never leaves a half-written token.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("client: writing session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("client: replacing session: %w", err)
	}
	return nil
}

// Clear forgets the token and user and removes the session file.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	path := s.path
	s.mu.Unlock()

	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("client: removing session: %w", err)
	}
	return nil
}
