package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/teyvat-companion/internal/model"
)

const defaultHTTPTimeout = 90 * time.Second

// APIError is a non-2xx answer from the server. Message is the server's
// "message" field and is empty when the body had none.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api: %d %s", e.Status, msg)
}

// RegisterResult is the body of a successful registration.
type RegisterResult struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// LoginResult is the body of every successful login.
type LoginResult struct {
	AccessToken string           `json:"access_token"`
	User        model.PublicUser `json:"user"`
}

// BuildPayload is the body of POST /builds and PUT /builds/{id}. A nil
// IsPublic is omitted, which keeps the stored value on update.
type BuildPayload struct {
	CharacterName string  `json:"character_name"`
	Weapon        string  `json:"weapon"`
	Artifact      *string `json:"artifact"`
	Notes         *string `json:"notes"`
	IsPublic      *bool   `json:"isPublic,omitempty"`
}

// API is a typed client for every REST route. Protected calls carry the
// session's bearer token.
type API struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
}

// NewAPI creates a client for the server at baseURL. httpClient may be nil.
func NewAPI(baseURL string, session *Session, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		session:    session,
	}
}

func (a *API) Register(ctx context.Context, name, email, password string) (*RegisterResult, error) {
	var out RegisterResult
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/register", false, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/login", false, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) GoogleLogin(ctx context.Context, googleToken string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"googleToken": googleToken}
	if err := a.do(ctx, http.MethodPost, "/google-login", false, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Me(ctx context.Context) (*model.PublicUser, error) {
	var out model.PublicUser
	if err := a.do(ctx, http.MethodGet, "/users/me", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	var out []model.Favorite
	if err := a.do(ctx, http.MethodGet, "/favorites", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) AddFavorite(ctx context.Context, characterName string) (*model.Favorite, error) {
	var out model.Favorite
	body := map[string]string{"character_name": characterName}
	if err := a.do(ctx, http.MethodPost, "/favorites", true, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) RemoveFavorite(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/favorites/"+url.PathEscape(id), true, nil, nil)
}

func (a *API) ListBuilds(ctx context.Context) ([]model.Build, error) {
	var out []model.Build
	if err := a.do(ctx, http.MethodGet, "/builds", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) ListPublicBuilds(ctx context.Context) ([]model.Build, error) {
	var out []model.Build
	if err := a.do(ctx, http.MethodGet, "/public/builds", false, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) CreateBuild(ctx context.Context, in BuildPayload) (*model.Build, error) {
	var out model.Build
	if err := a.do(ctx, http.MethodPost, "/builds", true, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) UpdateBuild(ctx context.Context, id string, in BuildPayload) error {
	return a.do(ctx, http.MethodPut, "/builds/"+url.PathEscape(id), true, in, nil)
}

func (a *API) DeleteBuild(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/builds/"+url.PathEscape(id), true, nil, nil)
}

// Explain asks the server for a lore summary of characterName.
func (a *API) Explain(ctx context.Context, characterName string) (string, error) {
	var out struct {
		Explanation string `json:"explanation"`
	}
	body := map[string]string{"characterName": characterName}
	if err := a.do(ctx, http.MethodPost, "/ai/explain", true, body, &out); err != nil {
		return "", err
	}
	return out.Explanation, nil
}

// Recommend asks the server for build advice for characterName.
func (a *API) Recommend(ctx context.Context, characterName string) (string, error) {
	var out struct {
		Recommendation string `json:"recommendation"`
	}
	body := map[string]string{"characterName": characterName}
	if err := a.do(ctx, http.MethodPost, "/ai/recommend", true, body, &out); err != nil {
		return "", err
	}
	return out.Recommendation, nil
}

// do sends in as JSON (when non-nil) and decodes a 2xx body into out (when
// non-nil). Non-2xx answers become *APIError.
func (a *API) do(ctx context.Context, method, path string, authed bool, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && a.session != nil {
		if token := a.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding %s %s: %w", method, path, err)
	}
	return nil
}

func checkResp(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)
	return &APIError{Status: resp.StatusCode, Message: body.Message}
}
