package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/teyvat-companion/internal/client"
	"github.com/sakif/teyvat-companion/internal/model"
)

// =========================================================================
// HELPERS
// =========================================================================

type recorded struct {
	method, path, auth string
	body               map[string]any
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recorded
}

func (f *fakeAPI) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.requests = append(f.requests, recorded{r.Method, r.URL.Path, r.Header.Get("Authorization"), body})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/login":
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Invalid email/password"}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok-1","user":{"id":"u1","name":"Lumine","email":"lumine@mail.com"}}`))
	case r.URL.Path == "/favorites" && r.Method == http.MethodGet:
		w.Write([]byte(`[{"id":"f1","character_name":"Hu Tao"}]`))
	case r.URL.Path == "/builds" && r.Method == http.MethodGet:
		w.Write([]byte(`[]`))
	case r.URL.Path == "/builds" && r.Method == http.MethodPost:
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"b1","character_name":"Xiangling","weapon":"The Catch"}`))
	case r.URL.Path == "/public/builds":
		json.NewEncoder(w).Encode([]model.Build{{ID: "b9", CharacterName: "Nilou", Weapon: "Key", Author: &model.BuildAuthor{Name: "Alice"}}})
	case r.URL.Path == "/ai/explain":
		w.Write([]byte(`{"characterName":"Hu Tao","explanation":"Director of the Wangsheng Funeral Parlor."}`))
	default:
		w.Write([]byte(`{"message":"ok"}`))
	}
}

func newTestApp(t *testing.T, stdin string) (*App, *fakeAPI, *bytes.Buffer) {
	t.Helper()

	fake := &fakeAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	session := client.NewSession(filepath.Join(t.TempDir(), "session.json"))
	store := client.NewStore(
		client.NewAPI(srv.URL, session, srv.Client()),
		client.NewCharacterSource(srv.URL, srv.Client()),
		session,
	)

	out := &bytes.Buffer{}
	return NewApp(store, strings.NewReader(stdin), out), fake, out
}

func stubPassword(t *testing.T, password string) {
	t.Helper()

	orig := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() { readPassword = orig })
}

// =========================================================================
// COMMAND TESTS
// =========================================================================

func TestRun_Usage(t *testing.T) {
	app, _, out := newTestApp(t, "")

	err := app.Run(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrUsage))
	assert.Contains(t, out.String(), "usage: companion")

	err = app.Run(context.Background(), []string{"dance"})
	assert.True(t, errors.Is(err, ErrUsage))
}

func TestRun_LoginThenProtectedCall(t *testing.T) {
	stubPassword(t, "secret")
	app, fake, out := newTestApp(t, "lumine@mail.com\n")

	require.NoError(t, app.Run(context.Background(), []string{"login"}))
	assert.Contains(t, out.String(), "Logged in as Lumine <lumine@mail.com>")
	assert.Equal(t, "lumine@mail.com", fake.last().body["email"])

	out.Reset()
	require.NoError(t, app.Run(context.Background(), []string{"favorites"}))
	assert.Contains(t, out.String(), "Hu Tao")
	assert.Equal(t, "Bearer tok-1", fake.last().auth)
}

func TestRun_LoginFailure(t *testing.T) {
	stubPassword(t, "wrong")
	app, _, _ := newTestApp(t, "")

	err := app.Run(context.Background(), []string{"login", "-email", "lumine@mail.com"})
	require.Error(t, err)
	assert.Equal(t, "Invalid email/password", client.Message(err))
}

func TestRun_BuildsAdd(t *testing.T) {
	app, fake, out := newTestApp(t, "")

	require.NoError(t, app.Run(context.Background(), []string{
		"builds", "add", "-character", "Xiangling", "-weapon", "The Catch", "-notes", "ER 220%",
	}))
	assert.Contains(t, out.String(), "Created build b1")

	req := fake.last()
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, map[string]any{
		"character_name": "Xiangling",
		"weapon":         "The Catch",
		"artifact":       nil,
		"notes":          "ER 220%",
	}, req.body)
}

func TestRun_BuildsUpdateSendsPublicOnlyWhenSet(t *testing.T) {
	app, fake, _ := newTestApp(t, "")

	require.NoError(t, app.Run(context.Background(), []string{
		"builds", "update", "-character", "Xiangling", "-weapon", "Engulfing Lightning", "-public", "b1",
	}))

	var put recorded
	fake.mu.Lock()
	for _, r := range fake.requests {
		if r.method == http.MethodPut {
			put = r
		}
	}
	fake.mu.Unlock()

	assert.Equal(t, "/builds/b1", put.path)
	assert.Equal(t, true, put.body["isPublic"])

	err := app.Run(context.Background(), []string{"builds", "update", "-weapon", "x"})
	assert.True(t, errors.Is(err, ErrUsage))
}

func TestRun_PublicBuildsShowAuthor(t *testing.T) {
	app, _, out := newTestApp(t, "")

	require.NoError(t, app.Run(context.Background(), []string{"builds", "public"}))
	assert.Contains(t, out.String(), "AUTHOR")
	assert.Contains(t, out.String(), "Alice")
}

func TestRun_Explain(t *testing.T) {
	app, fake, out := newTestApp(t, "")

	require.NoError(t, app.Run(context.Background(), []string{"explain", "Hu", "Tao"}))
	assert.Contains(t, out.String(), "Wangsheng")
	assert.Equal(t, "Hu Tao", fake.last().body["characterName"])

	err := app.Run(context.Background(), []string{"recommend"})
	assert.True(t, errors.Is(err, ErrUsage))
}
