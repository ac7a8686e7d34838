package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/teyvat-companion/internal/apperror"
	"github.com/sakif/teyvat-companion/internal/auth"
	"github.com/sakif/teyvat-companion/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory implementation of every repository interface.
// Set the *Err fields to simulate database failures.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]*model.User
	favorites map[string]*model.Favorite
	builds    map[string]*model.Build

	createUserErr error
	getUserErr    error
	favoriteErr   error
	buildErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*model.User),
		favorites: make(map[string]*model.Favorite),
		builds:    make(map[string]*model.Build),
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%03d", prefix, f.seq)
}

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createUserErr != nil {
		return f.createUserErr
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", u.Email)
		}
	}
	u.ID = f.nextID("user")
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CreateFavorite(_ context.Context, fav *model.Favorite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favoriteErr != nil {
		return f.favoriteErr
	}
	fav.ID = f.nextID("fav")
	fav.CreatedAt, fav.UpdatedAt = time.Now(), time.Now()
	cp := *fav
	f.favorites[fav.ID] = &cp
	return nil
}

func (f *fakeStore) GetFavoriteByID(_ context.Context, id string) (*model.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favoriteErr != nil {
		return nil, f.favoriteErr
	}
	fav, ok := f.favorites[id]
	if !ok {
		return nil, apperror.NotFound("favorite", id)
	}
	cp := *fav
	return &cp, nil
}

func (f *fakeStore) ListFavoritesByUser(_ context.Context, userID string) ([]model.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favoriteErr != nil {
		return nil, f.favoriteErr
	}
	out := make([]model.Favorite, 0)
	for _, fav := range f.favorites {
		if fav.UserID == userID {
			out = append(out, *fav)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) DeleteFavorite(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favoriteErr != nil {
		return f.favoriteErr
	}
	if _, ok := f.favorites[id]; !ok {
		return apperror.NotFound("favorite", id)
	}
	delete(f.favorites, id)
	return nil
}

func (f *fakeStore) CreateBuild(_ context.Context, b *model.Build) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buildErr != nil {
		return f.buildErr
	}
	b.ID = f.nextID("build")
	b.CreatedAt, b.UpdatedAt = time.Now(), time.Now()
	cp := *b
	f.builds[b.ID] = &cp
	return nil
}

func (f *fakeStore) GetBuildByID(_ context.Context, id string) (*model.Build, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	b, ok := f.builds[id]
	if !ok {
		return nil, apperror.NotFound("build", id)
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) ListBuildsByUser(_ context.Context, userID string) ([]model.Build, error) {
	return f.filterBuilds(func(b *model.Build) bool { return b.UserID == userID })
}

func (f *fakeStore) ListPublicBuilds(_ context.Context) ([]model.Build, error) {
	out, err := f.filterBuilds(func(b *model.Build) bool { return b.IsPublic })
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range out {
		if u, ok := f.users[out[i].UserID]; ok {
			out[i].Author = &model.BuildAuthor{Name: u.Name}
		}
	}
	return out, nil
}

func (f *fakeStore) filterBuilds(keep func(*model.Build) bool) ([]model.Build, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	out := make([]model.Build, 0)
	for _, b := range f.builds {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateBuild(_ context.Context, b *model.Build) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buildErr != nil {
		return f.buildErr
	}
	if _, ok := f.builds[b.ID]; !ok {
		return apperror.NotFound("build", b.ID)
	}
	b.UpdatedAt = time.Now()
	cp := *b
	f.builds[b.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteBuild(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buildErr != nil {
		return f.buildErr
	}
	if _, ok := f.builds[id]; !ok {
		return apperror.NotFound("build", id)
	}
	delete(f.builds, id)
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeVerifier returns a fixed identity or error.
type fakeVerifier struct {
	identity *auth.GoogleIdentity
	err      error
	calls    int
}

func (v *fakeVerifier) Verify(_ context.Context, _ string) (*auth.GoogleIdentity, error) {
	v.calls++
	return v.identity, v.err
}

// fakeGenerator records the prompt and returns a canned answer.
type fakeGenerator struct {
	configured bool
	text       string
	err        error
	prompts    []string
}

func (g *fakeGenerator) Configured() bool { return g.configured }

func (g *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}
