package client

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/sakif/teyvat-companion/internal/model"
)

// Slice is one independent part of the Store: cached data plus the status
// of requests that update it.
//
// Every action moves a slice through pending (Loading set, Err cleared) and
// then fulfilled (Data updated) or rejected (Err set). Data only changes
// after the server answers.
type Slice[T any] struct {
	Data    T
	Loading bool
	Err     string
}

type AuthData struct {
	Token         string
	User          *model.PublicUser
	Authenticated bool
}

type CharactersData struct {
	List     []string
	Selected *Character
}

type FavoritesData struct {
	List []model.Favorite
}

type BuildsData struct {
	Mine   []model.Build
	Public []model.Build
}

// AIData caches answers by character name.
type AIData struct {
	Explanations    map[string]string
	Recommendations map[string]string
}

// applyMode says how a response relates to the data already cached.
type applyMode int

const (
	// replace results overwrite the cached value for their key. A replace
	// response is dropped if a later request for the key was applied first.
	replace applyMode = iota
	// merge results are incremental changes (one row added or removed).
	// They are always applied, and they mark the key so an older replace
	// response cannot overwrite them.
	merge
)

// slot tracks one Slice and the ordering of its requests.
//
// Each dispatched request takes the next sequence number. Requests started
// before the last reset are ignored on completion, and Loading stays set
// while any request started after it is in flight.
type slot[T any] struct {
	state    Slice[T]
	seq      uint64
	floor    uint64
	applied  map[string]uint64
	inflight int
}

func (s *slot[T]) begin() uint64 {
	s.seq++
	s.inflight++
	s.state.Loading = true
	s.state.Err = ""
	return s.seq
}

func (s *slot[T]) end(key string, seq uint64, mode applyMode) (fresh bool) {
	if seq <= s.floor {
		// Not counted in inflight since the reset.
		return false
	}
	s.inflight--
	s.state.Loading = s.inflight > 0

	last := s.applied[key]
	if mode == replace && seq < last {
		return false
	}
	if s.applied == nil {
		s.applied = make(map[string]uint64)
	}
	s.applied[key] = max(last, seq)
	return true
}

// reset drops the data and discards every response still in flight.
func (s *slot[T]) reset(data T) {
	s.state = Slice[T]{Data: data}
	s.floor = s.seq
	s.inflight = 0
}

// Store caches server state for a UI. It is safe for concurrent use; every
// action blocks until its request completes and also returns the error.
type Store struct {
	api     *API
	chars   *CharacterSource
	session *Session

	mu         sync.Mutex
	auth       slot[AuthData]
	characters slot[CharactersData]
	favorites  slot[FavoritesData]
	builds     slot[BuildsData]
	ai         slot[AIData]
}

// NewStore creates a Store. The auth slice starts from whatever session
// was loaded.
func NewStore(api *API, chars *CharacterSource, session *Session) *Store {
	s := &Store{api: api, chars: chars, session: session}
	s.auth.state.Data = AuthData{
		Token:         session.Token(),
		User:          session.User(),
		Authenticated: session.Authenticated(),
	}
	s.ai.state.Data = emptyAIData()
	return s
}

func emptyAIData() AIData {
	return AIData{Explanations: map[string]string{}, Recommendations: map[string]string{}}
}

// dispatch runs call with sl pending and applies the result according to
// mode. msg turns a failure into the slice's Err.
func dispatch[T, R any](
	s *Store,
	sl *slot[T],
	key string,
	mode applyMode,
	msg func(error) string,
	call func() (R, error),
	apply func(*T, R),
) (R, error) {
	s.mu.Lock()
	seq := sl.begin()
	s.mu.Unlock()

	res, err := call()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !sl.end(key, seq, mode) {
		return res, err
	}
	if err != nil {
		sl.state.Err = msg(err)
		return res, err
	}
	if apply != nil {
		apply(&sl.state.Data, res)
	}
	return res, nil
}

// upsert replaces the row with item's id, or appends item if there is none.
// A refetch that finished first may already hold the row.
func upsert[E any](list []E, item E, id func(E) string) []E {
	if i := slices.IndexFunc(list, func(e E) bool { return id(e) == id(item) }); i >= 0 {
		list[i] = item
		return list
	}
	return append(list, item)
}

// serverMessage prefers the server's message and falls back otherwise.
func serverMessage(fallback string) func(error) string {
	return func(err error) string {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
}

func fixedMessage(msg string) func(error) string {
	return func(error) string { return msg }
}

// Message extracts a user-facing message from an action error.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// =========================================================================
// SNAPSHOTS
// =========================================================================

func (s *Store) Auth() Slice[AuthData] {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.auth.state
	if st.Data.User != nil {
		u := *st.Data.User
		st.Data.User = &u
	}
	return st
}

func (s *Store) Characters() Slice[CharactersData] {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.characters.state
	st.Data.List = slices.Clone(st.Data.List)
	if st.Data.Selected != nil {
		c := *st.Data.Selected
		st.Data.Selected = &c
	}
	return st
}

func (s *Store) Favorites() Slice[FavoritesData] {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.favorites.state
	st.Data.List = slices.Clone(st.Data.List)
	return st
}

func (s *Store) Builds() Slice[BuildsData] {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.builds.state
	st.Data.Mine = slices.Clone(st.Data.Mine)
	st.Data.Public = slices.Clone(st.Data.Public)
	return st
}

func (s *Store) AI() Slice[AIData] {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ai.state
	st.Data.Explanations = maps.Clone(st.Data.Explanations)
	st.Data.Recommendations = maps.Clone(st.Data.Recommendations)
	return st
}

// =========================================================================
// AUTH
// =========================================================================

func (s *Store) Register(ctx context.Context, name, email, password string) (*RegisterResult, error) {
	return dispatch(s, &s.auth, "register", replace, serverMessage("Registration failed"),
		func() (*RegisterResult, error) { return s.api.Register(ctx, name, email, password) },
		nil,
	)
}

// Login signs in and persists the session.
func (s *Store) Login(ctx context.Context, email, password string) error {
	_, err := dispatch(s, &s.auth, "session", replace, serverMessage("Login failed"),
		func() (*LoginResult, error) { return s.api.Login(ctx, email, password) },
		s.applyLogin,
	)
	if err != nil || !s.session.Authenticated() {
		return err
	}
	return s.session.Save()
}

// GoogleLogin signs in with a Google ID token and persists the session.
func (s *Store) GoogleLogin(ctx context.Context, googleToken string) error {
	_, err := dispatch(s, &s.auth, "session", replace, serverMessage("Google login failed"),
		func() (*LoginResult, error) { return s.api.GoogleLogin(ctx, googleToken) },
		s.applyLogin,
	)
	if err != nil || !s.session.Authenticated() {
		return err
	}
	return s.session.Save()
}

func (s *Store) applyLogin(d *AuthData, res *LoginResult) {
	u := res.User
	d.Token = res.AccessToken
	d.User = &u
	d.Authenticated = true
	s.session.Set(res.AccessToken, &u)
}

// LoadProfile refreshes the cached user from /users/me.
func (s *Store) LoadProfile(ctx context.Context) (*model.PublicUser, error) {
	return dispatch(s, &s.auth, "profile", replace, serverMessage("Failed to fetch profile"),
		func() (*model.PublicUser, error) { return s.api.Me(ctx) },
		func(d *AuthData, u *model.PublicUser) {
			cp := *u
			d.User = &cp
			s.session.SetUser(cp)
		},
	)
}

// Logout forgets the session in memory and on disk and drops every
// user-scoped cache. Responses still in flight for those slices are ignored.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.auth.reset(AuthData{})
	s.favorites.reset(FavoritesData{})
	s.builds.reset(BuildsData{Public: s.builds.state.Data.Public})
	s.ai.reset(emptyAIData())
	s.mu.Unlock()

	return s.session.Clear()
}

func (s *Store) ClearAuthError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth.state.Err = ""
}

// =========================================================================
// CHARACTERS
// =========================================================================

func (s *Store) FetchCharacters(ctx context.Context) ([]string, error) {
	return dispatch(s, &s.characters, "list", replace, fixedMessage("Failed to fetch characters"),
		func() ([]string, error) { return s.chars.List(ctx) },
		func(d *CharactersData, names []string) { d.List = names },
	)
}

func (s *Store) FetchCharacter(ctx context.Context, id string) (*Character, error) {
	return dispatch(s, &s.characters, "selected", replace, fixedMessage("Failed to fetch character details"),
		func() (*Character, error) { return s.chars.Get(ctx, id) },
		func(d *CharactersData, c *Character) { d.Selected = c },
	)
}

func (s *Store) ClearSelectedCharacter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters.state.Data.Selected = nil
}

// =========================================================================
// FAVORITES
// =========================================================================

func (s *Store) FetchFavorites(ctx context.Context) ([]model.Favorite, error) {
	return dispatch(s, &s.favorites, "list", replace, serverMessage("Failed to fetch favorites"),
		func() ([]model.Favorite, error) { return s.api.ListFavorites(ctx) },
		func(d *FavoritesData, favs []model.Favorite) { d.List = favs },
	)
}

func (s *Store) AddFavorite(ctx context.Context, characterName string) (*model.Favorite, error) {
	return dispatch(s, &s.favorites, "list", merge, serverMessage("Failed to add favorite"),
		func() (*model.Favorite, error) { return s.api.AddFavorite(ctx, characterName) },
		func(d *FavoritesData, fav *model.Favorite) {
			d.List = upsert(d.List, *fav, func(f model.Favorite) string { return f.ID })
		},
	)
}

func (s *Store) RemoveFavorite(ctx context.Context, id string) error {
	_, err := dispatch(s, &s.favorites, "list", merge, serverMessage("Failed to remove favorite"),
		func() (struct{}, error) { return struct{}{}, s.api.RemoveFavorite(ctx, id) },
		func(d *FavoritesData, _ struct{}) {
			d.List = slices.DeleteFunc(d.List, func(f model.Favorite) bool { return f.ID == id })
		},
	)
	return err
}

// =========================================================================
// BUILDS
// =========================================================================

func (s *Store) FetchMyBuilds(ctx context.Context) ([]model.Build, error) {
	return dispatch(s, &s.builds, "mine", replace, serverMessage("Failed to fetch builds"),
		func() ([]model.Build, error) { return s.api.ListBuilds(ctx) },
		func(d *BuildsData, builds []model.Build) { d.Mine = builds },
	)
}

func (s *Store) FetchPublicBuilds(ctx context.Context) ([]model.Build, error) {
	return dispatch(s, &s.builds, "public", replace, serverMessage("Failed to fetch public builds"),
		func() ([]model.Build, error) { return s.api.ListPublicBuilds(ctx) },
		func(d *BuildsData, builds []model.Build) { d.Public = builds },
	)
}

func (s *Store) CreateBuild(ctx context.Context, in BuildPayload) (*model.Build, error) {
	return dispatch(s, &s.builds, "mine", merge, serverMessage("Failed to create build"),
		func() (*model.Build, error) { return s.api.CreateBuild(ctx, in) },
		func(d *BuildsData, b *model.Build) {
			d.Mine = upsert(d.Mine, *b, func(b model.Build) string { return b.ID })
		},
	)
}

// UpdateBuild sends the update and then re-reads the caller's builds; the
// server answers PUT with a message only.
func (s *Store) UpdateBuild(ctx context.Context, id string, in BuildPayload) error {
	_, err := dispatch(s, &s.builds, "mine", replace, serverMessage("Failed to update build"),
		func() ([]model.Build, error) {
			if err := s.api.UpdateBuild(ctx, id, in); err != nil {
				return nil, err
			}
			return s.api.ListBuilds(ctx)
		},
		func(d *BuildsData, builds []model.Build) { d.Mine = builds },
	)
	return err
}

func (s *Store) DeleteBuild(ctx context.Context, id string) error {
	_, err := dispatch(s, &s.builds, "mine", merge, serverMessage("Failed to delete build"),
		func() (struct{}, error) { return struct{}{}, s.api.DeleteBuild(ctx, id) },
		func(d *BuildsData, _ struct{}) {
			d.Mine = slices.DeleteFunc(d.Mine, func(b model.Build) bool { return b.ID == id })
		},
	)
	return err
}

// =========================================================================
// AI
// =========================================================================

func (s *Store) Explain(ctx context.Context, characterName string) (string, error) {
	return dispatch(s, &s.ai, "explain:"+characterName, replace, serverMessage("Failed to get AI explanation"),
		func() (string, error) { return s.api.Explain(ctx, characterName) },
		func(d *AIData, text string) { d.Explanations[characterName] = text },
	)
}

func (s *Store) Recommend(ctx context.Context, characterName string) (string, error) {
	return dispatch(s, &s.ai, "recommend:"+characterName, replace, serverMessage("Failed to get AI recommendation"),
		func() (string, error) { return s.api.Recommend(ctx, characterName) },
		func(d *AIData, text string) { d.Recommendations[characterName] = text },
	)
}
