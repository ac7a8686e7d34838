package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/teyvat-companion/internal/apperror"
	"github.com/sakif/teyvat-companion/internal/model"
)

// newTestDB opens a fresh in-memory database with all migrations applied.
// Each call gets its own database, destroyed when the test finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newMockDB wraps a go-sqlmock connection so driver failures can be injected.
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewWithConn(conn), mock
}

func createTestUser(t *testing.T, db *DB, name, email string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: email, PasswordHash: "$2a$04$hash"}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func strPtr(s string) *string { return &s }

// =========================================================================
// MIGRATION TESTS
// =========================================================================

func TestNew_AppliesMigrations(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"users", "favorites", "builds"} {
		var name string
		err := db.conn.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}
}

func TestNew_ForeignKeysEnabled(t *testing.T) {
	db := newTestDB(t)

	var enabled int
	require.NoError(t, db.conn.QueryRow(`PRAGMA foreign_keys`).Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

// =========================================================================
// USER TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	u := createTestUser(t, db, "Tester", "test@mail.com")

	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.False(t, u.UpdatedAt.IsZero())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "First", "dup@mail.com")

	err := db.CreateUser(context.Background(), &model.User{
		Name: "Second", Email: "dup@mail.com", PasswordHash: "x",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "expected ErrConflict, got %v", err)
}

func TestGetUserByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "Tester", "test@mail.com")

	got, err := db.GetUserByID(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Tester", got.Name)
	assert.Equal(t, "test@mail.com", got.Email)
	assert.Equal(t, created.PasswordHash, got.PasswordHash)
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "Tester", "test@mail.com")

	got, err := db.GetUserByEmail(context.Background(), "test@mail.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = db.GetUserByEmail(context.Background(), "other@mail.com")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDeleteUser_CascadesToOwnedRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "Tester", "test@mail.com")

	require.NoError(t, db.CreateFavorite(ctx, &model.Favorite{UserID: u.ID, CharacterName: "Hu Tao"}))
	require.NoError(t, db.CreateBuild(ctx, &model.Build{UserID: u.ID, CharacterName: "Hu Tao", Weapon: "Staff of Homa"}))

	require.NoError(t, db.DeleteUser(ctx, u.ID))

	favs, err := db.ListFavoritesByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, favs)

	builds, err := db.ListBuildsByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, builds)

	assert.True(t, errors.Is(db.DeleteUser(ctx, u.ID), apperror.ErrNotFound))
}

// =========================================================================
// FAVORITE TESTS
// =========================================================================

func TestFavorites_CreateListDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "Tester", "test@mail.com")

	first := &model.Favorite{UserID: u.ID, CharacterName: "Hu Tao"}
	second := &model.Favorite{UserID: u.ID, CharacterName: "Hu Tao"}
	require.NoError(t, db.CreateFavorite(ctx, first))
	require.NoError(t, db.CreateFavorite(ctx, second))
	assert.NotEqual(t, first.ID, second.ID, "duplicates are separate rows")

	favs, err := db.ListFavoritesByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, first.ID, favs[0].ID)
	assert.Equal(t, u.ID, favs[0].UserID)

	got, err := db.GetFavoriteByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hu Tao", got.CharacterName)

	require.NoError(t, db.DeleteFavorite(ctx, first.ID))
	_, err = db.GetFavoriteByID(ctx, first.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.True(t, errors.Is(db.DeleteFavorite(ctx, first.ID), apperror.ErrNotFound))
}

func TestListFavoritesByUser_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)

	favs, err := db.ListFavoritesByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, favs)
	assert.Len(t, favs, 0)
}

func TestListFavoritesByUser_ScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "A", "a@mail.com")
	b := createTestUser(t, db, "B", "b@mail.com")

	require.NoError(t, db.CreateFavorite(ctx, &model.Favorite{UserID: a.ID, CharacterName: "Xiao"}))
	require.NoError(t, db.CreateFavorite(ctx, &model.Favorite{UserID: b.ID, CharacterName: "Ayaka"}))

	favs, err := db.ListFavoritesByUser(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "Xiao", favs[0].CharacterName)
}

func TestCreateFavorite_UnknownOwnerRejected(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateFavorite(context.Background(), &model.Favorite{UserID: "ghost", CharacterName: "Xiao"})
	assert.Error(t, err, "foreign key should reject an unknown owner")
}

// =========================================================================
// BUILD TESTS
// =========================================================================

func TestBuilds_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "Tester", "test@mail.com")

	b := &model.Build{UserID: u.ID, CharacterName: "Xiangling", Weapon: "The Catch"}
	require.NoError(t, db.CreateBuild(ctx, b))
	require.NotEmpty(t, b.ID)

	got, err := db.GetBuildByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Xiangling", got.CharacterName)
	assert.Equal(t, "The Catch", got.Weapon)
	assert.Nil(t, got.Artifact)
	assert.Nil(t, got.Notes)
	assert.False(t, got.IsPublic)
	assert.Nil(t, got.Author)
}

func TestUpdateBuild_OverwritesEditableColumns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "Tester", "test@mail.com")

	b := &model.Build{UserID: u.ID, CharacterName: "Xiangling", Weapon: "The Catch", Notes: strPtr("first")}
	require.NoError(t, db.CreateBuild(ctx, b))

	b.Weapon = "Engulfing Lightning"
	b.Artifact = strPtr("Emblem of Severed Fate")
	b.Notes = nil
	b.IsPublic = true
	require.NoError(t, db.UpdateBuild(ctx, b))

	got, err := db.GetBuildByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Engulfing Lightning", got.Weapon)
	require.NotNil(t, got.Artifact)
	assert.Equal(t, "Emblem of Severed Fate", *got.Artifact)
	assert.Nil(t, got.Notes)
	assert.True(t, got.IsPublic)
	assert.Equal(t, u.ID, got.UserID)
}

func TestUpdateBuild_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateBuild(context.Background(), &model.Build{ID: "missing", CharacterName: "x", Weapon: "y"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestListPublicBuilds_IncludesAuthorAndSkipsPrivate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "Alice", "a@mail.com")
	b := createTestUser(t, db, "Bob", "b@mail.com")

	require.NoError(t, db.CreateBuild(ctx, &model.Build{UserID: a.ID, CharacterName: "Nahida", Weapon: "A Thousand Floating Dreams", IsPublic: true}))
	require.NoError(t, db.CreateBuild(ctx, &model.Build{UserID: a.ID, CharacterName: "Xiao", Weapon: "Primordial Jade Winged-Spear"}))
	require.NoError(t, db.CreateBuild(ctx, &model.Build{UserID: b.ID, CharacterName: "Furina", Weapon: "Splendor of Tranquil Waters", IsPublic: true}))

	builds, err := db.ListPublicBuilds(ctx)
	require.NoError(t, err)
	require.Len(t, builds, 2)

	names := map[string]string{}
	for _, pb := range builds {
		require.NotNil(t, pb.Author)
		names[pb.CharacterName] = pb.Author.Name
	}
	assert.Equal(t, map[string]string{"Nahida": "Alice", "Furina": "Bob"}, names)
}

func TestListBuildsByUser_IncludesPrivate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "Tester", "test@mail.com")

	require.NoError(t, db.CreateBuild(ctx, &model.Build{UserID: u.ID, CharacterName: "Xiao", Weapon: "Homa"}))
	require.NoError(t, db.CreateBuild(ctx, &model.Build{UserID: u.ID, CharacterName: "Xiao", Weapon: "Jade", IsPublic: true}))

	builds, err := db.ListBuildsByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, builds, 2)
}

func TestDeleteBuild(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "Tester", "test@mail.com")
	b := &model.Build{UserID: u.ID, CharacterName: "Xiao", Weapon: "Homa"}
	require.NoError(t, db.CreateBuild(ctx, b))

	require.NoError(t, db.DeleteBuild(ctx, b.ID))
	_, err := db.GetBuildByID(ctx, b.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

// =========================================================================
// DRIVER FAILURE TESTS (go-sqlmock)
// =========================================================================

func TestStoreErrors_AreWrappedNotMapped(t *testing.T) {
	boom := errors.New("disk I/O error")

	t.Run("CreateFavorite", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO favorites").WillReturnError(boom)

		err := db.CreateFavorite(context.Background(), &model.Favorite{UserID: "u", CharacterName: "Xiao"})
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, apperror.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListBuildsByUser", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT (.+) FROM builds b").WithArgs("u").WillReturnError(boom)

		_, err := db.ListBuildsByUser(context.Background(), "u")
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetUserByID", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").WithArgs("u").WillReturnError(boom)

		_, err := db.GetUserByID(context.Background(), "u")
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DeleteBuild", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("DELETE FROM builds").WithArgs("b").WillReturnError(boom)

		err := db.DeleteBuild(context.Background(), "b")
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRowScanError(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "user_id", "character_name", "created_at", "updated_at"}).
		AddRow("f1", "u", "Xiao", "not-a-time", "not-a-time")
	mock.ExpectQuery("SELECT (.+) FROM favorites").WithArgs("u").WillReturnRows(rows)

	_, err := db.ListFavoritesByUser(context.Background(), "u")
	assert.Error(t, err)
}
