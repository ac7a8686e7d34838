package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/teyvat-companion/internal/apperror"
	"github.com/sakif/teyvat-companion/internal/model"
)

// CreateFavorite stores a favorite for fav.UserID. Duplicate character names
// per user are allowed.
func (db *DB) CreateFavorite(ctx context.Context, fav *model.Favorite) error {
	now := time.Now().UTC()
	fav.ID = xid.New().String()
	fav.CreatedAt = now
	fav.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO favorites (id, user_id, character_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		fav.ID,
		fav.UserID,
		fav.CharacterName,
		fav.CreatedAt,
		fav.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating favorite: %w", err)
	}
	return nil
}

func (db *DB) GetFavoriteByID(ctx context.Context, id string) (*model.Favorite, error) {
	var f model.Favorite
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, character_name, created_at, updated_at
		 FROM favorites WHERE id = ?`,
		id,
	).Scan(&f.ID, &f.UserID, &f.CharacterName, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("favorite", id)
		}
		return nil, fmt.Errorf("sqlite: getting favorite %s: %w", id, err)
	}
	return &f, nil
}

// ListFavoritesByUser returns the user's favorites, oldest first.
// An empty result is an empty slice, never nil, so it encodes as [].
func (db *DB) ListFavoritesByUser(ctx context.Context, userID string) ([]model.Favorite, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, character_name, created_at, updated_at
		 FROM favorites
		 WHERE user_id = ?
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites: %w", err)
	}
	defer rows.Close()

	favorites := make([]model.Favorite, 0)
	for rows.Next() {
		var f model.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.CharacterName, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning favorite row: %w", err)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating favorite rows: %w", err)
	}

	return favorites, nil
}

func (db *DB) DeleteFavorite(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting favorite %s: %w", id, err)
	}
	return requireAffected(res, "favorite", id)
}
