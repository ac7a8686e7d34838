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

const buildColumns = `b.id, b.user_id, b.character_name, b.weapon, b.artifact, b.notes,
		b.is_public, b.created_at, b.updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBuild reads one row selected with buildColumns.
//
// NULLABLE COLUMNS:
// artifact and notes may be NULL. Scanning NULL into a plain string fails,
// so they go through sql.NullString and are converted to *string, which
// encodes as JSON null.
func scanBuild(s rowScanner, extra ...any) (*model.Build, error) {
	var (
		b        model.Build
		artifact sql.NullString
		notes    sql.NullString
	)
	dest := []any{
		&b.ID,
		&b.UserID,
		&b.CharacterName,
		&b.Weapon,
		&artifact,
		&notes,
		&b.IsPublic,
		&b.CreatedAt,
		&b.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	b.Artifact = nullString(artifact)
	b.Notes = nullString(notes)
	return &b, nil
}

// CreateBuild inserts a build owned by build.UserID.
func (db *DB) CreateBuild(ctx context.Context, build *model.Build) error {
	now := time.Now().UTC()
	build.ID = xid.New().String()
	build.CreatedAt = now
	build.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO builds (id, user_id, character_name, weapon, artifact, notes, is_public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		build.ID,
		build.UserID,
		build.CharacterName,
		build.Weapon,
		build.Artifact,
		build.Notes,
		build.IsPublic,
		build.CreatedAt,
		build.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating build: %w", err)
	}
	return nil
}

func (db *DB) GetBuildByID(ctx context.Context, id string) (*model.Build, error) {
	b, err := scanBuild(db.conn.QueryRowContext(ctx,
		`SELECT `+buildColumns+` FROM builds b WHERE b.id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("build", id)
		}
		return nil, fmt.Errorf("sqlite: getting build %s: %w", id, err)
	}
	return b, nil
}

// ListBuildsByUser returns every build the user owns, public or not,
// oldest first.
func (db *DB) ListBuildsByUser(ctx context.Context, userID string) ([]model.Build, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+buildColumns+`
		 FROM builds b
		 WHERE b.user_id = ?
		 ORDER BY b.created_at ASC, b.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing builds: %w", err)
	}
	defer rows.Close()

	builds := make([]model.Build, 0)
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning build row: %w", err)
		}
		builds = append(builds, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating build rows: %w", err)
	}
	return builds, nil
}

// ListPublicBuilds returns every build flagged public across all users,
// newest first, each with its author's display name.
func (db *DB) ListPublicBuilds(ctx context.Context) ([]model.Build, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+buildColumns+`, u.name
		 FROM builds b
		 JOIN users u ON u.id = b.user_id
		 WHERE b.is_public = 1
		 ORDER BY b.created_at DESC, b.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing public builds: %w", err)
	}
	defer rows.Close()

	builds := make([]model.Build, 0)
	for rows.Next() {
		var author string
		b, err := scanBuild(rows, &author)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning public build row: %w", err)
		}
		b.Author = &model.BuildAuthor{Name: author}
		builds = append(builds, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating public build rows: %w", err)
	}
	return builds, nil
}

// UpdateBuild overwrites every editable column of the row with build.ID.
// The owner and creation time never change.
func (db *DB) UpdateBuild(ctx context.Context, build *model.Build) error {
	build.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE builds
		 SET character_name = ?, weapon = ?, artifact = ?, notes = ?, is_public = ?, updated_at = ?
		 WHERE id = ?`,
		build.CharacterName,
		build.Weapon,
		build.Artifact,
		build.Notes,
		build.IsPublic,
		build.UpdatedAt,
		build.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating build %s: %w", build.ID, err)
	}
	return requireAffected(res, "build", build.ID)
}

func (db *DB) DeleteBuild(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM builds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting build %s: %w", id, err)
	}
	return requireAffected(res, "build", id)
}
