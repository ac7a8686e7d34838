// Package repository declares the persistence interfaces the services
// depend on. Implementations live in the sqlite and postgres subpackages.
package repository

import (
	"context"

	"github.com/sakif/teyvat-companion/internal/model"
)

// UserRepository is the credential store.
//
// CreateUser returns an apperror.ErrConflict error when the email is taken.
// Lookups return apperror.ErrNotFound when no row matches.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// FavoriteRepository persists favorites. Deletes are unconditional by id;
// ownership is enforced before the call.
type FavoriteRepository interface {
	CreateFavorite(ctx context.Context, fav *model.Favorite) error
	GetFavoriteByID(ctx context.Context, id string) (*model.Favorite, error)
	ListFavoritesByUser(ctx context.Context, userID string) ([]model.Favorite, error)
	DeleteFavorite(ctx context.Context, id string) error
}

// BuildRepository persists builds. Update overwrites every editable column.
type BuildRepository interface {
	CreateBuild(ctx context.Context, build *model.Build) error
	GetBuildByID(ctx context.Context, id string) (*model.Build, error)
	ListBuildsByUser(ctx context.Context, userID string) ([]model.Build, error)
	ListPublicBuilds(ctx context.Context) ([]model.Build, error)
	UpdateBuild(ctx context.Context, build *model.Build) error
	DeleteBuild(ctx context.Context, id string) error
}

// Store is a full backend: one relational database serving every repository.
type Store interface {
	UserRepository
	FavoriteRepository
	BuildRepository
	Close() error
}
