package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/teyvat-companion/internal/apperror"
	"github.com/sakif/teyvat-companion/internal/model"
	"github.com/sakif/teyvat-companion/internal/repository"
)

const MsgCharacterRequired = "Character name is required"

// FavoriteService manages a user's favourite characters. The same character
// may be favourited more than once; each call makes a new row.
type FavoriteService struct {
	repo   repository.FavoriteRepository
	logger *slog.Logger
}

func NewFavoriteService(repo repository.FavoriteRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{repo: repo, logger: logger}
}

// Create stores a favorite owned by ownerID. The owner always comes from the
// authenticated session, never from the request body.
func (s *FavoriteService) Create(ctx context.Context, ownerID, characterName string) (*model.Favorite, error) {
	characterName = strings.TrimSpace(characterName)
	if characterName == "" {
		return nil, apperror.ValidationFailed("character_name", MsgCharacterRequired)
	}

	fav := &model.Favorite{UserID: ownerID, CharacterName: characterName}
	if err := s.repo.CreateFavorite(ctx, fav); err != nil {
		s.logger.Error("failed to create favorite",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating favorite: %w", err)
	}
	return fav, nil
}

// List returns only ownerID's favorites.
func (s *FavoriteService) List(ctx context.Context, ownerID string) ([]model.Favorite, error) {
	favs, err := s.repo.ListFavoritesByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	return favs, nil
}

// OwnerOf reports who owns favorite id. The ownership guard calls it.
func (s *FavoriteService) OwnerOf(ctx context.Context, id string) (string, error) {
	fav, err := s.repo.GetFavoriteByID(ctx, id)
	if err != nil {
		return "", err
	}
	return fav.UserID, nil
}

// Delete removes favorite id. Ownership has already been checked.
func (s *FavoriteService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteFavorite(ctx, id); err != nil {
		return fmt.Errorf("deleting favorite %s: %w", id, err)
	}
	s.logger.Info("favorite deleted", slog.String("id", id))
	return nil
}
