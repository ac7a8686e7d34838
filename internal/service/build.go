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

const MsgWeaponRequired = "Weapon is required"

// BuildInput is the editable part of a build as sent by the client.
//
// Artifact and Notes are nullable: nil stores NULL. IsPublic is a pointer so
// Update can tell "not sent" (keep the current value) from "sent false".
type BuildInput struct {
	CharacterName string
	Weapon        string
	Artifact      *string
	Notes         *string
	IsPublic      *bool
}

func (in BuildInput) validate() error {
	if strings.TrimSpace(in.CharacterName) == "" {
		return apperror.ValidationFailed("character_name", MsgCharacterRequired)
	}
	if strings.TrimSpace(in.Weapon) == "" {
		return apperror.ValidationFailed("weapon", MsgWeaponRequired)
	}
	return nil
}

// BuildService manages builds and the public build listing.
type BuildService struct {
	repo   repository.BuildRepository
	logger *slog.Logger
}

func NewBuildService(repo repository.BuildRepository, logger *slog.Logger) *BuildService {
	return &BuildService{repo: repo, logger: logger}
}

// Create stores a new build owned by ownerID. isPublic defaults to false.
func (s *BuildService) Create(ctx context.Context, ownerID string, in BuildInput) (*model.Build, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	b := &model.Build{
		UserID:        ownerID,
		CharacterName: strings.TrimSpace(in.CharacterName),
		Weapon:        strings.TrimSpace(in.Weapon),
		Artifact:      in.Artifact,
		Notes:         in.Notes,
	}
	if in.IsPublic != nil {
		b.IsPublic = *in.IsPublic
	}

	if err := s.repo.CreateBuild(ctx, b); err != nil {
		s.logger.Error("failed to create build",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating build: %w", err)
	}

	s.logger.Info("build created", slog.String("id", b.ID), slog.Bool("public", b.IsPublic))
	return b, nil
}

// List returns every build ownerID owns, public or private.
func (s *BuildService) List(ctx context.Context, ownerID string) ([]model.Build, error) {
	builds, err := s.repo.ListBuildsByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	return builds, nil
}

// ListPublic returns all public builds with their authors' names.
func (s *BuildService) ListPublic(ctx context.Context) ([]model.Build, error) {
	builds, err := s.repo.ListPublicBuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing public builds: %w", err)
	}
	return builds, nil
}

// OwnerOf reports who owns build id. The ownership guard calls it.
func (s *BuildService) OwnerOf(ctx context.Context, id string) (string, error) {
	b, err := s.repo.GetBuildByID(ctx, id)
	if err != nil {
		return "", err
	}
	return b.UserID, nil
}

// Update overwrites character name, weapon, artifact and notes. The public
// flag changes only when in.IsPublic is set. Ownership has already been
// checked.
func (s *BuildService) Update(ctx context.Context, id string, in BuildInput) (*model.Build, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	b, err := s.repo.GetBuildByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading build %s: %w", id, err)
	}

	b.CharacterName = strings.TrimSpace(in.CharacterName)
	b.Weapon = strings.TrimSpace(in.Weapon)
	b.Artifact = in.Artifact
	b.Notes = in.Notes
	if in.IsPublic != nil {
		b.IsPublic = *in.IsPublic
	}

	if err := s.repo.UpdateBuild(ctx, b); err != nil {
		return nil, fmt.Errorf("updating build %s: %w", id, err)
	}
	return b, nil
}

// Delete removes build id. Ownership has already been checked.
func (s *BuildService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteBuild(ctx, id); err != nil {
		return fmt.Errorf("deleting build %s: %w", id, err)
	}
	s.logger.Info("build deleted", slog.String("id", id))
	return nil
}
