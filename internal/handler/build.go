package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/teyvat-companion/internal/auth"
	"github.com/sakif/teyvat-companion/internal/service"
)

const (
	msgBuildUpdated = "Build updated successfully"
	msgBuildDeleted = "Build deleted successfully"
)

// BuildHandler serves the caller's builds and the public build listing.
type BuildHandler struct {
	builds *service.BuildService
	logger *slog.Logger
}

func NewBuildHandler(builds *service.BuildService, logger *slog.Logger) *BuildHandler {
	return &BuildHandler{builds: builds, logger: logger}
}

// buildRequest is the body of POST and PUT. A missing isPublic keeps the
// stored value on update and defaults to false on create.
type buildRequest struct {
	CharacterName string  `json:"character_name"`
	Weapon        string  `json:"weapon"`
	Artifact      *string `json:"artifact"`
	Notes         *string `json:"notes"`
	IsPublic      *bool   `json:"isPublic"`
}

func (req buildRequest) input() service.BuildInput {
	return service.BuildInput{
		CharacterName: req.CharacterName,
		Weapon:        req.Weapon,
		Artifact:      req.Artifact,
		Notes:         req.Notes,
		IsPublic:      req.IsPublic,
	}
}

// HandleCreate stores a build owned by the caller.
//
// HTTP: POST /builds
func (h *BuildHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req buildRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	build, err := h.builds.Create(r.Context(), userID, req.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, build)
}

// HandleList returns the caller's builds.
//
// HTTP: GET /builds
func (h *BuildHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	builds, err := h.builds.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, builds)
}

// HandleListPublic returns every shared build with its author's name.
//
// HTTP: GET /public/builds (no auth)
func (h *BuildHandler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	builds, err := h.builds.ListPublic(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, builds)
}

// HandleUpdate overwrites a build. Ownership was checked by the guard.
//
// HTTP: PUT /builds/{id}
func (h *BuildHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if _, err := h.builds.Update(r.Context(), chi.URLParam(r, "id"), req.input()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, msgBuildUpdated)
}

// HandleDelete removes a build. Ownership was checked by the guard.
//
// HTTP: DELETE /builds/{id}
func (h *BuildHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.builds.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, msgBuildDeleted)
}
