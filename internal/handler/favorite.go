package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/teyvat-companion/internal/auth"
	"github.com/sakif/teyvat-companion/internal/service"
)

const msgFavoriteDeleted = "Favorite deleted successfully"

// FavoriteHandler exposes the caller's favorites. Every route runs behind
// RequireAuth; DELETE additionally runs behind the ownership guard.
type FavoriteHandler struct {
	favorites *service.FavoriteService
	logger    *slog.Logger
}

func NewFavoriteHandler(favorites *service.FavoriteService, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites, logger: logger}
}

type createFavoriteRequest struct {
	CharacterName string `json:"character_name"`
}

// HandleCreate adds a favorite owned by the caller.
//
// HTTP: POST /favorites
func (h *FavoriteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createFavoriteRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	fav, err := h.favorites.Create(r.Context(), userID, req.CharacterName)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, fav)
}

// HandleList returns the caller's favorites.
//
// HTTP: GET /favorites
func (h *FavoriteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	favs, err := h.favorites.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, favs)
}

// HandleDelete removes a favorite. Ownership was checked by the guard.
//
// HTTP: DELETE /favorites/{id}
func (h *FavoriteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, msgFavoriteDeleted)
}
