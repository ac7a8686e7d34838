package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/teyvat-companion/internal/service"
)

// AIHandler proxies character questions to the generative model.
type AIHandler struct {
	ai     *service.AIService
	logger *slog.Logger
}

func NewAIHandler(ai *service.AIService, logger *slog.Logger) *AIHandler {
	return &AIHandler{ai: ai, logger: logger}
}

type characterRequest struct {
	CharacterName string `json:"characterName"`
}

// ExplainResponse is the body of a successful /ai/explain call.
type ExplainResponse struct {
	CharacterName string `json:"characterName"`
	Explanation   string `json:"explanation"`
}

// RecommendResponse is the body of a successful /ai/recommend call.
type RecommendResponse struct {
	CharacterName  string `json:"characterName"`
	Recommendation string `json:"recommendation"`
}

// HandleExplain returns a lore summary for a character.
//
// HTTP: POST /ai/explain
func (h *AIHandler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	var req characterRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	text, err := h.ai.Explain(r.Context(), req.CharacterName)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ExplainResponse{CharacterName: req.CharacterName, Explanation: text})
}

// HandleRecommend returns build advice for a character.
//
// HTTP: POST /ai/recommend
func (h *AIHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	var req characterRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	text, err := h.ai.Recommend(r.Context(), req.CharacterName)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, RecommendResponse{CharacterName: req.CharacterName, Recommendation: text})
}
