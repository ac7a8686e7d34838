package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/teyvat-companion/internal/apperror"
	"github.com/sakif/teyvat-companion/internal/gemini"
)

const (
	MsgAINotConfigured    = "Gemini API key not configured. Please add a valid API key to use AI features."
	MsgAIUnexpected       = "Received unexpected response from AI service."
	MsgExplainUpstream    = "Invalid Gemini API key or model not available. Please check your configuration."
	MsgRecommendUpstream  = "Gemini API error. The model may not be available or API key is invalid."
	MsgExplainFailed      = "Failed to get AI explanation. Please try again later."
	MsgRecommendFailed    = "Failed to get AI recommendation. Please try again later."
	explainPromptFormat   = "You are a Genshin Impact expert. Provide detailed character lore and story information. Explain the lore and story of %s from Genshin Impact."
	recommendPromptFormat = "You are a Genshin Impact build expert. Provide optimal weapon and artifact recommendations. Recommend the best build (weapon and artifacts) for %s in Genshin Impact. Include main stats and substats priority."
)

// Generator produces text from a prompt. *gemini.Client implements it.
type Generator interface {
	Configured() bool
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// AIService proxies character questions to the language model. Every call
// goes upstream; nothing is cached or retried.
type AIService struct {
	gen    Generator
	logger *slog.Logger
}

func NewAIService(gen Generator, logger *slog.Logger) *AIService {
	return &AIService{gen: gen, logger: logger}
}

// aiOp carries the per-operation prompt and messages.
type aiOp struct {
	name        string
	prompt      string
	upstreamMsg string
	failedMsg   string
}

var (
	explainOp = aiOp{
		name:        "explain",
		prompt:      explainPromptFormat,
		upstreamMsg: MsgExplainUpstream,
		failedMsg:   MsgExplainFailed,
	}
	recommendOp = aiOp{
		name:        "recommend",
		prompt:      recommendPromptFormat,
		upstreamMsg: MsgRecommendUpstream,
		failedMsg:   MsgRecommendFailed,
	}
)

// Explain returns lore for characterName.
func (s *AIService) Explain(ctx context.Context, characterName string) (string, error) {
	return s.run(ctx, explainOp, characterName)
}

// Recommend returns a weapon/artifact recommendation for characterName.
func (s *AIService) Recommend(ctx context.Context, characterName string) (string, error) {
	return s.run(ctx, recommendOp, characterName)
}

// run applies the checks in order: blank name (400), missing key (503),
// upstream 400/404 (503), empty answer (500), anything else (500).
func (s *AIService) run(ctx context.Context, op aiOp, characterName string) (string, error) {
	if strings.TrimSpace(characterName) == "" {
		return "", apperror.ValidationFailed("characterName", MsgCharacterRequired)
	}
	if !s.gen.Configured() {
		return "", apperror.Unavailable(MsgAINotConfigured)
	}

	text, err := s.gen.GenerateText(ctx, fmt.Sprintf(op.prompt, characterName))
	if err == nil {
		return text, nil
	}

	s.logger.Error("ai request failed",
		slog.String("op", op.name),
		slog.String("character", characterName),
		slog.String("error", err.Error()),
	)

	var se *gemini.StatusError
	switch {
	case errors.Is(err, gemini.ErrNotConfigured):
		return "", apperror.Unavailable(MsgAINotConfigured)
	case errors.As(err, &se) && (se.Code == http.StatusBadRequest || se.Code == http.StatusNotFound):
		return "", apperror.Unavailable(op.upstreamMsg)
	case errors.Is(err, gemini.ErrEmptyResponse):
		return "", apperror.Internal(MsgAIUnexpected)
	default:
		return "", apperror.Internal(op.failedMsg)
	}
}
