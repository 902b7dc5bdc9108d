package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/fitz/trailmap/internal/journey"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the part of the genai client the collaborators use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig holds the settings for the Gemini collaborators.
type GeminiConfig struct {
	APIKey string
	Model  string
	Logger *slog.Logger
}

// Gemini drafts and adjusts journeys with a Gemini model. It implements both
// journey.Generator and journey.Adjuster.
type Gemini struct {
	models contentGenerator
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini client for the Gemini API backend.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGemini(client.Models, cfg.Model, cfg.Logger), nil
}

func newGemini(models contentGenerator, model string, logger *slog.Logger) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{models: models, model: model, logger: logger}
}

// Generate implements journey.Generator.
func (g *Gemini) Generate(ctx context.Context, req journey.GenerationRequest) (*journey.GenerationOutput, error) {
	text, err := g.complete(ctx, "generate", GenerationPrompt(req), 0.7)
	if err != nil {
		return nil, err
	}
	return ParseGeneration(text)
}

// Adjust implements journey.Adjuster.
func (g *Gemini) Adjust(ctx context.Context, req journey.AdjustmentRequest) (*journey.AdjustmentProposal, error) {
	text, err := g.complete(ctx, "adjust", AdjustmentPrompt(req), 0.3)
	if err != nil {
		return nil, err
	}
	return ParseAdjustment(text)
}

func (g *Gemini) complete(ctx context.Context, op, prompt string, temperature float32) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}

	g.logger.Debug("gemini request", "op", op, "model", g.model, "prompt_bytes", len(prompt))
	res, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", op, err)
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", fmt.Errorf("gemini %s: %w", op, ErrEmptyResponse)
	}
	return text, nil
}
