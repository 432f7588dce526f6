package translate

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini is a Backend on the Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGemini returns a Gemini backend.
func NewGemini(ctx context.Context, apiKey, model string, maxTokens int) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: cli, model: model, maxTokens: int32(maxTokens)}, nil
}

func (g *Gemini) Name() string  { return ProviderGemini }
func (g *Gemini) Model() string { return g.model }

// Complete sends one user turn with a system instruction.
func (g *Gemini) Complete(ctx context.Context, system, user string) (Completion, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}, cfg)
	if err != nil {
		return Completion{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Completion{}, errors.New("no candidates in response")
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		return Completion{}, errors.New("reply truncated at max tokens")
	}

	comp := Completion{Text: resp.Text()}
	if u := resp.UsageMetadata; u != nil {
		comp.PromptTokens = int(u.PromptTokenCount)
		comp.CompletionTokens = int(u.CandidatesTokenCount)
	}
	return comp, nil
}
