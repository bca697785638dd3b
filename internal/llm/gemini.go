package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// Gemini completes through the Google GenAI API.
type Gemini struct {
	settings Settings
	client   *genai.Client
}

func NewGemini(ctx context.Context, s Settings) (*Gemini, error) {
	s = s.withDefaults(geminiModel)
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{settings: s, client: client}, nil
}

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	req = g.settings.fill(req)
	ctx, cancel := context.WithTimeout(ctx, g.settings.Timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	temp := float32(*req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.settings.Model, contents, cfg)
	if err != nil {
		return "", unavailable(ProviderGemini, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", emptyReply(ProviderGemini)
	}
	return text, nil
}
