package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	openRouterURL   = "https://openrouter.ai/api/v1/chat/completions"
	openRouterModel = "tngtech/deepseek-r1t2-chimera:free"
)

// OpenRouter calls the OpenAI-compatible chat completions endpoint of openrouter.ai.
type OpenRouter struct {
	settings Settings
	url      string
	client   *http.Client
}

func NewOpenRouter(s Settings) *OpenRouter {
	s = s.withDefaults(openRouterModel)
	return &OpenRouter{
		settings: s,
		url:      openRouterURL,
		client:   &http.Client{Timeout: s.Timeout},
	}
}

// WithURL points the completer at another endpoint.
func (o *OpenRouter) WithURL(url string) *OpenRouter {
	o.url = url
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenRouter) Complete(ctx context.Context, req Request) (string, error) {
	req = o.settings.fill(req)
	body := chatRequest{
		Model:       o.settings.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Text})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.settings.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.settings.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", "https://hesabdari-bot.com")
	httpReq.Header.Set("X-Title", "Hesabdari Bot")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", unavailable(ProviderOpenRouter, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", unavailable(ProviderOpenRouter, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", unavailable(ProviderOpenRouter, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200)))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", unavailable(ProviderOpenRouter, fmt.Errorf("decode response: %w", err))
	}
	if out.Error != nil {
		return "", unavailable(ProviderOpenRouter, fmt.Errorf("api error: %s", out.Error.Message))
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", emptyReply(ProviderOpenRouter)
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
