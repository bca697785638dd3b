package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicModel = "claude-sonnet-4-20250514"

// Anthropic completes through the Claude Messages API.
type Anthropic struct {
	settings Settings
	client   anthropic.Client
}

func NewAnthropic(s Settings, opts ...option.RequestOption) *Anthropic {
	s = s.withDefaults(anthropicModel)
	opts = append([]option.RequestOption{option.WithAPIKey(s.APIKey)}, opts...)
	return &Anthropic{settings: s, client: anthropic.NewClient(opts...)}
}

func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	req = a.settings.fill(req)
	ctx, cancel := context.WithTimeout(ctx, a.settings.Timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.settings.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(*req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Text)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", unavailable(ProviderAnthropic, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", emptyReply(ProviderAnthropic)
	}
	return sb.String(), nil
}
