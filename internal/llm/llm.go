// Package llm talks to hosted language models. Every completer turns an
// ordered conversation plus a system instruction into one reply text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnavailable wraps every transport, status and decoding failure of a completer.
var ErrUnavailable = errors.New("model unavailable")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role Role
	Text string
}

// Request is one completion call. A nil Temperature uses the provider
// setting; zero is a valid temperature.
type Request struct {
	System      string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
}

// Float returns a pointer to v for optional request fields.
func Float(v float64) *float64 { return &v }

// Completer returns the assistant reply for req. Failures wrap ErrUnavailable.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Settings are shared by every provider.
type Settings struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature *float64
	MaxTokens   int
}

const (
	DefaultTimeout     = 30 * time.Second
	DefaultTemperature = 0.6
	DefaultMaxTokens   = 4000
)

func (s Settings) withDefaults(model string) Settings {
	if s.Model == "" {
		s.Model = model
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.Temperature == nil {
		s.Temperature = Float(DefaultTemperature)
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = DefaultMaxTokens
	}
	return s
}

// fill applies provider settings to fields the caller left unset.
func (s Settings) fill(req Request) Request {
	if req.Temperature == nil {
		req.Temperature = s.Temperature
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = s.MaxTokens
	}
	return req
}

func unavailable(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrUnavailable, err)
}

func emptyReply(provider string) error {
	return fmt.Errorf("%s: %w: empty reply", provider, ErrUnavailable)
}

// Provider names accepted by New.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
)

// New builds the completer for provider.
func New(ctx context.Context, provider string, s Settings) (Completer, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("llm provider %q: missing api key", provider)
	}
	switch strings.ToLower(provider) {
	case ProviderOpenRouter, "":
		return NewOpenRouter(s), nil
	case ProviderAnthropic:
		return NewAnthropic(s), nil
	case ProviderGemini:
		return NewGemini(ctx, s)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
