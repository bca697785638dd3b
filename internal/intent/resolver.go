package intent

import (
	"context"
	"errors"
	"fmt"

	"hesab/internal/llm"
	"hesab/internal/log"
	"hesab/internal/session"
)

// Request is one incoming message together with the conversation context.
type Request struct {
	UserID  string
	Message string
	// System is the rendered instruction for model-backed resolvers.
	System  string
	History []session.Turn
}

// Resolution is an Action to dispatch, a rejected action or a free-text Reply.
// Raw is the unprocessed resolver output kept in the conversation history.
type Resolution struct {
	Action Action
	// Rejected wraps ErrInvalidAction when the reply named a known action
	// with unusable parameters, such as a zero amount.
	Rejected error
	Reply    string
	Raw      string
}

// Resolver maps a message onto an Action.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (Resolution, error)
}

// ModelResolver asks a language model and interprets its reply.
type ModelResolver struct {
	completer   llm.Completer
	temperature float64
	maxTokens   int
	logger      *log.Logger
}

func NewModelResolver(c llm.Completer, temperature float64, maxTokens int, logger *log.Logger) *ModelResolver {
	if c == nil {
		panic("intent: nil completer")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ModelResolver{
		completer:   c,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger.WithComponent(log.ComponentIntent),
	}
}

// Resolve fails with an error wrapping llm.ErrUnavailable when the model cannot answer.
func (r *ModelResolver) Resolve(ctx context.Context, req Request) (Resolution, error) {
	msgs := make([]llm.Message, 0, len(req.History)+1)
	for _, t := range req.History {
		role := llm.RoleUser
		if t.Role == session.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Text: t.Text})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Text: req.Message})

	reply, err := r.completer.Complete(ctx, llm.Request{
		System:      req.System,
		Messages:    msgs,
		Temperature: llm.Float(r.temperature),
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve intent: %w", err)
	}
	return Interpret(req.Message, reply, r.logger), nil
}

// Interpret classifies a model reply to message. It never fails: a known action
// with invalid parameters is marked Rejected, anything else that does not decode
// becomes free text.
func Interpret(message, reply string, logger *log.Logger) Resolution {
	res := Resolution{Reply: reply, Raw: reply}
	if IsSmallTalk(message) {
		return res
	}
	raw, ok := ExtractPayload(reply)
	if !ok {
		return res
	}
	p, err := decodePayload(raw)
	if err != nil {
		logMalformed(logger, err, reply)
		return res
	}
	action, err := p.action()
	switch {
	case err == nil:
		res.Action = action
	case errors.Is(err, ErrNoAction):
		res.Reply = actionlessText(p.Description.String(), reply)
	case errors.Is(err, ErrInvalidAction):
		logMalformed(logger, err, reply)
		res.Rejected = err
	default:
		logMalformed(logger, err, reply)
	}
	return res
}

func logMalformed(logger *log.Logger, err error, reply string) {
	if logger == nil {
		return
	}
	logger.Warn("Model reply did not decode into an action",
		log.FieldError, err.Error(),
		log.FieldRaw, truncate(reply, 500))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
