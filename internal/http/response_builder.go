package http

import (
	"encoding/json"
	"net/http"

	"hesab/internal/assistant"
)

// Reply is one outbound chat payload.
type Reply struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

// ReplyOf renders an assistant result.
func ReplyOf(res assistant.Result) Reply {
	return Reply{Type: FrameReply, Success: res.Success, Text: res.Text()}
}

// ErrorReply is a transport level rejection.
func ErrorReply(text string) Reply {
	return Reply{Type: FrameError, Text: text}
}

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the response. An encoding failure after the status line is sent
// cannot be reported to the client and is dropped.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

// ReplyResponse answers a chat request.
func ReplyResponse(res assistant.Result) *JSONResponseBuilder {
	return NewJSONResponse().Body(ReplyOf(res))
}

// ErrorResponse creates an error frame response with statusCode.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorReply(message))
}

// TooManyRequests creates a 429 response with a Retry-After in seconds.
func TooManyRequests(retryAfter string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, MsgRateLimited).Header("Retry-After", retryAfter)
}
