// Package http is the chat transport: a JSON endpoint and a websocket endpoint
// in front of the assistant engine, plus health and readiness checks.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Frame types.
const (
	FrameMessage = "message"
	FrameStart   = "start"
	FrameReset   = "reset"
	FrameReply   = "reply"
	FrameError   = "error"
)

const (
	// MaxFrameBytes bounds one request body or websocket frame.
	MaxFrameBytes = 16 << 10
	// MaxTextRunes bounds the text of one chat message.
	MaxTextRunes = 4000
	maxUserRunes = 128
	maxNameRunes = 128
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrMissingUser    = errors.New("missing user")
	ErrMissingText    = errors.New("missing text")
	ErrFrameTooLarge  = errors.New("frame too large")
	ErrUnknownFrame   = errors.New("unknown frame type")
)

// Frame is one inbound chat payload. The same shape is accepted by the JSON
// endpoint and over the websocket; an empty type means message.
type Frame struct {
	Type string `json:"type"`
	User string `json:"user"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// DecodeFrame parses and validates data.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) > MaxFrameBytes {
		return Frame{}, ErrFrameTooLarge
	}
	var f Frame
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	f.Type = strings.ToLower(strings.TrimSpace(f.Type))
	if f.Type == "" {
		f.Type = FrameMessage
	}
	f.User = truncate(sanitizeInput(f.User), maxUserRunes)
	f.Name = truncate(sanitizeInput(f.Name), maxNameRunes)
	f.Text = sanitizeInput(f.Text)

	if f.User == "" {
		return Frame{}, ErrMissingUser
	}
	switch f.Type {
	case FrameMessage:
		if f.Text == "" {
			return Frame{}, ErrMissingText
		}
		if utf8.RuneCountInString(f.Text) > MaxTextRunes {
			return Frame{}, ErrFrameTooLarge
		}
	case FrameStart, FrameReset:
	default:
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownFrame, f.Type)
	}
	return f, nil
}

// ReadFrame reads a frame from a request body.
func ReadFrame(w http.ResponseWriter, r *http.Request) (Frame, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxFrameBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Frame{}, ErrFrameTooLarge
		}
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return DecodeFrame(body)
}

// frameStatus maps a decoding error to an HTTP status.
func frameStatus(err error) int {
	if errors.Is(err, ErrFrameTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// sanitizeInput removes control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
