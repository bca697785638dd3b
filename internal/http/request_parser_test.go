package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Frame
		wantErr error
	}{
		{
			name: "message",
			data: `{"type":"message","user":"42","name":"سارا","text":"  215 هزار هزینه غذا  "}`,
			want: Frame{Type: FrameMessage, User: "42", Name: "سارا", Text: "215 هزار هزینه غذا"},
		},
		{
			name: "type defaults to message",
			data: `{"user":"42","text":"سلام"}`,
			want: Frame{Type: FrameMessage, User: "42", Text: "سلام"},
		},
		{
			name: "start needs no text",
			data: `{"type":"START","user":"42"}`,
			want: Frame{Type: FrameStart, User: "42"},
		},
		{
			name: "control characters removed",
			data: `{"user":"4\u00002","text":"a\u0007b\nc"}`,
			want: Frame{Type: FrameMessage, User: "42", Text: "ab\nc"},
		},
		{name: "malformed", data: `{"user":`, wantErr: ErrMalformedFrame},
		{name: "missing user", data: `{"text":"سلام"}`, wantErr: ErrMissingUser},
		{name: "blank text", data: `{"user":"42","text":"   "}`, wantErr: ErrMissingText},
		{name: "unknown type", data: `{"type":"confirm","user":"42"}`, wantErr: ErrUnknownFrame},
		{name: "text too long", data: `{"user":"42","text":"` + strings.Repeat("ب", MaxTextRunes+1) + `"}`, wantErr: ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFrame([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeFrame = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReadFrame_TooLarge(t *testing.T) {
	body := `{"user":"42","text":"` + strings.Repeat("a", MaxFrameBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body))

	_, err := ReadFrame(httptest.NewRecorder(), req)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
	if got := frameStatus(err); got != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", got)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  hello  ":      "hello",
		"a\x00b\x1fc":    "abc",
		"line1\nline2\t": "line1\nline2",
		"":               "",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("سلام دنیا", 4); got != "سلام" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
