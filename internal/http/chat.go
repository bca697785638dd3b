package http

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hesab/internal/assistant"
	"hesab/internal/log"
	"hesab/internal/middleware/auth"
)

const (
	MsgRateLimited = "⏳ تعداد پیام‌ها زیاد است. لطفاً کمی صبر کنید و دوباره تلاش کنید."
	MsgReset       = "🧹 تاریخچه گفتگو پاک شد. از نو شروع کنیم!"
	MsgBadFrame    = "پیام نامعتبر است."
	MsgForbidden   = "⛔ اجازه دسترسی به این کاربر را ندارید."

	wsWriteTimeout = 10 * time.Second
)

// errRateLimited carries the seconds until the caller may retry.
type errRateLimited struct{ retryAfter time.Duration }

func (e errRateLimited) Error() string { return "rate limit exceeded" }

func (e errRateLimited) seconds() string {
	return strconv.Itoa(int(math.Ceil(e.retryAfter.Seconds())))
}

// answer runs one validated frame through the assistant as the user the
// caller's token allows.
func (s *Server) answer(ctx context.Context, r *http.Request, f Frame) (Reply, error) {
	p, _ := auth.FromContext(ctx)
	user, err := p.Resolve(f.User)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Frame rejected for principal",
			log.FieldUserID, f.User, log.FieldError, err.Error(), log.FieldClientIP, s.detector.ClientIP(r))
		return ErrorReply(MsgForbidden), err
	}
	f.User = user

	key := s.rateKey(r, f.User)
	if !s.limiter.Allow(key) {
		atomic.AddInt64(&s.metrics.rateLimited, 1)
		log.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
			log.FieldUserID, f.User, log.FieldClientIP, s.detector.ClientIP(r))
		return ErrorReply(MsgRateLimited), errRateLimited{s.limiter.RetryAfter(key)}
	}

	msg := assistant.Message{ExternalID: f.User, DisplayName: f.Name, Text: f.Text}
	var res assistant.Result
	switch f.Type {
	case FrameStart:
		res = s.assistant.Welcome(ctx, msg)
	case FrameReset:
		if err := s.assistant.Forget(ctx, f.User); err != nil {
			log.FromContext(ctx).ErrorContext(ctx, "Failed to reset history",
				log.NewFields().WithUser(f.User).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
			res = assistant.Result{Message: assistant.MsgGenericError}
		} else {
			res = assistant.Result{Success: true, Message: MsgReset}
		}
	default:
		atomic.AddInt64(&s.metrics.messages, 1)
		res = s.assistant.Handle(ctx, msg)
	}
	if !res.Success {
		atomic.AddInt64(&s.metrics.failures, 1)
	}
	return ReplyOf(res), nil
}

// handleMessage answers one JSON frame posted to /api/messages.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	f, err := ReadFrame(w, r)
	if err != nil {
		ErrorResponse(frameStatus(err), err.Error()).Write(w)
		return
	}
	reply, err := s.answer(r.Context(), r, f)
	var limited errRateLimited
	switch {
	case errors.As(err, &limited):
		TooManyRequests(limited.seconds()).Write(w)
		return
	case errors.Is(err, auth.ErrForbiddenUser), errors.Is(err, auth.ErrNoUser):
		NewJSONResponse().Status(http.StatusForbidden).Body(reply).Write(w)
		return
	}
	NewJSONResponse().Body(reply).Write(w)
}

// handleWebSocket serves a chat connection. Frames are answered in order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(ctx, "WebSocket upgrade failed", log.FieldError, err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(MaxFrameBytes)

	atomic.AddInt64(&s.metrics.wsTotal, 1)
	atomic.AddInt64(&s.metrics.wsOpen, 1)
	defer atomic.AddInt64(&s.metrics.wsOpen, -1)
	logger.InfoContext(ctx, "WebSocket connected", log.FieldClientIP, s.detector.ClientIP(r))

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnContext(ctx, "WebSocket closed", log.FieldError, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			if !s.send(conn, ErrorReply(MsgBadFrame)) {
				return
			}
			continue
		}

		var reply Reply
		f, err := DecodeFrame(data)
		if err != nil {
			reply = ErrorReply(err.Error())
		} else {
			reply, _ = s.answer(ctx, r, f)
		}
		if !s.send(conn, reply) {
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, reply Reply) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(reply); err != nil {
		s.logger.Warn("WebSocket write failed", log.FieldError, err)
		return false
	}
	return true
}
