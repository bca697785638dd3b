package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"hesab/internal/core"
	"hesab/internal/intent"
	"hesab/internal/llm"
	"hesab/internal/log"
	"hesab/internal/period"
	"hesab/internal/services"
	"hesab/internal/session"
	"hesab/internal/storage"
)

const (
	// MsgGenericError is returned when a message could not be processed at all.
	MsgGenericError = "❌ متاسفانه مشکلی پیش آمده. لطفاً دوباره تلاش کنید.\n\n💡 می‌تونی سوالت رو به شکل دیگری بپرسی یا از دستورات ساده‌تر استفاده کنی."
	// MsgAIUnavailable is returned when the resolver could not answer.
	MsgAIUnavailable = "مشکلی در ارتباط با هوش مصنوعی وجود دارد."
)

// Message is one incoming chat message.
type Message struct {
	ExternalID  string // transport identity of the sender
	DisplayName string
	Text        string
}

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	HistoryContext int           // turns injected into a request, default 5
	Timeout        time.Duration // bound of one resolution, default 30s
	Location       *time.Location
	Now            func() time.Time
}

// Engine is the entry point of the assistant. Messages of one user are handled
// one at a time; different users proceed concurrently.
type Engine struct {
	store          storage.Store
	resolver       intent.Resolver
	history        session.Store
	contexts       *ContextBuilder
	dispatcher     *Dispatcher
	periods        *period.Resolver
	historyContext int
	timeout        time.Duration
	logger         *log.Logger
	locks          userLocks
}

// NewEngine wires an engine. It panics when ledger or resolver is nil.
func NewEngine(ledger *services.LedgerService, resolver intent.Resolver, history session.Store, opts Options, logger *log.Logger) *Engine {
	if ledger == nil {
		panic("assistant: nil ledger")
	}
	if resolver == nil {
		panic("assistant: nil resolver")
	}
	if history == nil {
		history = session.NewMemoryStore(session.DefaultCapacity, 0, 0)
	}
	if logger == nil {
		logger = log.Default()
	}
	if opts.HistoryContext <= 0 {
		opts.HistoryContext = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	periods := period.NewResolver(opts.Location)
	if opts.Now != nil {
		periods = periods.WithClock(opts.Now)
	}
	return &Engine{
		store:          ledger.Store(),
		resolver:       resolver,
		history:        history,
		contexts:       NewContextBuilder(ledger.Store(), periods),
		dispatcher:     NewDispatcher(ledger, periods, logger),
		periods:        periods,
		historyContext: opts.HistoryContext,
		timeout:        opts.Timeout,
		logger:         logger.WithComponent(log.ComponentChat),
		locks:          userLocks{m: make(map[string]*userLock)},
	}
}

// Handle answers one message. Every expected failure is returned as a Result.
func (e *Engine) Handle(ctx context.Context, msg Message) Result {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return Result{Message: MsgGenericError}
	}
	unlock := e.locks.lock(msg.ExternalID)
	defer unlock()

	user, err := e.user(ctx, msg)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to load user",
			log.NewFields().WithUser(msg.ExternalID).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return Result{Message: MsgGenericError}
	}
	snap, err := e.contexts.Build(ctx, user)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to build context",
			log.NewFields().WithUser(user.ID).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return Result{Message: MsgGenericError}
	}
	system, err := snap.Prompt()
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to render prompt",
			log.NewFields().WithUser(user.ID).WithError(err, log.ErrorTypeInternal).ToSlice()...)
		return Result{Message: MsgGenericError}
	}

	past := e.history.Get(user.ID, e.historyContext)
	e.history.Append(user.ID, session.Turn{Role: session.RoleUser, Text: text, At: snap.Now})

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	res, err := e.resolver.Resolve(rctx, intent.Request{
		UserID:  user.ID,
		Message: text,
		System:  system,
		History: past,
	})
	if err != nil {
		errType := log.ErrorTypeUpstream
		if errors.Is(err, context.DeadlineExceeded) {
			errType = log.ErrorTypeTimeout
		} else if !errors.Is(err, llm.ErrUnavailable) {
			errType = log.ErrorTypeInternal
		}
		e.logger.ErrorContext(ctx, "Intent resolution failed",
			log.NewFields().WithUser(user.ID).WithOperation(log.OpComplete).WithError(err, errType).ToSlice()...)
		return Result{Message: MsgAIUnavailable}
	}
	e.history.Append(user.ID, session.Turn{Role: session.RoleAssistant, Text: res.Raw, At: e.periods.Now()})

	if res.Rejected != nil {
		e.logger.InfoContext(ctx, "Rejected action", log.FieldUserID, user.ID, log.FieldError, res.Rejected.Error())
		return Result{Message: rejectionMessage(res.Rejected)}
	}
	if res.Action == nil {
		return Result{Success: true, Message: res.Reply}
	}
	e.logger.InfoContext(ctx, "Resolved action", log.FieldUserID, user.ID, log.FieldAction, res.Action.Name())
	return e.dispatcher.Dispatch(ctx, snap, res.Action)
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, intent.ErrNonPositiveAmount):
		return MsgInvalidAmount
	case errors.Is(err, intent.ErrMissingDestination):
		return MsgMissingDestination
	}
	return MsgIncompleteAction
}

// Welcome greets a user and registers them on first contact.
func (e *Engine) Welcome(ctx context.Context, msg Message) Result {
	user, err := e.user(ctx, msg)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to register user",
			log.NewFields().WithUser(msg.ExternalID).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return Result{Message: "❌ خطا در ایجاد کاربر. لطفاً دوباره تلاش کنید."}
	}
	name := user.DisplayName
	if name == "" {
		name = DefaultName
	}
	return Result{Success: true, Message: welcomeText(name, e.periods.Now())}
}

// Forget drops the conversation history of a user.
func (e *Engine) Forget(ctx context.Context, externalID string) error {
	user, err := e.store.UpsertUser(ctx, core.User{ExternalID: externalID})
	if err != nil {
		return fmt.Errorf("forget %s: %w", externalID, err)
	}
	e.history.Evict(user.ID)
	return nil
}

func (e *Engine) user(ctx context.Context, msg Message) (core.User, error) {
	if strings.TrimSpace(msg.ExternalID) == "" {
		return core.User{}, errors.New("missing user id")
	}
	return e.store.UpsertUser(ctx, core.User{
		ExternalID:     msg.ExternalID,
		DisplayName:    strings.TrimSpace(msg.DisplayName),
		LastActivityAt: e.periods.Now(),
	})
}

func welcomeText(name string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 سلام %s! من دستیار مالی فوق‌العاده هوشمند شما هستم! 🎉✨\n\n", name)
	b.WriteString("💬 دیگه نیازی به دکمه زدن نیست! فقط با من چت کن و من همه کارهات رو انجام میدم.\n\n")
	fmt.Fprintf(&b, "📅 امروز: %s\n\n", core.FormatJalaali(now))
	b.WriteString("🚀 قدرت‌های من:\n\n")
	b.WriteString("💰 مدیریت مالی:\n• ثبت تراکنش‌های درآمد و هزینه\n• انتقال پول بین حساب‌ها\n• تراکنش‌های تکراری (روزانه، هفتگی، ماهانه)\n\n")
	b.WriteString("📊 گزارش‌ها و تحلیل:\n• گزارش‌های کامل (هفته، ماه، سال)\n• تحلیل روند مالی\n• مقایسه دوره‌های مختلف\n• آمار دسته‌بندی‌ها\n• جستجوی پیشرفته\n\n")
	b.WriteString("🎯 مدیریت اهداف:\n• ایجاد و پیگیری اهداف مالی\n• بررسی پیشرفت\n\n")
	b.WriteString("💡 نمونه دستورات:\n")
	for _, ex := range []string{
		"215 هزار هزینه غذا کردم",
		"گزارش کامل این ماه",
		"نسبت به ماه قبل چقدر خرج کردم؟",
		"200 هزار از بلو به کش ببر",
		"یه هدف 10 میلیونی برای خرید ماشین تا پایان سال بذار",
		"هزینه‌های غذا رو نشون بده",
	} {
		fmt.Fprintf(&b, "• \"%s\"\n", ex)
	}
	b.WriteString("\nچیکار برات انجام بدم؟ 🤗")
	return b.String()
}

// userLocks hands out one mutex per user and forgets it once nobody holds it.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (l *userLocks) lock(id string) func() {
	l.mu.Lock()
	ul, ok := l.m[id]
	if !ok {
		ul = &userLock{}
		l.m[id] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
