// Package services orchestrates ledger mutations across the store and the event bus.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"hesab/internal/amqp"
	"hesab/internal/core"
	"hesab/internal/log"
	"hesab/internal/storage"
)

// Publisher delivers ledger events. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, e amqp.LedgerEvent) error
}

// InsufficientBalanceError reports a transfer larger than the source balance.
type InsufficientBalanceError struct {
	Account core.Account
	Amount  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("account %q holds %d, transfer needs %d", e.Account.Name, e.Account.Balance, e.Amount)
}

func (e *InsufficientBalanceError) Unwrap() error { return core.ErrInsufficientBalance }

// GoalPatch lists the goal fields to change. Nil fields are left untouched.
type GoalPatch struct {
	Title         *string
	TargetAmount  *int64
	CurrentAmount *int64
	Deadline      *time.Time
}

// LedgerService persists every balance-affecting operation and announces it
// on the event bus. Publishing is best effort: a saved entry is never rolled
// back because the bus is down.
type LedgerService struct {
	store     storage.Store
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
}

// NewLedgerService wires the service. publisher may be nil.
func NewLedgerService(store storage.Store, publisher Publisher, logger *log.Logger) *LedgerService {
	if store == nil {
		panic("services: nil store")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		now:       time.Now,
	}
}

// Store exposes the underlying store for read paths.
func (s *LedgerService) Store() storage.Store { return s.store }

// AddTransaction records an income or expense entry and applies its balance effect.
// Recurring templates carry a RecurringType; the ID and missing date are filled in.
func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Type == core.Transfer {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", core.ErrInvalidType)
	}
	return s.record(ctx, t)
}

// Transfer moves t.Amount from t.AccountID to t.ToAccountID. It fails with
// core.ErrSameAccount or an *InsufficientBalanceError without touching any balance.
// The store checks the source balance in the same write that debits it.
func (s *LedgerService) Transfer(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Type = core.Transfer
	if t.AccountID != "" && t.AccountID == t.ToAccountID {
		return core.Transaction{}, fmt.Errorf("transfer: %w", core.ErrSameAccount)
	}
	if t.Amount <= 0 {
		return core.Transaction{}, fmt.Errorf("transfer: %w", core.ErrInvalidAmount)
	}
	if _, err := s.store.GetAccount(ctx, t.UserID, t.AccountID); err != nil {
		return core.Transaction{}, s.storeError(ctx, log.OpTransfer, fmt.Errorf("transfer source: %w", err))
	}
	if _, err := s.store.GetAccount(ctx, t.UserID, t.ToAccountID); err != nil {
		return core.Transaction{}, s.storeError(ctx, log.OpTransfer, fmt.Errorf("transfer destination: %w", err))
	}
	if strings.TrimSpace(t.Title) == "" {
		t.Title = "انتقال وجه"
	}
	out, err := s.record(ctx, t)
	if errors.Is(err, core.ErrInsufficientBalance) {
		src, gerr := s.store.GetAccount(ctx, t.UserID, t.AccountID)
		if gerr != nil {
			return core.Transaction{}, err
		}
		return core.Transaction{}, &InsufficientBalanceError{Account: src, Amount: t.Amount}
	}
	return out, err
}

func (s *LedgerService) record(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Date.IsZero() {
		t.Date = s.now()
	}
	t.Title = strings.TrimSpace(t.Title)
	t.IsRecurring = t.RecurringType != ""
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}
	if err := s.store.RecordTransaction(ctx, t); err != nil {
		return core.Transaction{}, s.storeError(ctx, log.OpCreate, fmt.Errorf("record transaction: %w", err))
	}

	s.logger.InfoContext(ctx, "Recorded transaction",
		log.NewFields().WithUser(t.UserID).WithTransaction(t.ID, t.AccountID, string(t.Type), t.Amount).ToSlice()...)

	s.publish(ctx, amqp.TransactionCreated, t)
	return t, nil
}

// DeleteTransaction removes an entry and reverses its balance effect.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := s.store.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, s.storeError(ctx, log.OpDelete, fmt.Errorf("delete transaction: %w", err))
	}

	s.logger.InfoContext(ctx, "Deleted transaction",
		log.NewFields().WithUser(userID).WithTransaction(t.ID, t.AccountID, string(t.Type), t.Amount).ToSlice()...)

	s.publish(ctx, amqp.TransactionDeleted, t)
	return t, nil
}

// CreateAccount opens an active account holding its initial balance.
func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Balance < 0 {
		return core.Account{}, fmt.Errorf("create account: %w", core.ErrInvalidAmount)
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID = uuid.NewString()
	a.IsActive = true
	a.CreatedAt = s.now()
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return core.Account{}, s.storeError(ctx, log.OpCreate, err)
	}
	s.logger.InfoContext(ctx, "Created account",
		log.FieldUserID, a.UserID, log.FieldAccountID, a.ID, log.FieldType, string(a.Kind))
	return a, nil
}

// CreateGoal stores a new goal with nothing saved yet.
func (s *LedgerService) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.Title = strings.TrimSpace(g.Title)
	g.CurrentAmount = 0
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	g.ID = uuid.NewString()
	g.CreatedAt = s.now()
	g.IsCompleted = false
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return core.Goal{}, s.storeError(ctx, log.OpCreate, fmt.Errorf("create goal: %w", err))
	}
	s.logger.InfoContext(ctx, "Created goal", log.FieldUserID, g.UserID, log.FieldGoalID, g.ID)
	return g, nil
}

// UpdateGoal applies p and recomputes completion.
func (s *LedgerService) UpdateGoal(ctx context.Context, userID, id string, p GoalPatch) (core.Goal, error) {
	g, err := s.store.GetGoal(ctx, userID, id)
	if err != nil {
		return core.Goal{}, s.storeError(ctx, log.OpUpdate, fmt.Errorf("update goal: %w", err))
	}
	if p.Title != nil {
		g.Title = strings.TrimSpace(*p.Title)
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = *p.CurrentAmount
	}
	if p.Deadline != nil {
		d := *p.Deadline
		g.Deadline = &d
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	g.Recompute()
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return core.Goal{}, s.storeError(ctx, log.OpUpdate, fmt.Errorf("update goal: %w", err))
	}
	s.logger.InfoContext(ctx, "Updated goal",
		log.FieldUserID, userID, log.FieldGoalID, id, "completed", g.IsCompleted)
	return g, nil
}

func (s *LedgerService) publish(ctx context.Context, kind amqp.EventKind, t core.Transaction) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Event bus not configured, skipping ledger event", log.FieldEvent, string(kind))
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewLedgerEvent(kind, t, s.now())); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithError(err, log.ErrorTypeNetwork).
				WithTransaction(t.ID, t.AccountID, string(t.Type), t.Amount).
				ToSlice()...)
	}
}

// storeError logs unexpected persistence failures and returns err unchanged.
func (s *LedgerService) storeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, storage.ErrDuplicate) || errors.Is(err, core.ErrInsufficientBalance) {
		return err
	}
	s.logger.ErrorContext(ctx, "Ledger persistence failed",
		log.NewFields().WithOperation(op).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
	return err
}

// Close closes the store and the publisher when it holds a connection.
func (s *LedgerService) Close() error {
	var errs []error
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
