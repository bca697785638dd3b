package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesab/internal/amqp"
	"hesab/internal/core"
	"hesab/internal/log"
	"hesab/internal/storage"
	"hesab/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

func newLedger(t *testing.T) (*LedgerService, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	return NewLedgerService(store, pub, log.Discard()), store, pub
}

func openAccount(t *testing.T, s *LedgerService, name string, balance int64) core.Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), core.Account{UserID: "u1", Name: name, Kind: core.Bank, Balance: balance})
	require.NoError(t, err)
	return a
}

func balance(t *testing.T, store storage.Store, id string) int64 {
	t.Helper()
	a, err := store.GetAccount(context.Background(), "u1", id)
	require.NoError(t, err)
	return a.Balance
}

func TestAddTransactionAppliesBalance(t *testing.T) {
	ctx := context.Background()
	s, store, pub := newLedger(t)
	acc := openAccount(t, s, "ملت", 1_000_000)

	income, err := s.AddTransaction(ctx, core.Transaction{UserID: "u1", Type: core.Income, Amount: 300_000, Title: "حقوق", AccountID: acc.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, income.ID)
	assert.False(t, income.Date.IsZero())
	assert.Equal(t, int64(1_300_000), balance(t, store, acc.ID))

	_, err = s.AddTransaction(ctx, core.Transaction{UserID: "u1", Type: core.Expense, Amount: 50_000, Title: "ناهار", AccountID: acc.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1_250_000), balance(t, store, acc.ID))

	assert.Equal(t, []amqp.EventKind{amqp.TransactionCreated, amqp.TransactionCreated}, pub.kinds())
}

func TestAddTransactionRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s, store, pub := newLedger(t)
	acc := openAccount(t, s, "نقدی", 100)

	tests := map[string]struct {
		tx   core.Transaction
		want error
	}{
		"zero amount":     {core.Transaction{Type: core.Expense, Title: "x", AccountID: acc.ID}, core.ErrInvalidAmount},
		"negative amount": {core.Transaction{Type: core.Expense, Amount: -5, Title: "x", AccountID: acc.ID}, core.ErrInvalidAmount},
		"blank title":     {core.Transaction{Type: core.Expense, Amount: 5, Title: "  ", AccountID: acc.ID}, core.ErrEmptyTitle},
		"transfer":        {core.Transaction{Type: core.Transfer, Amount: 5, Title: "x", AccountID: acc.ID}, core.ErrInvalidType},
		"missing account": {core.Transaction{Type: core.Expense, Amount: 5, Title: "x", AccountID: "nope"}, core.ErrNotFound},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tt.tx.UserID = "u1"
			_, err := s.AddTransaction(ctx, tt.tx)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, int64(100), balance(t, store, acc.ID))
	assert.Empty(t, pub.kinds())
}

func TestTransferConservesTotal(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newLedger(t)
	a := openAccount(t, s, "A", 500_000)
	b := openAccount(t, s, "B", 20_000)

	tx, err := s.Transfer(ctx, core.Transaction{UserID: "u1", Amount: 200_000, AccountID: a.ID, ToAccountID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, core.Transfer, tx.Type)
	assert.Equal(t, "انتقال وجه", tx.Title)

	after := balance(t, store, a.ID) + balance(t, store, b.ID)
	assert.Equal(t, int64(520_000), after)
	assert.Equal(t, int64(300_000), balance(t, store, a.ID))
	assert.Equal(t, int64(220_000), balance(t, store, b.ID))
}

func TestTransferInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	s, store, pub := newLedger(t)
	a := openAccount(t, s, "A", 100_000)
	b := openAccount(t, s, "B", 0)

	_, err := s.Transfer(ctx, core.Transaction{UserID: "u1", Amount: 200_000, AccountID: a.ID, ToAccountID: b.ID})
	require.ErrorIs(t, err, core.ErrInsufficientBalance)

	var ibe *InsufficientBalanceError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, "A", ibe.Account.Name)

	assert.Equal(t, int64(100_000), balance(t, store, a.ID))
	assert.Equal(t, int64(0), balance(t, store, b.ID))
	txs, err := store.ListTransactions(ctx, core.TransactionQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Empty(t, pub.kinds())
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s, store, pub := newLedger(t)
	a := openAccount(t, s, "A", 100_000)
	b := openAccount(t, s, "B", 0)

	const workers = 10
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Transfer(ctx, core.Transaction{UserID: "u1", Amount: 40_000, AccountID: a.ID, ToAccountID: b.ID})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		var ibe *InsufficientBalanceError
		require.True(t, errors.As(err, &ibe), "unexpected error %v", err)
		assert.Less(t, ibe.Account.Balance, int64(40_000))
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, int64(20_000), balance(t, store, a.ID))
	assert.Equal(t, int64(80_000), balance(t, store, b.ID))
	assert.Len(t, pub.kinds(), 2)
}

func TestTransferSameAccount(t *testing.T) {
	s, _, _ := newLedger(t)
	a := openAccount(t, s, "A", 100_000)

	_, err := s.Transfer(context.Background(), core.Transaction{UserID: "u1", Amount: 10, AccountID: a.ID, ToAccountID: a.ID})
	assert.ErrorIs(t, err, core.ErrSameAccount)
}

func TestDeleteRestoresBalances(t *testing.T) {
	ctx := context.Background()
	s, store, pub := newLedger(t)
	a := openAccount(t, s, "A", 400_000)
	b := openAccount(t, s, "B", 0)

	exp, err := s.AddTransaction(ctx, core.Transaction{UserID: "u1", Type: core.Expense, Amount: 70_000, Title: "خرید", AccountID: a.ID})
	require.NoError(t, err)
	tr, err := s.Transfer(ctx, core.Transaction{UserID: "u1", Amount: 100_000, AccountID: a.ID, ToAccountID: b.ID})
	require.NoError(t, err)

	_, err = s.DeleteTransaction(ctx, "u1", tr.ID)
	require.NoError(t, err)
	_, err = s.DeleteTransaction(ctx, "u1", exp.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(400_000), balance(t, store, a.ID))
	assert.Equal(t, int64(0), balance(t, store, b.ID))
	assert.Equal(t, amqp.TransactionDeleted, pub.kinds()[3])

	_, err = s.DeleteTransaction(ctx, "u1", exp.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := NewLedgerService(store, &recordingPublisher{err: errors.New("circuit breaker is open")}, log.Discard())
	a := openAccount(t, s, "A", 0)

	_, err := s.AddTransaction(ctx, core.Transaction{UserID: "u1", Type: core.Income, Amount: 1000, Title: "هدیه", AccountID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance(t, store, a.ID))
}

func TestNilPublisher(t *testing.T) {
	s := NewLedgerService(memory.New(), nil, log.Discard())
	a := openAccount(t, s, "A", 0)

	_, err := s.AddTransaction(context.Background(), core.Transaction{UserID: "u1", Type: core.Income, Amount: 1, Title: "x", AccountID: a.ID})
	assert.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestCreateAccount(t *testing.T) {
	s, _, _ := newLedger(t)

	a := openAccount(t, s, " ملت ", 5000)
	assert.Equal(t, "ملت", a.Name)
	assert.True(t, a.IsActive)

	_, err := s.CreateAccount(context.Background(), core.Account{UserID: "u1", Name: "ملت", Kind: core.Bank})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	_, err = s.CreateAccount(context.Background(), core.Account{UserID: "u1", Name: "x", Kind: "crypto"})
	assert.ErrorIs(t, err, core.ErrInvalidKind)

	_, err = s.CreateAccount(context.Background(), core.Account{UserID: "u1", Name: "y", Kind: core.Cash, Balance: -1})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestGoalLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newLedger(t)

	g, err := s.CreateGoal(ctx, core.Goal{UserID: "u1", Title: "خرید لپ‌تاپ", TargetAmount: 50_000_000, CurrentAmount: 99, Kind: core.SavingsGoal})
	require.NoError(t, err)
	assert.Zero(t, g.CurrentAmount)
	assert.False(t, g.IsCompleted)

	current := int64(20_000_000)
	g, err = s.UpdateGoal(ctx, "u1", g.ID, GoalPatch{CurrentAmount: &current})
	require.NoError(t, err)
	assert.False(t, g.IsCompleted)
	assert.Equal(t, int64(40), g.Progress())

	target := int64(15_000_000)
	deadline := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	g, err = s.UpdateGoal(ctx, "u1", g.ID, GoalPatch{TargetAmount: &target, Deadline: &deadline})
	require.NoError(t, err)
	assert.True(t, g.IsCompleted)
	require.NotNil(t, g.Deadline)
	assert.True(t, g.Deadline.Equal(deadline))

	// Completion sticks even when the target moves back up.
	target = 90_000_000
	g, err = s.UpdateGoal(ctx, "u1", g.ID, GoalPatch{TargetAmount: &target})
	require.NoError(t, err)
	assert.True(t, g.IsCompleted)

	_, err = s.UpdateGoal(ctx, "u1", "missing", GoalPatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	negative := int64(-1)
	_, err = s.UpdateGoal(ctx, "u1", g.ID, GoalPatch{CurrentAmount: &negative})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}
