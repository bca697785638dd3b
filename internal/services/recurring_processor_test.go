package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesab/internal/core"
	"hesab/internal/log"
)

func TestRecurringProcessor(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newLedger(t)
	acc := openAccount(t, s, "ملت", 10_000_000)
	start := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	rent, err := s.AddTransaction(ctx, core.Transaction{
		UserID: "u1", Type: core.Expense, Amount: 3_000_000, Title: "اجاره",
		AccountID: acc.ID, Date: start, RecurringType: core.Monthly,
	})
	require.NoError(t, err)
	assert.True(t, rent.IsRecurring)
	_, err = s.AddTransaction(ctx, core.Transaction{
		UserID: "u1", Type: core.Income, Amount: 500_000, Title: "سود", AccountID: acc.ID, Date: start,
	})
	require.NoError(t, err)

	p := NewRecurringProcessor(s, log.Discard())

	n, err := p.ProcessDue(ctx, time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n, "the template itself is the January execution")

	n, err = p.ProcessDue(ctx, time.Date(2024, 2, 4, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n, "before the target day")

	feb := time.Date(2024, 2, 5, 9, 0, 0, 0, time.UTC)
	n, err = p.ProcessDue(ctx, feb)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.ProcessDue(ctx, feb.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "already materialized this month")

	occ, err := store.ListTransactions(ctx, core.TransactionQuery{UserID: "u1", ParentID: rent.ID})
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, "اجاره", occ[0].Title)
	assert.False(t, occ[0].IsRecurring)
	assert.True(t, occ[0].Date.Equal(feb))

	assert.Equal(t, int64(10_000_000-6_000_000+500_000), balance(t, store, acc.ID))
}

func TestRecurringProcessorSkipsFailures(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newLedger(t)
	a := openAccount(t, s, "A", 1_000)
	b := openAccount(t, s, "B", 0)

	// A recurring transfer larger than the balance cannot run.
	err := store.RecordTransaction(ctx, core.Transaction{
		ID: "tpl", UserID: "u1", Type: core.Transfer, Amount: 600, Title: "پس‌انداز",
		AccountID: a.ID, ToAccountID: b.ID, IsRecurring: true, RecurringType: core.Daily,
		Date: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	p := NewRecurringProcessor(s, log.Discard())

	n, err := p.ProcessDue(ctx, time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(400), balance(t, store, a.ID))
}

func TestRecurringProcessorUninitialized(t *testing.T) {
	_, err := (&RecurringProcessor{}).ProcessDue(context.Background(), time.Now())
	assert.Error(t, err)
}
