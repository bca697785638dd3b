// Package storetest holds behaviour tests shared by every storage.Store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesab/internal/core"
	"hesab/internal/storage"
)

// Run exercises s against the Store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("UpsertUser", func(t *testing.T) { testUpsertUser(t, newStore(t)) })
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("RecordAndDelete", func(t *testing.T) { testRecordAndDelete(t, newStore(t)) })
	t.Run("RecordMissingAccount", func(t *testing.T) { testRecordMissingAccount(t, newStore(t)) })
	t.Run("TransferNeedsFunds", func(t *testing.T) { testTransferNeedsFunds(t, newStore(t)) })
	t.Run("ConcurrentTransfers", func(t *testing.T) { testConcurrentTransfers(t, newStore(t)) })
	t.Run("ListTransactions", func(t *testing.T) { testListTransactions(t, newStore(t)) })
	t.Run("Goals", func(t *testing.T) { testGoals(t, newStore(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func seedAccounts(t *testing.T, s storage.Store, userID string) {
	t.Helper()
	ctx := context.Background()
	for _, a := range []core.Account{
		{ID: "acc-cash", UserID: userID, Name: "نقدی", Kind: core.Cash, Balance: 100_000, IsActive: true, CreatedAt: base},
		{ID: "acc-bank", UserID: userID, Name: "ملت", Kind: core.Bank, Balance: 5_000_000, IsActive: true, CreatedAt: base},
	} {
		require.NoError(t, s.CreateAccount(ctx, a))
	}
}

func balance(t *testing.T, s storage.Store, userID, id string) int64 {
	t.Helper()
	a, err := s.GetAccount(context.Background(), userID, id)
	require.NoError(t, err)
	return a.Balance
}

func testUpsertUser(t *testing.T, s storage.Store) {
	ctx := context.Background()
	first, err := s.UpsertUser(ctx, core.User{ExternalID: "tg:1", DisplayName: "Sara", LastActivityAt: base})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := s.UpsertUser(ctx, core.User{ExternalID: "tg:1", LastActivityAt: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Sara", second.DisplayName, "empty display name keeps the stored one")
	assert.True(t, second.LastActivityAt.Equal(base.Add(time.Hour)))

	got, err := s.GetUser(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "tg:1", got.ExternalID)

	_, err = s.GetUser(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func testAccounts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedAccounts(t, s, "u1")

	accounts, err := s.ListAccounts(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-bank", accounts[0].ID, "sorted by balance descending")

	err = s.CreateAccount(ctx, core.Account{ID: "dup", UserID: "u1", Name: "ملت", Kind: core.Bank, IsActive: true, CreatedAt: base})
	assert.True(t, errors.Is(err, storage.ErrDuplicate))

	require.NoError(t, s.SetAccountActive(ctx, "u1", "acc-cash", false))
	accounts, err = s.ListAccounts(ctx, "u1", true)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	all, err := s.ListAccounts(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.GetAccount(ctx, "u2", "acc-cash")
	assert.True(t, errors.Is(err, core.ErrNotFound), "accounts are scoped by user")
}

func testCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food, err := s.UpsertCategory(ctx, core.Category{Name: "غذا", Type: core.CategoryExpense, IsDefault: true, Icon: "🍕"})
	require.NoError(t, err)
	require.NotEmpty(t, food.ID)

	again, err := s.UpsertCategory(ctx, core.Category{Name: "غذا", Type: core.CategoryExpense, IsDefault: true, Icon: "🍔"})
	require.NoError(t, err)
	assert.Equal(t, food.ID, again.ID)
	assert.Equal(t, "🍔", again.Icon)

	_, err = s.UpsertCategory(ctx, core.Category{UserID: "u1", Name: "قهوه", Type: core.CategoryExpense})
	require.NoError(t, err)
	_, err = s.UpsertCategory(ctx, core.Category{UserID: "u2", Name: "کتاب", Type: core.CategoryExpense})
	require.NoError(t, err)

	cats, err := s.ListCategories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "غذا", cats[0].Name, "global categories come first")
	assert.Equal(t, "قهوه", cats[1].Name)

	got, err := s.GetCategory(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "غذا", got.Name)
}

func testRecordAndDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedAccounts(t, s, "u1")
	food, err := s.UpsertCategory(ctx, core.Category{Name: "غذا", Type: core.CategoryExpense})
	require.NoError(t, err)

	expense := core.Transaction{ID: "t1", UserID: "u1", Type: core.Expense, Amount: 40_000, Title: "ناهار",
		CategoryID: food.ID, AccountID: "acc-cash", Date: base}
	require.NoError(t, s.RecordTransaction(ctx, expense))
	assert.Equal(t, int64(60_000), balance(t, s, "u1", "acc-cash"))

	got, err := s.GetCategory(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsageCount)

	transfer := core.Transaction{ID: "t2", UserID: "u1", Type: core.Transfer, Amount: 1_000_000, Title: "انتقال",
		AccountID: "acc-bank", ToAccountID: "acc-cash", Date: base.Add(time.Hour)}
	require.NoError(t, s.RecordTransaction(ctx, transfer))
	assert.Equal(t, int64(4_000_000), balance(t, s, "u1", "acc-bank"))
	assert.Equal(t, int64(1_060_000), balance(t, s, "u1", "acc-cash"))

	deleted, err := s.DeleteTransaction(ctx, "u1", "t2")
	require.NoError(t, err)
	assert.Equal(t, core.Transfer, deleted.Type)
	assert.Equal(t, int64(5_000_000), balance(t, s, "u1", "acc-bank"))
	assert.Equal(t, int64(60_000), balance(t, s, "u1", "acc-cash"))

	_, err = s.DeleteTransaction(ctx, "u1", "t2")
	assert.True(t, errors.Is(err, core.ErrNotFound))
	_, err = s.DeleteTransaction(ctx, "u2", "t1")
	assert.True(t, errors.Is(err, core.ErrNotFound), "other users cannot delete")
}

func testRecordMissingAccount(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedAccounts(t, s, "u1")

	bad := core.Transaction{ID: "t1", UserID: "u1", Type: core.Transfer, Amount: 10, Title: "x",
		AccountID: "acc-cash", ToAccountID: "gone", Date: base}
	err := s.RecordTransaction(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	assert.Equal(t, int64(100_000), balance(t, s, "u1", "acc-cash"), "failed write leaves balances untouched")
	_, err = s.GetTransaction(ctx, "u1", "t1")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func testTransferNeedsFunds(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedAccounts(t, s, "u1")

	over := core.Transaction{ID: "t1", UserID: "u1", Type: core.Transfer, Amount: 100_001, Title: "انتقال",
		AccountID: "acc-cash", ToAccountID: "acc-bank", Date: base}
	err := s.RecordTransaction(ctx, over)
	require.ErrorIs(t, err, core.ErrInsufficientBalance)
	assert.Equal(t, int64(100_000), balance(t, s, "u1", "acc-cash"))
	assert.Equal(t, int64(5_000_000), balance(t, s, "u1", "acc-bank"))
	_, err = s.GetTransaction(ctx, "u1", "t1")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	exact := over
	exact.ID, exact.Amount = "t2", 100_000
	require.NoError(t, s.RecordTransaction(ctx, exact))
	assert.Equal(t, int64(0), balance(t, s, "u1", "acc-cash"))

	missing := over
	missing.ID, missing.AccountID = "t3", "gone"
	assert.ErrorIs(t, s.RecordTransaction(ctx, missing), core.ErrNotFound)

	spend := core.Transaction{ID: "t4", UserID: "u1", Type: core.Expense, Amount: 5_000, Title: "نان",
		AccountID: "acc-cash", Date: base}
	require.NoError(t, s.RecordTransaction(ctx, spend), "expenses may overdraw")
	assert.Equal(t, int64(-5_000), balance(t, s, "u1", "acc-cash"))
}

func testConcurrentTransfers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedAccounts(t, s, "u1")

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.RecordTransaction(ctx, core.Transaction{
				ID: fmt.Sprintf("c%d", i), UserID: "u1", Type: core.Transfer, Amount: 30_000, Title: "انتقال",
				AccountID: "acc-cash", ToAccountID: "acc-bank", Date: base,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, core.ErrInsufficientBalance):
				refused++
			default:
				t.Errorf("transfer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, workers-3, refused)
	assert.Equal(t, int64(10_000), balance(t, s, "u1", "acc-cash"))
	assert.Equal(t, int64(5_090_000), balance(t, s, "u1", "acc-bank"))
}

func testListTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedAccounts(t, s, "u1")
	require.NoError(t, s.CreateAccount(ctx, core.Account{ID: "u2-cash", UserID: "u2", Name: "نقدی", Kind: core.Cash,
		Balance: 50_000, IsActive: true, CreatedAt: base}))

	rows := []core.Transaction{
		{ID: "a", UserID: "u1", Type: core.Expense, Amount: 10_000, Title: "Coffee", AccountID: "acc-cash", Date: base},
		{ID: "b", UserID: "u1", Type: core.Income, Amount: 900_000, Title: "حقوق", AccountID: "acc-bank", Date: base.Add(24 * time.Hour)},
		{ID: "c", UserID: "u1", Type: core.Expense, Amount: 25_000, Title: "coffee beans", AccountID: "acc-bank", Date: base.Add(48 * time.Hour),
			IsRecurring: true, RecurringType: core.Monthly},
		{ID: "d", UserID: "u2", Type: core.Expense, Amount: 10_000, Title: "Coffee", AccountID: "u2-cash", Date: base},
	}
	for _, r := range rows {
		require.NoError(t, s.RecordTransaction(ctx, r))
	}

	ids := func(q core.TransactionQuery) []string {
		t.Helper()
		txs, err := s.ListTransactions(ctx, q)
		require.NoError(t, err)
		out := make([]string, len(txs))
		for i, tx := range txs {
			out[i] = tx.ID
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids(core.TransactionQuery{UserID: "u1"}))
	assert.Equal(t, []string{"c", "b", "a"}, ids(core.TransactionQuery{UserID: "u1", Newest: true}))
	assert.Equal(t, []string{"c"}, ids(core.TransactionQuery{UserID: "u1", Newest: true, Limit: 1}))
	assert.Equal(t, []string{"b"}, ids(core.TransactionQuery{UserID: "u1", From: base.Add(time.Hour), Before: base.Add(48 * time.Hour)}))
	assert.Equal(t, []string{"a", "c"}, ids(core.TransactionQuery{UserID: "u1", Type: core.Expense}))
	assert.Equal(t, []string{"a", "c"}, ids(core.TransactionQuery{UserID: "u1", TitleContains: "COFFEE"}))
	assert.Equal(t, []string{"b", "c"}, ids(core.TransactionQuery{UserID: "u1", AccountID: "acc-bank"}))
	assert.Equal(t, []string{"a"}, ids(core.TransactionQuery{UserID: "u1", Amount: 10_000}))
	assert.Equal(t, []string{"c"}, ids(core.TransactionQuery{UserID: "u1", RecurringOnly: true}))
	assert.Equal(t, []string{"a", "d"}, ids(core.TransactionQuery{Amount: 10_000}), "empty user matches every user")

	got, err := s.GetTransaction(ctx, "u1", "c")
	require.NoError(t, err)
	assert.Equal(t, core.Monthly, got.RecurringType)
	assert.True(t, got.Date.Equal(base.Add(48*time.Hour)))
}

func testGoals(t *testing.T, s storage.Store) {
	ctx := context.Background()
	deadline := base.AddDate(0, 6, 0)
	for i, title := range []string{"خرید ماشین", "سفر", "لپ‌تاپ", "خانه"} {
		g := core.Goal{ID: title, UserID: "u1", Title: title, TargetAmount: 1_000_000, Kind: core.SavingsGoal,
			CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if i == 0 {
			g.Deadline = &deadline
		}
		require.NoError(t, s.CreateGoal(ctx, g))
	}

	g, err := s.GetGoal(ctx, "u1", "سفر")
	require.NoError(t, err)
	g.CurrentAmount = 1_000_000
	g.Recompute()
	require.NoError(t, s.UpdateGoal(ctx, g))

	active, err := s.ListGoals(ctx, "u1", true, 3)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "خرید ماشین", active[0].Title)
	require.NotNil(t, active[0].Deadline)
	assert.True(t, active[0].Deadline.Equal(deadline))
	for _, a := range active {
		assert.NotEqual(t, "سفر", a.Title)
	}

	all, err := s.ListGoals(ctx, "u1", false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	err = s.UpdateGoal(ctx, core.Goal{ID: "nope", UserID: "u1", Title: "x", TargetAmount: 1, Kind: core.SavingsGoal})
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func testReset(t *testing.T, s storage.Store) {
	r, ok := s.(storage.Resetter)
	if !ok {
		t.Skip("store does not support Reset")
	}
	ctx := context.Background()
	seedAccounts(t, s, "u1")
	require.NoError(t, r.Reset(ctx))
	accounts, err := s.ListAccounts(ctx, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
