package core

import (
	"testing"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:      Expense,
		Amount:    50000,
		Title:     "ناهار",
		AccountID: "acc-1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "gift", Amount: 1, Title: "a", AccountID: "x"},
		{Type: Expense, Amount: 0, Title: "a", AccountID: "x"},
		{Type: Expense, Amount: -5, Title: "a", AccountID: "x"},
		{Type: Income, Amount: 1, Title: "  ", AccountID: "x"},
		{Type: Income, Amount: 1, Title: "a"},
		{Type: Transfer, Amount: 1, Title: "a", AccountID: "x"},
		{Type: Transfer, Amount: 1, Title: "a", AccountID: "x", ToAccountID: "x"},
		{Type: Expense, Amount: 1, Title: "a", AccountID: "x", IsRecurring: true, RecurringType: "hourly"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionDeltas(t *testing.T) {
	cases := []struct {
		name string
		tx   Transaction
		want map[string]int64
	}{
		{"income credits account", Transaction{Type: Income, Amount: 700, AccountID: "a"}, map[string]int64{"a": 700}},
		{"expense debits account", Transaction{Type: Expense, Amount: 300, AccountID: "a"}, map[string]int64{"a": -300}},
		{"transfer moves money", Transaction{Type: Transfer, Amount: 200, AccountID: "a", ToAccountID: "b"}, map[string]int64{"a": -200, "b": 200}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := map[string]int64{}
			var sum int64
			for _, d := range tc.tx.Deltas() {
				got[d.AccountID] += d.Amount
				sum += d.Amount
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Errorf("delta[%s] = %d, want %d", k, got[k], v)
				}
			}
			if tc.tx.Type == Transfer && sum != 0 {
				t.Errorf("transfer deltas must net to zero, got %d", sum)
			}
		})
	}
}

func TestReverseUndoesDeltas(t *testing.T) {
	tx := Transaction{Type: Transfer, Amount: 150, AccountID: "a", ToAccountID: "b"}
	balances := map[string]int64{"a": 1000, "b": 50}
	for _, d := range tx.Deltas() {
		balances[d.AccountID] += d.Amount
	}
	for _, d := range Reverse(tx.Deltas()) {
		balances[d.AccountID] += d.Amount
	}
	if balances["a"] != 1000 || balances["b"] != 50 {
		t.Fatalf("round trip changed balances: %v", balances)
	}
}

func TestGoalRecompute(t *testing.T) {
	g := Goal{Title: "ماشین", TargetAmount: 1000, CurrentAmount: 999, Kind: SavingsGoal}
	g.Recompute()
	if g.IsCompleted {
		t.Fatalf("goal below target must not be completed")
	}
	g.CurrentAmount = 1000
	g.Recompute()
	if !g.IsCompleted {
		t.Fatalf("goal at target must be completed")
	}
	g.CurrentAmount = 10
	g.Recompute()
	if !g.IsCompleted {
		t.Fatalf("completion is never revoked")
	}
	if p := (Goal{TargetAmount: 3, CurrentAmount: 1}).Progress(); p != 33 {
		t.Fatalf("progress = %d, want 33", p)
	}
	if p := (Goal{}).Progress(); p != 0 {
		t.Fatalf("progress of zero target = %d, want 0", p)
	}
}

func TestAccountValidate(t *testing.T) {
	if err := (Account{Name: "بلو", Kind: Bank}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Account{Name: "", Kind: Bank}).Validate(); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := (Account{Name: "x", Kind: "crypto"}).Validate(); err != ErrInvalidKind {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}
