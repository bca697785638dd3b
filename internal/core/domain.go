package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	Daily   RecurringType = "daily"
	Weekly  RecurringType = "weekly"
	Monthly RecurringType = "monthly"
	Yearly  RecurringType = "yearly"
)

const (
	Cash    AccountKind = "cash"
	Bank    AccountKind = "bank"
	Card    AccountKind = "card"
	Savings AccountKind = "savings"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

const (
	SavingsGoal  GoalKind = "savings"
	ExpenseLimit GoalKind = "expense_limit"
	IncomeTarget GoalKind = "income_target"
)

// OtherCategory is the fallback category for unmatched transactions.
const OtherCategory = "سایر"

type (
	TransactionType string
	RecurringType   string
	AccountKind     string
	CategoryType    string
	GoalKind        string

	User struct {
		ID             string
		ExternalID     string
		DisplayName    string
		CreatedAt      time.Time
		LastActivityAt time.Time
	}

	Account struct {
		ID        string
		UserID    string
		Name      string
		Kind      AccountKind
		Balance   int64
		IsActive  bool
		CreatedAt time.Time
	}

	// Category with an empty UserID is global and shared by every user.
	Category struct {
		ID         string
		UserID     string
		Name       string
		Type       CategoryType
		IsDefault  bool
		UsageCount int64
		Icon       string
		Color      string
	}

	Transaction struct {
		ID            string
		UserID        string
		Type          TransactionType
		Amount        int64
		Title         string
		Description   string
		CategoryID    string
		AccountID     string
		ToAccountID   string
		Date          time.Time
		IsRecurring   bool
		RecurringType RecurringType
		ParentID      string // recurring template this occurrence was generated from
	}

	Goal struct {
		ID            string
		UserID        string
		Title         string
		TargetAmount  int64
		CurrentAmount int64
		Deadline      *time.Time
		Kind          GoalKind
		IsCompleted   bool
		CreatedAt     time.Time
	}

	// BalanceDelta is a signed change applied to one account. A Funded debit
	// must not drive the balance below zero.
	BalanceDelta struct {
		AccountID string
		Amount    int64
		Funded    bool
	}

	// TransactionQuery selects transactions of one user. Zero values mean "no filter".
	// From is inclusive, Before is exclusive.
	TransactionQuery struct {
		UserID        string
		From          time.Time
		Before        time.Time
		Type          TransactionType
		CategoryID    string
		AccountID     string
		TitleContains string
		Amount        int64
		RecurringOnly bool
		ParentID      string
		Limit         int
		Newest        bool
	}
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyTitle          = errors.New("empty title")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidKind         = errors.New("invalid kind")
	ErrInvalidRecurrence   = errors.New("invalid recurring type")
	ErrSameAccount         = errors.New("source and destination account are the same")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMissingAccount      = errors.New("missing account")
)

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

func (r RecurringType) Valid() bool {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (k AccountKind) Valid() bool {
	switch k {
	case Cash, Bank, Card, Savings:
		return true
	}
	return false
}

func (k GoalKind) Valid() bool {
	switch k {
	case SavingsGoal, ExpenseLimit, IncomeTarget:
		return true
	}
	return false
}

func (c CategoryType) Valid() bool {
	return c == CategoryIncome || c == CategoryExpense
}

// Deltas returns the balance effect of the transaction.
func (t Transaction) Deltas() []BalanceDelta {
	switch t.Type {
	case Income:
		return []BalanceDelta{{AccountID: t.AccountID, Amount: t.Amount}}
	case Expense:
		return []BalanceDelta{{AccountID: t.AccountID, Amount: -t.Amount}}
	case Transfer:
		return []BalanceDelta{
			{AccountID: t.AccountID, Amount: -t.Amount, Funded: true},
			{AccountID: t.ToAccountID, Amount: t.Amount},
		}
	}
	return nil
}

// Reverse negates every delta, undoing the effect of the original slice.
func Reverse(deltas []BalanceDelta) []BalanceDelta {
	out := make([]BalanceDelta, len(deltas))
	for i, d := range deltas {
		out[i] = BalanceDelta{AccountID: d.AccountID, Amount: -d.Amount}
	}
	return out
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if len([]rune(t.Title)) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if t.AccountID == "" {
		return ErrMissingAccount
	}
	if t.Type == Transfer {
		if t.ToAccountID == "" {
			return ErrMissingAccount
		}
		if t.AccountID == t.ToAccountID {
			return ErrSameAccount
		}
	}
	if t.IsRecurring && !t.RecurringType.Valid() {
		return ErrInvalidRecurrence
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if g.TargetAmount <= 0 {
		return ErrInvalidAmount
	}
	if g.CurrentAmount < 0 {
		return ErrInvalidAmount
	}
	if !g.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// Recompute refreshes the derived completion flag. Once completed a goal stays completed.
func (g *Goal) Recompute() {
	if g.CurrentAmount >= g.TargetAmount {
		g.IsCompleted = true
	}
}

// Progress returns the rounded completion percentage.
func (g Goal) Progress() int64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	return (g.CurrentAmount*100 + g.TargetAmount/2) / g.TargetAmount
}
