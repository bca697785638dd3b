// Package storage defines the persistence ports of the ledger and their
// SQLite implementation.
package storage

import (
	"context"
	"errors"

	"hesab/internal/core"
)

// Users stores chat identities.
type Users interface {
	// UpsertUser creates the user identified by ExternalID or refreshes its display
	// name and last activity. The stored user is returned.
	UpsertUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id string) (core.User, error)
}

// Accounts stores accounts. Balances change only through Transactions.
type Accounts interface {
	CreateAccount(ctx context.Context, a core.Account) error
	GetAccount(ctx context.Context, userID, id string) (core.Account, error)
	// ListAccounts returns accounts sorted by balance descending.
	ListAccounts(ctx context.Context, userID string, activeOnly bool) ([]core.Account, error)
	SetAccountActive(ctx context.Context, userID, id string, active bool) error
}

// Categories stores global and per-user categories.
type Categories interface {
	// UpsertCategory inserts c or updates the category with the same owner and name.
	UpsertCategory(ctx context.Context, c core.Category) (core.Category, error)
	// ListCategories returns the global categories followed by the user's own.
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
}

// Transactions stores ledger entries together with their balance effect.
type Transactions interface {
	// RecordTransaction inserts t, applies t.Deltas() to the referenced accounts and
	// bumps the category usage count, atomically.
	RecordTransaction(ctx context.Context, t core.Transaction) error
	// DeleteTransaction removes the entry and reverses its balance effect, atomically.
	// The deleted entry is returned.
	DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, q core.TransactionQuery) ([]core.Transaction, error)
}

// Goals stores financial goals.
type Goals interface {
	CreateGoal(ctx context.Context, g core.Goal) error
	UpdateGoal(ctx context.Context, g core.Goal) error
	GetGoal(ctx context.Context, userID, id string) (core.Goal, error)
	// ListGoals returns goals oldest first. limit <= 0 means no limit.
	ListGoals(ctx context.Context, userID string, activeOnly bool, limit int) ([]core.Goal, error)
}

// Store is the full persistence port.
type Store interface {
	Users
	Accounts
	Categories
	Transactions
	Goals
	Ping(ctx context.Context) error
	Close() error
}

// Resetter wipes every collection. Only used by the admin CLI.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ErrDuplicate reports a unique-name conflict, such as a second account with the same name.
var ErrDuplicate = errors.New("already exists")
