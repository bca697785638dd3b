// Package sheets mirrors ledger events into a spreadsheet audit log.
package sheets

import (
	"context"
	"time"
)

// Row is one audit line. Names are resolved by the caller; IDs are kept for
// lookups when a name is missing.
type Row struct {
	Event         string
	TransactionID string
	UserID        string
	Date          time.Time
	Type          string
	Amount        int64
	Title         string
	Category      string
	Account       string
	ToAccount     string
	RecordedAt    time.Time
}

// LedgerWriter appends audit rows.
type LedgerWriter interface {
	Append(ctx context.Context, r Row) (rowRef string, err error)
}
