package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hesab/internal/core"
)

type EventKind string

const (
	TransactionCreated EventKind = "ledger.transaction.created"
	TransactionDeleted EventKind = "ledger.transaction.deleted"
)

// LedgerEvent describes one committed change to the ledger. It carries the
// full transaction so consumers never read back from the database.
type LedgerEvent struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	Title         string    `json:"title"`
	CategoryID    string    `json:"category_id,omitempty"`
	AccountID     string    `json:"account_id"`
	ToAccountID   string    `json:"to_account_id,omitempty"`
	Date          time.Time `json:"date"`
	ParentID      string    `json:"parent_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewLedgerEvent builds the event for t.
func NewLedgerEvent(kind EventKind, t core.Transaction, at time.Time) LedgerEvent {
	return LedgerEvent{
		ID:            uuid.NewString(),
		Kind:          kind,
		UserID:        t.UserID,
		TransactionID: t.ID,
		Type:          string(t.Type),
		Amount:        t.Amount,
		Title:         t.Title,
		CategoryID:    t.CategoryID,
		AccountID:     t.AccountID,
		ToAccountID:   t.ToAccountID,
		Date:          t.Date,
		ParentID:      t.ParentID,
		OccurredAt:    at,
	}
}

func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event body.
func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return LedgerEvent{}, err
	}
	switch {
	case e.Kind != TransactionCreated && e.Kind != TransactionDeleted:
		return LedgerEvent{}, fmt.Errorf("unknown event kind %q", e.Kind)
	case e.TransactionID == "":
		return LedgerEvent{}, fmt.Errorf("event %s: missing transaction id", e.ID)
	}
	return e, nil
}
