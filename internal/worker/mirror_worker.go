// Package worker turns ledger events from the bus into spreadsheet rows.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hesab/internal/amqp"
	"hesab/internal/core"
	"hesab/internal/log"
	"hesab/internal/sheets"
)

// NameLookup resolves ids to display names. storage.Store satisfies it.
type NameLookup interface {
	GetAccount(ctx context.Context, userID, id string) (core.Account, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
}

// MirrorWorker appends one audit row per ledger event.
type MirrorWorker struct {
	rows   sheets.LedgerWriter
	names  NameLookup
	logger *log.Logger
	now    func() time.Time
}

// NewMirrorWorker wires the worker. names may be nil, in which case rows carry ids.
func NewMirrorWorker(rows sheets.LedgerWriter, names NameLookup, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &MirrorWorker{
		rows:   rows,
		names:  names,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// HandleEvent is an amqp.Handler. A returned error requeues the event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, e amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEvent, string(e.Kind),
		log.FieldTransactionID, e.TransactionID)

	row := sheets.Row{
		Event:         string(e.Kind),
		TransactionID: e.TransactionID,
		UserID:        e.UserID,
		Date:          e.Date,
		Type:          e.Type,
		Amount:        e.Amount,
		Title:         e.Title,
		Category:      w.categoryName(ctx, e.CategoryID),
		Account:       w.accountName(ctx, e.UserID, e.AccountID),
		ToAccount:     w.accountName(ctx, e.UserID, e.ToAccountID),
		RecordedAt:    e.OccurredAt,
	}
	if row.RecordedAt.IsZero() {
		row.RecordedAt = w.now()
	}

	ref, err := w.rows.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("mirror transaction %s: %w", e.TransactionID, err)
	}

	w.logger.InfoContext(ctx, "Mirrored ledger event",
		log.FieldTransactionID, e.TransactionID,
		"sheets_ref", ref)
	return nil
}

func (w *MirrorWorker) accountName(ctx context.Context, userID, id string) string {
	if id == "" || w.names == nil {
		return id
	}
	a, err := w.names.GetAccount(ctx, userID, id)
	if err != nil {
		w.logLookup(ctx, "account", id, err)
		return id
	}
	return a.Name
}

func (w *MirrorWorker) categoryName(ctx context.Context, id string) string {
	if id == "" || w.names == nil {
		return id
	}
	c, err := w.names.GetCategory(ctx, id)
	if err != nil {
		w.logLookup(ctx, "category", id, err)
		return id
	}
	return c.Name
}

func (w *MirrorWorker) logLookup(ctx context.Context, kind, id string, err error) {
	if errors.Is(err, core.ErrNotFound) {
		return
	}
	w.logger.WarnContext(ctx, "Name lookup failed, writing id", "kind", kind, "id", id, log.FieldError, err.Error())
}
