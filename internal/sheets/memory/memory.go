// Package memory keeps mirrored rows in process, for tests and for running the
// worker without a spreadsheet.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hesab/internal/sheets"
)

type Writer struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var _ sheets.LedgerWriter = (*Writer)(nil)

func New() *Writer { return &Writer{} }

// Append stores the row and returns a synthetic row reference.
func (w *Writer) Append(_ context.Context, r sheets.Row) (string, error) {
	if r.TransactionID == "" {
		return "", errors.New("row without transaction id")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, r)
	return fmt.Sprintf("mem:%d", len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []sheets.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]sheets.Row(nil), w.rows...)
}
