package google

import (
	"time"

	"hesab/internal/amqp"
	"hesab/internal/core"
	ports "hesab/internal/sheets"
)

var eventLabels = map[string]string{
	string(amqp.TransactionCreated): "ثبت",
	string(amqp.TransactionDeleted): "حذف",
}

var typeLabels = map[string]string{
	string(core.Income):   "درآمد",
	string(core.Expense):  "هزینه",
	string(core.Transfer): "انتقال",
}

// rowValues lays r out as A:K. Deleted entries carry a negated amount so a SUM
// over the column tracks the live ledger.
func rowValues(r ports.Row) []any {
	amount := r.Amount
	if r.Event == string(amqp.TransactionDeleted) {
		amount = -amount
	}
	return []any{
		core.FormatJalaali(r.Date),
		r.Date.UTC().Format(time.RFC3339),
		label(eventLabels, r.Event),
		label(typeLabels, r.Type),
		amount,
		r.Title,
		r.Category,
		r.Account,
		r.ToAccount,
		r.TransactionID,
		r.RecordedAt.UTC().Format(time.RFC3339),
	}
}

func label(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}
