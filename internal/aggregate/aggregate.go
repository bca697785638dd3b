// Package aggregate computes windowed totals over a user's transactions.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"hesab/internal/core"
	"hesab/internal/period"
)

// Source lists transactions matching a query.
type Source interface {
	ListTransactions(ctx context.Context, q core.TransactionQuery) ([]core.Transaction, error)
}

// Filter narrows an aggregation. Zero values mean "any".
type Filter struct {
	Type       core.TransactionType
	CategoryID string
	AccountID  string
}

// Bucket accumulates a total and a count.
type Bucket struct {
	Total int64
	Count int64
}

// Average returns Total/Count, or 0 for an empty bucket.
func (b Bucket) Average() int64 {
	if b.Count == 0 {
		return 0
	}
	return b.Total / b.Count
}

func (b *Bucket) add(amount int64) {
	b.Total += amount
	b.Count++
}

// MonthKey is the locale independent key of the ByMonth buckets.
const MonthKey = "2006-01"

// Result holds every grouping of one window.
type Result struct {
	Window     period.Window
	ByType     map[core.TransactionType]Bucket
	ByCategory map[string]Bucket // income and expense, keyed by category id
	// ExpenseByCategory only counts expenses. Uncategorized expenses use the "" key.
	ExpenseByCategory map[string]Bucket
	ByAccount         map[string]int64 // signed balance effect per account id
	ByWeekday         map[time.Weekday]Bucket
	ByMonth           map[string]Bucket
	Count             int
	// Transactions are the matched records, newest first.
	Transactions []core.Transaction
}

func newResult(w period.Window) Result {
	return Result{
		Window:            w,
		ByType:            map[core.TransactionType]Bucket{},
		ByCategory:        map[string]Bucket{},
		ExpenseByCategory: map[string]Bucket{},
		ByAccount:         map[string]int64{},
		ByWeekday:         map[time.Weekday]Bucket{},
		ByMonth:           map[string]Bucket{},
	}
}

func (r Result) Income() int64   { return r.ByType[core.Income].Total }
func (r Result) Expense() int64  { return r.ByType[core.Expense].Total }
func (r Result) Transfer() int64 { return r.ByType[core.Transfer].Total }

// Net is income minus expense.
func (r Result) Net() int64 { return r.Income() - r.Expense() }

// Empty reports whether no transaction matched.
func (r Result) Empty() bool { return r.Count == 0 }

// Engine aggregates transactions read from a Source.
type Engine struct {
	src Source
}

// New returns an Engine reading from src.
func New(src Source) *Engine {
	if src == nil {
		panic("aggregate: nil source")
	}
	return &Engine{src: src}
}

// Aggregate groups every transaction of userID inside w that matches f.
// An empty window yields zero totals.
func (e *Engine) Aggregate(ctx context.Context, userID string, w period.Window, f Filter) (Result, error) {
	txs, err := e.src.ListTransactions(ctx, core.TransactionQuery{
		UserID:     userID,
		From:       w.Start,
		Before:     w.Exclusive(),
		Type:       f.Type,
		CategoryID: f.CategoryID,
		AccountID:  f.AccountID,
		Newest:     true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("aggregate %s: %w", w.Label, err)
	}
	return Compute(w, txs, f), nil
}

// Series aggregates each window independently. Results keep the order of ws.
func (e *Engine) Series(ctx context.Context, userID string, ws []period.Window, f Filter) ([]Result, error) {
	out := make([]Result, len(ws))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, w := range ws {
		g.Go(func() error {
			r, err := e.Aggregate(ctx, userID, w, f)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Compute groups txs in memory. Records outside w or not matching f are skipped,
// so a Source may return a superset.
func Compute(w period.Window, txs []core.Transaction, f Filter) Result {
	r := newResult(w)
	loc := w.Start.Location()
	for _, t := range txs {
		if !w.Contains(t.Date) || !matches(t, f) {
			continue
		}
		r.Count++
		r.Transactions = append(r.Transactions, t)

		b := r.ByType[t.Type]
		b.add(t.Amount)
		r.ByType[t.Type] = b

		if t.Type != core.Transfer {
			c := r.ByCategory[t.CategoryID]
			c.add(t.Amount)
			r.ByCategory[t.CategoryID] = c
		}
		if t.Type == core.Expense {
			c := r.ExpenseByCategory[t.CategoryID]
			c.add(t.Amount)
			r.ExpenseByCategory[t.CategoryID] = c
		}
		for _, d := range t.Deltas() {
			r.ByAccount[d.AccountID] += d.Amount
		}

		local := t.Date.In(loc)
		wd := r.ByWeekday[local.Weekday()]
		wd.add(t.Amount)
		r.ByWeekday[local.Weekday()] = wd

		key := local.Format(MonthKey)
		mb := r.ByMonth[key]
		mb.add(t.Amount)
		r.ByMonth[key] = mb
	}
	sort.SliceStable(r.Transactions, func(i, j int) bool {
		return r.Transactions[i].Date.After(r.Transactions[j].Date)
	})
	return r
}

func matches(t core.Transaction, f Filter) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.AccountID != "" && t.AccountID != f.AccountID && t.ToAccountID != f.AccountID {
		return false
	}
	return true
}

// Ranked is one entry of a Top listing.
type Ranked[K comparable] struct {
	Key K
	Bucket
}

// Top returns up to n entries of m sorted by total descending, then by key.
// n <= 0 returns every entry.
func Top[K interface{ ~string | ~int }](m map[K]Bucket, n int) []Ranked[K] {
	out := make([]Ranked[K], 0, len(m))
	for k, b := range m {
		out = append(out, Ranked[K]{Key: k, Bucket: b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Sum adds the totals of a series.
func Sum(rs []Result, pick func(Result) int64) int64 {
	var total int64
	for _, r := range rs {
		total += pick(r)
	}
	return total
}

// Active keeps the results that matched at least one transaction.
func Active(rs []Result) []Result {
	var out []Result
	for _, r := range rs {
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}
