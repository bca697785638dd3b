// Package report renders aggregation results as chat text.
//
// Every function here is pure: inputs are already aggregated and names are
// resolved through a Names lookup. Amounts are printed with thousands
// separators, percentages are computed with decimal arithmetic.
package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hesab/internal/aggregate"
	"hesab/internal/core"
)

// TopN caps every ranked breakdown.
const TopN = 5

// Unknown labels a record whose account could not be resolved.
const Unknown = "نامشخص"

var weekdayNames = [...]string{
	time.Sunday:    "یکشنبه",
	time.Monday:    "دوشنبه",
	time.Tuesday:   "سه‌شنبه",
	time.Wednesday: "چهارشنبه",
	time.Thursday:  "پنج‌شنبه",
	time.Friday:    "جمعه",
	time.Saturday:  "شنبه",
}

// WeekdayName returns the Persian name of d.
func WeekdayName(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return Unknown
	}
	return weekdayNames[d]
}

// Names resolves ids to display names.
type Names struct {
	Categories map[string]string
	Accounts   map[string]string
}

// NewNames indexes accounts and categories by id.
func NewNames(accounts []core.Account, categories []core.Category) Names {
	n := Names{
		Categories: make(map[string]string, len(categories)),
		Accounts:   make(map[string]string, len(accounts)),
	}
	for _, a := range accounts {
		n.Accounts[a.ID] = a.Name
	}
	for _, c := range categories {
		n.Categories[c.ID] = c.Name
	}
	return n
}

// Category returns the category name, or the fallback category.
func (n Names) Category(id string) string {
	if name, ok := n.Categories[id]; ok && name != "" {
		return name
	}
	return core.OtherCategory
}

// Account returns the account name, or Unknown.
func (n Names) Account(id string) string {
	if name, ok := n.Accounts[id]; ok && name != "" {
		return name
	}
	return Unknown
}

// byName merges category buckets that resolve to the same display name.
func byName(m map[string]aggregate.Bucket, names Names) map[string]aggregate.Bucket {
	out := make(map[string]aggregate.Bucket, len(m))
	for id, b := range m {
		name := names.Category(id)
		cur := out[name]
		cur.Total += b.Total
		cur.Count += b.Count
		out[name] = cur
	}
	return out
}

// Percent returns part/whole*100 rounded to the nearest integer. A zero whole yields 0.
func Percent(part, whole int64) int64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)).Round(0).IntPart()
}

// Ratio returns part/whole*100 with full precision. A zero whole yields 0.
func Ratio(part, whole int64) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole))
}

// Change returns the percentage change from prev to cur, or 0 when prev is not positive.
func Change(cur, prev int64) decimal.Decimal {
	if prev <= 0 {
		return decimal.Zero
	}
	return Ratio(cur-prev, prev)
}

var hundred = decimal.NewFromInt(100)

func fixed1(d decimal.Decimal) string { return d.StringFixed(1) }

func toman(v int64) string { return core.FormatToman(v) }

func amount(v int64) string { return core.FormatAmount(v) }

func roundInt(d decimal.Decimal) int64 { return d.Round(0).IntPart() }

// bar draws one block per five percent.
func bar(pct int64) string {
	if pct <= 0 {
		return ""
	}
	return strings.Repeat("█", int((pct+2)/5))
}

func typeEmoji(t core.TransactionType) string {
	switch t {
	case core.Income:
		return "➕"
	case core.Transfer:
		return "🔄"
	default:
		return "➖"
	}
}

func typeLabel(t core.TransactionType) string {
	switch t {
	case core.Income:
		return "➕ درآمد"
	case core.Transfer:
		return "🔄 انتقال"
	default:
		return "➖ هزینه"
	}
}

// RecurringLabel names a recurrence in Persian.
func RecurringLabel(r core.RecurringType) string {
	switch r {
	case core.Daily:
		return "روزانه"
	case core.Weekly:
		return "هفتگی"
	case core.Monthly:
		return "ماهانه"
	default:
		return "سالانه"
	}
}
