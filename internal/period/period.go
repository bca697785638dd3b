// Package period resolves calendar windows used by reports.
//
// Windows are computed on the proleptic Gregorian calendar in the resolver's
// location; only the labels are rendered in the Jalaali calendar.
package period

import (
	"fmt"
	"strings"
	"time"

	"hesab/internal/core"
)

// Kind names a reporting period.
type Kind string

const (
	Day     Kind = "day"
	Week    Kind = "week"
	Month   Kind = "month"
	Quarter Kind = "quarter"
	Year    Kind = "year"
)

// Valid reports whether k is a known period kind.
func (k Kind) Valid() bool {
	switch k {
	case Day, Week, Month, Quarter, Year:
		return true
	}
	return false
}

// ParseKind maps free-form input ("month", "ماه", "weekly") to a Kind.
// Unknown input falls back to def.
func ParseKind(s string, def Kind) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "daily", "today", "روز", "امروز":
		return Day
	case "week", "weekly", "هفته":
		return Week
	case "month", "monthly", "ماه":
		return Month
	case "quarter", "quarterly", "فصل", "سه ماه", "سه‌ماه":
		return Quarter
	case "year", "yearly", "annual", "سال":
		return Year
	}
	return def
}

// Window is an inclusive [Start, End] range. End is the last second of the period.
type Window struct {
	Start time.Time
	End   time.Time
	Label string
}

// Exclusive returns the first instant after the window.
func (w Window) Exclusive() time.Time {
	return w.End.Add(time.Second)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.Exclusive())
}

// Resolver computes windows in a fixed location.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// NewResolver returns a resolver bound to loc. A nil loc means UTC.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc, now: time.Now}
}

// WithClock returns a copy of the resolver that reads the current time from now.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	cp := *r
	cp.now = now
	return &cp
}

// Location returns the resolver's calendar location.
func (r *Resolver) Location() *time.Location { return r.loc }

// Now returns the current instant in the resolver's location.
func (r *Resolver) Now() time.Time { return r.now().In(r.loc) }

// Resolve returns the window of the given kind containing ref.
// Unknown kinds resolve as Month.
func (r *Resolver) Resolve(kind Kind, ref time.Time) Window {
	ref = ref.In(r.loc)
	y, m, d := ref.Date()
	switch kind {
	case Day:
		start := time.Date(y, m, d, 0, 0, 0, 0, r.loc)
		return r.window(start, start.AddDate(0, 0, 1), core.FormatJalaali(start))
	case Week:
		// Monday = 1 .. Sunday = 7
		wd := int(ref.Weekday())
		if wd == 0 {
			wd = 7
		}
		start := time.Date(y, m, d-(wd-1), 0, 0, 0, 0, r.loc)
		end := start.AddDate(0, 0, 7)
		w := r.window(start, end, "")
		w.Label = core.FormatJalaali(w.Start) + " تا " + core.FormatJalaali(w.End)
		return w
	case Quarter:
		q := (int(m) - 1) / 3
		start := time.Date(y, time.Month(q*3+1), 1, 0, 0, 0, 0, r.loc)
		return r.window(start, start.AddDate(0, 3, 0), fmt.Sprintf("سه‌ماهه %d سال %d", q+1, y))
	case Year:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, r.loc)
		return r.window(start, start.AddDate(1, 0, 0), fmt.Sprintf("سال %d", y))
	default:
		start := time.Date(y, m, 1, 0, 0, 0, 0, r.loc)
		return r.window(start, start.AddDate(0, 1, 0), core.FormatJalaaliMonth(start))
	}
}

// Current resolves kind against the resolver's clock.
func (r *Resolver) Current(kind Kind) Window {
	return r.Resolve(kind, r.Now())
}

// Previous returns the window one unit before the one containing ref.
func (r *Resolver) Previous(kind Kind, ref time.Time) Window {
	return r.Resolve(kind, Shift(kind, ref.In(r.loc), -1))
}

// MonthSeries returns n consecutive month windows ending with the month of ref,
// oldest first.
func (r *Resolver) MonthSeries(n int, ref time.Time) []Window {
	if n <= 0 {
		return nil
	}
	out := make([]Window, n)
	for i := 0; i < n; i++ {
		out[i] = r.Resolve(Month, Shift(Month, ref.In(r.loc), i-(n-1)))
	}
	return out
}

// NextMonths returns the n month windows following the month of ref.
func (r *Resolver) NextMonths(n int, ref time.Time) []Window {
	if n <= 0 {
		return nil
	}
	out := make([]Window, n)
	for i := 0; i < n; i++ {
		out[i] = r.Resolve(Month, Shift(Month, ref.In(r.loc), i+1))
	}
	return out
}

// Shift moves t by delta units of kind. Month, quarter and year shifts clamp the
// day of month to the length of the target month.
func Shift(kind Kind, t time.Time, delta int) time.Time {
	switch kind {
	case Day:
		return t.AddDate(0, 0, delta)
	case Week:
		return t.AddDate(0, 0, 7*delta)
	case Quarter:
		return addMonthsClamped(t, 3*delta)
	case Year:
		return addMonthsClamped(t, 12*delta)
	default:
		return addMonthsClamped(t, delta)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, months, 0)
	if last := daysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	return target.AddDate(0, 0, d-1)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (r *Resolver) window(start, next time.Time, label string) Window {
	return Window{Start: start, End: next.Add(-time.Second), Label: label}
}
