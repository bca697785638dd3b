package services

import (
	"fmt"
	"time"

	"hesab/internal/core"
)

// DuenessChecker decides whether a recurring template needs a new occurrence.
type DuenessChecker interface {
	// IsDue reports whether an occurrence is due at now, given the last one at
	// lastExecution and the template date start.
	IsDue(lastExecution, now, start time.Time) bool
}

// DailyChecker is due once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastExecution, now, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return !sameDay(lastExecution.In(now.Location()), now)
}

// WeeklyChecker is due 7 days after the last occurrence.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastExecution, now, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return now.Sub(lastExecution) >= 7*24*time.Hour
}

// MonthlyChecker is due once per month on the template's day, clamped to month end.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastExecution, now, start time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	last := lastExecution.In(now.Location())
	if last.Year() == now.Year() && last.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(start.In(now.Location()).Day(), now)
}

// YearlyChecker is due once per year on the template's month and day.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastExecution, now, start time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.In(now.Location()).Year() == now.Year() {
		return false
	}
	start = start.In(now.Location())
	switch {
	case now.Month() < start.Month():
		return false
	case now.Month() == start.Month():
		return now.Day() >= clampDay(start.Day(), now)
	}
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// clampDay returns day, or the last day of now's month when that is shorter.
func clampDay(day int, now time.Time) int {
	last := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if day > last {
		return last
	}
	return day
}

var duenessStrategies = map[core.RecurringType]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker registered for frequency.
func GetDuenessChecker(frequency core.RecurringType) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown recurring type: %s", frequency)
	}
	return checker, nil
}

// RegisterDuenessChecker adds or replaces the checker of a frequency. Not safe
// for use concurrently with GetDuenessChecker.
func RegisterDuenessChecker(frequency core.RecurringType, checker DuenessChecker) {
	duenessStrategies[frequency] = checker
}
