package services

import (
	"strings"
	"testing"
	"time"

	"hesab/internal/core"
)

// tehran is Iran Standard Time. Iran has kept a fixed offset since 2022.
var tehran = time.FixedZone("IRST", 3*3600+1800)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, tehran)
}

// templateCase describes one recurring ledger template checked at now.
type templateCase struct {
	name string
	tpl  core.Transaction
	last time.Time
	now  time.Time
	want bool
}

func recurring(typ core.TransactionType, title string, amount int64, every core.RecurringType, start time.Time) core.Transaction {
	return core.Transaction{
		Type:          typ,
		Title:         title,
		Amount:        amount,
		Date:          start,
		IsRecurring:   true,
		RecurringType: every,
	}
}

func runTemplateCases(t *testing.T, cases []templateCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checker, err := GetDuenessChecker(tc.tpl.RecurringType)
			if err != nil {
				t.Fatalf("GetDuenessChecker(%q) error = %v", tc.tpl.RecurringType, err)
			}
			if got := checker.IsDue(tc.last, tc.now, tc.tpl.Date); got != tc.want {
				t.Errorf("%s (%s) IsDue(last=%v, now=%v) = %v, want %v",
					tc.tpl.Title, tc.tpl.RecurringType, tc.last, tc.now, got, tc.want)
			}
		})
	}
}

func TestDueness_MonthlyRentClampsToMonthEnd(t *testing.T) {
	rent := recurring(core.Expense, "اجاره خانه", 25_000_000, core.Monthly, at(2025, time.January, 31, 9, 0))

	runTemplateCases(t, []templateCase{
		{name: "short month pays on its last day", tpl: rent, last: rent.Date, now: at(2025, time.February, 28, 8, 0), want: true},
		{name: "not before the clamped day", tpl: rent, last: rent.Date, now: at(2025, time.February, 27, 23, 59), want: false},
		{name: "30 day month waits for the 30th", tpl: rent, last: at(2025, time.February, 28, 8, 0), now: at(2025, time.April, 29, 12, 0), want: false},
		{name: "30 day month pays on the 30th", tpl: rent, last: at(2025, time.March, 31, 8, 0), now: at(2025, time.April, 30, 0, 5), want: true},
		{name: "31 day month pays on the 31st only", tpl: rent, last: at(2025, time.February, 28, 8, 0), now: at(2025, time.March, 30, 20, 0), want: false},
		{name: "leap february pays on the 29th", tpl: rent, last: at(2024, time.January, 31, 9, 0), now: at(2024, time.February, 29, 10, 0), want: true},
		{name: "already paid this month", tpl: rent, last: at(2025, time.March, 31, 8, 0), now: at(2025, time.March, 31, 22, 0), want: false},
	})
}

func TestDueness_MonthlySalary(t *testing.T) {
	salary := recurring(core.Income, "حقوق", 80_000_000, core.Monthly, at(2025, time.January, 1, 10, 0))

	runTemplateCases(t, []templateCase{
		{name: "first of next month", tpl: salary, last: salary.Date, now: at(2025, time.February, 1, 0, 10), want: true},
		// 2025-01-31 22:00 UTC is already February 1st in Tehran.
		{name: "month boundary uses local time", tpl: salary, last: salary.Date, now: time.Date(2025, time.January, 31, 22, 0, 0, 0, time.UTC).In(tehran), want: true},
		{name: "same month after the payday", tpl: salary, last: at(2025, time.February, 1, 0, 10), now: at(2025, time.February, 20, 9, 0), want: false},
		{name: "missed months catch up once", tpl: salary, last: at(2025, time.February, 1, 0, 10), now: at(2025, time.May, 14, 9, 0), want: true},
	})
}

func TestDueness_DailyCoffeeFollowsLocalDays(t *testing.T) {
	coffee := recurring(core.Expense, "قهوه", 85_000, core.Daily, at(2025, time.March, 1, 8, 0))

	runTemplateCases(t, []templateCase{
		{name: "after local midnight even within 24h", tpl: coffee, last: at(2025, time.March, 10, 23, 30), now: at(2025, time.March, 11, 0, 15), want: true},
		{name: "twice on the same day", tpl: coffee, last: at(2025, time.March, 11, 8, 0), now: at(2025, time.March, 11, 18, 0), want: false},
		// 2025-03-10 21:00 UTC is 00:30 on March 11th in Tehran.
		{name: "utc timestamp on the same local day", tpl: coffee, last: time.Date(2025, time.March, 10, 21, 0, 0, 0, time.UTC), now: at(2025, time.March, 11, 12, 0), want: false},
	})
}

func TestDueness_WeeklyAllowance(t *testing.T) {
	allowance := recurring(core.Transfer, "پول توجیبی", 500_000, core.Weekly, at(2025, time.March, 1, 9, 0))

	runTemplateCases(t, []templateCase{
		{name: "one hour short of a week", tpl: allowance, last: at(2025, time.March, 1, 9, 0), now: at(2025, time.March, 8, 8, 0), want: false},
		{name: "exactly a week", tpl: allowance, last: at(2025, time.March, 1, 9, 0), now: at(2025, time.March, 8, 9, 0), want: true},
	})
}

func TestDueness_YearlyInsuranceFromLeapDay(t *testing.T) {
	insurance := recurring(core.Expense, "بیمه خودرو", 12_000_000, core.Yearly, at(2024, time.February, 29, 11, 0))

	runTemplateCases(t, []templateCase{
		{name: "non leap year renews on february 28th", tpl: insurance, last: insurance.Date, now: at(2025, time.February, 28, 9, 0), want: true},
		{name: "not before the clamped day", tpl: insurance, last: insurance.Date, now: at(2025, time.February, 27, 9, 0), want: false},
		{name: "earlier month", tpl: insurance, last: insurance.Date, now: at(2025, time.January, 15, 9, 0), want: false},
		{name: "missed renewal later in the year", tpl: insurance, last: insurance.Date, now: at(2025, time.June, 1, 9, 0), want: true},
		{name: "already renewed this year", tpl: insurance, last: at(2025, time.February, 28, 9, 0), now: at(2025, time.December, 29, 9, 0), want: false},
	})
}

func TestDueness_NeverExecuted(t *testing.T) {
	now := at(2025, time.March, 11, 12, 0)
	for _, every := range []core.RecurringType{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		checker, err := GetDuenessChecker(every)
		if err != nil {
			t.Fatalf("GetDuenessChecker(%q) error = %v", every, err)
		}
		if !checker.IsDue(time.Time{}, now, now) {
			t.Errorf("%s template without executions is not due", every)
		}
	}
}

func TestGetDuenessChecker_Unknown(t *testing.T) {
	_, err := GetDuenessChecker("hourly")
	if err == nil || !strings.Contains(err.Error(), "unknown recurring type: hourly") {
		t.Errorf("GetDuenessChecker(hourly) error = %v", err)
	}
}

type everyTick struct{}

func (everyTick) IsDue(_, _, _ time.Time) bool { return true }

func TestRegisterDuenessChecker(t *testing.T) {
	const quarterly core.RecurringType = "quarterly"
	RegisterDuenessChecker(quarterly, everyTick{})
	t.Cleanup(func() { delete(duenessStrategies, quarterly) })

	checker, err := GetDuenessChecker(quarterly)
	if err != nil {
		t.Fatalf("GetDuenessChecker(quarterly) error = %v", err)
	}
	if !checker.IsDue(time.Now(), time.Now(), time.Now()) {
		t.Error("registered checker not used")
	}
}
