package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesab/internal/aggregate"
	"hesab/internal/core"
	"hesab/internal/period"
)

var (
	resolver = period.NewResolver(time.UTC)
	march    = resolver.Resolve(period.Month, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	names    = NewNames(
		[]core.Account{{ID: "a", Name: "بلو"}, {ID: "b", Name: "ملت"}},
		[]core.Category{{ID: "food", Name: "غذا"}, {ID: "fun", Name: "تفریح"}, {ID: "salary", Name: "حقوق"}},
	)
)

func tx(id string, typ core.TransactionType, amount int64, cat string, d int) core.Transaction {
	return core.Transaction{
		ID: id, UserID: "u", Type: typ, Amount: amount, Title: "t" + id,
		CategoryID: cat, AccountID: "a", Date: time.Date(2025, 3, d, 10, 0, 0, 0, time.UTC),
	}
}

func marchResult() aggregate.Result {
	return aggregate.Compute(march, []core.Transaction{
		tx("1", core.Income, 10_000_000, "salary", 1),
		tx("2", core.Expense, 600_000, "food", 3),
		tx("3", core.Expense, 300_000, "fun", 4),
		tx("4", core.Expense, 100_000, "", 5),
	}, aggregate.Filter{})
}

func TestBudgetSplitSumsExactly(t *testing.T) {
	s := BudgetSplit(10_000_000)
	assert.Equal(t, Split{Expense: 7_000_000, Savings: 2_000_000, Investment: 1_000_000}, s)

	for _, income := range []int64{1, 7, 99, 333_333, 1_234_567, 9_999_999_999} {
		s := BudgetSplit(income)
		assert.Equal(t, income, s.Expense+s.Savings+s.Investment, "income %d", income)
		assert.GreaterOrEqual(t, s.Investment, int64(0))
	}
	assert.Equal(t, Split{}, BudgetSplit(0))
}

func TestPercentRounding(t *testing.T) {
	assert.Equal(t, int64(33), Percent(1, 3))
	assert.Equal(t, int64(67), Percent(2, 3))
	assert.Equal(t, int64(50), Percent(1, 2))
	assert.Equal(t, int64(0), Percent(5, 0))
	assert.Equal(t, "-50.0", fixed1(Change(50, 100)))
	assert.True(t, Change(100, 0).IsZero())
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", bar(0))
	assert.Equal(t, "", bar(2))
	assert.Equal(t, "█", bar(3))
	assert.Equal(t, strings.Repeat("█", 20), bar(100))
}

func TestPeriodReport(t *testing.T) {
	out := Period(period.Month, marchResult(), names)

	assert.Contains(t, out, "📊 گزارش مالی 1403/12:")
	assert.Contains(t, out, "💰 جمع درآمد: 10,000,000 تومان")
	assert.Contains(t, out, "💸 جمع هزینه: 1,000,000 تومان")
	assert.Contains(t, out, "📈 نرخ پس‌انداز: 90.0%")
	assert.Contains(t, out, "📝 تعداد تراکنش‌ها: 4")
	assert.Contains(t, out, "• غذا: 600,000 تومان (60%)")
	assert.Contains(t, out, "• سایر: 100,000 تومان (10%)")

	food := strings.Index(out, "• غذا")
	fun := strings.Index(out, "• تفریح")
	assert.Less(t, food, fun, "categories sorted by amount")

	latest := strings.Index(out, "➖ t4")
	oldest := strings.Index(out, "➕ t1")
	assert.Less(t, latest, oldest, "newest transaction first")
}

func TestPeriodReportEmpty(t *testing.T) {
	w := resolver.Resolve(period.Week, time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC))
	out := Period(period.Week, aggregate.Compute(w, nil, aggregate.Filter{}), names)
	assert.True(t, strings.HasPrefix(out, "📭 هیچ تراکنشی در هفته جاری ("))
}

func TestCategoryStats(t *testing.T) {
	r := aggregate.Compute(march, marchResult().Transactions, aggregate.Filter{Type: core.Expense})
	out := CategoryStats(period.Month, r, names)
	assert.True(t, strings.HasPrefix(out, "📊 آمار دسته‌بندی‌های "+march.Label+":\n\n"), out)
	assert.Contains(t, out, "🏷️ غذا:\n💰 600,000 تومان (60%)\n📊 1 تراکنش\n📈 ████████████ 60%")
	assert.Contains(t, out, "💸 کل هزینه: 1,000,000 تومان")
	assert.NotContains(t, out, "دسته دیگر")

	empty := aggregate.Compute(march, nil, aggregate.Filter{})
	assert.Equal(t, "📭 هیچ هزینه‌ای در "+march.Label+" یافت نشد.", CategoryStats(period.Month, empty, names))

	week := resolver.Resolve(period.Week, time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC))
	emptyWeek := aggregate.Compute(week, nil, aggregate.Filter{})
	assert.Equal(t, "📭 هیچ هزینه‌ای در هفته جاری ("+week.Label+") یافت نشد.", CategoryStats(period.Week, emptyWeek, names))
}

func TestCategoryStatsFoldsSmallCategories(t *testing.T) {
	cats := []core.Category{
		{ID: "c1", Name: "اجاره"}, {ID: "c2", Name: "غذا"}, {ID: "c3", Name: "حمل و نقل"},
		{ID: "c4", Name: "تفریح"}, {ID: "c5", Name: "پوشاک"}, {ID: "c6", Name: "سلامت"}, {ID: "c7", Name: "آموزش"},
	}
	many := NewNames(nil, cats)
	amounts := []int64{4_000_000, 2_000_000, 1_500_000, 1_000_000, 800_000, 400_000, 300_000}
	var txs []core.Transaction
	for i, c := range cats {
		txs = append(txs, tx(c.ID, core.Expense, amounts[i], c.ID, i+1))
	}
	r := aggregate.Compute(march, txs, aggregate.Filter{Type: core.Expense})

	out := CategoryStats(period.Month, r, many)
	assert.Equal(t, TopN, strings.Count(out, "🏷️ "))
	assert.Contains(t, out, "🏷️ پوشاک:")
	assert.NotContains(t, out, "🏷️ سلامت:")
	assert.Contains(t, out, "🗂️ 2 دسته دیگر: 700,000 تومان (7%)")
	assert.Contains(t, out, "💸 کل هزینه: 10,000,000 تومان")
}

func monthResult(w period.Window, income, expense int64) aggregate.Result {
	var txs []core.Transaction
	if income > 0 {
		txs = append(txs, core.Transaction{Type: core.Income, Amount: income, AccountID: "a", Date: w.Start})
	}
	if expense > 0 {
		txs = append(txs, core.Transaction{Type: core.Expense, Amount: expense, AccountID: "a", CategoryID: "food", Date: w.Start})
	}
	return aggregate.Compute(w, txs, aggregate.Filter{})
}

func TestTrend(t *testing.T) {
	ws := resolver.MonthSeries(3, march.Start)
	series := []aggregate.Result{
		monthResult(ws[0], 0, 0),
		monthResult(ws[1], 1_000_000, 400_000),
		monthResult(ws[2], 800_000, 500_000),
	}
	out := Trend(series)
	assert.Contains(t, out, "📈 تحلیل روند 3 ماه اخیر:")
	assert.Contains(t, out, "⚠️ هزینه‌ها 25.0% افزایش یافته")
	assert.Contains(t, out, "📉 درآمد 20.0% کاهش یافته")

	assert.Equal(t, 6, TrendMonths(period.Month))
	assert.Equal(t, 3, TrendMonths(period.Quarter))
	assert.Equal(t, 12, TrendMonths(period.Year))
}

func TestComparison(t *testing.T) {
	prevW := resolver.Previous(period.Month, march.Start)
	out := Comparison(period.Month, monthResult(march, 1_000_000, 300_000), monthResult(prevW, 1_000_000, 600_000))
	assert.Contains(t, out, "📊 مقایسه ماه جاری با ماه قبل:")
	assert.Contains(t, out, "💰 درآمد:\n  این ماه: 1,000,000 تومان\n  ماه قبل: 1,000,000 تومان\n  ➡️ بدون تغییر")
	assert.Contains(t, out, "✅ تغییر: -50.0%")
	assert.Contains(t, out, "✅ بهبود: +300,000 تومان")
}

func TestBudgetFallsBackToAverageExpense(t *testing.T) {
	ws := resolver.MonthSeries(3, march.Start)
	out := Budget(BudgetInput{
		History: []aggregate.Result{
			monthResult(ws[0], 0, 0),
			monthResult(ws[1], 0, 300_000),
			monthResult(ws[2], 0, 600_000),
		},
	})
	assert.Contains(t, out, "• بودجه پیشنهادی: 450,000 تومان")
	assert.NotContains(t, out, "70%")
}

func TestBudgetWarnings(t *testing.T) {
	over := Budget(BudgetInput{Income: 10_000_000, Spent: 7_700_000})
	assert.Contains(t, over, "• هزینه‌ها: 7,000,000 تومان (70%)")
	assert.Contains(t, over, "• سرمایه‌گذاری: 1,000,000 تومان (10%)")
	assert.Contains(t, over, "⚠️ هشدار: بودجه تجاوز کرده! 10.0% بیشتر خرج کردی.")

	near := Budget(BudgetInput{Income: 10_000_000, Spent: 6_300_000})
	assert.Contains(t, near, "⚠️ توجه: 10.0% از بودجه باقی مونده. مراقب باش!")

	fine := Budget(BudgetInput{Income: 10_000_000, Spent: 1_000_000})
	assert.Contains(t, fine, "✅ عالی! بودجه رو خوب مدیریت می‌کنی.")
}

func TestForecastFlagsNegativeBalance(t *testing.T) {
	ws := resolver.MonthSeries(6, march.Start)
	history := make([]aggregate.Result, len(ws))
	for i, w := range ws {
		history[i] = monthResult(w, 0, 0)
	}
	history[4] = monthResult(ws[4], 1_000_000, 1_500_000)
	history[5] = monthResult(ws[5], 1_000_000, 1_500_000)

	in := ForecastInput{History: history, Balance: 800_000, Months: resolver.NextMonths(3, march.Start)}
	avgIncome, avgExpense, months := Project(in)
	assert.Equal(t, "1000000", avgIncome.String())
	assert.Equal(t, "1500000", avgExpense.String())
	require.Len(t, months, 3)
	assert.False(t, months[0].Negative)
	assert.True(t, months[1].Negative)
	assert.Equal(t, "-700000", months[2].Balance.String())

	out := Forecast(in)
	assert.Contains(t, out, "🔮 پیش‌بینی مالی 3 ماه آینده:")
	assert.Contains(t, out, "⚠️ هشدار: تراز منفی خواهد شد!")
	assert.Contains(t, out, "💡 باید 500,000 تومان صرفه‌جویی کنی")
}

func TestPatterns(t *testing.T) {
	r := aggregate.Compute(march, marchResult().Transactions, aggregate.Filter{Type: core.Expense})
	out := Patterns(r, names)
	assert.Contains(t, out, "1. غذا:\n   💰 600,000 تومان | 1 تراکنش")
	assert.Contains(t, out, "• دوشنبه: 600,000 تومان (1 تراکنش)")
	assert.Contains(t, out, "• 60.0% از هزینه‌هات تو یک دسته‌بندی خاص هست")
	assert.Contains(t, out, "تمرکز زیاد روی یک دسته‌بندی")
}

func TestOptimize(t *testing.T) {
	ws := resolver.MonthSeries(4, march.Start)
	history := []aggregate.Result{
		aggregate.Compute(ws[0], []core.Transaction{{Type: core.Expense, Amount: 300_000, CategoryID: "food", Date: ws[0].Start}}, aggregate.Filter{}),
		aggregate.Compute(ws[1], []core.Transaction{{Type: core.Expense, Amount: 300_000, CategoryID: "food", Date: ws[1].Start}}, aggregate.Filter{}),
		aggregate.Compute(ws[2], []core.Transaction{{Type: core.Expense, Amount: 450_000, CategoryID: "fun", Date: ws[2].Start}}, aggregate.Filter{}),
	}
	current := marchResult()

	got := Optimize(current, history, names)
	require.Len(t, got, 2)
	assert.Equal(t, "غذا", got[0].Category)
	assert.Equal(t, "200", got[0].Increase.String())
	assert.Equal(t, int64(400_000), got[0].Savings)
	assert.Equal(t, "تفریح", got[1].Category)
	assert.Equal(t, "100", got[1].Increase.String())

	out := Optimization(current, history, names)
	assert.Contains(t, out, "• صرفه‌جویی کل: 550,000 تومان در ماه")
	assert.Contains(t, out, "• صرفه‌جویی سالانه: 6,600,000 تومان")

	assert.Contains(t, Optimization(current, nil, names), "✅ تبریک!")
}

func TestAdvice(t *testing.T) {
	out := Advice(AdviceInput{Current: marchResult(), ActiveGoals: 0, Accounts: 2}, names)
	assert.Contains(t, out, "✅ عالی! نرخ پس‌انداز شما (90.0%) عالیه!")
	assert.Contains(t, out, "📊 بیشترین هزینه‌ت تو دسته \"غذا\" هست.")
	assert.Contains(t, out, "🎯 هیچ هدف مالی‌ای نداری!")
	assert.NotContains(t, out, "هنوز حسابی نداری")
}

func TestBalances(t *testing.T) {
	one := Balances([]core.Account{{Name: "بلو", Balance: 1_500_000}})
	assert.Equal(t, "💰 مانده حساب‌ها:\n\n🏦 بلو: 1,500,000 تومان", one)

	two := Balances([]core.Account{{Name: "بلو", Balance: 1_500_000}, {Name: "ملت", Balance: -500_000}})
	assert.Contains(t, two, "💼 مجموع: 1,000,000 تومان")
}

func TestGoalsAndSearch(t *testing.T) {
	deadline := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	out := Goals([]core.Goal{{ID: "g1", Title: "ماشین", TargetAmount: 10_000_000, CurrentAmount: 2_500_000, Deadline: &deadline}})
	assert.Contains(t, out, "📊 درصد: 25%")
	assert.Contains(t, out, "📅 مهلت: 1403/12/30")
	assert.Contains(t, out, "🆔 g1")

	res := Search("t2", []core.Transaction{tx("2", core.Expense, 600_000, "food", 3)}, names)
	assert.Contains(t, res, "🔍 نتایج جستجو برای \"t2\":")
	assert.Contains(t, res, "📅 1403/12/13 | 🏦 بلو")
	assert.Contains(t, res, "📝 تعداد: 1 تراکنش")

	assert.Equal(t, "🔍 هیچ تراکنشی با \"x\" یافت نشد.", Search("x", nil, names))
}

func TestConfirmations(t *testing.T) {
	g := core.Goal{Title: "سفر", TargetAmount: 1_000, CurrentAmount: 1_000, IsCompleted: true}
	assert.Contains(t, GoalUpdated(g), "🎉 تبریک! هدف تکمیل شد!")
	assert.Equal(t, "انتقال از بلو به ملت", TransferTitle("بلو", "ملت"))
	assert.Contains(t, RecurringAdded(core.Transaction{Title: "اجاره", Amount: 500_000, RecurringType: core.Monthly}, core.Account{Balance: 1}), "🔄 نوع: ماهانه")
}
