package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"hesab/internal/aggregate"
	"hesab/internal/period"
)

// Split is a 70/20/10 budget. Expense+Savings+Investment always equals the income
// it was computed from.
type Split struct {
	Expense    int64
	Savings    int64
	Investment int64
}

// BudgetSplit divides income into 70% expense, 20% savings and 10% investment.
// Rounding residue goes to investment.
func BudgetSplit(income int64) Split {
	if income <= 0 {
		return Split{}
	}
	in := decimal.NewFromInt(income)
	expense := roundInt(in.Mul(decimal.NewFromFloat(0.7)))
	savings := roundInt(in.Mul(decimal.NewFromFloat(0.2)))
	return Split{Expense: expense, Savings: savings, Investment: income - expense - savings}
}

// MonthlyAverage averages pick over the months where it is non-zero.
func MonthlyAverage(series []aggregate.Result, pick func(aggregate.Result) int64) decimal.Decimal {
	var total, months int64
	for _, r := range series {
		if v := pick(r); v != 0 {
			total += v
			months++
		}
	}
	if months == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(months))
}

// BudgetInput carries the figures of a budget recommendation.
type BudgetInput struct {
	Income  int64              // income of the current month
	Spent   int64              // expense of the current month
	History []aggregate.Result // the previous months, used when there is no income
}

// Budget renders the 70/20/10 recommendation and the current month status.
func Budget(in BudgetInput) string {
	avgExpense := roundInt(MonthlyAverage(in.History, aggregate.Result.Expense))

	var b strings.Builder
	b.WriteString("💰 پیشنهاد بودجه‌بندی ماهانه:\n\n")
	fmt.Fprintf(&b, "📊 بر اساس درآمد فعلی و هزینه‌های متوسط %d ماه گذشته\n\n", len(in.History))

	if in.Income <= 0 {
		b.WriteString("💡 بر اساس هزینه‌های متوسط:\n")
		fmt.Fprintf(&b, "• بودجه پیشنهادی: %s\n", toman(avgExpense))
		fmt.Fprintf(&b, "• متوسط هزینه %d ماه گذشته: %s", len(in.History), toman(avgExpense))
		return b.String()
	}

	split := BudgetSplit(in.Income)
	fmt.Fprintf(&b, "💵 درآمد ماهانه: %s\n\n", toman(in.Income))
	b.WriteString("💡 پیشنهادات:\n")
	fmt.Fprintf(&b, "• هزینه‌ها: %s (70%%)\n", toman(split.Expense))
	fmt.Fprintf(&b, "• پس‌انداز: %s (20%%)\n", toman(split.Savings))
	fmt.Fprintf(&b, "• سرمایه‌گذاری: %s (10%%)\n\n", toman(split.Investment))

	used := Ratio(in.Spent, split.Expense)
	b.WriteString("📈 وضعیت فعلی:\n")
	fmt.Fprintf(&b, "• هزینه شده: %s (%s%%)\n", toman(in.Spent), fixed1(used))
	fmt.Fprintf(&b, "• باقی‌مانده: %s\n", toman(split.Expense-in.Spent))

	switch {
	case in.Spent > split.Expense:
		fmt.Fprintf(&b, "\n⚠️ هشدار: بودجه تجاوز کرده! %s%% بیشتر خرج کردی.\n", fixed1(Ratio(in.Spent-split.Expense, split.Expense)))
		b.WriteString("💡 سعی کن در هفته‌های باقی‌مانده صرفه‌جویی کنی.")
	case used.GreaterThan(decimal.NewFromInt(80)):
		fmt.Fprintf(&b, "\n⚠️ توجه: %s%% از بودجه باقی مونده. مراقب باش!", fixed1(Ratio(split.Expense-in.Spent, split.Expense)))
	default:
		b.WriteString("\n✅ عالی! بودجه رو خوب مدیریت می‌کنی.")
	}
	return b.String()
}

// ForecastInput carries the figures of a forecast.
type ForecastInput struct {
	History []aggregate.Result // trailing months used for the averages
	Balance int64              // current total of the active accounts
	Months  []period.Window    // future months to project
}

// Projection is one projected month.
type Projection struct {
	Label    string
	Balance  decimal.Decimal
	Negative bool
}

// Project holds average income and expense constant and compounds the balance
// month by month.
func Project(in ForecastInput) (avgIncome, avgExpense decimal.Decimal, out []Projection) {
	avgIncome = MonthlyAverage(in.History, aggregate.Result.Income)
	avgExpense = MonthlyAverage(in.History, aggregate.Result.Expense)
	net := avgIncome.Sub(avgExpense)
	bal := decimal.NewFromInt(in.Balance)
	for _, w := range in.Months {
		bal = bal.Add(net)
		out = append(out, Projection{Label: w.Label, Balance: bal, Negative: bal.Sign() < 0})
	}
	return avgIncome, avgExpense, out
}

// Forecast renders the projection of in.
func Forecast(in ForecastInput) string {
	avgIncome, avgExpense, months := Project(in)
	net := avgIncome.Sub(avgExpense)

	var b strings.Builder
	fmt.Fprintf(&b, "🔮 پیش‌بینی مالی %d ماه آینده:\n\n", len(in.Months))
	fmt.Fprintf(&b, "📊 بر اساس تحلیل %d ماه گذشته:\n", len(in.History))
	fmt.Fprintf(&b, "• متوسط درآمد ماهانه: %s\n", toman(roundInt(avgIncome)))
	fmt.Fprintf(&b, "• متوسط هزینه ماهانه: %s\n", toman(roundInt(avgExpense)))
	fmt.Fprintf(&b, "• متوسط مانده ماهانه: %s\n\n", toman(roundInt(net)))

	b.WriteString("💰 پیش‌بینی ماهانه:\n\n")
	for i, p := range months {
		fmt.Fprintf(&b, "%d. %s:\n", i+1, p.Label)
		fmt.Fprintf(&b, "   💵 درآمد پیش‌بینی: %s\n", toman(roundInt(avgIncome)))
		fmt.Fprintf(&b, "   💸 هزینه پیش‌بینی: %s\n", toman(roundInt(avgExpense)))
		fmt.Fprintf(&b, "   💼 مانده پیش‌بینی: %s\n", toman(roundInt(p.Balance)))
		if p.Negative {
			b.WriteString("   ⚠️ هشدار: تراز منفی خواهد شد!\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("💡 توصیه‌ها:\n")
	switch {
	case net.Sign() < 0:
		b.WriteString("⚠️ در حال حاضر بیشتر از درآمدت خرج می‌کنی!\n")
		fmt.Fprintf(&b, "💡 باید %s صرفه‌جویی کنی یا درآمدت رو افزایش بدی.", toman(roundInt(net.Abs())))
	case net.LessThan(avgIncome.Mul(decimal.NewFromFloat(0.1))):
		b.WriteString("📊 پس‌اندازت کم است. سعی کن هزینه‌ها رو کاهش بدی.")
	default:
		b.WriteString("✅ وضعیت مالی خوبی داری! می‌تونی اهداف بزرگتری تعریف کنی.")
	}
	return b.String()
}

// Patterns renders the spending patterns of r, which must be aggregated with an
// expense filter: the top categories with count and average, and the busiest weekdays.
func Patterns(r aggregate.Result, names Names) string {
	var b strings.Builder
	b.WriteString("📊 تحلیل الگوهای مصرف (3 ماه گذشته):\n\n")
	expense := r.Expense()
	if expense == 0 {
		b.WriteString("📭 هیچ هزینه‌ای در این بازه ثبت نشده است.")
		return b.String()
	}

	cats := aggregate.Top(byName(r.ExpenseByCategory, names), TopN)
	b.WriteString("🏷️ بیشترین هزینه بر اساس دسته‌بندی:\n")
	for i, c := range cats {
		fmt.Fprintf(&b, "%d. %s:\n", i+1, c.Key)
		fmt.Fprintf(&b, "   💰 %s | %d تراکنش\n", toman(c.Total), c.Count)
		fmt.Fprintf(&b, "   📊 متوسط: %s\n\n", toman(c.Average()))
	}

	if len(r.ByWeekday) > 0 {
		b.WriteString("📅 الگوی مصرف بر اساس روز هفته:\n")
		for _, d := range aggregate.Top(r.ByWeekday, 3) {
			fmt.Fprintf(&b, "• %s: %s (%d تراکنش)\n", WeekdayName(d.Key), toman(d.Total), d.Count)
		}
		b.WriteString("\n")
	}

	share := Ratio(cats[0].Total, expense)
	b.WriteString("💡 نکات:\n")
	fmt.Fprintf(&b, "• %s%% از هزینه‌هات تو یک دسته‌بندی خاص هست", fixed1(share))
	if share.GreaterThan(decimal.NewFromInt(50)) {
		b.WriteString("\n⚠️ تمرکز زیاد روی یک دسته‌بندی! بهتره تنوع بیشتری داشته باشی.")
	}
	return b.String()
}

// Suggestion is a category whose spending rose above its trailing average.
type Suggestion struct {
	Category string
	Increase decimal.Decimal // percent over the average
	Savings  int64
	Current  int64
	Average  int64
}

// Optimize compares current category spending with the per-month average of
// history and returns categories more than 20% above it, largest increase first.
func Optimize(current aggregate.Result, history []aggregate.Result, names Names) []Suggestion {
	if len(history) == 0 {
		return nil
	}
	totals := map[string]int64{}
	for _, r := range history {
		for name, bk := range byName(r.ExpenseByCategory, names) {
			totals[name] += bk.Total
		}
	}
	months := decimal.NewFromInt(int64(len(history)))
	threshold := decimal.NewFromFloat(1.2)

	var out []Suggestion
	for name, bk := range byName(current.ExpenseByCategory, names) {
		avg := decimal.NewFromInt(totals[name]).Div(months)
		if avg.Sign() <= 0 {
			continue
		}
		cur := decimal.NewFromInt(bk.Total)
		if !cur.GreaterThan(avg.Mul(threshold)) {
			continue
		}
		out = append(out, Suggestion{
			Category: name,
			Increase: cur.Sub(avg).Mul(hundred).Div(avg).Round(1),
			Savings:  roundInt(cur.Sub(avg)),
			Current:  bk.Total,
			Average:  roundInt(avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Increase.Equal(out[j].Increase) {
			return out[i].Increase.GreaterThan(out[j].Increase)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Optimization renders the suggestions of Optimize.
func Optimization(current aggregate.Result, history []aggregate.Result, names Names) string {
	suggestions := Optimize(current, history, names)

	var b strings.Builder
	b.WriteString("💡 پیشنهادات بهینه‌سازی هزینه:\n\n")
	if len(suggestions) == 0 {
		b.WriteString("✅ تبریک! هزینه‌هات در حد متوسط یا کمتر از اون هست.\n")
		b.WriteString("💡 می‌تونی روی افزایش درآمد تمرکز کنی.")
		return b.String()
	}

	b.WriteString("⚠️ دسته‌بندی‌های با افزایش هزینه:\n\n")
	var total int64
	for i, s := range suggestions {
		total += s.Savings
		if i >= TopN {
			continue
		}
		fmt.Fprintf(&b, "%d. %s:\n", i+1, s.Category)
		fmt.Fprintf(&b, "   📈 %s%% افزایش نسبت به متوسط\n", fixed1(s.Increase))
		fmt.Fprintf(&b, "   💰 می‌تونی %s صرفه‌جویی کنی\n", toman(s.Savings))
		fmt.Fprintf(&b, "   💵 فعلی: %s | متوسط: %s\n\n", amount(s.Current), amount(s.Average))
	}
	b.WriteString("💡 اگر این بهینه‌سازی‌ها رو انجام بدی:\n")
	fmt.Fprintf(&b, "• صرفه‌جویی کل: %s در ماه\n", toman(total))
	fmt.Fprintf(&b, "• صرفه‌جویی سالانه: %s", toman(total*12))
	return b.String()
}
