package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"hesab/internal/aggregate"
	"hesab/internal/core"
	"hesab/internal/period"
)

// PeriodName is the heading used for a window of the given kind.
func PeriodName(kind period.Kind, w period.Window) string {
	switch kind {
	case period.Week:
		return "هفته جاری (" + w.Label + ")"
	case period.Day:
		return "امروز (" + w.Label + ")"
	default:
		return w.Label
	}
}

// Period renders the detailed report of one window: totals, savings rate,
// counts, top expense categories and the latest transactions.
func Period(kind period.Kind, r aggregate.Result, names Names) string {
	name := PeriodName(kind, r.Window)
	if r.Empty() {
		return fmt.Sprintf("📭 هیچ تراکنشی در %s یافت نشد.", name)
	}

	var b strings.Builder
	income, expense := r.Income(), r.Expense()
	fmt.Fprintf(&b, "📊 گزارش مالی %s:\n\n", name)
	fmt.Fprintf(&b, "💰 جمع درآمد: %s\n", toman(income))
	fmt.Fprintf(&b, "💸 جمع هزینه: %s\n", toman(expense))
	fmt.Fprintf(&b, "💼 مانده: %s\n", toman(income-expense))
	if income > 0 {
		fmt.Fprintf(&b, "📈 نرخ پس‌انداز: %s%%\n", fixed1(Ratio(income-expense, income)))
	}

	fmt.Fprintf(&b, "\n📝 تعداد تراکنش‌ها: %d\n", r.Count)
	fmt.Fprintf(&b, "➕ درآمدها: %d\n", r.ByType[core.Income].Count)
	fmt.Fprintf(&b, "➖ هزینه‌ها: %d\n", r.ByType[core.Expense].Count)
	if n := r.ByType[core.Transfer].Count; n > 0 {
		fmt.Fprintf(&b, "🔄 انتقال‌ها: %d\n", n)
	}

	if len(r.ExpenseByCategory) > 0 {
		b.WriteString("\n🏷️ هزینه‌ها بر اساس دسته‌بندی:\n")
		for _, c := range aggregate.Top(byName(r.ExpenseByCategory, names), TopN) {
			fmt.Fprintf(&b, "• %s: %s (%d%%)\n", c.Key, toman(c.Total), Percent(c.Total, expense))
		}
	}

	b.WriteString("\n📅 آخرین تراکنش‌ها:\n")
	for i, t := range r.Transactions {
		if i == TopN {
			break
		}
		fmt.Fprintf(&b, "%s %s: %s (%s)\n", typeEmoji(t.Type), t.Title, toman(t.Amount), core.FormatJalaali(t.Date))
	}
	return strings.TrimRight(b.String(), "\n")
}

// CategoryStats renders the expense share of the TopN largest categories in r.
// Smaller categories are folded into one remainder line.
func CategoryStats(kind period.Kind, r aggregate.Result, names Names) string {
	name := PeriodName(kind, r.Window)
	expense := r.Expense()
	if expense == 0 {
		return fmt.Sprintf("📭 هیچ هزینه‌ای در %s یافت نشد.", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 آمار دسته‌بندی‌های %s:\n\n", name)
	ranked := aggregate.Top(byName(r.ExpenseByCategory, names), 0)
	for i, c := range ranked {
		if i == TopN {
			break
		}
		pct := Percent(c.Total, expense)
		fmt.Fprintf(&b, "🏷️ %s:\n", c.Key)
		fmt.Fprintf(&b, "💰 %s (%d%%)\n", toman(c.Total), pct)
		fmt.Fprintf(&b, "📊 %d تراکنش\n", c.Count)
		fmt.Fprintf(&b, "📈 %s %d%%\n\n", bar(pct), pct)
	}
	if len(ranked) > TopN {
		var rest int64
		for _, c := range ranked[TopN:] {
			rest += c.Total
		}
		fmt.Fprintf(&b, "🗂️ %d دسته دیگر: %s (%d%%)\n\n", len(ranked)-TopN, toman(rest), Percent(rest, expense))
	}
	fmt.Fprintf(&b, "💸 کل هزینه: %s", toman(expense))
	return b.String()
}

// TrendMonths is the number of months a trend covers for kind.
func TrendMonths(kind period.Kind) int {
	switch kind {
	case period.Quarter:
		return 3
	case period.Year:
		return 12
	default:
		return 6
	}
}

// Trend renders a month series (oldest first) and the change between its last two months.
func Trend(series []aggregate.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 تحلیل روند %d ماه اخیر:\n\n", len(series))
	for _, r := range series {
		net := r.Net()
		emoji := "✅"
		if net < 0 {
			emoji = "⚠️"
		}
		fmt.Fprintf(&b, "%s %s:\n", emoji, r.Window.Label)
		fmt.Fprintf(&b, "  💰 درآمد: %s\n", toman(r.Income()))
		fmt.Fprintf(&b, "  💸 هزینه: %s\n", toman(r.Expense()))
		fmt.Fprintf(&b, "  💼 مانده: %s\n\n", toman(net))
	}

	if len(series) >= 2 {
		latest, prev := series[len(series)-1], series[len(series)-2]
		expenseChange := Change(latest.Expense(), prev.Expense()).Round(1)
		incomeChange := Change(latest.Income(), prev.Income()).Round(1)

		b.WriteString("📊 تحلیل:\n")
		switch expenseChange.Sign() {
		case 1:
			fmt.Fprintf(&b, "⚠️ هزینه‌ها %s%% افزایش یافته\n", fixed1(expenseChange.Abs()))
		case -1:
			fmt.Fprintf(&b, "✅ هزینه‌ها %s%% کاهش یافته\n", fixed1(expenseChange.Abs()))
		default:
			b.WriteString("➡️ هزینه‌ها بدون تغییر\n")
		}
		switch incomeChange.Sign() {
		case 1:
			fmt.Fprintf(&b, "📈 درآمد %s%% افزایش یافته\n", fixed1(incomeChange.Abs()))
		case -1:
			fmt.Fprintf(&b, "📉 درآمد %s%% کاهش یافته\n", fixed1(incomeChange.Abs()))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func unitName(kind period.Kind) string {
	switch kind {
	case period.Day:
		return "روز"
	case period.Week:
		return "هفته"
	case period.Quarter:
		return "فصل"
	case period.Year:
		return "سال"
	default:
		return "ماه"
	}
}

// Comparison renders the current window against the previous one.
func Comparison(kind period.Kind, cur, prev aggregate.Result) string {
	unit := unitName(kind)
	var b strings.Builder
	fmt.Fprintf(&b, "📊 مقایسه %s جاری با %s قبل:\n\n", unit, unit)

	section := func(title string, now, before int64, up, down string) {
		fmt.Fprintf(&b, "%s:\n", title)
		fmt.Fprintf(&b, "  این %s: %s\n", unit, toman(now))
		fmt.Fprintf(&b, "  %s قبل: %s\n", unit, toman(before))
		change := Change(now, before).Round(1)
		switch change.Sign() {
		case 1:
			fmt.Fprintf(&b, "  %s تغییر: +%s%%\n\n", up, fixed1(change))
		case -1:
			fmt.Fprintf(&b, "  %s تغییر: %s%%\n\n", down, fixed1(change))
		default:
			b.WriteString("  ➡️ بدون تغییر\n\n")
		}
	}
	section("💰 درآمد", cur.Income(), prev.Income(), "📈", "📉")
	section("💸 هزینه", cur.Expense(), prev.Expense(), "⚠️", "✅")

	curNet, prevNet := cur.Net(), prev.Net()
	b.WriteString("💼 مانده:\n")
	fmt.Fprintf(&b, "  این %s: %s\n", unit, toman(curNet))
	fmt.Fprintf(&b, "  %s قبل: %s\n", unit, toman(prevNet))
	switch diff := curNet - prevNet; {
	case diff > 0:
		fmt.Fprintf(&b, "  ✅ بهبود: +%s", toman(diff))
	case diff < 0:
		fmt.Fprintf(&b, "  ⚠️ کاهش: %s", toman(diff))
	default:
		b.WriteString("  ➡️ بدون تغییر")
	}
	return b.String()
}

// AdviceInput is the snapshot personalised advice is derived from.
type AdviceInput struct {
	Current     aggregate.Result
	Previous    aggregate.Result
	ActiveGoals int
	Accounts    int
}

// Advice renders rule-based financial advice for the current month.
func Advice(in AdviceInput, names Names) string {
	income, expense := in.Current.Income(), in.Current.Expense()
	savingsRate := Ratio(income-expense, income)
	expenseChange := Change(expense, in.Previous.Expense())

	var b strings.Builder
	b.WriteString("💡 نصیحت‌های مالی شخصی‌سازی شده:\n\n")

	switch {
	case savingsRate.LessThan(decimal.NewFromInt(10)):
		fmt.Fprintf(&b, "⚠️ نرخ پس‌انداز شما (%s%%) کم است!\n", fixed1(savingsRate))
		b.WriteString("💡 سعی کن حداقل 20% از درآمدت رو پس‌انداز کنی.\n\n")
	case savingsRate.GreaterThanOrEqual(decimal.NewFromInt(20)):
		fmt.Fprintf(&b, "✅ عالی! نرخ پس‌انداز شما (%s%%) عالیه! ادامه بده.\n\n", fixed1(savingsRate))
	}

	switch {
	case expenseChange.GreaterThan(decimal.NewFromInt(20)):
		fmt.Fprintf(&b, "⚠️ هزینه‌های این ماه %s%% افزایش یافته!\n", fixed1(expenseChange))
		b.WriteString("💡 بررسی کن ببین کجاها می‌تونی صرفه‌جویی کنی.\n\n")
	case expenseChange.LessThan(decimal.NewFromInt(-10)):
		fmt.Fprintf(&b, "✅ هزینه‌هایت %s%% کاهش یافته! خیلی خوبه!\n\n", fixed1(expenseChange.Abs()))
	}

	if top := aggregate.Top(byName(in.Current.ExpenseByCategory, names), 1); len(top) > 0 {
		fmt.Fprintf(&b, "📊 بیشترین هزینه‌ت تو دسته \"%s\" هست.\n", top[0].Key)
		b.WriteString("💡 بررسی کن ببین می‌تونی تو این بخش صرفه‌جویی کنی.\n\n")
	}

	if in.ActiveGoals == 0 {
		b.WriteString("🎯 هیچ هدف مالی‌ای نداری!\n")
		b.WriteString("💡 یک هدف مالی تعریف کن تا انگیزه بیشتری برای پس‌انداز داشته باشی.\n\n")
	} else {
		fmt.Fprintf(&b, "🎯 %d هدف مالی داری. بهشون ادامه بده!\n\n", in.ActiveGoals)
	}

	if in.Accounts == 0 {
		b.WriteString("🏦 هنوز حسابی نداری!\n")
		b.WriteString("💡 یک حساب ایجاد کن تا بتونی بهتر مدیریت کنی.\n\n")
	}

	b.WriteString("✨ نکات کلی:\n")
	b.WriteString("• سعی کن درآمدت رو افزایش بدی\n")
	b.WriteString("• هزینه‌های غیر ضروری رو کاهش بده\n")
	b.WriteString("• برای آینده پس‌انداز کن\n")
	b.WriteString("• اهداف مالی مشخص داشته باش\n")
	b.WriteString("• منظم تراکنش‌هات رو ثبت کن")
	return b.String()
}
