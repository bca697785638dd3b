package report

import (
	"fmt"
	"strings"

	"hesab/internal/core"
)

// Balances lists accounts with their balances. A total is added when there is
// more than one account.
func Balances(accounts []core.Account) string {
	var b strings.Builder
	b.WriteString("💰 مانده حساب‌ها:\n\n")
	var total int64
	for _, a := range accounts {
		fmt.Fprintf(&b, "🏦 %s: %s\n", a.Name, toman(a.Balance))
		total += a.Balance
	}
	if len(accounts) > 1 {
		fmt.Fprintf(&b, "\n💼 مجموع: %s", toman(total))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Goals lists active goals with their progress.
func Goals(goals []core.Goal) string {
	if len(goals) == 0 {
		return "🎯 هیچ هدف مالی فعالی تعریف نشده است."
	}
	var b strings.Builder
	b.WriteString("🎯 اهداف مالی:\n\n")
	for _, g := range goals {
		fmt.Fprintf(&b, "🎯 %s\n", g.Title)
		fmt.Fprintf(&b, "💰 پیشرفت: %s / %s\n", amount(g.CurrentAmount), toman(g.TargetAmount))
		fmt.Fprintf(&b, "📊 درصد: %d%%\n", g.Progress())
		fmt.Fprintf(&b, "💸 باقی‌مانده: %s\n", toman(g.TargetAmount-g.CurrentAmount))
		if g.Deadline != nil {
			fmt.Fprintf(&b, "📅 مهلت: %s\n", core.FormatJalaali(*g.Deadline))
		}
		fmt.Fprintf(&b, "🆔 %s\n\n", g.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Search renders search results, which the caller passes newest first.
func Search(query string, txs []core.Transaction, names Names) string {
	if len(txs) == 0 {
		return fmt.Sprintf("🔍 هیچ تراکنشی با \"%s\" یافت نشد.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 نتایج جستجو برای \"%s\":\n\n", query)
	var total int64
	for _, t := range txs {
		fmt.Fprintf(&b, "• %s\n", t.Title)
		fmt.Fprintf(&b, "💰 %s | %s\n", toman(t.Amount), typeLabel(t.Type))
		fmt.Fprintf(&b, "📅 %s | 🏦 %s\n", core.FormatJalaali(t.Date), names.Account(t.AccountID))
		fmt.Fprintf(&b, "🆔 %s\n\n", t.ID)
		total += t.Amount
	}
	fmt.Fprintf(&b, "📊 مجموع: %s\n", toman(total))
	fmt.Fprintf(&b, "📝 تعداد: %d تراکنش", len(txs))
	return b.String()
}
