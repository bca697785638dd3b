package report

import (
	"fmt"
	"strings"

	"hesab/internal/core"
)

// TransactionAdded confirms a new income or expense.
func TransactionAdded(t core.Transaction, account core.Account) string {
	return fmt.Sprintf("✅ تراکنش \"%s\" با مبلغ %s ثبت شد.\n🏦 حساب: %s\n💳 مانده جدید: %s",
		t.Title, toman(t.Amount), account.Name, toman(account.Balance))
}

// RecurringAdded confirms a recurring transaction and its first occurrence.
func RecurringAdded(t core.Transaction, account core.Account) string {
	return fmt.Sprintf("✅ تراکنش تکراری \"%s\" ثبت شد!\n\n💰 مبلغ: %s\n🔄 نوع: %s\n💳 مانده جدید: %s",
		t.Title, toman(t.Amount), RecurringLabel(t.RecurringType), toman(account.Balance))
}

// Transferred confirms a transfer with both balances after it.
func Transferred(amount int64, from, to core.Account) string {
	return fmt.Sprintf("✅ انتقال انجام شد!\n\n💰 مبلغ: %s\n📤 از: %s (مانده: %s)\n📥 به: %s (مانده: %s)",
		toman(amount), from.Name, toman(from.Balance), to.Name, toman(to.Balance))
}

// TransferTitle is the title stored on transfer transactions.
func TransferTitle(from, to string) string {
	return fmt.Sprintf("انتقال از %s به %s", from, to)
}

// AccountCreated confirms a new account.
func AccountCreated(a core.Account) string {
	return fmt.Sprintf("✅ حساب \"%s\" با موفقیت ایجاد شد!\n💰 مانده اولیه: %s", a.Name, toman(a.Balance))
}

// GoalCreated confirms a new goal.
func GoalCreated(g core.Goal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ هدف مالی \"%s\" با موفقیت ایجاد شد!\n\n", g.Title)
	fmt.Fprintf(&b, "🎯 هدف: %s\n", toman(g.TargetAmount))
	fmt.Fprintf(&b, "💰 پیشرفت: %s (%d%%)", toman(g.CurrentAmount), g.Progress())
	if g.Deadline != nil {
		fmt.Fprintf(&b, "\n📅 مهلت: %s", core.FormatJalaali(*g.Deadline))
	}
	return b.String()
}

// GoalUpdated confirms a goal change.
func GoalUpdated(g core.Goal) string {
	msg := fmt.Sprintf("✅ هدف \"%s\" به‌روزرسانی شد!\n\n💰 پیشرفت: %s / %s\n📊 درصد: %d%%",
		g.Title, amount(g.CurrentAmount), toman(g.TargetAmount), g.Progress())
	if g.IsCompleted {
		msg += "\n🎉 تبریک! هدف تکمیل شد!"
	}
	return msg
}

// TransactionDeleted confirms a deletion.
func TransactionDeleted(t core.Transaction) string {
	return fmt.Sprintf("✅ تراکنش \"%s\" حذف شد و تغییرات به حساب برگردانده شد.", t.Title)
}
