package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesab/internal/core"
	"hesab/internal/llm"
	"hesab/internal/log"
	"hesab/internal/period"
	"hesab/internal/session"
)

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
		ok    bool
	}{
		{"plain text", "سلام! چطوری؟", "", false},
		{"bare object", `باشه {"action":"balance"} انجام شد`, `{"action":"balance"}`, true},
		{"fenced preferred", "{x}\n```json\n{\"action\":\"budget\"}\n```", `{"action":"budget"}`, true},
		{"nested", `{"action":"add_transaction","meta":{"a":1}} tail}`, `{"action":"add_transaction","meta":{"a":1}}`, true},
		{"brace in string", `{"title":"a}b","action":"x"}`, `{"title":"a}b","action":"x"}`, true},
		{"unbalanced", `{"action": "x"`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPayload(tt.reply)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSmallTalk(t *testing.T) {
	for _, m := range []string{"سلام", "سلام خوبی؟", "ممنون!", "Hello there", "thanks", "خوبی؟", "بدون"} {
		assert.True(t, IsSmallTalk(m), m)
	}
	for _, m := range []string{"نهار 50 هزار", "215 هزار هزینه غذا", "history please", "گزارش ماه", "بدهی کارت"} {
		assert.False(t, IsSmallTalk(m), m)
	}
}

func TestDecodeAction(t *testing.T) {
	a, err := DecodeAction(`{"action":"add_transaction","amount":215000,"title":"غذا","category":"غذا","type":"expense"}`)
	require.NoError(t, err)
	assert.Equal(t, AddTransaction{Type: core.Expense, Amount: 215000, Title: "غذا", Category: "غذا"}, a)

	a, err = DecodeAction(`{"action":"add_transaction","amount":"2.5 میلیون"}`)
	require.NoError(t, err)
	add := a.(AddTransaction)
	assert.Equal(t, int64(2_500_000), add.Amount)
	assert.Equal(t, core.Expense, add.Type)
	assert.Equal(t, "تراکنش", add.Title)

	a, err = DecodeAction(`{"action":"transfer_money","amount":200000,"account":"بلو","toAccount":"کش","type":"transfer"}`)
	require.NoError(t, err)
	assert.Equal(t, TransferMoney{Amount: 200000, From: "بلو", To: "کش"}, a)

	a, err = DecodeAction(`{"action":"recurring_transaction","amount":500000,"title":"اجاره","type":"expense"}`)
	require.NoError(t, err)
	rec := a.(RecurringTransaction)
	assert.Equal(t, core.Monthly, rec.RecurringType)
	assert.Equal(t, "اجاره", rec.Title)

	a, err = DecodeAction(`{"action":"create_goal","goalTitle":"خرید ماشین","targetAmount":10000000,"deadline":"1403/12/29"}`)
	require.NoError(t, err)
	assert.Equal(t, CreateGoal{Title: "خرید ماشین", TargetAmount: 10_000_000, Deadline: "1403/12/29", Kind: core.SavingsGoal}, a)

	a, err = DecodeAction(`{"action":"update_goal","goalId":"g1","currentAmount":0}`)
	require.NoError(t, err)
	up := a.(UpdateGoal)
	require.NotNil(t, up.CurrentAmount)
	assert.Equal(t, int64(0), *up.CurrentAmount)
	assert.Nil(t, up.TargetAmount)

	a, err = DecodeAction(`{"action":"create_account","name":"بلو","type":"بانکی"}`)
	require.NoError(t, err)
	assert.Equal(t, CreateAccount{AccountName: "بلو", Kind: core.Bank}, a)

	a, err = DecodeAction(`{"action":"forecast"}`)
	require.NoError(t, err)
	assert.Equal(t, FinancialForecast{Months: 3}, a)

	a, err = DecodeAction(`{"action":"report","period":"week"}`)
	require.NoError(t, err)
	assert.Equal(t, MonthlyReport{Period: period.Week}, a)

	a, err = DecodeAction(`{"action":"search_transactions","query":50000,"searchType":"amount"}`)
	require.NoError(t, err)
	assert.Equal(t, SearchTransactions{Query: "50000", SearchType: SearchAmount}, a)
}

func TestDecodeActionErrors(t *testing.T) {
	tests := []struct {
		raw  string
		want error
	}{
		{`{"action":`, ErrMalformed},
		{`{"action":null,"description":"hi"}`, ErrNoAction},
		{`{"action":"null"}`, ErrNoAction},
		{`{"action":"unknown_action"}`, ErrUnknownAction},
		{`{"action":"add_transaction","amount":0}`, ErrInvalidAction},
		{`{"action":"add_transaction","amount":10,"type":"gift"}`, ErrInvalidAction},
		{`{"action":"transfer_money","amount":10,"account":"a"}`, ErrInvalidAction},
		{`{"action":"update_goal","goalId":"g1"}`, ErrInvalidAction},
		{`{"action":"delete_transaction"}`, ErrInvalidAction},
		{`{"action":"recurring_transaction","amount":5,"recurringType":"hourly"}`, ErrInvalidAction},
	}
	for _, tt := range tests {
		_, err := DecodeAction(tt.raw)
		assert.True(t, errors.Is(err, tt.want), "%s: got %v", tt.raw, err)
	}
}

func TestDecodeActionRejections(t *testing.T) {
	tests := []struct {
		raw  string
		want error
	}{
		{`{"action":"add_transaction","amount":0,"title":"غذا"}`, ErrNonPositiveAmount},
		{`{"action":"add_transaction","amount":-5000,"title":"غذا"}`, ErrNonPositiveAmount},
		{`{"action":"recurring_transaction","amount":0}`, ErrNonPositiveAmount},
		{`{"action":"create_goal","goalTitle":"سفر","targetAmount":0}`, ErrNonPositiveAmount},
		{`{"action":"transfer_money","amount":-1,"account":"a","toAccount":"b"}`, ErrNonPositiveAmount},
		{`{"action":"transfer","amount":1000,"fromAccount":"ملی"}`, ErrMissingDestination},
	}
	for _, tt := range tests {
		_, err := DecodeAction(tt.raw)
		assert.ErrorIs(t, err, tt.want, tt.raw)
		assert.ErrorIs(t, err, ErrInvalidAction, tt.raw)
	}
}

func TestInterpret(t *testing.T) {
	logger := log.Discard()

	res := Interpret("215 هزار هزینه غذا", `{"action":"add_transaction","amount":215000,"title":"غذا"}`, logger)
	require.NotNil(t, res.Action)
	assert.Equal(t, NameAddTransaction, res.Action.Name())

	reply := `سلام! {"action":"balance"}`
	res = Interpret("سلام", reply, logger)
	assert.Nil(t, res.Action, "small talk ignores payloads")
	assert.Equal(t, reply, res.Reply)

	reply = `{"action":"unknown_action"}`
	res = Interpret("do something", reply, logger)
	assert.Nil(t, res.Action)
	assert.Equal(t, reply, res.Reply)

	res = Interpret("x", `{"action":null,"description":"این یک پاسخ دوستانه طولانی است"}`, logger)
	assert.Equal(t, "این یک پاسخ دوستانه طولانی است", res.Reply)

	res = Interpret("x", `{"action":""} متن جایگزین به اندازه کافی طولانی`, logger)
	assert.Equal(t, "متن جایگزین به اندازه کافی طولانی", res.Reply)

	reply = `{"action":""} کوتاه`
	res = Interpret("x", reply, logger)
	assert.Equal(t, reply, res.Reply)

	reply = `{"action":"add_transaction","amount":0,"title":"غذا"}`
	res = Interpret("صفر تومان خرج کردم", reply, logger)
	assert.Nil(t, res.Action)
	assert.ErrorIs(t, res.Rejected, ErrNonPositiveAmount)
	assert.Equal(t, reply, res.Raw)

	reply = "```json\n{\"action\": \n```"
	res = Interpret("x", reply, logger)
	assert.Nil(t, res.Action)
	assert.Equal(t, reply, res.Reply)
	assert.Equal(t, reply, res.Raw)
}

func TestMatchAccount(t *testing.T) {
	accounts := []core.Account{{ID: "1", Name: "Blue Bank", Balance: 900}, {ID: "2", Name: "Mellat", Balance: 100}}

	a, ok := MatchAccount(accounts, "blue")
	require.True(t, ok)
	assert.Equal(t, "Blue Bank", a.Name)

	a, ok = MatchAccount(accounts, "my mellat account")
	require.True(t, ok)
	assert.Equal(t, "Mellat", a.Name, "requested name may contain the real one")

	a, ok = MatchAccount(accounts, "saman")
	require.True(t, ok)
	assert.Equal(t, "Blue Bank", a.Name, "falls back to the highest balance")

	_, ok = FindAccount(accounts, "")
	assert.False(t, ok)
	_, ok = MatchAccount(nil, "blue")
	assert.False(t, ok)
}

func TestFilterAccounts(t *testing.T) {
	accounts := []core.Account{{Name: "Blue Bank"}, {Name: "Blue Card"}, {Name: "Mellat"}}
	assert.Len(t, FilterAccounts(accounts, "blue"), 2)
	assert.Len(t, FilterAccounts(accounts, " "), 3)
	assert.Empty(t, FilterAccounts(accounts, "saman"))
}

func TestMatchCategory(t *testing.T) {
	cats := []core.Category{{ID: "f", Name: "غذا"}, {ID: "o", Name: "سایر"}}
	c, ok := MatchCategory(cats, "غذا و نوشیدنی")
	require.True(t, ok)
	assert.Equal(t, "f", c.ID)

	c, ok = MatchCategory(cats, "اجاره")
	require.True(t, ok)
	assert.Equal(t, "o", c.ID)

	_, ok = MatchCategory([]core.Category{{Name: "غذا"}}, "اجاره")
	assert.False(t, ok)
}

func TestRuleResolver(t *testing.T) {
	r := NewRuleResolver()
	resolve := func(msg string) Resolution {
		t.Helper()
		res, err := r.Resolve(context.Background(), Request{Message: msg})
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, AddTransaction{Type: core.Expense, Amount: 50000, Title: "lunch", Category: "lunch"},
		resolve("add 50000 expense lunch").Action)
	assert.Equal(t, AddTransaction{Type: core.Expense, Amount: 215000, Title: "غذا", Category: "غذا"},
		resolve("215 هزار هزینه غذا کردم").Action)
	assert.Equal(t, AddTransaction{Type: core.Income, Amount: 5_000_000, Title: "تراکنش", Category: "حقوق"},
		resolve("5 میلیون درآمد حقوق").Action)
	assert.Equal(t, AddTransaction{Type: core.Income, Amount: 1_200_000, Title: "پروژه", Description: "طراحی سایت", Category: "آموزش"},
		resolve("درآمد | 1,200,000 | پروژه | طراحی سایت | آموزش").Action)

	assert.Equal(t, MonthlyReport{Period: period.Week}, resolve("گزارش این هفته").Action)
	assert.Equal(t, FinancialForecast{Months: 6}, resolve("پیش‌بینی 6 ماه آینده").Action)
	assert.Equal(t, AccountBalance{}, resolve("مانده حساب‌ها").Action)
	assert.Equal(t, AccountBalance{Account: "ملت"}, resolve("موجودی حساب ملت").Action)
	assert.Equal(t, SearchTransactions{Query: "ناهار", SearchType: SearchTitle}, resolve("جستجو ناهار").Action)
	assert.Equal(t, BudgetRecommendation{}, resolve("budget please").Action)

	greeting := resolve("سلام")
	assert.Nil(t, greeting.Action)
	assert.NotEmpty(t, greeting.Reply)

	help := resolve("آسمان آبی است")
	assert.Nil(t, help.Action)
	assert.Equal(t, ruleHelp, help.Reply)
}

func TestModelResolver(t *testing.T) {
	var got llm.Request
	c := llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		got = req
		return "```json\n{\"action\":\"trend_analysis\"}\n```", nil
	})
	r := NewModelResolver(c, 0.6, 4000, log.Discard())

	res, err := r.Resolve(context.Background(), Request{
		Message: "روند هزینه‌هام چطوریه؟",
		System:  "system prompt",
		History: []session.Turn{{Role: session.RoleUser, Text: "a"}, {Role: session.RoleAssistant, Text: "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, TrendAnalysis{Period: period.Month}, res.Action)
	assert.Equal(t, "system prompt", got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, llm.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "روند هزینه‌هام چطوریه؟", got.Messages[2].Text)
	assert.Equal(t, 4000, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.6, *got.Temperature)

	deterministic := NewModelResolver(c, 0, 4000, log.Discard())
	_, err = deterministic.Resolve(context.Background(), Request{Message: "x"})
	require.NoError(t, err)
	require.NotNil(t, got.Temperature)
	assert.Zero(t, *got.Temperature)

	failing := NewModelResolver(llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		return "", llm.ErrUnavailable
	}), 0.6, 4000, nil)
	_, err = failing.Resolve(context.Background(), Request{Message: "x"})
	assert.True(t, errors.Is(err, llm.ErrUnavailable))
}
