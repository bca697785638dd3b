package intent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"hesab/internal/core"
	"hesab/internal/period"
)

var (
	ErrMalformed     = errors.New("malformed payload")
	ErrNoAction      = errors.New("payload has no action")
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidAction = errors.New("invalid action parameters")

	// Refinements of ErrInvalidAction the user gets a specific answer for.
	ErrNonPositiveAmount  = fmt.Errorf("%w: amount must be positive", ErrInvalidAction)
	ErrMissingDestination = fmt.Errorf("%w: missing destination account", ErrInvalidAction)
)

// payload is the loose record a model emits. Numbers may arrive as JSON
// numbers or as phrases such as "215 هزار".
type payload struct {
	Action         text    `json:"action"`
	Amount         amount  `json:"amount"`
	Title          text    `json:"title"`
	Description    text    `json:"description"`
	Category       text    `json:"category"`
	Account        text    `json:"account"`
	FromAccount    text    `json:"fromAccount"`
	ToAccount      text    `json:"toAccount"`
	Type           text    `json:"type"`
	Query          text    `json:"query"`
	SearchType     text    `json:"searchType"`
	Period         text    `json:"period"`
	Date           text    `json:"date"`
	Name           text    `json:"name"`
	InitialBalance amount  `json:"initialBalance"`
	GoalTitle      text    `json:"goalTitle"`
	GoalID         text    `json:"goalId"`
	TargetAmount   *amount `json:"targetAmount"`
	CurrentAmount  *amount `json:"currentAmount"`
	Deadline       *text   `json:"deadline"`
	TransactionID  text    `json:"transactionId"`
	ID             text    `json:"id"`
	RecurringType  text    `json:"recurringType"`
	Months         amount  `json:"months"`
}

// text accepts strings, numbers and null.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*t = text(n.String())
	return nil
}

func (t text) String() string { return string(t) }

// amount accepts numbers, numeric phrases and null. Unparsable phrases decode to 0.
type amount int64

func (a *amount) UnmarshalJSON(b []byte) error {
	var t text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	s := t.String()
	if s == "" {
		*a = 0
		return nil
	}
	if d, err := decimal.NewFromString(core.NormalizeDigits(s)); err == nil {
		*a = amount(d.Round(0).IntPart())
		return nil
	}
	v, err := core.ParseAmount(s)
	if err != nil {
		*a = 0
		return nil
	}
	*a = amount(v)
	return nil
}

// DecodeAction validates a structured payload into one Action variant.
func DecodeAction(raw string) (Action, error) {
	p, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	return p.action()
}

func decodePayload(raw string) (payload, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return p, nil
}

func (p payload) hasAction() bool {
	a := strings.ToLower(p.Action.String())
	return a != "" && a != "null"
}

func (p payload) action() (Action, error) {
	if !p.hasAction() {
		return nil, ErrNoAction
	}
	name := Canonical(p.Action.String())
	switch name {
	case NameAddTransaction:
		return p.addTransaction()
	case NameRecurringTransaction:
		add, err := p.transactionFields("تراکنش تکراری")
		if err != nil {
			return nil, err
		}
		rt := core.RecurringType(strings.ToLower(p.RecurringType.String()))
		if rt == "" {
			rt = core.Monthly
		}
		if !rt.Valid() {
			return nil, invalid(name, "recurringType %q", rt)
		}
		return RecurringTransaction{AddTransaction: add, RecurringType: rt}, nil
	case NameTransferMoney:
		return p.transfer()
	case NameDeleteTransaction:
		id := first(p.TransactionID, p.ID)
		if id == "" {
			return nil, invalid(name, "missing transactionId")
		}
		return DeleteTransaction{TransactionID: id}, nil
	case NameCreateAccount:
		n := first(p.Name, p.Title, p.Account)
		if n == "" {
			return nil, invalid(name, "missing name")
		}
		return CreateAccount{AccountName: n, Kind: ParseAccountKind(p.Type.String()), InitialBalance: int64(p.InitialBalance)}, nil
	case NameCreateGoal:
		return p.createGoal()
	case NameUpdateGoal:
		return p.updateGoal()
	case NameListGoals:
		return ListGoals{}, nil
	case NameMonthlyReport:
		return MonthlyReport{Period: p.period()}, nil
	case NameTrendAnalysis:
		return TrendAnalysis{Period: p.period()}, nil
	case NamePeriodComparison:
		return PeriodComparison{Period: p.period()}, nil
	case NameCategoryStats:
		return CategoryStats{Period: p.period()}, nil
	case NameFinancialAdvice:
		return FinancialAdvice{}, nil
	case NameBudget:
		return BudgetRecommendation{}, nil
	case NameForecast:
		months := int(p.Months)
		if months <= 0 {
			months = 3
		}
		if months > 12 {
			months = 12
		}
		return FinancialForecast{Months: months}, nil
	case NameSpendingPatterns:
		return SpendingPatterns{}, nil
	case NameCostOptimization:
		return CostOptimization{}, nil
	case NameSearchTransactions:
		return SearchTransactions{Query: p.Query.String(), SearchType: ParseSearchType(p.SearchType.String())}, nil
	case NameAccountBalance:
		return AccountBalance{Account: p.Account.String()}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, p.Action)
}

func (p payload) addTransaction() (Action, error) {
	if strings.EqualFold(p.Type.String(), string(core.Transfer)) && p.ToAccount != "" {
		return p.transfer()
	}
	return p.transactionFields("تراکنش")
}

func (p payload) transactionFields(defaultTitle string) (AddTransaction, error) {
	if p.Amount <= 0 {
		return AddTransaction{}, fmt.Errorf("%s: %w", p.Action, ErrNonPositiveAmount)
	}
	typ := core.TransactionType(strings.ToLower(p.Type.String()))
	if typ == "" {
		typ = core.Expense
	}
	if typ != core.Income && typ != core.Expense {
		return AddTransaction{}, invalid(p.Action.String(), "type %q", typ)
	}
	title := p.Title.String()
	if title == "" {
		title = defaultTitle
	}
	return AddTransaction{
		Type:        typ,
		Amount:      int64(p.Amount),
		Title:       title,
		Description: p.Description.String(),
		Category:    p.Category.String(),
		Account:     first(p.Account, p.FromAccount),
		Date:        p.Date.String(),
	}, nil
}

func (p payload) transfer() (Action, error) {
	from := first(p.FromAccount, p.Account)
	switch {
	case p.Amount <= 0:
		return nil, fmt.Errorf("%s: %w", NameTransferMoney, ErrNonPositiveAmount)
	case p.ToAccount == "":
		return nil, fmt.Errorf("%s: %w", NameTransferMoney, ErrMissingDestination)
	case from == "":
		return nil, invalid(NameTransferMoney, "missing source account")
	}
	return TransferMoney{Amount: int64(p.Amount), From: from, To: p.ToAccount.String(), Description: p.Description.String()}, nil
}

func (p payload) createGoal() (Action, error) {
	title := first(p.GoalTitle, p.Title)
	target := p.Amount
	if p.TargetAmount != nil {
		target = *p.TargetAmount
	}
	switch {
	case title == "":
		return nil, invalid(NameCreateGoal, "missing goalTitle")
	case target <= 0:
		return nil, fmt.Errorf("%s: %w", NameCreateGoal, ErrNonPositiveAmount)
	}
	g := CreateGoal{Title: title, TargetAmount: int64(target), Kind: ParseGoalKind(p.Type.String())}
	if p.Deadline != nil {
		g.Deadline = p.Deadline.String()
	}
	return g, nil
}

func (p payload) updateGoal() (Action, error) {
	id := first(p.GoalID, p.ID)
	if id == "" {
		return nil, invalid(NameUpdateGoal, "missing goalId")
	}
	u := UpdateGoal{GoalID: id}
	if p.CurrentAmount != nil {
		v := int64(*p.CurrentAmount)
		u.CurrentAmount = &v
	}
	if p.TargetAmount != nil {
		v := int64(*p.TargetAmount)
		u.TargetAmount = &v
	}
	if t := first(p.GoalTitle, p.Title); t != "" {
		u.Title = &t
	}
	if p.Deadline != nil {
		d := p.Deadline.String()
		u.Deadline = &d
	}
	if u.CurrentAmount == nil && u.TargetAmount == nil && u.Title == nil && u.Deadline == nil {
		return nil, invalid(NameUpdateGoal, "nothing to update")
	}
	return u, nil
}

func (p payload) period() period.Kind {
	return period.ParseKind(p.Period.String(), period.Month)
}

// ParseAccountKind maps Persian and English kind words. Unknown words mean cash.
func ParseAccountKind(s string) core.AccountKind {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "bank" || strings.Contains(s, "بانک"):
		return core.Bank
	case s == "card" || strings.Contains(s, "کارت"):
		return core.Card
	case s == "savings" || strings.Contains(s, "پس"):
		return core.Savings
	}
	return core.Cash
}

// ParseGoalKind maps goal kind words. Unknown words mean savings.
func ParseGoalKind(s string) core.GoalKind {
	k := core.GoalKind(strings.ToLower(strings.TrimSpace(s)))
	if k.Valid() {
		return k
	}
	return core.SavingsGoal
}

// ParseSearchType defaults to title search.
func ParseSearchType(s string) SearchType {
	switch t := SearchType(strings.ToLower(strings.TrimSpace(s))); t {
	case SearchAmount, SearchDate, SearchCategory:
		return t
	}
	return SearchTitle
}

func first(vals ...text) string {
	for _, v := range vals {
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}

func invalid(action, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidAction, action, fmt.Sprintf(format, args...))
}
