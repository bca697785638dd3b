package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hesab/internal/aggregate"
	"hesab/internal/core"
	"hesab/internal/intent"
	"hesab/internal/log"
	"hesab/internal/period"
	"hesab/internal/report"
	"hesab/internal/services"
	"hesab/internal/storage"
)

// SearchLimit caps the results of one search.
const SearchLimit = 10

// Result is the outcome of one message. Expected failures are results, not errors.
type Result struct {
	Success bool
	Message string
}

// Text is the message as shown to the user. Failures carry a ❌ prefix.
func (r Result) Text() string {
	if r.Success || strings.HasPrefix(r.Message, "❌") {
		return r.Message
	}
	return "❌ " + r.Message
}

// User facing messages.
const (
	MsgNoAccount          = "❌ ابتدا باید یک حساب ایجاد کنی.\n\n💡 می‌گی یه حساب جدید بسازم؟\nمثلاً: \"یه حساب نقدی با نام بلو بساز\""
	MsgSameAccount        = "نمی‌تونی از یک حساب به خودش پول منتقل کنی!"
	MsgNoAccounts         = "هیچ حسابی یافت نشد."
	MsgGoalNotFound       = "هدف یافت نشد."
	MsgTransactionMissing = "تراکنش یافت نشد."
	MsgInvalidAmount      = "❌ مبلغ وارد شده معتبر نیست."
	MsgMissingDestination = "❌ حساب مقصد مشخص نیست."
	MsgUnsupported        = "❌ این عملیات پشتیبانی نمی‌شود."
	MsgIncompleteAction   = "❌ اطلاعات درخواست کامل نیست. لطفاً دقیق‌تر بگو چه کاری انجام بدم."
)

// failures holds the generic message of every action whose persistence failed.
var failures = map[string]string{
	intent.NameAddTransaction:       "خطایی در ثبت تراکنش رخ داد.",
	intent.NameRecurringTransaction: "خطایی در ثبت تراکنش تکراری رخ داد.",
	intent.NameTransferMoney:        "خطایی در انتقال پول رخ داد.",
	intent.NameDeleteTransaction:    "خطایی در حذف تراکنش رخ داد.",
	intent.NameCreateAccount:        "خطایی در ایجاد حساب رخ داد.",
	intent.NameCreateGoal:           "خطایی در ایجاد هدف رخ داد.",
	intent.NameUpdateGoal:           "خطایی در به‌روزرسانی هدف رخ داد.",
	intent.NameListGoals:            "خطایی در دریافت اهداف رخ داد.",
	intent.NameMonthlyReport:        "خطایی در تهیه گزارش رخ داد.",
	intent.NameTrendAnalysis:        "خطایی در تحلیل روند رخ داد.",
	intent.NamePeriodComparison:     "خطایی در مقایسه دوره‌ها رخ داد.",
	intent.NameCategoryStats:        "خطایی در دریافت آمار رخ داد.",
	intent.NameFinancialAdvice:      "خطایی در ارائه نصیحت رخ داد.",
	intent.NameBudget:               "خطایی در محاسبه بودجه رخ داد.",
	intent.NameForecast:             "خطایی در پیش‌بینی مالی رخ داد.",
	intent.NameSpendingPatterns:     "خطایی در تحلیل الگوها رخ داد.",
	intent.NameCostOptimization:     "خطایی در بهینه‌سازی رخ داد.",
	intent.NameSearchTransactions:   "خطایی در جستجو رخ داد.",
	intent.NameAccountBalance:       "خطایی در دریافت مانده حساب‌ها رخ داد.",
}

// Dispatcher executes actions for the user of a snapshot. Mutations go through
// the ledger service, reports read through the aggregation engine.
type Dispatcher struct {
	ledger  *services.LedgerService
	store   storage.Store
	agg     *aggregate.Engine
	periods *period.Resolver
	logger  *log.Logger
}

func NewDispatcher(ledger *services.LedgerService, periods *period.Resolver, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	store := ledger.Store()
	return &Dispatcher{
		ledger:  ledger,
		store:   store,
		agg:     aggregate.New(store),
		periods: periods,
		logger:  logger.WithComponent(log.ComponentDispatch),
	}
}

// Dispatch runs a against the snapshot's user. It never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, snap Snapshot, a intent.Action) Result {
	d.logger.DebugContext(ctx, "Dispatching action", log.FieldUserID, snap.User.ID, log.FieldAction, a.Name())

	var (
		res Result
		err error
	)
	switch a := a.(type) {
	case intent.AddTransaction:
		res, err = d.addTransaction(ctx, snap, a, "")
	case intent.RecurringTransaction:
		res, err = d.addTransaction(ctx, snap, a.AddTransaction, a.RecurringType)
	case intent.TransferMoney:
		res, err = d.transfer(ctx, snap, a)
	case intent.DeleteTransaction:
		res, err = d.deleteTransaction(ctx, snap, a)
	case intent.CreateAccount:
		res, err = d.createAccount(ctx, snap, a)
	case intent.CreateGoal:
		res, err = d.createGoal(ctx, snap, a)
	case intent.UpdateGoal:
		res, err = d.updateGoal(ctx, snap, a)
	case intent.ListGoals:
		res, err = d.listGoals(ctx, snap)
	case intent.MonthlyReport:
		res, err = d.periodReport(ctx, snap, a.Period)
	case intent.TrendAnalysis:
		res, err = d.trend(ctx, snap, a.Period)
	case intent.PeriodComparison:
		res, err = d.comparison(ctx, snap, a.Period)
	case intent.CategoryStats:
		res, err = d.categoryStats(ctx, snap, a.Period)
	case intent.FinancialAdvice:
		res, err = d.advice(ctx, snap)
	case intent.BudgetRecommendation:
		res, err = d.budget(ctx, snap)
	case intent.FinancialForecast:
		res, err = d.forecast(ctx, snap, a.Months)
	case intent.SpendingPatterns:
		res, err = d.patterns(ctx, snap)
	case intent.CostOptimization:
		res, err = d.optimization(ctx, snap)
	case intent.SearchTransactions:
		res, err = d.search(ctx, snap, a)
	case intent.AccountBalance:
		res = d.balance(snap, a)
	default:
		res = Result{Message: MsgUnsupported}
	}
	if err != nil {
		return d.fail(ctx, snap, a, err)
	}
	return res
}

func (d *Dispatcher) fail(ctx context.Context, snap Snapshot, a intent.Action, err error) Result {
	d.logger.ErrorContext(ctx, "Action failed",
		log.NewFields().
			WithUser(snap.User.ID).
			WithOperation(log.OpDispatch).
			WithError(err, log.ErrorTypeDatabase).
			ToSlice()...)
	msg, ok := failures[a.Name()]
	if !ok {
		msg = "خطایی رخ داد."
	}
	return Result{Message: msg}
}

func (d *Dispatcher) addTransaction(ctx context.Context, snap Snapshot, a intent.AddTransaction, recurring core.RecurringType) (Result, error) {
	account, ok := intent.MatchAccount(snap.Accounts, a.Account)
	if !ok {
		return Result{Success: true, Message: MsgNoAccount}, nil
	}
	if a.Amount <= 0 {
		return Result{Message: MsgInvalidAmount}, nil
	}
	if a.Type == core.Transfer {
		return Result{Message: MsgMissingDestination}, nil
	}
	t := core.Transaction{
		UserID:        snap.User.ID,
		Type:          a.Type,
		Amount:        a.Amount,
		Title:         a.Title,
		Description:   a.Description,
		AccountID:     account.ID,
		RecurringType: recurring,
	}
	if t.Type == "" {
		t.Type = core.Expense
	}
	if c, ok := intent.MatchCategory(snap.Categories, a.Category); ok {
		t.CategoryID = c.ID
	}
	t.Date = snap.Now
	if a.Date != "" {
		if date, err := core.ParseDate(a.Date, d.periods.Location()); err == nil {
			t.Date = date
		}
	}

	t, err := d.ledger.AddTransaction(ctx, t)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			return Result{Message: msg}, nil
		}
		return Result{}, err
	}
	account.Balance += t.Deltas()[0].Amount
	if recurring != "" {
		return Result{Success: true, Message: report.RecurringAdded(t, account)}, nil
	}
	return Result{Success: true, Message: report.TransactionAdded(t, account)}, nil
}

func (d *Dispatcher) transfer(ctx context.Context, snap Snapshot, a intent.TransferMoney) (Result, error) {
	if len(snap.Accounts) == 0 {
		return Result{Success: true, Message: MsgNoAccount}, nil
	}
	from, ok := intent.FindAccount(snap.Accounts, a.From)
	if !ok {
		return Result{Message: fmt.Sprintf("حساب \"%s\" یافت نشد.", a.From)}, nil
	}
	to, ok := intent.FindAccount(snap.Accounts, a.To)
	if !ok {
		return Result{Message: fmt.Sprintf("حساب \"%s\" یافت نشد.", a.To)}, nil
	}

	_, err := d.ledger.Transfer(ctx, core.Transaction{
		UserID:      snap.User.ID,
		Amount:      a.Amount,
		Title:       report.TransferTitle(from.Name, to.Name),
		Description: a.Description,
		AccountID:   from.ID,
		ToAccountID: to.ID,
		Date:        snap.Now,
	})
	var insufficient *services.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		return Result{Message: fmt.Sprintf("💰 مانده حساب \"%s\" کافی نیست!\n💳 مانده فعلی: %s",
			insufficient.Account.Name, core.FormatToman(insufficient.Account.Balance))}, nil
	case errors.Is(err, core.ErrSameAccount):
		return Result{Message: MsgSameAccount}, nil
	case err != nil:
		if msg, ok := validationMessage(err); ok {
			return Result{Message: msg}, nil
		}
		return Result{}, err
	}
	from.Balance -= a.Amount
	to.Balance += a.Amount
	return Result{Success: true, Message: report.Transferred(a.Amount, from, to)}, nil
}

func (d *Dispatcher) deleteTransaction(ctx context.Context, snap Snapshot, a intent.DeleteTransaction) (Result, error) {
	t, err := d.ledger.DeleteTransaction(ctx, snap.User.ID, strings.TrimSpace(a.TransactionID))
	if errors.Is(err, core.ErrNotFound) {
		return Result{Message: MsgTransactionMissing}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: report.TransactionDeleted(t)}, nil
}

func (d *Dispatcher) createAccount(ctx context.Context, snap Snapshot, a intent.CreateAccount) (Result, error) {
	acc, err := d.ledger.CreateAccount(ctx, core.Account{
		UserID:  snap.User.ID,
		Name:    a.AccountName,
		Kind:    a.Kind,
		Balance: a.InitialBalance,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return Result{Message: fmt.Sprintf("❌ حسابی با نام \"%s\" از قبل وجود دارد.", strings.TrimSpace(a.AccountName))}, nil
	}
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			return Result{Message: msg}, nil
		}
		return Result{}, err
	}
	return Result{Success: true, Message: report.AccountCreated(acc)}, nil
}

func (d *Dispatcher) createGoal(ctx context.Context, snap Snapshot, a intent.CreateGoal) (Result, error) {
	g := core.Goal{
		UserID:       snap.User.ID,
		Title:        a.Title,
		TargetAmount: a.TargetAmount,
		Kind:         a.Kind,
		Deadline:     d.deadline(a.Deadline),
	}
	g, err := d.ledger.CreateGoal(ctx, g)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			return Result{Message: msg}, nil
		}
		return Result{}, err
	}
	return Result{Success: true, Message: report.GoalCreated(g)}, nil
}

func (d *Dispatcher) updateGoal(ctx context.Context, snap Snapshot, a intent.UpdateGoal) (Result, error) {
	patch := services.GoalPatch{
		Title:         a.Title,
		TargetAmount:  a.TargetAmount,
		CurrentAmount: a.CurrentAmount,
	}
	if a.Deadline != nil {
		patch.Deadline = d.deadline(*a.Deadline)
	}
	g, err := d.ledger.UpdateGoal(ctx, snap.User.ID, a.GoalID, patch)
	if errors.Is(err, core.ErrNotFound) {
		return Result{Message: MsgGoalNotFound}, nil
	}
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			return Result{Message: msg}, nil
		}
		return Result{}, err
	}
	return Result{Success: true, Message: report.GoalUpdated(g)}, nil
}

// deadline parses s, ignoring dates that cannot be read.
func (d *Dispatcher) deadline(s string) *time.Time {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := core.ParseDate(s, d.periods.Location())
	if err != nil {
		return nil
	}
	return &t
}

func (d *Dispatcher) listGoals(ctx context.Context, snap Snapshot) (Result, error) {
	goals, err := d.store.ListGoals(ctx, snap.User.ID, true, 0)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: report.Goals(goals)}, nil
}

func (d *Dispatcher) periodReport(ctx context.Context, snap Snapshot, kind period.Kind) (Result, error) {
	r, err := d.agg.Aggregate(ctx, snap.User.ID, d.periods.Resolve(kind, snap.Now), aggregate.Filter{})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: report.Period(kind, r, snap.Names())}, nil
}

func (d *Dispatcher) trend(ctx context.Context, snap Snapshot, kind period.Kind) (Result, error) {
	ws := d.periods.MonthSeries(report.TrendMonths(kind), snap.Now)
	series, err := d.agg.Series(ctx, snap.User.ID, ws, aggregate.Filter{})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: report.Trend(series)}, nil
}

func (d *Dispatcher) comparison(ctx context.Context, snap Snapshot, kind period.Kind) (Result, error) {
	ws := []period.Window{d.periods.Resolve(kind, snap.Now), d.periods.Previous(kind, snap.Now)}
	rs, err := d.agg.Series(ctx, snap.User.ID, ws, aggregate.Filter{})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: report.Comparison(kind, rs[0], rs[1])}, nil
}

func (d *Dispatcher) categoryStats(ctx context.Context, snap Snapshot, kind period.Kind) (Result, error) {
	r, err := d.agg.Aggregate(ctx, snap.User.ID, d.periods.Resolve(kind, snap.Now), aggregate.Filter{Type: core.Expense})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: report.CategoryStats(kind, r, snap.Names())}, nil
}

func (d *Dispatcher) advice(ctx context.Context, snap Snapshot) (Result, error) {
	ws := []period.Window{d.periods.Resolve(period.Month, snap.Now), d.periods.Previous(period.Month, snap.Now)}
	rs, err := d.agg.Series(ctx, snap.User.ID, ws, aggregate.Filter{})
	if err != nil {
		return Result{}, err
	}
	goals, err := d.store.ListGoals(ctx, snap.User.ID, true, 0)
	if err != nil {
		return Result{}, err
	}
	in := report.AdviceInput{
		Current:     rs[0],
		Previous:    rs[1],
		ActiveGoals: len(goals),
		Accounts:    len(snap.Accounts),
	}
	return Result{Success: true, Message: report.Advice(in, snap.Names())}, nil
}

// currentAndHistory aggregates the current month and the three months before it.
func (d *Dispatcher) currentAndHistory(ctx context.Context, snap Snapshot, f aggregate.Filter) (aggregate.Result, []aggregate.Result, error) {
	rs, err := d.agg.Series(ctx, snap.User.ID, d.periods.MonthSeries(4, snap.Now), f)
	if err != nil {
		return aggregate.Result{}, nil, err
	}
	return rs[3], rs[:3], nil
}

func (d *Dispatcher) budget(ctx context.Context, snap Snapshot) (Result, error) {
	cur, history, err := d.currentAndHistory(ctx, snap, aggregate.Filter{})
	if err != nil {
		return Result{}, err
	}
	in := report.BudgetInput{Income: cur.Income(), Spent: cur.Expense(), History: history}
	return Result{Success: true, Message: report.Budget(in)}, nil
}

// ForecastHistory is the number of trailing months a forecast averages.
const ForecastHistory = 6

func (d *Dispatcher) forecast(ctx context.Context, snap Snapshot, months int) (Result, error) {
	if months <= 0 {
		months = 3
	}
	history, err := d.agg.Series(ctx, snap.User.ID, d.periods.MonthSeries(ForecastHistory, snap.Now), aggregate.Filter{})
	if err != nil {
		return Result{}, err
	}
	var balance int64
	for _, a := range snap.Accounts {
		balance += a.Balance
	}
	in := report.ForecastInput{
		History: history,
		Balance: balance,
		Months:  d.periods.NextMonths(months, snap.Now),
	}
	return Result{Success: true, Message: report.Forecast(in)}, nil
}

func (d *Dispatcher) patterns(ctx context.Context, snap Snapshot) (Result, error) {
	ws := d.periods.MonthSeries(4, snap.Now)
	w := period.Window{Start: ws[0].Start, End: ws[3].End, Label: ws[0].Label + " تا " + ws[3].Label}
	r, err := d.agg.Aggregate(ctx, snap.User.ID, w, aggregate.Filter{Type: core.Expense})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: report.Patterns(r, snap.Names())}, nil
}

func (d *Dispatcher) optimization(ctx context.Context, snap Snapshot) (Result, error) {
	cur, history, err := d.currentAndHistory(ctx, snap, aggregate.Filter{Type: core.Expense})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: report.Optimization(cur, history, snap.Names())}, nil
}

func (d *Dispatcher) search(ctx context.Context, snap Snapshot, a intent.SearchTransactions) (Result, error) {
	q := core.TransactionQuery{UserID: snap.User.ID, Limit: SearchLimit, Newest: true}
	query := strings.TrimSpace(a.Query)
	empty := Result{Success: true, Message: report.Search(query, nil, snap.Names())}

	switch a.SearchType {
	case intent.SearchAmount:
		v, err := core.ParseAmount(query)
		if err != nil {
			return empty, nil
		}
		q.Amount = v
	case intent.SearchDate:
		day, err := core.ParseDate(query, d.periods.Location())
		if err != nil {
			return empty, nil
		}
		q.From, q.Before = day, day.AddDate(0, 0, 1)
	case intent.SearchCategory:
		c, ok := intent.FindCategory(snap.Categories, query)
		if !ok {
			return empty, nil
		}
		q.CategoryID = c.ID
	default:
		q.TitleContains = query
	}

	txs, err := d.store.ListTransactions(ctx, q)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: report.Search(query, txs, snap.Names())}, nil
}

func (d *Dispatcher) balance(snap Snapshot, a intent.AccountBalance) Result {
	accounts := intent.FilterAccounts(snap.Accounts, a.Account)
	if len(accounts) == 0 {
		return Result{Message: MsgNoAccounts}
	}
	return Result{Success: true, Message: report.Balances(accounts)}
}

// validationMessage explains input the ledger rejected.
func validationMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return MsgInvalidAmount, true
	case errors.Is(err, core.ErrEmptyTitle):
		return "❌ عنوان مشخص نیست.", true
	case errors.Is(err, core.ErrEmptyName):
		return "❌ نام حساب مشخص نیست.", true
	case errors.Is(err, core.ErrInvalidType), errors.Is(err, core.ErrInvalidKind), errors.Is(err, core.ErrInvalidRecurrence):
		return "❌ نوع وارد شده معتبر نیست.", true
	case errors.Is(err, core.ErrMissingAccount):
		return MsgNoAccount, true
	}
	return "", false
}
