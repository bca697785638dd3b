// Package assistant answers chat messages: it assembles the user's financial
// context, resolves the message into an action and dispatches it against the
// ledger.
package assistant

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"hesab/internal/aggregate"
	"hesab/internal/core"
	"hesab/internal/intent"
	"hesab/internal/period"
	"hesab/internal/report"
	"hesab/internal/storage"
)

// DefaultName is shown in the prompt when the user has no display name.
const DefaultName = "کاربر"

// MaxPromptGoals caps the active goals summarized in the prompt.
const MaxPromptGoals = 3

//go:embed prompt.tmpl
var promptText string

var promptTemplate = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"amount":  core.FormatAmount,
	"jalaali": core.FormatJalaali,
	"categoryType": func(t core.CategoryType) string {
		if t == core.CategoryIncome {
			return "درآمد"
		}
		return "هزینه"
	},
}).Parse(promptText))

var promptActions = strings.Join([]string{
	intent.NameAddTransaction, intent.NameMonthlyReport, intent.NameAccountBalance,
	intent.NameSearchTransactions, intent.NameCreateAccount, intent.NameTransferMoney,
	intent.NameCreateGoal, intent.NameUpdateGoal, intent.NameListGoals, intent.NameTrendAnalysis,
	intent.NamePeriodComparison, intent.NameFinancialAdvice, intent.NameCategoryStats,
	intent.NameRecurringTransaction, intent.NameDeleteTransaction, intent.NameBudget,
	intent.NameForecast, intent.NameSpendingPatterns, intent.NameCostOptimization,
}, "|")

// Snapshot is the financial context of one user at one instant.
type Snapshot struct {
	User       core.User
	Now        time.Time
	Accounts   []core.Account // active, balance descending
	Categories []core.Category
	Goals      []core.Goal // active, at most MaxPromptGoals

	MonthExpense     int64
	LastMonthExpense int64
}

// ExpenseChange is the percentage change of this month's expense over last month's.
func (s Snapshot) ExpenseChange() string {
	return report.Change(s.MonthExpense, s.LastMonthExpense).StringFixed(1)
}

// Names indexes the snapshot's accounts and categories for report rendering.
func (s Snapshot) Names() report.Names {
	return report.NewNames(s.Accounts, s.Categories)
}

// Prompt renders the system instruction describing the snapshot.
func (s Snapshot) Prompt() (string, error) {
	name := strings.TrimSpace(s.User.DisplayName)
	if name == "" {
		name = DefaultName
	}
	data := struct {
		Snapshot
		Name    string
		Change  string
		Actions string
	}{s, name, s.ExpenseChange(), promptActions}

	var b strings.Builder
	if err := promptTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// ContextBuilder loads snapshots. The reads are independent and run concurrently.
type ContextBuilder struct {
	store   storage.Store
	agg     *aggregate.Engine
	periods *period.Resolver
}

func NewContextBuilder(store storage.Store, periods *period.Resolver) *ContextBuilder {
	return &ContextBuilder{store: store, agg: aggregate.New(store), periods: periods}
}

// Build loads the snapshot of user.
func (b *ContextBuilder) Build(ctx context.Context, user core.User) (Snapshot, error) {
	now := b.periods.Now()
	snap := Snapshot{User: user, Now: now}
	expense := aggregate.Filter{Type: core.Expense}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := b.store.ListAccounts(gctx, user.ID, true)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		snap.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		categories, err := b.store.ListCategories(gctx, user.ID)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		snap.Categories = categories
		return nil
	})
	g.Go(func() error {
		goals, err := b.store.ListGoals(gctx, user.ID, true, MaxPromptGoals)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		snap.Goals = goals
		return nil
	})
	g.Go(func() error {
		r, err := b.agg.Aggregate(gctx, user.ID, b.periods.Resolve(period.Month, now), expense)
		if err != nil {
			return err
		}
		snap.MonthExpense = r.Expense()
		return nil
	})
	g.Go(func() error {
		r, err := b.agg.Aggregate(gctx, user.ID, b.periods.Previous(period.Month, now), expense)
		if err != nil {
			return err
		}
		snap.LastMonthExpense = r.Expense()
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("build context: %w", err)
	}
	return snap, nil
}
