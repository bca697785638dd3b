// Package intent turns a chat message into an Action, either through a
// language model or through deterministic rules.
package intent

import (
	"strings"

	"hesab/internal/core"
	"hesab/internal/period"
)

// Action is a closed union: only the types in this file implement it.
type Action interface {
	Name() string
	isAction()
}

type sealed struct{}

func (sealed) isAction() {}

// Action names understood by DecodeAction.
const (
	NameAddTransaction       = "add_transaction"
	NameRecurringTransaction = "recurring_transaction"
	NameTransferMoney        = "transfer_money"
	NameDeleteTransaction    = "delete_transaction"
	NameCreateAccount        = "create_account"
	NameCreateGoal           = "create_goal"
	NameUpdateGoal           = "update_goal"
	NameListGoals            = "list_goals"
	NameMonthlyReport        = "monthly_report"
	NameTrendAnalysis        = "trend_analysis"
	NamePeriodComparison     = "period_comparison"
	NameCategoryStats        = "category_stats"
	NameFinancialAdvice      = "financial_advice"
	NameBudget               = "budget_recommendation"
	NameForecast             = "financial_forecast"
	NameSpendingPatterns     = "spending_patterns"
	NameCostOptimization     = "cost_optimization"
	NameSearchTransactions   = "search_transactions"
	NameAccountBalance       = "account_balance"
)

var aliases = map[string]string{
	"report":   NameMonthlyReport,
	"balance":  NameAccountBalance,
	"budget":   NameBudget,
	"forecast": NameForecast,
	"patterns": NameSpendingPatterns,
	"optimize": NameCostOptimization,
	"goals":    NameListGoals,
	"transfer": NameTransferMoney,
}

// Canonical maps an action name or alias to its canonical name.
func Canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := aliases[name]; ok {
		return c
	}
	return name
}

type (
	// AddTransaction records an income or expense. Account and Category are the
	// names as the user said them; the dispatcher resolves them.
	AddTransaction struct {
		sealed
		Type        core.TransactionType
		Amount      int64
		Title       string
		Description string
		Category    string
		Account     string
		Date        string
	}

	RecurringTransaction struct {
		AddTransaction
		RecurringType core.RecurringType
	}

	TransferMoney struct {
		sealed
		Amount      int64
		From        string
		To          string
		Description string
	}

	DeleteTransaction struct {
		sealed
		TransactionID string
	}

	CreateAccount struct {
		sealed
		AccountName    string
		Kind           core.AccountKind
		InitialBalance int64
	}

	CreateGoal struct {
		sealed
		Title        string
		TargetAmount int64
		Deadline     string
		Kind         core.GoalKind
	}

	// UpdateGoal patches the fields that are set.
	UpdateGoal struct {
		sealed
		GoalID        string
		CurrentAmount *int64
		TargetAmount  *int64
		Title         *string
		Deadline      *string
	}

	ListGoals struct{ sealed }

	MonthlyReport struct {
		sealed
		Period period.Kind
	}

	TrendAnalysis struct {
		sealed
		Period period.Kind
	}

	PeriodComparison struct {
		sealed
		Period period.Kind
	}

	CategoryStats struct {
		sealed
		Period period.Kind
	}

	FinancialAdvice      struct{ sealed }
	BudgetRecommendation struct{ sealed }

	FinancialForecast struct {
		sealed
		Months int
	}

	SpendingPatterns struct{ sealed }
	CostOptimization struct{ sealed }

	SearchTransactions struct {
		sealed
		Query      string
		SearchType SearchType
	}

	AccountBalance struct {
		sealed
		Account string
	}
)

type SearchType string

const (
	SearchTitle    SearchType = "title"
	SearchAmount   SearchType = "amount"
	SearchDate     SearchType = "date"
	SearchCategory SearchType = "category"
)

func (AddTransaction) Name() string       { return NameAddTransaction }
func (RecurringTransaction) Name() string { return NameRecurringTransaction }
func (TransferMoney) Name() string        { return NameTransferMoney }
func (DeleteTransaction) Name() string    { return NameDeleteTransaction }
func (CreateAccount) Name() string        { return NameCreateAccount }
func (CreateGoal) Name() string           { return NameCreateGoal }
func (UpdateGoal) Name() string           { return NameUpdateGoal }
func (ListGoals) Name() string            { return NameListGoals }
func (MonthlyReport) Name() string        { return NameMonthlyReport }
func (TrendAnalysis) Name() string        { return NameTrendAnalysis }
func (PeriodComparison) Name() string     { return NamePeriodComparison }
func (CategoryStats) Name() string        { return NameCategoryStats }
func (FinancialAdvice) Name() string      { return NameFinancialAdvice }
func (BudgetRecommendation) Name() string { return NameBudget }
func (FinancialForecast) Name() string    { return NameForecast }
func (SpendingPatterns) Name() string     { return NameSpendingPatterns }
func (CostOptimization) Name() string     { return NameCostOptimization }
func (SearchTransactions) Name() string   { return NameSearchTransactions }
func (AccountBalance) Name() string       { return NameAccountBalance }

// Mutates reports whether a changes persisted state.
func Mutates(a Action) bool {
	switch a.(type) {
	case AddTransaction, RecurringTransaction, TransferMoney, DeleteTransaction,
		CreateAccount, CreateGoal, UpdateGoal:
		return true
	}
	return false
}
