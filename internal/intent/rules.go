package intent

import (
	"context"
	"regexp"
	"strings"

	"hesab/internal/core"
	"hesab/internal/period"
)

// RuleResolver recognises a fixed command vocabulary without a model:
// the pipe format "type | amount | title | description | category" and
// keyword phrases in Persian or English.
type RuleResolver struct{}

func NewRuleResolver() RuleResolver { return RuleResolver{} }

const (
	ruleGreeting = "سلام! 😊 من دستیار مالی تو هستم. می‌تونی بگی «50 هزار هزینه ناهار» یا «گزارش این ماه»."
	ruleHelp     = "🤔 متوجه نشدم. چند نمونه:\n" +
		"• 215 هزار هزینه غذا\n" +
		"• 5 میلیون درآمد حقوق\n" +
		"• هزینه | 50000 | ناهار | رستوران | غذا\n" +
		"• گزارش این ماه\n" +
		"• مانده حساب‌ها"
)

func (RuleResolver) Resolve(_ context.Context, req Request) (Resolution, error) {
	msg := strings.TrimSpace(req.Message)
	if IsSmallTalk(msg) {
		return Resolution{Reply: ruleGreeting, Raw: ruleGreeting}, nil
	}
	if a, ok := MatchRules(msg); ok {
		return Resolution{Action: a, Raw: msg}, nil
	}
	return Resolution{Reply: ruleHelp, Raw: ruleHelp}, nil
}

type keywordRule struct {
	words []string
	build func(msg string) Action
}

// Order matters: queries come before transactions so "پیش‌بینی 3 ماه" is not an expense of 3.
var keywordRules = []keywordRule{
	{[]string{"پیش بینی", "forecast"}, func(m string) Action {
		months := 3
		if n, err := core.ParseAmount(m); err == nil && n <= 12 {
			months = int(n)
		}
		return FinancialForecast{Months: months}
	}},
	{[]string{"روند", "trend"}, func(m string) Action { return TrendAnalysis{Period: period.ParseKind(periodWord(m), period.Month)} }},
	{[]string{"مقایسه", "compare", "comparison"}, func(m string) Action {
		return PeriodComparison{Period: period.ParseKind(periodWord(m), period.Month)}
	}},
	{[]string{"بودجه", "budget"}, func(string) Action { return BudgetRecommendation{} }},
	{[]string{"الگو", "pattern"}, func(string) Action { return SpendingPatterns{} }},
	{[]string{"بهینه", "optimiz"}, func(string) Action { return CostOptimization{} }},
	{[]string{"نصیحت", "توصیه", "advice"}, func(string) Action { return FinancialAdvice{} }},
	{[]string{"اهداف", "هدف ها", "هدفام", "goals"}, func(string) Action { return ListGoals{} }},
	{[]string{"آمار دسته", "دسته بندی", "category stats", "categories"}, func(m string) Action {
		return CategoryStats{Period: period.ParseKind(periodWord(m), period.Month)}
	}},
	{[]string{"گزارش", "report"}, func(m string) Action { return MonthlyReport{Period: period.ParseKind(periodWord(m), period.Month)} }},
	{[]string{"مانده", "موجودی", "balance"}, func(m string) Action { return AccountBalance{Account: afterKeyword(m, "حساب", "account")} }},
	{[]string{"جستجو", "search", "find"}, func(m string) Action {
		return SearchTransactions{Query: afterKeyword(m, "جستجو", "search", "find"), SearchType: SearchTitle}
	}},
}

var (
	incomeWords  = []string{"درآمد", "درامد", "حقوق", "واریز", "income", "earned", "salary"}
	expenseWords = []string{"هزینه", "خرج", "خرید", "پرداخت", "expense", "spent", "paid"}
	numberPhrase = regexp.MustCompile(`(?i)[\d۰-۹]+(?:[.,٫٬][\d۰-۹]+)*\s*(?:هزارتومن|هزار|میلیون|ملیون|میلیارد|thousand|million|billion|k\b|m\b)?`)
	noiseWords   = regexp.MustCompile(`(?i)(تومان|تومن|ریال|کردم|دادم|گرفتم|برای|بابت|\badd\b|\bfor\b|\bon\b|\btoman\b)`)
)

// MatchRules returns the Action for msg when a rule recognises it.
func MatchRules(msg string) (Action, bool) {
	if strings.Contains(msg, "|") {
		if a, ok := parsePipe(msg); ok {
			return a, true
		}
	}
	norm := normalize(msg)
	for _, r := range keywordRules {
		if containsAny(norm, r.words) {
			return r.build(norm), true
		}
	}
	return parseTransaction(msg)
}

// parsePipe reads "type | amount | title | description | category".
func parsePipe(msg string) (Action, bool) {
	parts := strings.Split(msg, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 {
		return nil, false
	}
	typ, ok := transactionType(parts[0])
	if !ok {
		return nil, false
	}
	amt, err := core.ParseAmount(parts[1])
	if err != nil || parts[2] == "" {
		return nil, false
	}
	a := AddTransaction{Type: typ, Amount: amt, Title: parts[2], Category: parts[2]}
	if len(parts) > 3 {
		a.Description = parts[3]
	}
	if len(parts) > 4 && parts[4] != "" {
		a.Category = parts[4]
	}
	return a, true
}

func transactionType(word string) (core.TransactionType, bool) {
	w := strings.ToLower(strings.TrimSpace(word))
	switch {
	case w == "+" || containsAny(w, incomeWords):
		return core.Income, true
	case w == "-" || containsAny(w, expenseWords):
		return core.Expense, true
	}
	return "", false
}

// parseTransaction handles "215 هزار هزینه غذا" and "add 50000 expense lunch".
func parseTransaction(msg string) (Action, bool) {
	norm := normalize(msg)
	var typ core.TransactionType
	switch {
	case containsAny(norm, incomeWords):
		typ = core.Income
	case containsAny(norm, expenseWords):
		typ = core.Expense
	default:
		return nil, false
	}
	amt, err := core.ParseAmount(msg)
	if err != nil {
		return nil, false
	}

	rest := numberPhrase.ReplaceAllString(norm, " ")
	for _, w := range append(append([]string{}, incomeWords...), expenseWords...) {
		rest = strings.ReplaceAll(rest, w, " ")
	}
	rest = noiseWords.ReplaceAllString(rest, " ")
	title := strings.Join(strings.Fields(rest), " ")
	category := title
	if title == "" {
		title = "تراکنش"
		if typ == core.Income {
			category = "حقوق"
		}
	}
	return AddTransaction{Type: typ, Amount: amt, Title: title, Category: category}, true
}

var periodWords = []struct {
	words []string
	kind  period.Kind
}{
	{[]string{"هفته", "week"}, period.Week},
	{[]string{"سه ماه", "فصل", "quarter"}, period.Quarter},
	{[]string{"سال", "year"}, period.Year},
	{[]string{"امروز", "today"}, period.Day},
	{[]string{"ماه", "month"}, period.Month},
}

func periodWord(msg string) string {
	for _, p := range periodWords {
		if containsAny(msg, p.words) {
			return string(p.kind)
		}
	}
	return ""
}

// afterKeyword returns the text following the first keyword found, or "".
func afterKeyword(msg string, keywords ...string) string {
	for _, k := range keywords {
		i := strings.Index(msg, k)
		if i < 0 {
			continue
		}
		words := strings.Fields(strings.Trim(msg[i+len(k):], " :؛؟?!."))
		for len(words) > 0 && isFiller(words[0]) {
			words = words[1:]
		}
		return strings.Join(words, " ")
	}
	return ""
}

func isFiller(w string) bool {
	switch w {
	case "ها", "های", "هام", "رو", "را", "of", "for", "my":
		return true
	}
	return false
}

// normalize lowercases and turns zero-width non-joiners into spaces.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "‌", " ")
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
