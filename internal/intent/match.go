package intent

import (
	"strings"

	"hesab/internal/core"
)

// nameMatches is a case-insensitive substring test in both directions.
func nameMatches(real, requested string) bool {
	r := strings.ToLower(strings.TrimSpace(real))
	q := strings.ToLower(strings.TrimSpace(requested))
	if r == "" || q == "" {
		return false
	}
	return strings.Contains(r, q) || strings.Contains(q, r)
}

// FindAccount returns the first account whose name matches name.
func FindAccount(accounts []core.Account, name string) (core.Account, bool) {
	for _, a := range accounts {
		if nameMatches(a.Name, name) {
			return a, true
		}
	}
	return core.Account{}, false
}

// MatchAccount resolves name against accounts, which must be sorted by balance
// descending. Without a match the first (highest-balance) account is used.
// It reports false only when there are no accounts.
func MatchAccount(accounts []core.Account, name string) (core.Account, bool) {
	if a, ok := FindAccount(accounts, name); ok {
		return a, true
	}
	if len(accounts) == 0 {
		return core.Account{}, false
	}
	return accounts[0], true
}

// FindCategory returns the first category whose name matches name.
func FindCategory(categories []core.Category, name string) (core.Category, bool) {
	for _, c := range categories {
		if nameMatches(c.Name, name) {
			return c, true
		}
	}
	return core.Category{}, false
}

// MatchCategory resolves name, falling back to the category named core.OtherCategory.
func MatchCategory(categories []core.Category, name string) (core.Category, bool) {
	if c, ok := FindCategory(categories, name); ok {
		return c, true
	}
	for _, c := range categories {
		if c.Name == core.OtherCategory {
			return c, true
		}
	}
	return core.Category{}, false
}

// FilterAccounts returns every account whose name matches name, in order.
// An empty name selects all accounts.
func FilterAccounts(accounts []core.Account, name string) []core.Account {
	if strings.TrimSpace(name) == "" {
		return accounts
	}
	var out []core.Account
	for _, a := range accounts {
		if nameMatches(a.Name, name) {
			out = append(out, a)
		}
	}
	return out
}
