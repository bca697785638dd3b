// Package memory is a process-local Store used by tests and the memory backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hesab/internal/core"
	"hesab/internal/storage"
)

type Store struct {
	mu           sync.Mutex
	users        map[string]core.User // by external id
	accounts     []core.Account
	categories   []core.Category
	transactions []core.Transaction
	goals        []core.Goal
}

var (
	_ storage.Store    = (*Store)(nil)
	_ storage.Resetter = (*Store)(nil)
)

func New() *Store {
	return &Store{users: map[string]core.User{}}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = map[string]core.User{}
	s.accounts, s.categories, s.transactions, s.goals = nil, nil, nil, nil
	return nil
}

func (s *Store) UpsertUser(_ context.Context, u core.User) (core.User, error) {
	if u.ExternalID == "" {
		return core.User{}, fmt.Errorf("upsert user: empty external id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := u.LastActivityAt
	if now.IsZero() {
		now = time.Now()
	}
	cur, ok := s.users[u.ExternalID]
	if !ok {
		cur = core.User{ID: u.ID, ExternalID: u.ExternalID, CreatedAt: now}
		if cur.ID == "" {
			cur.ID = uuid.NewString()
		}
	}
	if u.DisplayName != "" {
		cur.DisplayName = u.DisplayName
	}
	cur.LastActivityAt = now
	s.users[u.ExternalID] = cur
	return cur, nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user: %w", core.ErrNotFound)
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.accounts {
		if cur.UserID == a.UserID && strings.EqualFold(cur.Name, a.Name) {
			return fmt.Errorf("create account %q: %w", a.Name, storage.ErrDuplicate)
		}
	}
	s.accounts = append(s.accounts, a)
	return nil
}

func (s *Store) GetAccount(_ context.Context, userID, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.accountIndex(userID, id); i >= 0 {
		return s.accounts[i], nil
	}
	return core.Account{}, fmt.Errorf("account: %w", core.ErrNotFound)
}

func (s *Store) ListAccounts(_ context.Context, userID string, activeOnly bool) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID != userID || (activeOnly && !a.IsActive) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })
	return out, nil
}

func (s *Store) SetAccountActive(_ context.Context, userID, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.accountIndex(userID, id)
	if i < 0 {
		return fmt.Errorf("account: %w", core.ErrNotFound)
	}
	s.accounts[i].IsActive = active
	return nil
}

func (s *Store) accountIndex(userID, id string) int {
	for i, a := range s.accounts {
		if a.ID == id && a.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Store) UpsertCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.categories {
		if cur.UserID == c.UserID && cur.Name == c.Name {
			cur.Type, cur.IsDefault, cur.Icon, cur.Color = c.Type, c.IsDefault, c.Icon, c.Color
			s.categories[i] = cur
			return cur, nil
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var global, own []core.Category
	for _, c := range s.categories {
		switch c.UserID {
		case "":
			global = append(global, c)
		case userID:
			own = append(own, c)
		}
	}
	return append(global, own...), nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("category: %w", core.ErrNotFound)
}

func (s *Store) RecordTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.apply(t.UserID, t.Deltas()); err != nil {
		return err
	}
	if t.CategoryID != "" {
		for i := range s.categories {
			if s.categories[i].ID == t.CategoryID {
				s.categories[i].UsageCount++
			}
		}
	}
	s.transactions = append(s.transactions, t)
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.transactions {
		if t.ID != id || t.UserID != userID {
			continue
		}
		if err := s.apply(userID, core.Reverse(t.Deltas())); err != nil {
			return core.Transaction{}, err
		}
		s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
		return t, nil
	}
	return core.Transaction{}, fmt.Errorf("transaction: %w", core.ErrNotFound)
}

// apply checks every referenced account before touching any balance.
func (s *Store) apply(userID string, deltas []core.BalanceDelta) error {
	idx := make([]int, len(deltas))
	for i, d := range deltas {
		idx[i] = s.accountIndex(userID, d.AccountID)
		if idx[i] < 0 {
			return fmt.Errorf("account: %w", core.ErrNotFound)
		}
		if bal := s.accounts[idx[i]].Balance; d.Funded && bal+d.Amount < 0 {
			return fmt.Errorf("account %s holds %d, debit needs %d: %w", d.AccountID, bal, -d.Amount, core.ErrInsufficientBalance)
		}
	}
	for i, d := range deltas {
		s.accounts[idx[i]].Balance += d.Amount
	}
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction: %w", core.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, q core.TransactionQuery) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type indexed struct {
		t   core.Transaction
		seq int
	}
	var hits []indexed
	for i, t := range s.transactions {
		if matches(q, t) {
			hits = append(hits, indexed{t, i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if !a.t.Date.Equal(b.t.Date) {
			if q.Newest {
				return a.t.Date.After(b.t.Date)
			}
			return a.t.Date.Before(b.t.Date)
		}
		if q.Newest {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	out := make([]core.Transaction, len(hits))
	for i, h := range hits {
		out[i] = h.t
	}
	return out, nil
}

func matches(q core.TransactionQuery, t core.Transaction) bool {
	switch {
	case q.UserID != "" && t.UserID != q.UserID:
		return false
	case !q.From.IsZero() && t.Date.Before(q.From):
		return false
	case !q.Before.IsZero() && !t.Date.Before(q.Before):
		return false
	case q.Type != "" && t.Type != q.Type:
		return false
	case q.CategoryID != "" && t.CategoryID != q.CategoryID:
		return false
	case q.AccountID != "" && t.AccountID != q.AccountID && t.ToAccountID != q.AccountID:
		return false
	case q.TitleContains != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(q.TitleContains)):
		return false
	case q.Amount > 0 && t.Amount != q.Amount:
		return false
	case q.RecurringOnly && !t.IsRecurring:
		return false
	case q.ParentID != "" && t.ParentID != q.ParentID:
		return false
	}
	return true
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, g)
	return nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.goals {
		if cur.ID == g.ID && cur.UserID == g.UserID {
			g.CreatedAt = cur.CreatedAt
			s.goals[i] = g
			return nil
		}
	}
	return fmt.Errorf("goal: %w", core.ErrNotFound)
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.goals {
		if g.ID == id && g.UserID == userID {
			return g, nil
		}
	}
	return core.Goal{}, fmt.Errorf("goal: %w", core.ErrNotFound)
}

func (s *Store) ListGoals(_ context.Context, userID string, activeOnly bool, limit int) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.UserID != userID || (activeOnly && g.IsCompleted) {
			continue
		}
		out = append(out, g)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
