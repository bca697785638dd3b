package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"hesab/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Store on a single SQLite file.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and applies
// pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY inside transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Path returns the database file path.
func (r *SQLiteRepository) Path() string { return r.path }

// Reset deletes every row of every table.
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"transactions", "goals", "accounts", "categories", "users"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Users

func (r *SQLiteRepository) UpsertUser(ctx context.Context, u core.User) (core.User, error) {
	if u.ExternalID == "" {
		return core.User{}, errors.New("upsert user: empty external id")
	}
	now := u.LastActivityAt
	if now.IsZero() {
		now = time.Now()
	}
	id := u.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, external_id, display_name, created_at, last_activity_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE users.display_name END,
			last_activity_at = excluded.last_activity_at`,
		id, u.ExternalID, u.DisplayName, toUnix(now), toUnix(now))
	if err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, u.ExternalID)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

const userColumns = `id, external_id, display_name, created_at, last_activity_at`

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var created, active int64
	if err := row.Scan(&u.ID, &u.ExternalID, &u.DisplayName, &created, &active); err != nil {
		return core.User{}, notFound("user", err)
	}
	u.CreatedAt, u.LastActivityAt = fromUnix(created), fromUnix(active)
	return u, nil
}

// Accounts

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, kind, balance, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, string(a.Kind), a.Balance, a.IsActive, toUnix(a.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create account %q: %w", a.Name, ErrDuplicate)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, notFound("account", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string, activeOnly bool) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY balance DESC, created_at ASC, rowid ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SetAccountActive(ctx context.Context, userID, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET is_active = ? WHERE id = ? AND user_id = ?`, active, id, userID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireOne(res, "account")
}

const accountColumns = `id, user_id, name, kind, balance, is_active, created_at`

func scanAccount(s scanner) (core.Account, error) {
	var a core.Account
	var kind string
	var created int64
	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &kind, &a.Balance, &a.IsActive, &created); err != nil {
		return core.Account{}, err
	}
	a.Kind = core.AccountKind(kind)
	a.CreatedAt = fromUnix(created)
	return a, nil
}

// Categories

func (r *SQLiteRepository) UpsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, type, is_default, usage_count, icon, color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, name) DO UPDATE SET
			type = excluded.type, is_default = excluded.is_default,
			icon = excluded.icon, color = excluded.color`,
		c.ID, c.UserID, c.Name, string(c.Type), c.IsDefault, c.UsageCount, c.Icon, c.Color)
	if err != nil {
		return core.Category{}, fmt.Errorf("upsert category: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND name = ?`, c.UserID, c.Name)
	out, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFound("category", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE user_id = '' OR user_id = ?
		ORDER BY user_id = '' DESC, rowid ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		return core.Category{}, notFound("category", err)
	}
	return c, nil
}

const categoryColumns = `id, user_id, name, type, is_default, usage_count, icon, color`

func scanCategory(s scanner) (core.Category, error) {
	var c core.Category
	var typ string
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.IsDefault, &c.UsageCount, &c.Icon, &c.Color); err != nil {
		return core.Category{}, err
	}
	c.Type = core.CategoryType(typ)
	return c, nil
}

// Transactions

func (r *SQLiteRepository) RecordTransaction(ctx context.Context, t core.Transaction) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		// Balances first so a missing account surfaces as ErrNotFound rather than an FK error.
		if err := applyDeltas(ctx, tx, t.UserID, t.Deltas()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, user_id, type, amount, title, description, category_id,
				account_id, to_account_id, date, is_recurring, recurring_type, parent_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, string(t.Type), t.Amount, t.Title, t.Description, nullable(t.CategoryID),
			t.AccountID, nullable(t.ToAccountID), toUnix(t.Date), t.IsRecurring,
			nullable(string(t.RecurringType)), nullable(t.ParentID))
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if t.CategoryID != "" {
			if _, err := tx.ExecContext(ctx, `UPDATE categories SET usage_count = usage_count + 1 WHERE id = ?`, t.CategoryID); err != nil {
				return fmt.Errorf("bump category usage: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	var deleted core.Transaction
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
		t, err := scanTransaction(row)
		if err != nil {
			return notFound("transaction", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if err := applyDeltas(ctx, tx, userID, core.Reverse(t.Deltas())); err != nil {
			return err
		}
		deleted = t
		return nil
	})
	return deleted, err
}

func applyDeltas(ctx context.Context, tx *sql.Tx, userID string, deltas []core.BalanceDelta) error {
	for _, d := range deltas {
		query := `UPDATE accounts SET balance = balance + ? WHERE id = ? AND user_id = ?`
		args := []any{d.Amount, d.AccountID, userID}
		if d.Funded {
			query += ` AND balance >= ?`
			args = append(args, -d.Amount)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("apply balance delta: %w", err)
		}
		if err := requireOne(res, "account"); err != nil {
			if d.Funded && errors.Is(err, core.ErrNotFound) {
				return unfunded(ctx, tx, userID, d)
			}
			return err
		}
	}
	return nil
}

// unfunded explains why a guarded debit matched no row.
func unfunded(ctx context.Context, tx *sql.Tx, userID string, d core.BalanceDelta) error {
	var bal int64
	err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ? AND user_id = ?`, d.AccountID, userID).Scan(&bal)
	if err != nil {
		return notFound("account", err)
	}
	return fmt.Errorf("account %s holds %d, debit needs %d: %w", d.AccountID, bal, -d.Amount, core.ErrInsufficientBalance)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound("transaction", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, q core.TransactionQuery) ([]core.Transaction, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		where = append(where, cond)
		args = append(args, arg)
	}
	if q.UserID != "" {
		add("user_id = ?", q.UserID)
	}
	if !q.From.IsZero() {
		add("date >= ?", toUnix(q.From))
	}
	if !q.Before.IsZero() {
		add("date < ?", toUnix(q.Before))
	}
	if q.Type != "" {
		add("type = ?", string(q.Type))
	}
	if q.CategoryID != "" {
		add("category_id = ?", q.CategoryID)
	}
	if q.AccountID != "" {
		where = append(where, "(account_id = ? OR to_account_id = ?)")
		args = append(args, q.AccountID, q.AccountID)
	}
	if q.TitleContains != "" {
		add("instr(lower(title), lower(?)) > 0", q.TitleContains)
	}
	if q.Amount > 0 {
		add("amount = ?", q.Amount)
	}
	if q.RecurringOnly {
		where = append(where, "is_recurring = 1")
	}
	if q.ParentID != "" {
		add("parent_id = ?", q.ParentID)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if q.Newest {
		query += ` ORDER BY date DESC, rowid DESC`
	} else {
		query += ` ORDER BY date ASC, rowid ASC`
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const transactionColumns = `id, user_id, type, amount, title, description, category_id, account_id,
	to_account_id, date, is_recurring, recurring_type, parent_id`

func scanTransaction(s scanner) (core.Transaction, error) {
	var t core.Transaction
	var typ string
	var category, toAccount, recurring, parent sql.NullString
	var date int64
	if err := s.Scan(&t.ID, &t.UserID, &typ, &t.Amount, &t.Title, &t.Description, &category,
		&t.AccountID, &toAccount, &date, &t.IsRecurring, &recurring, &parent); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.CategoryID = category.String
	t.ToAccountID = toAccount.String
	t.RecurringType = core.RecurringType(recurring.String)
	t.ParentID = parent.String
	t.Date = fromUnix(date)
	return t, nil
}

// Goals

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, title, target_amount, current_amount, deadline, kind, is_completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, g.TargetAmount, g.CurrentAmount, nullableTime(g.Deadline),
		string(g.Kind), g.IsCompleted, toUnix(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET title = ?, target_amount = ?, current_amount = ?, deadline = ?, kind = ?, is_completed = ?
		WHERE id = ? AND user_id = ?`,
		g.Title, g.TargetAmount, g.CurrentAmount, nullableTime(g.Deadline), string(g.Kind), g.IsCompleted,
		g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireOne(res, "goal")
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id string) (core.Goal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Goal{}, notFound("goal", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string, activeOnly bool, limit int) ([]core.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ?`
	args := []any{userID}
	if activeOnly {
		query += ` AND is_completed = 0`
	}
	query += ` ORDER BY created_at ASC, rowid ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

const goalColumns = `id, user_id, title, target_amount, current_amount, deadline, kind, is_completed, created_at`

func scanGoal(s scanner) (core.Goal, error) {
	var g core.Goal
	var kind string
	var deadline sql.NullInt64
	var created int64
	if err := s.Scan(&g.ID, &g.UserID, &g.Title, &g.TargetAmount, &g.CurrentAmount, &deadline,
		&kind, &g.IsCompleted, &created); err != nil {
		return core.Goal{}, err
	}
	g.Kind = core.GoalKind(kind)
	g.CreatedAt = fromUnix(created)
	if deadline.Valid {
		d := fromUnix(deadline.Int64)
		g.Deadline = &d
	}
	return g, nil
}

// helpers

type scanner interface {
	Scan(dest ...any) error
}

// Instants are stored as Unix nanoseconds so range filters compare numerically.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toUnix(*t), Valid: true}
}

func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("read %s: %w", what, err)
}

func requireOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
