package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/observe"
)

// SQLite implements Repository on an embedded sqlite database. Writes are
// serialized by the engine; observers re-query through the change
// broadcaster after every committed mutation.
type SQLite struct {
	db      *sql.DB
	changes *observe.Broadcaster
}

var _ Repository = (*SQLite)(nil)

func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{
		db:      db,
		changes: observe.NewBroadcaster(),
	}, nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const transactionColumns = `t.id, t.type, t.amount, t.currency, t.date, t.notes, t.created_at, t.updated_at,
	c.id, c.name, c.type, c.icon_url, c.color, c.is_deleted`

const selectTransactions = `SELECT ` + transactionColumns + `
	FROM transactions t JOIN categories c ON c.id = t.category_id`

// ObserveTransactions emits the matching set, joined with categories
// (soft-deleted ones included), and re-emits after every mutation.
func (s *SQLite) ObserveTransactions(ctx context.Context, f Filter) *observe.Stream[TransactionsUpdate] {
	return observeQuery(ctx, s.changes, func(ctx context.Context) TransactionsUpdate {
		txs, err := s.queryTransactions(ctx, f)
		if err != nil {
			return TransactionsUpdate{Err: fmt.Errorf("query transactions: %w", err)}
		}
		return TransactionsUpdate{Transactions: txs}
	})
}

func (s *SQLite) queryTransactions(ctx context.Context, f Filter) ([]core.Transaction, error) {
	query := selectTransactions
	var args []any

	switch {
	case f.Range != nil:
		query += " WHERE t.date BETWEEN ? AND ?"
		args = append(args, f.Range.Start.Unix(), f.Range.End.Unix())
	case f.Type != "":
		query += " WHERE t.type = ?"
		args = append(args, string(f.Type))
	case f.CategoryID != "":
		query += " WHERE t.category_id = ?"
		args = append(args, f.CategoryID)
	}
	query += " ORDER BY t.date DESC, t.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *SQLite) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, selectTransactions+" WHERE t.id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *SQLite) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	category, err := s.writableCategory(ctx, t.Category.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Category = category

	now := time.Now().UTC().Truncate(time.Second)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, type, amount, currency, category_id, date, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Type), t.Amount.String(), t.Currency, t.Category.ID,
		t.Date.Unix(), t.Notes, t.CreatedAt.Unix(), t.UpdatedAt.Unix())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID, "type", t.Type, "amount", t.Amount.String(), "category", t.Category.ID)

	s.changes.Notify()
	return t, nil
}

func (s *SQLite) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	category, err := s.writableCategory(ctx, t.Category.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Category = category
	t.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions
		 SET type = ?, amount = ?, currency = ?, category_id = ?, date = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		string(t.Type), t.Amount.String(), t.Currency, t.Category.ID,
		t.Date.Unix(), t.Notes, t.UpdatedAt.Unix(), t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", t.ID, core.ErrNotFound)
	}

	s.changes.Notify()
	return t, nil
}

func (s *SQLite) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	s.changes.Notify()
	return nil
}

// ObserveTotal emits the sum of amounts for transactions of typ inside the
// inclusive range. Amounts are stored as decimal strings and summed here,
// not in SQL, to keep exact precision.
func (s *SQLite) ObserveTotal(ctx context.Context, typ core.TransactionType, r core.Range) *observe.Stream[TotalUpdate] {
	return observeQuery(ctx, s.changes, func(ctx context.Context) TotalUpdate {
		total, err := s.queryTotal(ctx, typ, r)
		if err != nil {
			return TotalUpdate{Err: fmt.Errorf("query total: %w", err)}
		}
		return TotalUpdate{Total: total}
	})
}

func (s *SQLite) queryTotal(ctx context.Context, typ core.TransactionType, r core.Range) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT amount FROM transactions WHERE type = ? AND date BETWEEN ? AND ?",
		string(typ), r.Start.Unix(), r.End.Unix())
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

// ObserveCategories emits non-deleted categories ordered by name.
func (s *SQLite) ObserveCategories(ctx context.Context) *observe.Stream[CategoriesUpdate] {
	return observeQuery(ctx, s.changes, func(ctx context.Context) CategoriesUpdate {
		cats, err := s.queryCategories(ctx)
		if err != nil {
			return CategoriesUpdate{Err: fmt.Errorf("query categories: %w", err)}
		}
		return CategoriesUpdate{Categories: cats}
	})
}

func (s *SQLite) queryCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, type, icon_url, color, is_deleted FROM categories WHERE is_deleted = 0 ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// GetCategory resolves a category by id, soft-deleted ones included, so
// historical transactions always resolve.
func (s *SQLite) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, type, icon_url, color, is_deleted FROM categories WHERE id = ?", id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q: %w", id, core.ErrCategoryNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *SQLite) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	return s.upsertCategory(ctx, c)
}

func (s *SQLite) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	return s.upsertCategory(ctx, c)
}

func (s *SQLite) upsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, type, icon_url, color, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     name = excluded.name, type = excluded.type,
		     icon_url = excluded.icon_url, color = excluded.color,
		     is_deleted = excluded.is_deleted`,
		c.ID, c.Name, string(c.Type), c.IconURL, c.Color, boolToInt(c.Deleted))
	if err != nil {
		return core.Category{}, fmt.Errorf("upsert category: %w", err)
	}

	s.changes.Notify()
	return c, nil
}

// DeleteCategory soft-deletes. Seeded defaults are protected, and a
// category still referenced by any transaction stays.
func (s *SQLite) DeleteCategory(ctx context.Context, id string) error {
	if core.IsDefaultCategory(id) {
		return fmt.Errorf("category %q: %w", id, core.ErrDefaultCategoryProtected)
	}

	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}

	var refs int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE category_id = ?", id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count category references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("category %q has %d transactions: %w", id, refs, core.ErrCategoryInUse)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE categories SET is_deleted = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("soft delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category soft-deleted", "id", id)
	s.changes.Notify()
	return nil
}

// writableCategory enforces the referential guard for transaction writes.
func (s *SQLite) writableCategory(ctx context.Context, id string) (core.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if category.Deleted {
		return core.Category{}, fmt.Errorf("category %q: %w", id, core.ErrCategoryDeleted)
	}
	return category, nil
}

// observeQuery runs query once up front and again after every change
// notification, until the consumer cancels or ctx expires.
func observeQuery[T any](ctx context.Context, changes *observe.Broadcaster, query func(context.Context) T) *observe.Stream[T] {
	stream := observe.NewStream[T]()
	notify, unsubscribe := changes.Subscribe()

	go func() {
		defer stream.Close()
		defer unsubscribe()

		if !stream.Send(ctx, query(ctx)) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-stream.Done():
				return
			case <-notify:
				if !stream.Send(ctx, query(ctx)) {
					return
				}
			}
		}
	}()

	return stream
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx                   core.Transaction
		txType, catType, raw string
		date, created        int64
		updated              int64
		deleted              int
	)
	err := row.Scan(
		&tx.ID, &txType, &raw, &tx.Currency, &date, &tx.Notes, &created, &updated,
		&tx.Category.ID, &tx.Category.Name, &catType, &tx.Category.IconURL,
		&tx.Category.Color, &deleted)
	if err != nil {
		return core.Transaction{}, err
	}

	tx.Amount, err = decimal.NewFromString(raw)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", raw, err)
	}
	tx.Type = core.TransactionType(txType)
	tx.Category.Type = core.TransactionType(catType)
	tx.Category.Deleted = deleted != 0
	tx.Date = time.Unix(date, 0).UTC()
	tx.CreatedAt = time.Unix(created, 0).UTC()
	tx.UpdatedAt = time.Unix(updated, 0).UTC()
	return tx, nil
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c       core.Category
		typ     string
		deleted int
	)
	if err := row.Scan(&c.ID, &c.Name, &typ, &c.IconURL, &c.Color, &deleted); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TransactionType(typ)
	c.Deleted = deleted != 0
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
