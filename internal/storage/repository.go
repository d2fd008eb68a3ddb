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

	"contas/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Category is a row of the categories table. Transactions reference
// categories by name; the table exists so the create path can validate
// membership before writing.
type Category struct {
	ID   int64
	Name string
	Kind string // fixed, adverse or revenue
}

// SQLiteRepository persists the transaction ledger in a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
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

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FindCategory looks a category up by its exact name.
func (r *SQLiteRepository) FindCategory(ctx context.Context, name string) (Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, kind FROM categories WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &c.Kind)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, ErrCategoryNotFound
	}
	if err != nil {
		return Category{}, fmt.Errorf("find category %q: %w", name, err)
	}
	return c, nil
}

const transactionColumns = `id, name, date, description, category, method, installment, paid, amount_cents, type`

// CreateTransaction inserts a new row and returns it with the assigned id.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (name, date, description, category, method, installment, paid, amount_cents, type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Name, tx.Date.Time, tx.Description, tx.Category, tx.Method,
		tx.Installment, tx.Paid, tx.Amount.Cents, string(tx.Type),
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	tx.ID = id

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"description", tx.Description,
		"amount_cents", tx.Amount.Cents,
		"type", string(tx.Type),
		"date", tx.Date.ISO())

	return tx, nil
}

// ListTransactions returns all rows ordered by date ascending, optionally
// restricted to one transaction type (empty typ means no restriction).
func (r *SQLiteRepository) ListTransactions(ctx context.Context, typ core.Type) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY date ASC, id ASC`
	args := []any{}
	if typ != "" {
		query = `SELECT ` + transactionColumns + ` FROM transactions WHERE type = ? ORDER BY date ASC, id ASC`
		args = append(args, string(typ))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetTransaction fetches a single row by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// DeleteTransaction removes a row. Deleting a missing id is an error, so
// callers can surface "not found" rather than silently succeeding.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// SetPaid writes the paid flag and returns the updated row.
func (r *SQLiteRepository) SetPaid(ctx context.Context, id int64, paid bool) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET paid = ? WHERE id = ?`, paid, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("set paid on transaction %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("set paid on transaction %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return core.Transaction{}, ErrTransactionNotFound
	}

	slog.InfoContext(ctx, "Transaction paid status updated", "id", id, "paid", paid)
	return r.GetTransaction(ctx, id)
}

// ListUnsynced returns up to limit rows not yet mirrored to the backup sheet.
func (r *SQLiteRepository) ListUnsynced(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE synced = 0 ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// MarkSynced flags a row as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE transactions SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction %d synced: %w", id, err)
	}
	slog.DebugContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx    core.Transaction
		date  time.Time
		typ   string
		cents int64
	)
	err := row.Scan(&tx.ID, &tx.Name, &date, &tx.Description, &tx.Category,
		&tx.Method, &tx.Installment, &tx.Paid, &cents, &typ)
	if err != nil {
		return core.Transaction{}, err
	}
	// Stored as a full timestamp, exposed as a calendar date.
	tx.Date = core.DateOf(date)
	tx.Amount = core.Money{Cents: cents}
	tx.Type = core.Type(typ)
	return tx, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
