// Package sqlite persists the menu catalog and the transaction ledger in a
// local SQLite database. It is the only backend with an export queue: each
// committed invoice carries an exported_at marker that the export worker
// flips once the document has been written out.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"conto/internal/core"
)

// Store implements the store.Catalog and store.Ledger ports on SQLite.
type Store struct {
	db *sql.DB
}

// Open creates the parent directory, runs migrations and returns a ready
// store.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: create database directory: %v", core.ErrStorage, err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStorage, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", core.ErrStorage, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enable foreign keys: %v", core.ErrStorage, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadMenu implements store.Catalog. Items come back in their stored
// position order.
func (s *Store) LoadMenu(ctx context.Context) ([]core.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, price_cents, image_ref FROM menu_items ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: query menu: %v", core.ErrStorage, err)
	}
	defer rows.Close()

	var items []core.MenuItem
	for rows.Next() {
		var it core.MenuItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Price.Cents, &it.ImageRef); err != nil {
			return nil, fmt.Errorf("%w: scan menu item: %v", core.ErrStorage, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate menu: %v", core.ErrStorage, err)
	}
	return items, nil
}

// SaveMenu implements store.Catalog. The whole catalog is replaced in one
// transaction so position always matches the slice order.
func (s *Store) SaveMenu(ctx context.Context, items []core.MenuItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", core.ErrStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM menu_items"); err != nil {
		return fmt.Errorf("%w: clear menu: %v", core.ErrStorage, err)
	}
	for i, it := range items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO menu_items (id, position, name, price_cents, image_ref) VALUES (?, ?, ?, ?, ?)",
			it.ID, i, it.Name, it.Price.Cents, it.ImageRef)
		if err != nil {
			return fmt.Errorf("%w: insert menu item: %v", core.ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit menu: %v", core.ErrStorage, err)
	}
	return nil
}

// AppendTransaction implements store.Ledger. Number assignment, the counter
// advance and the log insert run in one database transaction, so a failure
// at any point leaves both the counter and the log untouched.
func (s *Store) AppendTransaction(ctx context.Context, draft core.Transaction) (core.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: begin transaction: %v", core.ErrStorage, err)
	}
	defer tx.Rollback()

	committed := draft.Clone()
	err = tx.QueryRowContext(ctx,
		"SELECT next_number FROM invoice_counter WHERE id = 1").Scan(&committed.InvoiceNumber)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: read invoice counter: %v", core.ErrStorage, err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO transactions (invoice_number, committed_at, subtotal_cents, tax_cents, total_cents) VALUES (?, ?, ?, ?, ?)",
		committed.InvoiceNumber,
		committed.Timestamp.UTC().Format(time.RFC3339Nano),
		committed.Subtotal.Cents,
		committed.Tax.Cents,
		committed.Total.Cents)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: insert transaction: %v", core.ErrStorage, err)
	}

	for i, line := range committed.LineItems {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO transaction_lines (invoice_number, position, item_id, name, price_cents, quantity) VALUES (?, ?, ?, ?, ?, ?)",
			committed.InvoiceNumber, i, line.ItemID, line.Name, line.Price.Cents, line.Quantity)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: insert line item: %v", core.ErrStorage, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE invoice_counter SET next_number = ? WHERE id = 1", committed.InvoiceNumber+1)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: advance invoice counter: %v", core.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: commit: %v", core.ErrStorage, err)
	}
	return committed, nil
}

// ListTransactions implements store.Ledger. Entries come back in commit
// order, oldest first.
func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT invoice_number, committed_at, subtotal_cents, tax_cents, total_cents FROM transactions ORDER BY invoice_number")
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", core.ErrStorage, err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transactions: %v", core.ErrStorage, err)
	}

	for i := range txs {
		lines, err := s.loadLines(ctx, txs[i].InvoiceNumber)
		if err != nil {
			return nil, err
		}
		txs[i].LineItems = lines
	}
	return txs, nil
}

// NextInvoiceNumber implements store.Ledger.
func (s *Store) NextInvoiceNumber(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx,
		"SELECT next_number FROM invoice_counter WHERE id = 1").Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("%w: read invoice counter: %v", core.ErrStorage, err)
	}
	return next, nil
}

// GetTransaction returns a single committed invoice by number.
func (s *Store) GetTransaction(ctx context.Context, invoiceNumber int64) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT invoice_number, committed_at, subtotal_cents, tax_cents, total_cents FROM transactions WHERE invoice_number = ?",
		invoiceNumber)

	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, fmt.Errorf("invoice %d: %w", invoiceNumber, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, err
	}

	tx.LineItems, err = s.loadLines(ctx, invoiceNumber)
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// ListUnexported returns up to limit invoices that have not been exported
// yet, oldest first.
func (s *Store) ListUnexported(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT invoice_number, committed_at, subtotal_cents, tax_cents, total_cents FROM transactions WHERE exported_at IS NULL ORDER BY invoice_number LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query unexported: %v", core.ErrStorage, err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate unexported: %v", core.ErrStorage, err)
	}

	for i := range txs {
		lines, err := s.loadLines(ctx, txs[i].InvoiceNumber)
		if err != nil {
			return nil, err
		}
		txs[i].LineItems = lines
	}
	return txs, nil
}

// MarkExported records that the invoice's document has been written.
func (s *Store) MarkExported(ctx context.Context, invoiceNumber int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET exported_at = ? WHERE invoice_number = ?",
		time.Now().UTC().Format(time.RFC3339Nano), invoiceNumber)
	if err != nil {
		return fmt.Errorf("%w: mark exported: %v", core.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: mark exported: %v", core.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("invoice %d: %w", invoiceNumber, core.ErrNotFound)
	}
	return nil
}

func (s *Store) loadLines(ctx context.Context, invoiceNumber int64) ([]core.CartLine, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_id, name, price_cents, quantity FROM transaction_lines WHERE invoice_number = ? ORDER BY position",
		invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: query line items: %v", core.ErrStorage, err)
	}
	defer rows.Close()

	var lines []core.CartLine
	for rows.Next() {
		var line core.CartLine
		if err := rows.Scan(&line.ItemID, &line.Name, &line.Price.Cents, &line.Quantity); err != nil {
			return nil, fmt.Errorf("%w: scan line item: %v", core.ErrStorage, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate line items: %v", core.ErrStorage, err)
	}
	return lines, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var committedAt string
	err := row.Scan(&tx.InvoiceNumber, &committedAt, &tx.Subtotal.Cents, &tx.Tax.Cents, &tx.Total.Cents)
	if err == sql.ErrNoRows {
		return core.Transaction{}, err
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: scan transaction: %v", core.ErrStorage, err)
	}
	tx.Timestamp, err = time.Parse(time.RFC3339Nano, committedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: parse timestamp %q: %v", core.ErrStorage, committedAt, err)
	}
	return tx, nil
}
