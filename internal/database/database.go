package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"affiliate-sales-api/internal/models"
)

// ErrNotFound is returned by catalog lookups when no entity has the name.
var ErrNotFound = fmt.Errorf("database: entity not found")

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist. UNIQUE(name)
// on the catalog tables is the backstop against two concurrent uploads
// creating the same product or seller twice.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sellers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			date TEXT NOT NULL,
			value_cents INTEGER NOT NULL,
			product_id TEXT NOT NULL REFERENCES products(id),
			seller_id TEXT NOT NULL REFERENCES sellers(id),
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_txn_product_id ON transactions(product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_txn_seller_id ON transactions(seller_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// ListTransactionsWithRelations returns every transaction joined with its
// product and seller, in insertion order. This is the read path feeding the
// earnings aggregation.
func (db *DB) ListTransactionsWithRelations(ctx context.Context) ([]models.Transaction, error) {
	query := `SELECT t.id, t.type, t.date, t.value_cents,
		p.id, p.name, s.id, s.name
		FROM transactions t
		JOIN products p ON p.id = t.product_id
		JOIN sellers s ON s.id = t.seller_id
		ORDER BY t.rowid`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		var dateStr string

		err := rows.Scan(
			&txn.ID,
			&txn.Type,
			&dateStr,
			&txn.ValueCents,
			&txn.Product.ID,
			&txn.Product.Name,
			&txn.Seller.ID,
			&txn.Seller.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		txn.Date, err = time.Parse(time.RFC3339, dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction date: %w", err)
		}

		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// CountRows returns the number of rows in the given catalog or transaction
// table. Used by tests to assert rollback behavior.
func (db *DB) CountRows(ctx context.Context, table string) (int, error) {
	switch table {
	case "products", "sellers", "transactions":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}

	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// newID mints a catalog/transaction identifier.
func newID() string {
	return uuid.New().String()
}
