package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"affiliate-sales-api/internal/models"
)

// EntityStore is a find-or-create view over one catalog table, scoped to the
// batch's transaction. Lookups miss with ErrNotFound.
type EntityStore interface {
	FindByName(ctx context.Context, name string) (string, error)
	Create(ctx context.Context, name string) (string, error)
}

// Batch is a unit of work over one ingestion call: catalog creations and
// transaction inserts accumulate on a single SQL transaction and become
// visible only on Commit. Rollback discards everything, including any catalog
// entities created through the batch's stores.
type Batch struct {
	tx       *sql.Tx
	done     bool
	products EntityStore
	sellers  EntityStore
}

// BeginBatch starts a unit of work for one ingestion call.
func (db *DB) BeginBatch(ctx context.Context) (*Batch, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin batch: %w", err)
	}

	return &Batch{
		tx:       tx,
		products: &catalogStore{tx: tx, table: "products"},
		sellers:  &catalogStore{tx: tx, table: "sellers"},
	}, nil
}

// Products is the product side of the catalog within this batch.
func (b *Batch) Products() EntityStore { return b.products }

// Sellers is the seller side of the catalog within this batch.
func (b *Batch) Sellers() EntityStore { return b.sellers }

// InsertTransactions inserts the fully resolved records of this batch.
func (b *Batch) InsertTransactions(ctx context.Context, records []models.TransactionRecord) error {
	if len(records) == 0 {
		return nil
	}

	stmt, err := b.tx.PrepareContext(ctx, `INSERT INTO transactions (
		id, type, date, value_cents, product_id, seller_id
	) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(
			ctx,
			rec.ID,
			string(rec.Type),
			rec.Date.Format(time.RFC3339),
			rec.ValueCents,
			rec.ProductID,
			rec.SellerID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", rec.ID, err)
		}
	}

	return nil
}

// Commit makes the whole batch durable.
func (b *Batch) Commit() error {
	if b.done {
		return nil
	}
	b.done = true

	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Rollback discards the batch. Safe to call after Commit, so callers can
// defer it unconditionally.
func (b *Batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	return b.tx.Rollback()
}

// catalogStore implements EntityStore for one of the two catalog tables. The
// table name comes from the closed set wired in BeginBatch, never from
// caller input.
type catalogStore struct {
	tx    *sql.Tx
	table string
}

func (s *catalogStore) FindByName(ctx context.Context, name string) (string, error) {
	var id string
	err := s.tx.QueryRowContext(ctx, "SELECT id FROM "+s.table+" WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up %s by name: %w", s.table, err)
	}
	return id, nil
}

func (s *catalogStore) Create(ctx context.Context, name string) (string, error) {
	id := newID()
	_, err := s.tx.ExecContext(ctx, "INSERT INTO "+s.table+" (id, name) VALUES (?, ?)", id, name)
	if err != nil {
		return "", fmt.Errorf("failed to create %s %q: %w", s.table, name, err)
	}
	return id, nil
}
