// Package sqlite persists Order aggregates in SQLite.
//
// WAL mode is enabled on Open so the HTTP handlers' reads never block the
// writes happening in concurrent requests. We use modernc.org/sqlite (the
// pure-Go driver) to avoid CGO requirements.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mjurado/orderpipe/internal/order/domain"
	"github.com/mjurado/orderpipe/internal/order/ports"

	// Register the pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on Open.
// Orders carry a version column used as an optimistic-concurrency token:
// every save checks it, so two concurrent confirmations of the same order
// cannot both commit. Note there is no total column anywhere — the total is
// always recomputed from the item rows.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id TEXT    NOT NULL,
    number      TEXT    NOT NULL UNIQUE,
    order_date  TEXT    NOT NULL, -- calendar date, YYYY-MM-DD
    status      TEXT    NOT NULL,
    version     INTEGER NOT NULL,
    created_at  TEXT    NOT NULL,
    updated_at  TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
    order_id     INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    line_id      INTEGER NOT NULL,
    product_id   TEXT    NOT NULL,
    product_name TEXT    NOT NULL,
    quantity     INTEGER NOT NULL,
    unit_price   REAL    NOT NULL,
    PRIMARY KEY (order_id, line_id)
);

CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
`

// Repository is the SQLite implementation of ports.Repository.
type Repository struct {
	db *sql.DB
}

var _ ports.Repository = (*Repository)(nil)

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("orderstore: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("orderstore: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close releases the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	const q = `
		SELECT customer_id, number, order_date, status, version, created_at, updated_at
		FROM   orders
		WHERE  id = ?`

	var (
		customerID, number, dateStr, status string
		version                             int64
		createdStr, updatedStr              string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&customerID, &number, &dateStr, &status, &version, &createdStr, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("orderstore: order %d: %w", id, domain.ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("orderstore: get order %d: %w", id, err)
	}

	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("orderstore: order %d has bad date %q: %w", id, dateStr, err)
	}
	createdAt, err := parseRFC3339(createdStr)
	if err != nil {
		return nil, fmt.Errorf("orderstore: order %d: %w", id, err)
	}
	updatedAt, err := parseRFC3339(updatedStr)
	if err != nil {
		return nil, fmt.Errorf("orderstore: order %d: %w", id, err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return domain.Rehydrate(id, customerID, number, date, domain.Status(status),
		version, createdAt, updatedAt, items), nil
}

func (r *Repository) loadItems(ctx context.Context, orderID int64) ([]domain.Item, error) {
	const q = `
		SELECT line_id, product_id, product_name, quantity, unit_price
		FROM   order_items
		WHERE  order_id = ?
		ORDER  BY line_id`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("orderstore: load items for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.LineID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("orderstore: scan item for order %d: %w", orderID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orderstore: iterate items for order %d: %w", orderID, err)
	}
	return items, nil
}

// Save writes the aggregate and its items in one transaction. First save
// assigns the id; later saves check the version token and fail with
// ports.ErrVersionConflict when another writer got there first.
func (r *Repository) Save(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("orderstore: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if o.ID == 0 {
		if err := r.insert(ctx, tx, o); err != nil {
			return err
		}
	} else {
		if err := r.update(ctx, tx, o); err != nil {
			return err
		}
	}

	if err := r.saveItems(ctx, tx, o); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("orderstore: commit order %d: %w", o.ID, err)
	}

	// The token only advances once the write is committed.
	if o.ID != 0 {
		o.Version++
	}
	return nil
}

func (r *Repository) insert(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	const q = `
		INSERT INTO orders (customer_id, number, order_date, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`

	res, err := tx.ExecContext(ctx, q,
		o.CustomerID, o.Number, o.Date.Format("2006-01-02"), string(o.Status),
		formatRFC3339(o.CreatedAt), formatRFC3339(o.UpdatedAt))
	if err != nil {
		return fmt.Errorf("orderstore: insert order %s: %w", o.Number, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("orderstore: last insert id: %w", err)
	}
	o.ID = id
	o.Version = 0 // bumped to 1 after commit by Save
	return nil
}

func (r *Repository) update(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	const q = `
		UPDATE orders
		SET    status = ?, order_date = ?, updated_at = ?, version = version + 1
		WHERE  id = ? AND version = ?`

	res, err := tx.ExecContext(ctx, q,
		string(o.Status), o.Date.Format("2006-01-02"), formatRFC3339(o.UpdatedAt),
		o.ID, o.Version)
	if err != nil {
		return fmt.Errorf("orderstore: update order %d: %w", o.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("orderstore: rows affected for order %d: %w", o.ID, err)
	}
	if n == 0 {
		// Either the row is gone or someone else bumped the version.
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE id = ?`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("orderstore: check order %d: %w", o.ID, err)
		}
		if exists == 0 {
			return fmt.Errorf("orderstore: order %d: %w", o.ID, domain.ErrOrderNotFound)
		}
		return fmt.Errorf("orderstore: order %d version %d: %w", o.ID, o.Version, ports.ErrVersionConflict)
	}
	return nil
}

func (r *Repository) saveItems(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, o.ID); err != nil {
		return fmt.Errorf("orderstore: clear items for order %d: %w", o.ID, err)
	}
	const q = `
		INSERT INTO order_items (order_id, line_id, product_id, product_name, quantity, unit_price)
		VALUES (?, ?, ?, ?, ?, ?)`
	for _, it := range o.Items() {
		if _, err := tx.ExecContext(ctx, q, o.ID, it.LineID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice); err != nil {
			return fmt.Errorf("orderstore: insert item %d for order %d: %w", it.LineID, o.ID, err)
		}
	}
	return nil
}

const rfc3339Nano = "2006-01-02T15:04:05.999999999Z"

func formatRFC3339(t time.Time) string {
	return t.UTC().Format(rfc3339Nano)
}

func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("orderstore: parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
