// Package sqlite is the SQLite-backed dimensional mart.
//
// The layout is a classic star: dim_date, dim_customer and dim_product
// around fact_order_item. Dimensions use natural keys from the source
// system — never auto-generated ones — so the same logical customer or
// product can never end up under two different keys. INSERT OR IGNORE
// against those keys makes concurrent check-then-insert races harmless.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mjurado/orderpipe/internal/order/domain"
	"github.com/mjurado/orderpipe/internal/reporting"

	// Register the pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS dim_date (
    -- Integer yyyymmdd encoding of the calendar date, e.g. 20250615.
    date_key INTEGER PRIMARY KEY,
    year     INTEGER NOT NULL,
    month    INTEGER NOT NULL,
    day      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dim_customer (
    -- Natural key: the customer id from the order system.
    customer_id TEXT PRIMARY KEY,
    email       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS dim_product (
    -- Natural key: the product id from the pricing source.
    product_id TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS fact_order_item (
    -- Degenerate surrogate for convenience; uniqueness is enforced below.
    id            INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Source identifiers. The pair is the idempotency key: re-delivering
    -- the same confirmation event must never create a second row.
    order_id      INTEGER NOT NULL,
    order_item_id INTEGER NOT NULL,

    -- Degenerate dimension carried on the fact itself.
    order_number  TEXT    NOT NULL,

    -- Dimension keys.
    date_key      INTEGER NOT NULL REFERENCES dim_date(date_key),
    customer_id   TEXT    NOT NULL REFERENCES dim_customer(customer_id),
    product_id    TEXT    NOT NULL REFERENCES dim_product(product_id),

    -- Measures, copied from the event at confirmation time.
    quantity      INTEGER NOT NULL,
    unit_price    REAL    NOT NULL,
    line_total    REAL    NOT NULL,
    order_total   REAL    NOT NULL,

    UNIQUE (order_id, order_item_id)
);

CREATE INDEX IF NOT EXISTS idx_fact_date     ON fact_order_item(date_key);
CREATE INDEX IF NOT EXISTS idx_fact_customer ON fact_order_item(customer_id);
CREATE INDEX IF NOT EXISTS idx_fact_product  ON fact_order_item(product_id);
`

// Store is the SQLite implementation of reporting.Mart.
type Store struct {
	db *sql.DB
}

var _ reporting.Mart = (*Store)(nil)

// Open opens (or creates) the mart database at path and applies the schema.
// WAL mode keeps readers (ad-hoc analytical queries) from blocking the
// ingestion writes.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("mart: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mart: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ingest writes one confirmation event into the star schema inside a single
// transaction: dims first (INSERT OR IGNORE on natural keys), then one fact
// row per item (INSERT OR IGNORE on the source pair). Re-delivery of an
// already-ingested event commits an empty transaction.
func (s *Store) Ingest(ctx context.Context, ev domain.OrderConfirmed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mart: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dateKey := reporting.DateKey(ev.OrderDate)
	y, m, d := ev.OrderDate.UTC().Date()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO dim_date (date_key, year, month, day) VALUES (?, ?, ?, ?)`,
		dateKey, y, int(m), d); err != nil {
		return fmt.Errorf("mart: ensure date dim %d: %w", dateKey, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO dim_customer (customer_id, email) VALUES (?, ?)`,
		ev.CustomerID, ev.CustomerEmail); err != nil {
		return fmt.Errorf("mart: ensure customer dim %q: %w", ev.CustomerID, err)
	}

	const insertProduct = `INSERT OR IGNORE INTO dim_product (product_id, name) VALUES (?, ?)`
	const insertFact = `
		INSERT OR IGNORE INTO fact_order_item
			(order_id, order_item_id, order_number, date_key, customer_id, product_id,
			 quantity, unit_price, line_total, order_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, it := range ev.Items {
		if _, err := tx.ExecContext(ctx, insertProduct, it.ProductID, it.ProductName); err != nil {
			return fmt.Errorf("mart: ensure product dim %q: %w", it.ProductID, err)
		}
		if _, err := tx.ExecContext(ctx, insertFact,
			ev.OrderID, it.LineID, ev.OrderNumber, dateKey, ev.CustomerID, it.ProductID,
			it.Quantity, it.UnitPrice, it.LineTotal, ev.TotalAmount); err != nil {
			return fmt.Errorf("mart: insert fact for order %d item %d: %w", ev.OrderID, it.LineID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mart: commit order %d: %w", ev.OrderID, err)
	}
	return nil
}

// FactCount reports the number of fact rows for one order. Used by tests
// and operational checks.
func (s *Store) FactCount(ctx context.Context, orderID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fact_order_item WHERE order_id = ?`, orderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("mart: count facts for order %d: %w", orderID, err)
	}
	return n, nil
}

// DimCounts reports the dimension row counts. Used by tests.
func (s *Store) DimCounts(ctx context.Context) (dates, customers, products int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM dim_date),
		       (SELECT COUNT(*) FROM dim_customer),
		       (SELECT COUNT(*) FROM dim_product)`)
	if err := row.Scan(&dates, &customers, &products); err != nil {
		return 0, 0, 0, fmt.Errorf("mart: count dims: %w", err)
	}
	return dates, customers, products, nil
}
