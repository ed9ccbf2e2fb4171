package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"grocery-ordering-system/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id          TEXT PRIMARY KEY,
    customer    TEXT        NOT NULL,
    phone       TEXT        NOT NULL,
    address     TEXT        NOT NULL,
    total       NUMERIC     NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS order_lines (
    order_id    TEXT    NOT NULL REFERENCES orders(id),
    line_no     INT     NOT NULL,
    item        TEXT    NOT NULL,
    quantity    NUMERIC NOT NULL,
    unit_price  NUMERIC NOT NULL,
    line_total  NUMERIC NOT NULL,
    PRIMARY KEY (order_id, line_no)
);`

// Ledger is the PostgreSQL implementation of the OrderLedger port.
// Orders are only ever inserted.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a connection pool and checks that the database is reachable.
func NewLedger(ctx context.Context, dsn string) (*Ledger, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Ledger{pool: pool}, nil
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}

func (l *Ledger) Close() {
	l.pool.Close()
}

// Append stores the order and its lines in one transaction. Re-appending an
// existing id is a no-op, so a retried request cannot duplicate a record.
func (l *Ledger) Append(ctx context.Context, order domain.Order) error {
	err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO orders (id, customer, phone, address, total, created_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6)
			ON CONFLICT (id) DO NOTHING`,
			order.ID, order.CustomerName, order.Phone, order.Address, order.Total.String(), order.Timestamp,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, line := range order.Lines {
			batch.Queue(`
				INSERT INTO order_lines (order_id, line_no, item, quantity, unit_price, line_total)
				VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric)`,
				order.ID, i+1, line.ItemName, line.Quantity.String(), line.UnitPrice.String(), line.LineTotal.String(),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", order.ID, err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}
