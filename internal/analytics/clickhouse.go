package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopspring/decimal"

	"grocery-ordering-system/internal/config"
	"grocery-ordering-system/internal/core/domain"
)

const orderLinesSchema = `
CREATE TABLE IF NOT EXISTS order_lines (
    order_id     String,
    placed_at    DateTime64(3, 'UTC'),
    customer     String,
    phone        String,
    line_no      UInt16,
    item         String,
    quantity     Decimal(18, 4),
    unit_price   Decimal(18, 4),
    line_total   Decimal(18, 4),
    order_total  Decimal(18, 4)
) ENGINE = MergeTree
ORDER BY (placed_at, order_id, line_no)`

// Store reads and writes the order_lines table.
type Store struct {
	conn clickhouse.Conn
}

// Open connects to ClickHouse and checks the connection.
func Open(ctx context.Context, cfg config.ClickHouseConfig) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, orderLinesSchema); err != nil {
		return fmt.Errorf("failed to create order_lines table: %w", err)
	}
	return nil
}

// InsertOrder writes one row per order line in a single batch.
func (s *Store) InsertOrder(ctx context.Context, order domain.Order) error {
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO order_lines")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, row := range Rows(order) {
		if err := batch.Append(
			row.OrderID, row.PlacedAt, row.Customer, row.Phone, row.LineNo,
			row.Item, row.Quantity, row.UnitPrice, row.LineTotal, row.OrderTotal,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	return batch.Send()
}

// LineRow is one row of order_lines.
type LineRow struct {
	OrderID    string
	PlacedAt   time.Time
	Customer   string
	Phone      string
	LineNo     uint16
	Item       string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
	OrderTotal decimal.Decimal
}

// Rows flattens an order into table rows, numbering lines from 1.
func Rows(order domain.Order) []LineRow {
	rows := make([]LineRow, len(order.Lines))
	for i, l := range order.Lines {
		rows[i] = LineRow{
			OrderID:    order.ID,
			PlacedAt:   order.Timestamp.UTC(),
			Customer:   order.CustomerName,
			Phone:      order.Phone,
			LineNo:     uint16(i + 1),
			Item:       l.ItemName,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			LineTotal:  l.LineTotal,
			OrderTotal: order.Total,
		}
	}
	return rows
}

// ItemStat is one row of the top-items report.
type ItemStat struct {
	Item     string
	Quantity decimal.Decimal
	Revenue  decimal.Decimal
	Orders   uint64
}

func (s *Store) TopItems(ctx context.Context, since time.Time, limit int) ([]ItemStat, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT item, sum(quantity) AS qty, sum(line_total) AS revenue, uniqExact(order_id) AS orders
		FROM order_lines
		WHERE placed_at >= ?
		GROUP BY item
		ORDER BY revenue DESC, qty DESC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("top items query failed: %w", err)
	}
	defer rows.Close()

	var stats []ItemStat
	for rows.Next() {
		var st ItemStat
		if err := rows.Scan(&st.Item, &st.Quantity, &st.Revenue, &st.Orders); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// OrderSummary is one row of the recent-orders report.
type OrderSummary struct {
	OrderID  string
	PlacedAt time.Time
	Customer string
	Lines    uint64
	Total    decimal.Decimal
}

func (s *Store) RecentOrders(ctx context.Context, limit int) ([]OrderSummary, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT order_id, max(placed_at) AS placed, any(customer), count() AS lines, any(order_total)
		FROM order_lines
		GROUP BY order_id
		ORDER BY placed DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent orders query failed: %w", err)
	}
	defer rows.Close()

	var out []OrderSummary
	for rows.Next() {
		var o OrderSummary
		if err := rows.Scan(&o.OrderID, &o.PlacedAt, &o.Customer, &o.Lines, &o.Total); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
