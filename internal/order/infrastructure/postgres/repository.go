package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tiendago/checkout/internal/faults"
	"github.com/tiendago/checkout/internal/order/domain"
	"github.com/tiendago/checkout/pkg/outbox"
	"github.com/tiendago/checkout/pkg/tracing"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	user_id BIGINT NOT NULL,
	total_cents BIGINT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id);
CREATE TABLE IF NOT EXISTS order_items (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	quantity INT NOT NULL,
	unit_price_cents BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id);
`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *Repository) Create(ctx context.Context, o domain.Order, eventType string, payload []byte) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return faults.Internal("begin tx", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, total_cents, status, created_at, active)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.UserID, o.TotalCents, o.Status, o.CreatedAt, o.Active)
	if err != nil {
		return faults.Internal("insert order", err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(
			`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price_cents)
			 VALUES ($1,$2,$3,$4,$5)`,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPriceCents)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return faults.Internal("insert order items", err)
	}

	if err := outbox.Append(ctx, tx, "order", o.ID, eventType, payload, tracing.Traceparent(ctx)); err != nil {
		return faults.Internal("append outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return faults.Internal("commit order", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, total_cents, status, created_at, active
		 FROM orders WHERE id=$1 AND active`, id).
		Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, faults.NotFoundf("order %s not found", id)
	}
	if err != nil {
		return domain.Order{}, faults.Internal("query order", err)
	}

	items, err := r.itemsFor(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *Repository) itemsFor(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price_cents
		 FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, faults.Internal("query order items", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, faults.Internal("scan order item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Internal("iterate order items", err)
	}
	return items, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, total_cents, status, created_at, active
		 FROM orders WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, faults.Internal("query orders", err)
	}
	defer rows.Close()

	var orders []domain.Order
	index := map[string]int{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.Active); err != nil {
			return nil, faults.Internal("scan order", err)
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Internal("iterate orders", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := r.pool.Query(ctx,
		`SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price_cents
		 FROM order_items i JOIN orders o ON o.id = i.order_id WHERE o.active`)
	if err != nil {
		return nil, faults.Internal("query order items", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it domain.OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, faults.Internal("scan order item", err)
		}
		if pos, ok := index[it.OrderID]; ok {
			orders[pos].Items = append(orders[pos].Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, faults.Internal("iterate order items", err)
	}
	return orders, nil
}

func (r *Repository) Update(ctx context.Context, id string, patch domain.Patch) (domain.Order, error) {
	if patch.Empty() {
		return r.Get(ctx, id)
	}

	set := make([]string, 0, 4)
	args := make([]any, 0, 5)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if patch.UserID != nil {
		add("user_id", *patch.UserID)
	}
	if patch.TotalCents != nil {
		add("total_cents", *patch.TotalCents)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Active != nil {
		add("active", *patch.Active)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE orders SET %s WHERE id=$%d AND active", strings.Join(set, ", "), len(args))
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return domain.Order{}, faults.Internal("update order", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.Order{}, faults.NotFoundf("order %s not found", id)
	}
	// The patch may have just deactivated the row, so fetch without the
	// active filter.
	var o domain.Order
	err = r.pool.QueryRow(ctx,
		`SELECT id, user_id, total_cents, status, created_at, active
		 FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.Active)
	if err != nil {
		return domain.Order{}, faults.Internal("query order", err)
	}
	items, err := r.itemsFor(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE orders SET active=FALSE WHERE id=$1 AND active`, id)
	if err != nil {
		return faults.Internal("delete order", err)
	}
	if ct.RowsAffected() == 0 {
		return faults.NotFoundf("order %s not found", id)
	}
	return nil
}

func (r *Repository) MarkCompleted(ctx context.Context, id string, eventType string, payload []byte) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, faults.Internal("begin tx", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx,
		`UPDATE orders SET status=$1 WHERE id=$2 AND active AND status <> $1`,
		domain.StatusCompleted, id)
	if err != nil {
		return domain.Order{}, faults.Internal("complete order", err)
	}
	if ct.RowsAffected() > 0 {
		// Event only on the actual transition, not on replays.
		if err := outbox.Append(ctx, tx, "order", id, eventType, payload, tracing.Traceparent(ctx)); err != nil {
			return domain.Order{}, faults.Internal("append outbox event", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, faults.Internal("commit completion", err)
	}
	return r.Get(ctx, id)
}
