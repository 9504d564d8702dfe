package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tiendago/checkout/internal/faults"
	"github.com/tiendago/checkout/internal/payment/domain"
	"github.com/tiendago/checkout/pkg/outbox"
	"github.com/tiendago/checkout/pkg/tracing"
)

// The partial unique index keeps order<->payment one-to-one for live rows:
// a retried create hits the conflict and the existing payment wins.
const schema = `
CREATE TABLE IF NOT EXISTS payments (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL,
	user_id BIGINT NOT NULL,
	amount_cents BIGINT NOT NULL,
	currency TEXT NOT NULL DEFAULT 'COP',
	status TEXT NOT NULL,
	method TEXT,
	paid_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_order_id ON payments (order_id) WHERE active;
`

const paymentColumns = `id, order_id, user_id, amount_cents, currency, status, method, paid_at, created_at, updated_at, active`

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

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.AmountCents, &p.Currency,
		&p.Status, &p.Method, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt, &p.Active)
	return p, err
}

func (r *Repository) Create(ctx context.Context, p domain.Payment, eventType string, payload []byte) (domain.Payment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Payment{}, faults.Internal("begin tx", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (order_id) WHERE active DO NOTHING`,
		p.ID, p.OrderID, p.UserID, p.AmountCents, p.Currency, p.Status,
		p.Method, p.PaidAt, p.CreatedAt, p.UpdatedAt, p.Active)
	if err != nil {
		return domain.Payment{}, faults.Internal("insert payment", err)
	}
	if ct.RowsAffected() == 0 {
		// A live payment already exists for this order; return it.
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return domain.Payment{}, faults.Internal("rollback", err)
		}
		return r.GetByOrderID(ctx, p.OrderID)
	}

	if err := outbox.Append(ctx, tx, "payment", p.ID, eventType, payload, tracing.Traceparent(ctx)); err != nil {
		return domain.Payment{}, faults.Internal("append outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Payment{}, faults.Internal("commit payment", err)
	}
	return p, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id=$1 AND active`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, faults.NotFoundf("payment %s not found", id)
	}
	if err != nil {
		return domain.Payment{}, faults.Internal("query payment", err)
	}
	return p, nil
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (domain.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id=$1 AND active`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, faults.NotFoundf("no payment for order %s", orderID)
	}
	if err != nil {
		return domain.Payment{}, faults.Internal("query payment by order", err)
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, faults.Internal("query payments", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, faults.Internal("scan payment", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Internal("iterate payments", err)
	}
	return payments, nil
}

// Complete is the compare-and-set transition. The WHERE clause carries the
// whole invariant: still pending, still covered by the reported amount.
// GREATEST keeps the amount from ever decreasing.
func (r *Repository) Complete(ctx context.Context, id string, amountCents int64, method string, paidAt time.Time, eventType string, payload []byte) (domain.Payment, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Payment{}, false, faults.Internal("begin tx", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	p, err := scanPayment(tx.QueryRow(ctx,
		`UPDATE payments
		 SET status=$1, amount_cents=GREATEST(amount_cents,$2), method=$3, paid_at=$4, updated_at=$5
		 WHERE id=$6 AND active AND status=$7 AND amount_cents <= $2
		 RETURNING `+paymentColumns,
		domain.StatusCompleted, amountCents, method, paidAt, time.Now().UTC(),
		id, domain.StatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		// Absent, already completed, or no longer covered; report current
		// state so the caller can tell which.
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return domain.Payment{}, false, faults.Internal("rollback", err)
		}
		current, err := r.Get(ctx, id)
		if err != nil {
			return domain.Payment{}, false, err
		}
		return current, false, nil
	}
	if err != nil {
		return domain.Payment{}, false, faults.Internal("complete payment", err)
	}

	if err := outbox.Append(ctx, tx, "payment", p.ID, eventType, payload, tracing.Traceparent(ctx)); err != nil {
		return domain.Payment{}, false, faults.Internal("append outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Payment{}, false, faults.Internal("commit completion", err)
	}
	return p, true, nil
}

func (r *Repository) OverwriteAmountByOrder(ctx context.Context, orderID string, amountCents int64) (domain.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`UPDATE payments SET amount_cents=$1, updated_at=$2
		 WHERE order_id=$3 AND active
		 RETURNING `+paymentColumns,
		amountCents, time.Now().UTC(), orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, faults.NotFoundf("no payment for order %s", orderID)
	}
	if err != nil {
		return domain.Payment{}, faults.Internal("overwrite payment amount", err)
	}
	return p, nil
}

func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE payments SET active=FALSE, updated_at=$1 WHERE id=$2 AND active`,
		time.Now().UTC(), id)
	if err != nil {
		return faults.Internal("delete payment", err)
	}
	if ct.RowsAffected() == 0 {
		return faults.NotFoundf("payment %s not found", id)
	}
	return nil
}
