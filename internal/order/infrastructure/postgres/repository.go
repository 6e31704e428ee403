package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelez/storefront/internal/order/domain"
	"github.com/avelez/storefront/pkg/outbox"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// SaveWithOutbox persists the order and its outbox event in one transaction,
// so the OrderConfirmed announcement cannot outrun or miss the order row.
func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, cart_id, reference, session_id, total_cents, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET total_cents=$5, status=$6, updated_at=$8`,
		o.ID, o.CartID, o.Reference, o.SessionID, o.TotalCents, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, line := range o.Lines {
		batch.Queue(`
			INSERT INTO order_lines (order_id, product_id, name, quantity, unit_cents)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (order_id, product_id) DO UPDATE SET name=$3, quantity=$4, unit_cents=$5`,
			o.ID, line.ProductID, line.Name, line.Quantity, line.UnitCents)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"order", o.ID, eventType, payload, headers, traceparent,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}

// Get loads an order with its lines.
func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, cart_id, reference, session_id, total_cents, status, created_at, updated_at
		FROM orders WHERE id=$1`, id,
	).Scan(&o.ID, &o.CartID, &o.Reference, &o.SessionID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, name, quantity, unit_cents FROM order_lines WHERE order_id=$1`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ProductID, &line.Name, &line.Quantity, &line.UnitCents); err != nil {
			return domain.Order{}, err
		}
		o.Lines = append(o.Lines, line)
	}
	return o, rows.Err()
}

// OutboxStore leases pending outbox rows for the relay.
type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at
		FROM outbox
		WHERE status='pending' OR (status='in_progress' AND lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1`, batchSize)
	if err != nil {
		return nil, err
	}

	var events []outbox.Event
	for rows.Next() {
		var ev outbox.Event
		var headers map[string]string
		if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.Type, &ev.Payload, &headers, &ev.Traceparent, &ev.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		ev.Headers = headers
		events = append(events, ev)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	_, err = tx.Exec(ctx, `
		UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + make_interval(secs => $2)
		WHERE id = ANY($3)`, relayID, lease.Seconds(), ids)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent' WHERE id = ANY($1)`, ids)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox SET status='failed', last_error=$2, retry_count=retry_count+1
		WHERE id=$1`, id, errMsg)
	return err
}
