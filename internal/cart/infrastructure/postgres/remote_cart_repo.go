package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelez/storefront/internal/cart/application"
	"github.com/avelez/storefront/internal/cart/domain"
)

// RemoteCartRepository stores the authenticated actor's cart. Puts are full
// replaces guarded by the snapshot version, so an out-of-order push with an
// older version cannot resurrect stale state.
type RemoteCartRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRemoteCartRepository(log *slog.Logger, pool *pgxpool.Pool) *RemoteCartRepository {
	return &RemoteCartRepository{log: log, pool: pool}
}

func (r *RemoteCartRepository) Get(ctx context.Context, actorID string) (domain.RemoteCart, bool, error) {
	var (
		payload []byte
		cart    domain.RemoteCart
	)
	err := r.pool.QueryRow(ctx,
		`SELECT lines, version, updated_at FROM remote_carts WHERE actor_id=$1`, actorID,
	).Scan(&payload, &cart.Version, &cart.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RemoteCart{}, false, nil
	}
	if err != nil {
		return domain.RemoteCart{}, false, fmt.Errorf("query remote cart: %w", err)
	}

	if err := json.Unmarshal(payload, &cart.Lines); err != nil {
		return domain.RemoteCart{}, false, fmt.Errorf("unmarshal remote cart lines: %w", err)
	}
	cart.ActorID = actorID
	return cart, true, nil
}

func (r *RemoteCartRepository) Put(ctx context.Context, actorID string, snap domain.CartSnapshot) error {
	payload, err := json.Marshal(snap.Lines)
	if err != nil {
		return fmt.Errorf("marshal remote cart lines: %w", err)
	}

	// version <= allows the same snapshot to be reapplied idempotently while
	// rejecting strictly older ones.
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO remote_carts (actor_id, lines, version, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (actor_id) DO UPDATE SET lines=$2, version=$3, updated_at=$4
		WHERE remote_carts.version <= $3`,
		actorID, payload, snap.Version, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert remote cart: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return application.ErrStaleSnapshot
	}
	return nil
}
