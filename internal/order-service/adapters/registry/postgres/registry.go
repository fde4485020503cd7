// Package postgres provides a pgx-backed implementation of domain.Registry.
//
// Orders are stored as a JSONB document keyed by order id. Per-key
// read-modify-write runs in a transaction holding a row lock.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id          TEXT PRIMARY KEY,
    status      TEXT        NOT NULL,
    document    JSONB       NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

var _ domain.Registry = (*Registry)(nil)

type Registry struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Registry, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &Registry{pool: pool}, nil
}

func (r *Registry) Close() {
	r.pool.Close()
}

func (r *Registry) InsertIfAbsent(ctx context.Context, o domain.Order) (bool, error) {
	doc, err := json.Marshal(o)
	if err != nil {
		return false, fmt.Errorf("postgres: encode order %q: %w", o.OrderID, err)
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO orders (id, status, document) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		o.OrderID, string(o.Status), doc)
	if err != nil {
		return false, fmt.Errorf("postgres: insert order %q: %w", o.OrderID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Registry) ComputeIfPresent(ctx context.Context, id string, fn domain.MutateFunc) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	current, err := scanOrder(tx.QueryRow(ctx, `SELECT document FROM orders WHERE id = $1 FOR UPDATE`, id), id)
	if err != nil {
		return domain.Order{}, err
	}

	next, err := fn(current)
	if err != nil {
		return domain.Order{}, err
	}
	next.OrderID = id

	doc, err := json.Marshal(next)
	if err != nil {
		return domain.Order{}, fmt.Errorf("postgres: encode order %q: %w", id, err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2, document = $3, updated_at = now() WHERE id = $1`,
		id, string(next.Status), doc); err != nil {
		return domain.Order{}, fmt.Errorf("postgres: update order %q: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("postgres: commit: %w", err)
	}
	return next, nil
}

func (r *Registry) Get(ctx context.Context, id string) (domain.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, `SELECT document FROM orders WHERE id = $1`, id), id)
}

func (r *Registry) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT document FROM orders ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		var o domain.Order
		if err := json.Unmarshal(doc, &o); err != nil {
			return nil, fmt.Errorf("postgres: decode order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row, id string) (domain.Order, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, &domain.NotFoundError{OrderID: id}
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %q: %w", id, err)
	}
	var o domain.Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return domain.Order{}, fmt.Errorf("postgres: decode order %q: %w", id, err)
	}
	return o, nil
}
