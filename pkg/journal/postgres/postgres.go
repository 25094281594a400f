// Package postgres provides a PostgreSQL journal.Journal backed by a pgx/v5
// connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/jsonhandler/pkg/debug"
	"github.com/rhuss/jsonhandler/pkg/journal"
)

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// Store is a PostgreSQL-backed Journal.
type Store struct {
	pool *pgxpool.Pool
}

var _ journal.Journal = (*Store)(nil)

// New connects to PostgreSQL. If MigrateOnStart is true, schema migrations
// are applied before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}
	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

// Record inserts a new entry.
func (s *Store) Record(ctx context.Context, e *journal.Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO exchanges (
			id, request_id, handle, method, uri, backend, dispatch_code,
			state, status, request_size, response_size, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		e.ID, e.RequestID, e.Handle, e.Method, e.URI, e.Backend, e.DispatchCode,
		string(e.State), e.Status, e.RequestSize, e.ResponseSize, createdAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return journal.ErrConflict
		}
		return fmt.Errorf("inserting exchange: %w", err)
	}
	debug.Log("journal", "recorded", "id", e.ID, "state", e.State)
	return nil
}

// Complete finalizes an entry.
func (s *Store) Complete(ctx context.Context, id string, c journal.Completion) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE exchanges
		SET state = $1, status = $2, response_size = $3, completed_at = $4
		WHERE id = $5
	`, string(c.State), c.Status, c.ResponseSize, time.Now(), id)
	if err != nil {
		return fmt.Errorf("completing exchange: %w", err)
	}
	if result.RowsAffected() == 0 {
		return journal.ErrNotFound
	}
	debug.Log("journal", "completed", "id", id, "state", c.State, "status", c.Status)
	return nil
}

// Get returns the entry with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*journal.Entry, error) {
	var (
		e     journal.Entry
		state string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, request_id, handle, method, uri, backend, dispatch_code,
		       state, status, request_size, response_size, created_at, completed_at
		FROM exchanges
		WHERE id = $1
	`, id).Scan(
		&e.ID, &e.RequestID, &e.Handle, &e.Method, &e.URI, &e.Backend, &e.DispatchCode,
		&state, &e.Status, &e.RequestSize, &e.ResponseSize, &e.CreatedAt, &e.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, journal.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying exchange: %w", err)
	}
	e.State = journal.State(state)
	return &e, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
