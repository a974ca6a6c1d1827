package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pevans/listwatch/record"
)

// PostgresBackend keeps one JSONB row per record in PostgreSQL.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to dsn and creates the tables if needed.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	backend := &PostgresBackend{pool: pool}
	if err := backend.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return backend, nil
}

func (b *PostgresBackend) initSchema(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		body JSONB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		saved_at TIMESTAMPTZ NOT NULL
	);
	`)
	return err
}

// Load reads every record row. A database that was never saved to returns
// ErrNoState.
func (b *PostgresBackend) Load(ctx context.Context) (map[string]record.Record, error) {
	var exists bool
	err := b.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM snapshot WHERE id = 1)`).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	if !exists {
		return nil, ErrNoState
	}

	rows, err := b.pool.Query(ctx, `SELECT id, body FROM records`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]record.Record)
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		var r record.Record
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
		}
		records[id] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

// Save replaces all rows inside one transaction, sending the inserts as a
// single batch.
func (b *PostgresBackend) Save(ctx context.Context, records map[string]record.Record) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	batch := &pgx.Batch{}
	for id, r := range records {
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", id, err)
		}
		batch.Queue(`INSERT INTO records (id, body) VALUES ($1, $2)`, id, string(body))
	}
	batch.Queue(`INSERT INTO snapshot (id, saved_at) VALUES (1, now())
		ON CONFLICT (id) DO UPDATE SET saved_at = EXCLUDED.saved_at`)

	results := tx.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert records: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
