package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sentiment-algo-trader/internal/model"

	_ "github.com/lib/pq"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS trader_position (
	symbol     TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresStore 每个标的一行
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres store requires a DSN")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := NewPostgresStoreFromDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreFromDB 复用已有连接并确保表存在
func NewPostgresStoreFromDB(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("initialize position schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Load(ctx context.Context, symbol string) (model.PositionState, error) {
	var state string
	err := p.db.QueryRowContext(ctx,
		`SELECT state FROM trader_position WHERE symbol = $1`, symbol).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StateFlat, nil
	}
	if err != nil {
		return model.StateFlat, fmt.Errorf("load position state for %s: %w", symbol, err)
	}
	return model.ParsePositionState(state)
}

func (p *PostgresStore) Save(ctx context.Context, symbol string, state model.PositionState) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO trader_position (symbol, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (symbol) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		symbol, state.String())
	if err != nil {
		return fmt.Errorf("save position state for %s: %w", symbol, err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
