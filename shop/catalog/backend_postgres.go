package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const configRowID = 1

// PostgresBackend stores the document as a single jsonb row in bot_config.
// The table is created by the bot_config migration.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend wraps an open connection pool.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Name implements Backend.
func (p *PostgresBackend) Name() string { return "postgres" }

// Read implements Backend.
func (p *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	var doc []byte
	err := p.db.GetContext(ctx, &doc, `SELECT doc FROM bot_config WHERE id = $1`, configRowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select bot_config: %w", err)
	}
	return doc, nil
}

// Write implements Backend.
func (p *PostgresBackend) Write(ctx context.Context, data []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bot_config (id, doc, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		configRowID, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert bot_config: %w", err)
	}
	return nil
}
