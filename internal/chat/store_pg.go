package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// pgBackend stores one row per conversation with the transcript as
// jsonb. Schema is created lazily on first use.
type pgBackend struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func newPGBackend(dsn string) (*pgBackend, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("chat: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("chat: connect postgres: %w", err)
	}
	return &pgBackend{db: db}, nil
}

func (p *pgBackend) ensureSchema(ctx context.Context) error {
	p.schemaOnce.Do(func() {
		_, p.schemaErr = p.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS transcripts (
				key        text PRIMARY KEY,
				data       jsonb NOT NULL,
				updated_at timestamptz NOT NULL DEFAULT now()
			)`)
	})
	return p.schemaErr
}

func (p *pgBackend) get(ctx context.Context, key string) (*Transcript, bool, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, false, err
	}
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM transcripts WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var tr Transcript
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, false, err
	}
	return &tr, true, nil
}

func (p *pgBackend) put(ctx context.Context, key string, tr *Transcript) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	raw, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO transcripts (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		key, raw)
	return err
}

func (p *pgBackend) close() error { return p.db.Close() }
