package auditrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/rihla/internal/domain/generation"
)

const schema = `
CREATE TABLE IF NOT EXISTS generation_audit (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	model       TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	extracted   BOOLEAN NOT NULL,
	truncated   BOOLEAN NOT NULL,
	raw_text    TEXT,
	image_key   TEXT,
	latency_ms  BIGINT NOT NULL,
	usage       JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS generation_audit_created_at_idx ON generation_audit (created_at DESC);
`

// PostgresRepository implements generation.AuditLog using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the audit table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create generation_audit: %w", err)
	}
	return nil
}

// Record inserts one entry.
func (r *PostgresRepository) Record(ctx context.Context, entry generation.AuditEntry) error {
	usage, err := json.Marshal(entry.Usage)
	if err != nil {
		return fmt.Errorf("encode usage: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO generation_audit (id, kind, model, outcome, extracted, truncated, raw_text, image_key, latency_ms, usage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11)
	`, entry.ID, string(entry.Kind), entry.Model, entry.Outcome, entry.Extracted, entry.Truncated,
		entry.RawText, entry.ImageKey, entry.LatencyMs, usage, entry.CreatedAt)
	return err
}

// Recent returns the newest entries first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]generation.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, model, outcome, extracted, truncated, COALESCE(raw_text, ''), COALESCE(image_key, ''), latency_ms, usage, created_at
		FROM generation_audit
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]generation.AuditEntry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func scanEntry(rows pgx.Rows) (generation.AuditEntry, error) {
	var (
		entry generation.AuditEntry
		kind  string
		usage []byte
	)
	if err := rows.Scan(&entry.ID, &kind, &entry.Model, &entry.Outcome, &entry.Extracted, &entry.Truncated,
		&entry.RawText, &entry.ImageKey, &entry.LatencyMs, &usage, &entry.CreatedAt); err != nil {
		return generation.AuditEntry{}, err
	}
	entry.Kind = generation.Kind(kind)
	if len(usage) > 0 {
		if err := json.Unmarshal(usage, &entry.Usage); err != nil {
			return generation.AuditEntry{}, fmt.Errorf("decode usage: %w", err)
		}
	}
	return entry, nil
}

var _ generation.AuditLog = (*PostgresRepository)(nil)
