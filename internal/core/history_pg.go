package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS generation_runs (
	id             UUID PRIMARY KEY,
	source_file    TEXT NOT NULL,
	output_file    TEXT,
	output_format  TEXT,
	model          TEXT,
	strategy       TEXT,
	requested_rows INTEGER NOT NULL DEFAULT 0,
	input_rows     INTEGER NOT NULL DEFAULT 0,
	output_rows    INTEGER NOT NULL DEFAULT 0,
	replaced_cells INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL,
	error          TEXT,
	duration_ms    BIGINT NOT NULL DEFAULT 0,
	ip_address     TEXT,
	user_agent     TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS generation_runs_created_at_idx ON generation_runs (created_at DESC);
`

const insertRun = `
INSERT INTO generation_runs (
	id, source_file, output_file, output_format, model, strategy,
	requested_rows, input_rows, output_rows, replaced_cells,
	status, error, duration_ms, ip_address, user_agent, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const selectRecentRuns = `
SELECT id, source_file, output_file, output_format, model, strategy,
	requested_rows, input_rows, output_rows, replaced_cells,
	status, error, duration_ms, ip_address, user_agent, created_at
FROM generation_runs
ORDER BY created_at DESC
LIMIT $1`

// PGHistory stores runs in the generation_runs table.
type PGHistory struct {
	pool *pgxpool.Pool
}

// NewPGHistory returns a store backed by pool. Call EnsureSchema once at
// startup before recording runs.
func NewPGHistory(pool *pgxpool.Pool) *PGHistory {
	return &PGHistory{pool: pool}
}

// EnsureSchema creates the runs table and its index if they do not exist.
func (h *PGHistory) EnsureSchema(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, createRunsTable); err != nil {
		return fmt.Errorf("create generation_runs: %w", err)
	}
	return nil
}

func (h *PGHistory) Record(ctx context.Context, run Run) error {
	row := toPGRun(run)
	if _, err := h.pool.Exec(ctx, insertRun, row.args()...); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (h *PGHistory) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := h.pool.Query(ctx, selectRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var row pgRun
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, row.run())
	}
	return runs, rows.Err()
}
