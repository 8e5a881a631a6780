package core

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// pgRun is a Run in the column order of the generation_runs table. Optional
// text columns are NULL when blank.
type pgRun struct {
	ID           pgtype.UUID
	SourceFile   string
	OutputFile   pgtype.Text
	OutputFormat pgtype.Text
	Model        pgtype.Text
	Strategy     pgtype.Text
	Requested    int32
	Input        int32
	Output       int32
	Replaced     int32
	Status       string
	Error        pgtype.Text
	DurationMs   int64
	IPAddress    pgtype.Text
	UserAgent    pgtype.Text
	CreatedAt    pgtype.Timestamptz
}

func toPGRun(run Run) pgRun {
	r := pgRun{
		SourceFile:   run.SourceFile,
		OutputFile:   optionalText(run.OutputFile),
		OutputFormat: optionalText(run.OutputFormat),
		Model:        optionalText(run.Model),
		Strategy:     optionalText(run.Strategy),
		Requested:    int32(run.RequestedRows),
		Input:        int32(run.InputRows),
		Output:       int32(run.OutputRows),
		Replaced:     int32(run.Replaced),
		Status:       string(run.Status),
		Error:        optionalText(run.Error),
		DurationMs:   run.DurationMs,
		IPAddress:    optionalText(run.IPAddress),
		UserAgent:    optionalText(run.UserAgent),
	}
	if id, err := uuid.Parse(run.ID); err == nil {
		r.ID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if !run.CreatedAt.IsZero() {
		r.CreatedAt = pgtype.Timestamptz{Time: run.CreatedAt, Valid: true}
	}
	return r
}

// args lists r's fields as insertRun parameters.
func (r *pgRun) args() []any {
	return []any{
		r.ID, r.SourceFile, r.OutputFile, r.OutputFormat, r.Model, r.Strategy,
		r.Requested, r.Input, r.Output, r.Replaced,
		r.Status, r.Error, r.DurationMs, r.IPAddress, r.UserAgent, r.CreatedAt,
	}
}

// dest lists pointers to r's fields for scanning a selectRecentRuns row.
func (r *pgRun) dest() []any {
	return []any{
		&r.ID, &r.SourceFile, &r.OutputFile, &r.OutputFormat, &r.Model, &r.Strategy,
		&r.Requested, &r.Input, &r.Output, &r.Replaced,
		&r.Status, &r.Error, &r.DurationMs, &r.IPAddress, &r.UserAgent, &r.CreatedAt,
	}
}

func (r *pgRun) run() Run {
	run := Run{
		SourceFile:    r.SourceFile,
		OutputFile:    r.OutputFile.String,
		OutputFormat:  r.OutputFormat.String,
		Model:         r.Model.String,
		Strategy:      r.Strategy.String,
		RequestedRows: int(r.Requested),
		InputRows:     int(r.Input),
		OutputRows:    int(r.Output),
		Replaced:      int(r.Replaced),
		Status:        RunStatus(r.Status),
		Error:         r.Error.String,
		DurationMs:    r.DurationMs,
		IPAddress:     r.IPAddress.String,
		UserAgent:     r.UserAgent.String,
	}
	if r.ID.Valid {
		run.ID = uuid.UUID(r.ID.Bytes).String()
	}
	if r.CreatedAt.Valid {
		run.CreatedAt = r.CreatedAt.Time
	}
	return run
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	return pgtype.Text{String: s, Valid: s != ""}
}
