package core

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runIDs(runs []Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

func TestMemoryHistory_NewestFirst(t *testing.T) {
	h := NewMemoryHistory(5)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, h.Record(ctx, Run{ID: fmt.Sprint(i)}))
	}

	runs, err := h.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, runIDs(runs))

	runs, err = h.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, runIDs(runs))
}

func TestMemoryHistory_Wraps(t *testing.T) {
	h := NewMemoryHistory(3)
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		require.NoError(t, h.Record(ctx, Run{ID: fmt.Sprint(i)}))
	}

	runs, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "6", "5"}, runIDs(runs))
}

func TestMemoryHistory_Empty(t *testing.T) {
	runs, err := NewMemoryHistory(0).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

// TestPGHistory runs against a real database when TEST_DATABASE_URL is set.
func TestPGHistory(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	h := NewPGHistory(pool)
	require.NoError(t, h.EnsureSchema(ctx))

	run := Run{
		ID:            uuid.NewString(),
		SourceFile:    "people.csv",
		OutputFile:    "people_cleaned_synthetic.csv",
		OutputFormat:  "csv",
		Model:         "ctgan",
		Strategy:      "synthetic",
		RequestedRows: 10,
		InputRows:     3,
		OutputRows:    10,
		Replaced:      12,
		Status:        RunSucceeded,
		DurationMs:    42,
		CreatedAt:     time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, h.Record(ctx, run))
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, "DELETE FROM generation_runs WHERE id = $1", toPGRun(run).ID)
	})

	runs, err := h.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.OutputFile, got.OutputFile)
	assert.Equal(t, run.Replaced, got.Replaced)
	assert.Equal(t, run.Status, got.Status)
	assert.Empty(t, got.Error)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
}
