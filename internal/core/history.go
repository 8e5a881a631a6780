package core

// history.go records one Run per generation request. Runs are kept in
// PostgreSQL when a database is configured (see history_pg.go) and in a
// bounded in-memory ring otherwise.

import (
	"context"
	"sync"
	"time"
)

// RunStatus is the outcome of a generation.
type RunStatus string

const (
	RunSucceeded RunStatus = "success"
	RunFailed    RunStatus = "failed"
)

// Run describes one generation request.
type Run struct {
	ID            string    `json:"id"`
	SourceFile    string    `json:"sourceFile"`
	OutputFile    string    `json:"outputFile,omitempty"`
	OutputFormat  string    `json:"outputFormat,omitempty"`
	Model         string    `json:"model,omitempty"`
	Strategy      string    `json:"strategy,omitempty"`
	RequestedRows int       `json:"requestedRows"`
	InputRows     int       `json:"inputRows"`
	OutputRows    int       `json:"outputRows"`
	Replaced      int       `json:"replaced"`
	Status        RunStatus `json:"status"`
	Error         string    `json:"error,omitempty"`
	DurationMs    int64     `json:"durationMs"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DefaultHistoryLimit is how many runs Recent returns when asked for zero.
const DefaultHistoryLimit = 50

// HistoryStore persists generation runs.
type HistoryStore interface {
	Record(ctx context.Context, run Run) error
	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// MemoryHistory keeps the most recent runs in a fixed-size ring.
type MemoryHistory struct {
	mu   sync.Mutex
	buf  []Run
	next int
	full bool
}

// NewMemoryHistory returns a ring holding at most capacity runs.
func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &MemoryHistory{buf: make([]Run, capacity)}
}

func (h *MemoryHistory) Record(_ context.Context, run Run) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = run
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
	return nil
}

func (h *MemoryHistory) Recent(_ context.Context, limit int) ([]Run, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := h.next
	if h.full {
		size = len(h.buf)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, size)

	out := make([]Run, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out, nil
}
