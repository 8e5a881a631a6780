package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datapoint/internal/logging"
	"github.com/JonMunkholm/datapoint/internal/model"
	"github.com/JonMunkholm/datapoint/internal/synth"
	"github.com/JonMunkholm/datapoint/internal/tabular"
)

// ErrNoFile is returned when a request carries no upload.
var ErrNoFile = errors.New("no file provided")

// ErrFileTooLarge is returned when an upload exceeds the configured size.
var ErrFileTooLarge = errors.New("file too large")

// OutputDir is the subdirectory of the output root holding generated files,
// also the URL segment under /media.
const OutputDir = "synthetic"

// Options configures a Service.
type Options struct {
	// OutputRoot is the media root; files are written to OutputRoot/synthetic.
	OutputRoot string
	// BaseURL prefixes returned file URLs, e.g. "http://localhost:8080".
	BaseURL string
	// MaxRows caps the requested row count.
	MaxRows int
	// DefaultModel is used when a request names no model.
	DefaultModel model.Type
	// Seed fixes all randomness when non-zero.
	Seed int64
	// Timeout bounds a single generation after it acquires a slot.
	Timeout time.Duration
}

// DefaultMaxRows is used when Options.MaxRows is not set.
const DefaultMaxRows = 100000

// Service runs generation requests end to end: validate, read, expand,
// write and record.
type Service struct {
	opts     Options
	outDir   string
	expander *Expander
	limiter  *Limiter
	history  HistoryStore
}

// NewService creates the output directory and returns a Service.
func NewService(opts Options, reconciler *synth.Reconciler, limiter *Limiter, history HistoryStore) (*Service, error) {
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = model.Default
	}
	if history == nil {
		history = NewMemoryHistory(DefaultHistoryLimit)
	}
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxConcurrent, DefaultMaxWaitTime)
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	outDir := filepath.Join(opts.OutputRoot, OutputDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &Service{
		opts:     opts,
		outDir:   outDir,
		expander: NewExpander(reconciler),
		limiter:  limiter,
		history:  history,
	}, nil
}

// GenerateRequest is one upload to fill and resize.
type GenerateRequest struct {
	FileName     string
	Body         io.Reader
	Rows         int
	OutputFormat string
	Model        string
	Strategy     string
}

// GenerateResult describes a written output file.
type GenerateResult struct {
	RunID      string       `json:"runId"`
	URL        string       `json:"file"`
	FileName   string       `json:"fileName"`
	Path       string       `json:"-"`
	Rows       int          `json:"rows"`
	InputRows  int          `json:"inputRows"`
	Sampled    int          `json:"sampled"`
	Duplicates int          `json:"duplicates"`
	Model      model.Type   `json:"model"`
	Strategy   Strategy     `json:"strategy"`
	Report     synth.Report `json:"report"`
}

// Generate validates req, runs the pipeline and writes the output file.
// Every call is recorded in the history store, failures included; a failed
// call writes no file.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	start := time.Now()
	client := ClientFrom(ctx)
	run := Run{
		ID:            uuid.NewString(),
		SourceFile:    sourceName(req.FileName),
		RequestedRows: req.Rows,
		IPAddress:     client.IP,
		UserAgent:     client.UserAgent,
		CreatedAt:     start.UTC(),
	}
	logger := logging.WithFields(ctx, "run_id", run.ID, "file", run.SourceFile)

	res, err := s.generate(ctx, req, &run)

	run.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		logger.Warn("generation failed", "error", err, "duration_ms", run.DurationMs)
	} else {
		run.Status = RunSucceeded
		run.OutputFile = res.FileName
		run.OutputRows = res.Rows
		run.Replaced = res.Report.Replaced
		logger.Info("generation completed",
			"output", res.FileName,
			"rows", res.Rows,
			"input_rows", res.InputRows,
			"sampled", res.Sampled,
			"replaced", res.Report.Replaced,
			"duration_ms", run.DurationMs,
		)
	}

	if herr := s.history.Record(context.WithoutCancel(ctx), run); herr != nil {
		logger.Error("record run", "error", herr)
	}
	return res, err
}

func (s *Service) generate(ctx context.Context, req GenerateRequest, run *Run) (*GenerateResult, error) {
	if req.Body == nil || strings.TrimSpace(req.FileName) == "" {
		return nil, ErrNoFile
	}
	inFmt, err := tabular.InputFormat(req.FileName)
	if err != nil {
		return nil, err
	}
	outFmt, err := tabular.ParseOutputFormat(req.OutputFormat)
	if err != nil {
		return nil, err
	}
	run.OutputFormat = string(outFmt)

	if req.Rows < 1 || req.Rows > s.opts.MaxRows {
		return nil, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidRowCount, req.Rows, s.opts.MaxRows)
	}
	strategy, err := ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	run.Strategy = string(strategy)

	mt := s.opts.DefaultModel
	if strings.TrimSpace(req.Model) != "" {
		mt = model.ParseType(req.Model)
	}
	run.Model = string(mt)

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	in, err := tabular.Read(req.Body, inFmt)
	if err != nil {
		return nil, err
	}
	run.InputRows = in.Len()

	exp, err := s.expander.Expand(ctx, in, ExpandOptions{
		Rows:     req.Rows,
		Model:    mt,
		Strategy: strategy,
		Seed:     s.opts.Seed,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := tabular.OutputName(req.FileName, outFmt)
	path := filepath.Join(s.outDir, name)
	if err := tabular.WriteFile(path, exp.Table, outFmt); err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}

	return &GenerateResult{
		RunID:      run.ID,
		URL:        s.FileURL(name),
		FileName:   name,
		Path:       path,
		Rows:       exp.Table.Len(),
		InputRows:  exp.InputRows,
		Sampled:    exp.Sampled,
		Duplicates: exp.Duplicates,
		Model:      mt,
		Strategy:   strategy,
		Report:     exp.Report,
	}, nil
}

func sourceName(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	return tabular.BaseName(name)
}

// FileURL returns the public URL of a generated file.
func (s *Service) FileURL(name string) string {
	return s.opts.BaseURL + "/media/" + OutputDir + "/" + url.PathEscape(name)
}

// OutputPath returns the directory generated files are written to.
func (s *Service) OutputPath() string { return s.outDir }

// History returns up to limit recent runs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Run, error) {
	return s.history.Recent(ctx, limit)
}

// Limiter exposes the concurrency limiter for health checks and shutdown.
func (s *Service) Limiter() *Limiter { return s.limiter }

// MaxRows returns the largest row count a request may ask for.
func (s *Service) MaxRows() int { return s.opts.MaxRows }

// IsClientError reports whether err was caused by the request rather than
// the server: bad files, bad parameters.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var clientErrors = []error{
	ErrNoFile,
	ErrFileTooLarge,
	ErrInvalidRowCount,
	ErrInvalidStrategy,
	tabular.ErrUnsupportedInputFormat,
	tabular.ErrUnsupportedOutputFormat,
	tabular.ErrEmptyFile,
	tabular.ErrInvalidCSV,
	tabular.ErrInvalidSpreadsheet,
}

// IsBusy reports whether err means no generation slot was available.
func IsBusy(err error) bool {
	return errors.Is(err, ErrTooManyGenerations)
}
