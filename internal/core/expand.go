package core

// expand.go implements the dataset expansion pipeline: clean the uploaded
// table, fit a model, fill gaps, then extend with sampled rows or truncate
// to the requested row count.

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/JonMunkholm/datapoint/internal/model"
	"github.com/JonMunkholm/datapoint/internal/synth"
	"github.com/JonMunkholm/datapoint/internal/table"
)

// ErrInvalidRowCount is returned when the requested row count is not positive
// or above the configured maximum.
var ErrInvalidRowCount = errors.New("invalid row count")

// ErrInvalidStrategy is returned for unknown fill strategies.
var ErrInvalidStrategy = errors.New("invalid fill strategy")

// Strategy selects how missing cells of the uploaded rows are filled.
type Strategy string

const (
	// StrategySynthetic fills every missing or placeholder cell from the
	// column-name rules.
	StrategySynthetic Strategy = "synthetic"

	// StrategyObserved fills missing cells from model samples and replaces
	// placeholders in sampled rows with values seen in the upload. Whatever
	// is left falls through to the column-name rules.
	StrategyObserved Strategy = "observed"
)

// ParseStrategy resolves a case-insensitive strategy name. Empty means synthetic.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategySynthetic:
		return StrategySynthetic, nil
	case StrategyObserved:
		return StrategyObserved, nil
	default:
		return "", fmt.Errorf("%w: %q (use synthetic or observed)", ErrInvalidStrategy, s)
	}
}

// idColumn is the identifier column renumbered after expansion.
const idColumn = "id"

// ExpandOptions controls one expansion.
type ExpandOptions struct {
	Rows     int
	Model    model.Type
	Strategy Strategy
	// Seed seeds the model and the observed-value picker. Zero seeds from the clock.
	Seed int64
}

// ExpandResult is the output table with what happened along the way.
type ExpandResult struct {
	Table      *table.Table
	Metadata   model.Metadata
	Report     synth.Report
	InputRows  int
	Sampled    int
	Duplicates int
}

// Expander turns an uploaded table into an output table of the requested size.
type Expander struct {
	reconciler *synth.Reconciler
}

// NewExpander returns an Expander that reconciles cells with r.
func NewExpander(r *synth.Reconciler) *Expander {
	return &Expander{reconciler: r}
}

// Expand cleans, fits, fills and resizes in. The input table is not modified.
//
// With zero input rows every cell of every output row is synthesized from
// its column name and no model is trained.
func (e *Expander) Expand(ctx context.Context, in *table.Table, opts ExpandOptions) (*ExpandResult, error) {
	if opts.Rows < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRowCount, opts.Rows)
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategySynthetic
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	var (
		res *ExpandResult
		err error
	)
	if in.Len() == 0 {
		res = e.fromHeader(in, opts.Rows)
	} else {
		res, err = e.fromRows(ctx, in, opts)
		if err != nil {
			return nil, err
		}
	}

	if col := res.Table.FindColumn(idColumn); col >= 0 {
		res.Table.Renumber(col, 1)
		res.Duplicates = res.Table.DropDuplicates()
	}
	return res, nil
}

// fromHeader synthesizes rows using only the column names. Each row gets a
// random gender hint so its gender and name columns agree.
func (e *Expander) fromHeader(in *table.Table, rows int) *ExpandResult {
	out := table.New(in.Columns)
	res := &ExpandResult{Table: out}
	s := e.reconciler.Synthesizer()
	for i := 0; i < rows; i++ {
		row := make([]table.Value, out.Width())
		res.Report.Add(e.reconciler.ReconcileRow(out.Columns, row, s.RandomGender()))
		out.Rows = append(out.Rows, row)
	}
	return res
}

func (e *Expander) fromRows(ctx context.Context, in *table.Table, opts ExpandOptions) (*ExpandResult, error) {
	work := normalizeSentinels(in)
	md := model.DetectMetadata(work)
	res := &ExpandResult{Metadata: md, InputRows: work.Len()}

	m := model.New(opts.Model, md, opts.Seed)
	if err := m.Fit(work.DropEmptyRows()); err != nil {
		return nil, fmt.Errorf("fit model %s: %w", opts.Model, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	filled := work.Clone()
	if opts.Strategy == StrategyObserved {
		if err := fillFromSamples(filled, m, rng); err != nil {
			return nil, err
		}
	}
	res.Report.Add(e.reconciler.Reconcile(filled))

	if opts.Rows <= filled.Len() {
		res.Table = filled.Head(opts.Rows)
		return res, nil
	}

	extra, err := m.Sample(opts.Rows - filled.Len())
	if err != nil {
		return nil, fmt.Errorf("sample model: %w", err)
	}
	res.Sampled = extra.Len()

	if col := work.FindColumn(idColumn); col >= 0 {
		hi, _ := work.MaxNumeric(col)
		extra.Renumber(col, hi+1)
	}
	if opts.Strategy == StrategyObserved {
		replaceWithObserved(extra, work, rng)
	}
	res.Report.Add(e.reconciler.Reconcile(extra))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	combined, err := filled.Concat(extra)
	if err != nil {
		return nil, err
	}
	res.Table = combined
	return res, nil
}

// normalizeSentinels returns a copy of t with sentinel strings such as "-"
// and "nan" turned into nulls.
func normalizeSentinels(t *table.Table) *table.Table {
	c := t.Clone()
	for _, row := range c.Rows {
		for j, v := range row {
			if synth.IsSentinel(v) {
				row[j] = table.Null()
			}
		}
	}
	return c
}

// fillFromSamples fills null cells of t, in row order, with the next usable
// sampled value of the same column. Null and placeholder samples are
// skipped. When a column's samples run out, an observed value of that column
// is drawn instead; columns with nothing observed keep their nulls for the
// reconciler.
func fillFromSamples(t *table.Table, m model.Model, rng *rand.Rand) error {
	missing := 0
	for _, row := range t.Rows {
		for _, v := range row {
			if v.IsNull() {
				missing++
			}
		}
	}
	if missing == 0 {
		return nil
	}

	filler, err := m.Sample(t.Len() * 2)
	if err != nil {
		return fmt.Errorf("sample model: %w", err)
	}
	observed := observedValues(t)

	cursor := make([]int, t.Width())
	for _, row := range t.Rows {
		for j, v := range row {
			if !v.IsNull() {
				continue
			}
			for cursor[j] < filler.Len() && synth.NeedsReplacement(filler.Rows[cursor[j]][j]) {
				cursor[j]++
			}
			if cursor[j] < filler.Len() {
				row[j] = filler.Rows[cursor[j]][j]
				cursor[j]++
				continue
			}
			if len(observed[j]) > 0 {
				row[j] = observed[j][rng.Intn(len(observed[j]))]
			}
		}
	}
	return nil
}

// observedValues returns, per column, the cells of t that need no
// replacement.
func observedValues(t *table.Table) [][]table.Value {
	observed := make([][]table.Value, t.Width())
	for j := range t.Columns {
		for _, v := range t.Column(j) {
			if !synth.NeedsReplacement(v) {
				observed[j] = append(observed[j], v)
			}
		}
	}
	return observed
}

// replaceWithObserved swaps privacy placeholders in sampled rows for a
// value drawn uniformly from the same column of the source table.
func replaceWithObserved(sampled, source *table.Table, rng *rand.Rand) {
	observed := observedValues(source)
	for _, row := range sampled.Rows {
		for j, v := range row {
			if !synth.IsPlaceholder(v) || len(observed[j]) == 0 {
				continue
			}
			row[j] = observed[j][rng.Intn(len(observed[j]))]
		}
	}
}
