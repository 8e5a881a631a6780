// Package model fits small generative models to a table and samples new
// rows from them.
//
// Three model types are available. The two copula models transform every
// column to a normal score through its marginal distribution, estimate the
// correlation between scores and draw correlated samples through a Cholesky
// factor. The conditional model resamples observed rows, balancing the
// categories of a randomly chosen discrete column, and jitters their
// numeric cells.
package model

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// Type names a model implementation.
type Type string

const (
	Gaussian  Type = "gaussian"
	CopulaGAN Type = "copulagan"
	CTGAN     Type = "ctgan"
)

// Default is used for unknown model names.
const Default = CopulaGAN

// Types lists the known model types.
var Types = []Type{CopulaGAN, Gaussian, CTGAN}

// ErrNoRows is returned when fitting a table without rows.
var ErrNoRows = errors.New("cannot fit a model on zero rows")

// ErrNotFitted is returned when sampling before Fit.
var ErrNotFitted = errors.New("model has not been fitted")

// Lookup resolves a case-insensitive model name.
func Lookup(name string) (Type, bool) {
	want := Type(strings.ToLower(strings.TrimSpace(name)))
	for _, t := range Types {
		if t == want {
			return t, true
		}
	}
	return "", false
}

// ParseType resolves a model name, falling back to Default for unknown names.
func ParseType(name string) Type {
	if t, ok := Lookup(name); ok {
		return t
	}
	return Default
}

// Model is a fitted generative model over one table layout.
type Model interface {
	// Fit learns the column distributions of t. t must have at least one row
	// and the columns described by the model's metadata.
	Fit(t *table.Table) error

	// Sample draws n new rows with the fitted table's columns.
	Sample(n int) (*table.Table, error)

	Type() Type
}

// New returns an unfitted model of the given type. A zero seed seeds from
// the clock.
func New(typ Type, md Metadata, seed int64) Model {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	b := base{md: md, rng: rand.New(rand.NewSource(seed))}

	switch typ {
	case Gaussian:
		return &copula{base: b, typ: Gaussian, parametric: true}
	case CTGAN:
		return &conditional{base: b}
	default:
		return &copula{base: b, typ: CopulaGAN}
	}
}

// base holds what every model shares: metadata, the random source and the
// per-column null rates.
type base struct {
	md       Metadata
	rng      *rand.Rand
	columns  []string
	nullRate []float64
	fitted   bool
}

func (b *base) fitCommon(t *table.Table) error {
	if t.Len() == 0 {
		return ErrNoRows
	}
	if len(b.md.Columns) != t.Width() {
		return fmt.Errorf("metadata has %d columns, table has %d", len(b.md.Columns), t.Width())
	}
	for i, c := range b.md.Columns {
		if c.Name != t.Columns[i] {
			return fmt.Errorf("metadata column %d is %q, table has %q", i, c.Name, t.Columns[i])
		}
	}

	b.columns = append([]string(nil), t.Columns...)
	b.nullRate = make([]float64, t.Width())
	for j := range t.Columns {
		nulls := 0
		for _, row := range t.Rows {
			if row[j].IsNull() {
				nulls++
			}
		}
		b.nullRate[j] = float64(nulls) / float64(t.Len())
	}
	return nil
}

func (b *base) checkSample(n int) error {
	if !b.fitted {
		return ErrNotFitted
	}
	if n < 0 {
		return fmt.Errorf("sample size must not be negative, got %d", n)
	}
	return nil
}

// placeholder returns a privacy placeholder such as "sdv-pii-0a3f9".
func (b *base) placeholder() table.Value {
	return table.String(fmt.Sprintf("sdv-pii-%05x", b.rng.Intn(1<<20)))
}

// isNull draws whether column j is null in a sampled row.
func (b *base) isNull(j int) bool {
	return b.nullRate[j] > 0 && b.rng.Float64() < b.nullRate[j]
}

// fillFixed sets the id and pii cells of a sampled row.
func (b *base) fillFixed(row []table.Value, seq int) {
	for j, c := range b.md.Columns {
		switch c.Type {
		case SDTypeID:
			row[j] = table.Int(int64(seq))
		case SDTypePII:
			if b.isNull(j) {
				row[j] = table.Null()
			} else {
				row[j] = b.placeholder()
			}
		}
	}
}
