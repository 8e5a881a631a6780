package model

import (
	"math"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// jitterScale is the fraction of a column's standard deviation used as the
// noise applied to resampled numeric cells.
const jitterScale = 0.1

// conditional resamples training rows. Each sampled row first picks a
// discrete column and a category of it, weighted by log frequency so rare
// categories are not drowned out, then copies a random training row with
// that category and jitters its numeric cells.
type conditional struct {
	base

	rows     [][]table.Value
	discrete []discreteColumn
	numerics []numericColumn
}

type numericColumn struct {
	col int
	m   *numeric
}

type discreteColumn struct {
	col     int
	weights []float64 // cumulative, normalized
	rows    [][]int   // training row indices per category
}

func (c *conditional) Type() Type { return CTGAN }

func (c *conditional) Fit(t *table.Table) error {
	if err := c.fitCommon(t); err != nil {
		return err
	}

	c.rows = make([][]table.Value, t.Len())
	for i, row := range t.Rows {
		c.rows[i] = append([]table.Value(nil), row...)
	}

	c.discrete = c.discrete[:0]
	c.numerics = c.numerics[:0]
	for j, cm := range c.md.Columns {
		switch cm.Type {
		case SDTypeCategorical, SDTypeBoolean:
			if d, ok := fitDiscrete(j, t); ok {
				c.discrete = append(c.discrete, d)
			}
		case SDTypeNumerical, SDTypeDatetime:
			if m := fitNumeric(cm, t.Column(j), true); m != nil {
				c.numerics = append(c.numerics, numericColumn{col: j, m: m})
			}
		}
	}

	c.fitted = true
	return nil
}

func fitDiscrete(col int, t *table.Table) (discreteColumn, bool) {
	index := make(map[string]int)
	var groups [][]int
	for i, row := range t.Rows {
		v := row[col]
		if v.IsNull() {
			continue
		}
		k := cellKey(v)
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	if len(groups) == 0 {
		return discreteColumn{}, false
	}

	d := discreteColumn{col: col, rows: groups, weights: make([]float64, len(groups))}
	total := 0.0
	for g, rows := range groups {
		total += math.Log1p(float64(len(rows)))
		d.weights[g] = total
	}
	for g := range d.weights {
		d.weights[g] /= total
	}
	return d, true
}

func (c *conditional) Sample(n int) (*table.Table, error) {
	if err := c.checkSample(n); err != nil {
		return nil, err
	}

	out := table.New(c.columns)
	for i := 0; i < n; i++ {
		src := c.rows[c.pickRow()]
		row := append([]table.Value(nil), src...)

		for _, nc := range c.numerics {
			j, m := nc.col, nc.m
			if row[j].IsNull() {
				continue
			}
			x, ok := m.toFloat(row[j])
			if !ok {
				continue
			}
			if m.normal.Sigma > 0 {
				x += c.rng.NormFloat64() * m.normal.Sigma * jitterScale
			}
			row[j] = m.value(math.Min(math.Max(x, m.min), m.max))
		}

		c.fillFixed(row, i+1)
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// pickRow returns the index of the training row to copy.
func (c *conditional) pickRow() int {
	if len(c.discrete) == 0 {
		return c.rng.Intn(len(c.rows))
	}
	d := c.discrete[c.rng.Intn(len(c.discrete))]

	u := c.rng.Float64()
	g := 0
	for g < len(d.weights)-1 && d.weights[g] <= u {
		g++
	}
	rows := d.rows[g]
	return rows[c.rng.Intn(len(rows))]
}
