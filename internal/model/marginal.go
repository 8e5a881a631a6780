package model

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// uniformEps keeps probabilities away from 0 and 1 so normal quantiles stay finite.
const uniformEps = 1e-6

func clampUnit(u float64) float64 {
	return math.Min(math.Max(u, uniformEps), 1-uniformEps)
}

// marginal maps non-null cells of one column to (0,1) and back.
type marginal interface {
	cdf(v table.Value) float64
	quantile(u float64) table.Value
}

// fitMarginal returns the marginal for a modeled column, or nil when the
// column has no usable values.
func fitMarginal(cm ColumnMeta, values []table.Value, parametric bool) marginal {
	switch cm.Type {
	case SDTypeNumerical, SDTypeDatetime:
		m := fitNumeric(cm, values, parametric)
		if m == nil {
			return fitCategorical(values)
		}
		return m
	default:
		return fitCategorical(values)
	}
}

// numeric models numerical and datetime columns. Datetimes are handled as
// Unix seconds and formatted back with their layout.
type numeric struct {
	sorted     []float64
	min, max   float64
	normal     distuv.Normal
	parametric bool
	integer    bool
	decimals   int
	layout     string
}

func fitNumeric(cm ColumnMeta, values []table.Value, parametric bool) *numeric {
	m := &numeric{parametric: parametric, integer: cm.Integer, layout: cm.Layout}
	for _, v := range values {
		x, ok := m.toFloat(v)
		if !ok {
			continue
		}
		m.sorted = append(m.sorted, x)
		if d := decimalsOf(v); d > m.decimals {
			m.decimals = d
		}
	}
	if len(m.sorted) == 0 {
		return nil
	}
	sort.Float64s(m.sorted)
	m.min, m.max = m.sorted[0], m.sorted[len(m.sorted)-1]

	mean, std := stat.MeanStdDev(m.sorted, nil)
	if math.IsNaN(std) || std == 0 {
		std = 0
	}
	m.normal = distuv.Normal{Mu: mean, Sigma: std}
	return m
}

func (m *numeric) toFloat(v table.Value) (float64, bool) {
	if m.layout == "" {
		return v.Float()
	}
	s, ok := v.Text()
	if !ok {
		return 0, false
	}
	ts, err := time.Parse(m.layout, strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return float64(ts.Unix()), true
}

func (m *numeric) cdf(v table.Value) float64 {
	x, ok := m.toFloat(v)
	if !ok {
		return 0.5
	}
	if m.parametric {
		if m.normal.Sigma == 0 {
			return 0.5
		}
		return clampUnit(m.normal.CDF(x))
	}
	// Mid-rank of x among the observations, scaled into (0,1).
	lo := sort.SearchFloat64s(m.sorted, x)
	hi := sort.Search(len(m.sorted), func(i int) bool { return m.sorted[i] > x })
	return clampUnit(float64(lo+hi+1) / float64(2*(len(m.sorted)+1)))
}

func (m *numeric) quantile(u float64) table.Value {
	u = clampUnit(u)
	var x float64
	if m.parametric {
		if m.normal.Sigma == 0 {
			x = m.normal.Mu
		} else {
			x = m.normal.Quantile(u)
		}
	} else {
		x = stat.Quantile(u, stat.LinInterp, m.sorted, nil)
	}
	return m.value(math.Min(math.Max(x, m.min), m.max))
}

// value converts a model-space float back to a cell of the column's kind.
func (m *numeric) value(x float64) table.Value {
	if m.layout != "" {
		return table.String(time.Unix(int64(math.Round(x)), 0).UTC().Format(m.layout))
	}
	if m.integer {
		return table.Int(int64(math.Round(x)))
	}
	p := math.Pow(10, float64(m.decimals))
	return table.Float(math.Round(x*p) / p)
}

// decimalsOf counts the digits after the decimal point of a float cell,
// capped at 6.
func decimalsOf(v table.Value) int {
	if v.Kind() != table.KindFloat {
		return 0
	}
	s := v.String()
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return min(len(s)-i-1, 6)
}

// categorical assigns each category an interval of [0,1) proportional to its
// frequency, most frequent first.
type categorical struct {
	values []table.Value
	upper  []float64
	index  map[string]int
}

func fitCategorical(values []table.Value) *categorical {
	counts := make(map[string]int)
	first := make(map[string]table.Value)
	var order []string
	total := 0
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		k := cellKey(v)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
			first[k] = v
		}
		counts[k]++
		total++
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	c := &categorical{index: make(map[string]int, len(order))}
	cum := 0
	for i, k := range order {
		cum += counts[k]
		c.values = append(c.values, first[k])
		c.upper = append(c.upper, float64(cum)/float64(total))
		c.index[k] = i
	}
	return c
}

func (c *categorical) cdf(v table.Value) float64 {
	i, ok := c.index[cellKey(v)]
	if !ok {
		return 0.5
	}
	lo := 0.0
	if i > 0 {
		lo = c.upper[i-1]
	}
	return clampUnit((lo + c.upper[i]) / 2)
}

func (c *categorical) quantile(u float64) table.Value {
	if len(c.values) == 0 {
		return table.Null()
	}
	i := sort.Search(len(c.upper), func(i int) bool { return c.upper[i] > u })
	if i >= len(c.values) {
		i = len(c.values) - 1
	}
	return c.values[i]
}

// cellKey identifies a cell by kind and text so 1 and "1" stay distinct.
func cellKey(v table.Value) string {
	return strconv.Itoa(int(v.Kind())) + ":" + v.String()
}
