package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// ridge is added to the correlation diagonal before factorizing so nearly
// collinear columns still yield a positive definite matrix.
const ridge = 1e-6

// copula is a Gaussian copula. With parametric marginals every numeric
// column is modeled as a normal clipped to its observed range; otherwise
// marginals are the empirical distributions.
type copula struct {
	base
	typ        Type
	parametric bool

	// active are the indices of modeled columns; id and pii are not modeled.
	active    []int
	marginals []marginal
	chol      *mat.TriDense
}

func (c *copula) Type() Type { return c.typ }

func (c *copula) Fit(t *table.Table) error {
	if err := c.fitCommon(t); err != nil {
		return err
	}

	c.active = c.active[:0]
	c.marginals = c.marginals[:0]
	for j, cm := range c.md.Columns {
		if cm.Type == SDTypeID || cm.Type == SDTypePII {
			continue
		}
		c.active = append(c.active, j)
		c.marginals = append(c.marginals, fitMarginal(cm, t.Column(j), c.parametric))
	}

	c.chol = nil
	if k := len(c.active); k > 0 {
		c.chol = c.factor(t)
	}
	c.fitted = true
	return nil
}

// factor estimates the correlation of normal scores and returns its lower
// Cholesky factor, or the identity when the matrix cannot be factorized.
func (c *copula) factor(t *table.Table) *mat.TriDense {
	k := len(c.active)
	n := t.Len()

	scores := mat.NewDense(n, k, nil)
	for i, row := range t.Rows {
		for a, j := range c.active {
			z := 0.0
			if v := row[j]; !v.IsNull() {
				z = distuv.UnitNormal.Quantile(c.marginals[a].cdf(v))
			}
			scores.Set(i, a, z)
		}
	}

	corr := mat.NewSymDense(k, nil)
	if n > 1 {
		stat.CorrelationMatrix(corr, scores, nil)
	}
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			v := corr.At(a, b)
			switch {
			case a == b:
				v = 1 + ridge
			case math.IsNaN(v) || math.IsInf(v, 0):
				v = 0
			}
			corr.SetSym(a, b, v)
		}
	}

	var chol mat.Cholesky
	L := mat.NewTriDense(k, mat.Lower, nil)
	if chol.Factorize(corr) {
		chol.LTo(L)
		return L
	}
	for a := 0; a < k; a++ {
		L.SetTri(a, a, 1)
	}
	return L
}

func (c *copula) Sample(n int) (*table.Table, error) {
	if err := c.checkSample(n); err != nil {
		return nil, err
	}

	out := table.New(c.columns)
	k := len(c.active)
	z := mat.NewVecDense(max(k, 1), nil)
	x := mat.NewVecDense(max(k, 1), nil)

	for i := 0; i < n; i++ {
		row := make([]table.Value, len(c.columns))

		if k > 0 {
			for a := 0; a < k; a++ {
				z.SetVec(a, c.rng.NormFloat64())
			}
			x.MulVec(c.chol, z)
			for a, j := range c.active {
				u := distuv.UnitNormal.CDF(x.AtVec(a))
				row[j] = c.marginals[a].quantile(u)
			}
			for _, j := range c.active {
				if c.isNull(j) {
					row[j] = table.Null()
				}
			}
		}

		c.fillFixed(row, i+1)
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
