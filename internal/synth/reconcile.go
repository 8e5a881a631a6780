package synth

import (
	"sort"
	"strings"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// PlaceholderPrefix marks privacy placeholders emitted by generative models.
const PlaceholderPrefix = "sdv-pii"

// sentinels are the strings, after trimming and lowercasing, that stand for
// a missing value.
var sentinels = map[string]struct{}{
	"":     {},
	"-":    {},
	"?":    {},
	"nan":  {},
	"none": {},
	"null": {},
}

// IsSentinel reports whether v is a string that stands for a missing value.
func IsSentinel(v table.Value) bool {
	s, ok := v.Text()
	if !ok {
		return false
	}
	_, hit := sentinels[strings.ToLower(strings.TrimSpace(s))]
	return hit
}

// IsPlaceholder reports whether v is a privacy placeholder string.
func IsPlaceholder(v table.Value) bool {
	s, ok := v.Text()
	return ok && strings.HasPrefix(strings.ToLower(s), PlaceholderPrefix)
}

// NeedsReplacement reports whether a cell must be synthesized: nulls,
// sentinel strings and privacy placeholders.
func NeedsReplacement(v table.Value) bool {
	return v.IsNull() || IsSentinel(v) || IsPlaceholder(v)
}

// Report counts the cells a reconciliation pass replaced.
type Report struct {
	Cells    int            `json:"cells"`
	Replaced int            `json:"replaced"`
	ByColumn map[string]int `json:"byColumn,omitempty"`
}

// Add merges o into r.
func (r *Report) Add(o Report) {
	r.Cells += o.Cells
	r.Replaced += o.Replaced
	for col, n := range o.ByColumn {
		r.count(col, n)
	}
}

func (r *Report) count(col string, n int) {
	if r.ByColumn == nil {
		r.ByColumn = make(map[string]int)
	}
	r.ByColumn[col] += n
}

// Columns returns the names of columns with replacements, sorted.
func (r Report) Columns() []string {
	out := make([]string, 0, len(r.ByColumn))
	for col := range r.ByColumn {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

// Reconciler replaces cells that need replacement, leaving valid cells alone.
type Reconciler struct {
	synth *Synthesizer
}

// NewReconciler returns a Reconciler drawing values from s.
func NewReconciler(s *Synthesizer) *Reconciler {
	return &Reconciler{synth: s}
}

// Synthesizer returns the underlying value source.
func (r *Reconciler) Synthesizer() *Synthesizer { return r.synth }

// Reconcile rewrites every row of t in place.
func (r *Reconciler) Reconcile(t *table.Table) Report {
	return r.ReconcileFrom(t, 0)
}

// ReconcileFrom rewrites rows from index start onward. Each row's hint is
// read from its gender column (matched by name, ignoring case) before any
// cell of the row is replaced.
func (r *Reconciler) ReconcileFrom(t *table.Table, start int) Report {
	var rep Report
	genderCol := t.FindColumn("gender")
	for i := start; i < len(t.Rows); i++ {
		row := t.Rows[i]
		hint := GenderUnknown
		if genderCol >= 0 {
			hint = ParseGender(row[genderCol])
		}
		rep.Add(r.ReconcileRow(t.Columns, row, hint))
	}
	return rep
}

// ReconcileRow rewrites a single row in place using hint for the name rules.
func (r *Reconciler) ReconcileRow(columns []string, row []table.Value, hint Gender) Report {
	rep := Report{Cells: len(row)}
	for j, v := range row {
		if !NeedsReplacement(v) {
			continue
		}
		row[j] = r.synth.Synthesize(columns[j], v, hint)
		rep.Replaced++
		rep.count(columns[j], 1)
	}
	return rep
}
