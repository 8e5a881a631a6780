// Package synth produces plausible replacement values for missing or
// placeholder cells.
//
// A Synthesizer picks a generator from the column name using an ordered rule
// table (first match wins) and draws the value from a seeded gofakeit
// source. A Reconciler walks table rows, decides which cells need
// replacement and hands them to the Synthesizer.
package synth

import (
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// Gender is the per-row hint used by the name rules.
type Gender uint8

const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
)

// String returns the canonical spelling used in output cells.
func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return ""
	}
}

// ParseGender reads a hint from a cell. Only "male" and "female" in any case
// are recognised; anything else is GenderUnknown.
func ParseGender(v table.Value) Gender {
	s, ok := v.Text()
	if !ok {
		return GenderUnknown
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale
	case "female":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Synthesizer generates replacement values. It is safe for concurrent use;
// calls are serialized so a fixed seed yields a fixed sequence.
type Synthesizer struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
	now   func() time.Time
}

// New returns a Synthesizer seeded with seed. A zero seed picks a random one.
func New(seed uint64) *Synthesizer {
	return &Synthesizer{
		faker: gofakeit.New(seed),
		now:   time.Now,
	}
}

// Synthesize returns a replacement for original in the named column.
// The original value only matters to the identifier rule, which keeps
// numeric-looking identifiers numeric.
func (s *Synthesizer) Synthesize(column string, original table.Value, gender Gender) table.Value {
	r := match(column)

	s.mu.Lock()
	defer s.mu.Unlock()
	return r.gen(s, original, gender)
}

// RandomGender returns Male or Female with equal probability.
func (s *Synthesizer) RandomGender() Gender {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faker.Bool() {
		return GenderMale
	}
	return GenderFemale
}

// Rule returns the name of the rule that fills the column, e.g. "email" or
// "word" for the fallback.
func Rule(column string) string {
	return match(column).name
}

// Rules lists rule names in match order.
func Rules() []string {
	out := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.name)
	}
	return append(out, fallback.name)
}

func match(column string) rule {
	col := strings.ToLower(strings.TrimSpace(column))
	for _, r := range rules {
		if r.match(col) {
			return r
		}
	}
	return fallback
}
