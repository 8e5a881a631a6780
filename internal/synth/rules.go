package synth

import (
	"math"
	"strings"
	"time"

	"github.com/JonMunkholm/datapoint/internal/table"
)

type generator func(s *Synthesizer, original table.Value, g Gender) table.Value

type rule struct {
	name  string
	match func(col string) bool
	gen   generator
}

// rules is evaluated top to bottom against the lowercased column name.
// The order is significant: "first_name" must be tested before "name",
// "date" before "time", and so on.
var rules = []rule{
	{"email", contains("email"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.Email())
	}},
	{"first_name", contains("first_name"), func(s *Synthesizer, _ table.Value, g Gender) table.Value {
		return table.String(s.firstName(g))
	}},
	{"last_name", contains("last_name"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.LastName())
	}},
	{"name", contains("name"), func(s *Synthesizer, _ table.Value, g Gender) table.Value {
		if g == GenderUnknown {
			return table.String(s.faker.Name())
		}
		return table.String(s.firstName(g) + " " + s.faker.LastName())
	}},
	{"address", contains("address"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.Address().Address)
	}},
	{"city", contains("city"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.City())
	}},
	{"state", contains("state"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.State())
	}},
	{"country", contains("country"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.Country())
	}},
	{"postcode", contains("postcode", "zip"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.Zip())
	}},
	{"amount", contains("currency", "amount", "price", "salary"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		v := s.faker.Float64Range(30000, 70000)
		return table.Float(math.Round(v*100) / 100)
	}},
	{"phone", contains("phone", "mobile"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.PhoneFormatted())
	}},
	{"date", contains("date"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		now := s.now()
		return table.String(s.faker.DateRange(time.Unix(0, 0).UTC(), now).Format(time.DateOnly))
	}},
	{"time", contains("time"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.DateRange(time.Unix(0, 0).UTC(), s.now()).Format(time.TimeOnly))
	}},
	{"date_of_birth", contains("dob", "birth"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		now := s.now()
		return table.String(s.faker.DateRange(now.AddDate(-115, 0, 0), now).Format(time.DateOnly))
	}},
	{"gender", contains("gender"), func(s *Synthesizer, _ table.Value, g Gender) table.Value {
		if g != GenderUnknown {
			return table.String(g.String())
		}
		return table.String(s.faker.RandomString([]string{"Male", "Female"}))
	}},
	{"company", contains("company"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.Company())
	}},
	{"job", contains("job", "position", "title"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.JobTitle())
	}},
	{"url", contains("url", "website"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.URL())
	}},
	{"domain", contains("domain"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.DomainName())
	}},
	{"ipv4", contains("ip"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.IPv4Address())
	}},
	{"credit_card", contains("credit_card", "cc"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.CreditCardNumber(nil))
	}},
	{"boolean", func(col string) bool {
		return strings.Contains(col, "bool") || strings.Contains(col, "flag") ||
			strings.HasPrefix(col, "is_") || strings.HasPrefix(col, "has_")
	}, func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.Bool(s.faker.Bool())
	}},
	{"code", func(col string) bool {
		return col == "id" || strings.Contains(col, "code") || strings.Contains(col, "number")
	}, func(s *Synthesizer, original table.Value, _ Gender) table.Value {
		if numericLooking(original) {
			return table.Int(int64(s.faker.IntRange(1, 10000)))
		}
		return table.String(s.faker.Numerify(s.faker.Lexify("??##??##")))
	}},
	{"text", contains("text", "description", "comment", "note"), func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
		return table.String(s.faker.Sentence(6))
	}},
}

var fallback = rule{"word", func(string) bool { return true }, func(s *Synthesizer, _ table.Value, _ Gender) table.Value {
	return table.String(s.faker.Word())
}}

func contains(subs ...string) func(string) bool {
	return func(col string) bool {
		for _, sub := range subs {
			if strings.Contains(col, sub) {
				return true
			}
		}
		return false
	}
}

// numericLooking reports whether v is an integer or a string of digits.
func numericLooking(v table.Value) bool {
	if _, ok := v.Int(); ok {
		return true
	}
	s, ok := v.Text()
	return ok && isDigits(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *Synthesizer) firstName(g Gender) string {
	switch g {
	case GenderMale:
		return s.faker.RandomString(maleFirstNames)
	case GenderFemale:
		return s.faker.RandomString(femaleFirstNames)
	default:
		return s.faker.FirstName()
	}
}
