package domain

import (
	"fmt"
	"regexp"
	"time"
)

var periodPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// Period is a calendar month in YYYY-MM form.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod validates and parses a YYYY-MM string.
func ParsePeriod(raw string) (Period, error) {
	m := periodPattern.FindStringSubmatch(raw)
	if m == nil {
		return Period{}, fmt.Errorf("period %q: %w", raw, ErrUnresolvedMetadata)
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: %w", raw, ErrUnresolvedMetadata)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// MustPeriod is a test and fixture helper; it panics on malformed input.
func MustPeriod(raw string) Period {
	p, err := ParsePeriod(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Period) String() string {
	if p.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0
}

func (p Period) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *Period) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return fmt.Errorf("period: invalid JSON value %s", raw)
	}
	parsed, err := ParsePeriod(raw[1 : len(raw)-1])
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
