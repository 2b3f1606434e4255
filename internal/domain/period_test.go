package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2023-07")
	if err != nil {
		t.Fatalf("ParsePeriod error = %v", err)
	}
	if p.Year != 2023 || p.Month != time.July {
		t.Errorf("period = %+v", p)
	}
	if p.String() != "2023-07" {
		t.Errorf("String() = %q", p.String())
	}

	for _, bad := range []string{"", "2023", "2023-7", "2023-13", "2023-00", "07-2023", "2023/07"} {
		if _, err := ParsePeriod(bad); !errors.Is(err, ErrUnresolvedMetadata) {
			t.Errorf("ParsePeriod(%q) error = %v, want ErrUnresolvedMetadata", bad, err)
		}
	}
}

func TestPeriodIsZero(t *testing.T) {
	if !(Period{}).IsZero() {
		t.Error("zero value must report IsZero")
	}
	if MustPeriod("2024-01").IsZero() {
		t.Error("real period must not report IsZero")
	}
}

func TestPeriodJSON(t *testing.T) {
	raw, err := json.Marshal(MustPeriod("2024-03"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `"2024-03"` {
		t.Errorf("marshal = %s", raw)
	}

	var p Period
	if err := json.Unmarshal([]byte(`"2024-03"`), &p); err != nil {
		t.Fatal(err)
	}
	if p != MustPeriod("2024-03") {
		t.Errorf("unmarshal = %+v", p)
	}
	if err := json.Unmarshal([]byte(`"March 2024"`), &p); err == nil {
		t.Error("malformed period accepted")
	}
}
