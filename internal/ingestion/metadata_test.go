package ingestion

import (
	"testing"

	"github.com/brokercursor/brokercursor/internal/domain"
)

func TestExtractFromFilename(t *testing.T) {
	e := NewMetadataExtractor()

	tests := []struct {
		name     string
		fileName string
		content  string
		broker   string
		account  string
		period   string
	}{
		{
			name:     "explicit tokens",
			fileName: "sber_4000T49_2023-07.html",
			broker:   "sber",
			account:  "4000T49",
			period:   "2023-07",
		},
		{
			name:     "broker from content",
			fileName: "report.html",
			content:  "Брокерский отчет Сбербанк за период 2024-01",
			broker:   "sber",
			period:   "2024-01",
		},
		{
			name:     "month name fallback",
			fileName: "Июль 2023 сбер.html",
			broker:   "sber",
			period:   "2023-07",
		},
		{
			name:     "vtb marker",
			fileName: "vtb_99123456_2024-02.xlsx",
			broker:   "vtb",
			account:  "99123456",
			period:   "2024-02",
		},
		{
			name:     "nothing recognizable",
			fileName: "scan0001.html",
			content:  "plain text",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			meta := e.Extract(tc.fileName, tc.content)
			if meta.Broker != tc.broker {
				t.Errorf("broker = %q, want %q", meta.Broker, tc.broker)
			}
			if tc.account == "" {
				if meta.Account.Valid {
					t.Errorf("account = %q, want none", meta.Account.Number)
				}
			} else if meta.Account.Number != tc.account {
				t.Errorf("account = %q, want %q", meta.Account.Number, tc.account)
			}
			if tc.period == "" {
				if !meta.Period.IsZero() {
					t.Errorf("period = %q, want none", meta.Period.String())
				}
			} else if meta.Period.String() != tc.period {
				t.Errorf("period = %q, want %q", meta.Period.String(), tc.period)
			}
		})
	}
}

func TestMetadataResolved(t *testing.T) {
	resolved := Metadata{Broker: "sber", Period: domain.MustPeriod("2024-03")}
	if !resolved.Resolved() {
		t.Error("broker plus period should resolve")
	}
	if (Metadata{Broker: "sber"}).Resolved() {
		t.Error("missing period must not resolve")
	}
	if (Metadata{Period: domain.MustPeriod("2024-03")}).Resolved() {
		t.Error("missing broker must not resolve")
	}
	// Account is optional.
	noAccount := Metadata{Broker: "sber", Period: domain.MustPeriod("2024-03"), Account: domain.NoAccount()}
	if !noAccount.Resolved() {
		t.Error("account must not be required")
	}
}

func TestDetectBrokerPicksBestScore(t *testing.T) {
	e := NewMetadataExtractor()

	got := e.DetectBroker("statement.html", "ВТБ брокер, отчет ВТБ Капитал")
	if got != "vtb" {
		t.Errorf("DetectBroker = %q, want vtb", got)
	}
	if got := e.DetectBroker("empty.html", ""); got != "" {
		t.Errorf("DetectBroker = %q, want empty for no markers", got)
	}
}

func TestHashContent(t *testing.T) {
	// Known SHA-256 of "abc".
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HashContent([]byte("abc")); got != want {
		t.Errorf("HashContent = %s, want %s", got, want)
	}
	if HashContent([]byte("a")) == HashContent([]byte("b")) {
		t.Error("distinct content must hash differently")
	}
}
