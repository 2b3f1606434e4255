package ingestion

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/brokercursor/brokercursor/internal/domain"
)

// Metadata is what can be learned about a statement before parsing it:
// broker, account and period guessed from the filename and content.
type Metadata struct {
	Broker     string
	Account    domain.Account
	Period     domain.Period
	ClientName string
	ReportDate *time.Time
}

// Resolved reports whether the metadata is sufficient to import: broker and
// period are mandatory, account is optional.
func (m Metadata) Resolved() bool {
	return m.Broker != "" && !m.Period.IsZero()
}

// brokerPatterns score free text against known broker markers. The broker
// with the most marker hits wins.
var brokerPatterns = map[string][]*regexp.Regexp{
	"sber": {
		regexp.MustCompile(`сбербанк`),
		regexp.MustCompile(`сбер`),
		regexp.MustCompile(`sber`),
		regexp.MustCompile(`отчет брокера`),
		regexp.MustCompile(`брокерский отчет`),
	},
	"tinkoff": {
		regexp.MustCompile(`тинькофф`),
		regexp.MustCompile(`tinkoff`),
		regexp.MustCompile(`т-банк`),
		regexp.MustCompile(`т банк`),
	},
	"vtb": {
		regexp.MustCompile(`втб`),
		regexp.MustCompile(`vtb`),
	},
	"gazprombank": {
		regexp.MustCompile(`газпромбанк`),
		regexp.MustCompile(`gazprombank`),
		regexp.MustCompile(`газпром`),
	},
	"alpha": {
		regexp.MustCompile(`альфа`),
		regexp.MustCompile(`alpha`),
	},
}

var (
	accountPattern    = regexp.MustCompile(`[A-Z0-9]{6,10}`)
	periodPattern     = regexp.MustCompile(`\d{4}-\d{2}`)
	yearPattern       = regexp.MustCompile(`(19|20)\d{2}`)
	monthNamePattern  = regexp.MustCompile(`январ|феврал|март|апрел|ма[йя]|июн|июл|август|сентябр|октябр|ноябр|декабр`)
	reportDatePattern = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
	clientNamePattern = regexp.MustCompile(`(?:Клиент|Инвестор)[:\s]+([А-ЯЁ][а-яё]+(?:\s+[А-ЯЁ][а-яё]+){1,2})`)
)

var monthNumbers = []struct {
	stem  string
	month time.Month
}{
	{"январ", time.January},
	{"феврал", time.February},
	{"март", time.March},
	{"апрел", time.April},
	{"ма", time.May},
	{"июн", time.June},
	{"июл", time.July},
	{"август", time.August},
	{"сентябр", time.September},
	{"октябр", time.October},
	{"ноябр", time.November},
	{"декабр", time.December},
}

// MetadataExtractor resolves broker, account and period for incoming files.
type MetadataExtractor struct{}

func NewMetadataExtractor() *MetadataExtractor {
	return &MetadataExtractor{}
}

// Extract inspects filename first, then content, and returns whatever could
// be resolved. Callers decide what to do with partial results.
func (e *MetadataExtractor) Extract(fileName, content string) Metadata {
	meta := Metadata{
		Broker: e.DetectBroker(fileName, content),
	}

	name := strings.TrimSuffix(fileName, pathExt(fileName))
	if m := accountPattern.FindString(name); m != "" {
		meta.Account = domain.NewAccount(m)
	}
	meta.Period = extractPeriod(name)

	if meta.Period.IsZero() {
		meta.Period = extractPeriod(content)
	}
	if !meta.Account.Valid {
		if m := accountPattern.FindString(content); m != "" {
			meta.Account = domain.NewAccount(m)
		}
	}
	if m := clientNamePattern.FindStringSubmatch(content); m != nil {
		meta.ClientName = strings.TrimSpace(m[1])
	}
	if m := reportDatePattern.FindString(content); m != "" {
		if date, err := time.Parse("02.01.2006", m); err == nil {
			meta.ReportDate = &date
		}
	}
	return meta
}

// DetectBroker scores filename plus content against the marker table and
// returns the best-scoring broker, or "" when nothing matches.
func (e *MetadataExtractor) DetectBroker(fileName, content string) string {
	text := strings.ToLower(fileName + " " + content)

	best := ""
	bestScore := 0
	for _, broker := range sortedBrokers() {
		score := 0
		for _, pattern := range brokerPatterns[broker] {
			score += len(pattern.FindAllStringIndex(text, -1))
		}
		if score > bestScore {
			best = broker
			bestScore = score
		}
	}
	return best
}

// extractPeriod looks for an explicit YYYY-MM token, then falls back to a
// year plus a Russian month name ("Июль 2023.html").
func extractPeriod(text string) domain.Period {
	if m := periodPattern.FindString(text); m != "" {
		if period, err := domain.ParsePeriod(m); err == nil {
			return period
		}
	}

	year := yearPattern.FindString(text)
	if year == "" {
		return domain.Period{}
	}
	lower := strings.ToLower(text)
	if loc := monthNamePattern.FindStringIndex(lower); loc != nil {
		stem := lower[loc[0]:loc[1]]
		for _, entry := range monthNumbers {
			if strings.HasPrefix(stem, entry.stem) {
				if period, err := domain.ParsePeriod(fmt.Sprintf("%s-%02d", year, entry.month)); err == nil {
					return period
				}
			}
		}
	}
	return domain.Period{}
}

func pathExt(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}

func sortedBrokers() []string {
	return []string{"alpha", "gazprombank", "sber", "tinkoff", "vtb"}
}
