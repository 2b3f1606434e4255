package parsers

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/brokercursor/brokercursor/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

const (
	sberBroker        = "sber"
	sberParserVersion = "sber-html/2.0.0"
)

var (
	sberInvestorPattern = regexp.MustCompile(`Инвестор:\s*([^\n\r]+)`)
	sberAccountPattern  = regexp.MustCompile(`Договор[^\n\r]*?([A-Z0-9]{6,10})`)
	sberPeriodPattern   = regexp.MustCompile(`за период с\s+(\d{2}\.\d{2}\.\d{4})\s+по\s+(\d{2}\.\d{2}\.\d{4})`)
	sberDatePattern     = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}`)
	isinPattern         = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}\d$`)
)

// SberParser extracts structured data from Sberbank brokerage HTML reports.
type SberParser struct{}

// NewSberParser returns the Sberbank HTML statement parser.
func NewSberParser() *SberParser {
	return &SberParser{}
}

func (p *SberParser) Broker() string  { return sberBroker }
func (p *SberParser) Version() string { return sberParserVersion }

func (p *SberParser) Parse(rawContent []byte, hint Hint) (*domain.StatementPayload, error) {
	doc, err := html.Parse(bytes.NewReader(rawContent))
	if err != nil {
		return nil, domain.NewParseError(sberBroker, "invalid HTML: %v", err)
	}

	text := documentText(doc)
	tables := extractTables(doc)

	payload := &domain.StatementPayload{
		Broker:        sberBroker,
		ParserVersion: sberParserVersion,
	}

	if m := sberInvestorPattern.FindStringSubmatch(text); m != nil {
		payload.ClientName = strings.TrimSpace(m[1])
	}

	if m := sberAccountPattern.FindStringSubmatch(text); m != nil {
		payload.AccountNumber = m[1]
	} else if hint.Account.Valid {
		payload.AccountNumber = hint.Account.Number
	}
	if payload.AccountNumber == "" {
		return nil, domain.NewParseError(sberBroker, "account number not found in statement header")
	}

	m := sberPeriodPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, domain.NewParseError(sberBroker, "statement period not found")
	}
	start, err := time.Parse("02.01.2006", m[1])
	if err != nil {
		return nil, domain.NewParseError(sberBroker, "malformed period start %q", m[1])
	}
	end, err := time.Parse("02.01.2006", m[2])
	if err != nil {
		return nil, domain.NewParseError(sberBroker, "malformed period end %q", m[2])
	}
	payload.PeriodStart = start.Format("2006-01-02")
	payload.PeriodEnd = end.Format("2006-01-02")

	payload.CashFlows = sberCashFlows(tables)
	payload.SecuritiesPortfolio = sberPortfolio(tables)
	payload.Trades = sberTrades(payload.SecuritiesPortfolio)
	payload.Totals = sberTotals(tables)

	for _, security := range payload.SecuritiesPortfolio {
		if name, ok := security["name"].(string); ok && name != "" {
			payload.Instruments = append(payload.Instruments, name)
		}
	}

	return payload, nil
}

// sberCashFlows reads the "Движение денежных средств за период" table:
// date, platform, description, currency, credit, debit.
func sberCashFlows(tables []htmlTable) []map[string]any {
	var flows []map[string]any
	for _, table := range tables {
		if !table.containsCell("Движение денежных средств за период") {
			continue
		}
		for _, row := range table.rows {
			if len(row) < 6 || !sberDatePattern.MatchString(row[0]) {
				continue
			}
			flow := map[string]any{
				"date":        row[0],
				"platform":    row[1],
				"description": row[2],
				"currency":    row[3],
				"credit":      amountOrZero(row[4]),
				"debit":       amountOrZero(row[5]),
			}
			flows = append(flows, flow)
		}
	}
	return flows
}

// sberPortfolio reads the securities table following the "Портфель Ценных
// Бумаг" section heading. Data rows carry at least 14 columns.
func sberPortfolio(tables []htmlTable) []map[string]any {
	var portfolio []map[string]any
	for _, table := range tables {
		if !strings.Contains(table.section, "Портфель Ценных Бумаг") {
			continue
		}
		for _, row := range table.rows {
			if len(row) < 14 {
				continue
			}
			name := row[0]
			isin := row[1]
			if name == "" || !isinPattern.MatchString(isin) {
				continue
			}
			portfolio = append(portfolio, map[string]any{
				"name":            name,
				"isin":            isin,
				"currency":        row[2],
				"quantity_start":  amountOrNil(row[3]),
				"nominal":         amountOrNil(row[4]),
				"price_start":     amountOrNil(row[5]),
				"value_start":     amountOrNil(row[6]),
				"nkd_start":       amountOrNil(row[7]),
				"quantity_end":    amountOrNil(row[8]),
				"price_end":       amountOrNil(row[9]),
				"value_end":       amountOrNil(row[10]),
				"nkd_end":         amountOrNil(row[11]),
				"quantity_change": amountOrNil(row[12]),
				"value_change":    amountOrNil(row[13]),
			})
		}
		break
	}
	return portfolio
}

// sberTrades derives trade activity from portfolio position changes.
func sberTrades(portfolio []map[string]any) []map[string]any {
	var trades []map[string]any
	for _, security := range portfolio {
		change, ok := security["quantity_change"].(string)
		if !ok || change == "" || change == "0" {
			continue
		}
		trades = append(trades, map[string]any{
			"name":            security["name"],
			"isin":            security["isin"],
			"quantity_change": change,
			"value_change":    security["value_change"],
		})
	}
	return trades
}

// sberTotals reads the "Итого" row of the assets evaluation table.
func sberTotals(tables []htmlTable) map[string]any {
	for _, table := range tables {
		if !table.containsCell("Оценка портфеля ЦБ") {
			continue
		}
		for _, row := range table.rows {
			if len(row) < 4 || !strings.Contains(row[0], "Итого") {
				continue
			}
			return map[string]any{
				"portfolio_value": amountOrZero(row[1]),
				"cash_balance":    amountOrZero(row[2]),
				"total_assets":    amountOrZero(row[3]),
			}
		}
	}
	return nil
}

// amountOrZero normalizes a statement number ("1 234,56") to a decimal
// string, defaulting to "0".
func amountOrZero(raw string) string {
	if value, ok := parseAmount(raw); ok {
		return value.String()
	}
	return "0"
}

// amountOrNil returns the normalized decimal string, or nil when the cell is
// empty or non-numeric.
func amountOrNil(raw string) any {
	if value, ok := parseAmount(raw); ok {
		return value.String()
	}
	return nil
}

func parseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer(" ", "", " ", "", ",", ".").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}
