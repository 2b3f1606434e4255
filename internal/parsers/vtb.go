package parsers

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/brokercursor/brokercursor/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	vtbBroker        = "vtb"
	vtbParserVersion = "vtb-xlsx/1.0.0"
)

var (
	vtbAccountPattern = regexp.MustCompile(`Соглашение[^\d]*(\d{4,})`)
	vtbClientPattern  = regexp.MustCompile(`Клиент:\s*(.+)`)
	vtbPeriodPattern  = regexp.MustCompile(`с\s+(\d{2}\.\d{2}\.\d{4})\s+по\s+(\d{2}\.\d{2}\.\d{4})`)
)

// VTBParser extracts structured data from VTB brokerage xlsx reports.
type VTBParser struct{}

// NewVTBParser returns the VTB xlsx statement parser.
func NewVTBParser() *VTBParser {
	return &VTBParser{}
}

func (p *VTBParser) Broker() string  { return vtbBroker }
func (p *VTBParser) Version() string { return vtbParserVersion }

func (p *VTBParser) Parse(rawContent []byte, hint Hint) (*domain.StatementPayload, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(rawContent))
	if err != nil {
		return nil, domain.NewParseError(vtbBroker, "invalid xlsx workbook: %v", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewParseError(vtbBroker, "workbook has no sheets")
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, domain.NewParseError(vtbBroker, "reading sheet %q: %v", sheets[0], err)
	}

	payload := &domain.StatementPayload{
		Broker:        vtbBroker,
		ParserVersion: vtbParserVersion,
	}

	var periodFound bool
	for _, row := range rows {
		line := strings.Join(row, " ")
		if payload.AccountNumber == "" {
			if m := vtbAccountPattern.FindStringSubmatch(line); m != nil {
				payload.AccountNumber = m[1]
			}
		}
		if payload.ClientName == "" {
			if m := vtbClientPattern.FindStringSubmatch(line); m != nil {
				payload.ClientName = strings.TrimSpace(m[1])
			}
		}
		if !periodFound {
			if m := vtbPeriodPattern.FindStringSubmatch(line); m != nil {
				start, startErr := time.Parse("02.01.2006", m[1])
				end, endErr := time.Parse("02.01.2006", m[2])
				if startErr == nil && endErr == nil {
					payload.PeriodStart = start.Format("2006-01-02")
					payload.PeriodEnd = end.Format("2006-01-02")
					periodFound = true
				}
			}
		}
	}

	if payload.AccountNumber == "" && hint.Account.Valid {
		payload.AccountNumber = hint.Account.Number
	}
	if payload.AccountNumber == "" {
		return nil, domain.NewParseError(vtbBroker, "agreement number not found in report header")
	}
	if !periodFound {
		return nil, domain.NewParseError(vtbBroker, "report period not found")
	}

	payload.CashFlows = vtbSection(rows, "Движение денежных средств", 5, func(row []string) map[string]any {
		return map[string]any{
			"date":        row[0],
			"description": row[1],
			"currency":    row[2],
			"credit":      amountOrZero(row[3]),
			"debit":       amountOrZero(row[4]),
		}
	})
	payload.SecuritiesPortfolio = vtbSection(rows, "Отчет об остатках ценных бумаг", 6, func(row []string) map[string]any {
		return map[string]any{
			"name":         row[0],
			"isin":         row[1],
			"currency":     row[2],
			"quantity_end": amountOrNil(row[3]),
			"price_end":    amountOrNil(row[4]),
			"value_end":    amountOrNil(row[5]),
		}
	})
	payload.Trades = vtbSection(rows, "Заключенные в отчетном периоде сделки", 7, func(row []string) map[string]any {
		return map[string]any{
			"date":     row[0],
			"name":     row[1],
			"isin":     row[2],
			"side":     row[3],
			"quantity": amountOrNil(row[4]),
			"price":    amountOrNil(row[5]),
			"amount":   amountOrNil(row[6]),
		}
	})

	for _, security := range payload.SecuritiesPortfolio {
		if name, ok := security["name"].(string); ok && name != "" {
			payload.Instruments = append(payload.Instruments, name)
		}
	}

	return payload, nil
}

// vtbSection collects data rows between a section heading and the next blank
// or "Итого" row. The first row after the heading is the column header and is
// skipped.
func vtbSection(rows [][]string, heading string, minCells int, build func([]string) map[string]any) []map[string]any {
	var out []map[string]any
	inSection := false
	headerSkipped := false
	for _, row := range rows {
		line := strings.Join(row, " ")
		if !inSection {
			if strings.Contains(line, heading) {
				inSection = true
				headerSkipped = false
			}
			continue
		}
		if strings.TrimSpace(line) == "" || strings.Contains(line, "Итого") {
			break
		}
		if !headerSkipped {
			headerSkipped = true
			continue
		}
		if len(row) < minCells {
			continue
		}
		out = append(out, build(row))
	}
	return out
}
