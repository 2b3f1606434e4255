package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report is one logical broker statement for a given account and period.
type Report struct {
	ID      uuid.UUID `json:"id"`
	Broker  string    `json:"broker"`
	Account Account   `json:"account"`
	Period  Period    `json:"period"`

	// Provenance
	FileName   string `json:"file_name"`
	FilePath   string `json:"file_path,omitempty"`
	FileSize   int64  `json:"file_size"`
	FileHash   string `json:"file_hash"`
	RawContent []byte `json:"-"`

	ClientName string         `json:"client_name,omitempty"`
	ReportDate *time.Time     `json:"report_date,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	ParsedData *StatementPayload `json:"parsed_data,omitempty"`

	Status        ProcessingStatus `json:"processing_status"`
	ParserVersion string           `json:"parser_version,omitempty"`
	ErrorLog      string           `json:"error_log,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// NewReport builds a report in the raw state with a fresh identity. Raw
// content is kept as bytes: xlsx statements are zip archives, not text.
func NewReport(broker string, account Account, period Period, fileName, fileHash string, rawContent []byte, fileSize int64) Report {
	now := time.Now()
	return Report{
		ID:         uuid.New(),
		Broker:     broker,
		Account:    account,
		Period:     period,
		FileName:   fileName,
		FileSize:   fileSize,
		FileHash:   fileHash,
		RawContent: rawContent,
		Status:     StatusRaw,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// StatementPayload is the structured result of parsing one statement.
// The identity fields drive semantic-duplicate detection; the domain fields
// are owned by the parser that produced them and are stored as-is.
type StatementPayload struct {
	Broker        string `json:"broker"`
	AccountNumber string `json:"account_number"`
	PeriodStart   string `json:"period_start"` // YYYY-MM-DD
	PeriodEnd     string `json:"period_end"`   // YYYY-MM-DD

	ClientName          string           `json:"client_name,omitempty"`
	CashFlows           []map[string]any `json:"cash_flows,omitempty"`
	SecuritiesPortfolio []map[string]any `json:"securities_portfolio,omitempty"`
	Trades              []map[string]any `json:"trades,omitempty"`
	Instruments         []string         `json:"instruments,omitempty"`
	Totals              map[string]any   `json:"totals,omitempty"`
	ParserVersion       string           `json:"parser_version,omitempty"`
}

// Identity returns the four fields the semantic uniqueness constraint covers.
func (p *StatementPayload) Identity() (broker, account, periodStart, periodEnd string) {
	return p.Broker, p.AccountNumber, p.PeriodStart, p.PeriodEnd
}

// PeriodMonth derives the YYYY-MM period from the payload's period start.
func (p *StatementPayload) PeriodMonth() (Period, error) {
	if len(p.PeriodStart) < 7 {
		return Period{}, ErrUnresolvedMetadata
	}
	return ParsePeriod(p.PeriodStart[:7])
}

// MarshalJSONB serializes the payload for the JSONB column.
func (p *StatementPayload) MarshalJSONB() (json.RawMessage, error) {
	return json.Marshal(p)
}

// PayloadFromJSONB decodes a stored parsed_data column value.
func PayloadFromJSONB(raw json.RawMessage) (*StatementPayload, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var payload StatementPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
