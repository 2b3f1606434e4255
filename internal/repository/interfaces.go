package repository

import (
	"context"

	"github.com/brokercursor/brokercursor/internal/domain"

	"github.com/google/uuid"
)

// ReportFilter narrows List queries. Zero values mean "no constraint".
type ReportFilter struct {
	Broker        string
	Period        string
	Status        domain.ProcessingStatus
	Account       string
	SearchAccount string
	// Search is matched against raw statement content via full-text search.
	Search string
}

// StatusUpdate carries the optional fields of a status transition.
type StatusUpdate struct {
	// ParsedData, when set, fully replaces the stored payload.
	ParsedData    *domain.StatementPayload
	ErrorLog      string
	ParserVersion string
}

// Statistics aggregates store-level counts for reporting.
type Statistics struct {
	TotalReports     int64            `json:"total_reports"`
	ByBroker         map[string]int64 `json:"by_broker"`
	ByStatus         map[string]int64 `json:"by_status"`
	RecentImports24h int64            `json:"recent_imports_24h"`
}

// ReportRepository is the Report Store. Report rows are created only by the
// import pipeline; parsed_data and processing_status are mutated only through
// UpdateStatus.
type ReportRepository interface {
	// Insert persists a new report. A uniqueness violation surfaces as
	// domain.ErrDuplicateKey; the duplicate detector is expected to have
	// already avoided it.
	Insert(ctx context.Context, report domain.Report) (domain.Report, error)

	GetByID(ctx context.Context, id uuid.UUID) (domain.Report, error)
	GetByHash(ctx context.Context, fileHash string) (domain.Report, error)
	GetByIdentity(ctx context.Context, broker string, account domain.Account, period domain.Period) (domain.Report, error)
	GetByParsedIdentity(ctx context.Context, broker, accountNumber, periodStart, periodEnd string) (domain.Report, error)

	// List returns matching reports (without raw content) and the total count.
	List(ctx context.Context, filter ReportFilter, limit, offset int) ([]domain.Report, int, error)

	// UpdateFilePath records where the file ended up after archive
	// relocation.
	UpdateFilePath(ctx context.Context, id uuid.UUID, filePath string) error

	// UpdateStatus applies a lifecycle transition. Transitions that skip or
	// regress states fail with domain.ErrInvalidTransition. Entering parsed
	// or error sets processed_at.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProcessingStatus, update StatusUpdate) error

	Statistics(ctx context.Context) (Statistics, error)
	Count(ctx context.Context) (int64, error)
}

// ImportLogRepository stores the append-only audit trail. Write access
// belongs to the pipelines; everything else reads.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, operation domain.Operation, outcome domain.Outcome, limit, offset int) ([]domain.ImportLogEntry, error)
	Count(ctx context.Context) (int64, error)
}
