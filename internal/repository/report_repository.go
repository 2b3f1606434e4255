package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brokercursor/brokercursor/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reportColumns = `id, broker, account, period, file_name, file_path, file_size, file_hash,
	raw_content, client_name, report_date, metadata, parsed_data,
	processing_status, parser_version, error_log, created_at, updated_at, processed_at`

// listColumns omits raw_content; statement bodies can be megabytes and List
// is the hot path for the query surface and the parse scan.
const listColumns = `id, broker, account, period, file_name, file_path, file_size, file_hash,
	NULL::bytea, client_name, report_date, metadata, parsed_data,
	processing_status, parser_version, error_log, created_at, updated_at, processed_at`

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository wires a report store backed by pgxpool.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) Insert(ctx context.Context, report domain.Report) (domain.Report, error) {
	metadataJSON, err := marshalMetadata(report.Metadata)
	if err != nil {
		return domain.Report{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var parsedJSON any
	if report.ParsedData != nil {
		raw, err := report.ParsedData.MarshalJSONB()
		if err != nil {
			return domain.Report{}, fmt.Errorf("failed to marshal parsed data: %w", err)
		}
		parsedJSON = raw
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO broker_reports
		 (id, broker, account, period, file_name, file_path, file_size, file_hash,
		  raw_content, client_name, report_date, metadata, parsed_data,
		  processing_status, parser_version, error_log, created_at, updated_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW(), $17)
		 RETURNING created_at, updated_at`,
		report.ID,
		report.Broker,
		report.Account.Ptr(),
		report.Period.String(),
		report.FileName,
		nullable(report.FilePath),
		report.FileSize,
		report.FileHash,
		report.RawContent,
		nullable(report.ClientName),
		report.ReportDate,
		metadataJSON,
		parsedJSON,
		string(report.Status),
		nullable(report.ParserVersion),
		nullable(report.ErrorLog),
		report.ProcessedAt,
	)

	if err := row.Scan(&report.CreatedAt, &report.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Report{}, fmt.Errorf("insert report %s: %w", report.FileName, domain.ErrDuplicateKey)
		}
		return domain.Report{}, fmt.Errorf("failed to insert report: %w", err)
	}

	return report, nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Report, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM broker_reports WHERE id = $1`, id)
	return scanReport(row)
}

func (r *reportRepository) GetByHash(ctx context.Context, fileHash string) (domain.Report, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM broker_reports WHERE file_hash = $1`, fileHash)
	return scanReport(row)
}

func (r *reportRepository) GetByIdentity(ctx context.Context, broker string, account domain.Account, period domain.Period) (domain.Report, error) {
	// The sentinel substitution matches the uq_broker_reports_identity index
	// expression, so an absent account compares as one canonical value.
	row := r.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM broker_reports
		 WHERE broker = $1 AND COALESCE(account, '`+domain.AccountSentinel+`') = $2 AND period = $3`,
		broker, account.Key(), period.String())
	return scanReport(row)
}

func (r *reportRepository) GetByParsedIdentity(ctx context.Context, broker, accountNumber, periodStart, periodEnd string) (domain.Report, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM broker_reports
		 WHERE parsed_data IS NOT NULL
		   AND parsed_data->>'broker' = $1
		   AND parsed_data->>'account_number' = $2
		   AND parsed_data->>'period_start' = $3
		   AND parsed_data->>'period_end' = $4`,
		broker, accountNumber, periodStart, periodEnd)
	return scanReport(row)
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter, limit, offset int) ([]domain.Report, int, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	where, args := buildReportFilter(filter)
	args = append(args, limit, offset)

	query := fmt.Sprintf(
		`SELECT %s, COUNT(*) OVER() AS total_count
		 FROM broker_reports
		 %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`,
		listColumns, where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []domain.Report{}
	totalCount := 0
	for rows.Next() {
		report, total, err := scanReportWithCount(rows)
		if err != nil {
			return nil, 0, err
		}
		totalCount = total
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, totalCount, nil
}

func (r *reportRepository) UpdateFilePath(ctx context.Context, id uuid.UUID, filePath string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE broker_reports SET file_path = $1, updated_at = NOW() WHERE id = $2`,
		filePath, id)
	if err != nil {
		return fmt.Errorf("failed to update file path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// statusPredecessors lists the states a transition may come from; it mirrors
// domain.ProcessingStatus.CanTransitionTo and is applied inside the UPDATE so
// the monotonicity check is atomic with the write.
var statusPredecessors = map[domain.ProcessingStatus][]string{
	domain.StatusProcessing: {string(domain.StatusRaw), string(domain.StatusError), string(domain.StatusParsed)},
	domain.StatusParsed:     {string(domain.StatusProcessing)},
	domain.StatusError:      {string(domain.StatusProcessing)},
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProcessingStatus, update StatusUpdate) error {
	allowedFrom, ok := statusPredecessors[status]
	if !ok {
		return fmt.Errorf("transition to %s: %w", status, domain.ErrInvalidTransition)
	}

	set := []string{"processing_status = $1", "updated_at = NOW()"}
	args := []any{string(status)}

	if update.ParsedData != nil {
		raw, err := update.ParsedData.MarshalJSONB()
		if err != nil {
			return fmt.Errorf("failed to marshal parsed data: %w", err)
		}
		args = append(args, raw)
		set = append(set, fmt.Sprintf("parsed_data = $%d", len(args)))
	}
	if update.ErrorLog != "" {
		args = append(args, update.ErrorLog)
		set = append(set, fmt.Sprintf("error_log = $%d", len(args)))
	}
	if update.ParserVersion != "" {
		args = append(args, update.ParserVersion)
		set = append(set, fmt.Sprintf("parser_version = $%d", len(args)))
	}
	if status == domain.StatusParsed {
		set = append(set, "error_log = NULL", "processed_at = NOW()")
	}
	if status == domain.StatusError {
		set = append(set, "processed_at = NOW()")
	}

	args = append(args, id)
	idArg := len(args)
	args = append(args, allowedFrom)

	query := fmt.Sprintf(
		`UPDATE broker_reports SET %s WHERE id = $%d AND processing_status = ANY($%d)`,
		strings.Join(set, ", "), idArg, idArg+1,
	)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update report %s: %w", id, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to update report status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var current string
		err := r.pool.QueryRow(ctx,
			`SELECT processing_status FROM broker_reports WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read report status: %w", err)
		}
		return fmt.Errorf("report %s: %s -> %s: %w", id, current, status, domain.ErrInvalidTransition)
	}

	return nil
}

func (r *reportRepository) Statistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{
		ByBroker: map[string]int64{},
		ByStatus: map[string]int64{},
	}

	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM broker_reports`).Scan(&stats.TotalReports); err != nil {
		return stats, fmt.Errorf("failed to count reports: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT broker, COUNT(*) FROM broker_reports GROUP BY broker ORDER BY COUNT(*) DESC`)
	if err != nil {
		return stats, fmt.Errorf("failed to count reports by broker: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var broker string
		var count int64
		if err := rows.Scan(&broker, &count); err != nil {
			return stats, fmt.Errorf("failed to scan broker count: %w", err)
		}
		stats.ByBroker[broker] = count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate broker counts: %w", err)
	}

	statusRows, err := r.pool.Query(ctx,
		`SELECT processing_status, COUNT(*) FROM broker_reports GROUP BY processing_status`)
	if err != nil {
		return stats, fmt.Errorf("failed to count reports by status: %w", err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var status string
		var count int64
		if err := statusRows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := statusRows.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM broker_reports WHERE created_at >= NOW() - INTERVAL '24 hours'`).
		Scan(&stats.RecentImports24h); err != nil {
		return stats, fmt.Errorf("failed to count recent imports: %w", err)
	}

	return stats, nil
}

func (r *reportRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM broker_reports`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// buildReportFilter renders the WHERE clause and its arguments for List.
func buildReportFilter(filter ReportFilter) (string, []any) {
	conditions := []string{}
	args := []any{}

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Broker != "" {
		add("broker = $%d", filter.Broker)
	}
	if filter.Period != "" {
		add("period = $%d", filter.Period)
	}
	if filter.Status != "" {
		add("processing_status = $%d", string(filter.Status))
	}
	if filter.Account != "" {
		add("account = $%d", filter.Account)
	}
	if filter.SearchAccount != "" {
		add("account ILIKE $%d", "%"+filter.SearchAccount+"%")
	}
	if filter.Search != "" {
		// raw_content is bytea (xlsx statements are binary), so full-text
		// search runs over the parsed payload instead.
		add("to_tsvector('simple', COALESCE(parsed_data, '{}'::jsonb)) @@ plainto_tsquery('simple', $%d)", filter.Search)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (domain.Report, error) {
	report, _, err := scanReportInto(row, false)
	return report, err
}

func scanReportWithCount(row rowScanner) (domain.Report, int, error) {
	return scanReportInto(row, true)
}

func scanReportInto(row rowScanner, withCount bool) (domain.Report, int, error) {
	var (
		report        domain.Report
		account       *string
		period        string
		filePath      *string
		rawContent    []byte
		clientName    *string
		reportDate    *time.Time
		metadataJSON  []byte
		parsedJSON    []byte
		status        string
		parserVersion *string
		errorLog      *string
		totalCount    int
	)

	dest := []any{
		&report.ID, &report.Broker, &account, &period,
		&report.FileName, &filePath, &report.FileSize, &report.FileHash,
		&rawContent, &clientName, &reportDate, &metadataJSON, &parsedJSON,
		&status, &parserVersion, &errorLog,
		&report.CreatedAt, &report.UpdatedAt, &report.ProcessedAt,
	}
	if withCount {
		dest = append(dest, &totalCount)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Report{}, 0, domain.ErrNotFound
		}
		return domain.Report{}, 0, fmt.Errorf("failed to scan report: %w", err)
	}

	report.Account = domain.AccountFromPtr(account)
	parsedPeriod, err := domain.ParsePeriod(strings.TrimSpace(period))
	if err != nil {
		return domain.Report{}, 0, fmt.Errorf("stored period %q is malformed: %w", period, err)
	}
	report.Period = parsedPeriod

	report.FilePath = deref(filePath)
	report.RawContent = rawContent
	report.ClientName = deref(clientName)
	report.ReportDate = reportDate
	report.ParserVersion = deref(parserVersion)
	report.ErrorLog = deref(errorLog)

	parsedStatus, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Report{}, 0, err
	}
	report.Status = parsedStatus

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &report.Metadata); err != nil {
			return domain.Report{}, 0, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	payload, err := domain.PayloadFromJSONB(parsedJSON)
	if err != nil {
		return domain.Report{}, 0, fmt.Errorf("failed to decode parsed data: %w", err)
	}
	report.ParsedData = payload

	return report, totalCount, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
