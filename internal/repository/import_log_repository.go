package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/brokercursor/brokercursor/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type importLogRepository struct {
	pool *pgxpool.Pool
}

// NewImportLogRepository wires the audit-trail repository backed by pgxpool.
func NewImportLogRepository(pool *pgxpool.Pool) ImportLogRepository {
	return &importLogRepository{pool: pool}
}

func (r *importLogRepository) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	if r.pool == nil {
		return fmt.Errorf("import log repository not initialized")
	}

	var period *string
	if entry.Period != "" {
		period = &entry.Period
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO import_log
		 (id, operation_type, broker, account, period, file_name, file_hash, status,
		  files_processed, files_success, files_failed, error_summary,
		  started_at, completed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())`,
		entry.ID,
		string(entry.Operation),
		nullable(entry.Broker),
		entry.Account.Ptr(),
		period,
		nullable(entry.FileName),
		nullable(entry.FileHash),
		string(entry.Outcome),
		entry.FilesProcessed,
		entry.FilesSuccess,
		entry.FilesFailed,
		nullable(entry.ErrorSummary),
		entry.StartedAt,
		entry.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record import log entry: %w", err)
	}

	return nil
}

func (r *importLogRepository) List(ctx context.Context, operation domain.Operation, outcome domain.Outcome, limit, offset int) ([]domain.ImportLogEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("import log repository not initialized")
	}

	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	conditions := []string{}
	args := []any{}
	if operation != "" {
		args = append(args, string(operation))
		conditions = append(conditions, fmt.Sprintf("operation_type = $%d", len(args)))
	}
	if outcome != "" {
		args = append(args, string(outcome))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(
		`SELECT id, operation_type, broker, account, period, file_name, file_hash, status,
		        files_processed, files_success, files_failed, error_summary,
		        started_at, completed_at, created_at
		 FROM import_log
		 %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list import log entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.ImportLogEntry{}
	for rows.Next() {
		var (
			entry     domain.ImportLogEntry
			operation string
			broker    *string
			account   *string
			period    *string
			fileName  *string
			fileHash  *string
			outcome   string
			errorSum  *string
		)
		if err := rows.Scan(
			&entry.ID, &operation, &broker, &account, &period, &fileName, &fileHash, &outcome,
			&entry.FilesProcessed, &entry.FilesSuccess, &entry.FilesFailed, &errorSum,
			&entry.StartedAt, &entry.CompletedAt, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import log entry: %w", err)
		}

		entry.Operation = domain.Operation(operation)
		entry.Outcome = domain.Outcome(outcome)
		entry.Broker = deref(broker)
		entry.Account = domain.AccountFromPtr(account)
		entry.Period = strings.TrimSpace(deref(period))
		entry.FileName = deref(fileName)
		entry.FileHash = deref(fileHash)
		entry.ErrorSummary = deref(errorSum)

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate import log entries: %w", err)
	}

	return entries, nil
}

func (r *importLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM import_log`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count import log entries: %w", err)
	}
	return count, nil
}
