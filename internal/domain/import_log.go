package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operation classifies an import-log record.
type Operation string

const (
	OperationImport  Operation = "import"
	OperationParse   Operation = "parse"
	OperationUpdate  Operation = "update"
	OperationDelete  Operation = "delete"
	OperationArchive Operation = "archive"
)

// Outcome is the recorded result of one ingestion decision.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeExactDuplicate     Outcome = "duplicate_detected"
	OutcomeCollisionMismatch  Outcome = "collision_mismatch"
	OutcomeSemanticDuplicate  Outcome = "semantic_duplicate"
	OutcomeUnresolvedMetadata Outcome = "unresolved_metadata"
	OutcomeFailure            Outcome = "failure"
	OutcomeAnomaly            Outcome = "anomaly"
)

// ImportLogEntry is one append-only audit record, either per file/record or a
// batch summary. Entries are never updated after creation.
type ImportLogEntry struct {
	ID        uuid.UUID `json:"id"`
	Operation Operation `json:"operation_type"`

	Broker   string  `json:"broker,omitempty"`
	Account  Account `json:"account"`
	Period   string  `json:"period,omitempty"`
	FileName string  `json:"file_name,omitempty"`
	FileHash string  `json:"file_hash,omitempty"`

	Outcome Outcome `json:"status"`

	FilesProcessed int `json:"files_processed"`
	FilesSuccess   int `json:"files_success"`
	FilesFailed    int `json:"files_failed"`

	ErrorSummary string `json:"error_summary,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewFileLogEntry builds a per-file audit record for the given outcome.
func NewFileLogEntry(op Operation, outcome Outcome, broker string, account Account, period, fileName, fileHash, errorSummary string) ImportLogEntry {
	now := time.Now()
	entry := ImportLogEntry{
		ID:             uuid.New(),
		Operation:      op,
		Broker:         broker,
		Account:        account,
		Period:         period,
		FileName:       fileName,
		FileHash:       fileHash,
		Outcome:        outcome,
		FilesProcessed: 1,
		ErrorSummary:   errorSummary,
		StartedAt:      now,
		CompletedAt:    now,
		CreatedAt:      now,
	}
	// Duplicates and unresolved files are skips, not failures; summing
	// per-file rows must not overstate failure counts.
	switch outcome {
	case OutcomeSuccess:
		entry.FilesSuccess = 1
	case OutcomeFailure, OutcomeAnomaly:
		entry.FilesFailed = 1
	}
	return entry
}

// NewBatchLogEntry builds the run-level summary record.
func NewBatchLogEntry(op Operation, processed, success, failed int, errorSummary string, startedAt time.Time) ImportLogEntry {
	now := time.Now()
	outcome := OutcomeSuccess
	if failed > 0 {
		outcome = OutcomeFailure
	}
	return ImportLogEntry{
		ID:             uuid.New(),
		Operation:      op,
		Outcome:        outcome,
		FilesProcessed: processed,
		FilesSuccess:   success,
		FilesFailed:    failed,
		ErrorSummary:   errorSummary,
		StartedAt:      startedAt,
		CompletedAt:    now,
		CreatedAt:      now,
	}
}
