package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewReportStartsRaw(t *testing.T) {
	report := NewReport("sber", NewAccount("4000T49"), MustPeriod("2024-03"),
		"report.html", "deadbeef", []byte("<html/>"), 7)

	if report.Status != StatusRaw {
		t.Errorf("status = %q, want raw", report.Status)
	}
	if report.ID == uuid.Nil {
		t.Error("id not assigned")
	}
	if report.ParsedData != nil || report.ProcessedAt != nil {
		t.Error("new report must carry no parse artifacts")
	}
}

func TestPayloadIdentity(t *testing.T) {
	payload := StatementPayload{
		Broker:        "sber",
		AccountNumber: "4000T49",
		PeriodStart:   "2024-03-01",
		PeriodEnd:     "2024-03-31",
	}
	broker, account, start, end := payload.Identity()
	if broker != "sber" || account != "4000T49" || start != "2024-03-01" || end != "2024-03-31" {
		t.Errorf("identity = %s %s %s %s", broker, account, start, end)
	}
	got, err := payload.PeriodMonth()
	if err != nil {
		t.Fatalf("PeriodMonth() error = %v", err)
	}
	if got != MustPeriod("2024-03") {
		t.Errorf("PeriodMonth() = %s, want 2024-03", got)
	}
}

func TestFileLogEntryCountsOutcome(t *testing.T) {
	ok := NewFileLogEntry(OperationImport, OutcomeSuccess,
		"sber", NewAccount("4000T49"), "2024-03", "report.html", "deadbeef", "")
	if ok.FilesSuccess != 1 || ok.FilesFailed != 0 || ok.FilesProcessed != 1 {
		t.Errorf("success entry counts = %d/%d/%d", ok.FilesProcessed, ok.FilesSuccess, ok.FilesFailed)
	}

	failed := NewFileLogEntry(OperationImport, OutcomeFailure,
		"", NoAccount(), "", "broken.html", "", "read error")
	if failed.FilesSuccess != 0 || failed.FilesFailed != 1 {
		t.Errorf("failure entry counts = %d/%d", failed.FilesSuccess, failed.FilesFailed)
	}

	// A skipped file is neither a success nor a failure.
	for _, outcome := range []Outcome{OutcomeUnresolvedMetadata, OutcomeExactDuplicate,
		OutcomeCollisionMismatch, OutcomeSemanticDuplicate} {
		skipped := NewFileLogEntry(OperationImport, outcome,
			"sber", NoAccount(), "2024-03", "mystery.html", "", "")
		if skipped.FilesSuccess != 0 || skipped.FilesFailed != 0 || skipped.FilesProcessed != 1 {
			t.Errorf("%s entry counts = %d/%d/%d, want processed only",
				outcome, skipped.FilesProcessed, skipped.FilesSuccess, skipped.FilesFailed)
		}
	}
}

func TestBatchLogEntryOutcome(t *testing.T) {
	start := time.Now().Add(-time.Second)

	clean := NewBatchLogEntry(OperationParse, 3, 3, 0, "", start)
	if clean.Outcome != OutcomeSuccess {
		t.Errorf("clean batch outcome = %q", clean.Outcome)
	}
	if !clean.CompletedAt.After(clean.StartedAt) {
		t.Error("completion must follow start")
	}

	dirty := NewBatchLogEntry(OperationParse, 3, 2, 1, "one report failed", start)
	if dirty.Outcome != OutcomeFailure {
		t.Errorf("dirty batch outcome = %q", dirty.Outcome)
	}
}
