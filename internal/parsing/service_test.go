package parsing

import (
	"context"
	"io"
	"testing"

	"github.com/brokercursor/brokercursor/internal/domain"
	"github.com/brokercursor/brokercursor/internal/parsers"
	"github.com/brokercursor/brokercursor/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type stubStore struct {
	reports map[uuid.UUID]domain.Report
}

func newStubStore(seed ...domain.Report) *stubStore {
	s := &stubStore{reports: map[uuid.UUID]domain.Report{}}
	for _, report := range seed {
		s.reports[report.ID] = report
	}
	return s
}

func (s *stubStore) Insert(_ context.Context, report domain.Report) (domain.Report, error) {
	s.reports[report.ID] = report
	return report, nil
}

func (s *stubStore) GetByID(_ context.Context, id uuid.UUID) (domain.Report, error) {
	report, ok := s.reports[id]
	if !ok {
		return domain.Report{}, domain.ErrNotFound
	}
	return report, nil
}

func (s *stubStore) GetByHash(_ context.Context, _ string) (domain.Report, error) {
	return domain.Report{}, domain.ErrNotFound
}

func (s *stubStore) GetByIdentity(_ context.Context, _ string, _ domain.Account, _ domain.Period) (domain.Report, error) {
	return domain.Report{}, domain.ErrNotFound
}

func (s *stubStore) GetByParsedIdentity(_ context.Context, _, _, _, _ string) (domain.Report, error) {
	return domain.Report{}, domain.ErrNotFound
}

func (s *stubStore) List(_ context.Context, filter repository.ReportFilter, limit, offset int) ([]domain.Report, int, error) {
	var matched []domain.Report
	for _, report := range s.reports {
		if filter.Broker != "" && report.Broker != filter.Broker {
			continue
		}
		if filter.Status != "" && report.Status != filter.Status {
			continue
		}
		matched = append(matched, report)
	}
	if offset >= len(matched) {
		return nil, len(matched), nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], len(matched), nil
}

func (s *stubStore) UpdateFilePath(_ context.Context, id uuid.UUID, filePath string) error {
	report, ok := s.reports[id]
	if !ok {
		return domain.ErrNotFound
	}
	report.FilePath = filePath
	s.reports[id] = report
	return nil
}

func (s *stubStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.ProcessingStatus, update repository.StatusUpdate) error {
	report, ok := s.reports[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !report.Status.CanTransitionTo(status) {
		return domain.ErrInvalidTransition
	}
	report.Status = status
	if update.ParsedData != nil {
		report.ParsedData = update.ParsedData
	}
	if update.ParserVersion != "" {
		report.ParserVersion = update.ParserVersion
	}
	report.ErrorLog = update.ErrorLog
	s.reports[id] = report
	return nil
}

func (s *stubStore) Statistics(_ context.Context) (repository.Statistics, error) {
	return repository.Statistics{}, nil
}

func (s *stubStore) Count(_ context.Context) (int64, error) {
	return int64(len(s.reports)), nil
}

type stubAudit struct {
	entries []domain.ImportLogEntry
}

func (s *stubAudit) Record(_ context.Context, entry domain.ImportLogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubAudit) List(_ context.Context, _ domain.Operation, _ domain.Outcome, _, _ int) ([]domain.ImportLogEntry, error) {
	return s.entries, nil
}

func (s *stubAudit) Count(_ context.Context) (int64, error) {
	return int64(len(s.entries)), nil
}

type stubParser struct {
	broker  string
	version string
	err     error
}

func (p *stubParser) Broker() string  { return p.broker }
func (p *stubParser) Version() string { return p.version }
func (p *stubParser) Parse(_ []byte, hint parsers.Hint) (*domain.StatementPayload, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domain.StatementPayload{
		Broker:        p.broker,
		AccountNumber: hint.Account.Number,
		PeriodStart:   hint.Period.String() + "-01",
		PeriodEnd:     hint.Period.String() + "-28",
	}, nil
}

func newTestService(store *stubStore, audit *stubAudit, parser parsers.Parser) *Service {
	registry := parsers.NewRegistry()
	if parser != nil {
		registry.Register(parser)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(store, audit, registry, log)
}

func rawReport(broker, account, period string) domain.Report {
	return domain.NewReport(broker, domain.NewAccount(account), domain.MustPeriod(period),
		"report.html", "hash-"+account+period, []byte("<html>content</html>"), 20)
}

func TestParseRunAdvancesRawToParsed(t *testing.T) {
	report := rawReport("sber", "4000T49", "2024-03")
	store := newStubStore(report)
	audit := &stubAudit{}
	svc := newTestService(store, audit, &stubParser{broker: "sber", version: "sber/1"})

	result, err := svc.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Parsed != 1 || result.Failed != 0 {
		t.Fatalf("result = %+v, want one parsed", result)
	}

	stored := store.reports[report.ID]
	if stored.Status != domain.StatusParsed {
		t.Errorf("status = %q, want parsed", stored.Status)
	}
	if stored.ParsedData == nil || stored.ParsedData.AccountNumber != "4000T49" {
		t.Error("payload not stored")
	}
	if stored.ParserVersion != "sber/1" {
		t.Errorf("parser version = %q, want sber/1", stored.ParserVersion)
	}
	if stored.ErrorLog != "" {
		t.Errorf("error log = %q, want empty", stored.ErrorLog)
	}
}

func TestParseUnknownBrokerRecordsError(t *testing.T) {
	report := rawReport("tinkoff", "T12345", "2024-03")
	store := newStubStore(report)
	audit := &stubAudit{}
	svc := newTestService(store, audit, &stubParser{broker: "sber", version: "sber/1"})

	result, err := svc.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("result = %+v, want one failure", result)
	}

	stored := store.reports[report.ID]
	if stored.Status != domain.StatusError {
		t.Errorf("status = %q, want error", stored.Status)
	}
	if stored.ErrorLog == "" {
		t.Error("error log empty, want failure reason")
	}
}

func TestParseRetryPicksUpErrorReports(t *testing.T) {
	report := rawReport("sber", "4000T49", "2024-03")
	report.Status = domain.StatusError
	report.ErrorLog = "previous failure"
	store := newStubStore(report)
	svc := newTestService(store, &stubAudit{}, &stubParser{broker: "sber", version: "sber/2"})

	// Without Retry the error report is skipped.
	result, err := svc.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("processed = %d, want 0 without Retry", result.Processed)
	}

	result, err = svc.Run(context.Background(), Options{Retry: true})
	if err != nil {
		t.Fatalf("Run(Retry) error = %v", err)
	}
	if result.Parsed != 1 {
		t.Fatalf("result = %+v, want the error report parsed", result)
	}
	stored := store.reports[report.ID]
	if stored.Status != domain.StatusParsed {
		t.Errorf("status = %q, want parsed", stored.Status)
	}
	if stored.ErrorLog != "" {
		t.Errorf("error log = %q, want cleared", stored.ErrorLog)
	}
}

func TestReparseReplacesPayload(t *testing.T) {
	report := rawReport("sber", "4000T49", "2024-03")
	report.Status = domain.StatusParsed
	report.ParsedData = &domain.StatementPayload{Broker: "sber", AccountNumber: "OLD", ParserVersion: "sber/1"}
	store := newStubStore(report)
	svc := newTestService(store, &stubAudit{}, &stubParser{broker: "sber", version: "sber/2"})

	result, err := svc.Run(context.Background(), Options{Reparse: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Parsed != 1 {
		t.Fatalf("result = %+v, want one parsed", result)
	}
	stored := store.reports[report.ID]
	if stored.ParsedData.AccountNumber != "4000T49" {
		t.Errorf("payload account = %q, want replacement payload", stored.ParsedData.AccountNumber)
	}
	if stored.ParserVersion != "sber/2" {
		t.Errorf("parser version = %q, want sber/2", stored.ParserVersion)
	}
}

func TestParseFailureIsolation(t *testing.T) {
	good := rawReport("sber", "4000T49", "2024-03")
	bad := rawReport("vtb", "999999", "2024-04")
	store := newStubStore(good, bad)
	svc := newTestService(store, &stubAudit{}, &stubParser{broker: "sber", version: "sber/1"})

	result, err := svc.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 2 || result.Parsed != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 parsed and 1 failed of 2", result)
	}
	if store.reports[good.ID].Status != domain.StatusParsed {
		t.Error("good report not parsed")
	}
	if store.reports[bad.ID].Status != domain.StatusError {
		t.Error("bad report not moved to error")
	}
}

func TestParseBrokerFilter(t *testing.T) {
	sber := rawReport("sber", "4000T49", "2024-03")
	vtb := rawReport("vtb", "999999", "2024-03")
	store := newStubStore(sber, vtb)
	svc := newTestService(store, &stubAudit{}, &stubParser{broker: "sber", version: "sber/1"})

	result, err := svc.Run(context.Background(), Options{Broker: "sber"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("processed = %d, want only the sber report", result.Processed)
	}
	if store.reports[vtb.ID].Status != domain.StatusRaw {
		t.Error("filtered-out report must stay raw")
	}
}
