package parsing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brokercursor/brokercursor/internal/domain"
	"github.com/brokercursor/brokercursor/internal/parsers"
	"github.com/brokercursor/brokercursor/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options narrows a parse run. Zero value means "all raw reports".
type Options struct {
	// Broker restricts the run to a single broker.
	Broker string
	// Retry additionally picks up reports already in the error state.
	Retry bool
	// Reparse additionally picks up parsed reports, replacing their payload.
	Reparse bool
	// Limit caps how many reports one run touches; 0 means no cap.
	Limit int
}

// Result summarizes one parse run.
type Result struct {
	Processed int `json:"processed"`
	Parsed    int `json:"parsed"`
	Failed    int `json:"failed"`
}

// Service is the parse pipeline: it walks stored reports and converts raw
// content into structured payloads, one report at a time. A parser failure
// moves that report to the error state and the run continues.
type Service struct {
	reports   repository.ReportRepository
	importLog repository.ImportLogRepository
	registry  *parsers.Registry
	log       *logrus.Logger
}

func NewService(
	reports repository.ReportRepository,
	importLog repository.ImportLogRepository,
	registry *parsers.Registry,
	log *logrus.Logger,
) *Service {
	return &Service{
		reports:   reports,
		importLog: importLog,
		registry:  registry,
		log:       log,
	}
}

const scanPageSize = 100

// Run parses every report matching opts. Each report is advanced
// raw -> processing -> parsed, or -> error with the failure recorded on the
// row. Re-parsing an already parsed report replaces the payload wholesale.
func (s *Service) Run(ctx context.Context, opts Options) (Result, error) {
	startedAt := time.Now()

	ids, err := s.collectCandidates(ctx, opts)
	if err != nil {
		return Result{}, err
	}
	s.log.WithField("reports", len(ids)).Info("parse run started")

	var result Result
	for _, id := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Processed++
		if err := s.ParseOne(ctx, id); err != nil {
			result.Failed++
		} else {
			result.Parsed++
		}
	}

	batch := domain.NewBatchLogEntry(domain.OperationParse,
		result.Processed, result.Parsed, result.Failed, "", startedAt)
	if err := s.importLog.Record(ctx, batch); err != nil {
		s.log.WithError(err).Warn("recording batch summary")
	}

	s.log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"parsed":    result.Parsed,
		"failed":    result.Failed,
	}).Info("parse run finished")
	return result, nil
}

// ParseOne parses a single stored report. The returned error reflects the
// parse outcome; storage errors are returned as-is, parser failures are also
// recorded on the report row as the error state.
func (s *Service) ParseOne(ctx context.Context, id uuid.UUID) error {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("loading report %s: %w", id, err)
	}
	logger := s.log.WithFields(logrus.Fields{
		"report": id,
		"broker": report.Broker,
		"file":   report.FileName,
	})

	if err := s.reports.UpdateStatus(ctx, id, domain.StatusProcessing, repository.StatusUpdate{}); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			logger.WithError(err).Warn("report not in a parseable state")
		}
		return fmt.Errorf("marking report processing: %w", err)
	}

	payload, parseErr := s.parse(report)
	if parseErr != nil {
		logger.WithError(parseErr).Warn("parse failed")
		update := repository.StatusUpdate{ErrorLog: parseErr.Error()}
		if err := s.reports.UpdateStatus(ctx, id, domain.StatusError, update); err != nil {
			return fmt.Errorf("recording parse failure: %w", err)
		}
		s.recordReport(ctx, report, domain.OutcomeFailure, parseErr.Error())
		return parseErr
	}

	update := repository.StatusUpdate{ParsedData: payload, ParserVersion: payload.ParserVersion}
	if err := s.reports.UpdateStatus(ctx, id, domain.StatusParsed, update); err != nil {
		return fmt.Errorf("storing parsed payload: %w", err)
	}

	logger.WithField("parser_version", payload.ParserVersion).Info("report parsed")
	s.recordReport(ctx, report, domain.OutcomeSuccess, "")
	return nil
}

func (s *Service) parse(report domain.Report) (*domain.StatementPayload, error) {
	parser, err := s.registry.Get(report.Broker)
	if err != nil {
		return nil, err
	}
	payload, err := parser.Parse(report.RawContent, parsers.Hint{
		FileName: report.FileName,
		Broker:   report.Broker,
		Account:  report.Account,
		Period:   report.Period,
	})
	if err != nil {
		return nil, err
	}
	payload.ParserVersion = parser.Version()
	return payload, nil
}

// collectCandidates pages through the store and returns the ids to parse,
// raw reports first, then errors and parsed when requested.
func (s *Service) collectCandidates(ctx context.Context, opts Options) ([]uuid.UUID, error) {
	statuses := []domain.ProcessingStatus{domain.StatusRaw}
	if opts.Retry {
		statuses = append(statuses, domain.StatusError)
	}
	if opts.Reparse {
		statuses = append(statuses, domain.StatusParsed)
	}

	var ids []uuid.UUID
	for _, status := range statuses {
		filter := repository.ReportFilter{Broker: opts.Broker, Status: status}
		for offset := 0; ; offset += scanPageSize {
			page, _, err := s.reports.List(ctx, filter, scanPageSize, offset)
			if err != nil {
				return nil, fmt.Errorf("listing %s reports: %w", status, err)
			}
			for _, report := range page {
				ids = append(ids, report.ID)
				if opts.Limit > 0 && len(ids) >= opts.Limit {
					return ids, nil
				}
			}
			if len(page) < scanPageSize {
				break
			}
		}
	}
	return ids, nil
}

func (s *Service) recordReport(ctx context.Context, report domain.Report, outcome domain.Outcome, errorSummary string) {
	entry := domain.NewFileLogEntry(domain.OperationParse, outcome,
		report.Broker, report.Account, report.Period.String(),
		report.FileName, report.FileHash, errorSummary)
	if err := s.importLog.Record(ctx, entry); err != nil {
		s.log.WithError(err).WithField("file", report.FileName).Warn("recording audit entry")
	}
}
