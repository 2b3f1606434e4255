package ingestion

import (
	"context"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/brokercursor/brokercursor/internal/config"
	"github.com/brokercursor/brokercursor/internal/domain"
	"github.com/brokercursor/brokercursor/internal/parsers"
	"github.com/brokercursor/brokercursor/internal/repository"

	"github.com/sirupsen/logrus"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	Processed          int `json:"processed"`
	Imported           int `json:"imported"`
	ExactDuplicates    int `json:"exact_duplicates"`
	Collisions         int `json:"collisions"`
	SemanticDuplicates int `json:"semantic_duplicates"`
	Unresolved         int `json:"unresolved"`
	Failed             int `json:"failed"`
}

// Service is the import pipeline: it scans the inbox, classifies each file
// against the store, persists new reports and relocates handled files into
// the archive. One bad file never stops the run.
type Service struct {
	reports   repository.ReportRepository
	importLog repository.ImportLogRepository
	registry  *parsers.Registry
	extractor *MetadataExtractor
	detector  *Detector
	scanner   *Scanner
	paths     config.Paths
	log       *logrus.Logger
}

func NewService(
	reports repository.ReportRepository,
	importLog repository.ImportLogRepository,
	registry *parsers.Registry,
	cfg config.Config,
	log *logrus.Logger,
) *Service {
	return &Service{
		reports:   reports,
		importLog: importLog,
		registry:  registry,
		extractor: NewMetadataExtractor(),
		detector:  NewDetector(reports),
		scanner:   NewScanner(cfg.Import.SupportedExtensions, cfg.Import.MaxFileSizeMB, log),
		paths:     cfg.Paths,
		log:       log,
	}
}

// Run imports every supported file currently in the inbox. Files it cannot
// resolve stay in place; everything else ends up in an archive subtree. Each
// file gets an audit record, and the run itself a batch summary.
func (s *Service) Run(ctx context.Context) (ImportResult, error) {
	startedAt := time.Now()

	files, err := s.scanner.Scan(s.paths.Inbox)
	if err != nil {
		return ImportResult{}, err
	}
	s.log.WithField("files", len(files)).Info("import run started")

	var result ImportResult
	for _, file := range files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Processed++
		s.importFile(ctx, file, &result)
	}

	batch := domain.NewBatchLogEntry(domain.OperationImport,
		result.Processed, result.Imported, result.Failed, "", startedAt)
	if err := s.importLog.Record(ctx, batch); err != nil {
		s.log.WithError(err).Warn("recording batch summary")
	}

	s.log.WithFields(logrus.Fields{
		"processed":  result.Processed,
		"imported":   result.Imported,
		"duplicates": result.ExactDuplicates,
		"collisions": result.Collisions,
		"semantic":   result.SemanticDuplicates,
		"unresolved": result.Unresolved,
		"failed":     result.Failed,
	}).Info("import run finished")
	return result, nil
}

func (s *Service) importFile(ctx context.Context, file IncomingFile, result *ImportResult) {
	logger := s.log.WithField("file", file.Name)

	raw, err := os.ReadFile(file.Path)
	if err != nil {
		result.Failed++
		logger.WithError(err).Error("reading file")
		s.recordFile(ctx, domain.OutcomeFailure, Metadata{}, file.Name, "", err.Error())
		return
	}
	fileHash := HashContent(raw)

	// Binary formats (xlsx) carry no scannable text; the filename is then
	// the only metadata source.
	var textContent string
	if utf8.Valid(raw) {
		textContent = string(raw)
	}
	meta := s.extractor.Extract(file.Name, textContent)

	// Best-effort parse: when the broker is known, parsed data is the
	// authoritative source for account and period.
	payload := s.opportunisticParse(raw, file.Name, &meta, logger)

	if !meta.Resolved() {
		result.Unresolved++
		logger.WithFields(logrus.Fields{
			"broker": meta.Broker,
			"period": meta.Period.String(),
		}).Warn("metadata unresolved, file left in inbox")
		s.recordFile(ctx, domain.OutcomeUnresolvedMetadata, meta, file.Name, fileHash,
			"broker or period could not be determined")
		return
	}

	detection, err := s.detector.Detect(ctx, fileHash, meta, payload)
	if err != nil {
		result.Failed++
		logger.WithError(err).Error("duplicate detection")
		s.recordFile(ctx, domain.OutcomeFailure, meta, file.Name, fileHash, err.Error())
		return
	}

	switch detection.Verdict {
	case VerdictExactDuplicate:
		result.ExactDuplicates++
		s.archive(ctx, file, meta, fileHash, domain.OutcomeExactDuplicate,
			config.ArchiveExactDuplicates, logger)
		return
	case VerdictCollisionMismatch:
		result.Collisions++
		s.archive(ctx, file, meta, fileHash, domain.OutcomeCollisionMismatch,
			config.ArchiveConflicts, logger)
		return
	case VerdictSemanticDuplicate:
		result.SemanticDuplicates++
		s.archive(ctx, file, meta, fileHash, domain.OutcomeSemanticDuplicate,
			config.ArchiveSemanticDuplicates, logger)
		return
	}

	report := domain.NewReport(meta.Broker, meta.Account, meta.Period,
		file.Name, fileHash, raw, file.Size)
	report.FilePath = file.Path
	report.ClientName = meta.ClientName
	report.ReportDate = meta.ReportDate
	report.Metadata = map[string]any{
		"source":          "inbox",
		"detected_broker": meta.Broker,
	}

	inserted, err := s.reports.Insert(ctx, report)
	if err != nil {
		result.Failed++
		logger.WithError(err).Error("inserting report")
		s.recordFile(ctx, domain.OutcomeFailure, meta, file.Name, fileHash, err.Error())
		return
	}

	if payload != nil {
		s.persistPayload(ctx, inserted, payload, logger)
	}

	// The row is committed; only now does the file leave the inbox.
	dest, err := MoveFile(file.Path, s.paths.ArchiveDir(config.ArchiveImported))
	if err != nil {
		logger.WithError(err).Error("relocating imported file")
		s.recordFile(ctx, domain.OutcomeAnomaly, meta, file.Name, fileHash,
			fmt.Sprintf("imported but not relocated: %v", err))
	} else if err := s.reports.UpdateFilePath(ctx, inserted.ID, dest); err != nil {
		logger.WithError(err).Warn("recording archive location")
	}

	result.Imported++
	logger.WithFields(logrus.Fields{
		"broker":  meta.Broker,
		"account": meta.Account.String(),
		"period":  meta.Period.String(),
	}).Info("file imported")
	s.recordFile(ctx, domain.OutcomeSuccess, meta, file.Name, fileHash, "")
}

// opportunisticParse attempts a full parse during import. On success the
// payload's account and period override what the filename suggested; a parse
// failure is not an import failure.
func (s *Service) opportunisticParse(content []byte, fileName string, meta *Metadata, logger *logrus.Entry) *domain.StatementPayload {
	if meta.Broker == "" {
		return nil
	}
	parser, err := s.registry.Get(meta.Broker)
	if err != nil {
		return nil
	}
	payload, err := parser.Parse(content, parsers.Hint{
		FileName: fileName,
		Broker:   meta.Broker,
		Account:  meta.Account,
		Period:   meta.Period,
	})
	if err != nil {
		logger.WithError(err).Debug("opportunistic parse failed, importing raw")
		return nil
	}

	payload.ParserVersion = parser.Version()
	if payload.AccountNumber != "" {
		meta.Account = domain.NewAccount(payload.AccountNumber)
	}
	if period, err := payload.PeriodMonth(); err == nil {
		if !meta.Period.IsZero() && meta.Period != period {
			logger.WithFields(logrus.Fields{
				"filename_period": meta.Period.String(),
				"parsed_period":   period.String(),
			}).Warn("period mismatch, trusting parsed data")
		}
		meta.Period = period
	}
	if payload.ClientName != "" {
		meta.ClientName = payload.ClientName
	}
	return payload
}

// persistPayload advances a freshly inserted report straight through
// processing to parsed. Failures leave the report raw for the parse pipeline
// to retry.
func (s *Service) persistPayload(ctx context.Context, report domain.Report, payload *domain.StatementPayload, logger *logrus.Entry) {
	if err := s.reports.UpdateStatus(ctx, report.ID, domain.StatusProcessing, repository.StatusUpdate{}); err != nil {
		logger.WithError(err).Warn("marking report processing")
		return
	}
	update := repository.StatusUpdate{ParsedData: payload, ParserVersion: payload.ParserVersion}
	if err := s.reports.UpdateStatus(ctx, report.ID, domain.StatusParsed, update); err != nil {
		logger.WithError(err).Warn("storing parsed payload")
	}
}

// archive relocates a classified file and records the decision.
func (s *Service) archive(ctx context.Context, file IncomingFile, meta Metadata, fileHash string, outcome domain.Outcome, classification string, logger *logrus.Entry) {
	dest, err := MoveFile(file.Path, s.paths.ArchiveDir(classification))
	if err != nil {
		logger.WithError(err).Error("relocating file")
		s.recordFile(ctx, domain.OutcomeAnomaly, meta, file.Name, fileHash,
			fmt.Sprintf("classified %s but not relocated: %v", outcome, err))
		return
	}
	logger.WithFields(logrus.Fields{
		"outcome": outcome,
		"dest":    dest,
	}).Info("file archived")
	s.recordFile(ctx, outcome, meta, file.Name, fileHash, "")
}

func (s *Service) recordFile(ctx context.Context, outcome domain.Outcome, meta Metadata, fileName, fileHash, errorSummary string) {
	entry := domain.NewFileLogEntry(domain.OperationImport, outcome,
		meta.Broker, meta.Account, meta.Period.String(), fileName, fileHash, errorSummary)
	if err := s.importLog.Record(ctx, entry); err != nil {
		s.log.WithError(err).WithField("file", fileName).Warn("recording audit entry")
	}
}
