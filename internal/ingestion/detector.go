package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/brokercursor/brokercursor/internal/domain"
	"github.com/brokercursor/brokercursor/internal/repository"
)

// Verdict classifies a candidate file against the store.
type Verdict string

const (
	// VerdictNew means no stored report conflicts with the candidate.
	VerdictNew Verdict = "new"
	// VerdictExactDuplicate means a report with the same content hash exists.
	VerdictExactDuplicate Verdict = "exact_duplicate"
	// VerdictCollisionMismatch means a report with the same broker, account
	// and period exists but its content differs.
	VerdictCollisionMismatch Verdict = "collision_mismatch"
	// VerdictSemanticDuplicate means a stored payload covers the same
	// broker, account and date range.
	VerdictSemanticDuplicate Verdict = "semantic_duplicate"
)

// Detection is the verdict plus the stored report that triggered it.
type Detection struct {
	Verdict  Verdict
	Existing *domain.Report
}

// Detector decides whether a candidate file may enter the store.
type Detector struct {
	reports repository.ReportRepository
}

func NewDetector(reports repository.ReportRepository) *Detector {
	return &Detector{reports: reports}
}

// Detect runs the checks in fixed order: exact content match first, then the
// identity collision, then (when a parsed payload is available) the semantic
// range check. The first hit wins.
func (d *Detector) Detect(ctx context.Context, fileHash string, meta Metadata, payload *domain.StatementPayload) (Detection, error) {
	existing, err := d.reports.GetByHash(ctx, fileHash)
	switch {
	case err == nil:
		return Detection{Verdict: VerdictExactDuplicate, Existing: &existing}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return Detection{}, fmt.Errorf("hash lookup: %w", err)
	}

	existing, err = d.reports.GetByIdentity(ctx, meta.Broker, meta.Account, meta.Period)
	switch {
	case err == nil:
		// Same slot, different bytes.
		return Detection{Verdict: VerdictCollisionMismatch, Existing: &existing}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return Detection{}, fmt.Errorf("identity lookup: %w", err)
	}

	if payload != nil {
		broker, account, start, end := payload.Identity()
		existing, err = d.reports.GetByParsedIdentity(ctx, broker, account, start, end)
		switch {
		case err == nil:
			return Detection{Verdict: VerdictSemanticDuplicate, Existing: &existing}, nil
		case !errors.Is(err, domain.ErrNotFound):
			return Detection{}, fmt.Errorf("parsed identity lookup: %w", err)
		}
	}

	return Detection{Verdict: VerdictNew}, nil
}
