package repository

import (
	"strings"
	"testing"

	"github.com/brokercursor/brokercursor/internal/domain"
)

func TestBuildReportFilterEmpty(t *testing.T) {
	where, args := buildReportFilter(ReportFilter{})
	if where != "" {
		t.Errorf("where = %q, want empty", where)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestBuildReportFilterNumbersPlaceholders(t *testing.T) {
	where, args := buildReportFilter(ReportFilter{
		Broker: "sber",
		Period: "2024-03",
		Status: domain.StatusParsed,
	})

	if !strings.HasPrefix(where, "WHERE ") {
		t.Fatalf("where = %q", where)
	}
	for _, want := range []string{"broker = $1", "period = $2", "processing_status = $3"} {
		if !strings.Contains(where, want) {
			t.Errorf("where %q missing %q", where, want)
		}
	}
	if len(args) != 3 {
		t.Fatalf("args = %v, want 3", args)
	}
	if args[0] != "sber" || args[1] != "2024-03" || args[2] != "parsed" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildReportFilterSearch(t *testing.T) {
	where, args := buildReportFilter(ReportFilter{
		SearchAccount: "T49",
		Search:        "дивиденды",
	})

	if !strings.Contains(where, "account ILIKE $1") {
		t.Errorf("where %q missing account search", where)
	}
	if args[0] != "%T49%" {
		t.Errorf("search account arg = %v, want wrapped in wildcards", args[0])
	}
	if !strings.Contains(where, "plainto_tsquery('simple', $2)") {
		t.Errorf("where %q missing full-text clause", where)
	}
	// raw_content is bytea and cannot feed a tsvector.
	if !strings.Contains(where, "parsed_data") || strings.Contains(where, "raw_content") {
		t.Errorf("where %q must search parsed_data, not raw_content", where)
	}
	if args[1] != "дивиденды" {
		t.Errorf("search arg = %v", args[1])
	}
}

func TestStatusPredecessorsMirrorDomain(t *testing.T) {
	for target, froms := range statusPredecessors {
		for _, from := range froms {
			status, err := domain.ParseStatus(from)
			if err != nil {
				t.Fatalf("unknown predecessor %q", from)
			}
			if !status.CanTransitionTo(target) {
				t.Errorf("SQL allows %s -> %s but the domain does not", from, target)
			}
		}
	}
	// Every domain transition must also be allowed by the SQL guard.
	for _, from := range []domain.ProcessingStatus{domain.StatusRaw, domain.StatusProcessing, domain.StatusParsed, domain.StatusError} {
		for _, to := range []domain.ProcessingStatus{domain.StatusRaw, domain.StatusProcessing, domain.StatusParsed, domain.StatusError} {
			if !from.CanTransitionTo(to) {
				continue
			}
			allowed := false
			for _, pred := range statusPredecessors[to] {
				if pred == string(from) {
					allowed = true
				}
			}
			if !allowed {
				t.Errorf("domain allows %s -> %s but the SQL guard does not", from, to)
			}
		}
	}
}
