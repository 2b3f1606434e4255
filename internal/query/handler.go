package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/brokercursor/brokercursor/internal/domain"
	"github.com/brokercursor/brokercursor/internal/ingestion"
	"github.com/brokercursor/brokercursor/internal/parsing"
	"github.com/brokercursor/brokercursor/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Handler exposes the read side of the store plus pipeline triggers.
type Handler struct {
	reports   repository.ReportRepository
	importLog repository.ImportLogRepository
	importer  *ingestion.Service
	parser    *parsing.Service
}

// NewHTTPHandler builds the route table for the API server.
func NewHTTPHandler(
	reports repository.ReportRepository,
	importLog repository.ImportLogRepository,
	importer *ingestion.Service,
	parser *parsing.Service,
) http.Handler {
	h := &Handler{
		reports:   reports,
		importLog: importLog,
		importer:  importer,
		parser:    parser,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /reports", h.listReports)
	mux.HandleFunc("GET /reports/{id}", h.getReport)
	mux.HandleFunc("GET /reports/{id}/payload", h.getPayload)
	mux.HandleFunc("GET /statistics", h.statistics)
	mux.HandleFunc("GET /import-log", h.listImportLog)
	mux.HandleFunc("POST /import", h.runImport)
	mux.HandleFunc("POST /parse", h.runParse)
	mux.HandleFunc("GET /healthz", h.health)
	return mux
}

type listResponse struct {
	Reports []domain.Report `json:"reports"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.ReportFilter{
		Broker:        strings.TrimSpace(q.Get("broker")),
		Period:        strings.TrimSpace(q.Get("period")),
		Account:       strings.TrimSpace(q.Get("account")),
		SearchAccount: strings.TrimSpace(q.Get("search_account")),
		Search:        strings.TrimSpace(q.Get("search")),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid status: %v", err), http.StatusBadRequest)
			return
		}
		filter.Status = status
	}
	if filter.Period != "" {
		if _, err := domain.ParsePeriod(filter.Period); err != nil {
			http.Error(w, fmt.Sprintf("invalid period: %v", err), http.StatusBadRequest)
			return
		}
	}

	limit, offset, err := pagination(q.Get("limit"), q.Get("offset"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reports, total, err := h.reports.List(r.Context(), filter, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Reports: reports,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) getPayload(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	if report.ParsedData == nil {
		http.Error(w, fmt.Sprintf("report %s has no parsed payload (status %s)", report.ID, report.Status),
			http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, report.ParsedData)
}

func (h *Handler) loadReport(w http.ResponseWriter, r *http.Request) (domain.Report, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid report id: %v", err), http.StatusBadRequest)
		return domain.Report{}, false
	}
	report, err := h.reports.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, fmt.Sprintf("report %s not found", id), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return domain.Report{}, false
	}
	return report, true
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Statistics(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) listImportLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := pagination(q.Get("limit"), q.Get("offset"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	operation := domain.Operation(strings.TrimSpace(q.Get("operation")))
	outcome := domain.Outcome(strings.TrimSpace(q.Get("outcome")))
	entries, err := h.importLog.List(r.Context(), operation, outcome, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []domain.ImportLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *Handler) runImport(w http.ResponseWriter, r *http.Request) {
	result, err := h.importer.Run(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) runParse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := parsing.Options{
		Broker:  strings.TrimSpace(q.Get("broker")),
		Retry:   q.Get("retry") == "true",
		Reparse: q.Get("reparse") == "true",
	}
	result, err := h.parser.Run(r.Context(), opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.reports.Count(r.Context()); err != nil {
		http.Error(w, "store unreachable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pagination(rawLimit, rawOffset string) (limit, offset int, err error) {
	limit = defaultPageSize
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit <= 0 {
			return 0, 0, fmt.Errorf("invalid limit %q", rawLimit)
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}
	if rawOffset != "" {
		offset, err = strconv.Atoi(rawOffset)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", rawOffset)
		}
	}
	return limit, offset, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
