/*
handlers.go - HTTP API handlers for the compliance dashboard

PURPOSE:
  Exposes the compliance query services via a read-only REST API. Handles
  query parsing, JSON/CSV serialization and error mapping; everything else
  is delegated to compliance.Service.

ENDPOINTS:
  GET /api/cumplimiento/filters     Distinct regions, schemes, scheme types
  GET /api/cumplimiento             Every record matching the filter
  GET /api/cumplimiento/stats       Totals and grouped breakdowns
  GET /api/cumplimiento/table       Searched and paginated records
  GET /api/cumplimiento/export.csv  Searched records as CSV
  GET /api/scheme-types             Fixed scheme types with labels

QUERY PARAMETERS:
  region, scheme, schemeType  Equality filters ("all" or absent = none).
                              diris, esquema, tipo are accepted as aliases.
  q                           Free-text search (table, export)
  page                        1-based page number (table)

ERROR HANDLING:
  Every store failure answers 500 with a generic {"error": "..."} body.
  The underlying error is logged with the request ID, never returned.
  Unknown filter values are not errors: they simply match nothing.

SEE ALSO:
  - dto.go: Response types
  - server.go: Router setup and middleware
  - compliance/service.go: Query services
*/
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/compliance-dashboard/compliance"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *compliance.Service
	Logger  *slog.Logger
}

// NewHandler creates a new handler over the given service.
func NewHandler(svc *compliance.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Service: svc,
		Logger:  logger,
	}
}

// =============================================================================
// DASHBOARD ENDPOINTS
// =============================================================================

// GetFilterOptions returns the values that populate the filter bar.
func (h *Handler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.Service.FilterOptions(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to fetch filter options", err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// ListRecords returns every record matching the filter.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	filter := compliance.ParseFilter(r.URL.Query())

	records, err := h.Service.Records(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to fetch compliance data", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetStats returns the totals and breakdowns for the filter.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	filter := compliance.ParseFilter(r.URL.Query())

	stats, err := h.Service.Stats(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to fetch compliance stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// TABLE ENDPOINTS
// =============================================================================

// GetTablePage returns one page of the searched records.
func (h *Handler) GetTablePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := compliance.ParseFilter(q)

	records, err := h.Service.Records(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to fetch compliance data", err)
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	writeJSON(w, http.StatusOK, compliance.Paginate(compliance.Search(records, q.Get("q")), page))
}

// ExportCSV streams every searched record, not just the visible page.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := compliance.ParseFilter(q)

	records, err := h.Service.Records(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to export compliance data", err)
		return
	}
	records = compliance.Search(records, q.Get("q"))

	filename := fmt.Sprintf("cumplimiento_datos_%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	// headers are already sent; a failure here can only be logged
	if err := compliance.WriteCSV(w, records); err != nil {
		h.Logger.ErrorContext(r.Context(), "csv export interrupted",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
}

// =============================================================================
// REFERENCE ENDPOINTS
// =============================================================================

// ListSchemeTypes returns the fixed scheme types in display order.
func (h *Handler) ListSchemeTypes(w http.ResponseWriter, r *http.Request) {
	dtos := make([]SchemeTypeDTO, len(compliance.SchemeTypes))
	for i, t := range compliance.SchemeTypes {
		dtos[i] = SchemeTypeDTO{ID: string(t), Label: t.Label()}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health reports that the process is serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// fail logs err with the request ID and answers 500 with a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.Logger.ErrorContext(r.Context(), message,
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, message)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
