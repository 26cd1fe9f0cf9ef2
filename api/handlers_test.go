/*
handlers_test.go - HTTP tests for the dashboard API

Tests for:
- Filter options, records and stats endpoints
- Filter parameters ("all", aliases, unknown values)
- Table paging/search and CSV export
- 500 {"error"} responses when the store fails
*/
package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/compliance-dashboard/compliance"
	"github.com/warp/compliance-dashboard/metrics"
	"github.com/warp/compliance-dashboard/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	store  *sqlite.Store
	router http.Handler
}

func newTestServer(t *testing.T, records ...compliance.Record) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if len(records) > 0 {
		require.NoError(t, store.InsertBatch(context.Background(), records))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	svc := compliance.NewService(store,
		compliance.WithLogger(logger),
		compliance.WithMetrics(metrics.New(reg)),
	)
	router := NewRouter(NewHandler(svc, logger), RouterOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return &testServer{store: store, router: router}
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func record(id, region, scheme string, st compliance.SchemeType, condition string) compliance.Record {
	return compliance.Record{
		ID:         id,
		Region:     region,
		Facility:   "C.S. " + id,
		Scheme:     scheme,
		SchemeYear: 2025,
		PatientID:  "PAC-" + id,
		Condition:  condition,
		Compliance: compliance.NonCompliant,
		SchemeType: st,
	}
}

func fixtures() []compliance.Record {
	return []compliance.Record{
		record("1", "LIMA NORTE", "ESQ-1", compliance.SchemeCurrent, "NUEVO"),
		record("2", "LIMA NORTE", "ESQ-2", compliance.SchemeCustomAdult, "CONTINUADOR"),
		record("3", "LIMA SUR", "ESQ-1", compliance.SchemeCurrent, "NUEVO"),
		record("4", "LIMA SUR", "ESQ-3", compliance.SchemeCustomInfant, "NUEVO"),
		record("5", "LIMA ESTE", "ESQ-1", compliance.SchemeCustomChild, "CONTINUADOR"),
	}
}

// =============================================================================
// FILTER OPTIONS
// =============================================================================

func TestGetFilterOptions(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	// filter parameters are ignored here
	rec := srv.get(t, "/api/cumplimiento/filters?region=LIMA+SUR")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	opts := decode[compliance.FilterOptions](t, rec)
	assert.Equal(t, []string{"LIMA ESTE", "LIMA NORTE", "LIMA SUR"}, opts.Diris)
	assert.Equal(t, []string{"ESQ-1", "ESQ-2", "ESQ-3"}, opts.Esquemas)
	assert.Equal(t, []string{"esquema_vigente", "personalizados_0a3", "personalizados_18", "personalizados_4a17"}, opts.Tipos)
}

func TestGetFilterOptions_EmptyTableServesEmptyArrays(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.get(t, "/api/cumplimiento/filters")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"diris":[],"esquemas":[],"tipos":[]}`, rec.Body.String())
}

// =============================================================================
// RECORDS
// =============================================================================

func TestListRecords_Filters(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"no filter", "", []string{"5", "1", "2", "3", "4"}},
		{"all sentinel", "?region=all&scheme=all&schemeType=all", []string{"5", "1", "2", "3", "4"}},
		{"region", "?region=LIMA+SUR", []string{"3", "4"}},
		{"region alias", "?diris=LIMA+SUR", []string{"3", "4"}},
		{"scheme and type", "?esquema=ESQ-1&tipo=esquema_vigente", []string{"1", "3"}},
		{"unknown region", "?region=NO+EXISTE", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.get(t, "/api/cumplimiento"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			records := decode[[]compliance.Record](t, rec)
			ids := make([]string, 0, len(records))
			for _, r := range records {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestListRecords_WireShape(t *testing.T) {
	srv := newTestServer(t, record("1", "LIMA NORTE", "ESQ-1", compliance.SchemeCurrent, "NUEVO"))

	rec := srv.get(t, "/api/cumplimiento")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "LIMA NORTE", row["dd_nombre"])
	assert.Equal(t, "ESQ-1", row["esquema_actual"])
	assert.Equal(t, float64(2025), row["año_esquema_actual"])
	assert.Nil(t, row["segmento"])
	assert.Equal(t, "NO", row["cumplimiento"])
	assert.Equal(t, "esquema_vigente", row["tipo_esquema"])
}

func TestListRecords_EmptyIsArray(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.get(t, "/api/cumplimiento")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// =============================================================================
// STATS
// =============================================================================

func TestGetStats(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	rec := srv.get(t, "/api/cumplimiento/stats?scheme=ESQ-1")
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[compliance.Stats](t, rec)
	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 3, compliance.Sum(stats.DirisStats))
	assert.Equal(t, []compliance.StatEntry{{Name: "ESQ-1", Value: 3}}, stats.EsquemaStats)
	assert.Equal(t, compliance.StatEntry{Name: "esquema_vigente", Value: 2}, stats.TipoStats[0])
	assert.Equal(t, compliance.StatEntry{Name: "NUEVO", Value: 2}, stats.CondicionStats[0])

	require.Len(t, stats.DirisStatsBySheet, 4)
	assert.ElementsMatch(t, []compliance.StatEntry{
		{Name: "LIMA NORTE", Value: 1},
		{Name: "LIMA SUR", Value: 1},
	}, stats.DirisStatsBySheet[compliance.SchemeCurrent])
	assert.Empty(t, stats.DirisStatsBySheet[compliance.SchemeCustomAdult])
}

func TestGetStats_EmptyTableWireShape(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.get(t, "/api/cumplimiento/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"totalRecords": 0,
		"dirisStats": [],
		"dirisStatsBySheet": {
			"esquema_vigente": [],
			"personalizados_18": [],
			"personalizados_0a3": [],
			"personalizados_4a17": []
		},
		"esquemaStats": [],
		"tipoStats": [],
		"condicionStats": []
	}`, rec.Body.String())
}

// =============================================================================
// TABLE AND EXPORT
// =============================================================================

func TestGetTablePage(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	rec := srv.get(t, "/api/cumplimiento/table?q=continuador&page=7")
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[compliance.Page](t, rec)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 2, page.TotalRecords)
	assert.Equal(t, compliance.PageSize, page.PageSize)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "5", page.Records[0].ID)
}

func TestExportCSV(t *testing.T) {
	records := fixtures()
	records[0].Facility = "Posta, Anexo 2"
	srv := newTestServer(t, records...)

	rec := srv.get(t, "/api/cumplimiento/export.csv?diris=LIMA+NORTE")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cumplimiento_datos_")

	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, compliance.CSVHeader, rows[0])
	assert.Equal(t, "Posta, Anexo 2", rows[1][1])
}

// =============================================================================
// REFERENCE AND OPS
// =============================================================================

func TestListSchemeTypes(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.get(t, "/api/scheme-types")
	require.Equal(t, http.StatusOK, rec.Code)

	dtos := decode[[]SchemeTypeDTO](t, rec)
	require.Len(t, dtos, 4)
	assert.Equal(t, "esquema_vigente", dtos[0].ID)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	rec := srv.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	srv.get(t, "/api/cumplimiento/stats")
	rec = srv.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `compliance_query_duration_seconds_count{operation="stats"} 1`)
}

// =============================================================================
// FAILURES
// =============================================================================

func TestStoreFailureReturns500(t *testing.T) {
	tests := []struct {
		path    string
		message string
	}{
		{"/api/cumplimiento/filters", "Failed to fetch filter options"},
		{"/api/cumplimiento?region=LIMA+NORTE", "Failed to fetch compliance data"},
		{"/api/cumplimiento/stats", "Failed to fetch compliance stats"},
		{"/api/cumplimiento/table", "Failed to fetch compliance data"},
		{"/api/cumplimiento/export.csv", "Failed to export compliance data"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			// GIVEN: A store whose connection is gone
			srv := newTestServer(t, fixtures()...)
			require.NoError(t, srv.store.Close())

			// WHEN
			rec := srv.get(t, tt.path)

			// THEN: 500 with a generic error body and no partial data
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}
