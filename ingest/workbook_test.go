package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/compliance-dashboard/compliance"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestWorkbook() *Workbook {
	w := NewWorkbook(slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.now = func() time.Time { return fixedNow }
	n := 0
	w.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return w
}

// writeSheet fills name with skip title rows, the header, then rows.
func writeSheet(t *testing.T, f *excelize.File, name string, skip int, header []any, rows ...[]any) {
	t.Helper()
	_, err := f.NewSheet(name)
	require.NoError(t, err)

	line := 1
	for i := 0; i < skip; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, line)
		require.NoError(t, f.SetSheetRow(name, cell, &[]any{fmt.Sprintf("titulo %d", i)}))
		line++
	}
	for _, row := range append([][]any{header}, rows...) {
		cell, _ := excelize.CoordinatesToCellName(1, line)
		require.NoError(t, f.SetSheetRow(name, cell, &row))
		line++
	}
}

var baseHeader = []any{"dd_nombre", "ee_nombre", "esquema_actual", "año_esquema_actual", "segmento", "paciente_id", "condicion"}

func header(complianceColumn string) []any {
	return append(append([]any{}, baseHeader...), complianceColumn)
}

// =============================================================================
// SHEET PARSING
// =============================================================================

func TestReadFile_AllSheets(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	writeSheet(t, f, "esquema_vigente", 11, header("esquema_vigente"),
		[]any{" LIMA NORTE ", "C.S. Comas", "ESQ-1", 2024, "ADULTO", "P1", "NUEVO", "NO"},
		[]any{"LIMA NORTE", "C.S. Comas", "ESQ-1", 2024, "", "P2", "NUEVO", "SI"},
		[]any{"LIMA SUR", "C.S. Chorrillos", "ESQ-2", "", "", "P3", "CONTINUADOR", "NO"},
	)
	writeSheet(t, f, "personalizados_cumple_", 8, header("personalizados_cumple_orden_18"),
		[]any{"LIMA ESTE", "C.S. Ate", "ESQ-3", "2025.0", "", "P4", "NUEVO", "NO"},
	)
	writeSheet(t, f, "personalizados_cumple_1", 8, header("personalizados_cumple_orden_niños_0a3"),
		[]any{"LIMA ESTE", "C.S. Ate", "ESQ-4", 2025, "", "P5", "NUEVO", "NO"},
	)
	writeSheet(t, f, "personalizados_cumple_2", 8, header("personalizados_cumple_orden_niños_4a17"),
		[]any{"LIMA ESTE", "C.S. Ate", "ESQ-5", 2025, "", "P6", "NUEVO", "NO"},
	)

	path := filepath.Join(t.TempDir(), "analisis.xlsx")
	require.NoError(t, f.SaveAs(path))

	records, err := newTestWorkbook().ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 5)

	first := records[0]
	assert.Equal(t, "id-1", first.ID)
	assert.Equal(t, "LIMA NORTE", first.Region, "cells are trimmed")
	assert.Equal(t, "C.S. Comas", first.Facility)
	assert.Equal(t, 2024, first.SchemeYear)
	require.NotNil(t, first.Segment)
	assert.Equal(t, "ADULTO", *first.Segment)
	assert.Equal(t, compliance.NonCompliant, first.Compliance)
	assert.Equal(t, compliance.SchemeCurrent, first.SchemeType)
	assert.Equal(t, fixedNow, first.CreatedAt)

	second := records[1]
	assert.Equal(t, "LIMA SUR", second.Region)
	assert.Equal(t, DefaultSchemeYear, second.SchemeYear)
	assert.Nil(t, second.Segment)

	assert.Equal(t, compliance.SchemeCustomAdult, records[2].SchemeType)
	assert.Equal(t, 2025, records[2].SchemeYear)
	assert.Equal(t, compliance.SchemeCustomInfant, records[3].SchemeType)
	assert.Equal(t, compliance.SchemeCustomChild, records[4].SchemeType)
}

func TestRead_MissingSheetIsSkipped(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	writeSheet(t, f, "personalizados_cumple_1", 8, header("personalizados_cumple_orden_niños_0a3"),
		[]any{"LIMA ESTE", "C.S. Ate", "ESQ-4", 2025, "", "P5", "NUEVO", "NO"},
	)

	records := newTestWorkbook().Read(f)
	require.Len(t, records, 1)
	assert.Equal(t, compliance.SchemeCustomInfant, records[0].SchemeType)
}

func TestReadFile_MissingFile(t *testing.T) {
	_, err := newTestWorkbook().ReadFile(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}

func TestReadSheet(t *testing.T) {
	w := newTestWorkbook()
	cfg := SheetConfig{Name: "s", SkipRows: 2, ComplianceColumn: "cumple", SchemeType: compliance.SchemeCurrent}
	hdr := []string{"dd_nombre", "ee_nombre", "esquema_actual", "año_esquema_actual", "segmento", "paciente_id", "condicion", "cumple"}

	t.Run("no header row", func(t *testing.T) {
		_, _, err := w.readSheet(cfg, [][]string{{"titulo"}, {"titulo"}})
		assert.Error(t, err)
	})

	t.Run("missing compliance column", func(t *testing.T) {
		_, _, err := w.readSheet(cfg, [][]string{{}, {}, hdr[:7]})
		assert.ErrorContains(t, err, "cumple")
	})

	t.Run("drops rows missing required fields", func(t *testing.T) {
		rows := [][]string{
			{}, {}, hdr,
			{"LIMA NORTE", "", "ESQ-1", "2025", "", "P1", "NUEVO", "NO"},
			{"LIMA NORTE", "C.S.", "", "2025", "", "P2", "NUEVO", "NO"},
			{"", "C.S.", "ESQ-1", "2025", "", "P3", "NUEVO", "NO"},
			{"LIMA NORTE", "C.S.", "ESQ-1", "2025", "", "", "NUEVO", "NO"},
			{"LIMA NORTE", "C.S.", "ESQ-1", "2025", "", "P5", "NUEVO", " NO "},
			{"LIMA NORTE", "C.S.", "ESQ-1", "2025", "", "P6", "NUEVO", "no"},
			{"LIMA NORTE", "C.S.", "ESQ-1"},
		}
		records, found, err := w.readSheet(cfg, rows)
		require.NoError(t, err)
		assert.Equal(t, 5, found)
		require.Len(t, records, 1)
		assert.Equal(t, "P5", records[0].PatientID)
	})
}

func TestParseYear(t *testing.T) {
	tests := map[string]int{
		"2024":   2024,
		"2023.0": 2023,
		"":       DefaultSchemeYear,
		"n/a":    DefaultSchemeYear,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseYear(in), in)
	}
}
