/*
Package ingest loads non-compliance records from the regional workbook into
a compliance store.

PURPOSE:
  The workbook has one sheet per scheme type. Each sheet starts with a few
  title rows, then a header row, then one row per patient/scheme check with
  a compliance column holding "SI" or "NO". Only "NO" rows become records.

SHEETS:
  esquema_vigente          header after 11 rows  column esquema_vigente
  personalizados_cumple_   header after 8 rows   column personalizados_cumple_orden_18
  personalizados_cumple_1  header after 8 rows   column personalizados_cumple_orden_niños_0a3
  personalizados_cumple_2  header after 8 rows   column personalizados_cumple_orden_niños_4a17

ROW RULES:
  - every cell is trimmed
  - missing or non-numeric año_esquema_actual defaults to 2025
  - empty segmento is stored as NULL
  - rows without dd_nombre, ee_nombre, esquema_actual or paciente_id are dropped
  - a missing sheet or compliance column is logged and skipped

SEE ALSO:
  - seed.go: Destructive reseed in batches
  - cmd/seed/main.go: Command-line entry point
*/
package ingest

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/compliance-dashboard/compliance"
	"github.com/xuri/excelize/v2"
)

// DefaultSchemeYear is used when a row has no readable scheme year.
const DefaultSchemeYear = 2025

// SheetConfig describes how to read one sheet of the workbook.
type SheetConfig struct {
	Name             string
	SkipRows         int
	ComplianceColumn string
	SchemeType       compliance.SchemeType
}

// DefaultSheets is the layout of the regional analysis workbook.
var DefaultSheets = []SheetConfig{
	{
		Name:             "esquema_vigente",
		SkipRows:         11,
		ComplianceColumn: "esquema_vigente",
		SchemeType:       compliance.SchemeCurrent,
	},
	{
		Name:             "personalizados_cumple_",
		SkipRows:         8,
		ComplianceColumn: "personalizados_cumple_orden_18",
		SchemeType:       compliance.SchemeCustomAdult,
	},
	{
		Name:             "personalizados_cumple_1",
		SkipRows:         8,
		ComplianceColumn: "personalizados_cumple_orden_niños_0a3",
		SchemeType:       compliance.SchemeCustomInfant,
	},
	{
		Name:             "personalizados_cumple_2",
		SkipRows:         8,
		ComplianceColumn: "personalizados_cumple_orden_niños_4a17",
		SchemeType:       compliance.SchemeCustomChild,
	},
}

// Workbook reads records from an xlsx file.
type Workbook struct {
	Sheets []SheetConfig
	Logger *slog.Logger

	// now and newID are replaced in tests
	now   func() time.Time
	newID func() string
}

// NewWorkbook returns a reader for the default sheet layout.
func NewWorkbook(logger *slog.Logger) *Workbook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workbook{
		Sheets: DefaultSheets,
		Logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ReadFile opens path and extracts the non-compliance records of every
// configured sheet.
func (w *Workbook) ReadFile(path string) ([]compliance.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	return w.Read(f), nil
}

// Read extracts records from an already opened workbook. Problems with a
// single sheet are logged and that sheet is skipped.
func (w *Workbook) Read(f *excelize.File) []compliance.Record {
	var all []compliance.Record
	for _, cfg := range w.Sheets {
		rows, err := f.GetRows(cfg.Name)
		if err != nil {
			w.Logger.Warn("skipping sheet", "sheet", cfg.Name, "error", err)
			continue
		}

		records, found, err := w.readSheet(cfg, rows)
		if err != nil {
			w.Logger.Warn("skipping sheet", "sheet", cfg.Name, "error", err)
			continue
		}
		w.Logger.Info("processed sheet",
			"sheet", cfg.Name,
			"non_compliant_rows", found,
			"records", len(records),
		)
		all = append(all, records...)
	}

	w.Logger.Info("workbook read", "records", len(all))
	return all
}

// readSheet returns the kept records and the number of "NO" rows seen,
// including rows later dropped for missing required fields.
func (w *Workbook) readSheet(cfg SheetConfig, rows [][]string) ([]compliance.Record, int, error) {
	if len(rows) <= cfg.SkipRows {
		return nil, 0, fmt.Errorf("no header row after %d rows", cfg.SkipRows)
	}

	header := make(map[string]int)
	for i, name := range rows[cfg.SkipRows] {
		name = strings.TrimSpace(name)
		if _, dup := header[name]; !dup {
			header[name] = i
		}
	}
	if _, ok := header[cfg.ComplianceColumn]; !ok {
		return nil, 0, fmt.Errorf("compliance column %q not found", cfg.ComplianceColumn)
	}

	cell := func(row []string, col string) string {
		i, ok := header[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	createdAt := w.now().UTC()
	var (
		records []compliance.Record
		found   int
	)
	for _, row := range rows[cfg.SkipRows+1:] {
		if cell(row, cfg.ComplianceColumn) != compliance.NonCompliant {
			continue
		}
		found++

		r := compliance.Record{
			ID:         w.newID(),
			Region:     cell(row, "dd_nombre"),
			Facility:   cell(row, "ee_nombre"),
			Scheme:     cell(row, "esquema_actual"),
			SchemeYear: parseYear(cell(row, "año_esquema_actual")),
			PatientID:  cell(row, "paciente_id"),
			Condition:  cell(row, "condicion"),
			Compliance: compliance.NonCompliant,
			SchemeType: cfg.SchemeType,
			CreatedAt:  createdAt,
		}
		if seg := cell(row, "segmento"); seg != "" {
			r.Segment = &seg
		}

		if r.Region == "" || r.Facility == "" || r.Scheme == "" || r.PatientID == "" {
			continue
		}
		records = append(records, r)
	}
	return records, found, nil
}

// parseYear accepts "2024" as well as spreadsheet floats like "2024.0".
func parseYear(s string) int {
	if s == "" {
		return DefaultSchemeYear
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return DefaultSchemeYear
}
