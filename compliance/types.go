/*
Package compliance holds the domain model and query services of the
non-compliance dashboard.

PURPOSE:
  Records describe one non-compliant patient/scheme pairing loaded from the
  regional spreadsheets. The dashboard never writes them; it filters,
  counts and lists them.

KEY TYPES:
  Record:        One row of the cumplimiento_records table
  SchemeType:    Fixed four-value classification of schemes
  Filter:        Request-scoped equality constraints (region, scheme, type)
  Stats:         Aggregated counts for a filter
  FilterOptions: Distinct values used to populate the filter bar

JSON NAMES:
  Record fields keep the column names of the source table (dd_nombre,
  esquema_actual, ...) because the dashboard UI consumes them directly.

SEE ALSO:
  - service.go: FilterOptions, Records, Stats
  - stats.go: Grouped-count reshaping
  - store.go: Persistence interface
*/
package compliance

import "time"

// =============================================================================
// RECORD
// =============================================================================

// Record is a single non-compliance case.
type Record struct {
	ID         string     `json:"id"`
	Region     string     `json:"dd_nombre"`
	Facility   string     `json:"ee_nombre"`
	Scheme     string     `json:"esquema_actual"`
	SchemeYear int        `json:"año_esquema_actual"`
	Segment    *string    `json:"segmento"`
	PatientID  string     `json:"paciente_id"`
	Condition  string     `json:"condicion"`
	Compliance string     `json:"cumplimiento"`
	SchemeType SchemeType `json:"tipo_esquema"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NonCompliant is the only compliance value the ingest job keeps.
const NonCompliant = "NO"

// =============================================================================
// SCHEME TYPE
// =============================================================================

// SchemeType classifies the scheme a record was checked against.
type SchemeType string

const (
	SchemeCurrent      SchemeType = "esquema_vigente"
	SchemeCustomAdult  SchemeType = "personalizados_18"
	SchemeCustomInfant SchemeType = "personalizados_0a3"
	SchemeCustomChild  SchemeType = "personalizados_4a17"
)

// SchemeTypes lists every scheme type in display order.
var SchemeTypes = []SchemeType{
	SchemeCurrent,
	SchemeCustomAdult,
	SchemeCustomInfant,
	SchemeCustomChild,
}

var schemeTypeLabels = map[SchemeType]string{
	SchemeCurrent:      "Esquema Vigente",
	SchemeCustomAdult:  "Personalizados 18+",
	SchemeCustomInfant: "Personalizados 0-3",
	SchemeCustomChild:  "Personalizados 4-17",
}

// Label returns the human readable name, or the raw value when unknown.
func (t SchemeType) Label() string {
	if l, ok := schemeTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// Valid reports whether t is one of the four fixed scheme types.
func (t SchemeType) Valid() bool {
	_, ok := schemeTypeLabels[t]
	return ok
}

// =============================================================================
// DIMENSIONS
// =============================================================================

// Dimension names a column the dashboard groups or filters by.
type Dimension string

const (
	DimRegion     Dimension = "region"
	DimScheme     Dimension = "scheme"
	DimSchemeType Dimension = "scheme_type"
	DimCondition  Dimension = "condition"
)

// Value returns the record's value for the dimension.
func (r Record) Value(d Dimension) string {
	switch d {
	case DimRegion:
		return r.Region
	case DimScheme:
		return r.Scheme
	case DimSchemeType:
		return string(r.SchemeType)
	case DimCondition:
		return r.Condition
	}
	return ""
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// StatEntry is one name/count pair of a breakdown.
type StatEntry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// GroupCount is a raw single-column grouped count returned by a Store.
type GroupCount struct {
	Key   string
	Count int
}

// RegionTypeCount is a raw region × scheme-type grouped count.
type RegionTypeCount struct {
	Region     string
	SchemeType SchemeType
	Count      int
}

// Stats is the aggregate view of the records matching a Filter.
type Stats struct {
	TotalRecords      int                        `json:"totalRecords"`
	DirisStats        []StatEntry                `json:"dirisStats"`
	DirisStatsBySheet map[SchemeType][]StatEntry `json:"dirisStatsBySheet"`
	EsquemaStats      []StatEntry                `json:"esquemaStats"`
	TipoStats         []StatEntry                `json:"tipoStats"`
	CondicionStats    []StatEntry                `json:"condicionStats"`
}

// FilterOptions holds the distinct values of each filterable column.
type FilterOptions struct {
	Diris    []string `json:"diris"`
	Esquemas []string `json:"esquemas"`
	Tipos    []string `json:"tipos"`
}
