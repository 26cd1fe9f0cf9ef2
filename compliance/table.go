package compliance

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// PageSize is the number of rows shown per page of the record table.
const PageSize = 25

// Search returns the records whose region, facility, scheme, condition or
// patient ID contains term, ignoring case. An empty term matches everything.
func Search(records []Record, term string) []Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}

	matched := make([]Record, 0)
	for _, r := range records {
		if containsFold(r.Region, term) ||
			containsFold(r.Facility, term) ||
			containsFold(r.Scheme, term) ||
			containsFold(r.Condition, term) ||
			containsFold(r.PatientID, term) {
			matched = append(matched, r)
		}
	}
	return matched
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

// Page is one slice of a record listing.
type Page struct {
	Records      []Record `json:"records"`
	Page         int      `json:"page"`
	PageSize     int      `json:"pageSize"`
	TotalPages   int      `json:"totalPages"`
	TotalRecords int      `json:"totalRecords"`
}

// Paginate returns the requested page of records. The page number is clamped
// to [1, totalPages]; an empty listing has a single empty page.
func Paginate(records []Record, page int) Page {
	total := len(records)
	pages := (total + PageSize - 1) / PageSize
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * PageSize
	end := min(start+PageSize, total)

	out := make([]Record, end-start)
	copy(out, records[start:end])
	return Page{
		Records:      out,
		Page:         page,
		PageSize:     PageSize,
		TotalPages:   pages,
		TotalRecords: total,
	}
}

// CSVHeader is the header row of the exported file.
var CSVHeader = []string{
	"DIRIS",
	"Establecimiento",
	"Esquema Actual",
	"Año",
	"Segmento",
	"Paciente ID",
	"Condición",
	"Tipo Esquema",
}

// WriteCSV writes the header and one row per record. Fields containing
// commas, quotes or newlines are quoted.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		segment := ""
		if r.Segment != nil {
			segment = *r.Segment
		}
		row := []string{
			r.Region,
			r.Facility,
			r.Scheme,
			strconv.Itoa(r.SchemeYear),
			segment,
			r.PatientID,
			r.Condition,
			string(r.SchemeType),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
