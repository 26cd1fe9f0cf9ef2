package compliance

import (
	"net/url"
	"strings"
)

// AllValues is the sentinel the dashboard sends for "no constraint".
const AllValues = "all"

// Filter restricts a query to records whose columns equal the given values.
// An empty field places no constraint on that column.
type Filter struct {
	Region     string
	Scheme     string
	SchemeType SchemeType
}

// query parameter names, followed by the names the first dashboard release used
var (
	regionParams     = []string{"region", "diris"}
	schemeParams     = []string{"scheme", "esquema"}
	schemeTypeParams = []string{"schemeType", "tipo"}
)

// ParseFilter reads a Filter from query parameters. Missing, empty and "all"
// values are treated as no constraint; nothing is ever rejected.
func ParseFilter(q url.Values) Filter {
	return Filter{
		Region:     firstParam(q, regionParams),
		Scheme:     firstParam(q, schemeParams),
		SchemeType: SchemeType(firstParam(q, schemeTypeParams)),
	}
}

func firstParam(q url.Values, names []string) string {
	for _, name := range names {
		v := strings.TrimSpace(q.Get(name))
		if v == "" || strings.EqualFold(v, AllValues) {
			continue
		}
		return v
	}
	return ""
}

// IsZero reports whether the filter matches every record.
func (f Filter) IsZero() bool {
	return f.Region == "" && f.Scheme == "" && f.SchemeType == ""
}

// Match reports whether r satisfies every constraint of f.
func (f Filter) Match(r Record) bool {
	if f.Region != "" && r.Region != f.Region {
		return false
	}
	if f.Scheme != "" && r.Scheme != f.Scheme {
		return false
	}
	if f.SchemeType != "" && r.SchemeType != f.SchemeType {
		return false
	}
	return true
}

// Constraint is one active equality predicate of a Filter.
type Constraint struct {
	Dimension Dimension
	Value     string
}

// Constraints returns the active predicates in a fixed order so SQL stores
// can build their WHERE clause without ever seeing the "all" sentinel.
func (f Filter) Constraints() []Constraint {
	var cs []Constraint
	if f.Region != "" {
		cs = append(cs, Constraint{Dimension: DimRegion, Value: f.Region})
	}
	if f.Scheme != "" {
		cs = append(cs, Constraint{Dimension: DimScheme, Value: f.Scheme})
	}
	if f.SchemeType != "" {
		cs = append(cs, Constraint{Dimension: DimSchemeType, Value: string(f.SchemeType)})
	}
	return cs
}
