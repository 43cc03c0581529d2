package core

import (
	"strings"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses a comma separated list of fields ("label,-school_year") into DBOrderings.
// A leading "-" means descending. Fields missing from `allowed` are dropped; `allowed` maps
// API field names to column names.
func ParseOrdering(raw string, allowed map[string]string) []DBOrdering {
	if raw == "" {
		return nil
	}
	var ords []DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		col, ok := allowed[field]
		if !ok {
			continue
		}
		ords = append(ords, DBOrdering{Field: col, Ascending: !descending})
	}
	return ords
}

// OrderByClause joins orderings into an SQL ORDER BY expression, or returns `fallback` when empty.
func OrderByClause(ords []DBOrdering, fallback string) string {
	if len(ords) == 0 {
		return fallback
	}
	parts := make([]string, 0, len(ords))
	for _, ord := range ords {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}
