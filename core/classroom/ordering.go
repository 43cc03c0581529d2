package classroom

import (
	"sort"
	"strings"

	"github.com/trezcool/kelasi/core"
)

// OrderingFields maps the sortable API fields to their column names.
var OrderingFields = map[string]string{
	"label":             "label",
	"level":             "level",
	"school_year":       "school_year",
	"max_capacity":      "max_capacity",
	"current_occupancy": "current_occupancy",
	"created_at":        "created_at",
}

// DefaultOrdering lists the most recent school year first.
var DefaultOrdering = []core.DBOrdering{
	{Field: "school_year", Ascending: false},
	{Field: "level", Ascending: true},
	{Field: "label", Ascending: true},
}

// Sort orders classes in memory the way the SQL repositories do; unknown fields are ignored.
func Sort(classes []Class, ords ...core.DBOrdering) {
	if len(ords) == 0 {
		ords = DefaultOrdering
	}
	sort.SliceStable(classes, func(i, j int) bool {
		for _, ord := range ords {
			c := compareField(classes[i], classes[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return classes[i].ID < classes[j].ID
	})
}

func compareField(a, b Class, field string) int {
	switch field {
	case "label":
		return strings.Compare(a.Label, b.Label)
	case "level":
		return strings.Compare(a.Level, b.Level)
	case "school_year":
		return strings.Compare(a.SchoolYear, b.SchoolYear)
	case "max_capacity":
		return a.MaxCapacity - b.MaxCapacity
	case "current_occupancy":
		return a.CurrentOccupancy - b.CurrentOccupancy
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}
