package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kelasi/core"
)

type Class struct {
	ID               int       `json:"id" db:"id"`
	SchoolID         int       `json:"school_id" db:"school_id"`
	Label            string    `json:"label" db:"label"`
	Level            string    `json:"level" db:"level"`
	SchoolYear       string    `json:"school_year" db:"school_year"`
	MaxCapacity      int       `json:"max_capacity" db:"max_capacity"`
	CurrentOccupancy int       `json:"current_occupancy" db:"current_occupancy"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"` // UTC
}

// SeatsLeft returns the number of open seats (never negative).
func (c Class) SeatsLeft() int {
	if left := c.MaxCapacity - c.CurrentOccupancy; left > 0 {
		return left
	}
	return 0
}

func (c Class) IsFull() bool { return c.SeatsLeft() == 0 }

// Availability is the occupancy snapshot of a class.
type Availability struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

func (a Availability) HasSeat() bool { return a.Current < a.Max }

// NewClass contains information needed to create a new Class.
type NewClass struct {
	SchoolID    int    `json:"school_id" validate:"required,gt=0"`
	Label       string `json:"label" validate:"required,max=64"`
	Level       string `json:"level" validate:"required,max=64"`
	SchoolYear  string `json:"school_year" validate:"required,schoolyear"`
	MaxCapacity int    `json:"max_capacity" validate:"required,gt=0,lte=500"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Label = core.CollapseSpaces(nc.Label)
	nc.Level = core.CollapseSpaces(nc.Level)
	nc.SchoolYear = core.CleanString(nc.SchoolYear)
	return validate.Struct(nc)
}

// QueryFilter narrows class listings.
type QueryFilter struct {
	SchoolYear string `query:"school_year"`
	Level      string `query:"level"`
	WithSeats  bool   `query:"with_seats"`
}

func (qf QueryFilter) IsEmpty() bool {
	return qf.SchoolYear == "" && qf.Level == "" && !qf.WithSeats
}

// Apply filters `classes` in place order.
func (qf QueryFilter) Apply(classes []Class) []Class {
	if qf.IsEmpty() {
		return classes
	}
	out := make([]Class, 0, len(classes))
	for _, c := range classes {
		if qf.SchoolYear != "" && c.SchoolYear != qf.SchoolYear {
			continue
		}
		if qf.Level != "" && c.Level != qf.Level {
			continue
		}
		if qf.WithSeats && c.IsFull() {
			continue
		}
		out = append(out, c)
	}
	return out
}
