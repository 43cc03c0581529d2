package classroom

import (
	"context"
	"errors"

	"github.com/trezcool/kelasi/core"
)

var (
	// errors
	ErrNotFound         = errors.New("class not found")
	ErrUnavailable      = errors.New("class is no longer available")
	ErrCapacityExceeded = errors.New("class has no seat left")
)

type Repository interface {
	CreateClass(ctx context.Context, class Class) (Class, error)
	// GetClass returns ErrNotFound when the class does not exist in the school (active or not).
	GetClass(ctx context.Context, schoolID, id int) (Class, error)
	QueryClasses(ctx context.Context, schoolID int, activeOnly bool, ordering ...core.DBOrdering) ([]Class, error)
	// IncrementOccupancy adds one seat to the class occupancy if, at write time, the class is active
	// and not full. It reports whether a row was updated.
	IncrementOccupancy(ctx context.Context, schoolID, id int) (bool, error)
	SetActive(ctx context.Context, schoolID, id int, active bool) error
}
