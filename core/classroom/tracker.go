package classroom

import (
	"context"

	"github.com/pkg/errors"
)

// CheckAvailability reads the occupancy of an active class.
// The result is a snapshot: IncrementOccupancy re-checks capacity when it writes.
func CheckAvailability(ctx context.Context, repo Repository, schoolID, classID int) (Availability, error) {
	class, err := repo.GetClass(ctx, schoolID, classID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Availability{}, ErrUnavailable
		}
		return Availability{}, err
	}
	if !class.IsActive {
		return Availability{}, ErrUnavailable
	}
	return Availability{Current: class.CurrentOccupancy, Max: class.MaxCapacity}, nil
}

// IncrementOccupancy takes one seat in the class. It must run inside the transaction that writes the enrollment.
// When the guarded update touches nothing, the class is re-read to tell ErrUnavailable from ErrCapacityExceeded.
func IncrementOccupancy(ctx context.Context, repo Repository, schoolID, classID int) error {
	ok, err := repo.IncrementOccupancy(ctx, schoolID, classID)
	if err != nil {
		return errors.Wrap(err, "incrementing class occupancy")
	}
	if ok {
		return nil
	}

	avail, err := CheckAvailability(ctx, repo, schoolID, classID)
	if err != nil {
		return err
	}
	if !avail.HasSeat() {
		return ErrCapacityExceeded
	}
	// the guard failed but a seat shows up now: only possible if the row changed under us.
	return ErrUnavailable
}
