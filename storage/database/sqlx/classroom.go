package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
)

var classColumns = []string{
	"id", "school_id", "label", "level", "school_year", "max_capacity", "current_occupancy", "is_active", "created_at",
}

type classRow struct {
	ID               int       `db:"id"`
	SchoolID         int       `db:"school_id"`
	Label            string    `db:"label"`
	Level            string    `db:"level"`
	SchoolYear       string    `db:"school_year"`
	MaxCapacity      int       `db:"max_capacity"`
	CurrentOccupancy int       `db:"current_occupancy"`
	IsActive         bool      `db:"is_active"`
	CreatedAt        time.Time `db:"created_at"`
}

func (row classRow) toModel() classroom.Class {
	return classroom.Class{
		ID:               row.ID,
		SchoolID:         row.SchoolID,
		Label:            row.Label,
		Level:            row.Level,
		SchoolYear:       row.SchoolYear,
		MaxCapacity:      row.MaxCapacity,
		CurrentOccupancy: row.CurrentOccupancy,
		IsActive:         row.IsActive,
		CreatedAt:        row.CreatedAt.UTC(),
	}
}

type classRepository struct {
	baseRepository
}

var _ classroom.Repository = (*classRepository)(nil)

func (repo *classRepository) CreateClass(ctx context.Context, class classroom.Class) (classroom.Class, error) {
	id, err := repo.insert(ctx, repo.sb.Insert("classes").
		Columns("school_id", "label", "level", "school_year", "max_capacity", "current_occupancy", "is_active", "created_at").
		Values(class.SchoolID, class.Label, class.Level, class.SchoolYear, class.MaxCapacity, class.CurrentOccupancy, class.IsActive, class.CreatedAt))
	if err != nil {
		return classroom.Class{}, errors.Wrap(err, "inserting class")
	}
	class.ID = id
	return class, nil
}

func (repo *classRepository) GetClass(ctx context.Context, schoolID, id int) (classroom.Class, error) {
	var row classRow
	q := repo.sb.Select(classColumns...).From("classes").Where(squirrel.Eq{"school_id": schoolID, "id": id})
	if err := repo.get(ctx, &row, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return classroom.Class{}, classroom.ErrNotFound
		}
		return classroom.Class{}, errors.Wrap(err, "selecting class")
	}
	return row.toModel(), nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, schoolID int, activeOnly bool, ordering ...core.DBOrdering) ([]classroom.Class, error) {
	q := repo.sb.Select(classColumns...).From("classes").Where(squirrel.Eq{"school_id": schoolID})
	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	q = q.OrderBy(orderBy(ordering, classroom.OrderingFields, classroom.DefaultOrdering), "id ASC")

	var rows []classRow
	if err := repo.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	classes := make([]classroom.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.toModel())
	}
	return classes, nil
}

// IncrementOccupancy re-checks the capacity in the UPDATE itself: on PostgreSQL the guard is
// re-evaluated once the row lock is granted, so two racing enrollments cannot both take the last seat.
func (repo *classRepository) IncrementOccupancy(ctx context.Context, schoolID, id int) (bool, error) {
	n, err := repo.exec(ctx, repo.sb.Update("classes").
		Set("current_occupancy", squirrel.Expr("current_occupancy + 1")).
		Where(squirrel.Eq{"id": id, "school_id": schoolID, "is_active": true}).
		Where("current_occupancy < max_capacity"))
	if err != nil {
		return false, errors.Wrap(err, "incrementing class occupancy")
	}
	return n == 1, nil
}

func (repo *classRepository) SetActive(ctx context.Context, schoolID, id int, active bool) error {
	n, err := repo.exec(ctx, repo.sb.Update("classes").
		Set("is_active", active).
		Where(squirrel.Eq{"id": id, "school_id": schoolID}))
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	if n == 0 {
		return classroom.ErrNotFound
	}
	return nil
}

// orderBy keeps the orderings on whitelisted columns, falling back to `fallback`.
func orderBy(ords []core.DBOrdering, allowed map[string]string, fallback []core.DBOrdering) string {
	columns := make(map[string]bool, len(allowed))
	for _, col := range allowed {
		columns[col] = true
	}
	kept := make([]core.DBOrdering, 0, len(ords))
	for _, ord := range ords {
		if columns[ord.Field] {
			kept = append(kept, ord)
		}
	}
	if len(kept) == 0 {
		kept = fallback
	}
	return core.OrderByClause(kept, "id ASC")
}
