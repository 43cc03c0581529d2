package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core/school"
)

type schoolRow struct {
	ID              int       `db:"id"`
	Name            string    `db:"name"`
	MatriculePrefix string    `db:"matricule_prefix"`
	CreatedAt       time.Time `db:"created_at"`
}

func (row schoolRow) toModel() school.School {
	return school.School{ID: row.ID, Name: row.Name, MatriculePrefix: row.MatriculePrefix, CreatedAt: row.CreatedAt.UTC()}
}

var schoolColumns = []string{"id", "name", "matricule_prefix", "created_at"}

type schoolRepository struct {
	baseRepository
}

var _ school.Repository = (*schoolRepository)(nil)

func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	id, err := repo.insert(ctx, repo.sb.Insert("schools").
		Columns("name", "matricule_prefix", "created_at").
		Values(s.Name, s.MatriculePrefix, s.CreatedAt))
	if err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	s.ID = id
	return s, nil
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id int) (school.School, error) {
	var row schoolRow
	err := repo.get(ctx, &row, repo.sb.Select(schoolColumns...).From("schools").Where(squirrel.Eq{"id": id}))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, errors.Wrap(err, "selecting school")
	}
	return row.toModel(), nil
}

func (repo *schoolRepository) QuerySchools(ctx context.Context) ([]school.School, error) {
	var rows []schoolRow
	if err := repo.selectAll(ctx, &rows, repo.sb.Select(schoolColumns...).From("schools").OrderBy("id")); err != nil {
		return nil, errors.Wrap(err, "selecting schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.toModel())
	}
	return schools, nil
}
