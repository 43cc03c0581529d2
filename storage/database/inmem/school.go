package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kelasi/core/school"
)

type schoolRepository struct {
	s *Store
}

var _ school.Repository = (*schoolRepository)(nil)

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	err := repo.s.write(ctx, "CreateSchool", func(t *tables) error {
		sch.ID = t.nextPK()
		t.schools[sch.ID] = sch
		return nil
	})
	if err != nil {
		return school.School{}, err
	}
	return sch, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id int) (sch school.School, err error) {
	err = repo.s.read(func(t *tables) error {
		var ok bool
		if sch, ok = t.schools[id]; !ok {
			return school.ErrNotFound
		}
		return nil
	})
	return sch, err
}

func (repo *schoolRepository) QuerySchools(context.Context) ([]school.School, error) {
	var schools []school.School
	err := repo.s.read(func(t *tables) error {
		schools = make([]school.School, 0, len(t.schools))
		for _, sch := range t.schools {
			schools = append(schools, sch)
		}
		return nil
	})
	sort.Slice(schools, func(i, j int) bool { return schools[i].ID < schools[j].ID })
	return schools, err
}
