package inmemdb

import (
	"context"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
)

type classRepository struct {
	s *Store
}

var _ classroom.Repository = (*classRepository)(nil)

func (repo *classRepository) CreateClass(ctx context.Context, class classroom.Class) (classroom.Class, error) {
	err := repo.s.write(ctx, "CreateClass", func(t *tables) error {
		class.ID = t.nextPK()
		t.classes[class.ID] = class
		return nil
	})
	if err != nil {
		return classroom.Class{}, err
	}
	return class, nil
}

func (repo *classRepository) GetClass(_ context.Context, schoolID, id int) (c classroom.Class, err error) {
	err = repo.s.read(func(t *tables) error {
		var ok bool
		if c, ok = t.classes[id]; !ok || c.SchoolID != schoolID {
			return classroom.ErrNotFound
		}
		return nil
	})
	return c, err
}

func (repo *classRepository) QueryClasses(_ context.Context, schoolID int, activeOnly bool, ordering ...core.DBOrdering) ([]classroom.Class, error) {
	classes := make([]classroom.Class, 0)
	err := repo.s.read(func(t *tables) error {
		for _, c := range t.classes {
			if c.SchoolID == schoolID && (c.IsActive || !activeOnly) {
				classes = append(classes, c)
			}
		}
		return nil
	})
	classroom.Sort(classes, ordering...)
	return classes, err
}

func (repo *classRepository) IncrementOccupancy(ctx context.Context, schoolID, id int) (updated bool, err error) {
	err = repo.s.write(ctx, "IncrementOccupancy", func(t *tables) error {
		c, ok := t.classes[id]
		if !ok || c.SchoolID != schoolID || !c.IsActive || c.CurrentOccupancy >= c.MaxCapacity {
			return nil
		}
		c.CurrentOccupancy++
		t.classes[id] = c
		updated = true
		return nil
	})
	return updated, err
}

func (repo *classRepository) SetActive(ctx context.Context, schoolID, id int, active bool) error {
	return repo.s.write(ctx, "SetActive", func(t *tables) error {
		c, ok := t.classes[id]
		if !ok || c.SchoolID != schoolID {
			return classroom.ErrNotFound
		}
		c.IsActive = active
		t.classes[id] = c
		return nil
	})
}
