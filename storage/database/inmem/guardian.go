package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kelasi/core/guardian"
)

type guardianRepository struct {
	s *Store
}

var _ guardian.Repository = (*guardianRepository)(nil)

func (repo *guardianRepository) FindGuardian(_ context.Context, schoolID int, lastName, firstName, phone string) (guardian.Guardian, error) {
	found := guardian.Guardian{}
	err := repo.s.read(func(t *tables) error {
		for _, g := range t.guardians {
			if g.SchoolID == schoolID && g.LastName == lastName && g.FirstName == firstName && g.Phone == phone {
				// lowest id, as the SQL repositories do
				if found.ID == 0 || g.ID < found.ID {
					found = g
				}
			}
		}
		if found.ID == 0 {
			return guardian.ErrNotFound
		}
		return nil
	})
	return found, err
}

func (repo *guardianRepository) GetGuardian(_ context.Context, schoolID, id int) (g guardian.Guardian, err error) {
	err = repo.s.read(func(t *tables) error {
		var ok bool
		if g, ok = t.guardians[id]; !ok || g.SchoolID != schoolID {
			return guardian.ErrNotFound
		}
		return nil
	})
	return g, err
}

func (repo *guardianRepository) CreateGuardian(ctx context.Context, g guardian.Guardian) (guardian.Guardian, error) {
	err := repo.s.write(ctx, "CreateGuardian", func(t *tables) error {
		g.ID = t.nextPK()
		t.guardians[g.ID] = g
		return nil
	})
	if err != nil {
		return guardian.Guardian{}, err
	}
	return g, nil
}

func (repo *guardianRepository) QueryLinks(_ context.Context, studentID int) ([]guardian.Link, error) {
	var links []guardian.Link
	err := repo.s.read(func(t *tables) error {
		for _, l := range t.links {
			if l.StudentID == studentID {
				links = append(links, l)
			}
		}
		return nil
	})
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links, err
}

func (repo *guardianRepository) CreateLink(ctx context.Context, link guardian.Link) (guardian.Link, error) {
	err := repo.s.write(ctx, "CreateLink", func(t *tables) error {
		for _, l := range t.links {
			if l.StudentID == link.StudentID && l.GuardianID == link.GuardianID {
				return guardian.ErrLinkExists
			}
		}
		link.ID = t.nextPK()
		t.links[link.ID] = link
		return nil
	})
	if err != nil {
		return guardian.Link{}, err
	}
	return link, nil
}

func (repo *guardianRepository) UpdateLink(ctx context.Context, link guardian.Link) (guardian.Link, error) {
	err := repo.s.write(ctx, "UpdateLink", func(t *tables) error {
		orig, ok := t.links[link.ID]
		if !ok || orig.StudentID != link.StudentID {
			return guardian.ErrLinkNotFound
		}
		link.GuardianID = orig.GuardianID
		link.CreatedAt = orig.CreatedAt
		t.links[link.ID] = link
		return nil
	})
	if err != nil {
		return guardian.Link{}, err
	}
	return link, nil
}
