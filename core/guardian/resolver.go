package guardian

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
)

// Resolve looks for a guardian of the school matching the candidate's last name, first name and phone exactly.
// A candidate without phone never matches, so a new guardian gets created for it.
//
// This is a heuristic, not an identity check: two concurrent enrollments may still create the same person twice.
func Resolve(ctx context.Context, repo Repository, schoolID int, c Candidate) (id int, found bool, err error) {
	phone := core.CleanString(c.Phone)
	if phone == "" {
		return 0, false, nil
	}

	g, err := repo.FindGuardian(ctx, schoolID, core.CollapseSpaces(c.LastName), core.CollapseSpaces(c.FirstName), phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "resolving guardian")
	}
	return g.ID, true, nil
}

// MatchLinked looks for the candidate among the guardians already linked to a student.
// Names must match exactly once cleaned; phones must match too unless the candidate has none.
func MatchLinked(linked []Guardian, c Candidate) (id int, found bool) {
	lastName, firstName := core.CollapseSpaces(c.LastName), core.CollapseSpaces(c.FirstName)
	phone := core.CleanString(c.Phone)
	for _, g := range linked {
		if g.LastName != lastName || g.FirstName != firstName {
			continue
		}
		if phone == "" || g.Phone == phone {
			return g.ID, true
		}
	}
	return 0, false
}
