package student

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
)

// GenerateMatricule derives a matricule "<PREFIX><YY><NNNN>" for the school: YY is the current year,
// NNNN follows the highest serial issued for that prefix and year, offset by `attempt` (0 for the first try).
// Gaps left in the sequence are never filled.
//
// Generation is best effort: the unique constraint on insert is what guarantees uniqueness,
// callers retry with the next attempt when the insert collides.
func GenerateMatricule(ctx context.Context, repo Repository, schoolID int, prefix string, attempt int) (string, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(prefix, "prefix"),
		vala.GreaterThan(schoolID, 0, "schoolID"),
		vala.GreaterThan(attempt, -1, "attempt"),
	).Check(); err != nil {
		return "", err
	}

	base := fmt.Sprintf("%s%02d", prefix, core.NowFunc().UTC().Year()%100)
	last, err := repo.LastMatricule(ctx, schoolID, base)
	if err != nil {
		return "", errors.Wrap(err, "getting last matricule")
	}

	serial := 0
	if last != "" {
		if serial, err = strconv.Atoi(strings.TrimPrefix(last, base)); err != nil {
			return "", errors.Errorf("unexpected matricule %q for prefix %q", last, base)
		}
	}
	return fmt.Sprintf("%s%04d", base, serial+1+attempt), nil
}

// MatriculeRegexp matches the matricules generated for `prefix`.
func MatriculeRegexp(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `[0-9]{2}[0-9]{4,}$`)
}
