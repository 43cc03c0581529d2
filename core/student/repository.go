package student

import (
	"context"

	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/core/guardian"
	"github.com/trezcool/kelasi/core/school"
)

type Repository interface {
	EmailExists(ctx context.Context, schoolID int, email string, excludedIDs ...int) (bool, error)
	// LastMatricule returns the highest matricule of the school starting with `prefix`
	// (longest first, then in lexical order), or "" when there is none.
	LastMatricule(ctx context.Context, schoolID int, prefix string) (string, error)
	// CreateStudent returns ErrMatriculeTaken or ErrDuplicateEmail when a unique constraint fails.
	// A failed insert leaves the surrounding transaction usable.
	CreateStudent(ctx context.Context, s Student) (Student, error)
	GetStudent(ctx context.Context, schoolID, id int) (Student, error)
	// UpdateStudent writes `s` if its stored version still is `expectedVersion`, bumping the version.
	// Returns ErrStaleVersion otherwise.
	UpdateStudent(ctx context.Context, s Student, expectedVersion int) (Student, error)
	// CreateEnrollment returns ErrAlreadyEnrolled when the student holds an active enrollment
	// in the same class and school year.
	CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
	HasActiveEnrollment(ctx context.Context, studentID, classID int, schoolYear string) (bool, error)
	QueryEnrollments(ctx context.Context, studentID int) ([]Enrollment, error)
}

// Store gives access to every repository the enrollment workflow writes to.
type Store interface {
	Schools() school.Repository
	Students() Repository
	Guardians() guardian.Repository
	Classes() classroom.Repository
	// WithinTx runs `fn` in a transaction, handing it a Store bound to it.
	// The transaction is committed if `fn` returns nil and rolled back otherwise (panics included).
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
