package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/kelasi/core/student"
)

type studentRepository struct {
	s *Store
}

var _ student.Repository = (*studentRepository)(nil)

func isExcluded(id int, excludedIDs []int) bool {
	for _, excl := range excludedIDs {
		if id == excl {
			return true
		}
	}
	return false
}

func emailTaken(t *tables, schoolID int, email string, excludedIDs ...int) bool {
	if email == "" {
		return false
	}
	for _, stu := range t.students {
		if stu.SchoolID == schoolID && stu.Email == email && !isExcluded(stu.ID, excludedIDs) {
			return true
		}
	}
	return false
}

func (repo *studentRepository) EmailExists(_ context.Context, schoolID int, email string, excludedIDs ...int) (taken bool, err error) {
	err = repo.s.read(func(t *tables) error {
		taken = emailTaken(t, schoolID, email, excludedIDs...)
		return nil
	})
	return taken, err
}

func (repo *studentRepository) LastMatricule(_ context.Context, schoolID int, prefix string) (last string, err error) {
	err = repo.s.read(func(t *tables) error {
		for _, stu := range t.students {
			if stu.SchoolID != schoolID || !strings.HasPrefix(stu.Matricule, prefix) {
				continue
			}
			mat := stu.Matricule
			if len(mat) > len(last) || (len(mat) == len(last) && mat > last) {
				last = mat
			}
		}
		return nil
	})
	return last, err
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	err := repo.s.write(ctx, "CreateStudent", func(t *tables) error {
		for _, stu := range t.students {
			if stu.SchoolID == s.SchoolID && stu.Matricule == s.Matricule {
				return student.ErrMatriculeTaken
			}
		}
		if emailTaken(t, s.SchoolID, s.Email) {
			return student.ErrDuplicateEmail
		}
		s.ID = t.nextPK()
		t.students[s.ID] = s
		return nil
	})
	if err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, schoolID, id int) (s student.Student, err error) {
	err = repo.s.read(func(t *tables) error {
		var ok bool
		if s, ok = t.students[id]; !ok || s.SchoolID != schoolID {
			return student.ErrNotFound
		}
		return nil
	})
	return s, err
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student, expectedVersion int) (student.Student, error) {
	err := repo.s.write(ctx, "UpdateStudent", func(t *tables) error {
		orig, ok := t.students[s.ID]
		if !ok || orig.SchoolID != s.SchoolID || orig.Version != expectedVersion {
			return student.ErrStaleVersion
		}
		if emailTaken(t, s.SchoolID, s.Email, s.ID) {
			return student.ErrDuplicateEmail
		}
		// immutable fields
		s.Matricule = orig.Matricule
		s.CreatedBy = orig.CreatedBy
		s.CreatedAt = orig.CreatedAt
		s.Version = expectedVersion + 1
		t.students[s.ID] = s
		return nil
	})
	if err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo *studentRepository) CreateEnrollment(ctx context.Context, e student.Enrollment) (student.Enrollment, error) {
	err := repo.s.write(ctx, "CreateEnrollment", func(t *tables) error {
		if hasActiveEnrollment(t, e.StudentID, e.ClassID, e.SchoolYear) && e.Status.IsActive() {
			return student.ErrAlreadyEnrolled
		}
		e.ID = t.nextPK()
		t.enrollments[e.ID] = e
		return nil
	})
	if err != nil {
		return student.Enrollment{}, err
	}
	return e, nil
}

func hasActiveEnrollment(t *tables, studentID, classID int, schoolYear string) bool {
	for _, e := range t.enrollments {
		if e.StudentID == studentID && e.ClassID == classID && e.SchoolYear == schoolYear && e.Status.IsActive() {
			return true
		}
	}
	return false
}

func (repo *studentRepository) HasActiveEnrollment(_ context.Context, studentID, classID int, schoolYear string) (active bool, err error) {
	err = repo.s.read(func(t *tables) error {
		active = hasActiveEnrollment(t, studentID, classID, schoolYear)
		return nil
	})
	return active, err
}

func (repo *studentRepository) QueryEnrollments(_ context.Context, studentID int) ([]student.Enrollment, error) {
	var enrs []student.Enrollment
	err := repo.s.read(func(t *tables) error {
		for _, e := range t.enrollments {
			if e.StudentID == studentID {
				enrs = append(enrs, e)
			}
		}
		return nil
	})
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].ID < enrs[j].ID })
	return enrs, err
}
