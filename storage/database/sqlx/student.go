package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core/student"
	"github.com/trezcool/kelasi/storage/database"
)

var (
	studentMatriculeKey = database.UniqueKey{
		Constraint: "students_school_matricule_key",
		Columns:    "students.school_id, students.matricule",
	}
	studentEmailKey = database.UniqueKey{
		Constraint: "students_school_email_key",
		Columns:    "students.school_id, students.email",
	}
	enrollmentActiveKey = database.UniqueKey{
		Constraint: "enrollments_active_key",
		Columns:    "enrollments.student_id, enrollments.class_id, enrollments.school_year",
	}

	studentColumns = []string{
		"id", "school_id", "matricule", "last_name", "middle_name", "first_name", "sex", "birth_date",
		"birth_place", "nationality", "phone", "email", "address", "city", "status", "version",
		"created_by", "created_at", "updated_at",
	}
	enrollmentColumns = []string{
		"id", "school_id", "student_id", "class_id", "school_year", "enrolled_on", "status", "created_by", "created_at",
	}
	activeEnrollmentStatuses = []string{string(student.EnrollmentInProgress), string(student.EnrollmentValidated)}
)

type studentRow struct {
	ID          int         `db:"id"`
	SchoolID    int         `db:"school_id"`
	Matricule   string      `db:"matricule"`
	LastName    string      `db:"last_name"`
	MiddleName  null.String `db:"middle_name"`
	FirstName   string      `db:"first_name"`
	Sex         string      `db:"sex"`
	BirthDate   time.Time   `db:"birth_date"`
	BirthPlace  string      `db:"birth_place"`
	Nationality string      `db:"nationality"`
	Phone       string      `db:"phone"`
	Email       null.String `db:"email"`
	Address     string      `db:"address"`
	City        string      `db:"city"`
	Status      string      `db:"status"`
	Version     int         `db:"version"`
	CreatedBy   int         `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (row studentRow) toModel() student.Student {
	return student.Student{
		ID:          row.ID,
		SchoolID:    row.SchoolID,
		Matricule:   row.Matricule,
		LastName:    row.LastName,
		MiddleName:  row.MiddleName.String,
		FirstName:   row.FirstName,
		Sex:         student.Sex(row.Sex),
		BirthDate:   toDate(row.BirthDate),
		BirthPlace:  row.BirthPlace,
		Nationality: row.Nationality,
		Phone:       row.Phone,
		Email:       row.Email.String,
		Address:     row.Address,
		City:        row.City,
		Status:      student.Status(row.Status),
		Version:     row.Version,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type enrollmentRow struct {
	ID         int       `db:"id"`
	SchoolID   int       `db:"school_id"`
	StudentID  int       `db:"student_id"`
	ClassID    int       `db:"class_id"`
	SchoolYear string    `db:"school_year"`
	EnrolledOn time.Time `db:"enrolled_on"`
	Status     string    `db:"status"`
	CreatedBy  int       `db:"created_by"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row enrollmentRow) toModel() student.Enrollment {
	return student.Enrollment{
		ID:         row.ID,
		SchoolID:   row.SchoolID,
		StudentID:  row.StudentID,
		ClassID:    row.ClassID,
		SchoolYear: row.SchoolYear,
		EnrolledOn: toDate(row.EnrolledOn),
		Status:     student.EnrollmentStatus(row.Status),
		CreatedBy:  row.CreatedBy,
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

// toDate drops the time and location parts drivers may attach to DATE columns.
func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

type studentRepository struct {
	baseRepository
}

var _ student.Repository = (*studentRepository)(nil)

func (repo *studentRepository) EmailExists(ctx context.Context, schoolID int, email string, excludedIDs ...int) (bool, error) {
	q := repo.sb.Select("COUNT(*)").From("students").Where(squirrel.Eq{"school_id": schoolID, "email": email})
	if len(excludedIDs) > 0 {
		q = q.Where(squirrel.NotEq{"id": excludedIDs})
	}
	var count int
	if err := repo.get(ctx, &count, q); err != nil {
		return false, errors.Wrap(err, "counting student emails")
	}
	return count > 0, nil
}

func (repo *studentRepository) LastMatricule(ctx context.Context, schoolID int, prefix string) (string, error) {
	q := repo.sb.Select("matricule").From("students").
		Where(squirrel.Eq{"school_id": schoolID}).
		Where(squirrel.Like{"matricule": prefix + "%"}).
		OrderBy("LENGTH(matricule) DESC", "matricule DESC").
		Limit(1)
	var last string
	if err := repo.get(ctx, &last, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrap(err, "selecting last matricule")
	}
	return last, nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := repo.sb.Insert("students").
		Columns(
			"school_id", "matricule", "last_name", "middle_name", "first_name", "sex", "birth_date",
			"birth_place", "nationality", "phone", "email", "address", "city", "status", "version",
			"created_by", "created_at", "updated_at",
		).
		Values(
			s.SchoolID, s.Matricule, s.LastName, nullString(s.MiddleName), s.FirstName, string(s.Sex), toDate(s.BirthDate),
			s.BirthPlace, s.Nationality, s.Phone, nullString(s.Email), s.Address, s.City, string(s.Status), s.Version,
			s.CreatedBy, s.CreatedAt, s.UpdatedAt,
		)

	err := repo.savepoint(ctx, "create_student", func() error {
		id, err := repo.insert(ctx, q)
		s.ID = id
		return err
	})
	switch {
	case err == nil:
		return s, nil
	case database.IsUniqueViolation(err, studentMatriculeKey):
		return student.Student{}, student.ErrMatriculeTaken
	case database.IsUniqueViolation(err, studentEmailKey):
		return student.Student{}, student.ErrDuplicateEmail
	}
	return student.Student{}, errors.Wrap(err, "inserting student")
}

func (repo *studentRepository) GetStudent(ctx context.Context, schoolID, id int) (student.Student, error) {
	var row studentRow
	q := repo.sb.Select(studentColumns...).From("students").Where(squirrel.Eq{"school_id": schoolID, "id": id})
	if err := repo.get(ctx, &row, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.toModel(), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student, expectedVersion int) (student.Student, error) {
	q := repo.sb.Update("students").
		SetMap(map[string]interface{}{
			"last_name":   s.LastName,
			"middle_name": nullString(s.MiddleName),
			"first_name":  s.FirstName,
			"sex":         string(s.Sex),
			"birth_date":  toDate(s.BirthDate),
			"birth_place": s.BirthPlace,
			"nationality": s.Nationality,
			"phone":       s.Phone,
			"email":       nullString(s.Email),
			"address":     s.Address,
			"city":        s.City,
			"status":      string(s.Status),
			"version":     expectedVersion + 1,
			"updated_at":  s.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": s.ID, "school_id": s.SchoolID, "version": expectedVersion})

	n, err := repo.exec(ctx, q)
	if err != nil {
		if database.IsUniqueViolation(err, studentEmailKey) {
			return student.Student{}, student.ErrDuplicateEmail
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n == 0 {
		return student.Student{}, student.ErrStaleVersion
	}
	s.Version = expectedVersion + 1
	return s, nil
}

func (repo *studentRepository) CreateEnrollment(ctx context.Context, e student.Enrollment) (student.Enrollment, error) {
	id, err := repo.insert(ctx, repo.sb.Insert("enrollments").
		Columns("school_id", "student_id", "class_id", "school_year", "enrolled_on", "status", "created_by", "created_at").
		Values(e.SchoolID, e.StudentID, e.ClassID, e.SchoolYear, toDate(e.EnrolledOn), string(e.Status), e.CreatedBy, e.CreatedAt))
	if err != nil {
		if database.IsUniqueViolation(err, enrollmentActiveKey) {
			return student.Enrollment{}, student.ErrAlreadyEnrolled
		}
		return student.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	e.ID = id
	return e, nil
}

func (repo *studentRepository) HasActiveEnrollment(ctx context.Context, studentID, classID int, schoolYear string) (bool, error) {
	q := repo.sb.Select("COUNT(*)").From("enrollments").Where(squirrel.Eq{
		"student_id":  studentID,
		"class_id":    classID,
		"school_year": schoolYear,
		"status":      activeEnrollmentStatuses,
	})
	var count int
	if err := repo.get(ctx, &count, q); err != nil {
		return false, errors.Wrap(err, "counting enrollments")
	}
	return count > 0, nil
}

func (repo *studentRepository) QueryEnrollments(ctx context.Context, studentID int) ([]student.Enrollment, error) {
	var rows []enrollmentRow
	q := repo.sb.Select(enrollmentColumns...).From("enrollments").Where(squirrel.Eq{"student_id": studentID}).OrderBy("id")
	if err := repo.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	enrs := make([]student.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.toModel())
	}
	return enrs, nil
}
