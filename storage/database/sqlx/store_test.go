package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/core/guardian"
	"github.com/trezcool/kelasi/core/student"
	"github.com/trezcool/kelasi/services/email"
	"github.com/trezcool/kelasi/storage/database/sqlx"
	"github.com/trezcool/kelasi/testutil"
)

func newStudent(schoolID int, matricule, email string) student.Student {
	now := time.Now().UTC()
	return student.Student{
		SchoolID:  schoolID,
		Matricule: matricule,
		LastName:  "Mukendi",
		FirstName: "Grace",
		Sex:       student.SexFemale,
		BirthDate: time.Date(2015, 3, 14, 0, 0, 0, 0, time.UTC),
		Email:     email,
		Status:    student.StatusActive,
		Version:   1,
		CreatedBy: 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStudentRepository(t *testing.T) {
	ctx := context.Background()
	store := sqlxrepos.NewStore(testutil.PrepareDB(t))
	sch := testutil.CreateSchool(t, store.Schools(), "Institut Mwinda", "IMW")
	repo := store.Students()

	created, err := repo.CreateStudent(ctx, newStudent(sch.ID, "IMW250001", "grace@kelasi.cd"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := repo.GetStudent(ctx, sch.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "IMW250001", got.Matricule)
	assert.Equal(t, "grace@kelasi.cd", got.Email)
	assert.Equal(t, "", got.MiddleName)
	assert.Equal(t, time.Date(2015, 3, 14, 0, 0, 0, 0, time.UTC), got.BirthDate)

	t.Run("unique violations", func(t *testing.T) {
		_, err := repo.CreateStudent(ctx, newStudent(sch.ID, "IMW250001", ""))
		assert.Equal(t, student.ErrMatriculeTaken, err)

		_, err = repo.CreateStudent(ctx, newStudent(sch.ID, "IMW250002", "grace@kelasi.cd"))
		assert.Equal(t, student.ErrDuplicateEmail, err)

		// NULL emails do not collide
		_, err = repo.CreateStudent(ctx, newStudent(sch.ID, "IMW250003", ""))
		require.NoError(t, err)
		_, err = repo.CreateStudent(ctx, newStudent(sch.ID, "IMW250004", ""))
		require.NoError(t, err)
	})

	t.Run("email and matricule lookups", func(t *testing.T) {
		taken, err := repo.EmailExists(ctx, sch.ID, "grace@kelasi.cd")
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.EmailExists(ctx, sch.ID, "grace@kelasi.cd", created.ID)
		require.NoError(t, err)
		assert.False(t, taken)

		last, err := repo.LastMatricule(ctx, sch.ID, "IMW25")
		require.NoError(t, err)
		assert.Equal(t, "IMW250004", last)

		last, err = repo.LastMatricule(ctx, sch.ID, "IMW24")
		require.NoError(t, err)
		assert.Empty(t, last)
	})

	t.Run("optimistic update", func(t *testing.T) {
		s := got
		s.City = "Kolwezi"
		s.UpdatedAt = time.Now().UTC()
		updated, err := repo.UpdateStudent(ctx, s, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		_, err = repo.UpdateStudent(ctx, s, 1)
		assert.Equal(t, student.ErrStaleVersion, err)

		reread, err := repo.GetStudent(ctx, sch.ID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Kolwezi", reread.City)
		assert.Equal(t, 2, reread.Version)
	})

	t.Run("enrollments", func(t *testing.T) {
		class := testutil.CreateClass(t, store.Classes(), sch.ID, "6A", "2025-2026", 30, 0)
		enr := student.Enrollment{
			SchoolID:   sch.ID,
			StudentID:  created.ID,
			ClassID:    class.ID,
			SchoolYear: class.SchoolYear,
			EnrolledOn: time.Now().UTC(),
			Status:     student.EnrollmentInProgress,
			CreatedBy:  1,
			CreatedAt:  time.Now().UTC(),
		}
		_, err := repo.CreateEnrollment(ctx, enr)
		require.NoError(t, err)

		active, err := repo.HasActiveEnrollment(ctx, created.ID, class.ID, class.SchoolYear)
		require.NoError(t, err)
		assert.True(t, active)

		_, err = repo.CreateEnrollment(ctx, enr)
		assert.Equal(t, student.ErrAlreadyEnrolled, err)

		// inactive enrollments are history, not duplicates
		enr.Status = student.EnrollmentCancelled
		_, err = repo.CreateEnrollment(ctx, enr)
		require.NoError(t, err)

		enrs, err := repo.QueryEnrollments(ctx, created.ID)
		require.NoError(t, err)
		assert.Len(t, enrs, 2)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetStudent(ctx, sch.ID+1, created.ID)
		assert.Equal(t, student.ErrNotFound, err)
	})
}

func TestClassRepository_IncrementOccupancy(t *testing.T) {
	ctx := context.Background()
	store := sqlxrepos.NewStore(testutil.PrepareDB(t))
	sch := testutil.CreateSchool(t, store.Schools(), "Institut Mwinda", "IMW")
	repo := store.Classes()

	lastSeat := testutil.CreateClass(t, repo, sch.ID, "6A", "2025-2026", 30, 29)
	closed := testutil.CreateClass(t, repo, sch.ID, "6B", "2025-2026", 30, 0, false)

	ok, err := repo.IncrementOccupancy(ctx, sch.ID, lastSeat.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IncrementOccupancy(ctx, sch.ID, lastSeat.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.IncrementOccupancy(ctx, sch.ID, closed.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	classes, err := repo.QueryClasses(ctx, sch.ID, true)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, 30, classes[0].CurrentOccupancy)
	assert.True(t, classes[0].IsFull())

	all, err := repo.QueryClasses(ctx, sch.ID, false, core.DBOrdering{Field: "label", Ascending: false})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "6B", all[0].Label)

	require.NoError(t, repo.SetActive(ctx, sch.ID, closed.ID, true))
	assert.Equal(t, classroom.ErrNotFound, repo.SetActive(ctx, sch.ID, 404, true))
}

func TestGuardianRepository(t *testing.T) {
	ctx := context.Background()
	store := sqlxrepos.NewStore(testutil.PrepareDB(t))
	sch := testutil.CreateSchool(t, store.Schools(), "Institut Mwinda", "IMW")
	stu, err := store.Students().CreateStudent(ctx, newStudent(sch.ID, "IMW250001", ""))
	require.NoError(t, err)
	repo := store.Guardians()

	g, err := repo.CreateGuardian(ctx, guardian.Guardian{
		SchoolID:  sch.ID,
		LastName:  "Mukendi",
		FirstName: "Marie",
		Phone:     "0810000000",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	found, err := repo.FindGuardian(ctx, sch.ID, "Mukendi", "Marie", "0810000000")
	require.NoError(t, err)
	assert.Equal(t, g.ID, found.ID)
	assert.Equal(t, "", found.Email)

	_, err = repo.FindGuardian(ctx, sch.ID, "Mukendi", "Marie", "0990000000")
	assert.Equal(t, guardian.ErrNotFound, err)

	now := time.Now().UTC()
	link, err := repo.CreateLink(ctx, guardian.Link{
		StudentID:    stu.ID,
		GuardianID:   g.ID,
		Relationship: guardian.RelMother,
		IsPrimary:    true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)

	_, err = repo.CreateLink(ctx, link)
	assert.Equal(t, guardian.ErrLinkExists, err)

	link.IsActive, link.IsPrimary = false, false
	_, err = repo.UpdateLink(ctx, link)
	require.NoError(t, err)

	links, err := repo.QueryLinks(ctx, stu.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.False(t, links[0].IsActive)
	assert.Equal(t, guardian.RelMother, links[0].Relationship)

	link.ID = 404
	_, err = repo.UpdateLink(ctx, link)
	assert.Equal(t, guardian.ErrLinkNotFound, err)
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()
	store := sqlxrepos.NewStore(testutil.PrepareDB(t))
	sch := testutil.CreateSchool(t, store.Schools(), "Institut Mwinda", "IMW")
	_, err := store.Students().CreateStudent(ctx, newStudent(sch.ID, "IMW250001", ""))
	require.NoError(t, err)

	t.Run("failed insert keeps the transaction usable", func(t *testing.T) {
		err := store.WithinTx(ctx, func(tx student.Store) error {
			if _, err := tx.Students().CreateStudent(ctx, newStudent(sch.ID, "IMW250001", "")); err != student.ErrMatriculeTaken {
				t.Errorf("CreateStudent() error = %v, want %v", err, student.ErrMatriculeTaken)
			}
			_, err := tx.Students().CreateStudent(ctx, newStudent(sch.ID, "IMW250002", ""))
			return err
		})
		require.NoError(t, err)

		last, err := store.Students().LastMatricule(ctx, sch.ID, "IMW")
		require.NoError(t, err)
		assert.Equal(t, "IMW250002", last)
	})

	t.Run("rollback", func(t *testing.T) {
		err := store.WithinTx(ctx, func(tx student.Store) error {
			if _, err := tx.Students().CreateStudent(ctx, newStudent(sch.ID, "IMW250003", "")); err != nil {
				return err
			}
			return classroom.ErrCapacityExceeded
		})
		assert.Equal(t, classroom.ErrCapacityExceeded, err)

		last, err := store.Students().LastMatricule(ctx, sch.ID, "IMW")
		require.NoError(t, err)
		assert.Equal(t, "IMW250002", last)
	})

	t.Run("rollback on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = store.WithinTx(ctx, func(tx student.Store) error {
				if _, err := tx.Students().CreateStudent(ctx, newStudent(sch.ID, "IMW250004", "")); err != nil {
					return err
				}
				panic("boom")
			})
		})

		last, err := store.Students().LastMatricule(ctx, sch.ID, "IMW")
		require.NoError(t, err)
		assert.Equal(t, "IMW250002", last)
	})
}

type enrollmentFixture struct {
	store    *sqlxrepos.Store
	svc      *student.Service
	schoolID int
}

func setupEnrollment(t *testing.T) enrollmentFixture {
	testutil.ParseTemplates(t)
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(t)
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)

	store := sqlxrepos.NewStore(testutil.PrepareDB(t))
	sch := testutil.CreateSchool(t, store.Schools(), "Institut Mwinda", "IMW")
	classes := classroom.NewService(store.Classes(), nil, logger, validate, translator)
	svc := student.NewService(
		store, classes, store.AuditLogs(), emailsvc.NewConsoleServiceMock(conf, logger), logger, validate, translator, conf,
	)
	return enrollmentFixture{store: store, svc: svc, schoolID: sch.ID}
}

func enrollPayload(firstName string) (student.NewStudent, []guardian.NewGuardian) {
	return student.NewStudent{
			LastName:  "Mukendi",
			FirstName: firstName,
			Sex:       "F",
			BirthDate: "2015-03-14",
		}, []guardian.NewGuardian{{
			LastName:     "Mukendi",
			FirstName:    "Marie",
			Phone:        "0810000000",
			Email:        "marie@mail.cd",
			Relationship: guardian.RelMother,
		}}
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	f := setupEnrollment(t)
	class := testutil.CreateClass(t, f.store.Classes(), f.schoolID, "7A", "2025-2026", 30, 29)

	ns, guardians := enrollPayload("Grace")
	res, err := f.svc.Enroll(ctx, f.schoolID, 1, ns, guardians, class.ID)
	require.NoError(t, err)
	assert.Regexp(t, student.MatriculeRegexp("IMW"), res.Matricule)

	cls, err := f.store.Classes().GetClass(ctx, f.schoolID, class.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, cls.CurrentOccupancy)

	// full class: the sibling shares the guardian but nothing is written
	ns, guardians = enrollPayload("Daniel")
	_, err = f.svc.Enroll(ctx, f.schoolID, 1, ns, guardians, class.ID)
	assert.Equal(t, student.KindCapacityExceeded, student.KindOf(err))

	last, err := f.store.Students().LastMatricule(ctx, f.schoolID, "IMW")
	require.NoError(t, err)
	assert.Equal(t, res.Matricule, last)

	details, err := f.svc.Get(ctx, f.schoolID, res.StudentID)
	require.NoError(t, err)
	require.Len(t, details.Guardians, 1)
	assert.True(t, details.Guardians[0].IsPrimary)
	require.Len(t, details.Enrollments, 1)
	assert.Equal(t, student.EnrollmentInProgress, details.Enrollments[0].Status)

	entries, err := f.store.AuditLogs().Recent(ctx, f.schoolID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, core.ActionCreateStudent, entries[0].Action)
}

func TestEnroll_lastSeatRace(t *testing.T) {
	ctx := context.Background()
	f := setupEnrollment(t)
	class := testutil.CreateClass(t, f.store.Classes(), f.schoolID, "7A", "2025-2026", 30, 29)

	names := []string{"Grace", "Daniel", "Ruth"}
	kinds := make([]student.ErrorKind, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			ns, guardians := enrollPayload(name)
			_, err := f.svc.Enroll(ctx, f.schoolID, 1, ns, guardians, class.ID)
			kinds[i] = student.KindOf(err)
		}(i, name)
	}
	wg.Wait()

	var succeeded int
	for _, kind := range kinds {
		switch kind {
		case "":
			succeeded++
		case student.KindCapacityExceeded:
		default:
			t.Errorf("Enroll() unexpected error kind %q", kind)
		}
	}
	assert.Equal(t, 1, succeeded)

	cls, err := f.store.Classes().GetClass(ctx, f.schoolID, class.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, cls.CurrentOccupancy)
}
