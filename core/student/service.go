package student

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/core/guardian"
	"github.com/trezcool/kelasi/core/school"
)

// ListingInvalidator drops cached class listings once occupancy changed.
type ListingInvalidator interface {
	Invalidate(ctx context.Context, schoolID int)
}

type Service struct {
	store       Store
	listings    ListingInvalidator
	audit       core.AuditLogger
	mailer      core.EmailService
	logger      core.Logger
	validate    *validator.Validate
	translator  ut.Translator
	prefix      string
	attempts    int
	txTimeout   time.Duration
	frontendURL string
}

func NewService(
	store Store,
	listings ListingInvalidator,
	audit core.AuditLogger,
	mailer core.EmailService,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(store, "store"),
		vala.IsNotNil(listings, "listings"),
		vala.IsNotNil(audit, "audit"),
		vala.IsNotNil(mailer, "mailer"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		store:       store,
		listings:    listings,
		audit:       audit,
		mailer:      mailer,
		logger:      logger,
		validate:    validate,
		translator:  translator,
		prefix:      conf.Enrollment.MatriculePrefix,
		attempts:    conf.Enrollment.MatriculeAttempts,
		txTimeout:   conf.Enrollment.TxTimeout,
		frontendURL: conf.FrontendBaseURL,
	}
}

// Enroll creates a student with their guardians and enrolls them in a class, all or nothing:
// validate, check the email, then in one transaction generate the matricule, insert the student,
// resolve/create and link each guardian, create the enrollment and take a seat in the class.
//
// The school and actor are trusted: access control happens before. Errors are *EnrollError.
func (svc *Service) Enroll(
	ctx context.Context,
	schoolID, actorID int,
	ns NewStudent,
	guardians []guardian.NewGuardian,
	classID int,
) (EnrollmentResult, error) {
	if err := svc.validatePayload(&ns, guardians, classID); err != nil {
		return EnrollmentResult{}, svc.fail("Enroll", err)
	}
	if err := svc.checkEmail(ctx, svc.store.Students(), schoolID, ns.Email); err != nil {
		return EnrollmentResult{}, svc.fail("Enroll", err)
	}
	prefix, err := svc.matriculePrefix(ctx, schoolID)
	if err != nil {
		return EnrollmentResult{}, svc.fail("Enroll", err)
	}

	var (
		res     EnrollmentResult
		stu     Student
		class   classroom.Class
		primary *guardian.NewGuardian
	)
	err = svc.withinTx(ctx, func(ctx context.Context, tx Store) error {
		now := core.NowFunc().UTC()

		s := Student{SchoolID: schoolID, Status: StatusActive, Version: 1, CreatedBy: actorID, CreatedAt: now, UpdatedAt: now}
		ns.apply(&s)
		created, err := svc.createStudent(ctx, tx, prefix, s)
		if err != nil {
			return err
		}

		ids, kept, err := svc.resolveGuardians(ctx, tx, schoolID, guardians, nil, now)
		if err != nil {
			return err
		}
		links := guardian.BuildLinks(created.ID, ids, kept)
		for _, link := range links {
			link.CreatedAt, link.UpdatedAt = now, now
			if _, err = tx.Guardians().CreateLink(ctx, link); err != nil {
				return errors.Wrap(err, "linking guardian")
			}
		}

		enr, cls, err := svc.enroll(ctx, tx, created, classID, actorID, now)
		if err != nil {
			return err
		}

		stu, class = created, cls
		if len(kept) > 0 {
			primary = &kept[0]
		}
		res = EnrollmentResult{
			StudentID:    created.ID,
			Matricule:    created.Matricule,
			EnrollmentID: enr.ID,
			ClassID:      cls.ID,
			SchoolYear:   enr.SchoolYear,
			GuardianIDs:  linkedGuardianIDs(links),
		}
		return nil
	})
	if err != nil {
		return EnrollmentResult{}, svc.fail("Enroll", err)
	}

	svc.listings.Invalidate(ctx, schoolID)
	svc.record(ctx, schoolID, actorID, core.ActionCreateStudent,
		fmt.Sprintf("Enrolled student %s (%s) in class %s (%s)", stu.FullName(), stu.Matricule, class.Label, class.SchoolYear))
	if len(res.GuardianIDs) > 0 {
		svc.sendEnrollmentConfirmation(ctx, stu, class, res.GuardianIDs[0], primary)
	}
	return res, nil
}

// Update replaces the editable fields and the guardian list of a student in one transaction.
// Guardian links are reconciled: links to guardians no longer listed are deactivated, not deleted.
func (svc *Service) Update(ctx context.Context, schoolID, actorID, studentID int, us UpdateStudent) (Student, error) {
	if err := svc.validateUpdate(&us); err != nil {
		return Student{}, svc.fail("Update", err)
	}

	var updated Student
	err := svc.withinTx(ctx, func(ctx context.Context, tx Store) error {
		now := core.NowFunc().UTC()

		s, err := tx.Students().GetStudent(ctx, schoolID, studentID)
		if err != nil {
			return err
		}
		if s.Version != us.Version {
			return ErrStaleVersion
		}
		if err = svc.checkEmail(ctx, tx.Students(), schoolID, us.Email, s.ID); err != nil {
			return err
		}

		us.apply(&s)
		if us.Status != "" {
			s.Status = us.Status
		}
		s.UpdatedAt = now
		if updated, err = tx.Students().UpdateStudent(ctx, s, us.Version); err != nil {
			return err
		}

		current, err := tx.Guardians().QueryLinks(ctx, s.ID)
		if err != nil {
			return errors.Wrap(err, "querying guardian links")
		}
		linked, err := linkedGuardians(ctx, tx.Guardians(), schoolID, current)
		if err != nil {
			return err
		}
		ids, kept, err := svc.resolveGuardians(ctx, tx, schoolID, us.Guardians, linked, now)
		if err != nil {
			return err
		}
		plan := guardian.Reconcile(current, guardian.BuildLinks(s.ID, ids, kept))
		return applyPlan(ctx, tx.Guardians(), plan, now)
	})
	if err != nil {
		return Student{}, svc.fail("Update", err)
	}

	svc.record(ctx, schoolID, actorID, core.ActionUpdateStudent,
		fmt.Sprintf("Updated student %s (%s)", updated.FullName(), updated.Matricule))
	return updated, nil
}

// Reenroll enrolls an existing student in a class, typically for a new school year.
func (svc *Service) Reenroll(ctx context.Context, schoolID, actorID, studentID, classID int) (Enrollment, error) {
	if classID <= 0 {
		err := core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "this field is required"})
		return Enrollment{}, svc.fail("Reenroll", err)
	}

	var (
		enr   Enrollment
		stu   Student
		class classroom.Class
	)
	err := svc.withinTx(ctx, func(ctx context.Context, tx Store) error {
		s, err := tx.Students().GetStudent(ctx, schoolID, studentID)
		if err != nil {
			return err
		}
		if s.Status != StatusActive {
			return core.NewValidationError(ErrNotEligible, core.FieldError{Field: "status", Error: ErrNotEligible.Error()})
		}
		stu = s
		enr, class, err = svc.enroll(ctx, tx, s, classID, actorID, core.NowFunc().UTC())
		return err
	})
	if err != nil {
		return Enrollment{}, svc.fail("Reenroll", err)
	}

	svc.listings.Invalidate(ctx, schoolID)
	svc.record(ctx, schoolID, actorID, core.ActionEnrollStudent,
		fmt.Sprintf("Enrolled student %s (%s) in class %s (%s)", stu.FullName(), stu.Matricule, class.Label, class.SchoolYear))
	return enr, nil
}

// Get returns a student with their guardian links (active and inactive) and enrollments.
func (svc *Service) Get(ctx context.Context, schoolID, studentID int) (Details, error) {
	s, err := svc.store.Students().GetStudent(ctx, schoolID, studentID)
	if err != nil {
		return Details{}, svc.fail("Get", err)
	}
	links, err := svc.store.Guardians().QueryLinks(ctx, s.ID)
	if err != nil {
		return Details{}, svc.fail("Get", err)
	}
	enrs, err := svc.store.Students().QueryEnrollments(ctx, s.ID)
	if err != nil {
		return Details{}, svc.fail("Get", err)
	}
	return Details{Student: s, Guardians: links, Enrollments: enrs}, nil
}

func (svc *Service) withinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if _, ok := ctx.Deadline(); !ok && svc.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.txTimeout)
		defer cancel()
	}
	return svc.store.WithinTx(ctx, func(tx Store) error { return fn(ctx, tx) })
}

func (svc *Service) validatePayload(ns *NewStudent, guardians []guardian.NewGuardian, classID int) error {
	var flds []core.FieldError
	if err := ns.Validate(svc.validate); err != nil {
		flds = append(flds, core.TranslateValidationErrors(err, svc.translator)...)
	} else if ns.ParsedBirthDate().After(core.NowFunc().UTC()) {
		flds = append(flds, core.FieldError{Field: "birth_date", Error: "birth_date cannot be in the future"})
	}
	flds = append(flds, svc.validateGuardians(guardians)...)
	if classID <= 0 {
		flds = append(flds, core.FieldError{Field: "class_id", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (svc *Service) validateUpdate(us *UpdateStudent) error {
	var flds []core.FieldError
	if err := us.Validate(svc.validate); err != nil {
		flds = append(flds, core.TranslateValidationErrors(err, svc.translator)...)
	} else if us.ParsedBirthDate().After(core.NowFunc().UTC()) {
		flds = append(flds, core.FieldError{Field: "birth_date", Error: "birth_date cannot be in the future"})
	}
	flds = append(flds, svc.validateGuardians(us.Guardians)...)
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// validateGuardians validates the payloads in place; blank ones are left alone.
func (svc *Service) validateGuardians(guardians []guardian.NewGuardian) []core.FieldError {
	var flds []core.FieldError
	for i := range guardians {
		if err := guardians[i].Validate(svc.validate); err != nil {
			flds = append(flds, core.TranslateValidationErrors(err, svc.translator, fmt.Sprintf("guardians[%d].", i))...)
		}
	}
	return flds
}

func (svc *Service) checkEmail(ctx context.Context, repo Repository, schoolID int, email string, excludedIDs ...int) error {
	if email == "" {
		return nil
	}
	taken, err := repo.EmailExists(ctx, schoolID, email, excludedIDs...)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if taken {
		return ErrDuplicateEmail
	}
	return nil
}

func (svc *Service) matriculePrefix(ctx context.Context, schoolID int) (string, error) {
	prefix, err := school.Prefix(ctx, svc.store.Schools(), schoolID, svc.prefix)
	if errors.Is(err, school.ErrNotFound) {
		return "", core.NewValidationError(err, core.FieldError{Field: "school_id", Error: err.Error()})
	}
	return prefix, err
}

// createStudent inserts the student under a freshly generated matricule,
// moving on to the next candidate each time the insert collides.
func (svc *Service) createStudent(ctx context.Context, tx Store, prefix string, s Student) (Student, error) {
	for attempt := 0; attempt < svc.attempts; attempt++ {
		mat, err := GenerateMatricule(ctx, tx.Students(), s.SchoolID, prefix, attempt)
		if err != nil {
			return Student{}, err
		}
		s.Matricule = mat

		created, err := tx.Students().CreateStudent(ctx, s)
		if errors.Is(err, ErrMatriculeTaken) {
			svc.logger.Debug(fmt.Sprintf("student.Service: matricule %s taken (attempt %d)", mat, attempt+1))
			continue
		}
		return created, err
	}
	return Student{}, ErrGenerationExhausted
}

// resolveGuardians reuses or creates a guardian for every non-blank payload, in submission order.
// Guardians already linked to the student are tried first, so that a payload without phone keeps its link.
// It returns the guardian ids along with the payloads they come from.
func (svc *Service) resolveGuardians(
	ctx context.Context,
	tx Store,
	schoolID int,
	payloads []guardian.NewGuardian,
	linked []guardian.Guardian,
	now time.Time,
) ([]int, []guardian.NewGuardian, error) {
	ids := make([]int, 0, len(payloads))
	kept := make([]guardian.NewGuardian, 0, len(payloads))
	for _, ng := range payloads {
		if ng.IsBlank() {
			continue
		}
		id, found := guardian.MatchLinked(linked, ng.Candidate())
		if !found {
			var err error
			if id, found, err = guardian.Resolve(ctx, tx.Guardians(), schoolID, ng.Candidate()); err != nil {
				return nil, nil, err
			}
		}
		if !found {
			g, err := tx.Guardians().CreateGuardian(ctx, ng.Guardian(schoolID, now))
			if err != nil {
				return nil, nil, errors.Wrap(err, "creating guardian")
			}
			id = g.ID
		}
		ids = append(ids, id)
		kept = append(kept, ng)
	}
	return ids, kept, nil
}

// enroll creates the enrollment of `s` in the class and takes a seat, within `tx`.
func (svc *Service) enroll(
	ctx context.Context,
	tx Store,
	s Student,
	classID, actorID int,
	now time.Time,
) (Enrollment, classroom.Class, error) {
	class, err := tx.Classes().GetClass(ctx, s.SchoolID, classID)
	if err != nil {
		return Enrollment{}, classroom.Class{}, err
	}
	if !class.IsActive {
		return Enrollment{}, classroom.Class{}, classroom.ErrUnavailable
	}

	active, err := tx.Students().HasActiveEnrollment(ctx, s.ID, class.ID, class.SchoolYear)
	if err != nil {
		return Enrollment{}, classroom.Class{}, errors.Wrap(err, "checking enrollments")
	}
	if active {
		return Enrollment{}, classroom.Class{}, ErrAlreadyEnrolled
	}

	enr, err := tx.Students().CreateEnrollment(ctx, Enrollment{
		SchoolID:   s.SchoolID,
		StudentID:  s.ID,
		ClassID:    class.ID,
		SchoolYear: class.SchoolYear,
		EnrolledOn: now.Truncate(24 * time.Hour),
		Status:     EnrollmentInProgress,
		CreatedBy:  actorID,
		CreatedAt:  now,
	})
	if err != nil {
		return Enrollment{}, classroom.Class{}, err
	}

	if err = classroom.IncrementOccupancy(ctx, tx.Classes(), s.SchoolID, class.ID); err != nil {
		return Enrollment{}, classroom.Class{}, err
	}
	class.CurrentOccupancy++
	return enr, class, nil
}

func applyPlan(ctx context.Context, repo guardian.Repository, plan guardian.Plan, now time.Time) error {
	// deactivations first: they may clear the previous primary link
	for _, links := range [][]guardian.Link{plan.Deactivate, plan.Update} {
		for _, link := range links {
			link.UpdatedAt = now
			if _, err := repo.UpdateLink(ctx, link); err != nil {
				return errors.Wrap(err, "updating guardian link")
			}
		}
	}
	for _, link := range plan.Insert {
		link.CreatedAt, link.UpdatedAt = now, now
		if _, err := repo.CreateLink(ctx, link); err != nil {
			return errors.Wrap(err, "linking guardian")
		}
	}
	return nil
}

// linkedGuardians loads the guardians behind the links of a student, active or not.
func linkedGuardians(ctx context.Context, repo guardian.Repository, schoolID int, links []guardian.Link) ([]guardian.Guardian, error) {
	gs := make([]guardian.Guardian, 0, len(links))
	for _, l := range links {
		g, err := repo.GetGuardian(ctx, schoolID, l.GuardianID)
		if err != nil {
			return nil, errors.Wrap(err, "getting linked guardian")
		}
		gs = append(gs, g)
	}
	return gs, nil
}

func linkedGuardianIDs(links []guardian.Link) []int {
	ids := make([]int, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.GuardianID)
	}
	return ids
}

// record writes an audit entry. Failures never undo the operation.
func (svc *Service) record(ctx context.Context, schoolID, actorID int, action, desc string) {
	if err := svc.audit.Record(ctx, schoolID, actorID, action, desc); err != nil {
		svc.logger.Error(fmt.Sprintf("student.Service: recording %s: %v", action, err), err)
	}
}

// fail turns `err` into an *EnrollError, logging storage failures.
func (svc *Service) fail(op string, err error) error {
	ee := classify(err)
	if ee.Kind == KindStorage {
		svc.logger.Error(fmt.Sprintf("student.Service.%s: %v", op, err), err)
	}
	return ee
}
