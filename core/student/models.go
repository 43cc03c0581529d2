package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/guardian"
)

type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
	SexOther  Sex = "O"
)

type Status string

// Statuses. Students are never deleted, they move between statuses.
const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusWithdrawn Status = "withdrawn"
)

type EnrollmentStatus string

const (
	EnrollmentInProgress EnrollmentStatus = "in_progress"
	EnrollmentValidated  EnrollmentStatus = "validated"
	EnrollmentCancelled  EnrollmentStatus = "cancelled"
	EnrollmentArchived   EnrollmentStatus = "archived"
)

// IsActive reports whether the enrollment still holds a seat.
func (s EnrollmentStatus) IsActive() bool {
	return s == EnrollmentInProgress || s == EnrollmentValidated
}

const dateLayout = "2006-01-02"

type Student struct {
	ID          int       `json:"id"`
	SchoolID    int       `json:"school_id"`
	Matricule   string    `json:"matricule"`
	LastName    string    `json:"last_name"`
	MiddleName  string    `json:"middle_name"`
	FirstName   string    `json:"first_name"`
	Sex         Sex       `json:"sex"`
	BirthDate   time.Time `json:"birth_date"`
	BirthPlace  string    `json:"birth_place"`
	Nationality string    `json:"nationality"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Status      Status    `json:"status"`
	Version     int       `json:"version"`
	CreatedBy   int       `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (s Student) FullName() string {
	return core.CollapseSpaces(s.FirstName + " " + s.MiddleName + " " + s.LastName)
}

type Enrollment struct {
	ID         int              `json:"id"`
	SchoolID   int              `json:"school_id"`
	StudentID  int              `json:"student_id"`
	ClassID    int              `json:"class_id"`
	SchoolYear string           `json:"school_year"`
	EnrolledOn time.Time        `json:"enrolled_on"`
	Status     EnrollmentStatus `json:"status"`
	CreatedBy  int              `json:"created_by"`
	CreatedAt  time.Time        `json:"created_at"` // UTC
}

// EnrollmentResult is what a successful enrollment hands back to the caller.
type EnrollmentResult struct {
	StudentID    int    `json:"student_id"`
	Matricule    string `json:"matricule"`
	EnrollmentID int    `json:"enrollment_id"`
	ClassID      int    `json:"class_id"`
	SchoolYear   string `json:"school_year"`
	GuardianIDs  []int  `json:"guardian_ids"`
}

// Details is a student with their guardian links and enrollments.
type Details struct {
	Student
	Guardians   []guardian.Link `json:"guardians"`
	Enrollments []Enrollment    `json:"enrollments"`
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	LastName    string `json:"last_name" validate:"required,max=64"`
	MiddleName  string `json:"middle_name" validate:"max=64"`
	FirstName   string `json:"first_name" validate:"required,max=64"`
	Sex         Sex    `json:"sex" validate:"required,oneof=M F O"`
	BirthDate   string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	BirthPlace  string `json:"birth_place" validate:"max=128"`
	Nationality string `json:"nationality" validate:"max=64"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address" validate:"max=255"`
	City        string `json:"city" validate:"max=128"`
}

func (ns *NewStudent) Clean() {
	ns.LastName = core.CollapseSpaces(ns.LastName)
	ns.MiddleName = core.CollapseSpaces(ns.MiddleName)
	ns.FirstName = core.CollapseSpaces(ns.FirstName)
	ns.Sex = Sex(normalizeSex(string(ns.Sex)))
	ns.BirthDate = core.CleanString(ns.BirthDate)
	ns.BirthPlace = core.CollapseSpaces(ns.BirthPlace)
	ns.Nationality = core.CollapseSpaces(ns.Nationality)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Address = core.CleanString(ns.Address)
	ns.City = core.CollapseSpaces(ns.City)
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}

// ParsedBirthDate must only be called on a validated payload.
func (ns NewStudent) ParsedBirthDate() time.Time {
	d, _ := time.Parse(dateLayout, ns.BirthDate)
	return d
}

func (ns NewStudent) apply(s *Student) {
	s.LastName = ns.LastName
	s.MiddleName = ns.MiddleName
	s.FirstName = ns.FirstName
	s.Sex = ns.Sex
	s.BirthDate = ns.ParsedBirthDate()
	s.BirthPlace = ns.BirthPlace
	s.Nationality = ns.Nationality
	s.Phone = ns.Phone
	s.Email = ns.Email
	s.Address = ns.Address
	s.City = ns.City
}

// UpdateStudent replaces the editable fields of a Student and their guardian list.
// Version must be the version the client read.
type UpdateStudent struct {
	NewStudent
	Version   int                    `json:"version" validate:"required,gt=0"`
	Status    Status                 `json:"status" validate:"omitempty,oneof=active suspended withdrawn"`
	Guardians []guardian.NewGuardian `json:"guardians"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Clean()
	us.Status = Status(core.CleanString(string(us.Status), true /* lower */))
	return validate.Struct(us)
}

// EnrollRequest is the body of an enrollment: the student, their guardians and the target class.
type EnrollRequest struct {
	Student   NewStudent             `json:"student"`
	Guardians []guardian.NewGuardian `json:"guardians"`
	ClassID   int                    `json:"class_id"`
}

func normalizeSex(s string) string {
	switch core.CleanString(s, true /* lower */) {
	case "m", "male":
		return string(SexMale)
	case "f", "female":
		return string(SexFemale)
	case "o", "other":
		return string(SexOther)
	}
	return core.CleanString(s)
}
