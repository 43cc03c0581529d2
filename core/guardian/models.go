package guardian

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kelasi/core"
)

type Relationship string

// Relationships
const (
	RelFather        Relationship = "father"
	RelMother        Relationship = "mother"
	RelLegalGuardian Relationship = "legal_guardian"
	RelOther         Relationship = "other"
)

type Guardian struct {
	ID                 int       `json:"id"`
	SchoolID           int       `json:"school_id"`
	LastName           string    `json:"last_name"`
	FirstName          string    `json:"first_name"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email"`
	Address            string    `json:"address"`
	Profession         string    `json:"profession"`
	IsEmergencyContact bool      `json:"is_emergency_contact"`
	CreatedAt          time.Time `json:"created_at"` // UTC
}

func (g Guardian) FullName() string {
	return core.CollapseSpaces(g.FirstName + " " + g.LastName)
}

// Link ties a guardian to a student.
type Link struct {
	ID           int          `json:"id"`
	StudentID    int          `json:"student_id"`
	GuardianID   int          `json:"guardian_id"`
	Relationship Relationship `json:"relationship"`
	IsPrimary    bool         `json:"is_primary"`
	CanPickUp    bool         `json:"can_pick_up"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"` // UTC
	UpdatedAt    time.Time    `json:"updated_at"` // UTC
}

// sameAttrs reports whether both links carry the same relationship metadata and state.
func (l Link) sameAttrs(o Link) bool {
	return l.Relationship == o.Relationship &&
		l.IsPrimary == o.IsPrimary &&
		l.CanPickUp == o.CanPickUp &&
		l.IsActive == o.IsActive
}

// NewGuardian is a guardian as submitted with a student.
// A payload missing its last or first name is blank: it is ignored, not rejected.
type NewGuardian struct {
	LastName           string       `json:"last_name" validate:"max=64"`
	FirstName          string       `json:"first_name" validate:"max=64"`
	Phone              string       `json:"phone" validate:"omitempty,phone"`
	Email              string       `json:"email" validate:"omitempty,email"`
	Address            string       `json:"address" validate:"max=255"`
	Profession         string       `json:"profession" validate:"max=128"`
	IsEmergencyContact bool         `json:"is_emergency_contact"`
	Relationship       Relationship `json:"relationship" validate:"omitempty,oneof=father mother legal_guardian other"`
	CanPickUp          bool         `json:"can_pick_up"`
}

func (ng *NewGuardian) Clean() {
	ng.LastName = core.CollapseSpaces(ng.LastName)
	ng.FirstName = core.CollapseSpaces(ng.FirstName)
	ng.Phone = core.CleanString(ng.Phone)
	ng.Email = core.CleanString(ng.Email, true /* lower */)
	ng.Address = core.CleanString(ng.Address)
	ng.Profession = core.CleanString(ng.Profession)
	ng.Relationship = Relationship(core.CleanString(string(ng.Relationship), true /* lower */))
	if ng.Relationship == "" {
		ng.Relationship = RelOther
	}
}

func (ng NewGuardian) IsBlank() bool {
	return core.CleanString(ng.LastName) == "" || core.CleanString(ng.FirstName) == ""
}

// Validate cleans the payload then validates it. Blank payloads are not validated.
func (ng *NewGuardian) Validate(validate *validator.Validate) error {
	if ng.IsBlank() {
		return nil
	}
	ng.Clean()
	return validate.Struct(ng)
}

func (ng NewGuardian) Candidate() Candidate {
	return Candidate{LastName: ng.LastName, FirstName: ng.FirstName, Phone: ng.Phone}
}

func (ng NewGuardian) Guardian(schoolID int, now time.Time) Guardian {
	return Guardian{
		SchoolID:           schoolID,
		LastName:           ng.LastName,
		FirstName:          ng.FirstName,
		Phone:              ng.Phone,
		Email:              ng.Email,
		Address:            ng.Address,
		Profession:         ng.Profession,
		IsEmergencyContact: ng.IsEmergencyContact,
		CreatedAt:          now,
	}
}

// Candidate is the soft-duplicate key of a guardian inside a school.
type Candidate struct {
	LastName  string
	FirstName string
	Phone     string
}
