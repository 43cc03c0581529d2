package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core/guardian"
	"github.com/trezcool/kelasi/storage/database"
)

var (
	guardianLinkKey = database.UniqueKey{
		Constraint: "guardian_links_student_guardian_key",
		Columns:    "guardian_links.student_id, guardian_links.guardian_id",
	}

	guardianColumns = []string{
		"id", "school_id", "last_name", "first_name", "phone", "email", "address", "profession",
		"is_emergency_contact", "created_at",
	}
	linkColumns = []string{
		"id", "student_id", "guardian_id", "relationship", "is_primary", "can_pick_up", "is_active",
		"created_at", "updated_at",
	}
)

type guardianRow struct {
	ID                 int         `db:"id"`
	SchoolID           int         `db:"school_id"`
	LastName           string      `db:"last_name"`
	FirstName          string      `db:"first_name"`
	Phone              string      `db:"phone"`
	Email              null.String `db:"email"`
	Address            string      `db:"address"`
	Profession         string      `db:"profession"`
	IsEmergencyContact bool        `db:"is_emergency_contact"`
	CreatedAt          time.Time   `db:"created_at"`
}

func (row guardianRow) toModel() guardian.Guardian {
	return guardian.Guardian{
		ID:                 row.ID,
		SchoolID:           row.SchoolID,
		LastName:           row.LastName,
		FirstName:          row.FirstName,
		Phone:              row.Phone,
		Email:              row.Email.String,
		Address:            row.Address,
		Profession:         row.Profession,
		IsEmergencyContact: row.IsEmergencyContact,
		CreatedAt:          row.CreatedAt.UTC(),
	}
}

type linkRow struct {
	ID           int       `db:"id"`
	StudentID    int       `db:"student_id"`
	GuardianID   int       `db:"guardian_id"`
	Relationship string    `db:"relationship"`
	IsPrimary    bool      `db:"is_primary"`
	CanPickUp    bool      `db:"can_pick_up"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row linkRow) toModel() guardian.Link {
	return guardian.Link{
		ID:           row.ID,
		StudentID:    row.StudentID,
		GuardianID:   row.GuardianID,
		Relationship: guardian.Relationship(row.Relationship),
		IsPrimary:    row.IsPrimary,
		CanPickUp:    row.CanPickUp,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type guardianRepository struct {
	baseRepository
}

var _ guardian.Repository = (*guardianRepository)(nil)

func (repo *guardianRepository) getGuardian(ctx context.Context, where squirrel.Sqlizer) (guardian.Guardian, error) {
	var row guardianRow
	q := repo.sb.Select(guardianColumns...).From("guardians").Where(where).OrderBy("id").Limit(1)
	if err := repo.get(ctx, &row, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return guardian.Guardian{}, guardian.ErrNotFound
		}
		return guardian.Guardian{}, errors.Wrap(err, "selecting guardian")
	}
	return row.toModel(), nil
}

func (repo *guardianRepository) FindGuardian(ctx context.Context, schoolID int, lastName, firstName, phone string) (guardian.Guardian, error) {
	return repo.getGuardian(ctx, squirrel.Eq{
		"school_id":  schoolID,
		"last_name":  lastName,
		"first_name": firstName,
		"phone":      phone,
	})
}

func (repo *guardianRepository) GetGuardian(ctx context.Context, schoolID, id int) (guardian.Guardian, error) {
	return repo.getGuardian(ctx, squirrel.Eq{"school_id": schoolID, "id": id})
}

func (repo *guardianRepository) CreateGuardian(ctx context.Context, g guardian.Guardian) (guardian.Guardian, error) {
	id, err := repo.insert(ctx, repo.sb.Insert("guardians").
		Columns("school_id", "last_name", "first_name", "phone", "email", "address", "profession", "is_emergency_contact", "created_at").
		Values(g.SchoolID, g.LastName, g.FirstName, g.Phone, nullString(g.Email), g.Address, g.Profession, g.IsEmergencyContact, g.CreatedAt))
	if err != nil {
		return guardian.Guardian{}, errors.Wrap(err, "inserting guardian")
	}
	g.ID = id
	return g, nil
}

func (repo *guardianRepository) QueryLinks(ctx context.Context, studentID int) ([]guardian.Link, error) {
	var rows []linkRow
	q := repo.sb.Select(linkColumns...).From("guardian_links").Where(squirrel.Eq{"student_id": studentID}).OrderBy("id")
	if err := repo.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting guardian links")
	}
	links := make([]guardian.Link, 0, len(rows))
	for _, row := range rows {
		links = append(links, row.toModel())
	}
	return links, nil
}

func (repo *guardianRepository) CreateLink(ctx context.Context, link guardian.Link) (guardian.Link, error) {
	id, err := repo.insert(ctx, repo.sb.Insert("guardian_links").
		Columns("student_id", "guardian_id", "relationship", "is_primary", "can_pick_up", "is_active", "created_at", "updated_at").
		Values(link.StudentID, link.GuardianID, string(link.Relationship), link.IsPrimary, link.CanPickUp, link.IsActive, link.CreatedAt, link.UpdatedAt))
	if err != nil {
		if database.IsUniqueViolation(err, guardianLinkKey) {
			return guardian.Link{}, guardian.ErrLinkExists
		}
		return guardian.Link{}, errors.Wrap(err, "inserting guardian link")
	}
	link.ID = id
	return link, nil
}

func (repo *guardianRepository) UpdateLink(ctx context.Context, link guardian.Link) (guardian.Link, error) {
	n, err := repo.exec(ctx, repo.sb.Update("guardian_links").
		SetMap(map[string]interface{}{
			"relationship": string(link.Relationship),
			"is_primary":   link.IsPrimary,
			"can_pick_up":  link.CanPickUp,
			"is_active":    link.IsActive,
			"updated_at":   link.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": link.ID, "student_id": link.StudentID}))
	if err != nil {
		return guardian.Link{}, errors.Wrap(err, "updating guardian link")
	}
	if n == 0 {
		return guardian.Link{}, guardian.ErrLinkNotFound
	}
	return link, nil
}
