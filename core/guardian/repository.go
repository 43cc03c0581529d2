package guardian

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound     = errors.New("guardian not found")
	ErrLinkNotFound = errors.New("guardian link not found")
	ErrLinkExists   = errors.New("guardian is already linked to this student")
)

type Repository interface {
	// FindGuardian does an exact match on the school, names and phone. Returns ErrNotFound if nothing matches.
	FindGuardian(ctx context.Context, schoolID int, lastName, firstName, phone string) (Guardian, error)
	GetGuardian(ctx context.Context, schoolID, id int) (Guardian, error)
	CreateGuardian(ctx context.Context, g Guardian) (Guardian, error)
	// QueryLinks returns all links of the student, inactive ones included, in creation order.
	QueryLinks(ctx context.Context, studentID int) ([]Link, error)
	CreateLink(ctx context.Context, link Link) (Link, error)
	UpdateLink(ctx context.Context, link Link) (Link, error)
}
