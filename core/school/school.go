// Package school holds the tenants: every other entity is scoped by a school id.
package school

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kelasi/core"
)

var (
	// errors
	ErrNotFound = errors.New("school not found")

	prefixRegex = regexp.MustCompile(`^[A-Z]{2,6}$`)
)

type School struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	MatriculePrefix string    `json:"matricule_prefix"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

type NewSchool struct {
	Name            string `json:"name" validate:"required,max=128"`
	MatriculePrefix string `json:"matricule_prefix" validate:"omitempty,alpha,min=2,max=6"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CollapseSpaces(ns.Name)
	ns.MatriculePrefix = strings.ToUpper(core.CleanString(ns.MatriculePrefix))
	return validate.Struct(ns)
}

type Repository interface {
	CreateSchool(ctx context.Context, s School) (School, error)
	GetSchool(ctx context.Context, id int) (School, error)
	QuerySchools(ctx context.Context) ([]School, error)
}

// Prefix returns the matricule prefix of the school, or `fallback` when it has none.
func Prefix(ctx context.Context, repo Repository, schoolID int, fallback string) (string, error) {
	s, err := repo.GetSchool(ctx, schoolID)
	if err != nil {
		return "", err
	}
	if prefixRegex.MatchString(s.MatriculePrefix) {
		return s.MatriculePrefix, nil
	}
	return strings.ToUpper(fallback), nil
}
