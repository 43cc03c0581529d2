package classroom

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"

	"github.com/trezcool/kelasi/core"
)

// ListingCache stores the active class listing of a school.
type ListingCache interface {
	GetClasses(ctx context.Context, schoolID int) (classes []Class, found bool, err error)
	SetClasses(ctx context.Context, schoolID int, classes []Class) error
	Invalidate(ctx context.Context, schoolID int) error
}

// NopCache never holds anything.
type NopCache struct{}

func (NopCache) GetClasses(context.Context, int) ([]Class, bool, error) { return nil, false, nil }
func (NopCache) SetClasses(context.Context, int, []Class) error        { return nil }
func (NopCache) Invalidate(context.Context, int) error                  { return nil }

var _ ListingCache = NopCache{}

type Service struct {
	repo       Repository
	cache      ListingCache
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
}

func NewService(
	repo Repository,
	cache ListingCache,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	if cache == nil {
		cache = NopCache{}
	}
	return &Service{repo: repo, cache: cache, logger: logger, validate: validate, translator: translator}
}

// List returns the active classes of the school, ordered by school year, level and label.
// Cache failures are logged and the database is used instead.
func (svc *Service) List(ctx context.Context, schoolID int, filter QueryFilter) ([]Class, error) {
	classes, found, err := svc.cache.GetClasses(ctx, schoolID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("classroom.Service.List: reading cache for school %d", schoolID), err)
	}
	if !found {
		classes, err = svc.repo.QueryClasses(ctx, schoolID, true /* activeOnly */, DefaultOrdering...)
		if err != nil {
			return nil, err
		}
		if err = svc.cache.SetClasses(ctx, schoolID, classes); err != nil {
			svc.logger.Warn(fmt.Sprintf("classroom.Service.List: filling cache for school %d", schoolID), err)
		}
	}
	return filter.Apply(classes), nil
}

// Get always reads the database: callers use it to show authoritative occupancy.
func (svc *Service) Get(ctx context.Context, schoolID, id int) (Class, error) {
	return svc.repo.GetClass(ctx, schoolID, id)
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Class{}, core.NewValidationError(err, core.TranslateValidationErrors(err, svc.translator)...)
	}

	class, err := svc.repo.CreateClass(ctx, Class{
		SchoolID:    nc.SchoolID,
		Label:       nc.Label,
		Level:       nc.Level,
		SchoolYear:  nc.SchoolYear,
		MaxCapacity: nc.MaxCapacity,
		IsActive:    true,
		CreatedAt:   core.NowFunc().UTC(),
	})
	if err != nil {
		return Class{}, err
	}
	svc.Invalidate(ctx, nc.SchoolID)
	return class, nil
}

// Deactivate closes a class to new enrollments. Existing enrollments are kept.
func (svc *Service) Deactivate(ctx context.Context, schoolID, id int) error {
	if err := svc.repo.SetActive(ctx, schoolID, id, false); err != nil {
		return err
	}
	svc.Invalidate(ctx, schoolID)
	return nil
}

// Invalidate drops the cached listing of the school. Failures are only logged.
func (svc *Service) Invalidate(ctx context.Context, schoolID int) {
	if err := svc.cache.Invalidate(ctx, schoolID); err != nil {
		svc.logger.Warn(fmt.Sprintf("classroom.Service.Invalidate: school %d", schoolID), err)
	}
}
