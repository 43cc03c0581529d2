package echoapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
)

type ClassService interface {
	List(ctx context.Context, schoolID int, filter classroom.QueryFilter) ([]classroom.Class, error)
	Get(ctx context.Context, schoolID, id int) (classroom.Class, error)
	Create(ctx context.Context, nc classroom.NewClass) (classroom.Class, error)
	Deactivate(ctx context.Context, schoolID, id int) error
}

var _ ClassService = (*classroom.Service)(nil)

type classApi struct {
	svc    ClassService
	audit  core.AuditLogger
	logger core.Logger
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc ClassService, audit core.AuditLogger, logger core.Logger) {
	api := classApi{svc: svc, audit: audit, logger: logger}

	cg := g.Group("/classes", jwt, staffMiddleware())
	cg.GET("", api.query)
	cg.POST("", api.create, staffMiddleware(RoleDirector))
	cg.GET("/:id", api.retrieve)
	cg.DELETE("/:id", api.deactivate, staffMiddleware(RoleDirector))
}

// Handlers

func (api *classApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var filter classroom.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, classroom.OrderingFields)

	classes, err := api.svc.List(ctx.Request().Context(), claims.SchoolID, filter)
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	if len(ordering.Orderings) > 0 {
		classroom.Sort(classes, ordering.Orderings...)
	}
	if classes == nil {
		classes = []classroom.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	class, err := api.svc.Get(ctx.Request().Context(), claims.SchoolID, id)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *classApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data classroom.NewClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	data.SchoolID = claims.SchoolID

	class, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}

	desc := fmt.Sprintf("created class %s (%s, %s)", class.Label, class.Level, class.SchoolYear)
	if err = api.audit.Record(ctx.Request().Context(), claims.SchoolID, claims.Actor().ID, core.ActionCreateClass, desc); err != nil {
		api.logger.Warn("recording class creation", err, claims.Actor())
	}
	return ctx.JSON(http.StatusCreated, class)
}

func (api *classApi) deactivate(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	if err = api.svc.Deactivate(ctx.Request().Context(), claims.SchoolID, id); err != nil {
		return errors.Wrap(err, "deactivating class")
	}
	return ctx.NoContent(http.StatusNoContent)
}
