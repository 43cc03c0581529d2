package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core/guardian"
	"github.com/trezcool/kelasi/core/student"
)

type StudentService interface {
	Enroll(
		ctx context.Context,
		schoolID, actorID int,
		ns student.NewStudent,
		guardians []guardian.NewGuardian,
		classID int,
	) (student.EnrollmentResult, error)
	Update(ctx context.Context, schoolID, actorID, studentID int, us student.UpdateStudent) (student.Student, error)
	Reenroll(ctx context.Context, schoolID, actorID, studentID, classID int) (student.Enrollment, error)
	Get(ctx context.Context, schoolID, studentID int) (student.Details, error)
}

var _ StudentService = (*student.Service)(nil)

type ReenrollRequest struct {
	ClassID int `json:"class_id"`
}

type studentApi struct {
	svc StudentService
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc StudentService) {
	api := studentApi{svc: svc}

	sg := g.Group("/students", jwt, staffMiddleware())
	sg.POST("", api.enroll, staffMiddleware(RoleRegistrar))

	// detail endpoints
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, staffMiddleware(RoleRegistrar))
	sg.POST("/:id/enrollments", api.reenroll, staffMiddleware(RoleRegistrar))
}

// Handlers

func (api *studentApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data student.EnrollRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}

	res, err := api.svc.Enroll(
		ctx.Request().Context(), claims.SchoolID, claims.Actor().ID, data.Student, data.Guardians, data.ClassID,
	)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	details, err := api.svc.Get(ctx.Request().Context(), claims.SchoolID, id)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *studentApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	stu, err := api.svc.Update(ctx.Request().Context(), claims.SchoolID, claims.Actor().ID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) reenroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data ReenrollRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReenrollRequest")
	}

	enr, err := api.svc.Reenroll(ctx.Request().Context(), claims.SchoolID, claims.Actor().ID, id, data.ClassID)
	if err != nil {
		return errors.Wrap(err, "re-enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}
