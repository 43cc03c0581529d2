package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/core/student"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// errorResponse is the body of every non-validation error.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// enrollErrorStatus maps the kinds of student.EnrollError to HTTP status codes.
var enrollErrorStatus = map[student.ErrorKind]int{
	student.KindValidation:          http.StatusBadRequest,
	student.KindDuplicateEmail:      http.StatusConflict,
	student.KindClassUnavailable:    http.StatusUnprocessableEntity,
	student.KindCapacityExceeded:    http.StatusConflict,
	student.KindGenerationExhausted: http.StatusServiceUnavailable,
	student.KindStorage:             http.StatusInternalServerError,
	student.KindNotFound:            http.StatusNotFound,
	student.KindStaleVersion:        http.StatusConflict,
	student.KindAlreadyEnrolled:     http.StatusConflict,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = errorResponse{Error: fmt.Sprint(origErr.Message)}
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if m, ok := origErr.Message.(string); ok {
				message = errorResponse{Error: m}
			} else {
				message = origErr.Message
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.ValidationError{Fields: core.TranslateValidationErrors(origErr, translator)}.FieldMap()
		case *core.ValidationError:
			code = http.StatusBadRequest
			if len(origErr.Fields) > 0 {
				message = origErr.FieldMap()
			} else {
				message = errorResponse{Error: origErr.Error(), Kind: string(student.KindValidation)}
			}
		case *student.EnrollError:
			code = enrollErrorStatus[origErr.Kind]
			switch {
			case origErr.Kind == student.KindValidation && len(origErr.Fields) > 0:
				message = core.ValidationError{Fields: origErr.Fields}.FieldMap()
			default:
				message = errorResponse{Error: origErr.Error(), Kind: string(origErr.Kind)}
			}
			if code >= http.StatusInternalServerError {
				logger.Error(origErr.Error(), origErr.Err, contextActor(ctx))
			}
		default:
			if errors.Is(err, classroom.ErrNotFound) {
				code = http.StatusNotFound
				message = errorResponse{Error: fmt.Sprint(errHttpNotFound.Message)}
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = errorResponse{Error: msg}
			logger.Error(msg, errors.Wrap(err, msg), contextActor(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if code == 0 {
			code = http.StatusInternalServerError
		}
		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = errorResponse{Error: err.Error()}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
