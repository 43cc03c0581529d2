package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// staffMiddleware lets admins through, and staff holding any of `roles` (any staff when none).
// Tokens that do not name a user are unauthorized; those not scoped to a school are forbidden.
func staffMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if _, err = claims.ActorID(); err != nil {
				return errUnauthorized
			}
			if claims.SchoolID <= 0 {
				return errHttpForbidden
			}
			if claims.IsAdmin || contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
