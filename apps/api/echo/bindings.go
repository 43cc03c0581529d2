package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kelasi/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the `ordering` query param, keeping the fields of `allowed` only.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) {
	ord.Orderings = core.ParseOrdering(ctx.QueryParam(orderingParam), allowed)
}

// pathID parses the `name` path param; anything but a positive integer is a 404.
func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
