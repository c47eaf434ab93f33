package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/clock"
)

type clockApi struct {
	svc      *clock.Service
	validate *validator.Validate
}

func registerClockAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := clockApi{svc: deps.ClockSvc, validate: deps.Validate}

	cg := g.Group("/virtual-clock", jwt)
	cg.GET("", api.retrieve)
	cg.PUT("", api.advance)
}

type ClockResponse struct {
	VirtualDate string `json:"virtual_date"`
}

func newClockResponse(date time.Time) ClockResponse {
	return ClockResponse{VirtualDate: date.Format(core.DateLayout)}
}

func (api *clockApi) retrieve(ctx echo.Context) error {
	today, err := api.svc.Today(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting virtual date")
	}
	return ctx.JSON(http.StatusOK, newClockResponse(today))
}

func (api *clockApi) advance(ctx echo.Context) error {
	var data clock.AdvanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdvanceRequest")
	}
	data.VirtualDate = core.CleanString(data.VirtualDate)
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	today, err := api.svc.Advance(ctx.Request().Context(), data.Date())
	if err != nil {
		return errors.Wrap(err, "advancing virtual date")
	}
	return ctx.JSON(http.StatusOK, newClockResponse(today))
}
