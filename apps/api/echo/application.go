package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core/application"
	"github.com/thesisapp/thesis/services/metrics"
)

type applicationApi struct {
	svc      *application.Service
	validate *validator.Validate
}

func registerApplicationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := applicationApi{
		svc:      deps.ApplicationSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/applications", jwt)
	ag.POST("", api.apply, studentMiddleware())
	ag.GET("", api.queryByTeacher, teacherMiddleware())
	ag.GET("/students/:student_id", api.queryByStudent)
	ag.GET("/:id", api.retrieve, teacherMiddleware())
	ag.POST("/:id", api.decide, teacherMiddleware())
}

// Handlers

func (api *applicationApi) apply(ctx echo.Context) error {
	var data application.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	app, err := api.svc.Apply(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "applying")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *applicationApi) queryByTeacher(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	apps, err := api.svc.QueryByTeacher(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying applications by teacher")
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) queryByStudent(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsStudent() || claims.Subject != ctx.Param("student_id") {
		return errNotOwnApplications
	}

	apps, err := api.svc.QueryByStudent(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying applications by student")
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	detail, err := api.svc.GetDetail(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting application")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"application": detail})
}

func (api *applicationApi) decide(ctx echo.Context) error {
	var data application.DecisionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DecisionRequest")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	decision, err := api.svc.Decide(ctx.Request().Context(), ctx.Param("id"), data.Status, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "deciding on application")
	}
	metricsvc.RecordDecision(string(decision.Application.Status), decision.EmailNotificationSent)
	return ctx.JSON(http.StatusOK, decision)
}
