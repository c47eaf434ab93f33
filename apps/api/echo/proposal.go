package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core/proposal"
	"github.com/thesisapp/thesis/core/teacher"
)

type proposalApi struct {
	svc        *proposal.Service
	teacherSvc *teacher.Service
	validate   *validator.Validate
}

func registerProposalAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := proposalApi{
		svc:        deps.ProposalSvc,
		teacherSvc: deps.TeacherSvc,
		validate:   deps.Validate,
	}

	g.GET("/teachers", api.queryTeachers, jwt)
	g.GET("/degrees", api.queryDegrees, jwt)

	pg := g.Group("/proposals", jwt)
	pg.GET("", api.query)
	pg.POST("", api.create, teacherMiddleware())
	pg.GET("/supervised", api.querySupervised, teacherMiddleware())
	pg.GET("/:id", api.retrieve)
}

// Handlers

func (api *proposalApi) queryTeachers(ctx echo.Context) error {
	teachers, err := api.teacherSvc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *proposalApi) queryDegrees(ctx echo.Context) error {
	degrees, err := api.svc.QueryDegrees(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying degrees")
	}
	return ctx.JSON(http.StatusOK, degrees)
}

func (api *proposalApi) query(ctx echo.Context) error {
	filter := new(proposal.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []proposal.Proposal{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	props, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying proposals")
	}
	return ctx.JSON(http.StatusOK, props)
}

func (api *proposalApi) create(ctx echo.Context) error {
	var data proposal.NewProposal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProposal")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	p, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating proposal")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *proposalApi) querySupervised(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	props, err := api.svc.QueryBySupervisor(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying supervised proposals")
	}
	return ctx.JSON(http.StatusOK, props)
}

func (api *proposalApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting proposal")
	}
	return ctx.JSON(http.StatusOK, p)
}
