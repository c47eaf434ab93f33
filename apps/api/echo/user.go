package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/student"
	"github.com/thesisapp/thesis/core/teacher"
	"github.com/thesisapp/thesis/core/user"
)

type userApi struct {
	auth       *jwtAuth
	svc        *user.Service
	studentSvc *student.Service
	teacherSvc *teacher.Service
	validate   *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, deps ServerDeps) {
	api := userApi{
		auth:       auth,
		svc:        deps.UserSvc,
		studentSvc: deps.StudentSvc,
		teacherSvc: deps.TeacherSvc,
		validate:   deps.Validate,
	}
	limiter := newClientLimiter(deps.Conf.Server.LoginRateLimit, deps.Conf.Server.LoginRateBurst)

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login, limiter.middleware())

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.auth.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res := MeResponse{User: usr}
	switch usr.Role {
	case user.RoleTeacher:
		t, err := api.teacherSvc.GetByID(ctx.Request().Context(), usr.ID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "getting teacher")
		}
		if err == nil {
			res.Profile = t
		}
	case user.RoleStudent:
		s, err := api.studentSvc.GetByID(ctx.Request().Context(), usr.ID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "getting student")
		}
		if err == nil {
			res.Profile = s
		}
	}
	return ctx.JSON(http.StatusOK, res)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"` // or account id
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	MeResponse struct {
		User    user.User   `json:"user"`
		Profile interface{} `json:"profile"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email)
	return validate.Struct(lr)
}
