package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ruhusa/core/workflow"
)

type workflowApi struct {
	svc        workflow.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerWorkflowAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc workflow.ServiceInterface,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := workflowApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	rg := g.Group("/requests", jwt)

	rg.POST("", api.create, studentMiddleware())
	rg.POST("/:id/decision", api.decide, teacherMiddleware())

	rg.GET("/pending", api.pending, teacherMiddleware())
	rg.GET("/mine", api.mine, studentMiddleware())
	rg.GET("/group", api.group, teacherMiddleware())
	rg.GET("", api.all, adminMiddleware())
}

// Handlers

func (api *workflowApi) create(ctx echo.Context) error {
	var data workflow.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.SubmitterID = claims.Subject
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.CreateRequest(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *workflowApi) decide(ctx echo.Context) error {
	var data workflow.StepDecision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StepDecision")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	res, err := api.svc.ProcessStep(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *workflowApi) pending(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	views, err := api.svc.PendingForApprover(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *workflowApi) mine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	details, err := api.svc.ForStudent(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *workflowApi) group(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	details, err := api.svc.ForAffiliatedGroups(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *workflowApi) all(ctx echo.Context) error {
	details, err := api.svc.All(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, details)
}
