package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wisonline/woec/core"
	"github.com/wisonline/woec/core/application"
)

const submitScope = "applications"

type applicationApi struct {
	svc *application.Service
}

func registerApplicationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := applicationApi{svc: deps.ApplicationSvc}
	rl := deps.Conf.RateLimit

	// public
	g.POST("/applications", api.submit, rateLimitMiddleware(deps.Limiter, submitScope, rl.Requests, rl.Window))

	// admin
	ag := g.Group("/admin/applications", jwt, adminMiddleware())
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id/status", api.updateStatus)
	ag.GET("/:id/email-preview", api.previewEmail)
}

type (
	// DecisionResponse is the application after a status change.
	// Username is only set on approval.
	DecisionResponse struct {
		application.Application
		Username       string `json:"username,omitempty"`
		EmailDelivered bool   `json:"emailDelivered"`
	}

	EmailPreviewResponse struct {
		Subject string `json:"subject"`
		HTML    string `json:"html"`
		Text    string `json:"text"`
	}
)

func applicationID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, application.ErrNotFound
	}
	return id, nil
}

// Handlers

func (api *applicationApi) submit(ctx echo.Context) error {
	var data application.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.New("invalid application data"))
	}

	app, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *applicationApi) query(ctx echo.Context) error {
	var filter application.QueryFilter
	if val := ctx.QueryParam("status"); val != "" {
		for _, s := range strings.Split(val, ",") {
			st := application.Status(core.CleanString(s, true /* lower */))
			if !st.IsValid() {
				return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "unknown status " + strconv.Quote(s)})
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, application.OrderingFields)
	filter.Ordering = ordering.Orderings

	apps, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []application.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	id, err := applicationID(ctx)
	if err != nil {
		return err
	}
	app, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding application by ID")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) updateStatus(ctx echo.Context) error {
	id, err := applicationID(ctx)
	if err != nil {
		return err
	}
	var data application.StatusChange
	if err = ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.New("invalid status"))
	}

	dec, err := api.svc.UpdateStatus(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating application status")
	}
	return ctx.JSON(http.StatusOK, DecisionResponse{
		Application:    dec.Application,
		Username:       dec.Username,
		EmailDelivered: dec.EmailErr == nil,
	})
}

func (api *applicationApi) previewEmail(ctx echo.Context) error {
	id, err := applicationID(ctx)
	if err != nil {
		return err
	}
	sc := application.StatusChange{
		Status: application.Status(ctx.QueryParam("status")),
		Reason: ctx.QueryParam("reason"),
	}

	msg, err := api.svc.PreviewEmail(ctx.Request().Context(), id, sc)
	if err != nil {
		return errors.Wrap(err, "previewing email")
	}
	return ctx.JSON(http.StatusOK, EmailPreviewResponse{
		Subject: msg.Subject,
		HTML:    msg.HTMLContent,
		Text:    msg.TextContent,
	})
}
