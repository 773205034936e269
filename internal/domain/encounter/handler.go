package encounter

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/middleware"
	"github.com/ombhardwajj/avni-server/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("user"))
	g.POST("/encounters", h.Save)
	g.GET("/encounters/:uuid", h.Get)
	g.DELETE("/encounters/:uuid", h.Void)
	g.POST("/encounters/:uuid/cancel", h.Cancel)
	g.GET("/subjects/:uuid/encounters", h.ListBySubject)
	g.GET("/subjects/:uuid/encounters/completed", h.CompletedOrCancelledBetween)
}

func kindParam(c echo.Context) (Kind, error) {
	kind, err := ParseKind(c.QueryParam("kind"))
	if err != nil {
		return "", middleware.HTTPError(err)
	}
	return kind, nil
}

func (h *Handler) Save(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	var req SaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Save(c.Request().Context(), uc, req)
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Get(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	e, err := h.svc.Get(c.Request().Context(), kind, c.Param("uuid"))
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Void(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Void(c.Request().Context(), uc, kind, c.Param("uuid")); err != nil {
		return middleware.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Cancel(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	var req CancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Cancel(c.Request().Context(), uc, kind, c.Param("uuid"), req)
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListBySubject(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	subjectID, err := h.svc.SubjectID(ctx, c.Param("uuid"))
	if err != nil {
		return middleware.HTTPError(err)
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBySubject(ctx, kind, subjectID, pg.Limit(), pg.Offset())
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) CompletedOrCancelledBetween(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	from, err := time.Parse(time.RFC3339, c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be an RFC3339 datetime")
	}
	to, err := time.Parse(time.RFC3339, c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be an RFC3339 datetime")
	}

	ctx := c.Request().Context()
	subjectID, err := h.svc.SubjectID(ctx, c.Param("uuid"))
	if err != nil {
		return middleware.HTTPError(err)
	}
	items, err := h.svc.CompletedOrCancelledBetween(ctx, kind, subjectID, from, to)
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}
