package subject

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("user"))
	g.POST("/search/subjects", h.Search)
	g.POST("/subjects", h.Register)
	g.GET("/subjects/:uuid", h.Get)
	g.DELETE("/subjects/:uuid", h.Void)
}

func (h *Handler) Search(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := h.svc.Search(c.Request().Context(), uc, req)
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Register(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	subj, err := h.svc.Register(c.Request().Context(), uc, req)
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, subj)
}

func (h *Handler) Get(c echo.Context) error {
	subj, err := h.svc.Get(c.Request().Context(), c.Param("uuid"))
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, subj)
}

func (h *Handler) Void(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	if err := h.svc.Void(c.Request().Context(), uc, c.Param("uuid")); err != nil {
		return middleware.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
