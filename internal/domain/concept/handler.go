package concept

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
	read := api.Group("", auth.RequireRole("user"))
	read.GET("/concepts/:uuid", h.Get)
	read.GET("/concepts/:uuid/answers/:answerUuid", h.GetAnswer)

	write := api.Group("", auth.RequireRole("organisation_admin"))
	write.POST("/concepts", h.SaveOrUpdate)
}

func (h *Handler) SaveOrUpdate(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	var contracts []Contract
	if err := c.Bind(&contracts); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SaveOrUpdateConcepts(c.Request().Context(), uc, contracts); err != nil {
		return middleware.HTTPError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) Get(c echo.Context) error {
	concept, err := h.svc.Get(c.Request().Context(), c.Param("uuid"))
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, concept)
}

func (h *Handler) GetAnswer(c echo.Context) error {
	a, err := h.svc.GetAnswer(c.Request().Context(), c.Param("uuid"), c.Param("answerUuid"))
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}
