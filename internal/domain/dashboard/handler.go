package dashboard

import (
	"net/http"
	"strconv"
	"time"

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
	read.GET("/groups/:id/dashboards", h.ListByGroup)
	read.GET("/groupDashboards/changed", h.Changed)

	write := api.Group("", auth.RequireRole("organisation_admin"))
	write.POST("/groupDashboards", h.Save)
	write.POST("/groupDashboards/bundle", h.SaveFromBundle)
	write.PUT("/groupDashboards/:id", h.Edit)
	write.DELETE("/groupDashboards/:id", h.Delete)
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Save(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	var contracts []Contract
	if err := c.Bind(&contracts); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	saved, err := h.svc.Save(c.Request().Context(), uc, contracts)
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, saved)
}

func (h *Handler) Edit(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var contract Contract
	if err := c.Bind(&contract); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	gd, err := h.svc.Edit(c.Request().Context(), uc, id, contract)
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, gd)
}

func (h *Handler) SaveFromBundle(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	var contracts []BundleContract
	if err := c.Bind(&contracts); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SaveFromBundle(c.Request().Context(), uc, contracts); err != nil {
		return middleware.HTTPError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) Delete(c echo.Context) error {
	uc, err := auth.RequireUserContext(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), uc, id); err != nil {
		return middleware.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListByGroup(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ListByGroup(c.Request().Context(), id)
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Changed(c echo.Context) error {
	since, err := time.Parse(time.RFC3339, c.QueryParam("since"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "since must be an RFC3339 timestamp")
	}
	changed, err := h.svc.HasChangedSince(c.Request().Context(), since)
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"changed": changed})
}
