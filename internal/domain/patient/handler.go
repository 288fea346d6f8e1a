package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/apperror"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/auth"
	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/query"
	"github.com/muhammadnuman1305/allied-health-sub002/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleTherapist, auth.RoleAHA))
	staff.GET("/patients", h.List)
	staff.GET("/patients/:id", h.Get)

	write := api.Group("", auth.RequireRole(auth.RoleTherapist))
	write.POST("/patients", h.Register)
	write.PUT("/patients/:id", h.Update)
	write.POST("/patients/:id/toggle-active", h.ToggleActive)
}

func (h *Handler) Register(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Register(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("id", "invalid uuid")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("id", "invalid uuid")
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ToggleActive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("id", "invalid uuid")
	}
	p, err := h.svc.ToggleActive(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(),
		query.ExtractParams(c), c.QueryParam("sort"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
