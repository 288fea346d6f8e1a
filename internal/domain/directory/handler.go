package directory

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
	read := api.Group("", auth.RequireRole(auth.RoleTherapist, auth.RoleAHA))
	read.GET("/specialties", h.ListSpecialties)
	read.GET("/departments", h.ListDepartments)
	read.GET("/departments/:id", h.GetDepartment)
	read.GET("/wards", h.ListWards)
	read.GET("/wards/:id", h.GetWard)
	read.GET("/wards/:id/coverage", h.ListCoverage)
	read.GET("/staff", h.ListStaff)
	read.GET("/staff/:id", h.GetStaff)
	read.GET("/interventions", h.ListInterventions)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/specialties", h.CreateSpecialty)
	admin.POST("/departments", h.CreateDepartment)
	admin.PUT("/departments/:id", h.UpdateDepartment)
	admin.POST("/departments/:id/toggle-active", h.ToggleDepartmentActive)
	admin.POST("/wards", h.CreateWard)
	admin.PUT("/wards/:id", h.UpdateWard)
	admin.POST("/wards/:id/coverage", h.AddCoverage)
	admin.DELETE("/wards/:id/coverage/:department_id", h.RemoveCoverage)
	admin.POST("/staff", h.CreateStaff)
	admin.POST("/staff/:id/toggle-active", h.ToggleStaffActive)
	admin.POST("/interventions", h.CreateIntervention)
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Validation(name, "invalid uuid")
	}
	return id, nil
}

func (h *Handler) CreateSpecialty(c echo.Context) error {
	var sp Specialty
	if err := c.Bind(&sp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSpecialty(c.Request().Context(), &sp); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sp)
}

func (h *Handler) ListSpecialties(c echo.Context) error {
	items, err := h.svc.ListSpecialties(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateDepartment(c echo.Context) error {
	var d Department
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDepartment(c.Request().Context(), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDepartment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDepartment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDepartment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var d Department
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.ID = id
	if err := h.svc.UpdateDepartment(c.Request().Context(), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ToggleDepartmentActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.ToggleDepartmentActive(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDepartments(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDepartments(c.Request().Context(),
		query.ExtractParams(c), c.QueryParam("sort"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateWard(c echo.Context) error {
	var w Ward
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateWard(c.Request().Context(), &w); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) GetWard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	w, err := h.svc.GetWard(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) UpdateWard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var w Ward
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w.ID = id
	if err := h.svc.UpdateWard(c.Request().Context(), &w); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) ListWards(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListWards(c.Request().Context(),
		query.ExtractParams(c), c.QueryParam("sort"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type coverageRequest struct {
	DepartmentID uuid.UUID `json:"department_id"`
}

func (h *Handler) AddCoverage(c echo.Context) error {
	wardID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req coverageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cov, err := h.svc.AddCoverage(c.Request().Context(), wardID, req.DepartmentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cov)
}

func (h *Handler) RemoveCoverage(c echo.Context) error {
	wardID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	deptID, err := pathID(c, "department_id")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveCoverage(c.Request().Context(), wardID, deptID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListCoverage(c echo.Context) error {
	wardID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListCoverage(c.Request().Context(), wardID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateStaff(c echo.Context) error {
	var u StaffUser
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateStaff(c.Request().Context(), &u); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetStaff(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.svc.GetStaff(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ToggleStaffActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.svc.ToggleStaffActive(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListStaff(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListStaff(c.Request().Context(),
		query.ExtractParams(c), c.QueryParam("sort"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateIntervention(c echo.Context) error {
	var iv Intervention
	if err := c.Bind(&iv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateIntervention(c.Request().Context(), &iv); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, iv)
}

func (h *Handler) ListInterventions(c echo.Context) error {
	var specialtyID *uuid.UUID
	if v := c.QueryParam("specialty_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperror.Validation("specialty_id", "invalid uuid")
		}
		specialtyID = &id
	}
	items, err := h.svc.ListInterventions(c.Request().Context(), specialtyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
