package task

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/domain/status"
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
	staff.GET("/tasks", h.List)
	staff.GET("/tasks/mine", h.ListMine)
	staff.GET("/tasks/:id", h.GetDetails)
	staff.POST("/task-interventions/:id/outcome", h.RecordOutcome)

	write := api.Group("", auth.RequireRole(auth.RoleTherapist))
	write.POST("/tasks/from-referral", h.CreateFromReferral)
	write.POST("/tasks", h.CreateStandalone)
	write.POST("/tasks/:id/interventions", h.AssignIntervention)
	write.PUT("/tasks/:id/window", h.UpdateWindow)
	write.POST("/tasks/:id/toggle-active", h.ToggleActive)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("id", "invalid uuid")
	}
	return id, nil
}

type fromReferralRequest struct {
	ReferralID uuid.UUID `json:"referral_id"`
	Title      string    `json:"title"`
}

func (h *Handler) CreateFromReferral(c echo.Context) error {
	var req fromReferralRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.CreateFromReferral(c.Request().Context(), req.ReferralID, req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) CreateStandalone(c echo.Context) error {
	var t Task
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateStandalone(c.Request().Context(), &t); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) AssignIntervention(c echo.Context) error {
	taskID, err := pathID(c)
	if err != nil {
		return err
	}
	var iv TaskIntervention
	if err := c.Bind(&iv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AssignIntervention(c.Request().Context(), taskID, &iv); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, iv)
}

type windowRequest struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (h *Handler) UpdateWindow(c echo.Context) error {
	taskID, err := pathID(c)
	if err != nil {
		return err
	}
	var req windowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.UpdateWindow(c.Request().Context(), taskID, req.StartDate, req.EndDate)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

type outcomeRequest struct {
	OutcomeStatus status.OutcomeStatus `json:"outcome_status"`
	OutcomeText   string               `json:"outcome_text"`
}

func (h *Handler) RecordOutcome(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req outcomeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	iv, err := h.svc.RecordOutcome(c.Request().Context(), actor, id, req.OutcomeStatus, req.OutcomeText)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, iv)
}

func (h *Handler) GetDetails(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetDetails(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ToggleActive(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.ToggleActive(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
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

func (h *Handler) ListMine(c echo.Context) error {
	pg := pagination.FromContext(c)
	actor := auth.IdentityFromContext(c.Request().Context())
	items, total, err := h.svc.ListMine(c.Request().Context(), actor,
		query.ExtractParams(c), c.QueryParam("sort"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
