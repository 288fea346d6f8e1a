package referral

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
	read.GET("/referrals", h.List)
	read.GET("/referrals/:id", h.Get)

	write := api.Group("", auth.RequireRole(auth.RoleTherapist))
	write.POST("/referrals", h.Create)
	write.PUT("/referrals/:id", h.Update)
	write.POST("/referrals/:id/triage", h.Triage)
	write.POST("/referrals/:id/complete", h.Complete)
	write.POST("/referrals/:id/toggle-active", h.ToggleActive)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("id", "invalid uuid")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var ref Referral
	if err := c.Bind(&ref); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &ref); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ref)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ref, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var ref Referral
	if err := c.Bind(&ref); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref.ID = id
	if err := h.svc.Update(c.Request().Context(), &ref); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ref)
}

type triageRequest struct {
	Action           TriageAction `json:"action"`
	Note             string       `json:"note"`
	NewDestinationID *uuid.UUID   `json:"new_destination_id"`
}

func (h *Handler) Triage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req triageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref, err := h.svc.Triage(c.Request().Context(), id, req.Action, req.Note, req.NewDestinationID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ref)
}

type completeRequest struct {
	OutcomeNotes string `json:"outcome_notes"`
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref, err := h.svc.Complete(c.Request().Context(), id, req.OutcomeNotes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) ToggleActive(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ref, err := h.svc.ToggleActive(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ref)
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
