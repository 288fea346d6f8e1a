package summary

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/muhammadnuman1305/allied-health-sub002/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleTherapist, auth.RoleAHA))
	read.GET("/tasks/summary", h.Tasks)
	read.GET("/referrals/summary", h.Referrals)
}

func (h *Handler) Tasks(c echo.Context) error {
	sum, err := h.svc.Tasks(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) Referrals(c echo.Context) error {
	sum, err := h.svc.Referrals(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}
