package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/showsec/security-demo/internal/core/domain"
	"github.com/showsec/security-demo/internal/core/ports"
	"github.com/showsec/security-demo/internal/pkg/clientip"
)

const historyLimit = 20

// DashboardHandler serves the post-login page data: who you are, which IP
// you appear from, and your recent authentication history.
type DashboardHandler struct {
	audit ports.AuditRepository
}

func NewDashboardHandler(audit ports.AuditRepository) *DashboardHandler {
	return &DashboardHandler{audit: audit}
}

type dashboardResponse struct {
	Username string             `json:"username"`
	ClientIP string             `json:"client_ip,omitempty"`
	History  []domain.AuthEvent `json:"history"`
}

// Show renders the dashboard for the authenticated user.
//
// @Summary      Dashboard
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dashboardResponse
// @Failure      401  {object}  map[string]string
// @Router       /dashboard [get]
func (h *DashboardHandler) Show(c echo.Context) error {
	username, _ := c.Get("username").(string)
	if username == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	history, err := h.audit.ListByUsername(c.Request().Context(), username, historyLimit)
	if err != nil {
		return err
	}
	if history == nil {
		history = []domain.AuthEvent{}
	}

	return c.JSON(http.StatusOK, dashboardResponse{
		Username: username,
		ClientIP: clientip.FromContext(c.Request().Context()),
		History:  history,
	})
}
