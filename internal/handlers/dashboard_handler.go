package handlers

import (
	"adminpanel/internal/logging"
	"adminpanel/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler serves the summary overview.
type DashboardHandler struct {
	service *services.DashboardService
	log     logging.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(service *services.DashboardService, log logging.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, log: log}
}

// RegisterRoutes registers the dashboard route.
func (h *DashboardHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/dashboard", h.HandleSummary)
}

// HandleSummary returns the current overview.
func (h *DashboardHandler) HandleSummary(c *fiber.Ctx) error {
	sum, err := h.service.Summary()
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(sum)
}
