package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hallgren-labs/content-governance/internal/api/dto"
	"github.com/hallgren-labs/content-governance/internal/settings"
)

// AdminHandler exposes admin-only platform operations.
type AdminHandler struct {
	settings *settings.Provider
}

// NewAdminHandler constructs handler.
func NewAdminHandler(provider *settings.Provider) *AdminHandler {
	return &AdminHandler{settings: provider}
}

// GetSettings handles GET /admin/settings.
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"publish_daily_limit": h.settings.PublishDailyLimit(c.Context()),
		},
	})
}

// UpdateSettings handles PUT /admin/settings.
func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var req dto.SettingsUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.PublishDailyLimit <= 0 {
		return fiber.NewError(http.StatusBadRequest, "publish_daily_limit must be positive")
	}

	if err := h.settings.SetPublishDailyLimit(c.Context(), req.PublishDailyLimit); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"publish_daily_limit": req.PublishDailyLimit,
		},
	})
}
