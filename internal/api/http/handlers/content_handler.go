package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hallgren-labs/content-governance/internal/api/dto"
	"github.com/hallgren-labs/content-governance/internal/api/guard"
	"github.com/hallgren-labs/content-governance/internal/domain"
	"github.com/hallgren-labs/content-governance/internal/service"
)

// ContentHandler exposes governed content endpoints.
type ContentHandler struct {
	content *service.ContentService
}

// NewContentHandler constructs handler.
func NewContentHandler(content *service.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// Create handles POST /content.
func (h *ContentHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, _ := guard.ResultFromContext(c)

	input := service.CreateContentInput{
		Kind:  domain.ContentKind(req.Kind),
		Title: req.Title,
		Body:  req.Body,
	}
	if result.Identity != nil {
		input.OwnerID = result.Identity.SubjectID
	} else {
		input.CreatorFingerprint = c.Get("X-Client-Fingerprint")
	}

	content, err := h.content.Create(c.Context(), input)
	if err != nil {
		// Validation or storage failure: return the reserved quota slot
		// so the attempt costs nothing.
		if result.Decision.Release != nil {
			result.Decision.Release()
		}
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.NewContentResponse(content),
	})
}

// Get handles GET /content/:id.
func (h *ContentHandler) Get(c *fiber.Ctx) error {
	content, err := h.content.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewContentResponse(content)})
}

// Update handles PATCH /content/:id.
func (h *ContentHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	content, err := h.content.Update(c.Context(), c.Params("id"), req.Title, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewContentResponse(content)})
}

// Delete handles DELETE /content/:id.
func (h *ContentHandler) Delete(c *fiber.Ctx) error {
	if err := h.content.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
