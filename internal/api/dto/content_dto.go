package dto

import (
	"time"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

// CreateContentRequest is the payload for content creation.
type CreateContentRequest struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// UpdateContentRequest is the payload for content edits.
type UpdateContentRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ContentResponse is the wire shape of a content item.
type ContentResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewContentResponse maps a domain item to its wire shape.
func NewContentResponse(content *domain.Content) ContentResponse {
	return ContentResponse{
		ID:        content.ID,
		Kind:      string(content.Kind),
		Title:     content.Title,
		Body:      content.Body,
		OwnerID:   content.OwnerID,
		Status:    string(content.Status),
		CreatedAt: content.CreatedAt,
		UpdatedAt: content.UpdatedAt,
	}
}

// SettingsUpdateRequest is the payload for admin settings overrides.
type SettingsUpdateRequest struct {
	PublishDailyLimit int `json:"publish_daily_limit"`
}
