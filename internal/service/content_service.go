package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hallgren-labs/content-governance/internal/domain"
	"github.com/hallgren-labs/content-governance/internal/events"
	"github.com/hallgren-labs/content-governance/internal/repository"
	apperrors "github.com/hallgren-labs/content-governance/pkg/util/errorutil"
)

const maxTitleLength = 200

// CreateContentInput carries the fields for a new content item.
type CreateContentInput struct {
	Kind               domain.ContentKind
	Title              string
	Body               string
	OwnerID            string
	CreatorFingerprint string
}

// ContentService owns content lifecycle operations. Validation happens
// before any write so a rejected attempt leaves no trace (and, at the
// call site, consumes no publishing quota).
type ContentService struct {
	repo       repository.ContentRepository
	dispatcher events.Dispatcher
}

// NewContentService builds the service.
func NewContentService(repo repository.ContentRepository, dispatcher events.Dispatcher) *ContentService {
	return &ContentService{repo: repo, dispatcher: dispatcher}
}

// Create validates and persists a new item.
func (s *ContentService) Create(ctx context.Context, input CreateContentInput) (*domain.Content, error) {
	if err := validateContent(input.Kind, input.Title, input.Body); err != nil {
		return nil, err
	}

	content := &domain.Content{
		ID:                 uuid.NewString(),
		Kind:               input.Kind,
		Title:              input.Title,
		Body:               input.Body,
		OwnerID:            input.OwnerID,
		CreatorFingerprint: input.CreatorFingerprint,
		Status:             domain.ContentStatusPublished,
	}
	if err := s.repo.Create(ctx, content); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:       events.EventContentCreated,
		ResourceID: content.ID,
		Actor:      events.Actor{SubjectID: content.OwnerID, Fingerprint: content.CreatorFingerprint},
		Payload:    events.ContentCreatedPayload{Kind: content.Kind, Title: content.Title},
	})
	return content, nil
}

// Update applies new title/body to an existing item.
func (s *ContentService) Update(ctx context.Context, id, title, body string) (*domain.Content, error) {
	content, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("content", map[string]any{"id": id})
	}

	if title != "" {
		content.Title = title
	}
	if body != "" {
		content.Body = body
	}
	if err := validateContent(content.Kind, content.Title, content.Body); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, content); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:       events.EventContentUpdated,
		ResourceID: content.ID,
		Actor:      events.Actor{SubjectID: content.OwnerID},
	})
	return content, nil
}

// Delete removes an item.
func (s *ContentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{Type: events.EventContentDeleted, ResourceID: id})
	return nil
}

// Get fetches one item.
func (s *ContentService) Get(ctx context.Context, id string) (*domain.Content, error) {
	content, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("content", map[string]any{"id": id})
	}
	return content, nil
}

// Ownership fetches the governance-relevant metadata for an item.
func (s *ContentService) Ownership(ctx context.Context, id string) (*domain.ResourceOwnership, error) {
	ownership, err := s.repo.GetOwnership(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("content", map[string]any{"id": id})
	}
	return ownership, nil
}

func (s *ContentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	_ = s.dispatcher.Publish(ctx, event)
}

func validateContent(kind domain.ContentKind, title, body string) error {
	switch kind {
	case domain.ContentKindArticle, domain.ContentKindVideo, domain.ContentKindPodcast:
	default:
		return apperrors.NewValidationError("unknown content kind", map[string]any{"kind": kind})
	}
	if title == "" {
		return apperrors.NewValidationError("title required", nil)
	}
	if len(title) > maxTitleLength {
		return apperrors.NewValidationError("title too long", map[string]any{"max": maxTitleLength})
	}
	if body == "" {
		return apperrors.NewValidationError("body required", nil)
	}
	return nil
}
