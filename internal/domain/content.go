package domain

import "time"

// ContentKind enumerates the published media types.
type ContentKind string

const (
	ContentKindArticle ContentKind = "ARTICLE"
	ContentKindVideo   ContentKind = "VIDEO"
	ContentKindPodcast ContentKind = "PODCAST"
)

// ContentStatus represents lifecycle states for a content item.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "DRAFT"
	ContentStatusPublished ContentStatus = "PUBLISHED"
)

// Content is the domain model for a published item. Ownership fields feed
// the governance layer; everything else belongs to the host application.
type Content struct {
	ID                 string
	Kind               ContentKind
	Title              string
	Body               string
	OwnerID            string
	CreatorFingerprint string
	Status             ContentStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Ownership projects the governance-relevant metadata of the item.
func (c *Content) Ownership() ResourceOwnership {
	return ResourceOwnership{
		ResourceID:         c.ID,
		OwnerID:            c.OwnerID,
		CreatorFingerprint: c.CreatorFingerprint,
		CreatedAt:          c.CreatedAt,
	}
}
