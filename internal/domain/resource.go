package domain

import "time"

// ResourceOwnership is the ownership metadata attached to a content item.
// It is read-only from the governance layer; only the content store
// mutates it.
type ResourceOwnership struct {
	ResourceID         string
	OwnerID            string
	CreatorFingerprint string
	CreatedAt          time.Time
}
