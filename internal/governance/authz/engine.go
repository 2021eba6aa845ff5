package authz

import (
	"time"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

// AnonymousEditWindow bounds how long a creator fingerprint may stand in
// for a missing identity after a resource was created.
const AnonymousEditWindow = 24 * time.Hour

// Engine decides whether a caller may mutate a resource. It is stateless;
// every input arrives per call.
type Engine struct{}

// NewEngine constructs the engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Authorize evaluates four mutually exclusive outcomes in strict
// precedence order, first match wins:
//
//  1. admin role bypasses everything
//  2. the authenticated subject owns the resource
//  3. no identity is present and the caller fingerprint matches the
//     creator fingerprint within the edit window
//  4. deny
//
// An authenticated non-owner never falls through to fingerprint matching:
// the anonymous path only exists for unauthenticated legacy creation.
func (e *Engine) Authorize(identity *domain.Identity, resource domain.ResourceOwnership, callerFingerprint string, now time.Time) domain.Decision {
	if identity.IsAdmin() {
		return domain.Allow()
	}

	if identity != nil {
		if identity.SubjectID == resource.OwnerID {
			return domain.Allow()
		}
		return domain.Deny(domain.ReasonNotOwnerOrExpiredWindow)
	}

	if callerFingerprint != "" &&
		callerFingerprint == resource.CreatorFingerprint &&
		now.Sub(resource.CreatedAt) <= AnonymousEditWindow {
		return domain.Allow()
	}

	return domain.Deny(domain.ReasonNotOwnerOrExpiredWindow)
}

// RequireAdmin gates admin-only operations.
func (e *Engine) RequireAdmin(identity *domain.Identity) domain.Decision {
	if identity.IsAdmin() {
		return domain.Allow()
	}
	return domain.Deny(domain.ReasonAdminRequired)
}
