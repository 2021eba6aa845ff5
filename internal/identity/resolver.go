package identity

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

// Resolution is the outcome of resolving a credential. Missing and
// invalid credentials are expected outcomes carried by Reason, never
// errors.
type Resolution struct {
	Authenticated bool
	Identity      *domain.Identity
	Reason        domain.Reason
}

// Resolver turns a raw credential into a canonical Identity. It tries
// each configured provider in order and is otherwise stateless; an
// Identity lives for one request only.
type Resolver struct {
	providers []Provider
	timeout   time.Duration
	logger    *zap.Logger
}

// NewResolver builds a resolver over the given providers.
func NewResolver(providers []Provider, timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{providers: providers, timeout: timeout, logger: logger}
}

// Resolve verifies rawToken. Verification is bounded by the resolver
// timeout; hitting it resolves to VerificationUnavailable so callers fail
// closed instead of hanging or silently allowing.
func (r *Resolver) Resolve(ctx context.Context, rawToken string) Resolution {
	if rawToken == "" {
		return Resolution{Reason: domain.ReasonMissingCredential}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	unavailable := false
	for _, provider := range r.providers {
		claims, err := provider.Verify(ctx, rawToken)
		if err == nil {
			return Resolution{
				Authenticated: true,
				Identity: &domain.Identity{
					SubjectID:   claims.SubjectID,
					Email:       claims.Email,
					DisplayName: claims.DisplayName,
					Role:        claims.Role,
				},
			}
		}

		if errors.Is(err, ErrUnavailable) {
			unavailable = true
			if r.logger != nil {
				r.logger.Error("credential verification unavailable",
					zap.String("provider", provider.Name()),
					zap.Error(err))
			}
			continue
		}
		if r.logger != nil {
			r.logger.Debug("credential rejected",
				zap.String("provider", provider.Name()),
				zap.Error(err))
		}
	}

	if unavailable {
		return Resolution{Reason: domain.ReasonVerificationUnavailable}
	}
	return Resolution{Reason: domain.ReasonInvalidCredential}
}
