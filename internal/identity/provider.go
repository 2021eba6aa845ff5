package identity

import (
	"context"
	"errors"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

// Sentinel errors providers use to classify verification failures.
// Anything else a provider returns is treated as invalid too; only
// ErrUnavailable marks an infrastructure failure that must fail closed.
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnavailable       = errors.New("verification unavailable")
)

// Claims is the normalized result of verifying a credential. Every
// provider maps its native token shape into this one struct so nothing
// downstream ever inspects provider-specific metadata.
type Claims struct {
	SubjectID   string
	Email       string
	DisplayName string
	Role        domain.Role
}

// Provider verifies one kind of credential. Two shapes exist in the
// broader system: first-party session tokens and third-party auth-service
// tokens.
type Provider interface {
	Name() string
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}
