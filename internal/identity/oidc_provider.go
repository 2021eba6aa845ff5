package identity

import (
	"context"
	"fmt"

	oidc "github.com/coreos/go-oidc/v3/oidc"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

// TokenVerifier matches go-oidc's IDTokenVerifier so the provider can be
// exercised against a fake in tests.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// oidcClaims covers the metadata locations the third-party auth service
// may store a role in.
type oidcClaims struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
	Roles []string `json:"roles"`
}

func (c *oidcClaims) normalizedRole() domain.Role {
	// Fixed precedence: top-level role, then app_metadata.role, then the
	// roles list.
	candidates := []string{c.Role, c.AppMetadata.Role}
	for _, candidate := range candidates {
		switch candidate {
		case "admin", string(domain.RoleAdmin):
			return domain.RoleAdmin
		case "user", string(domain.RoleUser):
			return domain.RoleUser
		}
	}
	for _, role := range c.Roles {
		if role == "admin" || role == string(domain.RoleAdmin) {
			return domain.RoleAdmin
		}
	}
	return domain.RoleUser
}

// OIDCProvider verifies ID tokens issued by the third-party auth service.
type OIDCProvider struct {
	verifier TokenVerifier
}

// NewOIDCProvider wraps a configured verifier.
func NewOIDCProvider(verifier TokenVerifier) *OIDCProvider {
	return &OIDCProvider{verifier: verifier}
}

// Name identifies the provider in logs.
func (p *OIDCProvider) Name() string {
	return "oidc"
}

// Verify validates the token and normalizes its claims. A cancelled or
// timed-out context means the remote keyset could not be consulted, which
// must surface as unavailability, not as an invalid credential.
func (p *OIDCProvider) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := p.verifier.Verify(ctx, rawToken)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if idToken.Subject == "" {
		return nil, ErrInvalidCredential
	}

	return &Claims{
		SubjectID:   idToken.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		Role:        claims.normalizedRole(),
	}, nil
}
