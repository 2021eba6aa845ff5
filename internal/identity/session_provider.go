package identity

import (
	"context"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

// sessionClaims is the first-party session token payload. Older tokens
// carried an is_admin flag instead of a role claim; both are honored,
// role first.
type sessionClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

func (c *sessionClaims) normalizedRole() domain.Role {
	// Fixed precedence: explicit role claim, then the legacy admin flag.
	switch c.Role {
	case "admin", string(domain.RoleAdmin):
		return domain.RoleAdmin
	case "user", string(domain.RoleUser):
		return domain.RoleUser
	}
	if c.IsAdmin {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// GenerateToken builds and signs a session token for the subject.
func (tm *TokenManager) GenerateToken(subjectID, email, name string, role domain.Role) (string, time.Time, error) {
	expiresAt := time.Now().Add(tm.ttl)
	claims := &sessionClaims{
		Email: email,
		Name:  name,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// SessionProvider verifies first-party session tokens.
type SessionProvider struct {
	secret []byte
}

// NewSessionProvider constructs the provider against the signing secret.
func NewSessionProvider(secret string) *SessionProvider {
	return &SessionProvider{secret: []byte(secret)}
}

// Name identifies the provider in logs.
func (p *SessionProvider) Name() string {
	return "session"
}

// Verify checks signature and expiry, then normalizes claims.
func (p *SessionProvider) Verify(_ context.Context, rawToken string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(rawToken, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Method.Alg())
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidCredential
	}

	return &Claims{
		SubjectID:   claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		Role:        claims.normalizedRole(),
	}, nil
}
