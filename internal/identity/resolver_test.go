package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

type stubProvider struct {
	name   string
	claims *Claims
	err    error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Verify(_ context.Context, _ string) (*Claims, error) {
	return p.claims, p.err
}

func TestResolveMissingCredential(t *testing.T) {
	resolver := NewResolver(nil, time.Second, nil)

	resolution := resolver.Resolve(context.Background(), "")
	assert.False(t, resolution.Authenticated)
	assert.Nil(t, resolution.Identity)
	assert.Equal(t, domain.ReasonMissingCredential, resolution.Reason)
}

func TestResolveInvalidAcrossAllProviders(t *testing.T) {
	resolver := NewResolver([]Provider{
		&stubProvider{name: "a", err: ErrInvalidCredential},
		&stubProvider{name: "b", err: ErrInvalidCredential},
	}, time.Second, nil)

	resolution := resolver.Resolve(context.Background(), "bogus")
	assert.False(t, resolution.Authenticated)
	assert.Equal(t, domain.ReasonInvalidCredential, resolution.Reason)
}

func TestResolveSecondProviderWins(t *testing.T) {
	want := &Claims{SubjectID: "u1", Email: "u1@example.com", Role: domain.RoleUser}
	resolver := NewResolver([]Provider{
		&stubProvider{name: "a", err: ErrInvalidCredential},
		&stubProvider{name: "b", claims: want},
	}, time.Second, nil)

	resolution := resolver.Resolve(context.Background(), "token")
	require.True(t, resolution.Authenticated)
	assert.Equal(t, "u1", resolution.Identity.SubjectID)
	assert.Equal(t, domain.RoleUser, resolution.Identity.Role)
}

func TestResolveUnavailableFailsClosed(t *testing.T) {
	resolver := NewResolver([]Provider{
		&stubProvider{name: "a", err: ErrUnavailable},
		&stubProvider{name: "b", err: ErrInvalidCredential},
	}, time.Second, nil)

	resolution := resolver.Resolve(context.Background(), "token")
	assert.False(t, resolution.Authenticated)
	assert.Equal(t, domain.ReasonVerificationUnavailable, resolution.Reason)
}

func TestSessionProviderRoundTrip(t *testing.T) {
	manager := NewTokenManager("test-secret", 60)
	token, _, err := manager.GenerateToken("u42", "u42@example.com", "Pat", domain.RoleAdmin)
	require.NoError(t, err)

	provider := NewSessionProvider("test-secret")
	claims, err := provider.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u42", claims.SubjectID)
	assert.Equal(t, "u42@example.com", claims.Email)
	assert.Equal(t, "Pat", claims.DisplayName)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestSessionProviderRejectsWrongSecret(t *testing.T) {
	manager := NewTokenManager("secret-a", 60)
	token, _, err := manager.GenerateToken("u1", "", "", domain.RoleUser)
	require.NoError(t, err)

	provider := NewSessionProvider("secret-b")
	_, err = provider.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestSessionProviderRejectsGarbage(t *testing.T) {
	provider := NewSessionProvider("secret")
	_, err := provider.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestSessionRoleNormalizationPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		claims sessionClaims
		want   domain.Role
	}{
		{"explicit admin role", sessionClaims{Role: "admin"}, domain.RoleAdmin},
		{"explicit user role wins over legacy flag", sessionClaims{Role: "user", IsAdmin: true}, domain.RoleUser},
		{"legacy admin flag honored", sessionClaims{IsAdmin: true}, domain.RoleAdmin},
		{"default is user", sessionClaims{}, domain.RoleUser},
		{"unknown role falls back to user", sessionClaims{Role: "editor"}, domain.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.normalizedRole())
		})
	}
}

func TestOIDCRoleNormalizationPrecedence(t *testing.T) {
	withAppMetadata := func(role string) oidcClaims {
		var c oidcClaims
		c.AppMetadata.Role = role
		return c
	}

	tests := []struct {
		name   string
		claims oidcClaims
		want   domain.Role
	}{
		{"top-level role first", oidcClaims{Role: "admin", Roles: []string{"user"}}, domain.RoleAdmin},
		{"app_metadata role second", withAppMetadata("admin"), domain.RoleAdmin},
		{"roles list third", oidcClaims{Roles: []string{"viewer", "admin"}}, domain.RoleAdmin},
		{"top-level user blocks list promotion", oidcClaims{Role: "user", Roles: []string{"admin"}}, domain.RoleUser},
		{"default is user", oidcClaims{}, domain.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.normalizedRole())
		})
	}
}
