package guard_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hallgren-labs/content-governance/internal/api/guard"
	httptransport "github.com/hallgren-labs/content-governance/internal/api/http"
	"github.com/hallgren-labs/content-governance/internal/domain"
	"github.com/hallgren-labs/content-governance/internal/governance"
	"github.com/hallgren-labs/content-governance/internal/governance/authz"
	"github.com/hallgren-labs/content-governance/internal/governance/quota"
	"github.com/hallgren-labs/content-governance/internal/governance/ratelimit"
	"github.com/hallgren-labs/content-governance/internal/identity"
	"github.com/hallgren-labs/content-governance/internal/observability"
)

const testSecret = "guard-test-secret"

type fixedSettings int

func (s fixedSettings) PublishDailyLimit(context.Context) int { return int(s) }

func newTestApp(t *testing.T, dailyLimit int) (*fiber.App, *identity.TokenManager) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	facade := governance.NewFacade(governance.Dependencies{
		Resolver: identity.NewResolver([]identity.Provider{identity.NewSessionProvider(testSecret)}, time.Second, nil),
		Limiter:  ratelimit.NewLimiter(clock, time.Minute, nil),
		Engine:   authz.NewEngine(),
		Quota:    quota.NewEnforcer(clock),
		Settings: fixedSettings(dailyLimit),
		Clock:    clock,
	})

	ownership := &domain.ResourceOwnership{
		ResourceID:         "res-1",
		OwnerID:            "u1",
		CreatorFingerprint: "d1",
		CreatedAt:          clock.Now().Add(-time.Hour),
	}
	loader := func(_ context.Context, resourceID string) (*domain.ResourceOwnership, error) {
		return ownership, nil
	}

	g := guard.NewGuard(facade, loader, nil, zap.NewNop())

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)

	readGuard := g.Protect(guard.GuardOptions{
		Rate: ratelimit.Config{Name: "read", Window: time.Minute, MaxRequests: 2},
	})
	app.Get("/items/:id", readGuard, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": "ok"})
	})

	mutateGuard := g.Protect(guard.GuardOptions{
		Rate:         ratelimit.Config{Name: "mutate", Window: time.Minute, MaxRequests: 10},
		LoadResource: true,
	})
	app.Patch("/items/:id", mutateGuard, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": "updated"})
	})

	createGuard := g.Protect(guard.GuardOptions{
		Rate:     ratelimit.Config{Name: "creation", Window: time.Minute, MaxRequests: 10},
		Creation: true,
	})
	app.Post("/items", createGuard, func(c *fiber.Ctx) error {
		result, ok := guard.ResultFromContext(c)
		require.True(t, ok)
		if c.Get("X-Fail-Create") != "" {
			if result.Decision.Release != nil {
				result.Decision.Release()
			}
			return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid payload")
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	adminGuard := g.Protect(guard.GuardOptions{
		Rate:         ratelimit.Config{Name: "admin", Window: time.Minute, MaxRequests: 10},
		RequireAdmin: true,
	})
	app.Get("/admin", adminGuard, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return app, identity.NewTokenManager(testSecret, 60)
}

func TestGuardRateLimitHeaders(t *testing.T) {
	app, _ := newTestApp(t, 3)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/items/res-1", nil)
		req.Header.Set("X-Forwarded-For", "1.2.3.4")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest("GET", "/items/res-1", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
}

func TestGuardDistinctOriginsIndependent(t *testing.T) {
	app, _ := newTestApp(t, 3)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/items/res-1", nil)
		req.Header.Set("X-Forwarded-For", "1.1.1.1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	req := httptest.NewRequest("GET", "/items/res-1", nil)
	req.Header.Set("X-Forwarded-For", "2.2.2.2")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuardInvalidTokenUnauthorized(t *testing.T) {
	app, _ := newTestApp(t, 3)

	req := httptest.NewRequest("GET", "/items/res-1", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGuardOwnershipEnforced(t *testing.T) {
	app, tokens := newTestApp(t, 3)

	ownerToken, _, err := tokens.GenerateToken("u1", "u1@example.com", "u1", domain.RoleUser)
	require.NoError(t, err)
	strangerToken, _, err := tokens.GenerateToken("u2", "u2@example.com", "u2", domain.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest("PATCH", "/items/res-1", nil)
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("PATCH", "/items/res-1", nil)
	req.Header.Set("Authorization", "Bearer "+strangerToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Anonymous caller with the creator fingerprint stays inside the
	// legacy edit window.
	req = httptest.NewRequest("PATCH", "/items/res-1", nil)
	req.Header.Set("X-Client-Fingerprint", "d1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuardQuotaExhaustionReturns429(t *testing.T) {
	app, tokens := newTestApp(t, 2)

	token, _, err := tokens.GenerateToken("u7", "u7@example.com", "u7", domain.RoleUser)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/items", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	req := httptest.NewRequest("POST", "/items", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	// The header family reports rate-limiter state, never quota numbers:
	// the creation class allows 10 per window while the daily cap is 2.
	assert.Equal(t, "10", resp.Header.Get("X-RateLimit-Limit"))
}

func TestGuardFailedCreateCostsNoQuota(t *testing.T) {
	app, tokens := newTestApp(t, 2)

	token, _, err := tokens.GenerateToken("u8", "u8@example.com", "u8", domain.RoleUser)
	require.NoError(t, err)

	// Failed creates release their reserved slot.
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/items", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Fail-Create", "1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/items", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}
}

func TestGuardAdminRoute(t *testing.T) {
	app, tokens := newTestApp(t, 3)

	resp, err := app.Test(httptest.NewRequest("GET", "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	userToken, _, err := tokens.GenerateToken("u1", "u1@example.com", "u1", domain.RoleUser)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	adminToken, _, err := tokens.GenerateToken("a1", "a1@example.com", "a1", domain.RoleAdmin)
	require.NoError(t, err)
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
