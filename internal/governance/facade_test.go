package governance

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgren-labs/content-governance/internal/domain"
	"github.com/hallgren-labs/content-governance/internal/governance/authz"
	"github.com/hallgren-labs/content-governance/internal/governance/quota"
	"github.com/hallgren-labs/content-governance/internal/governance/ratelimit"
	"github.com/hallgren-labs/content-governance/internal/identity"
	"github.com/hallgren-labs/content-governance/internal/observability"
)

const testSecret = "facade-test-secret"

type stubSettings struct {
	limit int
}

func (s stubSettings) PublishDailyLimit(context.Context) int { return s.limit }

type unavailableProvider struct{}

func (unavailableProvider) Name() string { return "down" }

func (unavailableProvider) Verify(context.Context, string) (*identity.Claims, error) {
	return nil, identity.ErrUnavailable
}

type fixture struct {
	facade  *Facade
	limiter *ratelimit.Limiter
	quota   *quota.Enforcer
	clock   *clockwork.FakeClock
	tokens  *identity.TokenManager
	metrics *observability.Metrics
}

func newFixture(t *testing.T, dailyLimit int, providers ...identity.Provider) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	if len(providers) == 0 {
		providers = []identity.Provider{identity.NewSessionProvider(testSecret)}
	}

	limiter := ratelimit.NewLimiter(clock, time.Minute, nil)
	enforcer := quota.NewEnforcer(clock)
	metrics := observability.NewMetrics()

	facade := NewFacade(Dependencies{
		Resolver: identity.NewResolver(providers, time.Second, nil),
		Limiter:  limiter,
		Engine:   authz.NewEngine(),
		Quota:    enforcer,
		Settings: stubSettings{limit: dailyLimit},
		Clock:    clock,
		Metrics:  metrics,
	})

	return &fixture{
		facade:  facade,
		limiter: limiter,
		quota:   enforcer,
		clock:   clock,
		tokens:  identity.NewTokenManager(testSecret, 60),
		metrics: metrics,
	}
}

func (f *fixture) token(t *testing.T, subjectID string, role domain.Role) string {
	t.Helper()
	token, _, err := f.tokens.GenerateToken(subjectID, subjectID+"@example.com", subjectID, role)
	require.NoError(t, err)
	return token
}

func readRequest() Request {
	return Request{
		ClientKey:  "ip:1.2.3.4",
		RateConfig: ratelimit.Config{Window: 60000 * time.Millisecond, MaxRequests: 5},
	}
}

func TestEvaluateRateLimitEndToEnd(t *testing.T) {
	f := newFixture(t, 3)

	for want := 4; want >= 0; want-- {
		result, err := f.facade.Evaluate(context.Background(), readRequest())
		require.NoError(t, err)
		require.True(t, result.Decision.Allowed)
		assert.Equal(t, want, result.Decision.Remaining)
	}

	result, err := f.facade.Evaluate(context.Background(), readRequest())
	require.NoError(t, err)
	assert.False(t, result.Decision.Allowed)
	assert.Equal(t, domain.ReasonRateLimitExceeded, result.Decision.Reason)
}

func TestEvaluateAnonymousReadAllowed(t *testing.T) {
	f := newFixture(t, 3)

	result, err := f.facade.Evaluate(context.Background(), readRequest())
	require.NoError(t, err)
	assert.True(t, result.Decision.Allowed)
	assert.Nil(t, result.Identity)
}

func TestEvaluateInvalidCredentialDeniedBeforeRateSlot(t *testing.T) {
	f := newFixture(t, 3)

	req := readRequest()
	req.Credential = "not-a-valid-token"
	result, err := f.facade.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Decision.Allowed)
	assert.Equal(t, domain.ReasonInvalidCredential, result.Decision.Reason)
	assert.Equal(t, 0, f.limiter.Size())
}

func TestEvaluateVerificationUnavailableFailsClosed(t *testing.T) {
	f := newFixture(t, 3, unavailableProvider{})

	req := readRequest()
	req.Credential = "some-token"
	result, err := f.facade.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Decision.Allowed)
	assert.Equal(t, domain.ReasonVerificationUnavailable, result.Decision.Reason)
}

func TestEvaluateAuthenticatedCallerKeyedBySubject(t *testing.T) {
	f := newFixture(t, 3)

	req := readRequest()
	req.RateConfig = ratelimit.Config{Window: time.Minute, MaxRequests: 1}
	req.Credential = f.token(t, "u1", domain.RoleUser)

	first, err := f.facade.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, first.Decision.Allowed)
	require.NotNil(t, first.Identity)
	assert.Equal(t, "u1", first.Identity.SubjectID)

	// Same account over a different network path shares the budget.
	req.ClientKey = "ip:9.9.9.9"
	second, err := f.facade.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Decision.Allowed)
}

func TestEvaluateRateCheckedBeforeAuthorization(t *testing.T) {
	f := newFixture(t, 3)

	resource := &domain.ResourceOwnership{
		ResourceID: "res-1",
		OwnerID:    "u1",
		CreatedAt:  f.clock.Now().Add(-time.Hour),
	}

	req := readRequest()
	req.RateConfig = ratelimit.Config{Window: time.Minute, MaxRequests: 1}
	req.Resource = resource

	first, err := f.facade.Evaluate(context.Background(), req)
	require.NoError(t, err)
	// Anonymous non-matching caller fails ownership.
	assert.Equal(t, domain.ReasonNotOwnerOrExpiredWindow, first.Decision.Reason)

	second, err := f.facade.Evaluate(context.Background(), req)
	require.NoError(t, err)
	// Once the window is spent the denial is the cheaper rate limit,
	// before any ownership computation.
	assert.Equal(t, domain.ReasonRateLimitExceeded, second.Decision.Reason)
}

func TestEvaluateOwnershipPrecedence(t *testing.T) {
	f := newFixture(t, 3)

	resource := &domain.ResourceOwnership{
		ResourceID:         "res-1",
		OwnerID:            "u1",
		CreatorFingerprint: "d1",
		CreatedAt:          f.clock.Now().Add(-time.Hour),
	}

	evaluate := func(credential, fingerprint string) domain.Decision {
		req := readRequest()
		req.Credential = credential
		req.Fingerprint = fingerprint
		req.Resource = resource
		result, err := f.facade.Evaluate(context.Background(), req)
		require.NoError(t, err)
		return result.Decision
	}

	assert.True(t, evaluate(f.token(t, "admin-1", domain.RoleAdmin), "").Allowed)
	assert.True(t, evaluate(f.token(t, "u1", domain.RoleUser), "").Allowed)
	assert.False(t, evaluate(f.token(t, "u2", domain.RoleUser), "").Allowed)
	assert.True(t, evaluate("", "d1").Allowed)
	// Identity presence disables the fingerprint path.
	assert.False(t, evaluate(f.token(t, "u2", domain.RoleUser), "d1").Allowed)
}

func TestEvaluateRequireAdmin(t *testing.T) {
	f := newFixture(t, 3)

	req := readRequest()
	req.RequireAdmin = true

	anon, err := f.facade.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonMissingCredential, anon.Decision.Reason)

	req.Credential = f.token(t, "u1", domain.RoleUser)
	user, err := f.facade.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonAdminRequired, user.Decision.Reason)

	req.Credential = f.token(t, "admin-1", domain.RoleAdmin)
	admin, err := f.facade.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, admin.Decision.Allowed)
}

func TestEvaluateCreationQuotaReserveCycle(t *testing.T) {
	f := newFixture(t, 2)

	create := func() Result {
		req := readRequest()
		req.Credential = f.token(t, "u1", domain.RoleUser)
		req.CreationAction = true
		result, err := f.facade.Evaluate(context.Background(), req)
		require.NoError(t, err)
		return result
	}

	first := create()
	require.True(t, first.Decision.Allowed)
	require.NotNil(t, first.Decision.Release)

	second := create()
	require.True(t, second.Decision.Allowed)

	third := create()
	assert.False(t, third.Decision.Allowed)
	assert.Equal(t, domain.ReasonQuotaExceeded, third.Decision.Reason)
	// The rate state rides along separately from the quota denial.
	assert.True(t, third.Rate.Allowed)
	assert.Equal(t, 5, third.Rate.Limit)
	assert.Equal(t, 2, f.quota.Used("u1"))
}

func TestEvaluateReleasedCreationCostsNoQuota(t *testing.T) {
	f := newFixture(t, 2)

	req := readRequest()
	req.Credential = f.token(t, "u1", domain.RoleUser)
	req.CreationAction = true

	// Downstream validation failures release their slot.
	for i := 0; i < 5; i++ {
		result, err := f.facade.Evaluate(context.Background(), req)
		require.NoError(t, err)
		require.True(t, result.Decision.Allowed)
		result.Decision.Release()
	}
	assert.Equal(t, 0, f.quota.Used("u1"))
}

func TestEvaluateAdminBypassesQuota(t *testing.T) {
	f := newFixture(t, 1)

	req := readRequest()
	req.Credential = f.token(t, "admin-1", domain.RoleAdmin)
	req.CreationAction = true

	for i := 0; i < 4; i++ {
		result, err := f.facade.Evaluate(context.Background(), req)
		require.NoError(t, err)
		require.True(t, result.Decision.Allowed)
	}
	assert.Equal(t, 0, f.quota.Used("admin-1"))
}

func TestEvaluateCallClassesHoldSeparateWindows(t *testing.T) {
	f := newFixture(t, 3)

	read := readRequest()
	read.RateConfig = ratelimit.Config{Name: "read", Window: time.Minute, MaxRequests: 10}

	// Spending the whole read budget must leave the creation class's
	// window for the same caller untouched.
	for i := 0; i < 10; i++ {
		result, err := f.facade.Evaluate(context.Background(), read)
		require.NoError(t, err)
		require.True(t, result.Decision.Allowed)
	}
	denied, err := f.facade.Evaluate(context.Background(), read)
	require.NoError(t, err)
	require.Equal(t, domain.ReasonRateLimitExceeded, denied.Decision.Reason)

	create := readRequest()
	create.RateConfig = ratelimit.Config{Name: "creation", Window: time.Minute, MaxRequests: 10}
	result, err := f.facade.Evaluate(context.Background(), create)
	require.NoError(t, err)
	assert.True(t, result.Decision.Allowed)
	assert.Equal(t, 9, result.Decision.Remaining)
}

func TestEvaluateCancelledRequestCommitsNothing(t *testing.T) {
	f := newFixture(t, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.facade.Evaluate(ctx, readRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.limiter.Size())
}

func TestEvaluateRecordsDecisionMetrics(t *testing.T) {
	f := newFixture(t, 3)

	result, err := f.facade.Evaluate(context.Background(), readRequest())
	require.NoError(t, err)
	require.True(t, result.Decision.Allowed)
	assert.Equal(t, int64(1), f.metrics.DecisionCount("", true))
}
