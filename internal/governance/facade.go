// Package governance decides, for every mutating or sensitive request,
// whether it may proceed. It composes identity resolution, rate
// limiting, authorization and publishing quota into one decision per
// request.
package governance

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hallgren-labs/content-governance/internal/domain"
	"github.com/hallgren-labs/content-governance/internal/governance/authz"
	"github.com/hallgren-labs/content-governance/internal/governance/quota"
	"github.com/hallgren-labs/content-governance/internal/governance/ratelimit"
	"github.com/hallgren-labs/content-governance/internal/identity"
	"github.com/hallgren-labs/content-governance/internal/observability"
)

// SettingsSource supplies runtime platform settings.
type SettingsSource interface {
	PublishDailyLimit(ctx context.Context) int
}

// Request carries everything the facade needs to evaluate one inbound
// call. The host HTTP layer fills it from headers and the fetched
// ownership record.
type Request struct {
	// Credential is the raw bearer token or session cookie, empty when
	// the caller is anonymous.
	Credential string
	// ClientKey identifies unauthenticated callers for rate limiting,
	// typically "ip:<forwarded-for>".
	ClientKey string
	// Fingerprint is the client-supplied anonymous device fingerprint.
	Fingerprint string

	RateConfig ratelimit.Config
	// Resource, when set, triggers an ownership check against it.
	Resource *domain.ResourceOwnership
	// RequireAdmin gates admin-only operations.
	RequireAdmin bool
	// CreationAction marks content-creation writes, which consume
	// publishing quota.
	CreationAction bool
}

// Result pairs the decision with the identity it was made for, so
// handlers can attribute the action without resolving twice.
type Result struct {
	Decision domain.Decision
	Identity *domain.Identity
	// Rate is the rate-limiter's own decision for this call, kept
	// separate so transports can report rate state without conflating it
	// with quota numbers. Zero when evaluation ended before the limiter.
	Rate domain.Decision
}

// Dependencies encapsulates component requirements for the facade.
type Dependencies struct {
	Resolver *identity.Resolver
	Limiter  *ratelimit.Limiter
	Engine   *authz.Engine
	Quota    *quota.Enforcer
	Settings SettingsSource
	Clock    clockwork.Clock
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// Facade is the single entry point request handlers call.
type Facade struct {
	resolver *identity.Resolver
	limiter  *ratelimit.Limiter
	engine   *authz.Engine
	quota    *quota.Enforcer
	settings SettingsSource
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewFacade builds the facade.
func NewFacade(deps Dependencies) *Facade {
	return &Facade{
		resolver: deps.Resolver,
		limiter:  deps.Limiter,
		engine:   deps.Engine,
		quota:    deps.Quota,
		settings: deps.Settings,
		clock:    deps.Clock,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
}

// Evaluate applies resolver, rate limiter, authorization and quota in
// that fixed order, short-circuiting on the first denial: cheaper checks
// run before ownership computation. Expected denials are Decision
// values; the returned error is reserved for request cancellation, so an
// aborted request never commits a rate or quota slot.
func (f *Facade) Evaluate(ctx context.Context, req Request) (Result, error) {
	resolution := f.resolver.Resolve(ctx, req.Credential)

	switch resolution.Reason {
	case domain.ReasonInvalidCredential, domain.ReasonVerificationUnavailable:
		return f.finish(Result{Decision: domain.Deny(resolution.Reason)})
	}
	// A missing credential is not a denial: the caller proceeds
	// anonymously and later checks decide what anonymity may do.
	caller := resolution.Identity

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	rateDecision := f.limiter.Consume(rateKey(caller, req.ClientKey), req.RateConfig)
	if !rateDecision.Allowed {
		return f.finish(Result{Decision: rateDecision, Identity: caller, Rate: rateDecision})
	}

	if req.RequireAdmin {
		if caller == nil {
			return f.finish(Result{Decision: domain.Deny(domain.ReasonMissingCredential), Rate: rateDecision})
		}
		if decision := f.engine.RequireAdmin(caller); !decision.Allowed {
			return f.finish(Result{Decision: decision, Identity: caller, Rate: rateDecision})
		}
	}

	if req.Resource != nil {
		decision := f.engine.Authorize(caller, *req.Resource, req.Fingerprint, f.clock.Now())
		if !decision.Allowed {
			return f.finish(Result{Decision: decision, Identity: caller, Rate: rateDecision})
		}
	}

	if req.CreationAction {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		// An allowed decision keeps its Release hook: the quota slot is
		// returned if the create fails downstream.
		decision := f.quota.Reserve(
			subjectKey(caller, req.Fingerprint, req.ClientKey),
			f.settings.PublishDailyLimit(ctx),
			caller.IsAdmin(),
		)
		return f.finish(Result{Decision: decision, Identity: caller, Rate: rateDecision})
	}

	allowed := domain.Allow()
	allowed.Limit = rateDecision.Limit
	allowed.Remaining = rateDecision.Remaining
	allowed.ResetAt = rateDecision.ResetAt
	return f.finish(Result{Decision: allowed, Identity: caller, Rate: rateDecision})
}

func (f *Facade) finish(result Result) (Result, error) {
	if f.metrics != nil {
		f.metrics.RecordDecision(string(result.Decision.Reason), result.Decision.Allowed)
	}
	if !result.Decision.Allowed && f.logger != nil {
		fields := []zap.Field{zap.String("reason", string(result.Decision.Reason))}
		if result.Identity != nil {
			fields = append(fields, zap.String("subject", result.Identity.SubjectID))
		}
		f.logger.Info("request denied", fields...)
	}
	return result, nil
}

// rateKey prefers the verified subject so authenticated callers are
// limited per account rather than per network origin.
func rateKey(caller *domain.Identity, clientKey string) string {
	if caller != nil {
		return "sub:" + caller.SubjectID
	}
	return clientKey
}

// subjectKey mirrors the authorization precedence of identity over
// fingerprint; the network-origin key is the last resort.
func subjectKey(caller *domain.Identity, fingerprint, clientKey string) string {
	if caller != nil {
		return caller.SubjectID
	}
	if fingerprint != "" {
		return "fp:" + fingerprint
	}
	return clientKey
}
