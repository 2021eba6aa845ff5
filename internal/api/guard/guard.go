package guard

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hallgren-labs/content-governance/internal/domain"
	"github.com/hallgren-labs/content-governance/internal/events"
	"github.com/hallgren-labs/content-governance/internal/governance"
	"github.com/hallgren-labs/content-governance/internal/governance/ratelimit"
	apperrors "github.com/hallgren-labs/content-governance/pkg/util/errorutil"
)

const (
	governanceResultKey = "governance_result"
	fingerprintHeader   = "X-Client-Fingerprint"
	sessionCookie       = "session"
)

// OwnershipLoader fetches the ownership record for a resource id. It is
// the content-storage collaborator from the guard's point of view.
type OwnershipLoader func(ctx context.Context, resourceID string) (*domain.ResourceOwnership, error)

// Guard runs the governance facade in front of protected routes and
// translates its decisions into transport responses.
type Guard struct {
	facade        *governance.Facade
	loadOwnership OwnershipLoader
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NewGuard constructs the guard.
func NewGuard(facade *governance.Facade, loadOwnership OwnershipLoader, dispatcher events.Dispatcher, logger *zap.Logger) *Guard {
	return &Guard{facade: facade, loadOwnership: loadOwnership, dispatcher: dispatcher, logger: logger}
}

// GuardOptions selects which checks apply to a route.
type GuardOptions struct {
	// Rate is the call-class rate configuration for this route.
	Rate ratelimit.Config
	// LoadResource fetches the :id ownership record and enforces the
	// ownership check against it.
	LoadResource bool
	// RequireAdmin gates admin-only routes.
	RequireAdmin bool
	// Creation marks content-creation writes, which reserve quota.
	Creation bool
}

// Protect returns the middleware enforcing opts for one route.
func (g *Guard) Protect(opts GuardOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := governance.Request{
			Credential:     credentialFromRequest(c),
			ClientKey:      "ip:" + clientIP(c),
			Fingerprint:    c.Get(fingerprintHeader),
			RateConfig:     opts.Rate,
			RequireAdmin:   opts.RequireAdmin,
			CreationAction: opts.Creation,
		}

		if opts.LoadResource {
			ownership, err := g.loadOwnership(c.UserContext(), c.Params("id"))
			if err != nil {
				return err
			}
			req.Resource = ownership
		}

		result, err := g.facade.Evaluate(c.UserContext(), req)
		if err != nil {
			// Only cancellation or genuine infrastructure failure lands
			// here; expected denials are decision values.
			return apperrors.NewInternalError(err)
		}

		// Headers report rate-limiter state only; a quota denial carries
		// its own numbers in the decision, not here.
		setRateHeaders(c, result.Rate)

		if !result.Decision.Allowed {
			g.publishDenial(c, result)
			return denialError(result.Decision)
		}

		c.Locals(governanceResultKey, result)
		return c.Next()
	}
}

// ResultFromContext retrieves the governance result stored by Protect.
func ResultFromContext(c *fiber.Ctx) (governance.Result, bool) {
	val := c.Locals(governanceResultKey)
	if val == nil {
		return governance.Result{}, false
	}
	result, ok := val.(governance.Result)
	return result, ok
}

func credentialFromRequest(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return authHeader
	}
	return c.Cookies(sessionCookie)
}

func clientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
	}
	return c.IP()
}

func setRateHeaders(c *fiber.Ctx, decision domain.Decision) {
	if decision.Limit <= 0 {
		return
	}
	c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	c.Set("X-RateLimit-Reset", decision.ResetAt.UTC().Format(time.RFC3339))
}

func denialError(decision domain.Decision) error {
	reason := string(decision.Reason)
	switch decision.Reason {
	case domain.ReasonRateLimitExceeded:
		return apperrors.NewTooManyRequests(reason, "rate limit exceeded", nil)
	case domain.ReasonQuotaExceeded:
		return apperrors.NewTooManyRequests(reason, "Daily limit reached", nil)
	case domain.ReasonMissingCredential, domain.ReasonInvalidCredential:
		return apperrors.NewUnauthorized("Unauthorized")
	case domain.ReasonVerificationUnavailable:
		return apperrors.NewDomainError(reason, "credential verification unavailable", fiber.StatusServiceUnavailable, nil)
	default:
		return apperrors.NewDomainError(reason, reason, fiber.StatusForbidden, nil)
	}
}

func (g *Guard) publishDenial(c *fiber.Ctx, result governance.Result) {
	if g.dispatcher == nil {
		return
	}
	actor := events.Actor{Fingerprint: c.Get(fingerprintHeader)}
	if result.Identity != nil {
		actor.SubjectID = result.Identity.SubjectID
		actor.Role = result.Identity.Role
	}
	_ = g.dispatcher.Publish(c.UserContext(), events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRequestDenied,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload: events.RequestDeniedPayload{
			Reason: result.Decision.Reason,
			Path:   c.Path(),
			Method: c.Method(),
		},
	})
}
