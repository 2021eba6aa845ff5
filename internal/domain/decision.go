package domain

import "time"

// Reason classifies why a governance decision denied a request.
type Reason string

const (
	ReasonMissingCredential       Reason = "MISSING_CREDENTIAL"
	ReasonInvalidCredential       Reason = "INVALID_CREDENTIAL"
	ReasonVerificationUnavailable Reason = "VERIFICATION_UNAVAILABLE"
	ReasonRateLimitExceeded       Reason = "RATE_LIMIT_EXCEEDED"
	ReasonNotOwnerOrExpiredWindow Reason = "NOT_OWNER_OR_EXPIRED_WINDOW"
	ReasonAdminRequired           Reason = "ADMIN_REQUIRED"
	ReasonQuotaExceeded           Reason = "QUOTA_EXCEEDED"
)

// Decision is the uniform allow/deny result every governance component
// returns. Expected denials are values, never errors.
type Decision struct {
	Allowed   bool
	Reason    Reason
	Limit     int
	Remaining int
	ResetAt   time.Time

	// Release returns the quota slot this decision reserved. It is set
	// only on allowed content-creation decisions and must be called when
	// the create action fails downstream, so a request that fails
	// validation costs no quota. Calling it more than once is safe.
	Release func()
}

// Allow builds a permissive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny builds a denial with the given reason.
func Deny(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason}
}
