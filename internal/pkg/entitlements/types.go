package entitlements

import (
	"fmt"
	"strconv"
	"time"

	"github.com/quizdeck/quizdeck/internal/pkg/env"
)

// Reason explains how an access decision was derived. SourceUnavailable
// lets the UI render "couldn't verify, try again" instead of a plain denial.
type Reason string

const (
	ReasonFree              Reason = "free"
	ReasonPurchase          Reason = "purchase"
	ReasonRedeemCode        Reason = "redeem_code"
	ReasonSourceUnavailable Reason = "source_unavailable"
	ReasonNoGrant           Reason = "no_grant"
)

// GrantDecision is the result of reconciling the authoritative store with
// the local decision cache for one (user, question set) pair.
type GrantDecision struct {
	HasAccess     bool   `json:"has_access"`
	RemainingDays *int   `json:"remaining_days,omitempty"`
	Reason        Reason `json:"reason"`
}

// Policy defaults. Staleness and validity are tunable via env so staging
// environments can shorten the windows.
const (
	DefaultStalenessWindow  = 24 * time.Hour
	DefaultValidityWindow   = 180 * 24 * time.Hour
	DefaultStoreTimeout     = 3 * time.Second
	DefaultFinalizeAttempts = 3

	defaultFinalizeBackoff = 200 * time.Millisecond
)

// StalenessWindowFromEnv returns how long a cached decision may be used
// when the authoritative store is unreachable.
func StalenessWindowFromEnv() time.Duration {
	return durationFromEnv("ENTITLEMENT_STALENESS_HOURS", time.Hour, DefaultStalenessWindow)
}

// ValidityWindowFromEnv returns how long a purchase grants access.
func ValidityWindowFromEnv() time.Duration {
	return durationFromEnv("GRANT_VALIDITY_DAYS", 24*time.Hour, DefaultValidityWindow)
}

// StoreTimeoutFromEnv returns the per-query timeout for authoritative
// store reads on the reconcile path.
func StoreTimeoutFromEnv() time.Duration {
	return durationFromEnv("STORE_QUERY_TIMEOUT_SECONDS", time.Second, DefaultStoreTimeout)
}

func durationFromEnv(key string, unit, def time.Duration) time.Duration {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * unit
}

// Finalize error codes. RetriesExhausted means money has moved without a
// corresponding grant; a human must reconcile it.
const (
	FinalizeStoreUnavailable = "store_unavailable"
	FinalizeRetriesExhausted = "retries_exhausted"
)

// FinalizeError is the only hard error surfaced by the entitlement core.
type FinalizeError struct {
	Code string
	Err  error
}

func (e *FinalizeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("finalize purchase: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("finalize purchase: %s", e.Code)
}

func (e *FinalizeError) Unwrap() error {
	return e.Err
}
