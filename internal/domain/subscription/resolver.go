package subscription

import (
	"time"

	vo "lumina/internal/domain/subscription/valueobjects"
)

// resolutionRule pairs a named predicate with the status it yields. Rules
// are evaluated top-to-bottom and the first match wins, so the precedence
// is auditable rule-by-rule instead of buried in nested conditionals.
type resolutionRule struct {
	Name    string
	Applies func(f Facts, now time.Time) bool
	Result  vo.Status
}

// resolutionRules is the authoritative precedence order. Reordering changes
// observable behavior: a refunded-but-unexpired subscription must resolve to
// expired, which is why revocation is checked before the period bounds.
var resolutionRules = []resolutionRule{
	{
		// Refund always wins, regardless of a future expiry.
		Name: "revoked",
		Applies: func(f Facts, _ time.Time) bool {
			return f.Revoked()
		},
		Result: vo.StatusExpired,
	},
	{
		// The user keeps access while the vendor retries the charge.
		Name: "billing_retry",
		Applies: func(f Facts, _ time.Time) bool {
			return f.InBillingRetryPeriod
		},
		Result: vo.StatusActive,
	},
	{
		Name: "grace_period",
		Applies: func(f Facts, now time.Time) bool {
			return f.InGracePeriod(now)
		},
		Result: vo.StatusActive,
	},
	{
		Name: "introductory_offer",
		Applies: func(f Facts, _ time.Time) bool {
			return f.IsIntroductory()
		},
		Result: vo.StatusTrial,
	},
	{
		// Renewal switched off (or the vendor reports an expiration intent)
		// while the paid period still covers now: access continues but the
		// subscription will not renew.
		Name: "renewal_disabled",
		Applies: func(f Facts, now time.Time) bool {
			return f.WithinPeriod(now) && (f.AutoRenewDisabled() || f.ExpirationIntent != nil)
		},
		Result: vo.StatusCancelled,
	},
	{
		Name: "within_period",
		Applies: func(f Facts, now time.Time) bool {
			return f.WithinPeriod(now)
		},
		Result: vo.StatusActive,
	},
}

// Resolve maps normalized vendor facts to a subscription status. It is a
// pure function: no errors, no side effects, and identical inputs always
// yield the identical status. Unknown or missing facts fall through every
// rule and default conservatively to expired.
func Resolve(facts Facts, now time.Time) vo.Status {
	status, _ := ResolveWithRule(facts, now)
	return status
}

// ResolveWithRule additionally reports which rule matched, for logging and
// audit trails. The fallback is reported as "default_expired".
func ResolveWithRule(facts Facts, now time.Time) (vo.Status, string) {
	for _, rule := range resolutionRules {
		if rule.Applies(facts, now) {
			return rule.Result, rule.Name
		}
	}
	return vo.StatusExpired, "default_expired"
}
