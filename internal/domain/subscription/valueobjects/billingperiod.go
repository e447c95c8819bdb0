package valueobjects

// BillingPeriod is the cadence the user is billed on.
type BillingPeriod string

const (
	PeriodMonthly    BillingPeriod = "monthly"
	PeriodQuarterly  BillingPeriod = "quarterly"
	PeriodSemiannual BillingPeriod = "semiannual"
	PeriodAnnual     BillingPeriod = "annual"
	PeriodLifetime   BillingPeriod = "lifetime"
)

func (b BillingPeriod) String() string {
	return string(b)
}

var ValidBillingPeriods = map[BillingPeriod]bool{
	PeriodMonthly:    true,
	PeriodQuarterly:  true,
	PeriodSemiannual: true,
	PeriodAnnual:     true,
	PeriodLifetime:   true,
}

// ParseBillingPeriod validates a billing period string from a client request.
func ParseBillingPeriod(s string) (BillingPeriod, bool) {
	b := BillingPeriod(s)
	return b, ValidBillingPeriods[b]
}

// CancellationReason records why a subscription entered the cancelled state.
type CancellationReason string

const (
	CancelReasonMigration       CancellationReason = "migration"
	CancelReasonUserRequest     CancellationReason = "user_request"
	CancelReasonAccountDeletion CancellationReason = "account_deletion"
)

func (r CancellationReason) String() string {
	return string(r)
}
