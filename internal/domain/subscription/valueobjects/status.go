package valueobjects

// Status is the single authoritative subscription state consumed by the rest
// of the app to gate feature access.
type Status string

const (
	StatusNone        Status = "none"
	StatusActive      Status = "active"
	StatusTrial       Status = "trial"
	StatusCancelled   Status = "cancelled"
	StatusExpired     Status = "expired"
	StatusGracePeriod Status = "grace_period"
)

func (s Status) String() string {
	return string(s)
}

// CanUseService reports whether the status grants access to paid features.
// Cancelled keeps access until the period lapses, at which point the sweep
// or the next resolution pass moves it to expired.
func (s Status) CanUseService() bool {
	return s == StatusActive || s == StatusTrial || s == StatusGracePeriod || s == StatusCancelled
}

// IsTerminal reports whether the status ends a provider's ownership of the
// record. Terminal records are retained, never deleted.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

var ValidStatuses = map[Status]bool{
	StatusNone:        true,
	StatusActive:      true,
	StatusTrial:       true,
	StatusCancelled:   true,
	StatusExpired:     true,
	StatusGracePeriod: true,
}
