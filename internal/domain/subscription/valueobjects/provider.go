package valueobjects

// Provider identifies which payment platform owns the subscription record.
// Exactly one provider is authoritative at a time; identifier fields of a
// non-active provider are left stale for audit but must never be read.
type Provider string

const (
	ProviderNone   Provider = "none"
	ProviderStripe Provider = "stripe"
	ProviderApple  Provider = "apple"
	ProviderGoogle Provider = "google"
)

func (p Provider) String() string {
	return string(p)
}

// SupportsRemoteCancel reports whether the provider's subscription can be
// cancelled through its API. App-store subscriptions can only be cancelled
// by the user via platform settings, so migration marks them cancelled
// locally instead.
func (p Provider) SupportsRemoteCancel() bool {
	return p == ProviderStripe
}

// IsAppStore reports whether the provider is a mobile app store.
func (p Provider) IsAppStore() bool {
	return p == ProviderApple || p == ProviderGoogle
}

var ValidProviders = map[Provider]bool{
	ProviderNone:   true,
	ProviderStripe: true,
	ProviderApple:  true,
	ProviderGoogle: true,
}

// ParseProvider validates a platform string from a client request. Mobile
// clients send their OS name, which maps to the owning app store.
func ParseProvider(s string) (Provider, bool) {
	switch s {
	case "ios", "macos":
		return ProviderApple, true
	case "android":
		return ProviderGoogle, true
	}

	p := Provider(s)
	if !ValidProviders[p] || p == ProviderNone {
		return ProviderNone, false
	}
	return p, true
}
