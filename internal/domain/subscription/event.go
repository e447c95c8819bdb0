package subscription

import vo "lumina/internal/domain/subscription/valueobjects"

// ProviderEvent is a verified, decoded vendor notification in provider-neutral
// form. Decoders for each vendor produce it; the event router consumes it.
type ProviderEvent struct {
	Provider  vo.Provider
	EventID   string
	EventType string
	Subtype   string

	// Facts is set when the payload carried enough to resolve from directly.
	Facts *Facts

	// SubscriptionRef is the provider-side subscription identifier, for
	// event types whose payload only references the subscription.
	SubscriptionRef string

	Payload []byte
}
