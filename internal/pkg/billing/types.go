package billing

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// CheckoutCompleted carries the fields the service needs from a completed
// checkout session.
type CheckoutCompleted struct {
	SessionID        string
	StripeCustomerID string
	SubscriberID     uint   // from session metadata, 0 when absent
	Plan             string // from metadata / client_reference_id, "" when absent
	Email            string
	AmountTotal      int64
	Currency         string
	Subscription     bool // session mode
}

// SubscriptionChanged carries the fields the service needs from a
// subscription lifecycle event.
type SubscriptionChanged struct {
	StripeCustomerID string
	Status           string
	PriceID          string // first line item price, "" when absent
}
