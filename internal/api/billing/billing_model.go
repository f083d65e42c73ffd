package billing

// SubscriptionRefs are the opaque identifiers the payment provider assigns.
// The API stores them verbatim and never interprets them.
type SubscriptionRefs struct {
	CustomerRef     string `json:"customer_ref"`
	SubscriptionRef string `json:"subscription_ref"`
}

// UpdateStatusRequest reports the provider-side subscription state. Any
// status other than "active" downgrades the plan.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
