package payments

// Payment outcome statuses as reported by the payment provider. Anything
// other than succeeded never reaches the purchase finalizer.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusPending   = "pending"
)

// PaymentOutcome is the normalized result of a card capture. It is an
// opaque input event: tokenization, fraud and currency handling happen
// upstream at the provider.
type PaymentOutcome struct {
	TransactionID string  `json:"transaction_id" validate:"required,max=191"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Status        string  `json:"status" validate:"required,oneof=succeeded failed pending"`
}

// EventInput is the normalized input for webhook event persistence.
type EventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	TransactionID   string
	PayloadJSON     string
	SignatureValid  bool
}
