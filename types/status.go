package types

// CanonicalPaymentStatus is the checkout's own classification of payment
// progress, independent of the gateway's vocabulary.
type CanonicalPaymentStatus string

const (
	StatusPending            CanonicalPaymentStatus = "pending"
	StatusPartiallyConfirmed CanonicalPaymentStatus = "partially_confirmed"
	StatusConfirmed          CanonicalPaymentStatus = "confirmed"
	StatusUnderpaid          CanonicalPaymentStatus = "underpaid"
	StatusFailed             CanonicalPaymentStatus = "failed"
)

// Raw statuses reported by the gateway.
const (
	RawStatusPaid      = "paid"
	RawStatusCancelled = "cancelled"
	RawStatusExpired   = "expired"
	RawStatusUnderpaid = "underpaid"
)

// StatusResolution is the canonical status plus the flags derived from it.
type StatusResolution struct {
	Status           CanonicalPaymentStatus `json:"status"`
	Confirmations    int                    `json:"confirmations"`
	IsFullyConfirmed bool                   `json:"isFullyConfirmed"`
	RequiresAction   bool                   `json:"requiresAction"`

	// IsTerminal is set when no later notification can move the payment on.
	IsTerminal bool `json:"isTerminal"`
}

// RequiresAction reports whether a merchant has to look at a payment in this status.
func (s CanonicalPaymentStatus) RequiresAction() bool {
	return s == StatusUnderpaid || s == StatusFailed
}

// IsTerminal reports whether no further webhook can move the payment on.
func (s CanonicalPaymentStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

func (s CanonicalPaymentStatus) String() string {
	return string(s)
}
