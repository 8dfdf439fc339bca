// Package settlement turns what the gateway reports about a payment into the
// checkout's canonical status, and owns the payment validity window.
//
// Everything here is pure: replayed or reordered notifications resolve to the
// same result every time.
package settlement

import "github.com/vitwit/xmrcheckout/types"

// Resolve maps a raw gateway status and confirmation count to a canonical
// status. Rules are checked in order and the first match wins. Raw statuses
// are matched exactly; anything else, including a differently cased or padded
// "paid", resolves to pending and never to confirmed.
func Resolve(rawStatus string, confirmations int) types.StatusResolution {
	if confirmations < 0 {
		confirmations = 0
	}

	status := classify(rawStatus, confirmations)

	return types.StatusResolution{
		Status:           status,
		Confirmations:    confirmations,
		IsFullyConfirmed: confirmations >= types.RequiredConfirmations,
		RequiresAction:   status.RequiresAction(),
		IsTerminal:       status.IsTerminal(),
	}
}

func classify(raw string, confirmations int) types.CanonicalPaymentStatus {
	switch raw {
	case types.RawStatusPaid:
		switch {
		case confirmations >= types.RequiredConfirmations:
			return types.StatusConfirmed
		case confirmations > 0:
			return types.StatusPartiallyConfirmed
		default:
			return types.StatusPending
		}
	case types.RawStatusCancelled, types.RawStatusExpired:
		return types.StatusFailed
	case types.RawStatusUnderpaid:
		return types.StatusUnderpaid
	default:
		return types.StatusPending
	}
}

// ResolvePayload resolves a webhook notification.
func ResolvePayload(p *types.WebhookPayload) types.StatusResolution {
	return Resolve(p.Status, p.Confirmations)
}

// ResolveGatewayStatus resolves the result of polling the gateway.
func ResolveGatewayStatus(s *types.GatewayPaymentStatus) types.StatusResolution {
	return Resolve(s.Status, s.Confirmations)
}
