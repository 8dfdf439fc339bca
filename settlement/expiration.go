package settlement

import (
	"time"

	"github.com/vitwit/xmrcheckout/types"
)

// ExpirationTime returns when a payment request created at createdAt stops
// being payable.
func ExpirationTime(createdAt time.Time) time.Time {
	return createdAt.Add(types.PaymentWindow)
}

// IsExpired reports whether now is past the payment window. The boundary
// instant itself is still inside the window.
func IsExpired(createdAt, now time.Time) bool {
	return now.After(ExpirationTime(createdAt))
}

// Remaining returns how much of the payment window is left, or zero.
func Remaining(createdAt, now time.Time) time.Duration {
	left := ExpirationTime(createdAt).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
