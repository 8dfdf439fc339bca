// Package clients talks to the two external HTTP peers of the checkout: the
// price oracle quoting XMR in GBP, and the payment gateway that opens and
// tracks XMR payment requests.
package clients

import (
	"context"

	"github.com/vitwit/xmrcheckout/types"
)

// Gateway is the outbound surface of a payment gateway.
type Gateway interface {
	CreatePayment(ctx context.Context, params types.CreatePaymentParams) (*types.PaymentRequest, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*types.GatewayPaymentStatus, error)
	Close()
}

// Oracle quotes the price of 1 XMR in GBP.
type Oracle interface {
	PriceGBP(ctx context.Context) (float64, error)
	Name() string
}
