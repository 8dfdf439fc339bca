// Package types holds the data model shared by the xmrcheckout packages:
// rate snapshots, quotes, gateway payment requests and webhook payloads.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// RequiredConfirmations is the number of blocks on top of a payment
	// before it is treated as final.
	RequiredConfirmations = 10

	// PaymentWindowHours is how long a payment request stays payable.
	PaymentWindowHours = 24
	PaymentWindow      = PaymentWindowHours * time.Hour

	// RateTTL is how long a fetched exchange rate is served without refresh.
	RateTTL = 5 * time.Minute

	// StaleFallbackLimit bounds how old a snapshot may be and still be served
	// when the oracle is failing.
	StaleFallbackLimit = 1 * time.Hour

	// XMRDecimals is the number of decimal places of one atomic unit (piconero).
	XMRDecimals = 12

	DefaultOracleTimeout  = 10 * time.Second
	DefaultGatewayTimeout = 30 * time.Second

	CurrencyXMR = "XMR"
	CurrencyGBP = "GBP"
)

// ExchangeRateSnapshot is one observation of the GBP→XMR rate.
// Rate is XMR per 1 GBP (the inverse of the oracle's GBP price of 1 XMR).
type ExchangeRateSnapshot struct {
	Rate       float64   `json:"rate"`
	FetchedAt  time.Time `json:"fetchedAt"`
	ValidUntil time.Time `json:"validUntil"`

	// Stale is set on snapshots served from the fallback path after a
	// failed refresh.
	Stale bool `json:"stale,omitempty"`
}

// IsValidAt reports whether the snapshot can be served without refresh.
func (s *ExchangeRateSnapshot) IsValidAt(now time.Time) bool {
	return s != nil && now.Before(s.ValidUntil)
}

// Age returns how long ago the snapshot was fetched.
func (s *ExchangeRateSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// PaymentQuote is a GBP amount converted into XMR at a cached rate.
type PaymentQuote struct {
	AmountGBP  decimal.Decimal `json:"amountGbp"`
	XMRAmount  decimal.Decimal `json:"xmrAmount"`
	Rate       float64         `json:"rate"`
	ValidUntil time.Time       `json:"validUntil"`
	Stale      bool            `json:"stale,omitempty"`
}

// CreatePaymentParams is what the checkout hands the gateway when it opens
// a payment request.
type CreatePaymentParams struct {
	OrderID     string          `json:"order_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"required"`
	CallbackURL string          `json:"callback_url,omitempty" validate:"omitempty,url"`
	SuccessURL  string          `json:"success_url,omitempty" validate:"omitempty,url"`
	CancelURL   string          `json:"cancel_url,omitempty" validate:"omitempty,url"`
}

// PaymentRequest is the gateway's answer to CreatePaymentParams. It is owned
// by the caller once returned.
type PaymentRequest struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"orderId"`
	Address        string          `json:"address"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	ExpirationTime time.Time       `json:"expirationTime"`
	Status         string          `json:"status"`

	// Quote is set when the request was priced from a GBP amount.
	Quote *PaymentQuote `json:"quote,omitempty"`
}

// GatewayPaymentStatus is the gateway's view of a payment when polled by id.
type GatewayPaymentStatus struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	Confirmations   int             `json:"confirmations"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	TransactionHash string          `json:"transactionHash,omitempty"`
}

// WebhookPayload is the body of an asynchronous gateway notification.
type WebhookPayload struct {
	PaymentID       string          `json:"payment_id" validate:"required"`
	Status          string          `json:"status" validate:"required"`
	Confirmations   int             `json:"confirmations" validate:"gte=0"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TransactionHash string          `json:"transaction_hash,omitempty"`
	OrderID         string          `json:"order_id,omitempty"`
}

// WebhookResult is what the webhook handling path hands back to the HTTP layer.
type WebhookResult struct {
	Payload    WebhookPayload   `json:"payload"`
	Resolution StatusResolution `json:"resolution"`
}
