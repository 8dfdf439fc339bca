package rates

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vitwit/xmrcheckout/types"
)

// RateSource is what the converter needs from the cache.
type RateSource interface {
	GetRate(ctx context.Context) (types.ExchangeRateSnapshot, error)
}

// Converter turns GBP amounts into XMR quotes at the cached rate.
type Converter struct {
	rates RateSource
}

func NewConverter(rates RateSource) *Converter {
	return &Converter{rates: rates}
}

// ConvertGbpToXmr quotes amountGBP in XMR, rounded half away from zero to
// 12 decimal places. Rate errors are returned unchanged; no quote is made
// without a rate.
func (c *Converter) ConvertGbpToXmr(ctx context.Context, amountGBP decimal.Decimal) (types.PaymentQuote, error) {
	if amountGBP.IsNegative() {
		return types.PaymentQuote{}, types.NewError(types.ErrInvalidAmount, fmt.Sprintf("amount must not be negative, got %s", amountGBP), nil)
	}

	snap, err := c.rates.GetRate(ctx)
	if err != nil {
		return types.PaymentQuote{}, err
	}

	return types.PaymentQuote{
		AmountGBP:  amountGBP,
		XMRAmount:  Convert(amountGBP, snap.Rate),
		Rate:       snap.Rate,
		ValidUntil: snap.ValidUntil,
		Stale:      snap.Stale,
	}, nil
}

// Convert multiplies amount by rate and rounds to XMR atomic-unit precision.
func Convert(amount decimal.Decimal, rate float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(rate)).Round(types.XMRDecimals)
}
