// Package xmrcheckout is the Monero payment core of an e-commerce checkout.
// It quotes GBP totals in XMR from a cached exchange rate, opens and polls
// payment requests on a payment gateway, and authenticates and classifies the
// gateway's webhook notifications.
package xmrcheckout

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vitwit/xmrcheckout/clients"
	"github.com/vitwit/xmrcheckout/logger"
	"github.com/vitwit/xmrcheckout/metrics"
	"github.com/vitwit/xmrcheckout/rates"
	"github.com/vitwit/xmrcheckout/settlement"
	"github.com/vitwit/xmrcheckout/types"
	"github.com/vitwit/xmrcheckout/utils"
	"github.com/vitwit/xmrcheckout/verification"
)

// maxBatchConcurrency bounds parallel gateway polls in BatchPaymentStatus.
const maxBatchConcurrency = 8

// Checkout wires the rate cache, the gateway client and webhook handling.
// It is safe for concurrent use.
type Checkout struct {
	config *types.Config

	oracle     rates.PriceOracle
	gateway    clients.Gateway
	cache      *rates.Cache
	converter  *rates.Converter
	httpClient *http.Client
	network    utils.MoneroNetwork
	now        func() time.Time

	logger  logger.Logger
	metrics metrics.Recorder
}

// New validates cfg and builds a Checkout. Components not injected through
// options are built from cfg.
func New(cfg *types.Config, opts ...Option) (*Checkout, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrConfigError, "config is required", nil)
	}

	conf := *cfg
	conf.ApplyDefaults()

	c := &Checkout{
		config:  &conf,
		network: utils.MoneroMainnet,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Gateway credentials only configure the built-in client.
	var skip []string
	if c.gateway != nil {
		skip = append(skip, "Gateway.BaseURL", "Gateway.APIKey")
	}
	if err := utils.ValidateStructExcept(&conf, skip...); err != nil {
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("validation failed: %v", err), err)
	}

	if c.logger == nil {
		c.logger = logger.NewZapFileLogger(conf.LogLevel, conf.LogFile, 30)
	}
	if c.metrics == nil {
		if conf.EnableMetrics {
			rec, err := metrics.NewPrometheusRecorder()
			if err != nil {
				return nil, types.NewError(types.ErrConfigError, "metrics setup failed", err)
			}
			c.metrics = rec
		} else {
			c.metrics = metrics.NoopRecorder{}
		}
	}

	if c.oracle == nil {
		oopts := []clients.CoinGeckoOption{
			clients.WithOracleLogger(c.logger.With(map[string]any{"component": "oracle"})),
			clients.WithOracleMetrics(c.metrics),
		}
		if c.httpClient != nil {
			oopts = append(oopts, clients.WithOracleHTTPClient(c.httpClient))
		}
		c.oracle = clients.NewCoinGeckoOracle(conf.Oracle, oopts...)
	}

	if c.gateway == nil {
		gopts := []clients.GatewayOption{
			clients.WithGatewayLogger(c.logger.With(map[string]any{"component": "gateway"})),
			clients.WithGatewayMetrics(c.metrics),
			clients.WithMoneroNetwork(c.network),
			clients.WithGatewayClock(c.now),
		}
		if c.httpClient != nil {
			gopts = append(gopts, clients.WithGatewayHTTPClient(c.httpClient))
		}
		gw, err := clients.NewGatewayClient(conf.Gateway, gopts...)
		if err != nil {
			return nil, err
		}
		c.gateway = gw
	}

	c.cache = rates.NewCache(c.oracle,
		rates.WithClock(c.now),
		rates.WithTTL(conf.RateTTL),
		rates.WithStaleLimit(conf.StaleFallbackLimit),
		rates.WithFetchTimeout(conf.Oracle.Timeout),
		rates.WithLogger(c.logger.With(map[string]any{"component": "rates"})),
		rates.WithMetrics(c.metrics),
	)
	c.converter = rates.NewConverter(c.cache)

	return c, nil
}

// Rate returns the current GBP→XMR exchange rate.
func (c *Checkout) Rate(ctx context.Context) (types.ExchangeRateSnapshot, error) {
	return c.cache.GetRate(ctx)
}

// QuoteGBP converts a GBP total into an XMR amount at the cached rate.
func (c *Checkout) QuoteGBP(ctx context.Context, amountGBP decimal.Decimal) (types.PaymentQuote, error) {
	return c.converter.ConvertGbpToXmr(ctx, amountGBP)
}

// CreatePayment quotes amountGBP in XMR and opens a payment request for the
// quoted amount. Nothing is sent to the gateway when no rate is available.
func (c *Checkout) CreatePayment(ctx context.Context, orderID string, amountGBP decimal.Decimal) (*types.PaymentRequest, error) {
	if !amountGBP.IsPositive() {
		return nil, types.NewError(types.ErrInvalidAmount, fmt.Sprintf("order total must be positive, got %s", amountGBP), nil)
	}

	quote, err := c.converter.ConvertGbpToXmr(ctx, amountGBP)
	if err != nil {
		c.logger.Error("cannot quote order in XMR", map[string]any{
			"order_id": orderID,
			"code":     types.CodeOf(err),
			"error":    err,
		})
		return nil, err
	}

	req, err := c.gateway.CreatePayment(ctx, types.CreatePaymentParams{
		OrderID:     orderID,
		Amount:      quote.XMRAmount,
		Currency:    types.CurrencyXMR,
		CallbackURL: c.config.Gateway.CallbackURL,
		SuccessURL:  c.config.Gateway.SuccessURL,
		CancelURL:   c.config.Gateway.CancelURL,
	})
	if err != nil {
		c.logger.Error("gateway did not open a payment request", map[string]any{
			"order_id": orderID,
			"code":     types.CodeOf(err),
			"error":    err,
		})
		return nil, err
	}

	req.Quote = &quote
	return req, nil
}

// PaymentStatus polls the gateway and resolves the payment's canonical status.
func (c *Checkout) PaymentStatus(ctx context.Context, paymentID string) (*types.GatewayPaymentStatus, types.StatusResolution, error) {
	st, err := c.gateway.GetPaymentStatus(ctx, paymentID)
	if err != nil {
		return nil, types.StatusResolution{}, err
	}
	return st, settlement.ResolveGatewayStatus(st), nil
}

// BatchPaymentStatus resolves several payments concurrently. Results are in
// the order of paymentIDs; the first failure cancels the rest.
func (c *Checkout) BatchPaymentStatus(ctx context.Context, paymentIDs []string) ([]types.StatusResolution, error) {
	if len(paymentIDs) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "no payment ids given", nil)
	}

	out := make([]types.StatusResolution, len(paymentIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchConcurrency)
	for i, id := range paymentIDs {
		i, id := i, id
		g.Go(func() error {
			_, res, err := c.PaymentStatus(gctx, id)
			if err != nil {
				return fmt.Errorf("payment %s: %w", id, err)
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HandleWebhook authenticates a gateway notification and resolves its
// canonical status. An unauthenticated body is rejected before it is parsed.
// Handling is stateless, so a replayed notification yields the same result.
func (c *Checkout) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*types.WebhookResult, error) {
	labels := map[string]string{"source": "webhook"}

	if !verification.VerifySignature(rawBody, signature, c.config.WebhookSecret) {
		c.metrics.IncCounter(metrics.WebhookRejected, labels)
		c.logger.Warn("webhook signature rejected", map[string]any{"body_size": len(rawBody)})
		return nil, types.NewError(types.ErrSignatureInvalid, "webhook signature is invalid", nil)
	}

	payload, err := utils.ParseWebhookPayload(rawBody)
	if err != nil {
		c.metrics.IncCounter(metrics.WebhookRejected, labels)
		c.logger.Warn("webhook payload rejected", map[string]any{
			"code":  types.CodeOf(err),
			"error": err,
		})
		return nil, err
	}

	res := settlement.ResolvePayload(payload)
	c.metrics.IncCounter(metrics.WebhookStatus+res.Status.String(), labels)

	fields := map[string]any{
		"payment_id":    payload.PaymentID,
		"order_id":      payload.OrderID,
		"raw_status":    payload.Status,
		"status":        res.Status.String(),
		"confirmations": res.Confirmations,
		"terminal":      res.IsTerminal,
	}
	if res.RequiresAction {
		c.logger.Warn("payment requires action", fields)
	} else {
		c.logger.Info("webhook processed", fields)
	}

	return &types.WebhookResult{Payload: *payload, Resolution: res}, nil
}

// IsExpired reports whether a payment request created at createdAt is past
// its payment window.
func (c *Checkout) IsExpired(createdAt time.Time) bool {
	return settlement.IsExpired(createdAt, c.now())
}

// TimeRemaining returns how long a payment request created at createdAt can
// still be paid, or zero once it has expired.
func (c *Checkout) TimeRemaining(createdAt time.Time) time.Duration {
	return settlement.Remaining(createdAt, c.now())
}

// Close releases the gateway's connections.
func (c *Checkout) Close() {
	c.gateway.Close()
}

// Version information
const Version = "1.0.0"

// GetVersion returns version information
func GetVersion() map[string]any {
	return map[string]any{
		"library_version":        Version,
		"currency":               types.CurrencyXMR,
		"quote_currency":         types.CurrencyGBP,
		"required_confirmations": types.RequiredConfirmations,
		"payment_window_hours":   types.PaymentWindowHours,
	}
}
