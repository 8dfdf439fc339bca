package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vitwit/xmrcheckout/logger"
	"github.com/vitwit/xmrcheckout/metrics"
	"github.com/vitwit/xmrcheckout/types"
)

const (
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	coinGeckoSource     = "coingecko"
	coinGeckoKeyHeader  = "x-cg-demo-api-key"
)

// simplePriceResponse is the only shape accepted from /simple/price.
type simplePriceResponse struct {
	Monero *struct {
		GBP *float64 `json:"gbp"`
	} `json:"monero"`
}

// CoinGeckoOracle fetches the XMR/GBP price from CoinGecko's simple price API.
type CoinGeckoOracle struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logger.Logger
	metrics    metrics.Recorder
}

type CoinGeckoOption func(*CoinGeckoOracle)

func WithOracleHTTPClient(c *http.Client) CoinGeckoOption {
	return func(o *CoinGeckoOracle) {
		o.httpClient = c
	}
}

func WithOracleLogger(l logger.Logger) CoinGeckoOption {
	return func(o *CoinGeckoOracle) {
		o.logger = logger.OrNoop(l)
	}
}

func WithOracleMetrics(r metrics.Recorder) CoinGeckoOption {
	return func(o *CoinGeckoOracle) {
		o.metrics = metrics.OrNoop(r)
	}
}

// NewCoinGeckoOracle creates an oracle client. A positive
// cfg.RequestsPerMinute throttles outbound calls to stay inside the API quota.
func NewCoinGeckoOracle(cfg types.OracleConfig, opts ...CoinGeckoOption) *CoinGeckoOracle {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultOracleTimeout
	}

	o := &CoinGeckoOracle{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.NoopLogger{},
		metrics:    metrics.NoopRecorder{},
	}

	if cfg.RequestsPerMinute > 0 {
		o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *CoinGeckoOracle) Name() string {
	return coinGeckoSource
}

// PriceGBP returns the price of 1 XMR in GBP.
func (o *CoinGeckoOracle) PriceGBP(ctx context.Context) (float64, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return 0, types.NewError(types.ErrRateUnavailable, "price oracle request throttled", err)
		}
	}

	params := url.Values{}
	params.Set("ids", "monero")
	params.Set("vs_currencies", "gbp")
	params.Set("precision", "8")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/simple/price?"+params.Encode(), nil)
	if err != nil {
		return 0, types.NewError(types.ErrRateUnavailable, "failed to build price request", err)
	}
	req.Header.Set("Accept", "application/json")
	if o.apiKey != "" {
		req.Header.Set(coinGeckoKeyHeader, o.apiKey)
	}

	labels := map[string]string{"source": coinGeckoSource}
	start := time.Now()
	status, body, err := do(o.httpClient, req)
	o.metrics.ObserveLatency(metrics.OracleFetch, time.Since(start), labels)

	if err != nil {
		up := transportMessage(ctx, err)
		o.logger.Warn("price oracle request failed", map[string]any{"error": err})
		return 0, &types.Error{
			Code:    types.ErrRateUnavailable,
			Message: "price oracle unreachable",
			Data:    up,
			Err:     err,
		}
	}

	if !isSuccess(status) {
		up := upstreamMessage(status, body)
		o.logger.Warn("price oracle returned an error", map[string]any{"status": status, "message": up.Message})
		return 0, &types.Error{
			Code:    types.ErrRateUnavailable,
			Message: fmt.Sprintf("price oracle returned status %d", status),
			Data:    up,
		}
	}

	return parseSimplePrice(body)
}

func parseSimplePrice(body []byte) (float64, error) {
	var resp simplePriceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, types.NewError(types.ErrRateInvalid, "price oracle response is not valid JSON", err)
	}

	if resp.Monero == nil || resp.Monero.GBP == nil {
		return 0, types.NewError(types.ErrRateInvalid, "price oracle response is missing monero.gbp", nil)
	}

	price := *resp.Monero.GBP
	if err := ValidatePrice(price); err != nil {
		return 0, err
	}
	return price, nil
}

// ValidatePrice rejects prices that are not finite or not positive.
func ValidatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return types.NewError(types.ErrRateInvalid, fmt.Sprintf("price oracle quoted an invalid price %v", price), nil)
	}
	return nil
}
