package xmrcheckout

import (
	"net/http"
	"time"

	"github.com/vitwit/xmrcheckout/clients"
	"github.com/vitwit/xmrcheckout/logger"
	"github.com/vitwit/xmrcheckout/metrics"
	"github.com/vitwit/xmrcheckout/rates"
	"github.com/vitwit/xmrcheckout/utils"
)

type Option func(*Checkout)

func WithLogger(l logger.Logger) Option {
	return func(c *Checkout) {
		c.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Checkout) {
		c.metrics = r
	}
}

// WithOracle replaces the CoinGecko price oracle.
func WithOracle(o rates.PriceOracle) Option {
	return func(c *Checkout) {
		c.oracle = o
	}
}

// WithGateway replaces the HTTP gateway client.
func WithGateway(g clients.Gateway) Option {
	return func(c *Checkout) {
		c.gateway = g
	}
}

// WithHTTPClient sets the HTTP client used by the built-in oracle and
// gateway clients.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checkout) {
		c.httpClient = hc
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Checkout) {
		c.now = now
	}
}

// WithNetwork sets the Monero network payment addresses must belong to.
func WithNetwork(n utils.MoneroNetwork) Option {
	return func(c *Checkout) {
		c.network = n
	}
}
