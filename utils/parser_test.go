package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/xmrcheckout/types"
)

const txHash = "beb76a82ea17400cd6d7f595f70e1667d2018ed8f5a78d1ce07484222618c3cd"

func TestParseWebhookPayload(t *testing.T) {
	body := `{
		"payment_id": "pay_123",
		"status": "paid",
		"confirmations": 4,
		"paid_amount": "0.620232",
		"total_amount": 0.620232,
		"transaction_hash": "` + txHash + `",
		"order_id": "order-9",
		"extra": true
	}`

	p, err := ParseWebhookPayload([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "pay_123", p.PaymentID)
	assert.Equal(t, "paid", p.Status)
	assert.Equal(t, 4, p.Confirmations)
	assert.Equal(t, "0.620232", p.PaidAmount.String())
	assert.True(t, p.PaidAmount.Equal(p.TotalAmount))
	assert.Equal(t, txHash, p.TransactionHash)
	assert.Equal(t, "order-9", p.OrderID)
}

func TestParseWebhookPayloadZeroConfirmations(t *testing.T) {
	p, err := ParseWebhookPayload([]byte(`{"payment_id":"p","status":"underpaid","confirmations":0}`))
	require.NoError(t, err)
	assert.Equal(t, 0, p.Confirmations)
}

func TestParseWebhookPayloadMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `status=paid`},
		{"empty", ``},
		{"missing payment id", `{"status":"paid","confirmations":1}`},
		{"missing status", `{"payment_id":"p","confirmations":1}`},
		{"missing confirmations", `{"payment_id":"p","status":"paid"}`},
		{"negative confirmations", `{"payment_id":"p","status":"paid","confirmations":-1}`},
		{"confirmations as string", `{"payment_id":"p","status":"paid","confirmations":"3"}`},
		{"negative amount", `{"payment_id":"p","status":"paid","confirmations":1,"paid_amount":"-1"}`},
		{"bad tx hash", `{"payment_id":"p","status":"paid","confirmations":1,"transaction_hash":"xyz"}`},
		{"trailing garbage", `{"payment_id":"p","status":"paid","confirmations":1}garbage`},
		{"trailing brace", `{"payment_id":"p","status":"paid","confirmations":1}}`},
		{"second object", `{"payment_id":"p","status":"paid","confirmations":1}{"status":"expired"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWebhookPayload([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrMalformedWebhookPayload), "got %v", err)
		})
	}
}

func TestParseWebhookPayloadAllowsTrailingWhitespace(t *testing.T) {
	p, err := ParseWebhookPayload([]byte("{\"payment_id\":\"p\",\"status\":\"paid\",\"confirmations\":1}\r\n "))
	require.NoError(t, err)
	assert.Equal(t, "paid", p.Status)
}

const sampleConfig = `
log_level: debug
oracle:
  base_url: https://api.coingecko.com/api/v3
  timeout: 3s
  requests_per_minute: 30
gateway:
  base_url: https://gateway.example.com/api
  api_key: ${XMRCHECKOUT_TEST_GATEWAY_KEY}
  callback_url: https://shop.example.com/webhooks/xmr
webhook_secret: ${XMRCHECKOUT_TEST_WEBHOOK_SECRET}
rate_ttl: 2m
`

func TestParseConfig(t *testing.T) {
	t.Setenv("XMRCHECKOUT_TEST_GATEWAY_KEY", "gw-key")
	t.Setenv("XMRCHECKOUT_TEST_WEBHOOK_SECRET", "whsec")

	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 30, cfg.Oracle.RequestsPerMinute)
	assert.Equal(t, "gw-key", cfg.Gateway.APIKey)
	assert.Equal(t, "whsec", cfg.WebhookSecret)
	assert.Equal(t, 2*time.Minute, cfg.RateTTL)

	// defaults
	assert.Equal(t, types.StaleFallbackLimit, cfg.StaleFallbackLimit)
	assert.Equal(t, types.DefaultGatewayTimeout, cfg.Gateway.Timeout)
}

func TestParseConfigMissingSecret(t *testing.T) {
	t.Setenv("XMRCHECKOUT_TEST_GATEWAY_KEY", "gw-key")
	t.Setenv("XMRCHECKOUT_TEST_WEBHOOK_SECRET", "")

	_, err := ParseConfig([]byte(sampleConfig))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfigError))
	assert.Contains(t, err.Error(), "WebhookSecret")
}

func TestParseConfigInvalidYAML(t *testing.T) {
	_, err := ParseConfig([]byte("gateway: [unclosed"))
	assert.True(t, types.IsCode(err, types.ErrConfigError))
}

func TestLoadConfigWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	cfgPath := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(envPath, []byte("XMRCHECKOUT_TEST_GATEWAY_KEY=from-env-file\nXMRCHECKOUT_TEST_WEBHOOK_SECRET=s3cret\n"), 0o600))
	require.NoError(t, os.WriteFile(cfgPath, []byte(sampleConfig), 0o600))

	// godotenv does not override variables that are already set.
	os.Unsetenv("XMRCHECKOUT_TEST_GATEWAY_KEY")
	os.Unsetenv("XMRCHECKOUT_TEST_WEBHOOK_SECRET")
	t.Cleanup(func() {
		os.Unsetenv("XMRCHECKOUT_TEST_GATEWAY_KEY")
		os.Unsetenv("XMRCHECKOUT_TEST_WEBHOOK_SECRET")
	})

	cfg, err := LoadConfig(cfgPath, envPath)
	require.NoError(t, err)
	assert.Equal(t, "from-env-file", cfg.Gateway.APIKey)
	assert.Equal(t, "s3cret", cfg.WebhookSecret)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, types.IsCode(err, types.ErrConfigError))
}

func TestFlexibleTime(t *testing.T) {
	var v struct {
		A FlexibleTime `json:"a"`
		B FlexibleTime `json:"b"`
		C FlexibleTime `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a":"2026-10-18T10:00:00Z","b":1792317600,"c":null}`), &v)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC), v.A.UTC())
	assert.Equal(t, int64(1792317600), v.B.Unix())
	assert.True(t, v.C.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"a":"next tuesday"}`), &v))
}
