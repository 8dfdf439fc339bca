package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vitwit/xmrcheckout/logger"
	"github.com/vitwit/xmrcheckout/metrics"
	"github.com/vitwit/xmrcheckout/settlement"
	"github.com/vitwit/xmrcheckout/types"
	"github.com/vitwit/xmrcheckout/utils"
)

const (
	gatewaySource   = "gateway"
	requestIDHeader = "X-Request-Id"
	defaultStatus   = "pending"
)

type createPaymentBody struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	CallbackURL string `json:"callback_url,omitempty"`
	SuccessURL  string `json:"success_url,omitempty"`
	CancelURL   string `json:"cancel_url,omitempty"`
}

type createPaymentResponse struct {
	ID             string              `json:"id" validate:"required"`
	PaymentAddress string              `json:"payment_address"`
	Total          decimal.NullDecimal `json:"total"`
	Currency       string              `json:"currency"`
	ExpirationTime utils.FlexibleTime  `json:"expiration_time"`
	Status         string              `json:"status"`
}

type paymentStatusResponse struct {
	ID              string          `json:"id"`
	Status          string          `json:"status" validate:"required"`
	Confirmations   *int            `json:"confirmations" validate:"omitempty,gte=0"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	TransactionHash string          `json:"transaction_hash"`
}

// GatewayClient opens and polls XMR payment requests on the payment gateway.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	network    utils.MoneroNetwork
	now        func() time.Time
	requestID  func() string
	logger     logger.Logger
	metrics    metrics.Recorder
}

type GatewayOption func(*GatewayClient)

func WithGatewayHTTPClient(c *http.Client) GatewayOption {
	return func(g *GatewayClient) {
		g.httpClient = c
	}
}

func WithGatewayLogger(l logger.Logger) GatewayOption {
	return func(g *GatewayClient) {
		g.logger = logger.OrNoop(l)
	}
}

func WithGatewayMetrics(r metrics.Recorder) GatewayOption {
	return func(g *GatewayClient) {
		g.metrics = metrics.OrNoop(r)
	}
}

// WithMoneroNetwork restricts accepted payment addresses to one network.
func WithMoneroNetwork(n utils.MoneroNetwork) GatewayOption {
	return func(g *GatewayClient) {
		g.network = n
	}
}

func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *GatewayClient) {
		g.now = now
	}
}

func WithRequestIDFunc(f func() string) GatewayOption {
	return func(g *GatewayClient) {
		g.requestID = f
	}
}

// NewGatewayClient validates cfg and creates a gateway client.
func NewGatewayClient(cfg types.GatewayConfig, opts ...GatewayOption) (*GatewayClient, error) {
	if err := utils.ValidateStruct(&cfg); err != nil {
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("invalid gateway config: %v", err), err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultGatewayTimeout
	}

	g := &GatewayClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
		timeout:    timeout,
		network:    utils.MoneroMainnet,
		now:        time.Now,
		requestID:  uuid.NewString,
		logger:     logger.NoopLogger{},
		metrics:    metrics.NoopRecorder{},
	}

	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// CreatePayment opens a payment request for params.Amount.
func (g *GatewayClient) CreatePayment(ctx context.Context, params types.CreatePaymentParams) (*types.PaymentRequest, error) {
	if err := utils.ValidateStruct(&params); err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("invalid payment params: %v", err), err)
	}
	if !params.Amount.IsPositive() {
		return nil, types.NewError(types.ErrInvalidAmount, fmt.Sprintf("payment amount must be positive, got %s", params.Amount), nil)
	}
	if err := utils.ValidateXMRPrecision(params.Amount, types.XMRDecimals); err != nil {
		return nil, types.NewError(types.ErrInvalidAmount, "payment amount is finer than one piconero", err)
	}

	payload, err := json.Marshal(createPaymentBody{
		Amount:      params.Amount.String(),
		Currency:    params.Currency,
		OrderID:     params.OrderID,
		CallbackURL: params.CallbackURL,
		SuccessURL:  params.SuccessURL,
		CancelURL:   params.CancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment request: %w", err)
	}

	createdAt := g.now()
	status, body, err := g.call(ctx, metrics.GatewayCreate, http.MethodPost, "/payments", payload)
	if err != nil {
		return nil, err
	}
	invalid := func(reason string, err error) error {
		return g.invalidResponse(metrics.GatewayCreate, reason, status, body, err)
	}

	var resp createPaymentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, invalid("response is not valid JSON", err)
	}

	if resp.PaymentAddress == "" {
		return nil, invalid("response is missing payment_address", nil)
	}
	if err := utils.ValidateStruct(&resp); err != nil {
		return nil, invalid("response validation failed", err)
	}
	if err := utils.ValidateMoneroAddress(resp.PaymentAddress, g.network); err != nil {
		return nil, invalid("invalid payment address", err)
	}

	out := &types.PaymentRequest{
		ID:             resp.ID,
		OrderID:        params.OrderID,
		Address:        resp.PaymentAddress,
		Amount:         params.Amount,
		Currency:       params.Currency,
		ExpirationTime: resp.ExpirationTime.Time,
		Status:         resp.Status,
	}
	if resp.Total.Valid {
		if resp.Total.Decimal.IsNegative() {
			return nil, invalid("negative total", nil)
		}
		if err := utils.ValidateXMRPrecision(resp.Total.Decimal, types.XMRDecimals); err != nil {
			return nil, invalid("total is finer than one piconero", err)
		}
		out.Amount = resp.Total.Decimal
	}
	if resp.Currency != "" {
		out.Currency = resp.Currency
	}
	if out.ExpirationTime.IsZero() {
		out.ExpirationTime = settlement.ExpirationTime(createdAt)
	}
	if out.Status == "" {
		out.Status = defaultStatus
	}

	g.logger.Info("payment request created", map[string]any{
		"payment_id": out.ID,
		"order_id":   out.OrderID,
		"amount":     out.Amount.String(),
		"currency":   out.Currency,
		"expires_at": out.ExpirationTime,
	})

	return out, nil
}

// GetPaymentStatus polls the gateway for a payment's current state.
func (g *GatewayClient) GetPaymentStatus(ctx context.Context, paymentID string) (*types.GatewayPaymentStatus, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "payment id is required", nil)
	}

	status, body, err := g.call(ctx, metrics.GatewayStatus, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, err
	}
	invalid := func(reason string, err error) error {
		return g.invalidResponse(metrics.GatewayStatus, reason, status, body, err)
	}

	var resp paymentStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, invalid("response is not valid JSON", err)
	}
	if err := utils.ValidateStruct(&resp); err != nil {
		return nil, invalid("response validation failed", err)
	}
	if resp.PaidAmount.IsNegative() {
		return nil, invalid("negative paid_amount", nil)
	}

	out := &types.GatewayPaymentStatus{
		ID:              resp.ID,
		Status:          resp.Status,
		PaidAmount:      resp.PaidAmount,
		TransactionHash: resp.TransactionHash,
	}
	if out.ID == "" {
		out.ID = paymentID
	}
	if resp.Confirmations != nil {
		out.Confirmations = *resp.Confirmations
	}
	return out, nil
}

// Close releases idle connections.
func (g *GatewayClient) Close() {
	g.httpClient.CloseIdleConnections()
}

// call performs one authenticated round trip bounded by the client timeout
// and returns the status and body of a 2xx response.
func (g *GatewayClient) call(ctx context.Context, op, method, path string, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, types.NewError(types.ErrGatewayUnavailable, "failed to build gateway request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	requestID := g.requestID()
	req.Header.Set(requestIDHeader, requestID)

	labels := map[string]string{"source": gatewaySource}
	g.metrics.IncCounter(metrics.GatewayRequest, labels)

	start := time.Now()
	status, body, err := do(g.httpClient, req)
	g.metrics.ObserveLatency(op, time.Since(start), labels)

	if err != nil {
		up := transportMessage(ctx, err)
		g.metrics.IncCounter(metrics.GatewayError, labels)
		g.logger.Error("gateway request failed", map[string]any{
			"operation":  op,
			"request_id": requestID,
			"error":      err,
		})
		return 0, nil, &types.Error{
			Code:    types.ErrGatewayUnavailable,
			Message: fmt.Sprintf("%s: gateway unreachable: %s", op, up.Message),
			Data:    up,
			Err:     err,
		}
	}

	if !isSuccess(status) {
		up := upstreamMessage(status, body)
		g.metrics.IncCounter(metrics.GatewayError, labels)
		g.logger.Error("gateway returned an error", map[string]any{
			"operation":  op,
			"request_id": requestID,
			"status":     status,
			"message":    up.Message,
		})
		return 0, nil, &types.Error{
			Code:    types.ErrGatewayUnavailable,
			Message: fmt.Sprintf("%s: gateway returned status %d: %s", op, status, up.Message),
			Data:    up,
		}
	}

	return status, body, nil
}

// invalidResponse reports a 2xx reply that cannot be used. It carries the
// same code as an unreachable gateway, with the reason and the start of the
// body in Data.
func (g *GatewayClient) invalidResponse(op, reason string, status int, body []byte, err error) error {
	up := UpstreamError{
		StatusCode: status,
		Reason:     reason,
		Message:    bodySnippet(body),
	}

	g.metrics.IncCounter(metrics.GatewayError, map[string]string{"source": gatewaySource})
	g.logger.Error("gateway returned an unusable response", map[string]any{
		"operation": op,
		"reason":    reason,
		"body":      up.Message,
		"error":     err,
	})

	return &types.Error{
		Code:    types.ErrGatewayUnavailable,
		Message: fmt.Sprintf("%s: invalid gateway response: %s", op, reason),
		Data:    up,
		Err:     err,
	}
}
