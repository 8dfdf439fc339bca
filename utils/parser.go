package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vitwit/xmrcheckout/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct runs the struct-tag validation rules on v.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

// ValidateStructExcept validates v without the named fields, which may be
// nested ("Gateway", "Gateway.APIKey").
func ValidateStructExcept(v any, fields ...string) error {
	if len(fields) == 0 {
		return validate.Struct(v)
	}
	return validate.StructExcept(v, fields...)
}

// webhookWire mirrors types.WebhookPayload with the required numeric field as
// a pointer so a missing value can be told apart from zero.
type webhookWire struct {
	PaymentID       string          `json:"payment_id" validate:"required"`
	Status          string          `json:"status" validate:"required"`
	Confirmations   *int            `json:"confirmations" validate:"required,gte=0"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TransactionHash string          `json:"transaction_hash"`
	OrderID         string          `json:"order_id"`
}

// ParseWebhookPayload decodes and validates a gateway notification body.
func ParseWebhookPayload(data []byte) (*types.WebhookPayload, error) {
	var wire webhookWire

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&wire); err != nil {
		return nil, malformed("failed to parse webhook payload", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("webhook payload has trailing data after the JSON object", err)
	}

	if err := validate.Struct(&wire); err != nil {
		return nil, malformed("webhook payload validation failed", err)
	}

	if wire.PaidAmount.IsNegative() || wire.TotalAmount.IsNegative() {
		return nil, malformed("webhook payload has a negative amount", nil)
	}

	if wire.TransactionHash != "" {
		if err := ValidateTransactionHash(wire.TransactionHash); err != nil {
			return nil, malformed("webhook payload has an invalid transaction hash", err)
		}
	}

	return &types.WebhookPayload{
		PaymentID:       wire.PaymentID,
		Status:          wire.Status,
		Confirmations:   *wire.Confirmations,
		PaidAmount:      wire.PaidAmount,
		TotalAmount:     wire.TotalAmount,
		TransactionHash: wire.TransactionHash,
		OrderID:         wire.OrderID,
	}, nil
}

func malformed(msg string, err error) error {
	return types.NewError(types.ErrMalformedWebhookPayload, msg, err)
}

// LoadConfig reads a YAML config file. Environment variables from envFiles
// (default ".env", skipped when absent) are loaded first so that ${VAR}
// references in the file resolve against them.
func LoadConfig(path string, envFiles ...string) (*types.Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("cannot read config file %s", path), err)
	}

	return ParseConfig(data)
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return types.NewError(types.ErrConfigError, "failed to load .env", err)
		}
		return nil
	}

	if err := godotenv.Load(files...); err != nil {
		return types.NewError(types.ErrConfigError, "failed to load env files", err)
	}
	return nil
}

// ParseConfig parses YAML config data, expanding ${VAR} references, applying
// defaults and validating the result.
func ParseConfig(data []byte) (*types.Config, error) {
	var cfg types.Config

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, types.NewError(types.ErrConfigError, "cannot parse YAML config", err)
	}

	cfg.ApplyDefaults()

	if err := validate.Struct(&cfg); err != nil {
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("validation failed: %v", err), err)
	}

	return &cfg, nil
}

// Helper to parse time fields that might be in different formats.
// Integer strings are read as Unix seconds.
func ParseFlexibleTime(timeStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t, nil
		}
	}

	if secs, err := decimal.NewFromString(timeStr); err == nil && secs.IsInteger() && secs.IsPositive() {
		return time.Unix(secs.IntPart(), 0).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse time: %s", timeStr)
}

// FlexibleTime decodes a JSON timestamp given either as a string in one of
// the ParseFlexibleTime formats or as a Unix-seconds number.
type FlexibleTime struct {
	time.Time
}

func (f *FlexibleTime) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		f.Time = time.Time{}
		return nil
	}

	t, err := ParseFlexibleTime(s)
	if err != nil {
		return err
	}
	f.Time = t
	return nil
}
