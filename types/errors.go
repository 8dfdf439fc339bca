package types

import "errors"

// Error is the typed error returned across package boundaries.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrRateUnavailable         = "RATE_UNAVAILABLE"
	ErrRateInvalid             = "RATE_INVALID"
	ErrGatewayUnavailable      = "GATEWAY_UNAVAILABLE"
	ErrMalformedWebhookPayload = "MALFORMED_WEBHOOK_PAYLOAD"
	ErrSignatureInvalid        = "SIGNATURE_INVALID"
	ErrInvalidAmount           = "INVALID_AMOUNT"
	ErrInvalidRequest          = "INVALID_REQUEST"
	ErrConfigError             = "CONFIG_ERROR"
)

// NewError builds an Error with the given code.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// IsCode reports whether err or anything it wraps is an *Error with code.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
