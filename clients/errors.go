package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// upstreamMessageLimit caps the upstream text attached to errors.
const upstreamMessageLimit = 512

// UpstreamError carries what the peer said when a call failed. Reason is set
// when a 2xx reply was rejected, and Message then holds the start of its body.
type UpstreamError struct {
	StatusCode int    `json:"statusCode,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message"`
}

type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// do sends req and returns the status code and body. Transport failures and
// unreadable bodies are returned as errors; HTTP status is left to the caller.
func do(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// upstreamMessage extracts a human readable message from an error response.
func upstreamMessage(status int, body []byte) UpstreamError {
	out := UpstreamError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Message != "":
			out.Message = eb.Message
		case len(eb.Error) > 0:
			var s string
			if json.Unmarshal(eb.Error, &s) == nil {
				out.Message = s
			} else {
				out.Message = string(eb.Error)
			}
		}
	}

	if out.Message == "" {
		out.Message = bodySnippet(body)
	}
	if out.Message == "" {
		out.Message = http.StatusText(status)
	}
	if len(out.Message) > upstreamMessageLimit {
		out.Message = out.Message[:upstreamMessageLimit]
	}
	return out
}

// bodySnippet returns the trimmed start of body, capped for error data.
func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > upstreamMessageLimit {
		s = s[:upstreamMessageLimit]
	}
	return s
}

// transportMessage describes a failed round trip.
func transportMessage(ctx context.Context, err error) UpstreamError {
	if ctx.Err() == context.DeadlineExceeded {
		return UpstreamError{Message: "request timed out"}
	}
	return UpstreamError{Message: err.Error()}
}
