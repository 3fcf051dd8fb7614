package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPTransport delivers messages through an HTTP SMS gateway. The gateway
// serializes its own calls and applies its own rate limits; callers pace
// requests and never dispatch in parallel.
type HTTPTransport struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// gatewayRequest is the request body for the gateway's send endpoint.
type gatewayRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// gatewayResponse is the gateway's accept/reject response.
type gatewayResponse struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// NewHTTPTransport creates a transport posting to the given gateway
// endpoint.
func NewHTTPTransport(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTPTransport{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Send posts one message to the gateway and interprets its accept/reject
// answer. Every failure is returned as a *Error with a human-readable
// description.
func (t *HTTPTransport) Send(ctx context.Context, message, destination string) error {
	body, err := json.Marshal(gatewayRequest{To: destination, Message: message})
	if err != nil {
		return &Error{Description: fmt.Sprintf("failed to encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{Description: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return &Error{Description: fmt.Sprintf("gateway unreachable: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Description: fmt.Sprintf("gateway returned status %d", resp.StatusCode)}
	}

	var gwResp gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gwResp); err != nil {
		return &Error{Description: fmt.Sprintf("unreadable gateway response: %v", err)}
	}

	if !gwResp.Accepted {
		reason := gwResp.Error
		if reason == "" {
			reason = "message rejected by gateway"
		}
		return &Error{Description: reason}
	}

	t.logger.Debug("message accepted by gateway", "destination", destination)
	return nil
}
