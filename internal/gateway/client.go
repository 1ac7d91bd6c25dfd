// Package gateway talks to the external messaging gateway (WhatsApp bridge)
// that actually delivers outbound messages and reports session status.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"
)

// ErrRejected is wrapped when the gateway answers with an unaccepted status.
var ErrRejected = errors.New("gateway rejected request")

type Client struct {
	baseURL       string
	apiKey        string
	sendTimeout   time.Duration
	statusTimeout time.Duration
	http          *http.Client
	log           *logger.Logger
}

type sendRequest struct {
	Address string `json:"address"`
	Message string `json:"message"`
}

// Status is the gateway session state. It is informational and never fails.
type Status struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	Error     string `json:"error,omitempty"`
}

type statusResponse struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
}

func NewClient(cfg config.GatewayConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.GetGatewayURL(), "/"),
		apiKey:        cfg.GetGatewayAPIKey(),
		sendTimeout:   cfg.GetGatewaySendTimeout(),
		statusTimeout: cfg.GetGatewayStatusTimeout(),
		// Per-call deadlines come from the context; this is a backstop.
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log.WithComponent("gateway"),
	}
}

// Send asks the gateway to deliver message to address. Any transport error,
// timeout or answer other than 200 is returned as a GatewayUnavailable error; the
// caller must not record the message as sent in that case.
func (c *Client) Send(ctx context.Context, address, message string) error {
	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	body, err := json.Marshal(sendRequest{Address: address, Message: message})
	if err != nil {
		return fmt.Errorf("marshal gateway payload: %w", err)
	}

	start := time.Now()
	err = c.do(ctx, http.MethodPost, "/send", body, nil, onlyOK)
	metrics.ObserveGateway("send", time.Since(start))
	if err != nil {
		c.log.GatewayError("send", address, err)
		return apperr.GatewayUnavailable("message could not be delivered to the gateway", err).WithOp("gateway.Send")
	}

	c.log.Info("gateway accepted message", "address", address)
	return nil
}

// Status reports whether the gateway session is connected. Failures are
// folded into a disconnected status.
func (c *Client) Status(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	var resp statusResponse
	start := time.Now()
	err := c.do(ctx, http.MethodGet, "/status", nil, &resp, onlyOK)
	metrics.ObserveGateway("status", time.Since(start))
	if err != nil {
		c.log.Warn("gateway status unavailable", "error", err)
		return Status{Connected: false, Error: "gateway unreachable"}
	}

	addr := resp.Address
	if addr == "" {
		addr = resp.Phone
	}
	return Status{Connected: resp.Connected, Address: addr}
}

// Disconnect ends the gateway's messaging session.
func (c *Client) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	start := time.Now()
	err := c.do(ctx, http.MethodPost, "/disconnect", nil, nil, anySuccess)
	metrics.ObserveGateway("disconnect", time.Since(start))
	if err != nil {
		c.log.GatewayError("disconnect", "", err)
		return apperr.GatewayUnavailable("gateway disconnect failed", err).WithOp("gateway.Disconnect")
	}
	c.log.Info("gateway session disconnected")
	return nil
}

// onlyOK is the acceptance rule for sends: the gateway acknowledges a
// message with exactly 200, anything else counts as a failure.
func onlyOK(code int) bool { return code == http.StatusOK }

func anySuccess(code int) bool { return code >= 200 && code < 300 }

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any, accepted func(int) bool) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !accepted(resp.StatusCode) {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}

func formatAuthHeader(apiKey string) string {
	lower := strings.ToLower(apiKey)
	if strings.HasPrefix(lower, "basic ") || strings.HasPrefix(lower, "bearer ") {
		return apiKey
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey))
}
