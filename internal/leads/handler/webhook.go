package handler

import (
	"crypto/subtle"
	"net/http"

	"leadflow_backend/internal/leads/messaging"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// HeaderWebhookSecret carries the shared secret configured on the gateway.
const HeaderWebhookSecret = "X-Webhook-Secret"

// WebhookHandler receives inbound messages from the gateway. Ingest runs to
// completion inside the request so failures are visible to the caller.
type WebhookHandler struct {
	pipeline *messaging.Pipeline
	secret   string
	val      *validator.Validator
	log      *logger.Logger
}

func NewWebhookHandler(pipeline *messaging.Pipeline, secret string, val *validator.Validator, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{pipeline: pipeline, secret: secret, val: val, log: log.WithComponent("webhook")}
}

// Receive acknowledges every message the gateway should not redeliver.
// Only transient failures (store or gateway down) answer 503 so the gateway
// retries; anything else is acknowledged with success=false.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.secret != "" {
		got := c.GetHeader(HeaderWebhookSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			httpkit.Error(c, http.StatusUnauthorized, "invalid webhook secret", nil)
			return
		}
	}

	var req transport.InboundWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	h.respond(c, req.Inbound())
}

// Simulate runs a fabricated inbound message through the real pipeline.
// It is only mounted outside production.
func (h *WebhookHandler) Simulate(c *gin.Context) {
	var req transport.SimulateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Describe(err))
		return
	}

	res, err := h.pipeline.Ingest(c.Request.Context(), transport.InboundMessage{
		RawAddress: req.Phone,
		Content:    req.Content,
		SenderName: req.Name,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ack(res))
}

func (h *WebhookHandler) respond(c *gin.Context, in transport.InboundMessage) {
	res, err := h.pipeline.Ingest(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		status := http.StatusOK
		if apperr.IsTransient(err) {
			status = http.StatusServiceUnavailable
		}
		message := "message could not be processed"
		if appErr, ok := apperr.As(err); ok {
			message = appErr.Message
		}
		httpkit.JSON(c, status, transport.WebhookAck{Success: false, Error: message})
		return
	}

	if res.Skipped != "" {
		h.log.Debug("inbound message skipped", "reason", res.Skipped, "messageId", in.MessageID)
	}
	httpkit.OK(c, ack(res))
}

func ack(res messaging.IngestResult) transport.WebhookAck {
	return transport.WebhookAck{
		Success:   true,
		LeadID:    res.Lead.ID,
		MessageID: res.Message.ID,
		Skipped:   res.Skipped,
	}
}
