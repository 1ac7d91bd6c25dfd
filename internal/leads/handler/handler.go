package handler

import (
	"net/http"
	"strconv"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/management"
	"leadflow_backend/internal/leads/messaging"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/timeline"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	mgmt     *management.Service
	pipeline *messaging.Pipeline
	timeline *timeline.Service
	notes    *NotesHandler
	val      *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(mgmt *management.Service, pipeline *messaging.Pipeline, tl *timeline.Service, notes *NotesHandler, val *validator.Validator) *Handler {
	return &Handler{mgmt: mgmt, pipeline: pipeline, timeline: tl, notes: notes, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/queue", h.Queue)
	rg.GET("/metrics", h.Metrics)
	rg.POST("/outbound", h.StartConversation)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/assign", h.Assign)
	rg.PUT("/:id/status", h.UpdateStatus)
	rg.GET("/:id/messages", h.ListMessages)
	rg.POST("/:id/messages", h.SendMessage)
	rg.GET("/:id/timeline", h.Timeline)
	rg.GET("/:id/notes", h.notes.ListNotes)
	rg.POST("/:id/notes", h.notes.AddNote)
}

// actorFrom turns the authenticated identity into the explicit actor value
// services expect. It aborts with 401 when no identity is present.
func actorFrom(c *gin.Context) (domain.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return domain.Actor{}, false
	}

	role := domain.RoleSalesperson
	switch {
	case id.HasRole(httpkit.RoleAdmin):
		role = domain.RoleAdmin
	case id.HasRole(httpkit.RoleManager):
		role = domain.RoleManager
	}
	return domain.Actor{ID: id.UserID(), Name: id.Name(), Role: role}, true
}

func parseLeadID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	leads, err := h.mgmt.List(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, leads)
}

func (h *Handler) Queue(c *gin.Context) {
	leads, err := h.mgmt.Queue(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, leads)
}

func (h *Handler) Metrics(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	metrics, err := h.mgmt.Metrics(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, metrics)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.mgmt.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// Assign makes the caller the lead's agent.
func (h *Handler) Assign(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	lead, err := h.mgmt.Assign(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Describe(err))
		return
	}

	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	lead, err := h.mgmt.SetStatus(c.Request.Context(), id, domain.Status(req.Status), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) ListMessages(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	msgs, err := h.pipeline.ListMessages(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, msgs)
}

// SendMessage answers 502 with success=false when the gateway did not accept
// the message, so the agent can retry.
func (h *Handler) SendMessage(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Describe(err))
		return
	}

	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	msg, err := h.pipeline.Send(c.Request.Context(), id, req.Content, actor)
	h.respondSend(c, msg, err)
}

func (h *Handler) respondSend(c *gin.Context, msg repository.Message, err error) {
	if apperr.Is(err, apperr.KindGatewayUnavailable) {
		_ = c.Error(err)
		httpkit.JSON(c, http.StatusBadGateway, transport.SendMessageResponse{Success: false, Error: "message could not be delivered"})
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	resp := messaging.ToMessageResponse(msg)
	httpkit.OK(c, transport.SendMessageResponse{Success: true, Message: &resp})
}

// StartConversation messages an address directly. An unseen address becomes
// a new lead first.
func (h *Handler) StartConversation(c *gin.Context) {
	var req transport.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Describe(err))
		return
	}

	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	msg, err := h.pipeline.SendToAddress(c.Request.Context(), req.Address, req.Name, req.Content, actor)
	h.respondSend(c, msg, err)
}

func (h *Handler) Timeline(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	events, err := h.timeline.List(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, events)
}
