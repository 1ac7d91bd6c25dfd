package transport

import "time"

// Request DTOs
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new in_progress won lost"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,notblank,max=4096"`
}

// StartConversationRequest sends to an address that may not be a lead yet.
type StartConversationRequest struct {
	Address string `json:"address" validate:"required,channel_address"`
	Name    string `json:"name" validate:"max=100"`
	Content string `json:"content" validate:"required,notblank,max=4096"`
}

// InboundWebhookRequest accepts both the gateway payload
// ({from, body, notifyName, fromMe}) and the bridge payload
// ({phone, content, name}).
type InboundWebhookRequest struct {
	From       string `json:"from"`
	Body       string `json:"body"`
	NotifyName string `json:"notifyName"`
	FromMe     bool   `json:"fromMe"`
	MessageID  string `json:"messageId"`

	Phone   string `json:"phone"`
	Content string `json:"content"`
	Name    string `json:"name"`
}

// InboundMessage is the webhook payload after shape reconciliation.
type InboundMessage struct {
	RawAddress string
	Content    string
	SenderName string
	FromMe     bool
	MessageID  string
}

// Inbound picks whichever payload shape the caller used. Gateway fields win
// when both are present.
func (r InboundWebhookRequest) Inbound() InboundMessage {
	msg := InboundMessage{
		RawAddress: r.From,
		Content:    r.Body,
		SenderName: r.NotifyName,
		FromMe:     r.FromMe,
		MessageID:  r.MessageID,
	}
	if msg.RawAddress == "" {
		msg.RawAddress = r.Phone
	}
	if msg.Content == "" {
		msg.Content = r.Content
	}
	if msg.SenderName == "" {
		msg.SenderName = r.Name
	}
	return msg
}

type SimulateMessageRequest struct {
	Phone   string `json:"phone" validate:"required,channel_address"`
	Content string `json:"content" validate:"required,notblank,max=4096"`
	Name    string `json:"name" validate:"max=100"`
}

// Response DTOs
type LeadResponse struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	ChannelAddress    string    `json:"channelAddress"`
	Status            string    `json:"status"`
	AssignedAgentID   *int64    `json:"assignedAgentId"`
	AssignedAgentName *string   `json:"assignedAgentName"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

type MessageResponse struct {
	ID         int64     `json:"id"`
	LeadID     int64     `json:"leadId"`
	Direction  string    `json:"direction"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

type MessageListResponse struct {
	Items []MessageResponse `json:"items"`
}

type SendMessageResponse struct {
	Success bool             `json:"success"`
	Message *MessageResponse `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type TimelineEventResponse struct {
	ID        int64     `json:"id"`
	LeadID    int64     `json:"leadId"`
	Kind      string    `json:"kind"`
	ActorName string    `json:"actorName"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
}

type TimelineResponse struct {
	Items []TimelineEventResponse `json:"items"`
}

type FunnelCounts struct {
	New        int `json:"new"`
	InProgress int `json:"in_progress"`
	Won        int `json:"won"`
	Lost       int `json:"lost"`
}

type MetricsResponse struct {
	TotalLeads int          `json:"totalLeads"`
	Won        int          `json:"won"`
	Lost       int          `json:"lost"`
	Active     int          `json:"active"`
	Funnel     FunnelCounts `json:"funnel"`
}

// WebhookAck is always returned with 200 unless the failure is transient,
// so the gateway does not redeliver messages that can never succeed.
type WebhookAck struct {
	Success   bool   `json:"success"`
	LeadID    int64  `json:"leadId,omitempty"`
	MessageID int64  `json:"messageId,omitempty"`
	Skipped   string `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}
