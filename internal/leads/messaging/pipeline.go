// Package messaging moves messages between the gateway and a lead's
// conversation. Inbound and outbound traffic share one persistence path:
// the message and its timeline entry commit together, then a realtime
// event goes out.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/identity"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/timeline"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/realtime"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/dedupe"
	"leadflow_backend/platform/keylock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"
	"leadflow_backend/platform/phone"
	"leadflow_backend/platform/sanitize"
)

// MaxContentRunes bounds message length in both directions.
const MaxContentRunes = 4096

// defaultRecordTimeout bounds recording a message the gateway already
// accepted when no store timeout is configured.
const defaultRecordTimeout = 10 * time.Second

// Skip reasons reported for inbound messages that are acknowledged but not
// recorded.
const (
	SkipFromMe    = "from_me"
	SkipDuplicate = "duplicate"
)

// Gateway delivers outbound messages.
type Gateway interface {
	Send(ctx context.Context, address, message string) error
}

type Deps struct {
	Repo     repository.Store
	Resolver *identity.Resolver
	Gateway  Gateway
	Locks    *keylock.Map[int64]
	Dedupe   dedupe.Store
	Pub      realtime.Publisher
	Log      *logger.Logger

	// StoreTimeout bounds the write that records an accepted send.
	StoreTimeout time.Duration
}

type Pipeline struct {
	repo     repository.Store
	resolver *identity.Resolver
	gw       Gateway
	locks    *keylock.Map[int64]
	dedupe   dedupe.Store
	pub      realtime.Publisher
	log      *logger.Logger

	recordTimeout time.Duration
}

func New(d Deps) *Pipeline {
	dd := d.Dedupe
	if dd == nil {
		dd = dedupe.Noop{}
	}
	recordTimeout := d.StoreTimeout
	if recordTimeout <= 0 {
		recordTimeout = defaultRecordTimeout
	}
	return &Pipeline{
		repo:     d.Repo,
		resolver: d.Resolver,
		gw:       d.Gateway,
		locks:    d.Locks,
		dedupe:   dd,
		pub:      d.Pub,
		log:      d.Log.WithComponent("messaging"),

		recordTimeout: recordTimeout,
	}
}

// cleanContent trims the message and drops bytes no store can keep: NUL and
// invalid UTF-8. Empty or oversized content is a validation error.
func cleanContent(op, raw string) (string, error) {
	content := strings.ToValidUTF8(raw, "\uFFFD")
	content = strings.TrimSpace(strings.ReplaceAll(content, "\x00", ""))
	if content == "" {
		return "", apperr.Validation("message content is required").WithOp(op)
	}
	if utf8.RuneCountInString(content) > MaxContentRunes {
		return "", apperr.Validation(fmt.Sprintf("message exceeds %d characters", MaxContentRunes)).WithOp(op)
	}
	return content, nil
}

// IngestResult describes what happened to one inbound message. Skipped is
// set when the message was acknowledged without being recorded.
type IngestResult struct {
	Lead        repository.Lead
	Message     repository.Message
	LeadCreated bool
	Skipped     string
}

// Ingest records an inbound message on its lead, creating the lead on first
// contact. Echoes of our own sends and repeated gateway message ids are
// skipped. Failures other than group traffic are reported to the managers
// room before being returned.
func (p *Pipeline) Ingest(ctx context.Context, in transport.InboundMessage) (IngestResult, error) {
	if in.FromMe {
		metrics.RecordSkipped(SkipFromMe)
		return IngestResult{Skipped: SkipFromMe}, nil
	}

	res, err := p.ingest(ctx, in)
	if err != nil && !errors.Is(err, phone.ErrGroupAddress) {
		p.reportFailure(in, err)
	}
	return res, err
}

func (p *Pipeline) ingest(ctx context.Context, in transport.InboundMessage) (IngestResult, error) {
	address, err := phone.NormalizeAddress(in.RawAddress)
	if err != nil {
		if errors.Is(err, phone.ErrGroupAddress) {
			metrics.RecordSkipped("group")
		}
		return IngestResult{}, apperr.Wrap(apperr.KindValidation, err.Error(), err).WithOp("messaging.Ingest")
	}

	content, err := cleanContent("messaging.Ingest", in.Content)
	if err != nil {
		return IngestResult{}, err
	}

	if in.MessageID != "" {
		dup, err := p.dedupe.MarkSeen(ctx, in.MessageID)
		if err != nil {
			p.log.Warn("inbound dedupe unavailable", "messageId", in.MessageID, "error", err)
		} else if dup {
			metrics.RecordSkipped(SkipDuplicate)
			return IngestResult{Skipped: SkipDuplicate}, nil
		}
	}

	res, err := p.record(ctx, address, content, in.SenderName)
	if err != nil && in.MessageID != "" {
		// Let the gateway's redelivery through.
		if ferr := p.dedupe.Forget(context.WithoutCancel(ctx), in.MessageID); ferr != nil {
			p.log.Warn("inbound dedupe forget failed", "messageId", in.MessageID, "error", ferr)
		}
	}
	return res, err
}

func (p *Pipeline) record(ctx context.Context, address, content, senderName string) (IngestResult, error) {
	const op = "messaging.Ingest"

	resolved, err := p.resolver.Resolve(ctx, address, senderName)
	if err != nil {
		return IngestResult{}, err
	}
	lead := resolved.Lead

	sender := sanitize.DisplayName(senderName, identity.MaxDisplayNameRunes)
	if sender == "" {
		sender = lead.DisplayName
	}

	unlock, err := p.locks.Lock(ctx, lead.ID)
	if err != nil {
		return IngestResult{}, repository.AppError(op, err)
	}
	defer unlock()

	var msg repository.Message
	err = p.repo.Atomic(ctx, func(tx repository.Store) error {
		var err error
		msg, err = tx.InsertMessage(ctx, repository.InsertMessageParams{
			LeadID:     lead.ID,
			Direction:  domain.DirectionInbound,
			SenderName: sender,
			Content:    content,
		})
		if err != nil {
			return err
		}
		if err := tx.TouchLead(ctx, lead.ID); err != nil {
			return err
		}
		_, err = timeline.Record(ctx, tx, lead.ID, domain.KindMessageReceived, sender, content)
		return err
	})
	if err != nil {
		return IngestResult{}, repository.AppError(op, err)
	}

	metrics.RecordIngested()
	p.pub.Publish(realtime.NewMessage{
		LeadID:    lead.ID,
		MessageID: msg.ID,
		Address:   lead.ChannelAddress,
		Name:      sender,
		Content:   msg.Content,
		Timestamp: msg.CreatedAt,
		Direction: string(domain.DirectionInbound),
		LeadIsNew: resolved.Created,
	})

	return IngestResult{Lead: lead, Message: msg, LeadCreated: resolved.Created}, nil
}

func (p *Pipeline) reportFailure(in transport.InboundMessage, err error) {
	p.log.IngestFailure(in.RawAddress, err)
	metrics.RecordIngestFailure()
	p.pub.Publish(realtime.IngestFailed{
		Address:   in.RawAddress,
		MessageID: in.MessageID,
		Error:     err.Error(),
		At:        time.Now().UTC(),
	})
}

// Send delivers content to the lead through the gateway and records it only
// once the gateway accepted it. A gateway failure or timeout leaves the
// conversation untouched and is never retried here.
func (p *Pipeline) Send(ctx context.Context, leadID int64, content string, actor domain.Actor) (repository.Message, error) {
	const op = "messaging.Send"

	content, err := cleanContent(op, content)
	if err != nil {
		return repository.Message{}, err
	}

	unlock, err := p.locks.Lock(ctx, leadID)
	if err != nil {
		return repository.Message{}, repository.AppError(op, err)
	}
	defer unlock()

	lead, err := p.repo.GetLead(ctx, leadID)
	if err != nil {
		return repository.Message{}, repository.AppError(op, err)
	}

	address, err := phone.NormalizeAddress(lead.ChannelAddress)
	if err != nil {
		return repository.Message{}, apperr.Wrap(apperr.KindValidation, err.Error(), err).WithOp(op)
	}

	if err := p.gw.Send(ctx, address, content); err != nil {
		metrics.RecordSend("failed")
		if _, ok := apperr.As(err); !ok {
			err = apperr.GatewayUnavailable("message could not be delivered to the gateway", err)
		}
		return repository.Message{}, err
	}

	// The customer has the message now. Record it even if the caller went away.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.recordTimeout)
	defer cancel()

	sender := actor.DisplayName()
	var msg repository.Message
	err = p.repo.Atomic(rctx, func(tx repository.Store) error {
		if _, err := tx.GetLead(rctx, leadID); err != nil {
			return err
		}
		var err error
		msg, err = tx.InsertMessage(rctx, repository.InsertMessageParams{
			LeadID:     leadID,
			Direction:  domain.DirectionOutbound,
			SenderName: sender,
			Content:    content,
		})
		if err != nil {
			return err
		}
		if err := tx.TouchLead(rctx, leadID); err != nil {
			return err
		}
		_, err = timeline.Record(rctx, tx, leadID, domain.KindMessageSent, sender, content)
		return err
	})
	if err != nil {
		metrics.RecordSend("unrecorded")
		p.log.Error("message delivered but not recorded", "leadId", leadID, "error", err)
		return repository.Message{}, repository.AppError(op, err)
	}

	metrics.RecordSend("sent")
	p.pub.Publish(realtime.MessageSent{
		LeadID:    leadID,
		MessageID: msg.ID,
		Address:   address,
		Content:   msg.Content,
		Timestamp: msg.CreatedAt,
		AgentID:   actor.ID,
		AgentName: sender,
	})
	return msg, nil
}

// SendToAddress starts or continues a conversation by address, creating the
// lead when the address has never been seen. The lead stays even when the
// gateway then refuses the message.
func (p *Pipeline) SendToAddress(ctx context.Context, address, displayName, content string, actor domain.Actor) (repository.Message, error) {
	resolved, err := p.resolver.Resolve(ctx, address, displayName)
	if err != nil {
		return repository.Message{}, err
	}
	return p.Send(ctx, resolved.Lead.ID, content, actor)
}

// ListMessages returns the conversation oldest first.
func (p *Pipeline) ListMessages(ctx context.Context, leadID int64) (transport.MessageListResponse, error) {
	if _, err := p.repo.GetLead(ctx, leadID); err != nil {
		return transport.MessageListResponse{}, repository.AppError("messaging.ListMessages", err)
	}

	msgs, err := p.repo.ListMessages(ctx, leadID)
	if err != nil {
		return transport.MessageListResponse{}, repository.AppError("messaging.ListMessages", err)
	}

	items := make([]transport.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, ToMessageResponse(m))
	}
	return transport.MessageListResponse{Items: items}, nil
}

func ToMessageResponse(m repository.Message) transport.MessageResponse {
	return transport.MessageResponse{
		ID:         m.ID,
		LeadID:     m.LeadID,
		Direction:  string(m.Direction),
		SenderName: m.SenderName,
		Content:    m.Content,
		Timestamp:  m.CreatedAt,
	}
}
