// Package webhook implements the WebhookIngestor component from
// spec.md §4.6, grounded on internal/controller/campaign_controller.go's
// parse-then-delegate-to-service shape (the controller layer this
// platform doesn't need an HTTP-framework-coupled version of, since
// httpapi calls straight into this package).
package webhook

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/relaytide/campaign-platform/internal/clock"
	"github.com/relaytide/campaign-platform/internal/consent"
	"github.com/relaytide/campaign-platform/internal/model"
	"github.com/relaytide/campaign-platform/internal/phone"
	"github.com/relaytide/campaign-platform/internal/store"
)

// Store is the subset of the Store contract the ingestor depends on.
type Store interface {
	InsertRawInbound(e model.InboundEvent) (string, error)
	InsertRawReceipt(r model.DeliveryReceipt) (string, error)
	GetRecipient(e164 string) (*model.Recipient, error)
	UpsertRecipient(e164 string, attrs map[string]interface{}, consentState model.ConsentState) error
	FindMessageByProviderSid(sid string) (*model.Message, error)
	TransitionMessage(messageID string, from, to model.MessageStatus, fields store.TransitionFields) (bool, error)
}

// statusTransitions implements the table in spec.md §4.7: row = current
// status, column = callback kind, value = next status (empty = no-op).
var statusTransitions = map[model.MessageStatus]map[string]model.MessageStatus{
	model.MessageQueued: {
		"sent": model.MessageSent, "delivered": model.MessageDelivered,
		"read": model.MessageRead, "failed": model.MessageFailed, "undelivered": model.MessageUndelivered,
	},
	model.MessageSending: {
		"sent": model.MessageSent, "delivered": model.MessageDelivered,
		"read": model.MessageRead, "failed": model.MessageFailed, "undelivered": model.MessageUndelivered,
	},
	model.MessageSent: {
		"delivered": model.MessageDelivered, "read": model.MessageRead,
		"failed": model.MessageFailed, "undelivered": model.MessageUndelivered,
	},
	model.MessageDelivered: {
		"read": model.MessageRead,
	},
}

// InboundPayload is the provider-agnostic shape extracted from a raw
// inbound webhook body (Twilio-style form fields).
type InboundPayload struct {
	From              string
	Body              string
	ProviderMessageID string
}

// StatusPayload is the provider-agnostic shape extracted from a raw
// status-callback webhook body.
type StatusPayload struct {
	ProviderSid   string
	MessageStatus string
	ErrorCode     *int
}

// Ingestor is the production WebhookIngestor.
type Ingestor struct {
	Store          Store
	ConsentService *consent.Service
	Clock          clock.Clock
	DefaultRegion  string
}

// New constructs an Ingestor.
func New(store Store, consentService *consent.Service, clk clock.Clock, defaultRegion string) *Ingestor {
	return &Ingestor{Store: store, ConsentService: consentService, Clock: clk, DefaultRegion: defaultRegion}
}

// Inbound handles an inbound message webhook. Malformed extraction never
// fails the request; the raw row is retained regardless.
func (in *Ingestor) Inbound(rawBody []byte, payload InboundPayload) error {
	now := in.Clock.Now()

	channel, phoneComponent := phone.ExtractChannelAndPhone(payload.From)
	e164, parseErr := phone.NormalizeE164(phoneComponent, in.DefaultRegion)

	normalizedBody := normalizeBody(payload.Body)

	event := model.InboundEvent{
		RawPayload:        json.RawMessage(rawBody),
		FromE164:          e164,
		ChannelType:       channel,
		NormalizedBody:    normalizedBody,
		ProviderMessageID: payload.ProviderMessageID,
		ReceivedAt:        now,
	}
	if _, err := in.Store.InsertRawInbound(event); err != nil {
		return err
	}

	if parseErr != nil {
		log.Printf("⚠️ webhook: could not normalize inbound From %q: %v", payload.From, parseErr)
		return nil
	}

	if err := in.Store.UpsertRecipient(e164, map[string]interface{}{}, model.ConsentOptIn); err != nil {
		return err
	}

	return in.ConsentService.ApplyInboundKeyword(e164, normalizedBody, now)
}

// Status handles a delivery-status callback webhook.
func (in *Ingestor) Status(rawBody []byte, payload StatusPayload) error {
	receipt := model.DeliveryReceipt{
		RawPayload:  json.RawMessage(rawBody),
		ProviderSid: payload.ProviderSid,
		Status:      payload.MessageStatus,
		ErrorCode:   payload.ErrorCode,
		ReceivedAt:  in.Clock.Now(),
	}
	if _, err := in.Store.InsertRawReceipt(receipt); err != nil {
		return err
	}

	if payload.ProviderSid == "" {
		return nil
	}
	msg, err := in.Store.FindMessageByProviderSid(payload.ProviderSid)
	if err != nil {
		return err
	}
	if msg == nil {
		log.Printf("⚠️ webhook: status callback for unknown providerSid %s", payload.ProviderSid)
		return nil
	}

	kind := normalizeCallbackKind(payload.MessageStatus)
	next, ok := statusTransitions[msg.Status][kind]
	if !ok {
		return nil
	}

	fields := buildTransitionFields(next, in.Clock.Now(), payload.ErrorCode)
	_, err = in.Store.TransitionMessage(msg.ID, msg.Status, next, fields)
	return err
}

func normalizeCallbackKind(providerStatus string) string {
	return providerStatus
}

func normalizeBody(body string) string {
	trimmed := body
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t' || trimmed[0] == '\n') {
		trimmed = trimmed[1:]
	}
	for len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		if last == ' ' || last == '\t' || last == '\n' {
			trimmed = trimmed[:len(trimmed)-1]
			continue
		}
		break
	}
	return trimmed
}

// buildTransitionFields sets the timestamp/errorCode columns a given
// status-callback transition should record alongside the status change.
func buildTransitionFields(next model.MessageStatus, at time.Time, errorCode *int) store.TransitionFields {
	fields := store.TransitionFields{}
	switch next {
	case model.MessageSent:
		t := sql.NullTime{Time: at, Valid: true}
		fields.SentAt = &t
	case model.MessageDelivered:
		t := sql.NullTime{Time: at, Valid: true}
		fields.DeliveredAt = &t
	case model.MessageFailed, model.MessageUndelivered:
		if errorCode != nil {
			fields.ErrorCode = errorCode
		}
	}
	return fields
}
