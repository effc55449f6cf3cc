package model

import (
	"encoding/json"
	"time"
)

// InboundEvent is an append-only raw-capture row for inbound provider
// webhooks. Never mutated after insert.
type InboundEvent struct {
	ID                 string          `db:"id" json:"id"`
	RawPayload         json.RawMessage `db:"raw_payload" json:"raw_payload"`
	FromE164           string          `db:"from_phone" json:"from_phone"`
	ChannelType        string          `db:"channel_type" json:"channel_type"`
	NormalizedBody     string          `db:"normalized_body" json:"normalized_body"`
	ProviderMessageID  string          `db:"provider_message_id" json:"provider_message_id"`
	ReceivedAt         time.Time       `db:"received_at" json:"received_at"`
}

// DeliveryReceipt is an append-only raw-capture row for status-callback
// webhooks. Never mutated after insert.
type DeliveryReceipt struct {
	ID          string          `db:"id" json:"id"`
	RawPayload  json.RawMessage `db:"raw_payload" json:"raw_payload"`
	ProviderSid string          `db:"provider_sid" json:"provider_sid"`
	Status      string          `db:"status" json:"status"`
	ErrorCode   *int            `db:"error_code" json:"error_code,omitempty"`
	ReceivedAt  time.Time       `db:"received_at" json:"received_at"`
}

// AuditEntry captures a single outcome in the compliance pipeline or
// consent service, for regulatory review. Audit rows are append-only.
type AuditEntry struct {
	ID         string          `db:"id" json:"id"`
	MessageID  *string         `db:"message_id" json:"message_id,omitempty"`
	RecipientE164 string       `db:"recipient_phone" json:"recipient_phone"`
	Stage      string          `db:"stage" json:"stage"`
	Outcome    string          `db:"outcome" json:"outcome"`
	Detail     json.RawMessage `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
