// internal/model/message.go
package model

import "time"

// MessageStatus is a node in the per-message delivery DAG.
type MessageStatus string

const (
	MessageQueued      MessageStatus = "QUEUED"
	MessageSending     MessageStatus = "SENDING"
	MessageSent        MessageStatus = "SENT"
	MessageDelivered   MessageStatus = "DELIVERED"
	MessageRead        MessageStatus = "READ"
	MessageFailed      MessageStatus = "FAILED"
	MessageUndelivered MessageStatus = "UNDELIVERED"
)

// Terminal reports whether status has no further legal transition.
func (s MessageStatus) Terminal() bool {
	switch s {
	case MessageRead, MessageFailed, MessageUndelivered:
		return true
	default:
		return false
	}
}

// Message is materialized once per (campaign, recipient) pair at
// CreateMessage time and thereafter mutated only through TransitionMessage.
type Message struct {
	ID              string        `db:"id" json:"id"`
	CampaignID      int           `db:"campaign_id" json:"campaign_id"`
	RecipientE164   string        `db:"recipient_phone" json:"recipient_phone"`
	RenderedContent string        `db:"rendered_content" json:"rendered_content"`
	Status          MessageStatus `db:"status" json:"status"`
	ProviderSid     *string       `db:"provider_sid" json:"provider_sid,omitempty"`
	ErrorCode       *int          `db:"error_code" json:"error_code,omitempty"`
	RetryCount      int           `db:"retry_count" json:"retry_count"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	SentAt          *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt     *time.Time    `db:"delivered_at" json:"delivered_at,omitempty"`
	// NextAttemptAt is the due time the periodic reconciliation sweep
	// compares against, so a QUEUED message whose in-process scheduler
	// timer was lost to a crash or restart still gets republished.
	NextAttemptAt *time.Time `db:"next_attempt_at" json:"next_attempt_at,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
