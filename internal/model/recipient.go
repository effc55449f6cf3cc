// Package model holds the persistence-level entities shared across the
// store, orchestrator, and webhook packages.
package model

import (
	"encoding/json"
	"time"
)

// ConsentState is the recipient's current messaging consent.
type ConsentState string

const (
	ConsentOptIn  ConsentState = "OPT_IN"
	ConsentOptOut ConsentState = "OPT_OUT"
	ConsentStop   ConsentState = "STOP"
)

// Recipient is identified by an immutable E.164 phone number.
type Recipient struct {
	PhoneE164   string          `db:"phone_e164" json:"phone_e164"`
	Attributes  json.RawMessage `db:"attributes" json:"attributes"`
	ConsentState ConsentState   `db:"consent_state" json:"consent_state"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Attrs decodes the attribute bag into a plain map. Callers that only need
// to read a few keys should prefer this over re-parsing the raw JSON.
func (r *Recipient) Attrs() (map[string]any, error) {
	if len(r.Attributes) == 0 {
		return map[string]any{}, nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(r.Attributes, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscription is a pure (Recipient, Topic) edge; it carries no state of
// its own.
type Subscription struct {
	RecipientE164 string `db:"recipient_phone" json:"recipient_phone"`
	Topic         string `db:"topic" json:"topic"`
}
