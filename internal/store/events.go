package store

import (
	"github.com/google/uuid"
	"github.com/relaytide/campaign-platform/internal/model"
)

// InsertRawInbound persists an inbound webhook payload unconditionally,
// before any normalization or side effect (spec.md §4.1).
func (s *Store) InsertRawInbound(e model.InboundEvent) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO inbound_events (id, raw_payload, from_phone, channel_type, normalized_body, provider_message_id, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := s.DB.Exec(query, id, e.RawPayload, e.FromE164, e.ChannelType, e.NormalizedBody, e.ProviderMessageID)
	if err != nil {
		return "", wrapStorageErr("InsertRawInbound", err)
	}
	return id, nil
}

// InsertRawReceipt persists a status-callback payload unconditionally,
// never updated in place thereafter.
func (s *Store) InsertRawReceipt(r model.DeliveryReceipt) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO delivery_receipts (id, raw_payload, provider_sid, status, error_code, received_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := s.DB.Exec(query, id, r.RawPayload, r.ProviderSid, r.Status, r.ErrorCode)
	if err != nil {
		return "", wrapStorageErr("InsertRawReceipt", err)
	}
	return id, nil
}

// AppendAudit adds an append-only audit row recording a pipeline-stage
// or consent-service outcome.
func (s *Store) AppendAudit(entry model.AuditEntry) error {
	id := uuid.NewString()
	query := `
		INSERT INTO audit_entries (id, message_id, recipient_phone, stage, outcome, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := s.DB.Exec(query, id, entry.MessageID, entry.RecipientE164, entry.Stage, entry.Outcome, entry.Detail)
	return wrapStorageErr("AppendAudit", err)
}
