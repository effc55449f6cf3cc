package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relaytide/campaign-platform/internal/model"
)

// CreateMessage materializes a Message row in QUEUED.
func (s *Store) CreateMessage(campaignID int, e164 string, rendered string) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO messages (id, campaign_id, recipient_phone, rendered_content, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())
	`
	_, err := s.DB.Exec(query, id, campaignID, e164, rendered, model.MessageQueued)
	if err != nil {
		return "", wrapStorageErr("CreateMessage", err)
	}
	return id, nil
}

// TransitionFields bundles the optional columns a given transition may
// set alongside the status itself.
type TransitionFields struct {
	ProviderSid   *string
	ErrorCode     *int
	RetryCount    *int
	SentAt        *sql.NullTime
	DeliveredAt   *sql.NullTime
	NextAttemptAt *sql.NullTime
}

// TransitionMessage is the only mutator of a Message row: a
// compare-and-set on status. ok is false if the message's current
// status isn't from, which callers treat as a no-op (spec.md §4.7's
// "spurious transitions become no-ops").
func (s *Store) TransitionMessage(messageID string, from, to model.MessageStatus, fields TransitionFields) (ok bool, err error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return false, wrapStorageErr("TransitionMessage", err)
	}
	defer tx.Rollback()

	var current model.MessageStatus
	err = tx.QueryRow(`SELECT status FROM messages WHERE id = $1 FOR UPDATE`, messageID).Scan(&current)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("message %s not found", messageID)
	}
	if err != nil {
		return false, wrapStorageErr("TransitionMessage", err)
	}
	if current != from {
		return false, nil
	}

	setClauses := "status = $1, updated_at = NOW()"
	args := []interface{}{to}
	argPos := 2

	if fields.ProviderSid != nil {
		setClauses += fmt.Sprintf(", provider_sid = $%d", argPos)
		args = append(args, *fields.ProviderSid)
		argPos++
	}
	if fields.ErrorCode != nil {
		setClauses += fmt.Sprintf(", error_code = $%d", argPos)
		args = append(args, *fields.ErrorCode)
		argPos++
	}
	if fields.RetryCount != nil {
		setClauses += fmt.Sprintf(", retry_count = $%d", argPos)
		args = append(args, *fields.RetryCount)
		argPos++
	}
	if fields.SentAt != nil {
		setClauses += fmt.Sprintf(", sent_at = $%d", argPos)
		args = append(args, *fields.SentAt)
		argPos++
	}
	if fields.DeliveredAt != nil {
		setClauses += fmt.Sprintf(", delivered_at = $%d", argPos)
		args = append(args, *fields.DeliveredAt)
		argPos++
	}
	if fields.NextAttemptAt != nil {
		setClauses += fmt.Sprintf(", next_attempt_at = $%d", argPos)
		args = append(args, *fields.NextAttemptAt)
		argPos++
	}

	args = append(args, messageID)
	query := fmt.Sprintf("UPDATE messages SET %s WHERE id = $%d", setClauses, argPos)
	if _, err := tx.Exec(query, args...); err != nil {
		return false, wrapStorageErr("TransitionMessage", err)
	}

	return true, wrapStorageErr("TransitionMessage", tx.Commit())
}

// GetMessage fetches a Message by ID.
func (s *Store) GetMessage(id string) (*model.Message, error) {
	query := `
		SELECT id, campaign_id, recipient_phone, rendered_content, status,
		       provider_sid, error_code, retry_count, created_at, sent_at, delivered_at, next_attempt_at, updated_at
		FROM messages WHERE id = $1
	`
	var m model.Message
	err := s.DB.QueryRow(query, id).Scan(
		&m.ID, &m.CampaignID, &m.RecipientE164, &m.RenderedContent, &m.Status,
		&m.ProviderSid, &m.ErrorCode, &m.RetryCount, &m.CreatedAt, &m.SentAt, &m.DeliveredAt, &m.NextAttemptAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr("GetMessage", err)
	}
	return &m, nil
}

// ListDueMessages returns every QUEUED message belonging to a RUNNING
// campaign whose NextAttemptAt has elapsed. The periodic sweep
// republishes these onto the task queue, reconciling any reschedule
// whose in-process Scheduler timer was lost to a worker crash or
// restart (spec.md §4.9's at-least-once guarantee, §5's "stays QUEUED
// and resumes on next start").
func (s *Store) ListDueMessages(now time.Time) ([]model.Message, error) {
	query := `
		SELECT m.id, m.campaign_id, m.recipient_phone, m.rendered_content, m.status,
		       m.provider_sid, m.error_code, m.retry_count, m.created_at, m.sent_at, m.delivered_at, m.next_attempt_at, m.updated_at
		FROM messages m
		JOIN campaigns c ON c.id = m.campaign_id
		WHERE m.status = $1 AND c.status = $2 AND m.next_attempt_at IS NOT NULL AND m.next_attempt_at <= $3
	`
	rows, err := s.DB.Query(query, model.MessageQueued, model.CampaignRunning, now)
	if err != nil {
		return nil, wrapStorageErr("ListDueMessages", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(
			&m.ID, &m.CampaignID, &m.RecipientE164, &m.RenderedContent, &m.Status,
			&m.ProviderSid, &m.ErrorCode, &m.RetryCount, &m.CreatedAt, &m.SentAt, &m.DeliveredAt, &m.NextAttemptAt, &m.UpdatedAt,
		); err != nil {
			return nil, wrapStorageErr("ListDueMessages", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// CampaignMessageStats returns the count of messages in each status for
// campaignID, grounded on the teacher's GetCampaignStats query shape
// (internal/repository/campaign_repository.go), generalized from the
// teacher's lower-case pending/sent/failed set to the full status DAG.
func (s *Store) CampaignMessageStats(campaignID int) (map[model.MessageStatus]int, error) {
	rows, err := s.DB.Query(`SELECT status, COUNT(*) FROM messages WHERE campaign_id = $1 GROUP BY status`, campaignID)
	if err != nil {
		return nil, wrapStorageErr("CampaignMessageStats", err)
	}
	defer rows.Close()

	stats := map[model.MessageStatus]int{}
	for rows.Next() {
		var status model.MessageStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, wrapStorageErr("CampaignMessageStats", err)
		}
		stats[status] = count
	}
	return stats, nil
}

// FindMessageByProviderSid correlates a status callback back to its
// Message row.
func (s *Store) FindMessageByProviderSid(sid string) (*model.Message, error) {
	query := `
		SELECT id, campaign_id, recipient_phone, rendered_content, status,
		       provider_sid, error_code, retry_count, created_at, sent_at, delivered_at, next_attempt_at, updated_at
		FROM messages WHERE provider_sid = $1
	`
	var m model.Message
	err := s.DB.QueryRow(query, sid).Scan(
		&m.ID, &m.CampaignID, &m.RecipientE164, &m.RenderedContent, &m.Status,
		&m.ProviderSid, &m.ErrorCode, &m.RetryCount, &m.CreatedAt, &m.SentAt, &m.DeliveredAt, &m.NextAttemptAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr("FindMessageByProviderSid", err)
	}
	return &m, nil
}
