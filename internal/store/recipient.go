package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	appErrors "github.com/relaytide/campaign-platform/internal/errors"
	"github.com/relaytide/campaign-platform/internal/model"
)

// GetRecipient returns the Recipient for e164, or nil if none exists.
func (s *Store) GetRecipient(e164 string) (*model.Recipient, error) {
	query := `
		SELECT phone_e164, attributes, consent_state, created_at, updated_at
		FROM recipients WHERE phone_e164 = $1
	`
	var r model.Recipient
	var attrs []byte
	err := s.DB.QueryRow(query, e164).Scan(&r.PhoneE164, &attrs, &r.ConsentState, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr("GetRecipient", err)
	}
	r.Attributes = attrs
	return &r, nil
}

// UpsertRecipient creates the recipient if absent, or merges attrs into
// the existing attribute bag (last-write-wins per key) if present.
// Consent is only set on first insert; an existing recipient's consent
// state is left untouched (consent changes go through UpdateConsent).
func (s *Store) UpsertRecipient(e164 string, attrs map[string]interface{}, consent model.ConsentState) error {
	newAttrs, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return wrapStorageErr("UpsertRecipient", err)
	}
	defer tx.Rollback()

	var existing []byte
	err = tx.QueryRow(`SELECT attributes FROM recipients WHERE phone_e164 = $1 FOR UPDATE`, e164).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(`
			INSERT INTO recipients (phone_e164, attributes, consent_state, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
		`, e164, newAttrs, consent)
		if err != nil {
			return wrapStorageErr("UpsertRecipient", err)
		}
	case err != nil:
		return wrapStorageErr("UpsertRecipient", err)
	default:
		merged := map[string]interface{}{}
		if len(existing) > 0 {
			if err := json.Unmarshal(existing, &merged); err != nil {
				return wrapStorageErr("UpsertRecipient", err)
			}
		}
		for k, v := range attrs {
			merged[k] = v
		}
		mergedJSON, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`UPDATE recipients SET attributes = $1, updated_at = NOW() WHERE phone_e164 = $2`, mergedJSON, e164)
		if err != nil {
			return wrapStorageErr("UpsertRecipient", err)
		}
	}

	return wrapStorageErr("UpsertRecipient", tx.Commit())
}

// UpdateConsent enforces STOP-stickiness: a recipient in STOP keeps STOP
// whatever newState is asked, unless source carries the "admin_reopt:"
// prefix that AdminReopt in the consent package uses, in which case
// newState is applied. Returns the prior state.
func (s *Store) UpdateConsent(e164 string, newState model.ConsentState, source string, at time.Time) (model.ConsentState, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return "", wrapStorageErr("UpdateConsent", err)
	}
	defer tx.Rollback()

	var prior model.ConsentState
	err = tx.QueryRow(`SELECT consent_state FROM recipients WHERE phone_e164 = $1 FOR UPDATE`, e164).Scan(&prior)
	if err == sql.ErrNoRows {
		return "", appErrors.NewRecipientNotFound(e164)
	}
	if err != nil {
		return "", wrapStorageErr("UpdateConsent", err)
	}

	target := newState
	isAdminReopt := strings.HasPrefix(source, "admin_reopt:")
	if prior == model.ConsentStop && !isAdminReopt {
		target = prior
	}

	_, err = tx.Exec(`UPDATE recipients SET consent_state = $1, updated_at = $2 WHERE phone_e164 = $3`, target, at, e164)
	if err != nil {
		return "", wrapStorageErr("UpdateConsent", err)
	}

	return prior, wrapStorageErr("UpdateConsent", tx.Commit())
}

// ListRecipientsPage returns one stable-ordered page of recipients,
// implementing segment.RecipientLister so the SegmentEvaluator can
// stream matches without loading the whole table into memory.
func (s *Store) ListRecipientsPage(ctx context.Context, cursor string, limit int, onlyOptIn bool) ([]model.Recipient, string, bool, error) {
	var rows *sql.Rows
	var err error

	if onlyOptIn {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT phone_e164, attributes, consent_state, created_at, updated_at
			FROM recipients
			WHERE phone_e164 > $1 AND consent_state = 'OPT_IN'
			ORDER BY phone_e164 ASC LIMIT $2
		`, cursor, limit+1)
	} else {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT phone_e164, attributes, consent_state, created_at, updated_at
			FROM recipients
			WHERE phone_e164 > $1
			ORDER BY phone_e164 ASC LIMIT $2
		`, cursor, limit+1)
	}
	if err != nil {
		return nil, cursor, false, wrapStorageErr("ListRecipientsPage", err)
	}
	defer rows.Close()

	var out []model.Recipient
	for rows.Next() {
		var r model.Recipient
		var attrs []byte
		if err := rows.Scan(&r.PhoneE164, &attrs, &r.ConsentState, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, cursor, false, wrapStorageErr("ListRecipientsPage", err)
		}
		r.Attributes = attrs
		out = append(out, r)
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	next := cursor
	if len(out) > 0 {
		next = out[len(out)-1].PhoneE164
	}
	return out, next, hasMore, nil
}
