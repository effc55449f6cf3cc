// Package consent implements the eligibility and inbound-keyword
// transition rules from spec.md §4.5, grounded on the
// CampaignService's store-backed method shape in
// internal/service/campaign_service.go.
package consent

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/relaytide/campaign-platform/internal/model"
)

// Store is the subset of the Store contract ConsentService depends on.
type Store interface {
	GetRecipient(e164 string) (*model.Recipient, error)
	UpsertRecipient(e164 string, attrs map[string]interface{}, consent model.ConsentState) error
	UpdateConsent(e164 string, newState model.ConsentState, source string, at time.Time) (model.ConsentState, error)
	AppendAudit(entry model.AuditEntry) error
}

// Eligibility is the result of an IsEligible check.
type Eligibility struct {
	OK     bool
	Reason string
}

var stopKeywords = map[string]bool{
	"STOP": true, "QUIT": true, "CANCEL": true, "UNSUBSCRIBE": true, "END": true,
}

var startKeywords = map[string]bool{
	"START": true, "UNSTOP": true,
}

// Service is the production ConsentService.
type Service struct {
	Store Store
}

// New constructs a ConsentService.
func New(store Store) *Service {
	return &Service{Store: store}
}

// IsEligible reports whether a recipient may receive campaign messages.
func (s *Service) IsEligible(e164 string) (Eligibility, error) {
	recipient, err := s.Store.GetRecipient(e164)
	if err != nil {
		return Eligibility{}, err
	}
	if recipient == nil {
		return Eligibility{OK: false, Reason: "UNKNOWN"}, nil
	}
	if recipient.ConsentState == model.ConsentOptIn {
		return Eligibility{OK: true}, nil
	}
	return Eligibility{OK: false, Reason: string(recipient.ConsentState)}, nil
}

// ApplyInboundKeyword inspects a normalized inbound message body and
// transitions consent state accordingly. STOP is sticky: a START/UNSTOP
// keyword never moves a recipient out of STOP, only out of OPT_OUT.
func (s *Service) ApplyInboundKeyword(e164 string, body string, at time.Time) error {
	keyword := strings.ToUpper(strings.TrimSpace(body))

	recipient, err := s.Store.GetRecipient(e164)
	if err != nil {
		return err
	}
	if recipient == nil {
		log.Printf("⚠️ consent: inbound keyword from unknown recipient %s, ignoring", e164)
		return nil
	}

	switch {
	case stopKeywords[keyword]:
		prior, err := s.Store.UpdateConsent(e164, model.ConsentStop, "inbound_keyword", at)
		if err != nil {
			return err
		}
		return s.Store.AppendAudit(model.AuditEntry{
			RecipientE164: e164,
			Stage:         "consent",
			Outcome:       "stop",
			Detail:        transitionDetail(prior, model.ConsentStop),
			CreatedAt:     at,
		})
	case startKeywords[keyword]:
		if recipient.ConsentState != model.ConsentOptOut {
			return nil
		}
		prior, err := s.Store.UpdateConsent(e164, model.ConsentOptIn, "inbound_keyword", at)
		if err != nil {
			return err
		}
		return s.Store.AppendAudit(model.AuditEntry{
			RecipientE164: e164,
			Stage:         "consent",
			Outcome:       "start",
			Detail:        transitionDetail(prior, model.ConsentOptIn),
			CreatedAt:     at,
		})
	}
	return nil
}

// AdminReopt is the only path that can move a recipient out of STOP. It
// is distinct from ApplyInboundKeyword and always leaves its own audit
// trail, per the sticky-STOP design decision.
func (s *Service) AdminReopt(e164 string, operator string, at time.Time) error {
	prior, err := s.Store.UpdateConsent(e164, model.ConsentOptIn, "admin_reopt:"+operator, at)
	if err != nil {
		return err
	}
	detail, _ := json.Marshal(map[string]string{
		"from":     string(prior),
		"to":       string(model.ConsentOptIn),
		"operator": operator,
	})
	return s.Store.AppendAudit(model.AuditEntry{
		RecipientE164: e164,
		Stage:         "consent",
		Outcome:       "admin_reopt",
		Detail:        detail,
		CreatedAt:     at,
	})
}

func transitionDetail(from, to model.ConsentState) json.RawMessage {
	detail, _ := json.Marshal(map[string]string{"from": string(from), "to": string(to)})
	return detail
}
