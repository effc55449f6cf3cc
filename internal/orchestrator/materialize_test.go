package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytide/campaign-platform/internal/clock"
	"github.com/relaytide/campaign-platform/internal/consent"
	"github.com/relaytide/campaign-platform/internal/model"
	"github.com/relaytide/campaign-platform/internal/provider"
	"github.com/relaytide/campaign-platform/internal/ratelimiter"
	"github.com/relaytide/campaign-platform/internal/store"
	"github.com/relaytide/campaign-platform/internal/taskqueue"
)

// pagedMaterializeStore serves recipients across multiple pages and
// records every UpdateMaterializationCursor call, so a test can assert
// the cursor only advances once a page has been fully materialized.
type pagedMaterializeStore struct {
	mu            sync.Mutex
	pages         [][]model.Recipient
	campaign      *model.Campaign
	tmpl          *model.Template
	seg           *model.Segment
	cursorUpdates []string
}

func (s *pagedMaterializeStore) ListRecipientsPage(ctx context.Context, cursor string, limit int, onlyOptIn bool) ([]model.Recipient, string, bool, error) {
	idx := 0
	if cursor != "" {
		json.Unmarshal([]byte(cursor), &idx)
	}
	if idx >= len(s.pages) {
		return nil, "", false, nil
	}
	next := idx + 1
	b, _ := json.Marshal(next)
	return s.pages[idx], string(b), next < len(s.pages), nil
}
func (s *pagedMaterializeStore) GetCampaign(id int) (*model.Campaign, error) { return s.campaign, nil }
func (s *pagedMaterializeStore) TransitionCampaignStatus(id int, from, to model.CampaignStatus) (bool, error) {
	return true, nil
}
func (s *pagedMaterializeStore) UpdateMaterializationCursor(id int, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorUpdates = append(s.cursorUpdates, cursor)
	return nil
}
func (s *pagedMaterializeStore) MarkMaterializationDone(id int) error { return nil }
func (s *pagedMaterializeStore) CampaignMessageStats(campaignID int) (map[model.MessageStatus]int, error) {
	return nil, nil
}
func (s *pagedMaterializeStore) ListCampaignsDue(now time.Time) ([]model.Campaign, error) {
	return nil, nil
}
func (s *pagedMaterializeStore) ListRunningCampaigns() ([]model.Campaign, error) { return nil, nil }
func (s *pagedMaterializeStore) GetTemplate(id int) (*model.Template, error)     { return s.tmpl, nil }
func (s *pagedMaterializeStore) GetSegment(id int) (*model.Segment, error)       { return s.seg, nil }
func (s *pagedMaterializeStore) GetRecipient(e164 string) (*model.Recipient, error) {
	for _, page := range s.pages {
		for _, r := range page {
			if r.PhoneE164 == e164 {
				rc := r
				return &rc, nil
			}
		}
	}
	return nil, nil
}
func (s *pagedMaterializeStore) CreateMessage(campaignID int, e164, rendered string) (string, error) {
	return e164, nil
}
func (s *pagedMaterializeStore) GetMessage(id string) (*model.Message, error) { return nil, nil }
func (s *pagedMaterializeStore) ListDueMessages(now time.Time) ([]model.Message, error) {
	return nil, nil
}
func (s *pagedMaterializeStore) TransitionMessage(messageID string, from, to model.MessageStatus, fields store.TransitionFields) (bool, error) {
	return true, nil
}
func (s *pagedMaterializeStore) AppendAudit(entry model.AuditEntry) error { return nil }

func newRecipient(e164 string) model.Recipient {
	return model.Recipient{PhoneE164: e164, Attributes: json.RawMessage(`{}`), ConsentState: model.ConsentOptIn}
}

func TestMaterialize_PersistsCursorOncePerPageNotPerRow(t *testing.T) {
	ruleTree, _ := json.Marshal(map[string]interface{}{
		"attribute": "consent_state", "operator": "equals", "value": "OPT_IN",
	})
	s := &pagedMaterializeStore{
		pages: [][]model.Recipient{
			{newRecipient("+14155550100"), newRecipient("+14155550101"), newRecipient("+14155550102")},
			{newRecipient("+14155550200")},
		},
		campaign: &model.Campaign{ID: 1, Status: model.CampaignRunning, TemplateID: 1, SegmentID: 1},
		tmpl:     &model.Template{ID: 1, Content: "hi"},
		seg:      &model.Segment{ID: 1, RuleTree: ruleTree},
	}

	o := New(s, allowAllConsentWhitebox{}, ratelimiter.NewMemory(), noopScheduler{}, clock.NewFixed(time.Now()), provider.NewFake(), taskqueue.NewInMemory(), nil)
	o.materialize(context.Background(), 1)

	require.Len(t, s.cursorUpdates, 2, "cursor must be persisted exactly once per page, not once per row")
	assert.Equal(t, `1`, s.cursorUpdates[0])
	assert.Equal(t, `2`, s.cursorUpdates[1])
}

type allowAllConsentWhitebox struct{}

func (allowAllConsentWhitebox) IsEligible(e164 string) (consent.Eligibility, error) {
	return consent.Eligibility{OK: true}, nil
}

type noopScheduler struct{}

func (noopScheduler) DelayUntil(key string, when time.Time, handler func()) {}
func (noopScheduler) AddPeriodic(cronSpec string, handler func()) error     { return nil }
func (noopScheduler) Start()                                               {}
func (noopScheduler) Stop()                                                {}
