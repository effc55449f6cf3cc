package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytide/campaign-platform/internal/clock"
	"github.com/relaytide/campaign-platform/internal/consent"
	"github.com/relaytide/campaign-platform/internal/httpapi"
	"github.com/relaytide/campaign-platform/internal/model"
	"github.com/relaytide/campaign-platform/internal/orchestrator"
	"github.com/relaytide/campaign-platform/internal/provider"
	"github.com/relaytide/campaign-platform/internal/ratelimiter"
	"github.com/relaytide/campaign-platform/internal/scheduler"
	"github.com/relaytide/campaign-platform/internal/store"
	"github.com/relaytide/campaign-platform/internal/taskqueue"
	"github.com/relaytide/campaign-platform/internal/webhook"
)

type fakeAPIStore struct {
	mu         sync.Mutex
	campaigns  map[int]*model.Campaign
	messages   map[string]*model.Message
	recipients map[string]*model.Recipient
	inbound    []model.InboundEvent
	receipts   []model.DeliveryReceipt
	audits     []model.AuditEntry
}

func newFakeAPIStore() *fakeAPIStore {
	return &fakeAPIStore{
		campaigns:  map[int]*model.Campaign{},
		messages:   map[string]*model.Message{},
		recipients: map[string]*model.Recipient{},
	}
}

func (s *fakeAPIStore) ListRecipientsPage(ctx context.Context, cursor string, limit int, onlyOptIn bool) ([]model.Recipient, string, bool, error) {
	return nil, "", false, nil
}
func (s *fakeAPIStore) GetCampaign(id int) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaigns[id], nil
}
func (s *fakeAPIStore) TransitionCampaignStatus(id int, from, to model.CampaignStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.campaigns[id]
	if c == nil || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}
func (s *fakeAPIStore) UpdateMaterializationCursor(id int, cursor string) error { return nil }
func (s *fakeAPIStore) MarkMaterializationDone(id int) error                   { return nil }
func (s *fakeAPIStore) CampaignMessageStats(campaignID int) (map[model.MessageStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := map[model.MessageStatus]int{}
	for _, m := range s.messages {
		if m.CampaignID == campaignID {
			stats[m.Status]++
		}
	}
	return stats, nil
}
func (s *fakeAPIStore) ListCampaignsDue(now time.Time) ([]model.Campaign, error) { return nil, nil }
func (s *fakeAPIStore) ListRunningCampaigns() ([]model.Campaign, error)          { return nil, nil }
func (s *fakeAPIStore) GetTemplate(id int) (*model.Template, error) {
	return nil, fmt.Errorf("template %d not found", id)
}
func (s *fakeAPIStore) GetSegment(id int) (*model.Segment, error) {
	return nil, fmt.Errorf("segment %d not found", id)
}
func (s *fakeAPIStore) GetRecipient(e164 string) (*model.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipients[e164], nil
}
func (s *fakeAPIStore) CreateMessage(campaignID int, e164, rendered string) (string, error) {
	return "", nil
}
func (s *fakeAPIStore) GetMessage(id string) (*model.Message, error) { return nil, nil }
func (s *fakeAPIStore) ListDueMessages(now time.Time) ([]model.Message, error) { return nil, nil }
func (s *fakeAPIStore) TransitionMessage(messageID string, from, to model.MessageStatus, fields store.TransitionFields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messages[messageID]
	if m == nil || m.Status != from {
		return false, nil
	}
	m.Status = to
	return true, nil
}
func (s *fakeAPIStore) AppendAudit(entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, entry)
	return nil
}
func (s *fakeAPIStore) InsertRawInbound(e model.InboundEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, e)
	return "evt-1", nil
}
func (s *fakeAPIStore) InsertRawReceipt(r model.DeliveryReceipt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return "rcpt-1", nil
}
func (s *fakeAPIStore) UpsertRecipient(e164 string, attrs map[string]interface{}, consentState model.ConsentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients[e164] = &model.Recipient{PhoneE164: e164, ConsentState: consentState}
	return nil
}
func (s *fakeAPIStore) UpdateConsent(e164 string, newState model.ConsentState, source string, at time.Time) (model.ConsentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.recipients[e164]
	if r == nil {
		r = &model.Recipient{PhoneE164: e164}
		s.recipients[e164] = r
	}
	prior := r.ConsentState
	r.ConsentState = newState
	return prior, nil
}
func (s *fakeAPIStore) FindMessageByProviderSid(sid string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ProviderSid != nil && *m.ProviderSid == sid {
			return m, nil
		}
	}
	return nil, nil
}

func newTestRouter(s *fakeAPIStore) http.Handler {
	consentSvc := consent.New(s)
	orch := orchestrator.New(s, consentSvc, ratelimiter.NewMemory(), scheduler.New(), clock.Real{}, provider.NewFake(), taskqueue.NewInMemory(), nil)
	ingestor := webhook.New(s, consentSvc, clock.Real{}, "US")
	return httpapi.NewRouter(orch, ingestor, s, nil)
}

func TestTriggerHandler_ReadyCampaign(t *testing.T) {
	s := newFakeAPIStore()
	s.campaigns[1] = &model.Campaign{ID: 1, Status: model.CampaignReady}
	r := newTestRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/campaigns/1/trigger", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "RUNNING", body["status"])
	assert.NotEmpty(t, body["taskId"])
}

func TestTriggerHandler_InvalidID(t *testing.T) {
	s := newFakeAPIStore()
	r := newTestRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/campaigns/not-a-number/trigger", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsHandler(t *testing.T) {
	s := newFakeAPIStore()
	s.campaigns[1] = &model.Campaign{ID: 1, Status: model.CampaignRunning}
	s.messages["m1"] = &model.Message{ID: "m1", CampaignID: 1, Status: model.MessageSent}
	s.messages["m2"] = &model.Message{ID: "m2", CampaignID: 1, Status: model.MessageQueued}
	r := newTestRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/campaigns/1/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	byStatus := body["by_status"].(map[string]interface{})
	assert.Equal(t, float64(1), byStatus["SENT"])
	assert.Equal(t, float64(1), byStatus["QUEUED"])
}

func TestWebhookInbound_AlwaysRespondsOK(t *testing.T) {
	s := newFakeAPIStore()
	r := newTestRouter(s)

	form := url.Values{}
	form.Set("From", "whatsapp:+14155550100")
	form.Set("Body", "STOP")
	form.Set("MessageSid", "SM123")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/inbound", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.inbound, 1)
	assert.Equal(t, "+14155550100", s.inbound[0].FromE164)
	assert.Equal(t, model.ConsentStop, s.recipients["+14155550100"].ConsentState)
}

func TestWebhookInbound_MalformedFromStillCapturesRaw(t *testing.T) {
	s := newFakeAPIStore()
	r := newTestRouter(s)

	form := url.Values{}
	form.Set("From", "not-a-phone-number")
	form.Set("Body", "hello")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/inbound", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.inbound, 1)
	assert.Empty(t, s.recipients)
}

func TestWebhookStatus_TransitionsMessage(t *testing.T) {
	s := newFakeAPIStore()
	sid := "SM999"
	s.messages["m1"] = &model.Message{ID: "m1", CampaignID: 1, Status: model.MessageSending, ProviderSid: &sid}
	r := newTestRouter(s)

	form := url.Values{}
	form.Set("MessageSid", sid)
	form.Set("MessageStatus", "delivered")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.MessageDelivered, s.messages["m1"].Status)
}

func TestWebhookStatus_UnknownProviderSidStillReturnsOK(t *testing.T) {
	s := newFakeAPIStore()
	r := newTestRouter(s)

	form := url.Values{}
	form.Set("MessageSid", "SM-unknown")
	form.Set("MessageStatus", "delivered")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.receipts, 1)
}
