package consent_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytide/campaign-platform/internal/consent"
	"github.com/relaytide/campaign-platform/internal/model"
)

type fakeStore struct {
	recipients map[string]*model.Recipient
	audits     []model.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{recipients: map[string]*model.Recipient{}}
}

func (f *fakeStore) GetRecipient(e164 string) (*model.Recipient, error) {
	return f.recipients[e164], nil
}

func (f *fakeStore) UpsertRecipient(e164 string, attrs map[string]interface{}, consentState model.ConsentState) error {
	f.recipients[e164] = &model.Recipient{PhoneE164: e164, ConsentState: consentState}
	return nil
}

func (f *fakeStore) UpdateConsent(e164 string, newState model.ConsentState, source string, at time.Time) (model.ConsentState, error) {
	r, ok := f.recipients[e164]
	if !ok {
		r = &model.Recipient{PhoneE164: e164}
		f.recipients[e164] = r
	}
	prior := r.ConsentState
	r.ConsentState = newState
	return prior, nil
}

func (f *fakeStore) AppendAudit(entry model.AuditEntry) error {
	f.audits = append(f.audits, entry)
	return nil
}

func TestIsEligible(t *testing.T) {
	store := newFakeStore()
	store.recipients["+14155550100"] = &model.Recipient{PhoneE164: "+14155550100", ConsentState: model.ConsentOptIn}
	store.recipients["+14155550101"] = &model.Recipient{PhoneE164: "+14155550101", ConsentState: model.ConsentStop}
	svc := consent.New(store)

	elig, err := svc.IsEligible("+14155550100")
	require.NoError(t, err)
	assert.True(t, elig.OK)

	elig, err = svc.IsEligible("+14155550101")
	require.NoError(t, err)
	assert.False(t, elig.OK)
	assert.Equal(t, "STOP", elig.Reason)

	elig, err = svc.IsEligible("+14155559999")
	require.NoError(t, err)
	assert.False(t, elig.OK)
	assert.Equal(t, "UNKNOWN", elig.Reason)
}

func TestApplyInboundKeyword_Stop(t *testing.T) {
	store := newFakeStore()
	store.recipients["+14155550100"] = &model.Recipient{PhoneE164: "+14155550100", ConsentState: model.ConsentOptIn}
	svc := consent.New(store)

	require.NoError(t, svc.ApplyInboundKeyword("+14155550100", "stop", time.Now()))
	assert.Equal(t, model.ConsentStop, store.recipients["+14155550100"].ConsentState)
	require.Len(t, store.audits, 1)
	assert.Equal(t, "stop", store.audits[0].Outcome)
}

func TestApplyInboundKeyword_StartOnlyLeavesOptOut(t *testing.T) {
	store := newFakeStore()
	store.recipients["+14155550100"] = &model.Recipient{PhoneE164: "+14155550100", ConsentState: model.ConsentOptOut}
	svc := consent.New(store)

	require.NoError(t, svc.ApplyInboundKeyword("+14155550100", "start", time.Now()))
	assert.Equal(t, model.ConsentOptIn, store.recipients["+14155550100"].ConsentState)
}

func TestApplyInboundKeyword_StartDoesNotUnstickStop(t *testing.T) {
	store := newFakeStore()
	store.recipients["+14155550100"] = &model.Recipient{PhoneE164: "+14155550100", ConsentState: model.ConsentStop}
	svc := consent.New(store)

	require.NoError(t, svc.ApplyInboundKeyword("+14155550100", "start", time.Now()))
	assert.Equal(t, model.ConsentStop, store.recipients["+14155550100"].ConsentState)
	assert.Empty(t, store.audits)
}

func TestApplyInboundKeyword_UnknownRecipientIgnored(t *testing.T) {
	store := newFakeStore()
	svc := consent.New(store)
	require.NoError(t, svc.ApplyInboundKeyword("+14155559999", "stop", time.Now()))
	assert.Empty(t, store.audits)
}

func TestAdminReopt(t *testing.T) {
	store := newFakeStore()
	store.recipients["+14155550100"] = &model.Recipient{PhoneE164: "+14155550100", ConsentState: model.ConsentStop}
	svc := consent.New(store)

	require.NoError(t, svc.AdminReopt("+14155550100", "ops-alice", time.Now()))
	assert.Equal(t, model.ConsentOptIn, store.recipients["+14155550100"].ConsentState)
	require.Len(t, store.audits, 1)
	assert.Equal(t, "admin_reopt", store.audits[0].Outcome)
}
