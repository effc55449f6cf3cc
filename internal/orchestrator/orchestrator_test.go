package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytide/campaign-platform/internal/model"
	"github.com/relaytide/campaign-platform/internal/provider"
)

func TestTrigger_ReadyCampaignStartsRunning(t *testing.T) {
	s := newFakeStore()
	s.campaigns[1] = &model.Campaign{ID: 1, Status: model.CampaignReady}
	orch, _ := newOrchestrator(t, s, &allowAllConsent{}, provider.NewFake())

	status, taskID, err := orch.Trigger(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", status)
	assert.NotEmpty(t, taskID)
}

func TestTrigger_SecondCallIsIdempotent(t *testing.T) {
	s := newFakeStore()
	s.campaigns[1] = &model.Campaign{ID: 1, Status: model.CampaignReady}
	orch, _ := newOrchestrator(t, s, &allowAllConsent{}, provider.NewFake())

	_, firstTaskID, err := orch.Trigger(context.Background(), 1)
	require.NoError(t, err)

	_, secondTaskID, err := orch.Trigger(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, firstTaskID, secondTaskID)
}

func TestTrigger_DraftCampaignIgnored(t *testing.T) {
	s := newFakeStore()
	s.campaigns[1] = &model.Campaign{ID: 1, Status: model.CampaignDraft}
	orch, _ := newOrchestrator(t, s, &allowAllConsent{}, provider.NewFake())

	status, taskID, err := orch.Trigger(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", status)
	assert.Empty(t, taskID)
}

func TestPauseAndResume(t *testing.T) {
	s := newFakeStore()
	s.campaigns[1] = &model.Campaign{ID: 1, Status: model.CampaignRunning}
	orch, _ := newOrchestrator(t, s, &allowAllConsent{}, provider.NewFake())

	require.NoError(t, orch.Pause(1))
	assert.Equal(t, model.CampaignPaused, s.campaigns[1].Status)

	require.NoError(t, orch.Resume(context.Background(), 1))
	assert.Equal(t, model.CampaignRunning, s.campaigns[1].Status)
}

func TestMarkReady(t *testing.T) {
	s := newFakeStore()
	s.campaigns[1] = &model.Campaign{ID: 1, Status: model.CampaignDraft}
	orch, _ := newOrchestrator(t, s, &allowAllConsent{}, provider.NewFake())

	require.NoError(t, orch.MarkReady(1))
	assert.Equal(t, model.CampaignReady, s.campaigns[1].Status)
}
