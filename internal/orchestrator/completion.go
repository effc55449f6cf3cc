package orchestrator

import (
	"log"

	"github.com/relaytide/campaign-platform/internal/model"
)

// pendingStatuses are the non-terminal-for-completion message states;
// a campaign cannot complete while any materialized message sits in one
// of these.
var pendingStatuses = []model.MessageStatus{model.MessageQueued, model.MessageSending}

// checkCompletion transitions campaignID from RUNNING to COMPLETED once
// materialization has drained and every materialized message has left
// QUEUED/SENDING (spec.md §4.7 "Completion"). Called after materialize
// drains and after every message reaches a terminal-for-completion
// status, so completion is detected promptly without a separate poll.
func (o *Orchestrator) checkCompletion(campaignID int) {
	campaign, err := o.Store.GetCampaign(campaignID)
	if err != nil {
		log.Printf("⚠️ orchestrator: checkCompletion: load campaign %d: %v", campaignID, err)
		return
	}
	if campaign.Status != model.CampaignRunning || !campaign.MaterializationDone {
		return
	}

	stats, err := o.Store.CampaignMessageStats(campaignID)
	if err != nil {
		log.Printf("⚠️ orchestrator: checkCompletion: stats for campaign %d: %v", campaignID, err)
		return
	}
	for _, pending := range pendingStatuses {
		if stats[pending] > 0 {
			return
		}
	}

	ok, err := o.Store.TransitionCampaignStatus(campaignID, model.CampaignRunning, model.CampaignCompleted)
	if err != nil {
		log.Printf("⚠️ orchestrator: checkCompletion: transition campaign %d: %v", campaignID, err)
		return
	}
	if ok {
		log.Printf("campaign %d completed", campaignID)
	}
}
