package orchestrator

import (
	"context"
	"log"

	"github.com/relaytide/campaign-platform/internal/taskqueue"
)

// StartPeriodicTasks registers the cron tick the orchestrator depends
// on for three things (spec.md §4.7, §4.9): picking up READY campaigns
// whose schedule_time has elapsed, sweeping RUNNING campaigns for
// completion (catches the case where the last open message was closed
// out by a status-callback webhook rather than a pipeline run, which
// wouldn't otherwise re-check that campaign), and republishing any
// QUEUED message whose reschedule came due while no in-process
// Scheduler timer survived to fire it. cronSpec is standard 5-field
// cron syntax; the call site, not this package, chooses the cadence.
func (o *Orchestrator) StartPeriodicTasks(ctx context.Context, cronSpec string) error {
	return o.Scheduler.AddPeriodic(cronSpec, func() {
		o.pickUpDueCampaigns(ctx)
		o.sweepRunningCampaigns()
		o.republishDueMessages()
	})
}

func (o *Orchestrator) pickUpDueCampaigns(ctx context.Context) {
	due, err := o.Store.ListCampaignsDue(o.Clock.Now())
	if err != nil {
		log.Printf("⚠️ orchestrator: periodic: list due campaigns: %v", err)
		return
	}
	for _, c := range due {
		if _, _, err := o.Trigger(ctx, c.ID); err != nil {
			log.Printf("⚠️ orchestrator: periodic: trigger campaign %d: %v", c.ID, err)
		}
	}
}

func (o *Orchestrator) sweepRunningCampaigns() {
	running, err := o.Store.ListRunningCampaigns()
	if err != nil {
		log.Printf("⚠️ orchestrator: periodic: list running campaigns: %v", err)
		return
	}
	for _, c := range running {
		o.checkCompletion(c.ID)
	}
}

// republishDueMessages is the at-least-once backstop for the in-process
// Scheduler: any QUEUED message whose NextAttemptAt has elapsed gets
// re-enqueued unconditionally, regardless of whether its original
// DelayUntil timer ever fired (spec.md §4.9 "the Scheduler must
// guarantee at-least-once invocation"; §5 "stays QUEUED and resumes on
// next start"). ProcessMessage's own CAS transitions make a duplicate
// enqueue for an already-dispatched message a safe no-op.
func (o *Orchestrator) republishDueMessages() {
	due, err := o.Store.ListDueMessages(o.Clock.Now())
	if err != nil {
		log.Printf("⚠️ orchestrator: periodic: list due messages: %v", err)
		return
	}
	for _, m := range due {
		if err := o.Queue.PublishMessageTask(taskqueue.MessageTask{MessageID: m.ID, CampaignID: m.CampaignID}); err != nil {
			log.Printf("⚠️ orchestrator: periodic: republish message %s: %v", m.ID, err)
		}
	}
}
