// Package orchestrator implements the CampaignOrchestrator component
// from spec.md §4.7: the campaign state machine, resumable
// materialization, and the six-stage per-message compliance pipeline.
// Grounded on original_source/app/runner/campaign_orchestrator.py's
// phase structure (load campaign -> resolve recipients -> per-recipient
// compliance checks -> render -> materialize -> dispatch), reimplemented
// around this platform's typed Store/Scheduler/RateLimiter capabilities
// instead of Celery task state.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/relaytide/campaign-platform/internal/clock"
	"github.com/relaytide/campaign-platform/internal/consent"
	"github.com/relaytide/campaign-platform/internal/metrics"
	"github.com/relaytide/campaign-platform/internal/model"
	"github.com/relaytide/campaign-platform/internal/provider"
	"github.com/relaytide/campaign-platform/internal/ratelimiter"
	"github.com/relaytide/campaign-platform/internal/scheduler"
	"github.com/relaytide/campaign-platform/internal/segment"
	"github.com/relaytide/campaign-platform/internal/store"
	"github.com/relaytide/campaign-platform/internal/taskqueue"
	"github.com/relaytide/campaign-platform/internal/template"
)

// Store is the subset of the Store contract the orchestrator depends
// on. It embeds segment.RecipientLister so the concrete *store.Store
// can be handed straight to segment.Evaluate.
type Store interface {
	segment.RecipientLister

	GetCampaign(id int) (*model.Campaign, error)
	TransitionCampaignStatus(id int, from, to model.CampaignStatus) (bool, error)
	UpdateMaterializationCursor(id int, cursor string) error
	MarkMaterializationDone(id int) error
	CampaignMessageStats(campaignID int) (map[model.MessageStatus]int, error)
	ListCampaignsDue(now time.Time) ([]model.Campaign, error)
	ListRunningCampaigns() ([]model.Campaign, error)
	GetTemplate(id int) (*model.Template, error)
	GetSegment(id int) (*model.Segment, error)
	GetRecipient(e164 string) (*model.Recipient, error)
	CreateMessage(campaignID int, e164 string, rendered string) (string, error)
	GetMessage(id string) (*model.Message, error)
	ListDueMessages(now time.Time) ([]model.Message, error)
	TransitionMessage(messageID string, from, to model.MessageStatus, fields store.TransitionFields) (bool, error)
	AppendAudit(entry model.AuditEntry) error
}

// ConsentChecker is the subset of ConsentService the pipeline depends
// on for stage 1.
type ConsentChecker interface {
	IsEligible(e164 string) (consent.Eligibility, error)
}

// Orchestrator is the production CampaignOrchestrator.
type Orchestrator struct {
	Store       Store
	Consent     ConsentChecker
	RateLimiter ratelimiter.RateLimiter
	Scheduler   scheduler.Scheduler
	Clock       clock.Clock
	Provider    provider.Client
	Queue       taskqueue.Queue
	Metrics     *metrics.Metrics

	mu       sync.Mutex
	runTasks map[int]string
}

// New constructs an Orchestrator.
func New(s Store, c ConsentChecker, rl ratelimiter.RateLimiter, sched scheduler.Scheduler, clk clock.Clock, p provider.Client, q taskqueue.Queue, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{Store: s, Consent: c, RateLimiter: rl, Scheduler: sched, Clock: clk, Provider: p, Queue: q, Metrics: m, runTasks: make(map[int]string)}
}

// MarkReady transitions a campaign from DRAFT to READY.
func (o *Orchestrator) MarkReady(campaignID int) error {
	_, err := o.Store.TransitionCampaignStatus(campaignID, model.CampaignDraft, model.CampaignReady)
	return err
}

// Trigger starts a READY campaign running, or resumes a RUNNING one
// (e.g. after a crash) without disturbing state — the second case is a
// no-op per spec.md §5's "a second trigger is a no-op if one is already
// running" (a RUNNING campaign this process is not already driving, and
// whose materialization has not drained, has materialization re-attached
// from its persisted cursor). Returns the campaign's
// resulting status and a taskId a concurrent second caller will observe
// unchanged, per spec.md §6's `{status, taskId}` trigger contract.
func (o *Orchestrator) Trigger(ctx context.Context, campaignID int) (status string, taskID string, err error) {
	campaign, err := o.Store.GetCampaign(campaignID)
	if err != nil {
		return "", "", err
	}

	switch campaign.Status {
	case model.CampaignReady:
		ok, err := o.Store.TransitionCampaignStatus(campaignID, model.CampaignReady, model.CampaignRunning)
		if err != nil {
			return "", "", err
		}
		if !ok {
			// lost the race to another trigger; fall through to the
			// already-running case below
			return string(model.CampaignRunning), o.taskIDFor(campaignID), nil
		}
	case model.CampaignRunning:
		o.mu.Lock()
		id, attached := o.runTasks[campaignID]
		if !attached {
			id = fmt.Sprintf("campaign-%d-resumed", campaignID)
			o.runTasks[campaignID] = id
		}
		o.mu.Unlock()
		if !attached && !campaign.MaterializationDone {
			go o.materialize(context.WithoutCancel(ctx), campaignID)
		}
		return string(model.CampaignRunning), id, nil
	default:
		log.Printf("⚠️ orchestrator: trigger for campaign %d in status %s ignored", campaignID, campaign.Status)
		return string(campaign.Status), "", nil
	}

	taskID = o.newTaskID(campaignID)
	go o.materialize(context.WithoutCancel(ctx), campaignID)
	return string(model.CampaignRunning), taskID, nil
}

// taskIDFor returns the run token for an already-running campaign,
// synthesizing one if this process didn't originate the run (e.g. after
// a crash-restart) so the response contract still holds.
func (o *Orchestrator) taskIDFor(campaignID int) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id, ok := o.runTasks[campaignID]; ok {
		return id
	}
	id := fmt.Sprintf("campaign-%d-resumed", campaignID)
	o.runTasks[campaignID] = id
	return id
}

func (o *Orchestrator) newTaskID(campaignID int) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id, ok := o.runTasks[campaignID]; ok {
		return id
	}
	id := fmt.Sprintf("campaign-%d-run-%d", campaignID, o.Clock.Now().UnixNano())
	o.runTasks[campaignID] = id
	return id
}

// Pause moves a RUNNING campaign to PAUSED. Only the campaign status
// changes: a materialization already under way keeps going, and
// ProcessMessage does not check the campaign status, so queued messages
// continue through the pipeline while the campaign is paused.
func (o *Orchestrator) Pause(campaignID int) error {
	_, err := o.Store.TransitionCampaignStatus(campaignID, model.CampaignRunning, model.CampaignPaused)
	return err
}

// Resume moves a PAUSED campaign back to RUNNING and re-attaches
// materialization.
func (o *Orchestrator) Resume(ctx context.Context, campaignID int) error {
	ok, err := o.Store.TransitionCampaignStatus(campaignID, model.CampaignPaused, model.CampaignRunning)
	if err != nil || !ok {
		return err
	}
	go o.materialize(context.WithoutCancel(ctx), campaignID)
	return nil
}

// materialize walks the SegmentEvaluator's stream from the campaign's
// persisted cursor, rendering and creating Message rows, then handing
// each off to the task queue for pipeline processing.
func (o *Orchestrator) materialize(ctx context.Context, campaignID int) {
	campaign, err := o.Store.GetCampaign(campaignID)
	if err != nil {
		log.Printf("⚠️ orchestrator: materialize: load campaign %d: %v", campaignID, err)
		return
	}
	tmpl, err := o.Store.GetTemplate(campaign.TemplateID)
	if err != nil {
		log.Printf("⚠️ orchestrator: materialize: load template for campaign %d: %v", campaignID, err)
		return
	}
	seg, err := o.Store.GetSegment(campaign.SegmentID)
	if err != nil {
		log.Printf("⚠️ orchestrator: materialize: load segment for campaign %d: %v", campaignID, err)
		return
	}
	ruleTree, err := segment.Parse(seg.RuleTree)
	if err != nil {
		log.Printf("⚠️ orchestrator: materialize: parse segment %d rule tree: %v", seg.ID, err)
		return
	}

	stream := segment.Evaluate(ctx, o.Store, ruleTree, campaign.MaterializationCursor)
	queued := 0
	endedOnErr := false
	for result := range stream {
		endedOnErr = result.Err != nil
		if result.Err != nil {
			log.Printf("⚠️ orchestrator: materialize: campaign %d evaluator error: %v", campaignID, result.Err)
			continue
		}

		if result.PageDone {
			// Every row of this page has been materialized; only now is it
			// safe to advance the persisted cursor past it.
			if err := o.Store.UpdateMaterializationCursor(campaignID, result.Cursor); err != nil {
				log.Printf("⚠️ orchestrator: materialize: campaign %d persist cursor: %v", campaignID, err)
			}
			if o.Metrics != nil {
				o.Metrics.SetMaterializationCursor(campaignID, float64(queued))
			}
			continue
		}

		if err := o.materializeOne(campaign, tmpl, result.PhoneE164); err != nil {
			log.Printf("⚠️ orchestrator: materialize: campaign %d recipient %s: %v", campaignID, result.PhoneE164, err)
		} else {
			queued++
		}
	}

	// A stream that ends on a listing error or a cancelled context has not
	// drained; the campaign keeps its last committed cursor.
	if endedOnErr || ctx.Err() != nil {
		log.Printf("⚠️ orchestrator: materialize: campaign %d stream stopped before draining: %d messages queued", campaignID, queued)
		return
	}
	if err := o.Store.MarkMaterializationDone(campaignID); err != nil {
		log.Printf("⚠️ orchestrator: materialize: mark campaign %d done: %v", campaignID, err)
	}
	log.Printf("campaign %d materialization drained: %d messages queued", campaignID, queued)
	o.checkCompletion(campaignID)
}

func (o *Orchestrator) materializeOne(campaign *model.Campaign, tmpl *model.Template, e164 string) error {
	recipient, err := o.Store.GetRecipient(e164)
	if err != nil {
		return err
	}
	if recipient == nil {
		return nil
	}
	attrs, err := recipient.Attrs()
	if err != nil {
		return err
	}

	rendered, err := template.Render(*tmpl, attrs)
	if err != nil {
		detail, _ := json.Marshal(map[string]string{"reason": err.Error()})
		_ = o.Store.AppendAudit(model.AuditEntry{
			RecipientE164: e164,
			Stage:         "materialize",
			Outcome:       "skipped_render_failed",
			Detail:        detail,
			CreatedAt:     o.Clock.Now(),
		})
		return nil
	}

	messageID, err := o.Store.CreateMessage(campaign.ID, e164, rendered.Content)
	if err != nil {
		return err
	}

	if err := o.Queue.PublishMessageTask(taskqueue.MessageTask{MessageID: messageID, CampaignID: campaign.ID}); err != nil {
		log.Printf("⚠️ orchestrator: enqueue message task %s: %v", messageID, err)
	}
	return nil
}
