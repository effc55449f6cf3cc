package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	appErrors "github.com/relaytide/campaign-platform/internal/errors"
	"github.com/relaytide/campaign-platform/internal/model"
	"github.com/relaytide/campaign-platform/internal/scheduler"
	"github.com/relaytide/campaign-platform/internal/store"
	"github.com/relaytide/campaign-platform/internal/taskqueue"
	"github.com/relaytide/campaign-platform/internal/template"
)

const maxTransientRetries = 3
const providerSendTimeout = 10 * time.Second

// ProcessMessage runs a QUEUED message through the six-stage compliance
// pipeline (spec.md §4.7). It is the handler workers register with the
// task queue.
func (o *Orchestrator) ProcessMessage(ctx context.Context, messageID string) error {
	msg, err := o.Store.GetMessage(messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.Status.Terminal() || msg.Status != model.MessageQueued {
		return nil
	}

	campaign, err := o.Store.GetCampaign(msg.CampaignID)
	if err != nil {
		return err
	}
	recipient, err := o.Store.GetRecipient(msg.RecipientE164)
	if err != nil {
		return err
	}
	now := o.Clock.Now()

	// Stage 1: consent.
	elig, err := o.Consent.IsEligible(msg.RecipientE164)
	if err != nil {
		return err
	}
	if !elig.OK {
		o.failMessage(msg, "consent", elig.Reason, now)
		return nil
	}

	// Stage 2: quiet hours.
	recipientTZ := ""
	if recipient != nil {
		if attrs, err := recipient.Attrs(); err == nil {
			if tz, ok := attrs["timezone"].(string); ok {
				recipientTZ = tz
			}
		}
	}
	if blocked, resumeAt := inQuietHours(*campaign, recipientTZ, now); blocked {
		o.reschedule(msg, "quiet_hours", resumeAt)
		return nil
	}

	// Stage 3: rate limit.
	decision, err := o.RateLimiter.TryAcquire(ctx, campaign.ID, campaign.RateLimitPerSec, now)
	if err != nil {
		return err
	}
	if !decision.Admitted {
		if o.Metrics != nil {
			o.Metrics.RateLimiterRejections.Inc()
		}
		o.reschedule(msg, "rate_limit", now.Add(decision.RetryAfter))
		return nil
	}

	// Stage 4: content re-validation.
	if err := template.ValidateRenderedContent(msg.RenderedContent); err != nil {
		o.failMessage(msg, "content", err.Error(), now)
		return nil
	}

	// Stage 5: dispatch.
	o.dispatch(ctx, msg, now)
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, msg *model.Message, now time.Time) {
	ok, err := o.Store.TransitionMessage(msg.ID, model.MessageQueued, model.MessageSending, store.TransitionFields{})
	if err != nil || !ok {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, providerSendTimeout)
	defer cancel()

	result, sendErr := o.Provider.Send(sendCtx, msg.RecipientE164, msg.RenderedContent)
	if sendErr == nil {
		sentAt := sql.NullTime{Time: now, Valid: true}
		sid := result.ProviderSid
		_, _ = o.Store.TransitionMessage(msg.ID, model.MessageSending, model.MessageSent, store.TransitionFields{
			ProviderSid: &sid, SentAt: &sentAt,
		})
		if o.Metrics != nil {
			o.Metrics.MessagesDispatched.Inc()
		}
		o.audit(msg.ID, msg.RecipientE164, "dispatch", "sent", now)
		o.checkCompletion(msg.CampaignID)
		return
	}

	switch e := sendErr.(type) {
	case *appErrors.ProviderPermanent:
		code := e.Code
		_, _ = o.Store.TransitionMessage(msg.ID, model.MessageSending, model.MessageFailed, store.TransitionFields{ErrorCode: &code})
		if o.Metrics != nil {
			o.Metrics.MessagesFailed.Inc()
		}
		o.audit(msg.ID, msg.RecipientE164, "dispatch", "failed_permanent", now)
		o.checkCompletion(msg.CampaignID)
	case *appErrors.ProviderTransient:
		newRetry := msg.RetryCount + 1
		if newRetry > maxTransientRetries {
			code := e.Code
			_, _ = o.Store.TransitionMessage(msg.ID, model.MessageSending, model.MessageFailed, store.TransitionFields{ErrorCode: &code})
			if o.Metrics != nil {
				o.Metrics.MessagesFailed.Inc()
			}
			o.audit(msg.ID, msg.RecipientE164, "dispatch", "failed_retries_exhausted", now)
			o.checkCompletion(msg.CampaignID)
			return
		}
		_, _ = o.Store.TransitionMessage(msg.ID, model.MessageSending, model.MessageQueued, store.TransitionFields{RetryCount: &newRetry})
		o.reschedule(msg, "retry", now.Add(scheduler.Backoff(newRetry)))
	default:
		newRetry := msg.RetryCount + 1
		_, _ = o.Store.TransitionMessage(msg.ID, model.MessageSending, model.MessageQueued, store.TransitionFields{RetryCount: &newRetry})
		o.reschedule(msg, "retry", now.Add(scheduler.Backoff(newRetry)))
	}
}

func (o *Orchestrator) failMessage(msg *model.Message, stage, reason string, now time.Time) {
	_, _ = o.Store.TransitionMessage(msg.ID, model.MessageQueued, model.MessageFailed, store.TransitionFields{})
	if o.Metrics != nil {
		o.Metrics.MessagesFailed.Inc()
		o.Metrics.RecordStage(stage, "blocked")
	}
	o.auditDetail(msg.ID, msg.RecipientE164, stage, "blocked", reason, now)
	o.checkCompletion(msg.CampaignID)
}

// reschedule records the due time a message should next be attempted,
// both as an in-process timer (for low-latency wake-up) and as a
// persisted column the periodic sweep reconciles against (so a
// worker crash or restart doesn't strand the message in QUEUED
// forever — the in-process timer alone doesn't survive either).
func (o *Orchestrator) reschedule(msg *model.Message, reason string, at time.Time) {
	if o.Metrics != nil {
		o.Metrics.RecordReschedule(reason)
	}
	o.audit(msg.ID, msg.RecipientE164, reason, "rescheduled", o.Clock.Now())

	nextAttempt := sql.NullTime{Time: at, Valid: true}
	_, _ = o.Store.TransitionMessage(msg.ID, model.MessageQueued, model.MessageQueued, store.TransitionFields{NextAttemptAt: &nextAttempt})

	o.Scheduler.DelayUntil(msg.ID, at, func() {
		_ = o.Queue.PublishMessageTask(taskqueue.MessageTask{MessageID: msg.ID, CampaignID: msg.CampaignID})
	})
}

func (o *Orchestrator) audit(messageID, e164, stage, outcome string, at time.Time) {
	mid := messageID
	_ = o.Store.AppendAudit(model.AuditEntry{
		MessageID:     &mid,
		RecipientE164: e164,
		Stage:         stage,
		Outcome:       outcome,
		CreatedAt:     at,
	})
}

func (o *Orchestrator) auditDetail(messageID, e164, stage, outcome, detail string, at time.Time) {
	mid := messageID
	raw, _ := json.Marshal(map[string]string{"reason": detail})
	_ = o.Store.AppendAudit(model.AuditEntry{
		MessageID:     &mid,
		RecipientE164: e164,
		Stage:         stage,
		Outcome:       outcome,
		Detail:        raw,
		CreatedAt:     at,
	})
}
