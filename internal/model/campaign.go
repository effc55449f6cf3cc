// internal/model/campaign.go
package model

import "time"

// CampaignStatus is a node in the campaign state machine (DRAFT -> READY
// -> RUNNING -> {PAUSED,COMPLETED,FAILED}).
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "DRAFT"
	CampaignReady     CampaignStatus = "READY"
	CampaignRunning   CampaignStatus = "RUNNING"
	CampaignPaused    CampaignStatus = "PAUSED"
	CampaignCompleted CampaignStatus = "COMPLETED"
	CampaignFailed    CampaignStatus = "FAILED"
)

// Campaign is a scheduled send against a segment, using a template,
// bounded by a rate limit and a quiet-hours window.
type Campaign struct {
	ID              int            `db:"id" json:"id"`
	Topic           string         `db:"topic" json:"topic"`
	TemplateID      int            `db:"template_id" json:"template_id"`
	SegmentID       int            `db:"segment_id" json:"segment_id"`
	ScheduleTime    *time.Time     `db:"schedule_time" json:"schedule_time,omitempty"`
	Status          CampaignStatus `db:"status" json:"status"`
	RateLimitPerSec int            `db:"rate_limit_per_second" json:"rate_limit_per_second"`
	QuietHoursStart string         `db:"quiet_hours_start" json:"quiet_hours_start"` // "HH:MM"
	QuietHoursEnd   string         `db:"quiet_hours_end" json:"quiet_hours_end"`     // "HH:MM"
	QuietHoursTZ    string         `db:"quiet_hours_timezone" json:"quiet_hours_timezone"`

	// MaterializationCursor persists the SegmentEvaluator cursor so a
	// crashed RUNNING campaign resumes materialization without
	// re-creating already-materialized messages.
	MaterializationCursor string `db:"materialization_cursor" json:"materialization_cursor,omitempty"`

	// MaterializationDone is set once the SegmentEvaluator stream has
	// fully drained; completion detection (spec.md §4.7) requires both
	// this and every materialized Message reaching a terminal status.
	MaterializationDone bool       `db:"materialization_done" json:"materialization_done"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Overnight reports whether the quiet window wraps past midnight.
func (c *Campaign) Overnight() bool {
	return c.QuietHoursEnd != "" && c.QuietHoursStart != "" && c.QuietHoursEnd < c.QuietHoursStart
}
