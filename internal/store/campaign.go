package store

import (
	"database/sql"
	"time"

	appErrors "github.com/relaytide/campaign-platform/internal/errors"
	"github.com/relaytide/campaign-platform/internal/model"
)

// GetCampaign fetches a Campaign by ID.
func (s *Store) GetCampaign(id int) (*model.Campaign, error) {
	query := `
		SELECT id, topic, template_id, segment_id, schedule_time, status,
		       rate_limit_per_second, quiet_hours_start, quiet_hours_end,
		       quiet_hours_timezone, materialization_cursor, materialization_done,
		       created_at, updated_at
		FROM campaigns WHERE id = $1
	`
	var c model.Campaign
	err := s.DB.QueryRow(query, id).Scan(
		&c.ID, &c.Topic, &c.TemplateID, &c.SegmentID, &c.ScheduleTime, &c.Status,
		&c.RateLimitPerSec, &c.QuietHoursStart, &c.QuietHoursEnd,
		&c.QuietHoursTZ, &c.MaterializationCursor, &c.MaterializationDone,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	if err != nil {
		return nil, wrapStorageErr("GetCampaign", err)
	}
	return &c, nil
}

// CreateCampaign inserts a new Campaign in DRAFT and populates its ID.
func (s *Store) CreateCampaign(c *model.Campaign) error {
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
		INSERT INTO campaigns (topic, template_id, segment_id, schedule_time, status,
		       rate_limit_per_second, quiet_hours_start, quiet_hours_end, quiet_hours_timezone,
		       materialization_cursor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', NOW())
		RETURNING id, created_at
	`
	err := s.DB.QueryRow(query, c.Topic, c.TemplateID, c.SegmentID, c.ScheduleTime, c.Status,
		c.RateLimitPerSec, c.QuietHoursStart, c.QuietHoursEnd, c.QuietHoursTZ,
	).Scan(&c.ID, &c.CreatedAt)
	return wrapStorageErr("CreateCampaign", err)
}

// TransitionCampaignStatus is a compare-and-set on the campaign state
// machine (spec.md §4.7). ok is false if current status != from, which
// callers treat as "someone else already moved it" (a no-op, not an
// error) per the "a second trigger is a no-op" rule in spec.md §5.
func (s *Store) TransitionCampaignStatus(id int, from, to model.CampaignStatus) (ok bool, err error) {
	res, err := s.DB.Exec(
		`UPDATE campaigns SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return false, wrapStorageErr("TransitionCampaignStatus", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, wrapStorageErr("TransitionCampaignStatus", err)
	}
	return affected == 1, nil
}

// UpdateMaterializationCursor persists the evaluator's resumption point
// so a crash-restarted RUNNING campaign does not re-walk already
// materialized recipients.
func (s *Store) UpdateMaterializationCursor(id int, cursor string) error {
	_, err := s.DB.Exec(`UPDATE campaigns SET materialization_cursor = $1, updated_at = NOW() WHERE id = $2`, cursor, id)
	return wrapStorageErr("UpdateMaterializationCursor", err)
}

// ListRunningCampaigns returns every campaign in RUNNING, for the
// periodic completion sweep (spec.md §4.7).
func (s *Store) ListRunningCampaigns() ([]model.Campaign, error) {
	query := `
		SELECT id, topic, template_id, segment_id, schedule_time, status,
		       rate_limit_per_second, quiet_hours_start, quiet_hours_end,
		       quiet_hours_timezone, materialization_cursor, materialization_done,
		       created_at, updated_at
		FROM campaigns WHERE status = $1 ORDER BY id ASC
	`
	rows, err := s.DB.Query(query, model.CampaignRunning)
	if err != nil {
		return nil, wrapStorageErr("ListRunningCampaigns", err)
	}
	defer rows.Close()

	var out []model.Campaign
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(
			&c.ID, &c.Topic, &c.TemplateID, &c.SegmentID, &c.ScheduleTime, &c.Status,
			&c.RateLimitPerSec, &c.QuietHoursStart, &c.QuietHoursEnd,
			&c.QuietHoursTZ, &c.MaterializationCursor, &c.MaterializationDone,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, wrapStorageErr("ListRunningCampaigns", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// MarkMaterializationDone records that the SegmentEvaluator stream for
// id has fully drained, one of the two conditions completion detection
// requires (spec.md §4.7).
func (s *Store) MarkMaterializationDone(id int) error {
	_, err := s.DB.Exec(`UPDATE campaigns SET materialization_done = true, updated_at = NOW() WHERE id = $1`, id)
	return wrapStorageErr("MarkMaterializationDone", err)
}

// ListCampaignsDue returns READY campaigns whose schedule_time has
// elapsed (or is unset), for the periodic scheduler tick.
func (s *Store) ListCampaignsDue(now time.Time) ([]model.Campaign, error) {
	query := `
		SELECT id, topic, template_id, segment_id, schedule_time, status,
		       rate_limit_per_second, quiet_hours_start, quiet_hours_end,
		       quiet_hours_timezone, materialization_cursor, materialization_done,
		       created_at, updated_at
		FROM campaigns
		WHERE status = $1 AND (schedule_time IS NULL OR schedule_time <= $2)
		ORDER BY id ASC
	`
	rows, err := s.DB.Query(query, model.CampaignReady, now)
	if err != nil {
		return nil, wrapStorageErr("ListCampaignsDue", err)
	}
	defer rows.Close()

	var out []model.Campaign
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(
			&c.ID, &c.Topic, &c.TemplateID, &c.SegmentID, &c.ScheduleTime, &c.Status,
			&c.RateLimitPerSec, &c.QuietHoursStart, &c.QuietHoursEnd,
			&c.QuietHoursTZ, &c.MaterializationCursor, &c.MaterializationDone,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, wrapStorageErr("ListCampaignsDue", err)
		}
		out = append(out, c)
	}
	return out, nil
}
