package orchestrator

import (
	"time"

	"github.com/relaytide/campaign-platform/internal/model"
)

// inQuietHours reports whether now (as observed in the recipient's
// timezone) falls inside the campaign's quiet window, and if so the
// instant dispatch may resume. Timezone resolution order per spec.md
// §12: recipient attribute "timezone" -> campaign quiet_hours_timezone
// -> UTC. Grounded on original_source's is_in_quiet_hours, generalized
// from UTC-only to per-recipient timezone resolution.
func inQuietHours(c model.Campaign, recipientTZ string, now time.Time) (blocked bool, resumeAt time.Time) {
	if c.QuietHoursStart == "" || c.QuietHoursEnd == "" {
		return false, time.Time{}
	}

	tzName := recipientTZ
	if tzName == "" {
		tzName = c.QuietHoursTZ
	}
	if tzName == "" {
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.UTC
	}

	local := now.In(loc)
	start, errS := time.ParseInLocation("15:04", c.QuietHoursStart, loc)
	end, errE := time.ParseInLocation("15:04", c.QuietHoursEnd, loc)
	if errS != nil || errE != nil {
		return false, time.Time{}
	}

	todayStart := time.Date(local.Year(), local.Month(), local.Day(), start.Hour(), start.Minute(), 0, 0, loc)
	todayEnd := time.Date(local.Year(), local.Month(), local.Day(), end.Hour(), end.Minute(), 0, 0, loc)

	if c.Overnight() {
		switch {
		case !local.Before(todayStart):
			return true, todayEnd.AddDate(0, 0, 1)
		case local.Before(todayEnd):
			return true, todayEnd
		default:
			return false, time.Time{}
		}
	}

	if !local.Before(todayStart) && local.Before(todayEnd) {
		return true, todayEnd
	}
	return false, time.Time{}
}
