// Package dates holds the pure time helpers the store derives display state
// from: reminder bucketing, natural-language date parsing, and recurrence
// parsing.
package dates

import (
	"time"

	"tend-cli/internal/model"
)

// Bucket is the coarse time-relative category a reminder's display status is
// derived into from its date.
type Bucket string

const (
	BucketToday     Bucket = "today"
	BucketWithin7   Bucket = "within7"
	BucketSevenPlus Bucket = "7plus"
)

func (b Bucket) Status() model.Status {
	return model.Status(b)
}

// daysBetween counts whole calendar days from a to b. Both dates are rebuilt
// at UTC midnight so DST transitions (23h or 25h local days) can't skew the
// count.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

// BucketFor maps a reminder date to its display bucket relative to now.
// Overdue dates fold into today (there is no separate overdue bucket; the UI
// groups on exactly these three values). A nil date buckets to within7 so
// never-dated reminders stay visible.
func BucketFor(now time.Time, date *time.Time) Bucket {
	if date == nil {
		return BucketWithin7
	}
	days := daysBetween(now, *date)
	switch {
	case days <= 0:
		return BucketToday
	case days <= 7:
		return BucketWithin7
	default:
		return BucketSevenPlus
	}
}

// StatusFor recomputes an item's display status. Complete is sticky; a
// recurring reminder shows its frequency; a plain reminder shows its
// date-derived bucket. Tasks keep their persisted status.
func StatusFor(now time.Time, it model.Item) model.Status {
	if it.Status == model.StatusComplete {
		return model.StatusComplete
	}
	if it.Recurring() {
		return model.Status(it.Recurrence.Frequency)
	}
	if it.Type == model.TypeReminder {
		return BucketFor(now, it.ReminderDate).Status()
	}
	return it.Status
}

// FreshStatus returns the status a freshly created (or restored) item of this
// shape receives.
func FreshStatus(now time.Time, it model.Item) model.Status {
	if it.Recurring() {
		return model.Status(it.Recurrence.Frequency)
	}
	if it.Type == model.TypeReminder {
		return BucketFor(now, it.ReminderDate).Status()
	}
	return model.StatusStart
}
