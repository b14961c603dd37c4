package dates

import (
	"testing"
	"time"

	"tend-cli/internal/model"
)

var bucketNow = time.Date(2026, 4, 15, 14, 30, 0, 0, time.UTC)

func datePtr(t time.Time) *time.Time { return &t }

func TestBucketFor(t *testing.T) {
	cases := []struct {
		name string
		date *time.Time
		want Bucket
	}{
		{"nil date", nil, BucketWithin7},
		{"earlier today", datePtr(bucketNow.Add(-2 * time.Hour)), BucketToday},
		{"later today", datePtr(bucketNow.Add(8 * time.Hour)), BucketToday},
		{"overdue folds into today", datePtr(bucketNow.AddDate(0, 0, -3)), BucketToday},
		{"tomorrow", datePtr(bucketNow.AddDate(0, 0, 1)), BucketWithin7},
		{"seven days out", datePtr(bucketNow.AddDate(0, 0, 7)), BucketWithin7},
		{"eight days out", datePtr(bucketNow.AddDate(0, 0, 8)), BucketSevenPlus},
		{"next year", datePtr(bucketNow.AddDate(1, 0, 0)), BucketSevenPlus},
	}
	for _, tc := range cases {
		if got := BucketFor(bucketNow, tc.date); got != tc.want {
			t.Fatalf("%s: BucketFor = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestBucketForUsesCalendarDaysNotDurations(t *testing.T) {
	// 23:00 tonight vs 01:00 tomorrow: two hours apart, different buckets.
	tonight := time.Date(2026, 4, 15, 23, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2026, 4, 16, 1, 0, 0, 0, time.UTC)
	if got := BucketFor(bucketNow, &tonight); got != BucketToday {
		t.Fatalf("tonight: got %q", got)
	}
	if got := BucketFor(bucketNow, &tomorrow); got != BucketWithin7 {
		t.Fatalf("tomorrow: got %q", got)
	}
}

func TestBucketForSurvivesDSTTransitions(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}

	// US clocks spring forward on 2026-03-08, making that local day 23h.
	now := time.Date(2026, 3, 7, 22, 0, 0, 0, loc)
	nextDay := time.Date(2026, 3, 8, 9, 0, 0, 0, loc)
	if got := BucketFor(now, &nextDay); got != BucketWithin7 {
		t.Fatalf("day after, across the transition: got %q", got)
	}

	// Exactly at the boundary: still today despite the short day.
	shortDayNow := time.Date(2026, 3, 8, 10, 0, 0, 0, loc)
	laterSameDay := time.Date(2026, 3, 8, 23, 0, 0, 0, loc)
	if got := BucketFor(shortDayNow, &laterSameDay); got != BucketToday {
		t.Fatalf("same short day: got %q", got)
	}
	dayAfterShort := time.Date(2026, 3, 9, 9, 0, 0, 0, loc)
	if got := BucketFor(shortDayNow, &dayAfterShort); got != BucketWithin7 {
		t.Fatalf("day after the short day: got %q", got)
	}

	// Eight calendar days out must not round down to seven.
	eightOut := time.Date(2026, 3, 15, 9, 0, 0, 0, loc)
	if got := BucketFor(now, &eightOut); got != BucketSevenPlus {
		t.Fatalf("eight days out across the transition: got %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	in3 := bucketNow.AddDate(0, 0, 3)
	cases := []struct {
		name string
		item model.Item
		want model.Status
	}{
		{
			"complete is sticky",
			model.Item{Type: model.TypeReminder, Status: model.StatusComplete, ReminderDate: &in3},
			model.StatusComplete,
		},
		{
			"recurring shows frequency",
			model.Item{Type: model.TypeReminder, Status: model.StatusToday, Recurrence: &model.Recurrence{Frequency: model.FreqDaily}},
			model.Status(model.FreqDaily),
		},
		{
			"reminder recomputes from date",
			model.Item{Type: model.TypeReminder, Status: model.StatusSevenPlus, ReminderDate: &in3},
			model.StatusWithin7,
		},
		{
			"task keeps persisted status",
			model.Item{Type: model.TypeTask, Status: model.StatusInProgress},
			model.StatusInProgress,
		},
	}
	for _, tc := range cases {
		if got := StatusFor(bucketNow, tc.item); got != tc.want {
			t.Fatalf("%s: StatusFor = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFreshStatus(t *testing.T) {
	in10 := bucketNow.AddDate(0, 0, 10)
	if got := FreshStatus(bucketNow, model.Item{Type: model.TypeTask}); got != model.StatusStart {
		t.Fatalf("task: got %q", got)
	}
	rec := model.Item{Type: model.TypeReminder, Recurrence: &model.Recurrence{Frequency: model.FreqMonthly}}
	if got := FreshStatus(bucketNow, rec); got != model.Status(model.FreqMonthly) {
		t.Fatalf("recurring: got %q", got)
	}
	rem := model.Item{Type: model.TypeReminder, ReminderDate: &in10}
	if got := FreshStatus(bucketNow, rem); got != model.StatusSevenPlus {
		t.Fatalf("dated reminder: got %q", got)
	}
}
