package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValidStatusPerType(t *testing.T) {
	task := Item{Type: TypeTask}
	reminder := Item{Type: TypeReminder}
	recurring := Item{Type: TypeReminder, Recurrence: &Recurrence{Frequency: FreqWeekly}}

	cases := []struct {
		name string
		item Item
		s    Status
		want bool
	}{
		{"task start", task, StatusStart, true},
		{"task in-progress", task, StatusInProgress, true},
		{"task complete", task, StatusComplete, true},
		{"task today", task, StatusToday, false},
		{"reminder today", reminder, StatusToday, true},
		{"reminder 7plus", reminder, StatusSevenPlus, true},
		{"reminder start", reminder, StatusStart, false},
		{"recurring weekly", recurring, Status(FreqWeekly), true},
		{"recurring today", recurring, StatusToday, false},
		{"recurring complete", recurring, StatusComplete, true},
	}
	for _, tc := range cases {
		if got := tc.item.ValidStatus(tc.s); got != tc.want {
			t.Fatalf("%s: ValidStatus(%q) = %v, want %v", tc.name, tc.s, got, tc.want)
		}
	}
}

func TestTitleConflicts(t *testing.T) {
	now := time.Now()
	a := Item{ID: "item-a", Title: "Buy milk"}
	b := Item{ID: "item-b", Title: "buy MILK"}
	if !TitleConflicts(a, b) {
		t.Fatalf("expected case-insensitive conflict")
	}
	b.DeletedAt = &now
	if TitleConflicts(a, b) {
		t.Fatalf("deleted item must not conflict")
	}
	b.DeletedAt = nil
	b.Status = StatusComplete
	if TitleConflicts(a, b) {
		t.Fatalf("completed item must not conflict")
	}
	if TitleConflicts(a, a) {
		t.Fatalf("item must not conflict with itself")
	}
}

func TestCompletedAndDeletedAreExclusiveViews(t *testing.T) {
	now := time.Now()
	it := Item{Status: StatusComplete, DeletedAt: &now}
	if it.Completed() {
		t.Fatalf("trashed item must not count as completed")
	}
	if !it.Deleted() {
		t.Fatalf("expected deleted")
	}
}

func TestNoteOnHoldConventions(t *testing.T) {
	cases := []struct {
		content string
		sets    bool
		clears  bool
	}{
		{"on hold until Monday", true, false},
		{"  On Hold ", true, false},
		{"off hold", false, true},
		{" OFF HOLD ", false, true},
		{"offline holdings report", false, false},
		{"regular note", false, false},
	}
	for _, tc := range cases {
		n := Note{Content: tc.content}
		if got := n.SetsOnHold(); got != tc.sets {
			t.Fatalf("SetsOnHold(%q) = %v, want %v", tc.content, got, tc.sets)
		}
		if got := n.ClearsOnHold(); got != tc.clears {
			t.Fatalf("ClearsOnHold(%q) = %v, want %v", tc.content, got, tc.clears)
		}
	}
}

func TestItemPatchApplyClearVsUnchanged(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)
	it := Item{
		ID:           "item-x",
		Type:         TypeReminder,
		Title:        "Dentist",
		Priority:     PriorityLow,
		ReminderDate: &due,
		Category:     "health",
	}

	// Unchanged fields stay put.
	p := ItemPatch{Title: Set("Dentist appt")}
	p.Apply(&it, now)
	if it.Title != "Dentist appt" || it.ReminderDate == nil || it.Category != "health" {
		t.Fatalf("unexpected state after title-only patch: %+v", it)
	}
	if !it.UpdatedAt.Equal(now) {
		t.Fatalf("expected UpdatedAt stamp")
	}

	// Explicit clear empties optional fields.
	p = ItemPatch{ReminderDate: Clear[time.Time](), Category: Clear[string]()}
	p.Apply(&it, now)
	if it.ReminderDate != nil {
		t.Fatalf("expected reminder date cleared")
	}
	if it.Category != "" {
		t.Fatalf("expected category cleared")
	}
}

func TestItemPatchWireRoundTrip(t *testing.T) {
	due := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	p := ItemPatch{
		Title:        Set("X"),
		Status:       Set(StatusToday),
		ReminderDate: Set(due),
		Category:     Clear[string](),
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got ItemPatch
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := got.Title.Value(); !ok || v != "X" {
		t.Fatalf("title lost: %+v", got.Title)
	}
	if v, ok := got.ReminderDate.Value(); !ok || !v.Equal(due) {
		t.Fatalf("reminder date lost")
	}
	if !got.Category.Cleared() {
		t.Fatalf("clear must survive the wire as null")
	}
	if got.Priority.Touched() {
		t.Fatalf("untouched field must stay untouched")
	}
}
