package store

import (
	"sort"

	"tend-cli/internal/dates"
	"tend-cli/internal/model"
)

// FilteredItems projects local state through the current view and list
// filter, with statuses re-derived from the clock so reminders sit in the
// right bucket even when nothing has been written since midnight. The result
// is a fresh slice in display order.
func (s *Store) FilteredItems() []model.Item {
	s.mu.Lock()
	view := s.currentView
	listID := s.currentListID
	now := s.clock.Now()
	items := make([]model.Item, len(s.items))
	copy(items, s.items)
	listRank := make(map[string]int, len(s.lists))
	for i, l := range s.lists {
		listRank[l.ID] = i
	}
	s.mu.Unlock()

	var out []model.Item
	for _, it := range items {
		if listID != model.AllLists && it.ListID != listID {
			continue
		}
		it.Status = dates.StatusFor(now, it)
		if !matchesView(view, it) {
			continue
		}
		out = append(out, it)
	}

	switch view {
	case model.ViewTasks:
		// Priority groups (now first), stable within a group; in the
		// all-lists view the groups sub-sort by list order.
		sort.SliceStable(out, func(i, j int) bool {
			ri, rj := model.PriorityRank(out[i].Priority), model.PriorityRank(out[j].Priority)
			if ri != rj {
				return ri < rj
			}
			if listID == model.AllLists && out[i].ListID != out[j].ListID {
				return listRank[out[i].ListID] < listRank[out[j].ListID]
			}
			return false
		})
	case model.ViewReminders:
		// Ascending date; undated reminders sink to the bottom.
		sort.SliceStable(out, func(i, j int) bool {
			di, dj := out[i].ReminderDate, out[j].ReminderDate
			switch {
			case di == nil && dj == nil:
				return false
			case di == nil:
				return false
			case dj == nil:
				return true
			default:
				return di.Before(*dj)
			}
		})
	case model.ViewRecurring:
		sort.SliceStable(out, func(i, j int) bool {
			fi, fj := frequencyRank(out[i]), frequencyRank(out[j])
			if fi != fj {
				return fi < fj
			}
			return timeOfDay(out[i]) < timeOfDay(out[j])
		})
	case model.ViewTrash:
		// Most recently trashed first.
		sort.SliceStable(out, func(i, j int) bool {
			di, dj := out[i].DeletedAt, out[j].DeletedAt
			if di == nil || dj == nil {
				return dj == nil && di != nil
			}
			return di.After(*dj)
		})
	case model.ViewComplete:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		})
	}
	return out
}

func matchesView(v model.View, it model.Item) bool {
	switch v {
	case model.ViewTrash:
		return it.Deleted()
	case model.ViewComplete:
		return it.Completed()
	}
	if it.Deleted() || it.Status == model.StatusComplete {
		return false
	}
	switch v {
	case model.ViewTasks:
		return it.Type == model.TypeTask
	case model.ViewReminders:
		return it.Type == model.TypeReminder && !it.Recurring()
	case model.ViewRecurring:
		return it.Recurring()
	default:
		return false
	}
}

func frequencyRank(it model.Item) int {
	if it.Recurrence == nil {
		return 99
	}
	switch it.Recurrence.Frequency {
	case model.FreqMinutely:
		return 0
	case model.FreqHourly:
		return 1
	case model.FreqDaily:
		return 2
	case model.FreqWeekly:
		return 3
	case model.FreqMonthly:
		return 4
	case model.FreqYearly:
		return 5
	default:
		return 99
	}
}

func timeOfDay(it model.Item) string {
	if it.Recurrence == nil {
		return ""
	}
	return it.Recurrence.TimeOfDay
}

// Categories returns the distinct task categories present in the current
// projection, in first-seen order with uncategorized last.
func (s *Store) Categories() []string {
	items := s.FilteredItems()
	seen := make(map[string]bool)
	var out []string
	uncategorized := false
	for _, it := range items {
		if it.Category == "" {
			uncategorized = true
			continue
		}
		if !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	if uncategorized {
		out = append(out, "")
	}
	return out
}
