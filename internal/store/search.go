package store

import (
	"sort"
	"strings"

	"tend-cli/internal/model"
)

// Scoring weights. Title hits dominate, notes carry medium weight, date text
// matches are a tie-breaker.
const (
	scoreTitleTerm  = 10
	scoreTitleExact = 25
	scoreNoteTerm   = 4
	scoreDateTerm   = 1
)

// Search matches items whose text contains every term of the query,
// case-insensitively, ranked by a weighted score. Trashed and completed
// items never match.
func (s *Store) Search(query string) []model.Item {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}
	phrase := strings.ToLower(strings.TrimSpace(query))

	s.mu.Lock()
	items := make([]model.Item, len(s.items))
	copy(items, s.items)
	s.mu.Unlock()

	type scored struct {
		item  model.Item
		score int
	}
	var hits []scored
	for _, it := range items {
		if it.Deleted() || it.Status == model.StatusComplete {
			continue
		}
		score, ok := scoreItem(it, terms, phrase)
		if !ok {
			continue
		}
		hits = append(hits, scored{item: it, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]model.Item, len(hits))
	for i, h := range hits {
		out[i] = h.item
	}
	return out
}

// scoreItem returns the item's score and whether every term matched
// somewhere in its searchable text.
func scoreItem(it model.Item, terms []string, phrase string) (int, bool) {
	title := strings.ToLower(it.Title)
	var notes []string
	for _, n := range it.Notes {
		notes = append(notes, strings.ToLower(n.Content))
	}
	var dateText string
	if it.ReminderDate != nil {
		dateText = strings.ToLower(it.ReminderDate.Format("Monday January 2 2006"))
	}
	if it.Recurrence != nil {
		dateText += " " + strings.ToLower(it.Recurrence.Text)
	}

	score := 0
	for _, term := range terms {
		found := false
		if strings.Contains(title, term) {
			score += scoreTitleTerm
			found = true
		}
		for _, note := range notes {
			if strings.Contains(note, term) {
				score += scoreNoteTerm
				found = true
			}
		}
		if strings.Contains(dateText, term) {
			score += scoreDateTerm
			found = true
		}
		if !found {
			return 0, false
		}
	}
	if strings.Contains(title, phrase) {
		score += scoreTitleExact
	}
	return score, true
}
