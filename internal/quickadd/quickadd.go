// Package quickadd turns one line of free text into an item draft: type,
// title, priority, list, date and recurrence are all inferred from tokens
// the user typed inline.
package quickadd

import (
	"regexp"
	"strings"
	"time"

	"tend-cli/internal/dates"
	"tend-cli/internal/model"
)

// Draft is the parsed shape of a quick-add line, before persistence.
type Draft struct {
	Title        string
	Type         model.ItemType
	Priority     model.Priority
	ListName     string // "#list" token, unresolved
	ReminderDate *time.Time
	Recurrence   *model.Recurrence
}

var (
	reListToken = regexp.MustCompile(`#([\p{L}\d][\p{L}\d _-]*)`)
	reUrgent    = regexp.MustCompile(`(?i)\b(urgent|asap)\b`)
	reImportant = regexp.MustCompile(`(?i)\bimportant\b`)
	reSpaces    = regexp.MustCompile(`\s+`)
)

// Parse interprets text relative to now. The title is what remains after
// every consumed token is stripped; an empty remainder falls back to the
// raw input.
func Parse(now time.Time, text string) Draft {
	d := Draft{Type: model.TypeTask, Priority: model.PriorityLow}
	working := strings.TrimSpace(text)

	// "#list" token.
	if m := reListToken.FindStringSubmatch(working); m != nil {
		d.ListName = strings.TrimSpace(m[1])
		working = strings.Replace(working, m[0], "", 1)
	}

	// Priority markers. "!" is now; "urgent"/"asap" is now; "important" is
	// high.
	switch {
	case strings.Contains(working, "!"):
		d.Priority = model.PriorityNow
		working = strings.ReplaceAll(working, "!", "")
	case reUrgent.MatchString(working):
		d.Priority = model.PriorityNow
		working = reUrgent.ReplaceAllString(working, "")
	case reImportant.MatchString(working):
		d.Priority = model.PriorityHigh
		working = reImportant.ReplaceAllString(working, "")
	}

	// Recurrence beats a one-shot date when both could match ("every
	// friday" must not become a single friday reminder).
	if rec, ok := dates.ParseRecurrence(now, working); ok {
		d.Type = model.TypeReminder
		r := rec
		d.Recurrence = &r
		if r.Text != "" {
			working = stripPhrase(working, r.Text)
		}
	} else if matches := dates.ParseAll(now, working); len(matches) > 0 {
		d.Type = model.TypeReminder
		t := matches[0].Date
		d.ReminderDate = &t
		working = stripPhrase(working, matches[0].Text)
	}

	d.Title = tidy(working)
	if d.Title == "" {
		d.Title = strings.TrimSpace(text)
	}
	return d
}

// Item materializes the draft. The caller resolves ListName to a list id
// beforehand; listID lands on the item verbatim.
func (d Draft) Item(now time.Time, listID string) model.Item {
	it := model.Item{
		Type:         d.Type,
		Title:        d.Title,
		Priority:     d.Priority,
		ListID:       listID,
		ReminderDate: d.ReminderDate,
		Recurrence:   d.Recurrence,
	}
	it.Status = dates.FreshStatus(now, it)
	return it
}

// stripPhrase removes phrase and any dangling connective left before it
// ("dentist on friday" loses "on friday", not just "friday").
func stripPhrase(text, phrase string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(phrase))
	if idx < 0 {
		return text
	}
	head := text[:idx]
	tail := text[idx+len(phrase):]
	trimmed := strings.TrimRight(head, " ")
	for _, conn := range []string{"at", "on", "by"} {
		if strings.HasSuffix(strings.ToLower(trimmed), " "+conn) || strings.EqualFold(trimmed, conn) {
			head = trimmed[:len(trimmed)-len(conn)]
			break
		}
	}
	return head + tail
}

func tidy(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}
