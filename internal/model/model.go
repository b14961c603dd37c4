package model

import (
	"strings"
	"time"
)

type ItemType string

const (
	TypeTask     ItemType = "task"
	TypeReminder ItemType = "reminder"
)

func (t ItemType) IsValid() bool {
	return t == TypeTask || t == TypeReminder
}

type Priority string

const (
	PriorityNow  Priority = "now"
	PriorityHigh Priority = "high"
	PriorityLow  Priority = "low"
)

// PriorityRank returns the sort rank for a priority (now < high < low).
func PriorityRank(p Priority) int {
	switch p {
	case PriorityNow:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

func (p Priority) IsValid() bool {
	return PriorityRank(p) < 3
}

// Status is a string whose valid domain depends on the item type.
// Tasks: start, in-progress, complete. Reminders: today, within7, 7plus,
// complete. Recurring reminders display their frequency name as status.
type Status string

const (
	StatusStart      Status = "start"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"

	StatusToday     Status = "today"
	StatusWithin7   Status = "within7"
	StatusSevenPlus Status = "7plus"
)

func TaskStatuses() []Status {
	return []Status{StatusStart, StatusInProgress, StatusComplete}
}

func ReminderStatuses() []Status {
	return []Status{StatusToday, StatusWithin7, StatusSevenPlus, StatusComplete}
}

func RecurringStatuses() []Status {
	return []Status{
		Status(FreqDaily), Status(FreqWeekly), Status(FreqMonthly), Status(FreqYearly),
		Status(FreqHourly), Status(FreqMinutely), StatusComplete,
	}
}

type Frequency string

const (
	FreqMinutely Frequency = "minutely"
	FreqHourly   Frequency = "hourly"
	FreqDaily    Frequency = "daily"
	FreqWeekly   Frequency = "weekly"
	FreqMonthly  Frequency = "monthly"
	FreqYearly   Frequency = "yearly"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FreqMinutely, FreqHourly, FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	default:
		return false
	}
}

// IntervalBased reports whether the frequency carries an "every N" interval.
func (f Frequency) IntervalBased() bool {
	return f == FreqMinutely || f == FreqHourly
}

// View selects which subset of items the UI renders.
type View string

const (
	ViewTasks     View = "tasks"
	ViewReminders View = "reminders"
	ViewRecurring View = "recurring"
	ViewTrash     View = "trash"
	ViewComplete  View = "complete"
)

func (v View) IsValid() bool {
	switch v {
	case ViewTasks, ViewReminders, ViewRecurring, ViewTrash, ViewComplete:
		return true
	default:
		return false
	}
}

type DisplayMode string

const (
	DisplayColumns    DisplayMode = "columns"
	DisplayCategories DisplayMode = "categories"
)

// AllLists is the pseudo-list id meaning "every list the user can see".
const AllLists = "all"

type List struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color,omitempty"`
	Icon       string    `json:"icon,omitempty"`
	Locked     bool      `json:"locked,omitempty"`
	IsDefault  bool      `json:"isDefault,omitempty"`
	SharedWith []string  `json:"sharedWith,omitempty"`
	OwnerID    string    `json:"ownerId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Shared reports whether the list has any collaborators.
func (l List) Shared() bool {
	return len(l.SharedWith) > 0
}

// AccessibleBy reports whether userID owns the list or is a collaborator.
func (l List) AccessibleBy(userID string) bool {
	if l.OwnerID == userID {
		return true
	}
	for _, c := range l.SharedWith {
		if strings.EqualFold(c, userID) {
			return true
		}
	}
	return false
}

type Recurrence struct {
	Frequency Frequency `json:"frequency"`
	TimeOfDay string    `json:"timeOfDay,omitempty"` // HH:MM
	Interval  int       `json:"interval,omitempty"`  // for minutely/hourly
	Text      string    `json:"text,omitempty"`      // original matched text
}

type Note struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reserved note conventions: a note starting with "on hold" flags the owning
// item as on hold; a note of exactly "off hold" clears the flag.
const (
	OnHoldPrefix  = "on hold"
	OffHoldMarker = "off hold"
)

func (n Note) SetsOnHold() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(n.Content)), OnHoldPrefix)
}

func (n Note) ClearsOnHold() bool {
	return strings.EqualFold(strings.TrimSpace(n.Content), OffHoldMarker)
}

type Attachment struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	MimeType  string    `json:"mimeType,omitempty"`
	SizeBytes int64     `json:"sizeBytes"`
	Sha256Hex string    `json:"sha256,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MetaOnHold is the metadata key backing the "on hold" flag.
const MetaOnHold = "onHold"

type Item struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Title    string   `json:"title"`
	Priority Priority `json:"priority"`
	Status   Status   `json:"status"`
	ListID   string   `json:"listId"`
	Category string   `json:"category,omitempty"` // task-only, free text

	Notes       []Note            `json:"notes,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`

	ReminderDate *time.Time  `json:"reminderDate,omitempty"`
	Recurrence   *Recurrence `json:"recurrence,omitempty"`

	Position  int        `json:"position,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Deleted reports whether the item is soft-deleted (in the trash).
func (it Item) Deleted() bool {
	return it.DeletedAt != nil
}

// Completed reports whether the item is completed but not trashed.
// Trash membership always wins over the complete view.
func (it Item) Completed() bool {
	return it.Status == StatusComplete && !it.Deleted()
}

// Recurring reports whether the item is the effective "recurring reminder"
// variant (stored as a reminder with a recurrence).
func (it Item) Recurring() bool {
	return it.Type == TypeReminder && it.Recurrence != nil
}

func (it Item) OnHold() bool {
	return it.Metadata[MetaOnHold] == "true"
}

// ValidStatus reports whether s is in the item's status domain.
func (it Item) ValidStatus(s Status) bool {
	if s == StatusComplete {
		return true
	}
	var domain []Status
	switch {
	case it.Recurring():
		domain = RecurringStatuses()
	case it.Type == TypeReminder:
		domain = ReminderStatuses()
	default:
		domain = TaskStatuses()
	}
	for _, d := range domain {
		if d == s {
			return true
		}
	}
	return false
}

// TitleConflicts reports whether a and b would violate title uniqueness:
// case-insensitive-identical titles on two items that are both active
// (neither deleted nor complete).
func TitleConflicts(a, b Item) bool {
	if a.ID == b.ID {
		return false
	}
	if a.Deleted() || b.Deleted() || a.Status == StatusComplete || b.Status == StatusComplete {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.Title), strings.TrimSpace(b.Title))
}
