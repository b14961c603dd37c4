package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Opt is a three-state optional patch value: unchanged (zero value), set to a
// concrete value, or an explicit clear. This removes the ambiguity between
// "field not provided" and "field set to null".
type Opt[T any] struct {
	touched bool
	cleared bool
	value   T
}

func Set[T any](v T) Opt[T] {
	return Opt[T]{touched: true, value: v}
}

func Clear[T any]() Opt[T] {
	return Opt[T]{touched: true, cleared: true}
}

// Touched reports whether the field was provided at all (set or clear).
func (o Opt[T]) Touched() bool { return o.touched }

// Cleared reports whether the field was explicitly cleared.
func (o Opt[T]) Cleared() bool { return o.touched && o.cleared }

// Value returns the set value; ok is false for unchanged or cleared fields.
func (o Opt[T]) Value() (T, bool) {
	if !o.touched || o.cleared {
		var zero T
		return zero, false
	}
	return o.value, true
}

// ItemPatch enumerates the fields an item mutation may touch.
type ItemPatch struct {
	Title        Opt[string]
	Priority     Opt[Priority]
	Status       Opt[Status]
	ListID       Opt[string]
	Category     Opt[string]
	ReminderDate Opt[time.Time]
	Recurrence   Opt[Recurrence]
	Position     Opt[int]
	DeletedAt    Opt[time.Time]
	Metadata     Opt[map[string]string]
}

func (p ItemPatch) Empty() bool {
	return !p.Title.Touched() && !p.Priority.Touched() && !p.Status.Touched() &&
		!p.ListID.Touched() && !p.Category.Touched() && !p.ReminderDate.Touched() &&
		!p.Recurrence.Touched() && !p.Position.Touched() && !p.DeletedAt.Touched() &&
		!p.Metadata.Touched()
}

// Apply mutates it in place. Cleared optional fields are zeroed; cleared
// required fields are ignored. UpdatedAt is stamped with now.
func (p ItemPatch) Apply(it *Item, now time.Time) {
	if v, ok := p.Title.Value(); ok {
		it.Title = v
	}
	if v, ok := p.Priority.Value(); ok {
		it.Priority = v
	}
	if v, ok := p.Status.Value(); ok {
		it.Status = v
	}
	if v, ok := p.ListID.Value(); ok {
		it.ListID = v
	}
	if p.Category.Touched() {
		v, _ := p.Category.Value()
		it.Category = v
	}
	if p.ReminderDate.Touched() {
		if v, ok := p.ReminderDate.Value(); ok {
			t := v
			it.ReminderDate = &t
		} else {
			it.ReminderDate = nil
		}
	}
	if p.Recurrence.Touched() {
		if v, ok := p.Recurrence.Value(); ok {
			r := v
			it.Recurrence = &r
		} else {
			it.Recurrence = nil
		}
	}
	if v, ok := p.Position.Value(); ok {
		it.Position = v
	}
	if p.DeletedAt.Touched() {
		if v, ok := p.DeletedAt.Value(); ok {
			t := v
			it.DeletedAt = &t
		} else {
			it.DeletedAt = nil
		}
	}
	if p.Metadata.Touched() {
		v, _ := p.Metadata.Value()
		it.Metadata = v
	}
	it.UpdatedAt = now
}

// ListPatch enumerates the fields a list mutation may touch.
type ListPatch struct {
	Name       Opt[string]
	Color      Opt[string]
	Icon       Opt[string]
	Locked     Opt[bool]
	SharedWith Opt[[]string]
}

func (p ListPatch) Empty() bool {
	return !p.Name.Touched() && !p.Color.Touched() && !p.Icon.Touched() &&
		!p.Locked.Touched() && !p.SharedWith.Touched()
}

func (p ListPatch) Apply(l *List, now time.Time) {
	if v, ok := p.Name.Value(); ok {
		l.Name = v
	}
	if p.Color.Touched() {
		v, _ := p.Color.Value()
		l.Color = v
	}
	if p.Icon.Touched() {
		v, _ := p.Icon.Value()
		l.Icon = v
	}
	if v, ok := p.Locked.Value(); ok {
		l.Locked = v
	}
	if p.SharedWith.Touched() {
		v, _ := p.SharedWith.Value()
		l.SharedWith = v
	}
	l.UpdatedAt = now
}

// Wire format: patches marshal to a JSON object holding only touched fields,
// with JSON null meaning an explicit clear. Untouched fields are absent.

func optToWire[T any](m map[string]json.RawMessage, key string, o Opt[T]) error {
	if !o.Touched() {
		return nil
	}
	if o.Cleared() {
		m[key] = json.RawMessage("null")
		return nil
	}
	v, _ := o.Value()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m[key] = raw
	return nil
}

func optFromWire[T any](m map[string]json.RawMessage, key string, o *Opt[T]) error {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		*o = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("patch field %q: %w", key, err)
	}
	*o = Set(v)
	return nil
}

func (p ItemPatch) MarshalJSON() ([]byte, error) {
	m := map[string]json.RawMessage{}
	if err := optToWire(m, "title", p.Title); err != nil {
		return nil, err
	}
	if err := optToWire(m, "priority", p.Priority); err != nil {
		return nil, err
	}
	if err := optToWire(m, "status", p.Status); err != nil {
		return nil, err
	}
	if err := optToWire(m, "listId", p.ListID); err != nil {
		return nil, err
	}
	if err := optToWire(m, "category", p.Category); err != nil {
		return nil, err
	}
	if err := optToWire(m, "reminderDate", p.ReminderDate); err != nil {
		return nil, err
	}
	if err := optToWire(m, "recurrence", p.Recurrence); err != nil {
		return nil, err
	}
	if err := optToWire(m, "position", p.Position); err != nil {
		return nil, err
	}
	if err := optToWire(m, "deletedAt", p.DeletedAt); err != nil {
		return nil, err
	}
	if err := optToWire(m, "metadata", p.Metadata); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func (p *ItemPatch) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*p = ItemPatch{}
	if err := optFromWire(m, "title", &p.Title); err != nil {
		return err
	}
	if err := optFromWire(m, "priority", &p.Priority); err != nil {
		return err
	}
	if err := optFromWire(m, "status", &p.Status); err != nil {
		return err
	}
	if err := optFromWire(m, "listId", &p.ListID); err != nil {
		return err
	}
	if err := optFromWire(m, "category", &p.Category); err != nil {
		return err
	}
	if err := optFromWire(m, "reminderDate", &p.ReminderDate); err != nil {
		return err
	}
	if err := optFromWire(m, "recurrence", &p.Recurrence); err != nil {
		return err
	}
	if err := optFromWire(m, "position", &p.Position); err != nil {
		return err
	}
	if err := optFromWire(m, "deletedAt", &p.DeletedAt); err != nil {
		return err
	}
	if err := optFromWire(m, "metadata", &p.Metadata); err != nil {
		return err
	}
	return nil
}

func (p ListPatch) MarshalJSON() ([]byte, error) {
	m := map[string]json.RawMessage{}
	if err := optToWire(m, "name", p.Name); err != nil {
		return nil, err
	}
	if err := optToWire(m, "color", p.Color); err != nil {
		return nil, err
	}
	if err := optToWire(m, "icon", p.Icon); err != nil {
		return nil, err
	}
	if err := optToWire(m, "locked", p.Locked); err != nil {
		return nil, err
	}
	if err := optToWire(m, "sharedWith", p.SharedWith); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func (p *ListPatch) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*p = ListPatch{}
	if err := optFromWire(m, "name", &p.Name); err != nil {
		return err
	}
	if err := optFromWire(m, "color", &p.Color); err != nil {
		return err
	}
	if err := optFromWire(m, "icon", &p.Icon); err != nil {
		return err
	}
	if err := optFromWire(m, "locked", &p.Locked); err != nil {
		return err
	}
	if err := optFromWire(m, "sharedWith", &p.SharedWith); err != nil {
		return err
	}
	return nil
}
