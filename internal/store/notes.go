package store

import (
	"context"

	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

// AddNote persists a note and merges the server copy into the owning item.
// Notes are never applied optimistically: their ids come from the gateway.
// Adding an "on hold" / "off hold" note flips the item's hold flag.
func (s *Store) AddNote(ctx context.Context, itemID, content string) error {
	if content == "" {
		return s.fail("adding note", gateway.ValidationError{Msg: "note can't be empty"})
	}
	s.mu.Lock()
	if s.findItem(itemID) == nil {
		s.mu.Unlock()
		return s.fail("adding note", gateway.NotFoundError{Kind: "item", ID: itemID})
	}
	s.mu.Unlock()

	note, err := s.gw.AddNote(ctx, itemID, content)
	if err != nil {
		return s.fail("adding note", err)
	}

	s.clearErr()
	s.mu.Lock()
	if it := s.findItem(itemID); it != nil {
		replaced := false
		for i, n := range it.Notes {
			if n.ID == note.ID {
				it.Notes[i] = note
				replaced = true
				break
			}
		}
		if !replaced {
			it.Notes = append(it.Notes, note)
		}
		s.applyHoldNote(it, note)
	}
	s.mu.Unlock()
	s.markRecentlyUpdated(itemID)
	return nil
}

// UpdateNote rewrites a note's content in place.
func (s *Store) UpdateNote(ctx context.Context, noteID, content string) error {
	if content == "" {
		return s.fail("updating note", gateway.ValidationError{Msg: "note can't be empty"})
	}
	s.mu.Lock()
	itemID := s.noteOwner(noteID)
	s.mu.Unlock()
	if itemID == "" {
		return s.fail("updating note", gateway.NotFoundError{Kind: "note", ID: noteID})
	}

	note, err := s.gw.UpdateNote(ctx, noteID, content)
	if err != nil {
		return s.fail("updating note", err)
	}

	s.clearErr()
	s.mu.Lock()
	if it := s.findItem(itemID); it != nil {
		for i, n := range it.Notes {
			if n.ID == noteID {
				it.Notes[i] = note
				break
			}
		}
		s.applyHoldNote(it, note)
	}
	s.mu.Unlock()
	s.markRecentlyUpdated(itemID)
	return nil
}

// DeleteNote removes a note from its item.
func (s *Store) DeleteNote(ctx context.Context, noteID string) error {
	s.mu.Lock()
	itemID := s.noteOwner(noteID)
	s.mu.Unlock()
	if itemID == "" {
		return s.fail("deleting note", gateway.NotFoundError{Kind: "note", ID: noteID})
	}

	if err := s.gw.DeleteNote(ctx, noteID); err != nil {
		return s.fail("deleting note", err)
	}

	s.clearErr()
	s.mu.Lock()
	if it := s.findItem(itemID); it != nil {
		for i, n := range it.Notes {
			if n.ID == noteID {
				it.Notes = append(it.Notes[:i], it.Notes[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	s.markRecentlyUpdated(itemID)
	return nil
}

// noteOwner returns the id of the item holding noteID, or "". Callers hold
// s.mu.
func (s *Store) noteOwner(noteID string) string {
	for i := range s.items {
		for _, n := range s.items[i].Notes {
			if n.ID == noteID {
				return s.items[i].ID
			}
		}
	}
	return ""
}

// applyHoldNote flips the item's hold metadata when the note uses the
// reserved on-hold conventions. Callers hold s.mu.
func (s *Store) applyHoldNote(it *model.Item, note model.Note) {
	switch {
	case note.ClearsOnHold():
		delete(it.Metadata, model.MetaOnHold)
	case note.SetsOnHold():
		if it.Metadata == nil {
			it.Metadata = map[string]string{}
		}
		it.Metadata[model.MetaOnHold] = "true"
	}
}
