package store

import (
	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

// ApplyChange folds one realtime event into local state. Events are the
// confirmation channel for in-flight shared-list writes and the only way
// collaborator edits arrive, so updates and deletes apply unconditionally;
// inserts are filtered to shared lists because the local writer already
// holds its own creations.
func (s *Store) ApplyChange(ev gateway.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Table {
	case gateway.TableItems:
		s.applyItemChange(ev)
	case gateway.TableLists:
		s.applyListChange(ev)
	case gateway.TableNotes:
		s.applyNoteChange(ev)
	}
}

func (s *Store) applyItemChange(ev gateway.ChangeEvent) {
	switch ev.Type {
	case gateway.EventInsert:
		if ev.Item == nil {
			return
		}
		if !s.listShared(ev.Item.ListID) {
			return
		}
		if s.findItem(ev.Item.ID) == nil {
			s.items = append(s.items, *ev.Item)
		}
	case gateway.EventUpdate:
		if ev.Item == nil {
			return
		}
		s.clearInFlightLocked(ev.Item.ID)
		if cur := s.findItem(ev.Item.ID); cur != nil {
			*cur = *ev.Item
		} else if s.listShared(ev.Item.ListID) {
			// An update for an item we never saw: treat as insert.
			s.items = append(s.items, *ev.Item)
		}
	case gateway.EventDelete:
		if ev.Item == nil {
			return
		}
		id := ev.Item.ID
		s.clearInFlightLocked(id)
		s.removeItem(id)
		if s.selectedID == id {
			s.selectedID = ""
		}
	}
}

func (s *Store) applyListChange(ev gateway.ChangeEvent) {
	switch ev.Type {
	case gateway.EventInsert:
		if ev.List == nil {
			return
		}
		if s.findList(ev.List.ID) == nil {
			s.lists = append(s.lists, *ev.List)
		}
	case gateway.EventUpdate:
		if ev.List == nil {
			return
		}
		if cur := s.findList(ev.List.ID); cur != nil {
			*cur = *ev.List
		} else {
			s.lists = append(s.lists, *ev.List)
		}
	case gateway.EventDelete:
		id := ev.ListID
		if id == "" && ev.List != nil {
			id = ev.List.ID
		}
		if id == "" {
			return
		}
		for i, l := range s.lists {
			if l.ID == id {
				s.lists = append(s.lists[:i], s.lists[i+1:]...)
				break
			}
		}
		fallback := s.fallbackListID(id)
		kept := s.items[:0]
		for _, it := range s.items {
			if it.ListID != id {
				kept = append(kept, it)
				continue
			}
			if it.Deleted() {
				it.ListID = fallback
				kept = append(kept, it)
				continue
			}
			if s.selectedID == it.ID {
				s.selectedID = ""
			}
		}
		s.items = kept
		if s.currentListID == id {
			s.currentListID = model.AllLists
		}
	}
}

func (s *Store) applyNoteChange(ev gateway.ChangeEvent) {
	if ev.Note == nil {
		return
	}
	it := s.findItem(ev.Note.ItemID)
	if it == nil {
		return
	}
	// Own note writes are merged synchronously; the feed only matters for
	// collaborators on shared lists.
	if !s.listShared(it.ListID) {
		return
	}
	switch ev.Type {
	case gateway.EventInsert:
		for _, n := range it.Notes {
			if n.ID == ev.Note.ID {
				return
			}
		}
		it.Notes = append(it.Notes, *ev.Note)
		s.applyHoldNote(it, *ev.Note)
	case gateway.EventUpdate:
		s.clearInFlightLocked(it.ID)
		for i, n := range it.Notes {
			if n.ID == ev.Note.ID {
				it.Notes[i] = *ev.Note
				break
			}
		}
		s.applyHoldNote(it, *ev.Note)
	case gateway.EventDelete:
		for i, n := range it.Notes {
			if n.ID == ev.Note.ID {
				it.Notes = append(it.Notes[:i], it.Notes[i+1:]...)
				break
			}
		}
	}
}
