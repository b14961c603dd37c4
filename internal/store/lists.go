package store

import (
	"context"
	"strings"

	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

// AddList persists a new list and appends it locally. List names are unique
// per owner, case-insensitively; the gateway enforces the same rule, this
// check just fails fast.
func (s *Store) AddList(ctx context.Context, l model.List) (string, error) {
	if strings.TrimSpace(l.Name) == "" {
		return "", s.fail("adding list", gateway.ValidationError{Msg: "list name can't be empty"})
	}
	s.mu.Lock()
	for _, existing := range s.lists {
		if strings.EqualFold(existing.Name, l.Name) {
			s.mu.Unlock()
			return "", s.fail("adding list", gateway.ConflictError{Msg: "a list with that name already exists"})
		}
	}
	s.mu.Unlock()

	created, err := s.gw.CreateList(ctx, l)
	if err != nil {
		return "", s.fail("adding list", err)
	}

	s.clearErr()
	s.mu.Lock()
	if s.findList(created.ID) == nil {
		s.lists = append(s.lists, created)
	}
	s.mu.Unlock()
	return created.ID, nil
}

// UpdateList patches list settings. Lists mutate rarely, so there is no
// optimistic path: persist first, then mirror the server copy.
func (s *Store) UpdateList(ctx context.Context, id string, patch model.ListPatch) error {
	if patch.Empty() {
		return nil
	}
	s.mu.Lock()
	if s.findList(id) == nil {
		s.mu.Unlock()
		return s.fail("updating list", gateway.NotFoundError{Kind: "list", ID: id})
	}
	s.mu.Unlock()

	updated, err := s.gw.UpdateList(ctx, id, patch)
	if err != nil {
		return s.fail("updating list", err)
	}

	s.clearErr()
	s.mu.Lock()
	if cur := s.findList(id); cur != nil {
		*cur = updated
	}
	s.mu.Unlock()
	return nil
}

// DeleteList removes a list. The gateway drops the list's active items and
// reassigns its trashed items to a fallback list; the same reassignment is
// mirrored locally so the trash view never flickers while change events are
// in flight. A deleted current list falls back to the all-lists view.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	s.mu.Lock()
	l := s.findList(id)
	if l == nil {
		s.mu.Unlock()
		return s.fail("deleting list", gateway.NotFoundError{Kind: "list", ID: id})
	}
	if l.IsDefault {
		s.mu.Unlock()
		return s.fail("deleting list", gateway.ValidationError{Msg: "the default list can't be deleted"})
	}
	s.mu.Unlock()

	if err := s.gw.DeleteList(ctx, id); err != nil {
		return s.fail("deleting list", err)
	}

	s.clearErr()
	s.mu.Lock()
	for i, existing := range s.lists {
		if existing.ID == id {
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
	s.mu.Unlock()
	return nil
}

// fallbackListID picks a surviving list for orphaned trash items: the
// default list when one exists, else the first list, else the all-lists
// sentinel. Callers hold s.mu.
func (s *Store) fallbackListID(deleted string) string {
	for _, l := range s.lists {
		if l.IsDefault && l.ID != deleted {
			return l.ID
		}
	}
	for _, l := range s.lists {
		if l.ID != deleted {
			return l.ID
		}
	}
	return model.AllLists
}
