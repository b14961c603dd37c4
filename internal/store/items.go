package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tend-cli/internal/dates"
	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

// validateNewItem checks what can be rejected before any network call.
// Callers hold s.mu.
func (s *Store) validateNewItem(it model.Item) error {
	if strings.TrimSpace(it.Title) == "" {
		return gateway.ValidationError{Msg: "title can't be empty"}
	}
	for _, existing := range s.items {
		if model.TitleConflicts(existing, it) {
			return gateway.ValidationError{Msg: fmt.Sprintf("you already have an item called %q", existing.Title)}
		}
	}
	return nil
}

// AddItem persists and then appends to local state; there is no optimistic
// add. Returns the new item's id.
func (s *Store) AddItem(ctx context.Context, it model.Item) (string, error) {
	s.mu.Lock()
	if err := s.validateNewItem(it); err != nil {
		s.mu.Unlock()
		return "", s.fail("adding item", err)
	}
	now := s.clock.Now()
	s.mu.Unlock()

	if !it.Type.IsValid() {
		it.Type = model.TypeTask
	}
	if !it.Priority.IsValid() {
		it.Priority = model.PriorityLow
	}
	if it.Status == "" || !it.ValidStatus(it.Status) {
		it.Status = dates.FreshStatus(now, it)
	}

	created, err := s.gw.CreateItem(ctx, it)
	if err != nil {
		return "", s.fail("adding item", err)
	}

	s.clearErr()
	s.mu.Lock()
	// The realtime feed may have already delivered the insert.
	if s.findItem(created.ID) == nil {
		s.items = append(s.items, created)
	}
	s.mu.Unlock()
	return created.ID, nil
}

// UpdateItem mutates one item. For items on shared lists the patch is not
// applied locally: the item is marked in-flight and the visible change comes
// from the realtime update event, so all collaborators see edits in the same
// order. For non-shared lists the patch applies optimistically and a failed
// persist reloads authoritative state.
func (s *Store) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) error {
	if patch.Empty() {
		return nil
	}

	s.mu.Lock()
	it := s.findItem(id)
	if it == nil {
		s.mu.Unlock()
		return s.fail("updating item", gateway.NotFoundError{Kind: "item", ID: id})
	}
	if title, ok := patch.Title.Value(); ok {
		probe := *it
		probe.Title = title
		if err := s.validateNewItem(probe); err != nil {
			s.mu.Unlock()
			return s.fail("updating item", err)
		}
	}
	shared := s.listShared(it.ListID)
	now := s.clock.Now()
	s.mu.Unlock()

	if shared {
		s.markInFlight(id)
		if _, err := s.gw.UpdateItem(ctx, id, patch); err != nil {
			s.clearInFlight(id)
			return s.fail("updating item", err)
		}
		s.clearErr()
		return nil
	}

	// Optimistic path.
	s.mu.Lock()
	if cur := s.findItem(id); cur != nil {
		patch.Apply(cur, now)
		s.applyDerivedBucket(cur, patch, now)
	}
	s.mu.Unlock()
	s.markRecentlyUpdated(id)

	if _, err := s.gw.UpdateItem(ctx, id, patch); err != nil {
		// Discard the optimistic state; the gateway is authoritative.
		s.reloadAfterFailure(ctx)
		return s.fail("updating item", err)
	}
	s.clearErr()
	return nil
}

// applyDerivedBucket re-derives a plain reminder's status when a patch moved
// its date without explicitly choosing one. Callers hold s.mu.
func (s *Store) applyDerivedBucket(it *model.Item, patch model.ItemPatch, now time.Time) {
	if !patch.ReminderDate.Touched() || patch.Status.Touched() {
		return
	}
	if it.Type != model.TypeReminder || it.Recurring() || it.Status == model.StatusComplete {
		return
	}
	it.Status = dates.BucketFor(now, it.ReminderDate).Status()
}

// DeleteItem soft-deletes: it stamps deletedAt optimistically regardless of
// sharing (trash is low-contention), then persists. On failure the local
// trash state is retained and the error surfaced.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	it := s.findItem(id)
	if it == nil {
		s.mu.Unlock()
		return s.fail("deleting item", gateway.NotFoundError{Kind: "item", ID: id})
	}
	now := s.clock.Now()
	t := now.UTC()
	it.DeletedAt = &t
	it.UpdatedAt = t
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.mu.Unlock()
	s.markRecentlyUpdated(id)

	if _, err := s.gw.UpdateItem(ctx, id, model.ItemPatch{DeletedAt: model.Set(t)}); err != nil {
		return s.fail("moving item to trash", err)
	}
	s.clearErr()
	return nil
}

// RestoreItem clears deletedAt and recomputes the status a fresh item of the
// same shape would get. Persists first, applies after.
func (s *Store) RestoreItem(ctx context.Context, id string) error {
	s.mu.Lock()
	it := s.findItem(id)
	if it == nil {
		s.mu.Unlock()
		return s.fail("restoring item", gateway.NotFoundError{Kind: "item", ID: id})
	}
	snapshot := *it
	now := s.clock.Now()
	s.mu.Unlock()

	status := dates.FreshStatus(now, snapshot)
	patch := model.ItemPatch{DeletedAt: model.Clear[time.Time](), Status: model.Set(status)}
	updated, err := s.gw.UpdateItem(ctx, id, patch)
	if err != nil {
		return s.fail("restoring item", err)
	}

	s.clearErr()
	s.mu.Lock()
	if cur := s.findItem(id); cur != nil {
		*cur = updated
	}
	s.mu.Unlock()
	s.markRecentlyUpdated(id)
	return nil
}

// PermanentlyDeleteItem hard-deletes one item.
func (s *Store) PermanentlyDeleteItem(ctx context.Context, id string) error {
	if err := s.gw.DeleteItem(ctx, id); err != nil {
		return s.fail("permanently deleting item", err)
	}
	s.clearErr()
	s.mu.Lock()
	s.removeItem(id)
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.mu.Unlock()
	return nil
}

// EmptyTrash hard-deletes every soft-deleted item. Deletions run as
// independent concurrent requests; items that succeed are removed from local
// state even when others fail, and failures surface as an aggregate count.
func (s *Store) EmptyTrash(ctx context.Context) error {
	s.mu.Lock()
	var ids []string
	for _, it := range s.items {
		if it.Deleted() {
			ids = append(ids, it.ID)
		}
	}
	s.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = s.gw.DeleteItem(ctx, id)
		}(i, id)
	}
	wg.Wait()

	failed := 0
	s.mu.Lock()
	for i, id := range ids {
		if errs[i] != nil {
			failed++
			continue
		}
		s.removeItem(id)
		if s.selectedID == id {
			s.selectedID = ""
		}
	}
	s.mu.Unlock()

	if failed > 0 {
		err := fmt.Errorf("empty trash: %d of %d deletions failed", failed, len(ids))
		s.mu.Lock()
		s.errMsg = fmt.Sprintf("couldn't delete %d item(s); please try again", failed)
		s.mu.Unlock()
		return err
	}
	s.clearErr()
	return nil
}

// MoveItem changes an item's status column. Moving a reminder into today
// also stamps its date to now, since "today" implies immediacy.
func (s *Store) MoveItem(ctx context.Context, id string, status model.Status) error {
	s.mu.Lock()
	it := s.findItem(id)
	if it == nil {
		s.mu.Unlock()
		return s.fail("moving item", gateway.NotFoundError{Kind: "item", ID: id})
	}
	if it.Status == status {
		s.mu.Unlock()
		return nil
	}
	if !it.ValidStatus(status) {
		s.mu.Unlock()
		return s.fail("moving item", gateway.ValidationError{Msg: fmt.Sprintf("%q isn't a valid column for this item", status)})
	}
	isReminder := it.Type == model.TypeReminder && !it.Recurring()
	now := s.clock.Now()
	s.mu.Unlock()

	patch := model.ItemPatch{Status: model.Set(status)}
	if isReminder && status == model.StatusToday {
		patch.ReminderDate = model.Set(now.UTC())
	}
	return s.UpdateItem(ctx, id, patch)
}
