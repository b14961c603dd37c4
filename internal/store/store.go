// Package store holds the client-side authoritative state for lists and
// items. Mutations apply optimistically for non-shared lists, go through an
// in-flight/realtime-confirmation path for shared lists, and never let an
// error escape silently: every public operation either resolves or records a
// user-visible error string.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

const (
	// DefaultListName is created on first load when the user has no lists.
	DefaultListName = "Reminders"

	// Ceiling after which loading is forced false even without an outcome.
	loadTimeout = 15 * time.Second

	// How long a shared-list mutation waits for realtime confirmation
	// before the in-flight marker clears on its own.
	inFlightTimeout = 6 * time.Second

	// Window protecting a fresh local write from a stale background reload.
	recentWindow = 30 * time.Second

	// Background reloads are skipped within this span of the last write.
	reloadCooldown = 5 * time.Second
)

type Store struct {
	mu    sync.Mutex
	gw    gateway.Gateway
	clock Clock
	sched Scheduler

	lists []model.List
	items []model.Item

	currentListID string
	currentView   model.View
	displayMode   model.DisplayMode
	selectedID    string

	inFlight        map[string]bool
	recentlyUpdated map[string]bool
	lastWriteAt     time.Time

	loading bool
	errMsg  string
}

type Option func(*Store)

func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithScheduler(sc Scheduler) Option {
	return func(s *Store) { s.sched = sc }
}

func New(gw gateway.Gateway, opts ...Option) *Store {
	s := &Store{
		gw:              gw,
		clock:           SystemClock,
		sched:           NewTimerScheduler(),
		currentListID:   model.AllLists,
		currentView:     model.ViewTasks,
		displayMode:     model.DisplayColumns,
		inFlight:        map[string]bool{},
		recentlyUpdated: map[string]bool{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close cancels all pending cooldown/timeout tasks.
func (s *Store) Close() {
	s.sched.Stop()
}

// --- state accessors -------------------------------------------------------

func (s *Store) Lists() []model.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.List, len(s.lists))
	copy(out, s.lists)
	return out
}

func (s *Store) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Item(id string) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it := s.findItem(id); it != nil {
		return *it, true
	}
	return model.Item{}, false
}

func (s *Store) List(id string) (model.List, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l := s.findList(id); l != nil {
		return *l, true
	}
	return model.List{}, false
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the user-visible error from the most recent failed operation,
// or "" when the last operation succeeded.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Store) InFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[id]
}

func (s *Store) CurrentView() model.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentView
}

func (s *Store) SetCurrentView(v model.View) {
	if !v.IsValid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentView = v
}

func (s *Store) CurrentListID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentListID
}

func (s *Store) SetCurrentListID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentListID = id
}

func (s *Store) DisplayMode() model.DisplayMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayMode
}

func (s *Store) SetDisplayMode(m model.DisplayMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayMode = m
}

func (s *Store) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = id
}

// --- internal helpers (callers hold s.mu) ----------------------------------

func (s *Store) findItem(id string) *model.Item {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i]
		}
	}
	return nil
}

func (s *Store) findList(id string) *model.List {
	for i := range s.lists {
		if s.lists[i].ID == id {
			return &s.lists[i]
		}
	}
	return nil
}

func (s *Store) removeItem(id string) {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *Store) listShared(listID string) bool {
	if l := s.findList(listID); l != nil {
		return l.Shared()
	}
	return false
}

// fail records a user-visible error and returns err wrapped with op context.
func (s *Store) fail(op string, err error) error {
	msg := fmt.Sprintf("%s failed; please try again", op)
	var denied gateway.AccessDeniedError
	if errors.As(err, &denied) {
		msg = fmt.Sprintf("%s failed: you don't have access to that %s", op, denied.Kind)
	}
	var invalid gateway.ValidationError
	if errors.As(err, &invalid) {
		msg = invalid.Msg
	}
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) clearErr() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// markInFlight flags id and schedules the bounded confirmation timeout, so
// the UI never shows a perpetual spinner when realtime confirmation is lost.
func (s *Store) markInFlight(id string) {
	s.mu.Lock()
	s.inFlight[id] = true
	s.mu.Unlock()
	s.sched.After("inflight:"+id, inFlightTimeout, func() {
		s.mu.Lock()
		delete(s.inFlight, id)
		s.mu.Unlock()
	})
}

func (s *Store) clearInFlight(id string) {
	s.mu.Lock()
	s.clearInFlightLocked(id)
	s.mu.Unlock()
}

// clearInFlightLocked is clearInFlight for callers already holding s.mu.
func (s *Store) clearInFlightLocked(id string) {
	s.sched.Cancel("inflight:" + id)
	delete(s.inFlight, id)
}

// markRecentlyUpdated protects id from being clobbered by a concurrent
// background reload returning pre-write state.
func (s *Store) markRecentlyUpdated(id string) {
	s.mu.Lock()
	s.recentlyUpdated[id] = true
	s.lastWriteAt = s.clock.Now()
	s.mu.Unlock()
	s.sched.After("recent:"+id, recentWindow, func() {
		s.mu.Lock()
		delete(s.recentlyUpdated, id)
		s.mu.Unlock()
	})
}

// --- loading ---------------------------------------------------------------

// LoadData fetches all accessible lists and items in parallel, bootstrapping
// a default list for brand-new users. Fetched items are merged with any item
// marked recently-updated, preferring the local version. Errors set Err and
// clear loading; they never propagate as panics. A safety timeout forces
// loading false even if the fetch never settles.
func (s *Store) LoadData(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	s.sched.After("load:timeout", loadTimeout, func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	})
	defer s.sched.Cancel("load:timeout")

	var (
		wg       sync.WaitGroup
		lists    []model.List
		items    []model.Item
		listsErr error
		itemsErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		lists, listsErr = s.gw.ListLists(ctx)
	}()
	go func() {
		defer wg.Done()
		items, itemsErr = s.gw.ListItems(ctx)
	}()
	wg.Wait()

	if listsErr != nil || itemsErr != nil {
		err := listsErr
		if err == nil {
			err = itemsErr
		}
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return s.fail("loading your data", err)
	}

	if len(lists) == 0 {
		created, err := s.gw.CreateList(ctx, model.List{Name: DefaultListName, IsDefault: true})
		var conflict gateway.ConflictError
		switch {
		case err == nil:
			lists = []model.List{created}
		case errors.As(err, &conflict):
			// A concurrent load won the bootstrap race; take its result.
			lists, err = s.gw.ListLists(ctx)
			if err != nil {
				s.mu.Lock()
				s.loading = false
				s.mu.Unlock()
				return s.fail("loading your data", err)
			}
		default:
			s.mu.Lock()
			s.loading = false
			s.mu.Unlock()
			return s.fail("setting up your first list", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Keep locally-written versions of protected items over fetched state.
	for i := range items {
		if !s.recentlyUpdated[items[i].ID] {
			continue
		}
		if local := s.findItem(items[i].ID); local != nil {
			items[i] = *local
		}
	}
	s.lists = lists
	s.items = items
	s.loading = false
	return nil
}

// Reload refreshes state from the gateway unless a local write landed within
// the cooldown window (the write's own effect may still be propagating).
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	recent := !s.lastWriteAt.IsZero() && s.clock.Now().Sub(s.lastWriteAt) < reloadCooldown
	s.mu.Unlock()
	if recent {
		return nil
	}
	return s.LoadData(ctx)
}

// reloadAfterFailure restores state from the gateway after a failed
// optimistic write. Best effort: the original failure is what gets surfaced.
func (s *Store) reloadAfterFailure(ctx context.Context) {
	items, err := s.gw.ListItems(ctx)
	if err != nil {
		return
	}
	lists, err := s.gw.ListLists(ctx)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.items = items
	s.lists = lists
	s.mu.Unlock()
}
