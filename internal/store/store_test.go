package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tend-cli/internal/gateway"
	"tend-cli/internal/gateway/memory"
	"tend-cli/internal/model"
)

var testNow = time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)

// harness wires a store to an in-memory backend with a pinned clock and a
// manual scheduler, so timeouts and cooldowns fire only on demand.
type harness struct {
	store *Store
	gw    *flakyGateway
	clock *FixedClock
	sched *ManualScheduler
	back  *memory.Backend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	back := memory.New()
	back.Now = func() time.Time { return testNow }
	gw := &flakyGateway{Gateway: back.Gateway("me@x.com")}
	clock := NewFixedClock(testNow)
	sched := NewManualScheduler()
	s := New(gw, WithClock(clock), WithScheduler(sched))
	t.Cleanup(s.Close)
	return &harness{store: s, gw: gw, clock: clock, sched: sched, back: back}
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	if err := h.store.LoadData(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func (h *harness) addList(t *testing.T, l model.List) string {
	t.Helper()
	id, err := h.store.AddList(context.Background(), l)
	if err != nil {
		t.Fatalf("add list %q: %v", l.Name, err)
	}
	return id
}

func (h *harness) addItem(t *testing.T, it model.Item) string {
	t.Helper()
	id, err := h.store.AddItem(context.Background(), it)
	if err != nil {
		t.Fatalf("add item %q: %v", it.Title, err)
	}
	return id
}

func (h *harness) item(t *testing.T, id string) model.Item {
	t.Helper()
	it, ok := h.store.Item(id)
	if !ok {
		t.Fatalf("item %s missing from local state", id)
	}
	return it
}

// flakyGateway wraps a real gateway and fails selected operations on demand.
// With blockLoads set, fetches stall until the channel closes.
type flakyGateway struct {
	gateway.Gateway
	failUpdateItem bool
	failDeleteItem map[string]bool
	blockLoads     chan struct{}
}

var errBackend = errors.New("backend unavailable")

func (g *flakyGateway) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (model.Item, error) {
	if g.failUpdateItem {
		return model.Item{}, errBackend
	}
	return g.Gateway.UpdateItem(ctx, id, patch)
}

func (g *flakyGateway) DeleteItem(ctx context.Context, id string) error {
	if g.failDeleteItem[id] {
		return errBackend
	}
	return g.Gateway.DeleteItem(ctx, id)
}

func (g *flakyGateway) ListLists(ctx context.Context) ([]model.List, error) {
	if g.blockLoads != nil {
		<-g.blockLoads
	}
	return g.Gateway.ListLists(ctx)
}

func (g *flakyGateway) ListItems(ctx context.Context) ([]model.Item, error) {
	if g.blockLoads != nil {
		<-g.blockLoads
	}
	return g.Gateway.ListItems(ctx)
}

func TestLoadBootstrapsDefaultList(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	lists := h.store.Lists()
	if len(lists) != 1 {
		t.Fatalf("expected 1 bootstrapped list, got %d", len(lists))
	}
	if lists[0].Name != DefaultListName || !lists[0].IsDefault {
		t.Fatalf("unexpected bootstrap list: %+v", lists[0])
	}
	if h.store.Loading() {
		t.Fatal("loading should be false after load")
	}
}

func TestLoadTimeoutUnsticksLoadingFlag(t *testing.T) {
	h := newHarness(t)
	h.gw.blockLoads = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- h.store.LoadData(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for !h.sched.Pending("load:timeout") {
		if time.Now().After(deadline) {
			t.Fatal("load never scheduled its timeout")
		}
		time.Sleep(time.Millisecond)
	}
	if !h.store.Loading() {
		t.Fatal("loading should be true while the fetch is stuck")
	}

	if !h.sched.Fire("load:timeout") {
		t.Fatal("timeout task vanished before firing")
	}
	if h.store.Loading() {
		t.Fatal("firing the timeout should force loading false")
	}

	close(h.gw.blockLoads)
	if err := <-done; err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestAddItemRejectsDuplicateTitle(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID

	h.addItem(t, model.Item{Type: model.TypeTask, Title: "Buy milk", ListID: listID})
	_, err := h.store.AddItem(context.Background(), model.Item{Type: model.TypeTask, Title: "buy MILK", ListID: listID})
	if err == nil {
		t.Fatal("expected duplicate title to be rejected")
	}
	if h.store.Err() == "" {
		t.Fatal("expected a user-visible error")
	}

	// Completing the first frees the title for reuse.
	first := h.store.Items()[0]
	if err := h.store.UpdateItem(context.Background(), first.ID, model.ItemPatch{Status: model.Set(model.StatusComplete)}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := h.store.AddItem(context.Background(), model.Item{Type: model.TypeTask, Title: "buy MILK", ListID: listID}); err != nil {
		t.Fatalf("reuse after complete: %v", err)
	}
}

func TestUpdateItemOptimisticOnPrivateList(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	id := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Write report", ListID: listID})

	if err := h.store.UpdateItem(context.Background(), id, model.ItemPatch{Priority: model.Set(model.PriorityNow)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := h.item(t, id).Priority; got != model.PriorityNow {
		t.Fatalf("priority = %q, want now", got)
	}
	if h.store.InFlight(id) {
		t.Fatal("private-list update must not be marked in-flight")
	}
	if !h.sched.Pending("recent:" + id) {
		t.Fatal("expected a recently-updated cooldown to be scheduled")
	}
}

func TestUpdateItemFailureReloadsAuthoritativeState(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	id := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Write report", ListID: listID})

	h.gw.failUpdateItem = true
	err := h.store.UpdateItem(context.Background(), id, model.ItemPatch{Title: model.Set("Ship report")})
	if err == nil {
		t.Fatal("expected update to fail")
	}
	if got := h.item(t, id).Title; got != "Write report" {
		t.Fatalf("title = %q, optimistic change should have been rolled back", got)
	}
	if h.store.Err() == "" {
		t.Fatal("expected a user-visible error")
	}
}

func TestSharedListUpdateWaitsForRealtime(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.addList(t, model.List{Name: "Family", SharedWith: []string{"partner@x.com"}})
	id := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Book flights", ListID: listID})

	if err := h.store.UpdateItem(context.Background(), id, model.ItemPatch{Title: model.Set("Book flights to Oslo")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	// The local copy is untouched until the realtime confirmation lands.
	if got := h.item(t, id).Title; got != "Book flights" {
		t.Fatalf("title = %q, shared update must not apply locally", got)
	}
	if !h.store.InFlight(id) {
		t.Fatal("expected item to be in-flight")
	}

	updated := h.item(t, id)
	updated.Title = "Book flights to Oslo"
	h.store.ApplyChange(gateway.ChangeEvent{
		Table: gateway.TableItems, Type: gateway.EventUpdate,
		ListID: listID, Item: &updated,
	})
	if got := h.item(t, id).Title; got != "Book flights to Oslo" {
		t.Fatalf("title = %q after confirmation", got)
	}
	if h.store.InFlight(id) {
		t.Fatal("confirmation must clear the in-flight flag")
	}
}

func TestInFlightTimeoutClearsFlag(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.addList(t, model.List{Name: "Family", SharedWith: []string{"partner@x.com"}})
	id := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Book flights", ListID: listID})

	if err := h.store.UpdateItem(context.Background(), id, model.ItemPatch{Priority: model.Set(model.PriorityHigh)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !h.store.InFlight(id) {
		t.Fatal("expected in-flight")
	}
	if !h.sched.Fire("inflight:" + id) {
		t.Fatal("expected a pending in-flight timeout")
	}
	if h.store.InFlight(id) {
		t.Fatal("timeout must clear the in-flight flag")
	}
}

func TestDeleteItemIsOptimisticEvenWhenPersistFails(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	id := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Old chore", ListID: listID})
	h.store.Select(id)

	h.gw.failUpdateItem = true
	err := h.store.DeleteItem(context.Background(), id)
	if err == nil {
		t.Fatal("expected persist failure")
	}
	it := h.item(t, id)
	if !it.Deleted() {
		t.Fatal("local trash state must be retained on failure")
	}
	if h.store.SelectedID() == id {
		t.Fatal("deleting must clear the selection")
	}
	if h.store.Err() == "" {
		t.Fatal("expected a user-visible error")
	}
}

func TestRestoreRecomputesStatus(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	past := testNow.Add(-48 * time.Hour)
	id := h.addItem(t, model.Item{
		Type: model.TypeReminder, Title: "Renew passport",
		ListID: listID, ReminderDate: &past, Status: model.StatusSevenPlus,
	})
	if err := h.store.DeleteItem(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := h.store.RestoreItem(context.Background(), id); err != nil {
		t.Fatalf("restore: %v", err)
	}
	it := h.item(t, id)
	if it.Deleted() {
		t.Fatal("restore must clear deletedAt")
	}
	// Overdue reminders land in today, not in their stale column.
	if it.Status != model.StatusToday {
		t.Fatalf("status = %q, want today", it.Status)
	}
}

func TestEmptyTrashSurvivesPartialFailure(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	a := h.addItem(t, model.Item{Type: model.TypeTask, Title: "A", ListID: listID})
	b := h.addItem(t, model.Item{Type: model.TypeTask, Title: "B", ListID: listID})
	for _, id := range []string{a, b} {
		if err := h.store.DeleteItem(context.Background(), id); err != nil {
			t.Fatalf("delete %s: %v", id, err)
		}
	}

	h.gw.failDeleteItem = map[string]bool{b: true}
	err := h.store.EmptyTrash(context.Background())
	if err == nil {
		t.Fatal("expected aggregate failure")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("err = %v, want aggregate count", err)
	}
	if _, ok := h.store.Item(a); ok {
		t.Fatal("successfully deleted item must leave local state")
	}
	if _, ok := h.store.Item(b); !ok {
		t.Fatal("failed deletion must keep the item in trash")
	}
}

func TestMoveReminderToTodayStampsDate(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	future := testNow.Add(240 * time.Hour)
	id := h.addItem(t, model.Item{
		Type: model.TypeReminder, Title: "Dentist",
		ListID: listID, ReminderDate: &future, Status: model.StatusSevenPlus,
	})

	if err := h.store.MoveItem(context.Background(), id, model.StatusToday); err != nil {
		t.Fatalf("move: %v", err)
	}
	it := h.item(t, id)
	if it.Status != model.StatusToday {
		t.Fatalf("status = %q, want today", it.Status)
	}
	if it.ReminderDate == nil || !it.ReminderDate.Equal(testNow) {
		t.Fatalf("reminderDate = %v, want stamped to now", it.ReminderDate)
	}
}

func TestMoveRejectsForeignStatus(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	id := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Refactor", ListID: listID})

	if err := h.store.MoveItem(context.Background(), id, model.StatusToday); err == nil {
		t.Fatal("a task must not move into a reminder column")
	}
	if err := h.store.MoveItem(context.Background(), id, model.StatusInProgress); err != nil {
		t.Fatalf("legal move: %v", err)
	}
}

func TestDeleteListReassignsTrashedItems(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	defaultID := h.store.Lists()[0].ID
	workID := h.addList(t, model.List{Name: "Work"})
	trashed := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Archived", ListID: workID})
	active := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Live", ListID: workID})
	if err := h.store.DeleteItem(context.Background(), trashed); err != nil {
		t.Fatalf("delete: %v", err)
	}
	h.store.SetCurrentListID(workID)

	// Subscribe before the delete so the full change feed can be replayed
	// into the store, the way board mode receives it.
	sub, err := h.gw.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := h.store.DeleteList(context.Background(), workID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	if _, ok := h.store.Item(active); ok {
		t.Fatal("active item on deleted list must be dropped")
	}
	it, ok := h.store.Item(trashed)
	if !ok {
		t.Fatal("trashed item must survive its list")
	}
	if it.ListID != defaultID {
		t.Fatalf("trashed item listId = %q, want fallback %q", it.ListID, defaultID)
	}
	if h.store.CurrentListID() != model.AllLists {
		t.Fatal("current list must fall back to all-lists")
	}

	// The reassignment must hold up against the delete's own change events.
	for drained := false; !drained; {
		select {
		case ev := <-sub.Events():
			h.store.ApplyChange(ev)
		default:
			drained = true
		}
	}
	if it, ok := h.store.Item(trashed); !ok || it.ListID != defaultID {
		t.Fatalf("trashed item after change feed: ok=%v item=%+v", ok, it)
	}

	// And against a full reload from the backend.
	h.load(t)
	it, ok = h.store.Item(trashed)
	if !ok {
		t.Fatal("trashed item must survive a reload")
	}
	if it.ListID != defaultID {
		t.Fatalf("trashed item listId after reload = %q, want %q", it.ListID, defaultID)
	}
}

func TestDeleteListRefusesDefault(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	if err := h.store.DeleteList(context.Background(), h.store.Lists()[0].ID); err == nil {
		t.Fatal("default list must not be deletable")
	}
}

func TestFilteredItemsRebucketsWithClock(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	in3 := testNow.Add(72 * time.Hour)
	id := h.addItem(t, model.Item{
		Type: model.TypeReminder, Title: "Pay rent",
		ListID: listID, ReminderDate: &in3, Status: model.StatusWithin7,
	})
	h.store.SetCurrentView(model.ViewReminders)

	find := func() model.Item {
		for _, it := range h.store.FilteredItems() {
			if it.ID == id {
				return it
			}
		}
		t.Fatalf("item %s missing from projection", id)
		return model.Item{}
	}
	if got := find().Status; got != model.StatusWithin7 {
		t.Fatalf("status = %q, want within7", got)
	}
	h.clock.Advance(72 * time.Hour)
	if got := find().Status; got != model.StatusToday {
		t.Fatalf("status after advance = %q, want today", got)
	}
}

func TestFilteredTasksSortByPriorityGroups(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	low := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Low", Priority: model.PriorityLow, ListID: listID})
	now1 := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Urgent 1", Priority: model.PriorityNow, ListID: listID})
	high := h.addItem(t, model.Item{Type: model.TypeTask, Title: "High", Priority: model.PriorityHigh, ListID: listID})
	now2 := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Urgent 2", Priority: model.PriorityNow, ListID: listID})

	var got []string
	for _, it := range h.store.FilteredItems() {
		got = append(got, it.ID)
	}
	want := []string{now1, now2, high, low}
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d = %s, want %s (stable priority groups)", i, got[i], want[i])
		}
	}
}

func TestSearchWeightsTitleAboveNotes(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	inNote := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Weekly review", ListID: listID})
	if err := h.store.AddNote(context.Background(), inNote, "remember the budget numbers"); err != nil {
		t.Fatalf("add note: %v", err)
	}
	inTitle := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Budget planning", ListID: listID})
	trashed := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Budget archive", ListID: listID})
	if err := h.store.DeleteItem(context.Background(), trashed); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got := h.store.Search("budget")
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2 (trashed excluded)", len(got))
	}
	if got[0].ID != inTitle || got[1].ID != inNote {
		t.Fatalf("order = [%s %s], want title match first", got[0].Title, got[1].Title)
	}
	if res := h.store.Search("budget numbers"); len(res) != 1 || res[0].ID != inNote {
		t.Fatalf("multi-term search must AND terms, got %d results", len(res))
	}
}

func TestReloadSkippedInsideWriteCooldown(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	id := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Track calls", ListID: listID})
	if err := h.store.UpdateItem(context.Background(), id, model.ItemPatch{Priority: model.Set(model.PriorityHigh)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := h.store.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := h.item(t, id).Priority; got != model.PriorityHigh {
		t.Fatalf("priority = %q, cooldown reload must not clobber the write", got)
	}

	h.clock.Advance(reloadCooldown + time.Second)
	if err := h.store.Reload(context.Background()); err != nil {
		t.Fatalf("reload after cooldown: %v", err)
	}
}

func TestRealtimeInsertIgnoredForPrivateLists(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	privateID := h.store.Lists()[0].ID
	sharedID := h.addList(t, model.List{Name: "Family", SharedWith: []string{"partner@x.com"}})

	ghost := model.Item{ID: "it_ghost", Type: model.TypeTask, Title: "Ghost", ListID: privateID}
	h.store.ApplyChange(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventInsert, ListID: privateID, Item: &ghost})
	if _, ok := h.store.Item("it_ghost"); ok {
		t.Fatal("insert events for private lists must be ignored")
	}

	incoming := model.Item{ID: "it_partner", Type: model.TypeTask, Title: "From partner", ListID: sharedID}
	h.store.ApplyChange(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventInsert, ListID: sharedID, Item: &incoming})
	if _, ok := h.store.Item("it_partner"); !ok {
		t.Fatal("insert events for shared lists must apply")
	}
}

func TestRealtimeListDeleteFallsBackSelection(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	workID := h.addList(t, model.List{Name: "Work"})
	h.store.SetCurrentListID(workID)

	l, _ := h.store.List(workID)
	h.store.ApplyChange(gateway.ChangeEvent{Table: gateway.TableLists, Type: gateway.EventDelete, ListID: workID, List: &l})
	if _, ok := h.store.List(workID); ok {
		t.Fatal("list delete event must remove the list")
	}
	if h.store.CurrentListID() != model.AllLists {
		t.Fatal("current list must fall back to all-lists")
	}
}

func TestOnHoldNoteTogglesMetadata(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	listID := h.store.Lists()[0].ID
	id := h.addItem(t, model.Item{Type: model.TypeTask, Title: "Vendor contract", ListID: listID})

	if err := h.store.AddNote(context.Background(), id, "on hold until legal signs off"); err != nil {
		t.Fatalf("add note: %v", err)
	}
	if !h.item(t, id).OnHold() {
		t.Fatal("on-hold note must set the hold flag")
	}
	if err := h.store.AddNote(context.Background(), id, "off hold"); err != nil {
		t.Fatalf("add note: %v", err)
	}
	if h.item(t, id).OnHold() {
		t.Fatal("off-hold note must clear the hold flag")
	}
}
