package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

func TestCreateListRejectsDuplicateName(t *testing.T) {
	b := New()
	g := b.Gateway("u1")
	ctx := context.Background()

	if _, err := g.CreateList(ctx, model.List{Name: "Reminders"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := g.CreateList(ctx, model.List{Name: "reminders"})
	var conflict gateway.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	// A different user may reuse the name.
	if _, err := b.Gateway("u2").CreateList(ctx, model.List{Name: "Reminders"}); err != nil {
		t.Fatalf("other user create: %v", err)
	}
}

func TestSharedListVisibility(t *testing.T) {
	b := New()
	owner := b.Gateway("owner@x.com")
	guest := b.Gateway("guest@x.com")
	stranger := b.Gateway("stranger@x.com")
	ctx := context.Background()

	l, err := owner.CreateList(ctx, model.List{Name: "Groceries", SharedWith: []string{"guest@x.com"}})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	it, err := owner.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Eggs", Status: model.StatusStart, Priority: model.PriorityLow, ListID: l.ID})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	guestItems, err := guest.ListItems(ctx)
	if err != nil || len(guestItems) != 1 {
		t.Fatalf("guest should see 1 item, got %d (%v)", len(guestItems), err)
	}
	strangerItems, err := stranger.ListItems(ctx)
	if err != nil || len(strangerItems) != 0 {
		t.Fatalf("stranger should see 0 items, got %d (%v)", len(strangerItems), err)
	}

	// Guest can edit the item but not the list's sharing.
	if _, err := guest.UpdateItem(ctx, it.ID, model.ItemPatch{Title: model.Set("Eggs x12")}); err != nil {
		t.Fatalf("guest item edit: %v", err)
	}
	_, err = guest.UpdateList(ctx, l.ID, model.ListPatch{SharedWith: model.Set([]string{})})
	var denied gateway.AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected AccessDeniedError, got %v", err)
	}
	if _, err := guest.UpdateList(ctx, l.ID, model.ListPatch{Name: model.Set("Food")}); err != nil {
		t.Fatalf("guest rename: %v", err)
	}
}

func TestCreateItemTitleUniqueness(t *testing.T) {
	b := New()
	g := b.Gateway("u1")
	ctx := context.Background()

	l, _ := g.CreateList(ctx, model.List{Name: "Inbox"})
	first, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Buy milk", Status: model.StatusStart, Priority: model.PriorityLow, ListID: l.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "buy MILK", Status: model.StatusStart, Priority: model.PriorityLow, ListID: l.ID})
	var conflict gateway.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	// Completing the first item frees the title.
	if _, err := g.UpdateItem(ctx, first.ID, model.ItemPatch{Status: model.Set(model.StatusComplete)}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Buy milk", Status: model.StatusStart, Priority: model.PriorityLow, ListID: l.ID}); err != nil {
		t.Fatalf("recreate after complete: %v", err)
	}
}

func TestSubscribeDeliversScopedEvents(t *testing.T) {
	b := New()
	owner := b.Gateway("owner@x.com")
	guest := b.Gateway("guest@x.com")
	ctx := context.Background()

	shared, _ := owner.CreateList(ctx, model.List{Name: "Shared", SharedWith: []string{"guest@x.com"}})
	private, _ := owner.CreateList(ctx, model.List{Name: "Private"})

	sub, err := guest.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if _, err := owner.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Visible", Status: model.StatusStart, Priority: model.PriorityLow, ListID: shared.ID}); err != nil {
		t.Fatalf("create visible: %v", err)
	}
	if _, err := owner.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Hidden", Status: model.StatusStart, Priority: model.PriorityLow, ListID: private.ID}); err != nil {
		t.Fatalf("create hidden: %v", err)
	}

	select {
	case ev := <-sub.Events():
		if ev.Table != gateway.TableItems || ev.Type != gateway.EventInsert || ev.Item == nil || ev.Item.Title != "Visible" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event delivered")
	}
	select {
	case ev := <-sub.Events():
		t.Fatalf("event for invisible list leaked: %+v", ev)
	default:
	}
}

func TestDeleteListCascades(t *testing.T) {
	b := New()
	g := b.Gateway("u1")
	ctx := context.Background()

	l, _ := g.CreateList(ctx, model.List{Name: "Temp"})
	if _, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Goes away", Status: model.StatusStart, Priority: model.PriorityLow, ListID: l.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := g.DeleteList(ctx, l.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	items, _ := g.ListItems(ctx)
	if len(items) != 0 {
		t.Fatalf("expected cascade delete, %d items remain", len(items))
	}
}

func TestDeleteListKeepsTrashedItems(t *testing.T) {
	b := New()
	g := b.Gateway("u1")
	ctx := context.Background()

	home, _ := g.CreateList(ctx, model.List{Name: "Home", IsDefault: true})
	temp, _ := g.CreateList(ctx, model.List{Name: "Temp"})
	kept, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Old receipt", Status: model.StatusStart, Priority: model.PriorityLow, ListID: temp.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := g.UpdateItem(ctx, kept.ID, model.ItemPatch{DeletedAt: model.Set(b.Now().UTC())}); err != nil {
		t.Fatalf("trash: %v", err)
	}
	if _, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Live", Status: model.StatusStart, Priority: model.PriorityLow, ListID: temp.ID}); err != nil {
		t.Fatalf("create live: %v", err)
	}

	if err := g.DeleteList(ctx, temp.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	items, err := g.ListItems(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected 1 surviving item, got %d (%v)", len(items), err)
	}
	if items[0].ID != kept.ID || items[0].ListID != home.ID || !items[0].Deleted() {
		t.Fatalf("trashed item not reassigned to default list: %+v", items[0])
	}

	// With no list left to take them in, trashed items go too.
	if err := g.DeleteList(ctx, home.ID); err != nil {
		t.Fatalf("delete last list: %v", err)
	}
	items, _ = g.ListItems(ctx)
	if len(items) != 0 {
		t.Fatalf("expected nothing after last list, got %d items", len(items))
	}
}

func TestCreateListDefaultOnlyOnBootstrap(t *testing.T) {
	b := New()
	g := b.Gateway("u1")
	ctx := context.Background()

	first, err := g.CreateList(ctx, model.List{Name: "Inbox", IsDefault: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := g.CreateList(ctx, model.List{Name: "Sneaky", IsDefault: true})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if !first.IsDefault {
		t.Fatal("bootstrap list must keep the default flag")
	}
	if second.IsDefault {
		t.Fatal("a later list must not claim the default flag")
	}
}

func TestAddAttachmentSizeCap(t *testing.T) {
	b := New()
	b.AttachmentMaxBytes = 16
	g := b.Gateway("u1")
	ctx := context.Background()

	l, _ := g.CreateList(ctx, model.List{Name: "Docs"})
	it, _ := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Scan", Status: model.StatusStart, Priority: model.PriorityLow, ListID: l.ID})

	if _, err := g.AddAttachment(ctx, it.ID, "small.txt", strings.NewReader("hello"), 5); err != nil {
		t.Fatalf("small attachment: %v", err)
	}
	_, err := g.AddAttachment(ctx, it.ID, "big.txt", strings.NewReader(strings.Repeat("x", 32)), 32)
	var invalid gateway.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCheckUsersExist(t *testing.T) {
	b := New()
	b.RegisterUser("Known@x.com")
	g := b.Gateway("u1")

	got, err := g.CheckUsersExist(context.Background(), []string{"known@x.com", "nobody@x.com"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(got) != 2 || !got[0].Exists || got[1].Exists {
		t.Fatalf("unexpected result: %+v", got)
	}
}
