package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

func open(t *testing.T) *Gateway {
	t.Helper()
	g, err := Open(context.Background(), t.TempDir(), "me@x.com")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	g.Now = func() time.Time { return time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestRoundTripSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	g, err := Open(ctx, dir, "me@x.com")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	l, err := g.CreateList(ctx, model.List{Name: "Groceries", Color: "#00ff00"})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	it, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Eggs", Priority: model.PriorityLow, Status: model.StatusStart, ListID: l.ID})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := g.AddNote(ctx, it.ID, "free range"); err != nil {
		t.Fatalf("add note: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	g2, err := Open(ctx, dir, "me@x.com")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer g2.Close()
	items, err := g2.ListItems(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected 1 item after reopen, got %d (%v)", len(items), err)
	}
	got := items[0]
	if got.Title != "Eggs" || len(got.Notes) != 1 || got.Notes[0].Content != "free range" {
		t.Fatalf("round trip lost data: %+v", got)
	}
}

func TestCreateItemRejectsDuplicateTitle(t *testing.T) {
	g := open(t)
	ctx := context.Background()
	l, _ := g.CreateList(ctx, model.List{Name: "Inbox"})

	if _, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Call bank", Status: model.StatusStart, ListID: l.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "call BANK", Status: model.StatusStart, ListID: l.ID})
	var conflict gateway.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestUpdateItemAppliesPatchGranularly(t *testing.T) {
	g := open(t)
	ctx := context.Background()
	l, _ := g.CreateList(ctx, model.List{Name: "Inbox"})
	due := time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)
	it, _ := g.CreateItem(ctx, model.Item{Type: model.TypeReminder, Title: "Taxes", Status: model.StatusWithin7, ListID: l.ID, ReminderDate: &due})

	got, err := g.UpdateItem(ctx, it.ID, model.ItemPatch{Title: model.Set("File taxes")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "File taxes" {
		t.Fatalf("title = %q", got.Title)
	}
	if got.ReminderDate == nil || !got.ReminderDate.Equal(due) {
		t.Fatal("untouched field must survive a patch")
	}

	got, err = g.UpdateItem(ctx, it.ID, model.ItemPatch{ReminderDate: model.Clear[time.Time]()})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got.ReminderDate != nil {
		t.Fatal("cleared field must be nil")
	}
}

func TestDeleteListCascades(t *testing.T) {
	g := open(t)
	ctx := context.Background()
	l, _ := g.CreateList(ctx, model.List{Name: "Doomed"})
	if _, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Goner", Status: model.StatusStart, ListID: l.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := g.DeleteList(ctx, l.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	items, err := g.ListItems(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected cascade, got %d items (%v)", len(items), err)
	}
}

func TestDeleteListKeepsTrashedItems(t *testing.T) {
	g := open(t)
	ctx := context.Background()
	home, _ := g.CreateList(ctx, model.List{Name: "Home", IsDefault: true})
	temp, _ := g.CreateList(ctx, model.List{Name: "Temp"})
	kept, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Old receipt", Status: model.StatusStart, ListID: temp.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := g.UpdateItem(ctx, kept.ID, model.ItemPatch{DeletedAt: model.Set(g.Now().UTC())}); err != nil {
		t.Fatalf("trash: %v", err)
	}
	if _, err := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Live", Status: model.StatusStart, ListID: temp.ID}); err != nil {
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
}

func TestCreateListDefaultOnlyOnBootstrap(t *testing.T) {
	g := open(t)
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

func TestAttachmentStoredContentAddressed(t *testing.T) {
	g := open(t)
	ctx := context.Background()
	l, _ := g.CreateList(ctx, model.List{Name: "Docs"})
	it, _ := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Lease", Status: model.StatusStart, ListID: l.ID})

	content := "hello attachment"
	a, err := g.AddAttachment(ctx, it.ID, "lease.txt", strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("add attachment: %v", err)
	}
	if a.SizeBytes != int64(len(content)) || a.Sha256Hex == "" {
		t.Fatalf("bad metadata: %+v", a)
	}
	b, err := os.ReadFile(g.AttachmentAbsPath(a))
	if err != nil || string(b) != content {
		t.Fatalf("stored blob mismatch: %q (%v)", b, err)
	}

	if err := g.DeleteAttachment(ctx, a.ID); err != nil {
		t.Fatalf("delete attachment: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(g.AttachmentAbsPath(a))); !os.IsNotExist(err) {
		t.Fatal("blob dir must be removed with the attachment")
	}
}

func TestAttachmentSizeCap(t *testing.T) {
	g := open(t)
	g.AttachmentMaxBytes = 8
	ctx := context.Background()
	l, _ := g.CreateList(ctx, model.List{Name: "Docs"})
	it, _ := g.CreateItem(ctx, model.Item{Type: model.TypeTask, Title: "Big", Status: model.StatusStart, ListID: l.ID})

	_, err := g.AddAttachment(ctx, it.ID, "big.bin", strings.NewReader("way too many bytes"), 18)
	var invalid gateway.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSubscribeDeliversWrites(t *testing.T) {
	g := open(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := g.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	l, _ := g.CreateList(ctx, model.List{Name: "Watched"})

	select {
	case ev := <-sub.Events():
		if ev.Table != gateway.TableLists || ev.Type != gateway.EventInsert || ev.List == nil || ev.List.ID != l.ID {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}
