// Package memory implements the gateway against in-process state. It backs
// store and server tests and `tend --dev` runs; no files, no network.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

const DefaultAttachmentMaxBytes int64 = 50 * 1024 * 1024 // 50MB

// Backend holds state shared by every user's gateway view. Collaboration
// tests build one Backend and hand each simulated user its own Gateway.
type Backend struct {
	mu    sync.Mutex
	lists map[string]model.List
	items map[string]model.Item
	blobs map[string][]byte // attachment id -> content
	users map[string]bool   // known account emails (lowercased)
	subs  map[*subscription]struct{}

	AttachmentMaxBytes int64

	// Now is injectable for deterministic timestamps in tests.
	Now func() time.Time
}

func New() *Backend {
	return &Backend{
		lists:              map[string]model.List{},
		items:              map[string]model.Item{},
		blobs:              map[string][]byte{},
		users:              map[string]bool{},
		subs:               map[*subscription]struct{}{},
		AttachmentMaxBytes: DefaultAttachmentMaxBytes,
		Now:                time.Now,
	}
}

// RegisterUser makes an email resolvable by CheckUsersExist.
func (b *Backend) RegisterUser(email string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[strings.ToLower(strings.TrimSpace(email))] = true
}

// Gateway returns userID's view of the backend.
func (b *Backend) Gateway(userID string) gateway.Gateway {
	return &view{b: b, userID: userID}
}

type subscription struct {
	b      *Backend
	userID string
	ch     chan gateway.ChangeEvent
	once   sync.Once
}

func (s *subscription) Events() <-chan gateway.ChangeEvent { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subs, s)
		s.b.mu.Unlock()
		close(s.ch)
	})
	return nil
}

// publish fans an event out to every subscriber that can see the affected
// list. Callers hold b.mu. Slow subscribers drop events rather than block
// the mutation path; the store's reload path covers missed events.
func (b *Backend) publish(ev gateway.ChangeEvent) {
	for sub := range b.subs {
		if ev.ListID != "" {
			l, ok := b.lists[ev.ListID]
			if ok && !l.AccessibleBy(sub.userID) {
				continue
			}
			if !ok && ev.Table != gateway.TableLists {
				continue
			}
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

type view struct {
	b      *Backend
	userID string
}

func (v *view) visibleList(id string) (model.List, bool) {
	l, ok := v.b.lists[id]
	if !ok || !l.AccessibleBy(v.userID) {
		return model.List{}, false
	}
	return l, true
}

func (v *view) ListLists(ctx context.Context) ([]model.List, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	var out []model.List
	for _, l := range v.b.lists {
		if l.AccessibleBy(v.userID) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v *view) CreateList(ctx context.Context, l model.List) (model.List, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	name := strings.TrimSpace(l.Name)
	if name == "" {
		return model.List{}, gateway.ValidationError{Msg: "list name is empty"}
	}
	ownerHasLists := false
	for _, existing := range v.b.lists {
		if existing.OwnerID != v.userID {
			continue
		}
		ownerHasLists = true
		if strings.EqualFold(existing.Name, name) {
			return model.List{}, gateway.ConflictError{Msg: fmt.Sprintf("list %q already exists", name)}
		}
	}
	// Only the bootstrap create may designate the default list.
	if ownerHasLists {
		l.IsDefault = false
	}

	now := v.b.Now().UTC()
	l.Name = name
	l.OwnerID = v.userID
	if l.ID == "" {
		l.ID = gateway.NewID("list")
	}
	l.CreatedAt = now
	l.UpdatedAt = now
	v.b.lists[l.ID] = l

	cp := l
	v.b.publish(gateway.ChangeEvent{Table: gateway.TableLists, Type: gateway.EventInsert, ListID: l.ID, List: &cp})
	return l, nil
}

func (v *view) UpdateList(ctx context.Context, id string, patch model.ListPatch) (model.List, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	l, ok := v.visibleList(id)
	if !ok {
		return model.List{}, gateway.NotFoundError{Kind: "list", ID: id}
	}
	if l.OwnerID != v.userID {
		// Collaborators may rename and recolor; everything else is owner-only.
		if patch.Locked.Touched() || patch.SharedWith.Touched() || patch.Icon.Touched() {
			return model.List{}, gateway.AccessDeniedError{Kind: "list", ID: id}
		}
	}

	patch.Apply(&l, v.b.Now().UTC())
	v.b.lists[id] = l

	cp := l
	v.b.publish(gateway.ChangeEvent{Table: gateway.TableLists, Type: gateway.EventUpdate, ListID: id, List: &cp})
	return l, nil
}

func (v *view) DeleteList(ctx context.Context, id string) error {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	l, ok := v.b.lists[id]
	if !ok {
		return gateway.NotFoundError{Kind: "list", ID: id}
	}
	if l.OwnerID != v.userID {
		return gateway.AccessDeniedError{Kind: "list", ID: id}
	}

	// Active items go with the list. Trashed items move to the owner's
	// fallback list so the trash survives, unless no list remains.
	fallback := v.b.fallbackListID(v.userID, id)
	for itemID, it := range v.b.items {
		if it.ListID != id {
			continue
		}
		if it.Deleted() && fallback != "" {
			it.ListID = fallback
			it.UpdatedAt = v.b.Now().UTC()
			v.b.items[itemID] = it
			cp := it
			v.b.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventUpdate, ListID: fallback, Item: &cp})
			continue
		}
		delete(v.b.items, itemID)
		for _, a := range it.Attachments {
			delete(v.b.blobs, a.ID)
		}
		cp := it
		v.b.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventDelete, ListID: id, Item: &cp})
	}
	delete(v.b.lists, id)

	cp := l
	v.b.publish(gateway.ChangeEvent{Table: gateway.TableLists, Type: gateway.EventDelete, ListID: id, List: &cp})
	return nil
}

// fallbackListID picks where orphaned trashed items land when a list is
// deleted: the owner's default list, else their oldest remaining list.
// Callers hold b.mu.
func (b *Backend) fallbackListID(ownerID, exclude string) string {
	var oldest model.List
	for _, l := range b.lists {
		if l.ID == exclude || l.OwnerID != ownerID {
			continue
		}
		if l.IsDefault {
			return l.ID
		}
		if oldest.ID == "" || l.CreatedAt.Before(oldest.CreatedAt) {
			oldest = l
		}
	}
	return oldest.ID
}

func (v *view) ListItems(ctx context.Context) ([]model.Item, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	var out []model.Item
	for _, it := range v.b.items {
		if _, ok := v.visibleList(it.ListID); ok {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) CreateItem(ctx context.Context, it model.Item) (model.Item, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	if strings.TrimSpace(it.Title) == "" {
		return model.Item{}, gateway.ValidationError{Msg: "item title is empty"}
	}
	if !it.Type.IsValid() {
		return model.Item{}, gateway.ValidationError{Msg: fmt.Sprintf("invalid item type %q", it.Type)}
	}
	if _, ok := v.visibleList(it.ListID); !ok {
		return model.Item{}, gateway.AccessDeniedError{Kind: "list", ID: it.ListID}
	}
	for _, existing := range v.b.items {
		if _, ok := v.visibleList(existing.ListID); !ok {
			continue
		}
		if model.TitleConflicts(existing, it) {
			return model.Item{}, gateway.ConflictError{Msg: fmt.Sprintf("an active item titled %q already exists", it.Title)}
		}
	}

	now := v.b.Now().UTC()
	if it.ID == "" {
		it.ID = gateway.NewID("item")
	}
	it.CreatedAt = now
	it.UpdatedAt = now
	v.b.items[it.ID] = it

	cp := it
	v.b.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventInsert, ListID: it.ListID, Item: &cp})
	return it, nil
}

func (v *view) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (model.Item, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	it, ok := v.b.items[id]
	if !ok {
		return model.Item{}, gateway.NotFoundError{Kind: "item", ID: id}
	}
	if _, ok := v.visibleList(it.ListID); !ok {
		return model.Item{}, gateway.AccessDeniedError{Kind: "item", ID: id}
	}
	if target, ok := patch.ListID.Value(); ok && target != it.ListID {
		if _, ok := v.visibleList(target); !ok {
			return model.Item{}, gateway.AccessDeniedError{Kind: "list", ID: target}
		}
	}

	patch.Apply(&it, v.b.Now().UTC())
	v.b.items[id] = it

	cp := it
	v.b.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventUpdate, ListID: it.ListID, Item: &cp})
	return it, nil
}

func (v *view) DeleteItem(ctx context.Context, id string) error {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	it, ok := v.b.items[id]
	if !ok {
		return gateway.NotFoundError{Kind: "item", ID: id}
	}
	if _, ok := v.visibleList(it.ListID); !ok {
		return gateway.AccessDeniedError{Kind: "item", ID: id}
	}
	delete(v.b.items, id)
	for _, a := range it.Attachments {
		delete(v.b.blobs, a.ID)
	}

	cp := it
	v.b.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventDelete, ListID: it.ListID, Item: &cp})
	return nil
}

func (v *view) findItemForNote(noteID string) (model.Item, int, bool) {
	for _, it := range v.b.items {
		for i, n := range it.Notes {
			if n.ID == noteID {
				return it, i, true
			}
		}
	}
	return model.Item{}, 0, false
}

func (v *view) AddNote(ctx context.Context, itemID, content string) (model.Note, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	it, ok := v.b.items[itemID]
	if !ok {
		return model.Note{}, gateway.NotFoundError{Kind: "item", ID: itemID}
	}
	if _, ok := v.visibleList(it.ListID); !ok {
		return model.Note{}, gateway.AccessDeniedError{Kind: "item", ID: itemID}
	}

	now := v.b.Now().UTC()
	n := model.Note{ID: gateway.NewID("note"), ItemID: itemID, Content: content, CreatedAt: now}
	it.Notes = append(it.Notes, n)
	it.UpdatedAt = now
	v.b.items[itemID] = it

	cp := n
	v.b.publish(gateway.ChangeEvent{Table: gateway.TableNotes, Type: gateway.EventInsert, ListID: it.ListID, Note: &cp})
	return n, nil
}

func (v *view) UpdateNote(ctx context.Context, noteID, content string) (model.Note, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	it, idx, ok := v.findItemForNote(noteID)
	if !ok {
		return model.Note{}, gateway.NotFoundError{Kind: "note", ID: noteID}
	}
	if _, ok := v.visibleList(it.ListID); !ok {
		return model.Note{}, gateway.AccessDeniedError{Kind: "note", ID: noteID}
	}

	it.Notes[idx].Content = content
	it.UpdatedAt = v.b.Now().UTC()
	v.b.items[it.ID] = it

	cp := it.Notes[idx]
	v.b.publish(gateway.ChangeEvent{Table: gateway.TableNotes, Type: gateway.EventUpdate, ListID: it.ListID, Note: &cp})
	return it.Notes[idx], nil
}

func (v *view) DeleteNote(ctx context.Context, noteID string) error {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	it, idx, ok := v.findItemForNote(noteID)
	if !ok {
		return gateway.NotFoundError{Kind: "note", ID: noteID}
	}
	if _, ok := v.visibleList(it.ListID); !ok {
		return gateway.AccessDeniedError{Kind: "note", ID: noteID}
	}

	removed := it.Notes[idx]
	it.Notes = append(it.Notes[:idx], it.Notes[idx+1:]...)
	it.UpdatedAt = v.b.Now().UTC()
	v.b.items[it.ID] = it

	v.b.publish(gateway.ChangeEvent{Table: gateway.TableNotes, Type: gateway.EventDelete, ListID: it.ListID, Note: &removed})
	return nil
}

func (v *view) AddAttachment(ctx context.Context, itemID, name string, r io.Reader, size int64) (model.Attachment, error) {
	v.b.mu.Lock()
	maxBytes := v.b.AttachmentMaxBytes
	it, ok := v.b.items[itemID]
	if ok {
		_, ok = v.visibleList(it.ListID)
	}
	v.b.mu.Unlock()
	if !ok {
		return model.Attachment{}, gateway.NotFoundError{Kind: "item", ID: itemID}
	}
	if size > maxBytes {
		return model.Attachment{}, gateway.ValidationError{Msg: fmt.Sprintf("attachment too large (%d bytes > %d bytes)", size, maxBytes)}
	}

	// Read outside the lock; the reader may be slow.
	h := sha256.New()
	data, err := io.ReadAll(io.TeeReader(io.LimitReader(r, maxBytes+1), h))
	if err != nil {
		return model.Attachment{}, err
	}
	if int64(len(data)) > maxBytes {
		return model.Attachment{}, gateway.ValidationError{Msg: fmt.Sprintf("attachment too large (> %d bytes)", maxBytes)}
	}

	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	it, ok = v.b.items[itemID]
	if !ok {
		return model.Attachment{}, gateway.NotFoundError{Kind: "item", ID: itemID}
	}

	now := v.b.Now().UTC()
	a := model.Attachment{
		ID:        gateway.NewID("att"),
		ItemID:    itemID,
		Name:      name,
		Path:      "mem/" + name,
		MimeType:  mime.TypeByExtension(strings.ToLower(filepath.Ext(name))),
		SizeBytes: int64(len(data)),
		Sha256Hex: hex.EncodeToString(h.Sum(nil)),
		CreatedAt: now,
	}
	v.b.blobs[a.ID] = data
	it.Attachments = append(it.Attachments, a)
	it.UpdatedAt = now
	v.b.items[itemID] = it

	cp := it
	v.b.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventUpdate, ListID: it.ListID, Item: &cp})
	return a, nil
}

func (v *view) DeleteAttachment(ctx context.Context, attachmentID string) error {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	for _, it := range v.b.items {
		for i, a := range it.Attachments {
			if a.ID != attachmentID {
				continue
			}
			if _, ok := v.visibleList(it.ListID); !ok {
				return gateway.AccessDeniedError{Kind: "attachment", ID: attachmentID}
			}
			it.Attachments = append(it.Attachments[:i], it.Attachments[i+1:]...)
			it.UpdatedAt = v.b.Now().UTC()
			v.b.items[it.ID] = it
			delete(v.b.blobs, attachmentID)

			cp := it
			v.b.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventUpdate, ListID: it.ListID, Item: &cp})
			return nil
		}
	}
	return gateway.NotFoundError{Kind: "attachment", ID: attachmentID}
}

func (v *view) CheckUsersExist(ctx context.Context, emails []string) ([]gateway.UserCheck, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	out := make([]gateway.UserCheck, 0, len(emails))
	for _, e := range emails {
		out = append(out, gateway.UserCheck{
			Email:  e,
			Exists: v.b.users[strings.ToLower(strings.TrimSpace(e))],
		})
	}
	return out, nil
}

func (v *view) Subscribe(ctx context.Context) (gateway.Subscription, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()
	sub := &subscription{b: v.b, userID: v.userID, ch: make(chan gateway.ChangeEvent, 256)}
	v.b.subs[sub] = struct{}{}
	return sub, nil
}
