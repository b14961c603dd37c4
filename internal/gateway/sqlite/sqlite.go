// Package sqlite is the local gateway: one SQLite file per data dir, rows
// stored as JSON blobs beside a few indexed scalar columns. Realtime is an
// in-process fanout, which is all a single local process needs.
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
)

const dbFileName = "tend.sqlite"

// Gateway persists lists and items in dir, scoped to one user. ForUser
// derives further views over the same database, which is how the sync
// server serves every account from a single file.
type Gateway struct {
	db     *sql.DB
	dir    string
	userID string

	AttachmentMaxBytes int64

	// Now is injectable for deterministic timestamps in tests.
	Now func() time.Time

	hub *hub
}

// hub is the in-process subscription fanout, shared by every user view.
type hub struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

// Open creates dir if needed, opens (or creates) the database and applies
// migrations.
func Open(ctx context.Context, dir, userID string) (*Gateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout avoids
	// "database is locked" flakiness when a second process peeks in.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Gateway{
		db:                 db,
		dir:                dir,
		userID:             userID,
		AttachmentMaxBytes: 50 * 1024 * 1024,
		Now:                time.Now,
		hub:                &hub{subs: map[*subscription]struct{}{}},
	}, nil
}

// ForUser returns a view of the same database scoped to another user.
// Views share the connection and the realtime hub.
func (g *Gateway) ForUser(userID string) *Gateway {
	cp := *g
	cp.userID = userID
	return &cp
}

func (g *Gateway) Close() error {
	g.hub.mu.Lock()
	open := make([]*subscription, 0, len(g.hub.subs))
	for sub := range g.hub.subs {
		open = append(open, sub)
	}
	g.hub.mu.Unlock()
	for _, sub := range open {
		_ = sub.Close()
	}
	return g.db.Close()
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lists (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lists_owner ON lists(owner_id);`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			list_id TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			deleted INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_list ON items(list_id);`,
		`CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);`,
		`CREATE INDEX IF NOT EXISTS idx_items_deleted ON items(deleted);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// --- row helpers -----------------------------------------------------------

func readJSONRows[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var js string
		if err := rows.Scan(&js); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(js), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (g *Gateway) putList(ctx context.Context, tx *sql.Tx, l model.List) error {
	raw, _ := json.Marshal(l)
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO lists(id, owner_id, name, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?)`,
		l.ID, l.OwnerID, l.Name, string(raw), l.UpdatedAt.UnixMilli())
	return err
}

func (g *Gateway) putItem(ctx context.Context, tx *sql.Tx, it model.Item) error {
	raw, _ := json.Marshal(it)
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO items(id, list_id, type, status, deleted, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.ListID, string(it.Type), string(it.Status), boolToInt(it.Deleted()), string(raw), it.UpdatedAt.UnixMilli())
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// inTx runs fn inside a write transaction.
func (g *Gateway) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (g *Gateway) getList(ctx context.Context, id string) (model.List, error) {
	var js string
	err := g.db.QueryRowContext(ctx, `SELECT json FROM lists WHERE id = ?`, id).Scan(&js)
	if err == sql.ErrNoRows {
		return model.List{}, gateway.NotFoundError{Kind: "list", ID: id}
	}
	if err != nil {
		return model.List{}, err
	}
	var l model.List
	if err := json.Unmarshal([]byte(js), &l); err != nil {
		return model.List{}, err
	}
	return l, nil
}

func (g *Gateway) getItem(ctx context.Context, id string) (model.Item, error) {
	var js string
	err := g.db.QueryRowContext(ctx, `SELECT json FROM items WHERE id = ?`, id).Scan(&js)
	if err == sql.ErrNoRows {
		return model.Item{}, gateway.NotFoundError{Kind: "item", ID: id}
	}
	if err != nil {
		return model.Item{}, err
	}
	var it model.Item
	if err := json.Unmarshal([]byte(js), &it); err != nil {
		return model.Item{}, err
	}
	return it, nil
}

// visibleList loads id and checks the caller can see it.
func (g *Gateway) visibleList(ctx context.Context, id string) (model.List, error) {
	l, err := g.getList(ctx, id)
	if err != nil {
		return model.List{}, err
	}
	if !l.AccessibleBy(g.userID) {
		return model.List{}, gateway.NotFoundError{Kind: "list", ID: id}
	}
	return l, nil
}

// --- lists -----------------------------------------------------------------

func (g *Gateway) ListLists(ctx context.Context) ([]model.List, error) {
	all, err := readJSONRows[model.List](ctx, g.db, `SELECT json FROM lists ORDER BY updated_at_unixms, id`)
	if err != nil {
		return nil, err
	}
	var out []model.List
	for _, l := range all {
		if l.AccessibleBy(g.userID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (g *Gateway) CreateList(ctx context.Context, l model.List) (model.List, error) {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		return model.List{}, gateway.ValidationError{Msg: "list name is empty"}
	}
	mine, err := g.ListLists(ctx)
	if err != nil {
		return model.List{}, err
	}
	ownerHasLists := false
	for _, existing := range mine {
		if existing.OwnerID != g.userID {
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

	now := g.Now().UTC()
	l.Name = name
	l.OwnerID = g.userID
	if l.ID == "" {
		l.ID = gateway.NewID("list")
	}
	l.CreatedAt = now
	l.UpdatedAt = now

	err = g.inTx(ctx, func(tx *sql.Tx) error { return g.putList(ctx, tx, l) })
	if err != nil {
		return model.List{}, err
	}
	cp := l
	g.publish(gateway.ChangeEvent{Table: gateway.TableLists, Type: gateway.EventInsert, ListID: l.ID, List: &cp})
	return l, nil
}

func (g *Gateway) UpdateList(ctx context.Context, id string, patch model.ListPatch) (model.List, error) {
	l, err := g.visibleList(ctx, id)
	if err != nil {
		return model.List{}, err
	}
	if l.OwnerID != g.userID {
		if patch.Locked.Touched() || patch.SharedWith.Touched() || patch.Icon.Touched() {
			return model.List{}, gateway.AccessDeniedError{Kind: "list", ID: id}
		}
	}

	patch.Apply(&l, g.Now().UTC())
	if err := g.inTx(ctx, func(tx *sql.Tx) error { return g.putList(ctx, tx, l) }); err != nil {
		return model.List{}, err
	}
	cp := l
	g.publish(gateway.ChangeEvent{Table: gateway.TableLists, Type: gateway.EventUpdate, ListID: id, List: &cp})
	return l, nil
}

func (g *Gateway) DeleteList(ctx context.Context, id string) error {
	l, err := g.getList(ctx, id)
	if err != nil {
		return err
	}
	if l.OwnerID != g.userID {
		return gateway.AccessDeniedError{Kind: "list", ID: id}
	}

	// Active items go with the list. Trashed items move to the owner's
	// fallback list so the trash survives, unless no list remains.
	victims, err := readJSONRows[model.Item](ctx, g.db, `SELECT json FROM items WHERE list_id = ?`, id)
	if err != nil {
		return err
	}
	fallback, err := g.fallbackListID(ctx, id)
	if err != nil {
		return err
	}
	var kept, dropped []model.Item
	for _, it := range victims {
		if it.Deleted() && fallback != "" {
			it.ListID = fallback
			it.UpdatedAt = g.Now().UTC()
			kept = append(kept, it)
		} else {
			dropped = append(dropped, it)
		}
	}
	err = g.inTx(ctx, func(tx *sql.Tx) error {
		for _, it := range kept {
			if err := g.putItem(ctx, tx, it); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE list_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return err
	}

	for _, it := range kept {
		cp := it
		g.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventUpdate, ListID: fallback, Item: &cp})
	}
	for _, it := range dropped {
		for _, a := range it.Attachments {
			_ = os.RemoveAll(filepath.Join(g.attachmentsDir(), a.ID))
		}
		cp := it
		g.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventDelete, ListID: id, Item: &cp})
	}
	cp := l
	g.publish(gateway.ChangeEvent{Table: gateway.TableLists, Type: gateway.EventDelete, ListID: id, List: &cp})
	return nil
}

// fallbackListID picks where orphaned trashed items land when a list is
// deleted: the owner's default list, else their oldest remaining list.
func (g *Gateway) fallbackListID(ctx context.Context, exclude string) (string, error) {
	all, err := readJSONRows[model.List](ctx, g.db, `SELECT json FROM lists`)
	if err != nil {
		return "", err
	}
	var oldest model.List
	for _, l := range all {
		if l.ID == exclude || l.OwnerID != g.userID {
			continue
		}
		if l.IsDefault {
			return l.ID, nil
		}
		if oldest.ID == "" || l.CreatedAt.Before(oldest.CreatedAt) {
			oldest = l
		}
	}
	return oldest.ID, nil
}

// --- items -----------------------------------------------------------------

func (g *Gateway) ListItems(ctx context.Context) ([]model.Item, error) {
	lists, err := g.ListLists(ctx)
	if err != nil {
		return nil, err
	}
	visible := make(map[string]bool, len(lists))
	for _, l := range lists {
		visible[l.ID] = true
	}
	all, err := readJSONRows[model.Item](ctx, g.db, `SELECT json FROM items ORDER BY updated_at_unixms, id`)
	if err != nil {
		return nil, err
	}
	var out []model.Item
	for _, it := range all {
		if visible[it.ListID] {
			out = append(out, it)
		}
	}
	return out, nil
}

func (g *Gateway) CreateItem(ctx context.Context, it model.Item) (model.Item, error) {
	if strings.TrimSpace(it.Title) == "" {
		return model.Item{}, gateway.ValidationError{Msg: "item title is empty"}
	}
	if !it.Type.IsValid() {
		return model.Item{}, gateway.ValidationError{Msg: fmt.Sprintf("invalid item type %q", it.Type)}
	}
	if _, err := g.visibleList(ctx, it.ListID); err != nil {
		return model.Item{}, err
	}
	siblings, err := g.ListItems(ctx)
	if err != nil {
		return model.Item{}, err
	}
	for _, existing := range siblings {
		if model.TitleConflicts(existing, it) {
			return model.Item{}, gateway.ConflictError{Msg: fmt.Sprintf("item %q already exists", existing.Title)}
		}
	}

	now := g.Now().UTC()
	if it.ID == "" {
		it.ID = gateway.NewID("item")
	}
	it.CreatedAt = now
	it.UpdatedAt = now
	it.DeletedAt = nil

	if err := g.inTx(ctx, func(tx *sql.Tx) error { return g.putItem(ctx, tx, it) }); err != nil {
		return model.Item{}, err
	}
	cp := it
	g.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventInsert, ListID: it.ListID, Item: &cp})
	return it, nil
}

func (g *Gateway) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (model.Item, error) {
	it, err := g.getItem(ctx, id)
	if err != nil {
		return model.Item{}, err
	}
	if _, err := g.visibleList(ctx, it.ListID); err != nil {
		return model.Item{}, gateway.NotFoundError{Kind: "item", ID: id}
	}
	if target, ok := patch.ListID.Value(); ok && target != it.ListID {
		if _, err := g.visibleList(ctx, target); err != nil {
			return model.Item{}, err
		}
	}

	patch.Apply(&it, g.Now().UTC())
	if err := g.inTx(ctx, func(tx *sql.Tx) error { return g.putItem(ctx, tx, it) }); err != nil {
		return model.Item{}, err
	}
	cp := it
	g.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventUpdate, ListID: it.ListID, Item: &cp})
	return it, nil
}

func (g *Gateway) DeleteItem(ctx context.Context, id string) error {
	it, err := g.getItem(ctx, id)
	if err != nil {
		return err
	}
	if _, err := g.visibleList(ctx, it.ListID); err != nil {
		return gateway.NotFoundError{Kind: "item", ID: id}
	}
	err = g.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return err
	}
	for _, a := range it.Attachments {
		_ = os.RemoveAll(filepath.Join(g.attachmentsDir(), a.ID))
	}
	cp := it
	g.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventDelete, ListID: it.ListID, Item: &cp})
	return nil
}

// --- notes -----------------------------------------------------------------

func (g *Gateway) AddNote(ctx context.Context, itemID, content string) (model.Note, error) {
	if strings.TrimSpace(content) == "" {
		return model.Note{}, gateway.ValidationError{Msg: "note content is empty"}
	}
	it, err := g.getItem(ctx, itemID)
	if err != nil {
		return model.Note{}, err
	}
	if _, err := g.visibleList(ctx, it.ListID); err != nil {
		return model.Note{}, gateway.NotFoundError{Kind: "item", ID: itemID}
	}

	now := g.Now().UTC()
	note := model.Note{ID: gateway.NewID("note"), ItemID: itemID, Content: content, CreatedAt: now}
	it.Notes = append(it.Notes, note)
	it.UpdatedAt = now
	if err := g.inTx(ctx, func(tx *sql.Tx) error { return g.putItem(ctx, tx, it) }); err != nil {
		return model.Note{}, err
	}
	cp := note
	g.publish(gateway.ChangeEvent{Table: gateway.TableNotes, Type: gateway.EventInsert, ListID: it.ListID, Note: &cp})
	return note, nil
}

func (g *Gateway) findNote(ctx context.Context, noteID string) (model.Item, int, error) {
	items, err := g.ListItems(ctx)
	if err != nil {
		return model.Item{}, 0, err
	}
	for _, it := range items {
		for i, n := range it.Notes {
			if n.ID == noteID {
				return it, i, nil
			}
		}
	}
	return model.Item{}, 0, gateway.NotFoundError{Kind: "note", ID: noteID}
}

func (g *Gateway) UpdateNote(ctx context.Context, noteID, content string) (model.Note, error) {
	if strings.TrimSpace(content) == "" {
		return model.Note{}, gateway.ValidationError{Msg: "note content is empty"}
	}
	it, i, err := g.findNote(ctx, noteID)
	if err != nil {
		return model.Note{}, err
	}
	it.Notes[i].Content = content
	it.UpdatedAt = g.Now().UTC()
	if err := g.inTx(ctx, func(tx *sql.Tx) error { return g.putItem(ctx, tx, it) }); err != nil {
		return model.Note{}, err
	}
	cp := it.Notes[i]
	g.publish(gateway.ChangeEvent{Table: gateway.TableNotes, Type: gateway.EventUpdate, ListID: it.ListID, Note: &cp})
	return it.Notes[i], nil
}

func (g *Gateway) DeleteNote(ctx context.Context, noteID string) error {
	it, i, err := g.findNote(ctx, noteID)
	if err != nil {
		return err
	}
	removed := it.Notes[i]
	it.Notes = append(it.Notes[:i], it.Notes[i+1:]...)
	it.UpdatedAt = g.Now().UTC()
	if err := g.inTx(ctx, func(tx *sql.Tx) error { return g.putItem(ctx, tx, it) }); err != nil {
		return err
	}
	g.publish(gateway.ChangeEvent{Table: gateway.TableNotes, Type: gateway.EventDelete, ListID: it.ListID, Note: &removed})
	return nil
}

// --- attachments -----------------------------------------------------------

func (g *Gateway) attachmentsDir() string {
	return filepath.Join(g.dir, "attachments")
}

// AttachmentAbsPath resolves an attachment's on-disk location.
func (g *Gateway) AttachmentAbsPath(a model.Attachment) string {
	return filepath.Join(g.dir, filepath.FromSlash(a.Path))
}

func guessMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}

func (g *Gateway) AddAttachment(ctx context.Context, itemID, name string, r io.Reader, size int64) (model.Attachment, error) {
	it, err := g.getItem(ctx, itemID)
	if err != nil {
		return model.Attachment{}, err
	}
	if _, err := g.visibleList(ctx, it.ListID); err != nil {
		return model.Attachment{}, gateway.NotFoundError{Kind: "item", ID: itemID}
	}
	if size > g.AttachmentMaxBytes {
		return model.Attachment{}, gateway.ValidationError{Msg: fmt.Sprintf("file too large (%d bytes > %d bytes)", size, g.AttachmentMaxBytes)}
	}
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." {
		name = "attachment"
	}

	id := gateway.NewID("att")
	destDir := filepath.Join(g.attachmentsDir(), id)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return model.Attachment{}, err
	}
	destPath := filepath.Join(destDir, name)
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return model.Attachment{}, err
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), io.LimitReader(r, g.AttachmentMaxBytes+1))
	cerr := out.Close()
	if err == nil {
		err = cerr
	}
	if err == nil && n > g.AttachmentMaxBytes {
		err = gateway.ValidationError{Msg: fmt.Sprintf("file too large (%d bytes > %d bytes)", n, g.AttachmentMaxBytes)}
	}
	if err != nil {
		_ = os.RemoveAll(destDir)
		return model.Attachment{}, err
	}

	now := g.Now().UTC()
	a := model.Attachment{
		ID:        id,
		ItemID:    itemID,
		Name:      name,
		Path:      filepath.ToSlash(filepath.Join("attachments", id, name)),
		MimeType:  guessMimeType(name),
		SizeBytes: n,
		Sha256Hex: hex.EncodeToString(h.Sum(nil)),
		CreatedAt: now,
	}
	it.Attachments = append(it.Attachments, a)
	it.UpdatedAt = now
	if err := g.inTx(ctx, func(tx *sql.Tx) error { return g.putItem(ctx, tx, it) }); err != nil {
		_ = os.RemoveAll(destDir)
		return model.Attachment{}, err
	}
	cp := it
	g.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventUpdate, ListID: it.ListID, Item: &cp})
	return a, nil
}

func (g *Gateway) DeleteAttachment(ctx context.Context, attachmentID string) error {
	items, err := g.ListItems(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		for i, a := range it.Attachments {
			if a.ID != attachmentID {
				continue
			}
			it.Attachments = append(it.Attachments[:i], it.Attachments[i+1:]...)
			it.UpdatedAt = g.Now().UTC()
			if err := g.inTx(ctx, func(tx *sql.Tx) error { return g.putItem(ctx, tx, it) }); err != nil {
				return err
			}
			_ = os.RemoveAll(filepath.Join(g.attachmentsDir(), a.ID))
			cp := it
			g.publish(gateway.ChangeEvent{Table: gateway.TableItems, Type: gateway.EventUpdate, ListID: it.ListID, Item: &cp})
			return nil
		}
	}
	return gateway.NotFoundError{Kind: "attachment", ID: attachmentID}
}

// --- misc ------------------------------------------------------------------

// CheckUsersExist always reports false locally: collaboration accounts live
// on the sync server, not in the local file.
func (g *Gateway) CheckUsersExist(ctx context.Context, emails []string) ([]gateway.UserCheck, error) {
	out := make([]gateway.UserCheck, len(emails))
	for i, e := range emails {
		out[i] = gateway.UserCheck{Email: strings.ToLower(strings.TrimSpace(e)), Exists: false}
	}
	return out, nil
}

// --- realtime --------------------------------------------------------------

type subscription struct {
	hub    *hub
	userID string
	ch     chan gateway.ChangeEvent
	once   sync.Once
}

func (s *subscription) Events() <-chan gateway.ChangeEvent { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
	return nil
}

func (g *Gateway) Subscribe(ctx context.Context) (gateway.Subscription, error) {
	sub := &subscription{hub: g.hub, userID: g.userID, ch: make(chan gateway.ChangeEvent, 64)}
	g.hub.mu.Lock()
	g.hub.subs[sub] = struct{}{}
	g.hub.mu.Unlock()
	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
	return sub, nil
}

// publish fans the event out to every subscriber that can see the affected
// list. Slow subscribers drop events rather than block writes. Events whose
// list row is already gone (cascade deletes) go to everyone; subscribers
// that never saw the item ignore them.
func (g *Gateway) publish(ev gateway.ChangeEvent) {
	acl := func(string) bool { return true }
	if ev.Table == gateway.TableLists && ev.List != nil {
		l := *ev.List
		acl = l.AccessibleBy
	} else if ev.ListID != "" {
		if l, err := g.getList(context.Background(), ev.ListID); err == nil {
			acl = l.AccessibleBy
		}
	}

	g.hub.mu.Lock()
	defer g.hub.mu.Unlock()
	for sub := range g.hub.subs {
		if !acl(sub.userID) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
