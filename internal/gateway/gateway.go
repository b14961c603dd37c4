// Package gateway defines the persistence boundary the store depends on:
// per-user CRUD for lists, items, notes and attachments, plus a realtime
// change feed. Implementations: sqlite (local), memory (tests/dev), httpc
// (hosted sync server).
package gateway

import (
	"context"
	"fmt"
	"io"

	"tend-cli/internal/model"
)

// Table identifies which entity a change event is about.
type Table string

const (
	TableItems Table = "items"
	TableLists Table = "lists"
	TableNotes Table = "notes"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// ChangeEvent is one realtime notification carrying the full new row image
// (and, for items/lists, the owning list id so subscribers can filter).
type ChangeEvent struct {
	Table  Table     `json:"table"`
	Type   EventType `json:"type"`
	ListID string    `json:"listId,omitempty"`

	Item *model.Item `json:"item,omitempty"`
	List *model.List `json:"list,omitempty"`
	Note *model.Note `json:"note,omitempty"`
}

// UserCheck is one result of a collaboration-invite existence probe.
type UserCheck struct {
	Email  string `json:"email"`
	Exists bool   `json:"exists"`
}

// Subscription is a live change feed. Events must be drained until the
// channel closes; Close tears the feed down.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// Gateway is the persistence contract, scoped to one authenticated user.
// A list is visible and writable to its owner and anyone in its sharedWith
// set; item/note/attachment access gates transitively through the list.
// Concurrent conflicting edits resolve last-write-wins at field-patch
// granularity.
type Gateway interface {
	ListLists(ctx context.Context) ([]model.List, error)
	CreateList(ctx context.Context, l model.List) (model.List, error)
	UpdateList(ctx context.Context, id string, patch model.ListPatch) (model.List, error)
	DeleteList(ctx context.Context, id string) error

	ListItems(ctx context.Context) ([]model.Item, error)
	CreateItem(ctx context.Context, it model.Item) (model.Item, error)
	UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (model.Item, error)
	// DeleteItem is a hard delete. Soft delete is an UpdateItem setting
	// deletedAt.
	DeleteItem(ctx context.Context, id string) error

	AddNote(ctx context.Context, itemID, content string) (model.Note, error)
	UpdateNote(ctx context.Context, noteID, content string) (model.Note, error)
	DeleteNote(ctx context.Context, noteID string) error

	AddAttachment(ctx context.Context, itemID, name string, r io.Reader, size int64) (model.Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID string) error

	CheckUsersExist(ctx context.Context, emails []string) ([]UserCheck, error)

	// Subscribe opens a realtime feed of insert/update/delete events for
	// items, lists and notes belonging to the caller's visible lists.
	Subscribe(ctx context.Context) (Subscription, error)
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

type AccessDeniedError struct {
	Kind string
	ID   string
}

func (e AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied to %s %s", e.Kind, e.ID)
}

type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	return e.Msg
}

// ConflictError covers uniqueness violations, e.g. a second default list
// created by a concurrent first load.
type ConflictError struct {
	Msg string
}

func (e ConflictError) Error() string {
	return e.Msg
}
