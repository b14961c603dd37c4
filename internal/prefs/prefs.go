// Package prefs stores device-local UI preferences: current view, list
// filter and display mode. They never sync; each device keeps its own.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/peterbourgon/diskv/v3"

	"tend-cli/internal/model"
)

const prefsKey = "ui"

// Prefs is the persisted shape. Zero values fall back to defaults on load.
type Prefs struct {
	CurrentView   model.View        `json:"currentView,omitempty"`
	CurrentListID string            `json:"currentListId,omitempty"`
	DisplayMode   model.DisplayMode `json:"displayMode,omitempty"`
}

type Store struct {
	d *diskv.Diskv
}

// DefaultDir resolves the per-user prefs directory.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "tend", "prefs")
}

func Open(dir string) *Store {
	return &Store{d: diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 64 * 1024,
	})}
}

// Load returns saved preferences, with defaults filled for anything unset
// or unreadable.
func (s *Store) Load() Prefs {
	p := Prefs{
		CurrentView:   model.ViewTasks,
		CurrentListID: model.AllLists,
		DisplayMode:   model.DisplayColumns,
	}
	raw, err := s.d.Read(prefsKey)
	if err != nil {
		return p
	}
	var saved Prefs
	if err := json.Unmarshal(raw, &saved); err != nil {
		return p
	}
	if saved.CurrentView.IsValid() {
		p.CurrentView = saved.CurrentView
	}
	if saved.CurrentListID != "" {
		p.CurrentListID = saved.CurrentListID
	}
	if saved.DisplayMode == model.DisplayColumns || saved.DisplayMode == model.DisplayCategories {
		p.DisplayMode = saved.DisplayMode
	}
	return p
}

func (s *Store) Save(p Prefs) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.d.Write(prefsKey, raw)
}
