package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/justyntemme/sidebar/internal/domain"
)

func newCategoryPanel(t *testing.T, db *DB, shortcut string) int64 {
	t.Helper()
	catID, err := db.CreateCategory("Category", "")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	id, err := db.SavePinnedPanel(NewPanel{
		CategoryID:       sql.NullInt64{Int64: catID, Valid: true},
		X:                10,
		Y:                20,
		Width:            350,
		Height:           500,
		KeyboardShortcut: nullString(shortcut),
	})
	if err != nil {
		t.Fatalf("SavePinnedPanel failed: %v", err)
	}
	return id
}

func TestSaveAndLoadPanel(t *testing.T) {
	db := openTestDB(t)
	id := newCategoryPanel(t, db, "Ctrl+Shift+2")

	p, err := db.PanelByID(id)
	if err != nil {
		t.Fatalf("PanelByID failed: %v", err)
	}
	if p.X != 10 || p.Y != 20 || p.Width != 350 || p.Height != 500 {
		t.Errorf("unexpected geometry: %+v", p)
	}
	if !p.IsActive {
		t.Error("new panel should be active")
	}
	if p.PanelType != PanelTypeCategory {
		t.Errorf("expected panel type %q, got %q", PanelTypeCategory, p.PanelType)
	}
	if p.StateFilter != "normal" {
		t.Errorf("expected default state filter, got %q", p.StateFilter)
	}
	if p.CreatedAt.IsZero() {
		t.Error("created_at should be populated")
	}
}

func TestUpdatePinnedPanelPartial(t *testing.T) {
	db := openTestDB(t)
	id := newCategoryPanel(t, db, "")

	x, minimized := 99, true
	if err := db.UpdatePinnedPanel(id, PanelUpdate{X: &x, IsMinimized: &minimized}); err != nil {
		t.Fatalf("UpdatePinnedPanel failed: %v", err)
	}

	p, err := db.PanelByID(id)
	if err != nil {
		t.Fatalf("PanelByID failed: %v", err)
	}
	if p.X != 99 || !p.IsMinimized {
		t.Errorf("update not applied: x=%d minimized=%v", p.X, p.IsMinimized)
	}
	if p.Y != 20 || p.Width != 350 {
		t.Errorf("fields not in the update changed: y=%d width=%d", p.Y, p.Width)
	}

	// Empty update is a no-op
	if err := db.UpdatePinnedPanel(id, PanelUpdate{}); err != nil {
		t.Errorf("empty update returned error: %v", err)
	}
}

func TestPanelNotFound(t *testing.T) {
	db := openTestDB(t)
	x := 1

	testCases := []struct {
		name string
		fn   func() error
	}{
		{"PanelByID", func() error { _, err := db.PanelByID(404); return err }},
		{"UpdatePinnedPanel", func() error { return db.UpdatePinnedPanel(404, PanelUpdate{X: &x}) }},
		{"DeletePinnedPanel", func() error { return db.DeletePinnedPanel(404) }},
		{"UpdatePanelLastOpened", func() error { return db.UpdatePanelLastOpened(404) }},
		{"PanelByCategory", func() error { _, err := db.PanelByCategory(404); return err }},
	}

	for _, tc := range testCases {
		if err := tc.fn(); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", tc.name, err)
		}
	}
}

func TestDeactivateAllPanels(t *testing.T) {
	db := openTestDB(t)
	newCategoryPanel(t, db, "")
	newCategoryPanel(t, db, "")

	n, err := db.DeactivateAllPanels()
	if err != nil {
		t.Fatalf("DeactivateAllPanels failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows touched, got %d", n)
	}

	active, err := db.PinnedPanels(true)
	if err != nil {
		t.Fatalf("PinnedPanels failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active panels, got %d", len(active))
	}
	all, _ := db.PinnedPanels(false)
	if len(all) != 2 {
		t.Errorf("expected rows to be kept, got %d", len(all))
	}
}

func TestShortcutsIncludeInactivePanels(t *testing.T) {
	db := openTestDB(t)
	newCategoryPanel(t, db, "Ctrl+Shift+1")
	id := newCategoryPanel(t, db, "Ctrl+Shift+3")
	newCategoryPanel(t, db, "")

	inactive := false
	if err := db.UpdatePinnedPanel(id, PanelUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdatePinnedPanel failed: %v", err)
	}

	shortcuts, err := db.Shortcuts()
	if err != nil {
		t.Fatalf("Shortcuts failed: %v", err)
	}
	if len(shortcuts) != 2 {
		t.Errorf("expected 2 shortcuts, got %v", shortcuts)
	}
}

func TestUpdatePanelLastOpened(t *testing.T) {
	db := openTestDB(t)
	id := newCategoryPanel(t, db, "")

	for i := 0; i < 3; i++ {
		if err := db.UpdatePanelLastOpened(id); err != nil {
			t.Fatalf("UpdatePanelLastOpened failed: %v", err)
		}
	}

	p, _ := db.PanelByID(id)
	if p.OpenCount != 3 {
		t.Errorf("expected open_count 3, got %d", p.OpenCount)
	}

	recent, err := db.RecentPanels(5)
	if err != nil {
		t.Fatalf("RecentPanels failed: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != id {
		t.Errorf("unexpected recent panels: %+v", recent)
	}
}
