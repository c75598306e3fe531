package panels

import (
	"errors"
	"path/filepath"
	"testing"

	"gioui.org/io/key"

	"github.com/justyntemme/sidebar/internal/config"
	"github.com/justyntemme/sidebar/internal/domain"
	"github.com/justyntemme/sidebar/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.DB) {
	t.Helper()
	db := store.NewDB()
	if err := db.Open(filepath.Join(t.TempDir(), "panels.db")); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(db.Close)
	return NewManager(db), db
}

func newCategory(t *testing.T, db *store.DB) int64 {
	t.Helper()
	id, err := db.CreateCategory("Git", "")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	return id
}

var snap = Snapshot{Geometry: Geometry{X: 100, Y: 200, Width: 320, Height: 480}}

func TestNextShortcut(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)

	for _, s := range []string{"Ctrl+Shift+1", "Ctrl+Shift+3"} {
		if _, err := m.SaveCategoryPanel(cat, snap, SaveOptions{Shortcut: s}); err != nil {
			t.Fatalf("SaveCategoryPanel(%s) failed: %v", s, err)
		}
	}

	s, ok, err := m.NextShortcut()
	if err != nil || !ok || s != "Ctrl+Shift+2" {
		t.Errorf("NextShortcut() = (%q, %v, %v), expected Ctrl+Shift+2", s, ok, err)
	}

	// Fill the remaining slots through auto-assignment
	for i := 0; i < 7; i++ {
		if _, err := m.SaveCategoryPanel(cat, snap, SaveOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	s, ok, err = m.NextShortcut()
	if err != nil || ok || s != "" {
		t.Errorf("expected no free shortcut, got (%q, %v, %v)", s, ok, err)
	}

	// A tenth panel still saves, without a shortcut
	id, err := m.SaveCategoryPanel(cat, snap, SaveOptions{})
	if err != nil {
		t.Fatalf("save with all slots taken failed: %v", err)
	}
	p, _ := m.PanelByID(id)
	if p.Shortcut != "" {
		t.Errorf("expected no shortcut, got %q", p.Shortcut)
	}
}

func TestNextShortcutCountsInactivePanels(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)

	id, err := m.SaveCategoryPanel(cat, snap, SaveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Archive(id); err != nil {
		t.Fatal(err)
	}
	s, _, _ := m.NextShortcut()
	if s != "Ctrl+Shift+2" {
		t.Errorf("archived panel should keep its slot, got %q", s)
	}

	if err := m.Delete(id); err != nil {
		t.Fatal(err)
	}
	s, _, _ = m.NextShortcut()
	if s != "Ctrl+Shift+1" {
		t.Errorf("deleted panel should free its slot, got %q", s)
	}
}

func TestExplicitShortcut(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)

	id, err := m.SaveCategoryPanel(cat, snap, SaveOptions{Shortcut: "ctrl+shift+5"})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := m.PanelByID(id)
	if p.Shortcut != "Ctrl+Shift+5" {
		t.Errorf("shortcut not canonicalized: %q", p.Shortcut)
	}

	testCases := []struct {
		name     string
		shortcut string
	}{
		{"taken", "Ctrl+Shift+5"},
		{"outside range", "Ctrl+Shift+0"},
		{"wrong modifiers", "Alt+5"},
	}
	for _, tc := range testCases {
		_, err := m.SaveCategoryPanel(cat, snap, SaveOptions{Shortcut: tc.shortcut})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}

	id2, err := m.SaveCategoryPanel(cat, snap, SaveOptions{NoShortcut: true})
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := m.PanelByID(id2); p.Shortcut != "" {
		t.Errorf("NoShortcut panel got %q", p.Shortcut)
	}
}

func TestSaveCategoryPanel(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)

	s := snap
	s.Minimized = true
	s.Filters = FilterConfig{StateFilter: StateArchived, SearchText: "rebase"}
	id, err := m.SaveCategoryPanel(cat, s, SaveOptions{Name: "Git", Color: "#112233"})
	if err != nil {
		t.Fatalf("SaveCategoryPanel failed: %v", err)
	}

	p, err := m.PanelByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind() != store.PanelTypeCategory || !p.Active || !p.Minimized {
		t.Errorf("unexpected panel: %+v", p)
	}
	if p.Geometry != snap.Geometry || p.Name != "Git" || p.Color != "#112233" {
		t.Errorf("unexpected panel fields: %+v", p)
	}
	b, ok := p.Binding.(CategoryBinding)
	if !ok {
		t.Fatalf("expected CategoryBinding, got %T", p.Binding)
	}
	if b.CategoryID != cat || b.Filters == nil || b.Filters.SearchText != "rebase" || b.Filters.StateFilter != StateArchived {
		t.Errorf("unexpected binding: %+v", b)
	}

	if _, err := m.SaveCategoryPanel(0, snap, SaveOptions{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation without category, got %v", err)
	}
	if _, err := m.SaveCategoryPanel(cat, snap, SaveOptions{Color: "red"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for bad color, got %v", err)
	}
}

func TestSaveUsesDefaultSize(t *testing.T) {
	_, db := newTestManager(t)
	m := NewManager(db, WithDefaults(config.PanelsConfig{DefaultWidth: 400, DefaultHeight: 600}))
	cat := newCategory(t, db)

	id, err := m.SaveCategoryPanel(cat, Snapshot{Geometry: Geometry{X: 5, Y: 6}}, SaveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := m.PanelByID(id)
	if p.Geometry.Width != 400 || p.Geometry.Height != 600 {
		t.Errorf("expected default size 400x600, got %dx%d", p.Geometry.Width, p.Geometry.Height)
	}
}

func TestGlobalSearchPanel(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)
	if _, err := m.SaveCategoryPanel(cat, snap, SaveOptions{}); err != nil {
		t.Fatal(err)
	}

	s := snap
	s.Filters = FilterConfig{
		AdvancedFilters: map[string]any{"type": "CODE"},
		StateFilter:     StateAll,
		SearchText:      "docker",
	}
	id, err := m.SaveGlobalSearchPanel(s, SaveOptions{})
	if err != nil {
		t.Fatalf("SaveGlobalSearchPanel failed: %v", err)
	}

	row, _ := db.PanelByID(id)
	if row.CategoryID.Valid || row.FilterConfig.Valid {
		t.Errorf("global search panel should not use category_id or filter_config: %+v", row)
	}
	if row.SearchQuery.String != "docker" || row.StateFilter != "all" || row.AdvancedFilters.String != `{"type":"CODE"}` {
		t.Errorf("dedicated columns not written: %+v", row)
	}

	panels, err := m.GlobalSearchPanels(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(panels) != 1 || panels[0].ID != id {
		t.Fatalf("expected only the global search panel, got %+v", panels)
	}

	st, err := m.RestoreGlobalSearchPanel(panels[0])
	if err != nil {
		t.Fatalf("RestoreGlobalSearchPanel failed: %v", err)
	}
	if st.Name != "Global Search" || st.Color != "#ff6b00" {
		t.Errorf("expected default name and color, got %q %q", st.Name, st.Color)
	}
	if st.Query != "docker" || st.StateFilter != StateAll || st.AdvancedFilters["type"] != "CODE" {
		t.Errorf("unexpected restored state: %+v", st)
	}
	if st.Geometry != snap.Geometry || st.Shortcut != "Ctrl+Shift+2" {
		t.Errorf("unexpected geometry or shortcut: %+v", st)
	}

	catPanel, _ := m.PanelByCategory(cat)
	if _, err := m.RestoreGlobalSearchPanel(*catPanel); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for a category panel, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)

	catID, _ := m.SaveCategoryPanel(cat, snap, SaveOptions{})
	gsID, _ := m.SaveGlobalSearchPanel(snap, SaveOptions{})

	moved := Snapshot{
		Geometry:  Geometry{X: 1, Y: 2, Width: 300, Height: 301},
		Minimized: true,
		Filters:   FilterConfig{SearchText: "tag"},
	}

	// Without filters only geometry changes
	if err := m.Update(catID, moved, false); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	row, _ := db.PanelByID(catID)
	if row.X != 1 || row.Height != 301 || !row.IsMinimized || row.FilterConfig.Valid {
		t.Errorf("unexpected row after geometry update: %+v", row)
	}

	if err := m.Update(catID, moved, true); err != nil {
		t.Fatal(err)
	}
	row, _ = db.PanelByID(catID)
	if !row.FilterConfig.Valid || row.SearchQuery.Valid {
		t.Errorf("category filters should go to filter_config only: %+v", row)
	}

	if err := m.Update(gsID, moved, true); err != nil {
		t.Fatal(err)
	}
	row, _ = db.PanelByID(gsID)
	if row.SearchQuery.String != "tag" || row.FilterConfig.Valid {
		t.Errorf("global search filters should go to search_query: %+v", row)
	}

	// Clearing filters removes the stored blob
	if err := m.Update(catID, snap, true); err != nil {
		t.Fatal(err)
	}
	row, _ = db.PanelByID(catID)
	if row.FilterConfig.Valid {
		t.Errorf("default filters should clear filter_config, got %q", row.FilterConfig.String)
	}

	if err := m.Update(9999, snap, true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestArchiveRestoreRoundTrip(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)
	s := snap
	s.Filters = FilterConfig{SearchText: "x"}
	id, _ := m.SaveCategoryPanel(cat, s, SaveOptions{Name: "n", Color: "#000000"})

	before, _ := db.PanelByID(id)
	if err := m.Archive(id); err != nil {
		t.Fatal(err)
	}
	archived, _ := db.PanelByID(id)
	if archived.IsActive {
		t.Error("archived panel should be inactive")
	}
	if err := m.Restore(id); err != nil {
		t.Fatal(err)
	}
	after, _ := db.PanelByID(id)

	if *after != *before {
		t.Errorf("archive/restore changed fields:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestCleanupOnExitAndRestore(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)

	a, _ := m.SaveCategoryPanel(cat, snap, SaveOptions{})
	m.SaveGlobalSearchPanel(snap, SaveOptions{})
	c, _ := m.SaveCategoryPanel(cat, snap, SaveOptions{})
	m.Archive(c)

	restored, err := m.RestoreOnStartup()
	if err != nil {
		t.Fatal(err)
	}
	if len(restored) != 2 || restored[0].ID != a {
		t.Errorf("expected the two active panels in storage order, got %+v", restored)
	}

	n, err := m.CleanupOnExit()
	if err != nil {
		t.Fatalf("CleanupOnExit failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected every row touched, got %d", n)
	}
	all, _ := m.All(false)
	for _, p := range all {
		if p.Active {
			t.Errorf("panel %d still active", p.ID)
		}
	}
	if restored, _ := m.RestoreOnStartup(); len(restored) != 0 {
		t.Errorf("nothing should restore after cleanup, got %d", len(restored))
	}
	if has, _ := m.HasPanels(); !has {
		t.Error("rows should still exist after cleanup")
	}
}

func TestRestoreToleratesBadFilterData(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)
	id, _ := m.SaveCategoryPanel(cat, snap, SaveOptions{})

	bad := store.PanelUpdate{}
	blob := nullString("{broken")
	bad.FilterConfig = &blob
	if err := db.UpdatePinnedPanel(id, bad); err != nil {
		t.Fatal(err)
	}

	restored, err := m.RestoreOnStartup()
	if err != nil {
		t.Fatalf("bad filter data should not block restore: %v", err)
	}
	b := restored[0].Binding.(CategoryBinding)
	if b.Filters != nil {
		t.Errorf("unreadable filters should restore as none, got %+v", b.Filters)
	}
}

func TestCustomizationAndHistory(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)
	a, _ := m.SaveCategoryPanel(cat, snap, SaveOptions{})
	b, _ := m.SaveCategoryPanel(cat, snap, SaveOptions{})

	name, shortcut := "Renamed", "Ctrl+Shift+1"
	// a already holds slot 1, so reassigning it to itself is fine
	if err := m.UpdateCustomization(a, Customization{Name: &name, Shortcut: &shortcut}); err != nil {
		t.Fatalf("UpdateCustomization failed: %v", err)
	}
	if err := m.UpdateCustomization(b, Customization{Shortcut: &shortcut}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for a taken shortcut, got %v", err)
	}
	none := ""
	if err := m.UpdateCustomization(b, Customization{Shortcut: &none}); err != nil {
		t.Fatal(err)
	}
	if p, _ := m.PanelByID(b); p.Shortcut != "" {
		t.Errorf("shortcut should be cleared, got %q", p.Shortcut)
	}
	if p, _ := m.PanelByID(a); p.Name != "Renamed" {
		t.Errorf("name not updated: %q", p.Name)
	}

	if err := m.SetMinimized(a, true); err != nil {
		t.Fatal(err)
	}
	if err := m.MarkOpened(b); err != nil {
		t.Fatal(err)
	}
	recent, err := m.RecentHistory(1)
	if err != nil || len(recent) != 1 {
		t.Fatalf("RecentHistory = %v, %v", recent, err)
	}
	if recent[0].OpenCount != 1 {
		t.Errorf("expected open count 1, got %d", recent[0].OpenCount)
	}
}

func TestOpenByKey(t *testing.T) {
	m, db := newTestManager(t)
	cat := newCategory(t, db)
	a, _ := m.SaveCategoryPanel(cat, snap, SaveOptions{})
	b, _ := m.SaveCategoryPanel(cat, snap, SaveOptions{})
	if err := m.Archive(b); err != nil {
		t.Fatal(err)
	}

	press := func(s string) key.Event {
		sc, ok := config.ParseShortcut(s)
		if !ok {
			t.Fatalf("ParseShortcut(%q) failed", s)
		}
		return sc.Event()
	}

	p, ok, err := m.OpenByKey(press("Ctrl+Shift+1"))
	if err != nil || !ok {
		t.Fatalf("OpenByKey(slot 1) = (%v, %v)", ok, err)
	}
	if p.ID != a || p.OpenCount != 1 {
		t.Errorf("expected panel %d opened once, got %d with count %d", a, p.ID, p.OpenCount)
	}

	testCases := []struct {
		name     string
		shortcut string
	}{
		{"archived panel", "Ctrl+Shift+2"},
		{"unbound slot", "Ctrl+Shift+5"},
		{"not a slot", "Ctrl+1"},
	}
	for _, tc := range testCases {
		if p, ok, err := m.OpenByKey(press(tc.shortcut)); err != nil || ok || p != nil {
			t.Errorf("%s: expected no panel, got (%v, %v, %v)", tc.name, p, ok, err)
		}
	}
	if p, _ := m.PanelByID(b); p.OpenCount != 0 {
		t.Errorf("archived panel should not be opened, count %d", p.OpenCount)
	}
}
