// Package panels persists pinned panels: their geometry, filters and
// keyboard shortcuts, and restores them at startup.
package panels

import (
	"database/sql"

	"gioui.org/io/key"
	"go.uber.org/zap"

	"github.com/justyntemme/sidebar/internal/config"
	"github.com/justyntemme/sidebar/internal/debug"
	"github.com/justyntemme/sidebar/internal/domain"
	"github.com/justyntemme/sidebar/internal/store"
)

// Store is the slice of the database the manager uses. *store.DB
// implements it.
type Store interface {
	SavePinnedPanel(p store.NewPanel) (int64, error)
	UpdatePinnedPanel(id int64, u store.PanelUpdate) error
	DeletePinnedPanel(id int64) error
	PinnedPanels(activeOnly bool) ([]store.PanelRow, error)
	PanelByID(id int64) (*store.PanelRow, error)
	PanelByCategory(categoryID int64) (*store.PanelRow, error)
	RecentPanels(limit int) ([]store.PanelRow, error)
	UpdatePanelLastOpened(id int64) error
	DeactivateAllPanels() (int64, error)
	Shortcuts() ([]string, error)
}

// Manager is the Pinned Panels Manager.
type Manager struct {
	store    Store
	logger   *zap.Logger
	defaults config.PanelsConfig
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l.Named("PinnedPanels")
		}
	}
}

// WithDefaults sets default size, name and color for new panels. Zero
// fields keep the built-in defaults.
func WithDefaults(d config.PanelsConfig) Option {
	return func(m *Manager) {
		if d.DefaultWidth > 0 {
			m.defaults.DefaultWidth = d.DefaultWidth
		}
		if d.DefaultHeight > 0 {
			m.defaults.DefaultHeight = d.DefaultHeight
		}
		if d.GlobalSearchName != "" {
			m.defaults.GlobalSearchName = d.GlobalSearchName
		}
		if d.GlobalSearchColor != "" {
			m.defaults.GlobalSearchColor = d.GlobalSearchColor
		}
	}
}

func NewManager(s Store, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		logger:   zap.NewNop(),
		defaults: config.DefaultConfig().Panels,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// NextShortcut returns the lowest free Ctrl+Shift+1..9 slot, counting
// shortcuts of active and inactive panels. ok is false when all nine are
// taken.
func (m *Manager) NextShortcut() (string, bool, error) {
	used, err := m.usedSlots(0)
	if err != nil {
		return "", false, err
	}
	for n := 1; n <= config.PanelSlots; n++ {
		if !used[n] {
			s := config.ShortcutForSlot(n)
			debug.Log(debug.PANELS, "next available shortcut: %s", s)
			return s, true, nil
		}
	}
	m.logger.Warn("all panel shortcuts are in use")
	return "", false, nil
}

// usedSlots returns the taken slots, ignoring the panel with id except
// (0 ignores none).
func (m *Manager) usedSlots(except int64) (map[int]bool, error) {
	used := make(map[int]bool)
	if except == 0 {
		shortcuts, err := m.store.Shortcuts()
		if err != nil {
			return nil, err
		}
		for _, s := range shortcuts {
			if n, ok := config.ShortcutSlot(s); ok {
				used[n] = true
			}
		}
		return used, nil
	}

	rows, err := m.store.PinnedPanels(false)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.ID == except || !r.KeyboardShortcut.Valid {
			continue
		}
		if n, ok := config.ShortcutSlot(r.KeyboardShortcut.String); ok {
			used[n] = true
		}
	}
	return used, nil
}

// claimShortcut validates an explicit shortcut and returns its canonical
// form. The slot must be free of every panel but except.
func (m *Manager) claimShortcut(s string, except int64) (string, error) {
	n, ok := config.ShortcutSlot(s)
	if !ok {
		return "", domain.Invalid("shortcut %q is not one of Ctrl+Shift+1..9", s)
	}
	used, err := m.usedSlots(except)
	if err != nil {
		return "", err
	}
	if used[n] {
		return "", domain.Invalid("shortcut %s is already assigned", config.ShortcutForSlot(n))
	}
	return config.ShortcutForSlot(n), nil
}

// shortcutFor resolves the shortcut of a new panel.
func (m *Manager) shortcutFor(opts SaveOptions) (sql.NullString, error) {
	if opts.NoShortcut {
		return sql.NullString{}, nil
	}
	if opts.Shortcut != "" {
		s, err := m.claimShortcut(opts.Shortcut, 0)
		if err != nil {
			return sql.NullString{}, err
		}
		return sql.NullString{String: s, Valid: true}, nil
	}
	s, ok, err := m.NextShortcut()
	if err != nil || !ok {
		return sql.NullString{}, err
	}
	m.logger.Info("auto-assigned shortcut", zap.String("shortcut", s))
	return sql.NullString{String: s, Valid: true}, nil
}

// geometry fills zero sizes with the configured defaults.
func (m *Manager) geometry(g Geometry) Geometry {
	if g.Width == 0 {
		g.Width = m.defaults.DefaultWidth
	}
	if g.Height == 0 {
		g.Height = m.defaults.DefaultHeight
	}
	return g
}

func validateSave(snap Snapshot, opts SaveOptions) error {
	if err := snap.Validate(); err != nil {
		return domain.Invalid("panel snapshot: %v", err)
	}
	if err := opts.Validate(); err != nil {
		return domain.Invalid("panel options: %v", err)
	}
	return nil
}

// SaveCategoryPanel pins a panel bound to categoryID and returns its id.
func (m *Manager) SaveCategoryPanel(categoryID int64, snap Snapshot, opts SaveOptions) (int64, error) {
	if categoryID <= 0 {
		return 0, domain.Invalid("category panels need a category")
	}
	if err := validateSave(snap, opts); err != nil {
		return 0, err
	}

	filters, hasFilters, err := EncodeFilters(snap.Filters)
	if err != nil {
		return 0, err
	}
	shortcut, err := m.shortcutFor(opts)
	if err != nil {
		return 0, err
	}

	g := m.geometry(snap.Geometry)
	id, err := m.store.SavePinnedPanel(store.NewPanel{
		CategoryID:       sql.NullInt64{Int64: categoryID, Valid: true},
		CustomName:       nullString(opts.Name),
		CustomColor:      nullString(opts.Color),
		X:                g.X,
		Y:                g.Y,
		Width:            g.Width,
		Height:           g.Height,
		IsMinimized:      snap.Minimized,
		FilterConfig:     sql.NullString{String: filters, Valid: hasFilters},
		KeyboardShortcut: shortcut,
		PanelType:        store.PanelTypeCategory,
		StateFilter:      string(StateNormal),
	})
	if err != nil {
		return 0, err
	}
	m.logger.Info("panel saved",
		zap.Int64("panel_id", id),
		zap.Int64("category_id", categoryID),
		zap.String("shortcut", shortcut.String))
	return id, nil
}

// SaveGlobalSearchPanel pins a global search panel and returns its id.
// The snapshot's search text, advanced filters and state filter go to the
// dedicated global search columns.
func (m *Manager) SaveGlobalSearchPanel(snap Snapshot, opts SaveOptions) (int64, error) {
	if err := validateSave(snap, opts); err != nil {
		return 0, err
	}
	if opts.Name == "" {
		opts.Name = m.defaults.GlobalSearchName
	}
	if opts.Color == "" {
		opts.Color = m.defaults.GlobalSearchColor
	}

	advanced, hasAdvanced, err := encodeAdvanced(snap.Filters.AdvancedFilters)
	if err != nil {
		return 0, err
	}
	shortcut, err := m.shortcutFor(opts)
	if err != nil {
		return 0, err
	}

	g := m.geometry(snap.Geometry)
	state := snap.Filters.StateFilter.orNormal()
	id, err := m.store.SavePinnedPanel(store.NewPanel{
		CustomName:       nullString(opts.Name),
		CustomColor:      nullString(opts.Color),
		X:                g.X,
		Y:                g.Y,
		Width:            g.Width,
		Height:           g.Height,
		IsMinimized:      snap.Minimized,
		KeyboardShortcut: shortcut,
		PanelType:        store.PanelTypeGlobalSearch,
		SearchQuery:      sql.NullString{String: snap.Filters.SearchText, Valid: true},
		AdvancedFilters:  sql.NullString{String: advanced, Valid: hasAdvanced},
		StateFilter:      string(state),
	})
	if err != nil {
		return 0, err
	}
	m.logger.Info("global search panel saved",
		zap.Int64("panel_id", id),
		zap.String("query", snap.Filters.SearchText),
		zap.String("state", string(state)))
	return id, nil
}

// Update writes geometry and minimized state of a panel and, when
// includeFilters is set, its filters to the columns of the panel's kind.
func (m *Manager) Update(panelID int64, snap Snapshot, includeFilters bool) error {
	if err := snap.Validate(); err != nil {
		return domain.Invalid("panel snapshot: %v", err)
	}

	g := m.geometry(snap.Geometry)
	u := store.PanelUpdate{
		X:           &g.X,
		Y:           &g.Y,
		Width:       &g.Width,
		Height:      &g.Height,
		IsMinimized: &snap.Minimized,
	}

	if includeFilters {
		row, err := m.store.PanelByID(panelID)
		if err != nil {
			return err
		}
		switch row.PanelType {
		case store.PanelTypeGlobalSearch:
			advanced, ok, err := encodeAdvanced(snap.Filters.AdvancedFilters)
			if err != nil {
				return err
			}
			query := sql.NullString{String: snap.Filters.SearchText, Valid: true}
			adv := sql.NullString{String: advanced, Valid: ok}
			state := string(snap.Filters.StateFilter.orNormal())
			u.SearchQuery, u.AdvancedFilters, u.StateFilter = &query, &adv, &state
		default:
			filters, ok, err := EncodeFilters(snap.Filters)
			if err != nil {
				return err
			}
			fc := sql.NullString{String: filters, Valid: ok}
			u.FilterConfig = &fc
		}
	}

	if err := m.store.UpdatePinnedPanel(panelID, u); err != nil {
		return err
	}
	debug.Log(debug.PANELS, "panel %d updated (filters: %v)", panelID, includeFilters)
	return nil
}

// RestoreOnStartup returns the panels that were active at the last exit,
// in storage order.
func (m *Manager) RestoreOnStartup() ([]Panel, error) {
	panels, err := m.All(true)
	if err != nil {
		return nil, err
	}
	m.logger.Info("panels to restore", zap.Int("count", len(panels)))
	return panels, nil
}

// Archive marks a panel inactive without deleting it.
func (m *Manager) Archive(panelID int64) error {
	return m.setActive(panelID, false)
}

// Restore makes an archived panel active again.
func (m *Manager) Restore(panelID int64) error {
	return m.setActive(panelID, true)
}

func (m *Manager) setActive(panelID int64, active bool) error {
	if err := m.store.UpdatePinnedPanel(panelID, store.PanelUpdate{IsActive: &active}); err != nil {
		return err
	}
	m.logger.Info("panel active flag changed", zap.Int64("panel_id", panelID), zap.Bool("active", active))
	return nil
}

// Delete removes a panel permanently, freeing its shortcut.
func (m *Manager) Delete(panelID int64) error {
	if err := m.store.DeletePinnedPanel(panelID); err != nil {
		return err
	}
	m.logger.Info("panel deleted", zap.Int64("panel_id", panelID))
	return nil
}

// CleanupOnExit marks every panel inactive. Call it once on orderly
// shutdown; the next RestoreOnStartup then only sees panels reopened in
// between.
func (m *Manager) CleanupOnExit() (int64, error) {
	n, err := m.store.DeactivateAllPanels()
	if err != nil {
		return 0, err
	}
	m.logger.Info("panels deactivated on exit", zap.Int64("count", n))
	return n, nil
}

// MarkOpened bumps the open count and last opened time.
func (m *Manager) MarkOpened(panelID int64) error {
	return m.store.UpdatePanelLastOpened(panelID)
}

// Shortcuts indexes the shortcuts of the active panels.
func (m *Manager) Shortcuts() (*config.PanelShortcuts, error) {
	rows, err := m.store.PinnedPanels(true)
	if err != nil {
		return nil, err
	}
	bindings := make(map[int64]string, len(rows))
	for _, r := range rows {
		if r.KeyboardShortcut.Valid {
			bindings[r.ID] = r.KeyboardShortcut.String
		}
	}
	return config.NewPanelShortcuts(bindings), nil
}

// OpenByKey opens the active panel whose shortcut k presses and records
// the open. ok is false when no active panel is bound to k.
func (m *Manager) OpenByKey(k key.Event) (p *Panel, ok bool, err error) {
	shortcuts, err := m.Shortcuts()
	if err != nil {
		return nil, false, err
	}
	id, ok := shortcuts.Match(k)
	if !ok {
		debug.Log(debug.PANELS, "no panel bound to %v+%s", k.Modifiers, k.Name)
		return nil, false, nil
	}
	if err := m.MarkOpened(id); err != nil {
		return nil, false, err
	}
	p, err = m.PanelByID(id)
	if err != nil {
		return nil, false, err
	}
	m.logger.Info("panel opened by shortcut", zap.Int64("panel_id", id), zap.String("shortcut", p.Shortcut))
	return p, true, nil
}

// RecentHistory returns panels by last opened time, newest first.
func (m *Manager) RecentHistory(limit int) ([]Panel, error) {
	rows, err := m.store.RecentPanels(limit)
	if err != nil {
		return nil, err
	}
	return m.toPanels(rows), nil
}

// UpdateCustomization changes name, color or shortcut of a panel.
func (m *Manager) UpdateCustomization(panelID int64, c Customization) error {
	if err := c.Validate(); err != nil {
		return domain.Invalid("panel customization: %v", err)
	}

	var u store.PanelUpdate
	if c.Name != nil {
		v := nullString(*c.Name)
		u.CustomName = &v
	}
	if c.Color != nil {
		v := nullString(*c.Color)
		u.CustomColor = &v
	}
	if c.Shortcut != nil {
		v := sql.NullString{}
		if *c.Shortcut != "" {
			s, err := m.claimShortcut(*c.Shortcut, panelID)
			if err != nil {
				return err
			}
			v = sql.NullString{String: s, Valid: true}
		}
		u.KeyboardShortcut = &v
	}
	return m.store.UpdatePinnedPanel(panelID, u)
}

// SetMinimized stores the minimized flag alone.
func (m *Manager) SetMinimized(panelID int64, minimized bool) error {
	return m.store.UpdatePinnedPanel(panelID, store.PanelUpdate{IsMinimized: &minimized})
}

// PanelByCategory returns the active panel bound to categoryID.
func (m *Manager) PanelByCategory(categoryID int64) (*Panel, error) {
	row, err := m.store.PanelByCategory(categoryID)
	if err != nil {
		return nil, err
	}
	p := m.toPanel(*row)
	return &p, nil
}

// PanelByID returns one panel.
func (m *Manager) PanelByID(panelID int64) (*Panel, error) {
	row, err := m.store.PanelByID(panelID)
	if err != nil {
		return nil, err
	}
	p := m.toPanel(*row)
	return &p, nil
}

// All returns every panel, or only active ones, in storage order.
func (m *Manager) All(activeOnly bool) ([]Panel, error) {
	rows, err := m.store.PinnedPanels(activeOnly)
	if err != nil {
		return nil, err
	}
	return m.toPanels(rows), nil
}

// HasPanels reports whether any panel is stored.
func (m *Manager) HasPanels() (bool, error) {
	rows, err := m.store.PinnedPanels(false)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// GlobalSearchPanels returns the global search panels.
func (m *Manager) GlobalSearchPanels(activeOnly bool) ([]Panel, error) {
	all, err := m.All(activeOnly)
	if err != nil {
		return nil, err
	}
	var out []Panel
	for _, p := range all {
		if _, ok := p.Binding.(GlobalSearchBinding); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// RestoreGlobalSearchPanel extracts the state needed to rebuild p. Name
// and color fall back to the configured defaults.
func (m *Manager) RestoreGlobalSearchPanel(p Panel) (*GlobalSearchState, error) {
	b, ok := p.Binding.(GlobalSearchBinding)
	if !ok {
		return nil, domain.Invalid("panel %d is not a global search panel", p.ID)
	}
	st := &GlobalSearchState{
		PanelID:         p.ID,
		Name:            p.Name,
		Color:           p.Color,
		Shortcut:        p.Shortcut,
		Query:           b.Query,
		AdvancedFilters: b.AdvancedFilters,
		StateFilter:     b.StateFilter,
		Geometry:        p.Geometry,
		Minimized:       p.Minimized,
	}
	if st.Name == "" {
		st.Name = m.defaults.GlobalSearchName
	}
	if st.Color == "" {
		st.Color = m.defaults.GlobalSearchColor
	}
	if st.AdvancedFilters == nil {
		st.AdvancedFilters = map[string]any{}
	}
	return st, nil
}

func (m *Manager) toPanels(rows []store.PanelRow) []Panel {
	panels := make([]Panel, 0, len(rows))
	for _, r := range rows {
		panels = append(panels, m.toPanel(r))
	}
	return panels
}

// toPanel converts a row. Unreadable filter data is logged and restored
// as no filters so a single bad row never blocks startup.
func (m *Manager) toPanel(r store.PanelRow) Panel {
	p := Panel{
		ID:         r.ID,
		Name:       r.CustomName.String,
		Color:      r.CustomColor.String,
		Geometry:   Geometry{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height},
		Minimized:  r.IsMinimized,
		Active:     r.IsActive,
		Shortcut:   r.KeyboardShortcut.String,
		OpenCount:  r.OpenCount,
		LastOpened: r.LastOpened,
		CreatedAt:  r.CreatedAt,
	}

	switch r.PanelType {
	case store.PanelTypeGlobalSearch:
		adv, err := decodeAdvanced(r.AdvancedFilters.String)
		if err != nil {
			m.logger.Warn("ignoring unreadable advanced filters", zap.Int64("panel_id", r.ID), zap.Error(err))
		}
		state := StateFilter(r.StateFilter).orNormal()
		if !state.Valid() {
			m.logger.Warn("unknown state filter, using normal", zap.Int64("panel_id", r.ID), zap.String("state", r.StateFilter))
			state = StateNormal
		}
		p.Binding = GlobalSearchBinding{
			Query:           r.SearchQuery.String,
			AdvancedFilters: adv,
			StateFilter:     state,
		}
	default:
		filters, err := DecodeFilters(r.FilterConfig.String)
		if err != nil {
			m.logger.Warn("ignoring unreadable filter config", zap.Int64("panel_id", r.ID), zap.Error(err))
			filters = nil
		}
		p.Binding = CategoryBinding{CategoryID: r.CategoryID.Int64, Filters: filters}
	}
	return p
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
