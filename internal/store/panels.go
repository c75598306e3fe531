package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/justyntemme/sidebar/internal/debug"
	"github.com/justyntemme/sidebar/internal/domain"
)

// Panel type column values.
const (
	PanelTypeCategory     = "category"
	PanelTypeGlobalSearch = "global_search"
)

// PanelRow is a raw pinned_panels row. Which filter columns are meaningful
// depends on PanelType: FilterConfig for category panels, SearchQuery,
// AdvancedFilters and StateFilter for global search panels.
type PanelRow struct {
	ID               int64
	CategoryID       sql.NullInt64
	CustomName       sql.NullString
	CustomColor      sql.NullString
	X, Y             int
	Width, Height    int
	IsMinimized      bool
	IsActive         bool
	CreatedAt        time.Time
	LastOpened       time.Time
	OpenCount        int
	FilterConfig     sql.NullString
	KeyboardShortcut sql.NullString
	PanelType        string
	SearchQuery      sql.NullString
	AdvancedFilters  sql.NullString
	StateFilter      string
}

// NewPanel holds the columns written when a panel is first pinned.
type NewPanel struct {
	CategoryID       sql.NullInt64
	CustomName       sql.NullString
	CustomColor      sql.NullString
	X, Y             int
	Width, Height    int
	IsMinimized      bool
	FilterConfig     sql.NullString
	KeyboardShortcut sql.NullString
	PanelType        string
	SearchQuery      sql.NullString
	AdvancedFilters  sql.NullString
	StateFilter      string
}

// PanelUpdate is a partial update: nil fields are left untouched.
type PanelUpdate struct {
	X, Y             *int
	Width, Height    *int
	IsMinimized      *bool
	IsActive         *bool
	CustomName       *sql.NullString
	CustomColor      *sql.NullString
	KeyboardShortcut *sql.NullString
	FilterConfig     *sql.NullString
	SearchQuery      *sql.NullString
	AdvancedFilters  *sql.NullString
	StateFilter      *string
}

func (u PanelUpdate) assignments() ([]string, []any) {
	var (
		cols []string
		args []any
	)
	add := func(col string, v any) {
		cols = append(cols, col+" = ?")
		args = append(args, v)
	}
	if u.X != nil {
		add("x_position", *u.X)
	}
	if u.Y != nil {
		add("y_position", *u.Y)
	}
	if u.Width != nil {
		add("width", *u.Width)
	}
	if u.Height != nil {
		add("height", *u.Height)
	}
	if u.IsMinimized != nil {
		add("is_minimized", *u.IsMinimized)
	}
	if u.IsActive != nil {
		add("is_active", *u.IsActive)
	}
	if u.CustomName != nil {
		add("custom_name", *u.CustomName)
	}
	if u.CustomColor != nil {
		add("custom_color", *u.CustomColor)
	}
	if u.KeyboardShortcut != nil {
		add("keyboard_shortcut", *u.KeyboardShortcut)
	}
	if u.FilterConfig != nil {
		add("filter_config", *u.FilterConfig)
	}
	if u.SearchQuery != nil {
		add("search_query", *u.SearchQuery)
	}
	if u.AdvancedFilters != nil {
		add("advanced_filters", *u.AdvancedFilters)
	}
	if u.StateFilter != nil {
		add("state_filter", *u.StateFilter)
	}
	return cols, args
}

const panelColumns = `id, category_id, custom_name, custom_color,
	x_position, y_position, width, height,
	COALESCE(is_minimized, 0), COALESCE(is_active, 1),
	created_at, last_opened, COALESCE(open_count, 0),
	filter_config, keyboard_shortcut, COALESCE(panel_type, 'category'),
	search_query, advanced_filters, COALESCE(state_filter, 'normal')`

func scanPanel(s rowScanner) (*PanelRow, error) {
	var (
		p                   PanelRow
		created, lastOpened sql.NullString
	)
	err := s.Scan(&p.ID, &p.CategoryID, &p.CustomName, &p.CustomColor,
		&p.X, &p.Y, &p.Width, &p.Height,
		&p.IsMinimized, &p.IsActive,
		&created, &lastOpened, &p.OpenCount,
		&p.FilterConfig, &p.KeyboardShortcut, &p.PanelType,
		&p.SearchQuery, &p.AdvancedFilters, &p.StateFilter)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTimestamp(created)
	p.LastOpened = parseTimestamp(lastOpened)
	return &p, nil
}

func (d *DB) queryPanels(query string, args ...any) ([]PanelRow, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pinned panels: %w", err)
	}
	defer rows.Close()

	var panels []PanelRow
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, err
		}
		panels = append(panels, *p)
	}
	return panels, rows.Err()
}

// SavePinnedPanel inserts a panel and returns its id.
func (d *DB) SavePinnedPanel(p NewPanel) (int64, error) {
	if p.PanelType == "" {
		p.PanelType = PanelTypeCategory
	}
	if p.StateFilter == "" {
		p.StateFilter = "normal"
	}
	res, err := d.conn.Exec(`INSERT INTO pinned_panels
		(category_id, custom_name, custom_color, x_position, y_position, width, height,
		 is_minimized, filter_config, keyboard_shortcut, panel_type,
		 search_query, advanced_filters, state_filter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CategoryID, p.CustomName, p.CustomColor, p.X, p.Y, p.Width, p.Height,
		p.IsMinimized, p.FilterConfig, p.KeyboardShortcut, p.PanelType,
		p.SearchQuery, p.AdvancedFilters, p.StateFilter,
	)
	if err != nil {
		return 0, fmt.Errorf("save pinned panel: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	debug.Log(debug.STORE, "pinned panel %d saved (type=%s)", id, p.PanelType)
	return id, nil
}

// UpdatePinnedPanel applies a partial update. An update with no fields
// set is a no-op.
func (d *DB) UpdatePinnedPanel(id int64, u PanelUpdate) error {
	cols, args := u.assignments()
	if len(cols) == 0 {
		return nil
	}
	query := "UPDATE pinned_panels SET " + strings.Join(cols, ", ") + " WHERE id = ?"
	debug.Log(debug.SQL, "%s %v", query, args)

	res, err := d.conn.Exec(query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("update pinned panel %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("pinned panel %d", id)
	}
	return nil
}

// DeletePinnedPanel removes a panel row permanently.
func (d *DB) DeletePinnedPanel(id int64) error {
	res, err := d.conn.Exec("DELETE FROM pinned_panels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete pinned panel %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("pinned panel %d", id)
	}
	return nil
}

// PinnedPanels returns panels in storage order.
func (d *DB) PinnedPanels(activeOnly bool) ([]PanelRow, error) {
	query := "SELECT " + panelColumns + " FROM pinned_panels"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	return d.queryPanels(query + " ORDER BY id")
}

// PanelByID returns one panel.
func (d *DB) PanelByID(id int64) (*PanelRow, error) {
	p, err := scanPanel(d.conn.QueryRow("SELECT "+panelColumns+" FROM pinned_panels WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFound("pinned panel %d", id)
	}
	return p, err
}

// PanelByCategory returns the active panel bound to a category.
func (d *DB) PanelByCategory(categoryID int64) (*PanelRow, error) {
	p, err := scanPanel(d.conn.QueryRow(
		"SELECT "+panelColumns+" FROM pinned_panels WHERE category_id = ? AND is_active = 1 ORDER BY id LIMIT 1",
		categoryID))
	if err == sql.ErrNoRows {
		return nil, domain.NotFound("active panel for category %d", categoryID)
	}
	return p, err
}

// RecentPanels returns panels ordered by last opened, newest first.
func (d *DB) RecentPanels(limit int) ([]PanelRow, error) {
	if limit <= 0 {
		limit = 10
	}
	return d.queryPanels("SELECT "+panelColumns+" FROM pinned_panels ORDER BY last_opened DESC, id DESC LIMIT ?", limit)
}

// UpdatePanelLastOpened bumps last_opened and open_count.
func (d *DB) UpdatePanelLastOpened(id int64) error {
	res, err := d.conn.Exec(
		"UPDATE pinned_panels SET last_opened = CURRENT_TIMESTAMP, open_count = COALESCE(open_count, 0) + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark panel %d opened: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("pinned panel %d", id)
	}
	return nil
}

// DeactivateAllPanels marks every panel inactive and returns the number
// of rows touched.
func (d *DB) DeactivateAllPanels() (int64, error) {
	res, err := d.conn.Exec("UPDATE pinned_panels SET is_active = 0")
	if err != nil {
		return 0, fmt.Errorf("deactivate panels: %w", err)
	}
	return res.RowsAffected()
}

// Shortcuts returns every assigned keyboard shortcut, active or not.
func (d *DB) Shortcuts() ([]string, error) {
	rows, err := d.conn.Query("SELECT keyboard_shortcut FROM pinned_panels WHERE keyboard_shortcut IS NOT NULL AND keyboard_shortcut != ''")
	if err != nil {
		return nil, fmt.Errorf("query shortcuts: %w", err)
	}
	defer rows.Close()

	var shortcuts []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		shortcuts = append(shortcuts, s)
	}
	return shortcuts, rows.Err()
}
