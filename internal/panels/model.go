package panels

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/justyntemme/sidebar/internal/store"
)

// Geometry is a panel's on-screen rectangle.
type Geometry struct {
	X, Y          int
	Width, Height int
}

// Snapshot is the live state of a panel as handed over by the UI. Zero
// width or height mean "use the configured default".
type Snapshot struct {
	Geometry
	Minimized bool
	Filters   FilterConfig
}

func (s Snapshot) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Width, validation.Min(0)),
		validation.Field(&s.Height, validation.Min(0)),
		validation.Field(&s.Filters, validation.By(func(any) error {
			if !s.Filters.StateFilter.orNormal().Valid() {
				return validation.NewError("validation_state_filter", "unknown state filter")
			}
			return nil
		})),
	)
}

// Binding is what a panel shows: one category, or a search across all
// of them. The two implementations are CategoryBinding and
// GlobalSearchBinding.
type Binding interface {
	kind() string
}

// CategoryBinding binds a panel to a category. Filters is nil when no
// filters are saved.
type CategoryBinding struct {
	CategoryID int64
	Filters    *FilterConfig
}

// GlobalSearchBinding is a panel searching every category.
type GlobalSearchBinding struct {
	Query           string
	AdvancedFilters map[string]any
	StateFilter     StateFilter
}

func (CategoryBinding) kind() string     { return store.PanelTypeCategory }
func (GlobalSearchBinding) kind() string { return store.PanelTypeGlobalSearch }

// Panel is a persisted pinned panel.
type Panel struct {
	ID         int64
	Name       string
	Color      string
	Geometry   Geometry
	Minimized  bool
	Active     bool
	Shortcut   string
	Binding    Binding
	OpenCount  int
	LastOpened time.Time
	CreatedAt  time.Time
}

// Kind returns the panel_type column value of p.
func (p Panel) Kind() string {
	if p.Binding == nil {
		return store.PanelTypeCategory
	}
	return p.Binding.kind()
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// SaveOptions customizes a newly pinned panel.
type SaveOptions struct {
	Name  string
	Color string // #rrggbb

	// Shortcut must be a free Ctrl+Shift+1..9 slot. Empty means the next
	// free slot is assigned, unless NoShortcut is set.
	Shortcut   string
	NoShortcut bool
}

func (o SaveOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Name, validation.Length(0, 100)),
		validation.Field(&o.Color, validation.Match(hexColor)),
	)
}

// Customization changes a panel's name, color or shortcut. Nil fields are
// left alone; an empty string clears the value.
type Customization struct {
	Name     *string
	Color    *string
	Shortcut *string
}

func (c Customization) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Length(0, 100)),
		validation.Field(&c.Color, validation.Match(hexColor)),
	)
}

// GlobalSearchState is everything needed to rebuild a global search
// panel, with defaults filled in for unset name and color.
type GlobalSearchState struct {
	PanelID         int64
	Name            string
	Color           string
	Shortcut        string
	Query           string
	AdvancedFilters map[string]any
	StateFilter     StateFilter
	Geometry        Geometry
	Minimized       bool
}
