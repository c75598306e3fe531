package panels

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/justyntemme/sidebar/internal/domain"
)

// StateFilter selects items by state inside a panel.
type StateFilter string

const (
	StateNormal   StateFilter = "normal"
	StateArchived StateFilter = "archived"
	StateInactive StateFilter = "inactive"
	StateAll      StateFilter = "all"
)

// Valid reports whether s is one of the known states.
func (s StateFilter) Valid() bool {
	switch s {
	case StateNormal, StateArchived, StateInactive, StateAll:
		return true
	}
	return false
}

// orNormal maps the empty value to StateNormal.
func (s StateFilter) orNormal() StateFilter {
	if s == "" {
		return StateNormal
	}
	return s
}

// FilterConfig is the filter state of a panel, persisted as
// {"advanced_filters": {...}, "state_filter": "...", "search_text": "..."}.
type FilterConfig struct {
	AdvancedFilters map[string]any `json:"advanced_filters"`
	StateFilter     StateFilter    `json:"state_filter"`
	SearchText      string         `json:"search_text"`
}

// IsDefault reports whether every field holds its default value.
func (f FilterConfig) IsDefault() bool {
	return len(f.AdvancedFilters) == 0 && f.StateFilter.orNormal() == StateNormal && f.SearchText == ""
}

// EncodeFilters serializes f. ok is false when f is all defaults, in which
// case nothing should be persisted.
func EncodeFilters(f FilterConfig) (string, bool, error) {
	f.StateFilter = f.StateFilter.orNormal()
	if !f.StateFilter.Valid() {
		return "", false, domain.Invalid("unknown state filter %q", f.StateFilter)
	}
	if f.IsDefault() {
		return "", false, nil
	}
	if f.AdvancedFilters == nil {
		f.AdvancedFilters = map[string]any{}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", false, fmt.Errorf("%w: encode filters: %v", domain.ErrParse, err)
	}
	return string(data), true, nil
}

// DecodeFilters parses a stored filter blob. Empty input means no filters
// and returns (nil, nil). Missing or null keys get their defaults;
// malformed JSON or an unknown state filter is an ErrParse error.
func DecodeFilters(raw string) (*FilterConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var f FilterConfig
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("%w: filter config: %v", domain.ErrParse, err)
	}
	if f.AdvancedFilters == nil {
		f.AdvancedFilters = map[string]any{}
	}
	f.StateFilter = f.StateFilter.orNormal()
	if !f.StateFilter.Valid() {
		return nil, fmt.Errorf("%w: unknown state filter %q", domain.ErrParse, f.StateFilter)
	}
	return &f, nil
}

// encodeAdvanced serializes the advanced filters mapping for the
// advanced_filters column. An empty mapping is stored as NULL.
func encodeAdvanced(m map[string]any) (string, bool, error) {
	if len(m) == 0 {
		return "", false, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", false, fmt.Errorf("%w: encode advanced filters: %v", domain.ErrParse, err)
	}
	return string(data), true, nil
}

func decodeAdvanced(raw string) (map[string]any, error) {
	m := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]any{}, fmt.Errorf("%w: advanced filters: %v", domain.ErrParse, err)
	}
	if m == nil {
		// "null" decodes to a nil map
		m = map[string]any{}
	}
	return m, nil
}
