// Package search evaluates global search queries against stored items.
package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/justyntemme/sidebar/internal/store"
)

// DirectiveType selects the item field a directive tests.
type DirectiveType int

const (
	DirLabel DirectiveType = iota
	DirText
	DirExt
	DirType
	DirSize
	DirCreated
	DirCategory
)

// Comparison operators for size, date and category
type Operator int

const (
	OpNone Operator = iota
	OpGreater
	OpLess
	OpGreaterEq
	OpLessEq
	OpEquals
)

// Directive is a single search term
type Directive struct {
	Type     DirectiveType
	Value    string
	Operator Operator
	NumValue int64     // bytes for size, id for category
	TimeVal  time.Time // parsed date
}

// Query holds parsed search directives. All directives must match.
type Query struct {
	Directives []Directive
	Raw        string
}

// Parse parses a search string into directives.
// Examples:
//   - "invoice" -> label or original filename contains "invoice"
//   - "text:docker" -> content or description contains "docker"
//   - "ext:pdf" -> items stored with a .pdf extension
//   - "type:imagen" -> items of file type IMAGEN
//   - "size:>1MB" -> files larger than 1MB
//   - "created:>=2024-01-01" -> items created on or after Jan 1, 2024
//   - "category:3" -> items in category 3
func Parse(input string) *Query {
	return ParseAt(input, time.Now())
}

// ParseAt is Parse with relative dates ("today", "week") resolved
// against now.
func ParseAt(input string, now time.Time) *Query {
	q := &Query{Raw: input}
	input = strings.TrimSpace(input)
	if input == "" {
		return q
	}

	for _, part := range splitRespectingQuotes(input) {
		q.Directives = append(q.Directives, parseDirective(part, now))
	}
	return q
}

func splitRespectingQuotes(s string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, r := range s {
		switch {
		case (r == '"' || r == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = r
		case r == quoteChar && inQuotes:
			inQuotes = false
			quoteChar = 0
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func parseDirective(s string, now time.Time) Directive {
	if idx := strings.Index(s, ":"); idx > 0 {
		value := strings.Trim(s[idx+1:], "\"'")
		if d, ok := directive(strings.ToLower(s[:idx]), value, now); ok {
			return d
		}
	}
	return Directive{Type: DirLabel, Value: strings.ToLower(s)}
}

// directive builds the directive for name:value. ok is false for unknown
// names, which are then searched as plain text.
func directive(name, value string, now time.Time) (Directive, bool) {
	switch name {
	case "label", "name", "file":
		return Directive{Type: DirLabel, Value: strings.ToLower(value)}, true

	case "text", "content", "body":
		return Directive{Type: DirText, Value: strings.ToLower(value)}, true

	case "ext", "extension":
		value = strings.ToLower(value)
		if value != "" && !strings.HasPrefix(value, ".") {
			value = "." + value
		}
		return Directive{Type: DirExt, Value: value}, true

	case "type", "kind":
		return Directive{Type: DirType, Value: strings.ToUpper(value)}, true

	case "size":
		op, numStr := parseOperator(value)
		return Directive{Type: DirSize, Value: value, Operator: op, NumValue: parseSize(numStr)}, true

	case "created", "date":
		op, dateStr := parseOperator(value)
		return Directive{Type: DirCreated, Value: value, Operator: op, TimeVal: parseDate(dateStr, now)}, true

	case "category", "cat":
		op, idStr := parseOperator(value)
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return Directive{}, false
		}
		return Directive{Type: DirCategory, Value: value, Operator: op, NumValue: id}, true
	}
	return Directive{}, false
}

func parseOperator(s string) (Operator, string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, ">="):
		return OpGreaterEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "<="):
		return OpLessEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, ">"):
		return OpGreater, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "<"):
		return OpLess, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "="):
		return OpEquals, strings.TrimSpace(s[1:])
	default:
		return OpEquals, s
	}
}

// parseSize converts size strings like "1KB", "10MB", "1GB" to bytes
func parseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))

	multiplier := int64(1)
	numStr := s

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		numStr = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
	if err != nil {
		return 0
	}
	return int64(n * float64(multiplier))
}

// parseDate parses "2024-01-01", "2024-01", "today", "yesterday", "week",
// "month" and "year". Unparsable input gives the zero time.
func parseDate(s string, now time.Time) time.Time {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "yesterday":
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	}

	for _, layout := range []string{"2006-01-02", "2006-01", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// WithFilters adds the panel's advanced filters as directives. Known keys
// are "type", "ext" and "category_id"; values may be strings or JSON
// numbers. Unknown keys are ignored.
func (q *Query) WithFilters(advanced map[string]any) *Query {
	out := &Query{Raw: q.Raw, Directives: append([]Directive(nil), q.Directives...)}
	for key, name := range filterKeys {
		value := filterValue(advanced[key])
		if value == "" {
			continue
		}
		if d, ok := directive(name, value, time.Time{}); ok {
			out.Directives = append(out.Directives, d)
		}
	}
	return out
}

// filterKeys maps advanced filter keys to directive names.
var filterKeys = map[string]string{
	"type":        "type",
	"ext":         "ext",
	"category_id": "category",
}

func filterValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// Match reports whether it satisfies every directive.
func (q *Query) Match(it store.Item) bool {
	for _, d := range q.Directives {
		if !matchDirective(d, it) {
			return false
		}
	}
	return true
}

// Filter returns the items matching q, in input order.
func (q *Query) Filter(items []store.Item) []store.Item {
	var out []store.Item
	for _, it := range items {
		if q.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

func matchDirective(d Directive, it store.Item) bool {
	switch d.Type {
	case DirLabel:
		return matchGlob(strings.ToLower(it.Label), d.Value) ||
			(it.OriginalFilename != "" && matchGlob(strings.ToLower(it.OriginalFilename), d.Value))

	case DirText:
		return strings.Contains(strings.ToLower(it.Content), d.Value) ||
			strings.Contains(strings.ToLower(it.Description), d.Value)

	case DirExt:
		return strings.ToLower(it.FileExtension) == d.Value

	case DirType:
		return strings.ToUpper(it.FileType) == d.Value

	case DirSize:
		if it.Type != store.ItemTypePath {
			return false
		}
		return compareInt(it.FileSize, d.NumValue, d.Operator)

	case DirCreated:
		if d.TimeVal.IsZero() {
			return true
		}
		return compareTime(it.CreatedAt, d.TimeVal, d.Operator)

	case DirCategory:
		if it.CategoryID == nil {
			return false
		}
		return compareInt(*it.CategoryID, d.NumValue, d.Operator)
	}
	return true
}

// matchGlob does simple glob matching with * wildcards
func matchGlob(name, pattern string) bool {
	// Without wildcards, a substring match
	if !strings.Contains(pattern, "*") {
		return strings.Contains(name, pattern)
	}

	parts := strings.Split(pattern, "*")
	if parts[0] != "" && !strings.HasPrefix(name, parts[0]) {
		return false
	}
	last := parts[len(parts)-1]
	if last != "" && !strings.HasSuffix(name, last) {
		return false
	}

	// Middle parts must appear in order
	pos := len(parts[0])
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(name[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}
	return true
}

func compareInt(val, target int64, op Operator) bool {
	switch op {
	case OpGreater:
		return val > target
	case OpLess:
		return val < target
	case OpGreaterEq:
		return val >= target
	case OpLessEq:
		return val <= target
	default:
		return val == target
	}
}

func compareTime(val, target time.Time, op Operator) bool {
	switch op {
	case OpGreater:
		return val.After(target)
	case OpLess:
		return val.Before(target)
	case OpGreaterEq:
		return !val.Before(target)
	case OpLessEq:
		return !val.After(target)
	default:
		// Equals compares the date part only
		vy, vm, vd := val.Date()
		ty, tm, td := target.Date()
		return vy == ty && vm == tm && vd == td
	}
}

// IsEmpty returns true if query has no directives
func (q *Query) IsEmpty() bool {
	return len(q.Directives) == 0
}
