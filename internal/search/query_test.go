package search

import (
	"testing"
	"time"

	"github.com/justyntemme/sidebar/internal/store"
)

var now = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestParse_Empty(t *testing.T) {
	q := Parse("  ")
	if !q.IsEmpty() {
		t.Errorf("expected empty query, got %d directives", len(q.Directives))
	}
	if !q.Match(store.Item{Label: "anything"}) {
		t.Error("empty query should match everything")
	}
}

func TestParse_Directives(t *testing.T) {
	testCases := []struct {
		input    string
		wantType DirectiveType
		wantVal  string
	}{
		{"Invoice", DirLabel, "invoice"},
		{"name:Report", DirLabel, "report"},
		{"text:Docker", DirText, "docker"},
		{"content:compose", DirText, "compose"},
		{"ext:PDF", DirExt, ".pdf"},
		{"extension:.md", DirExt, ".md"},
		{"type:imagen", DirType, "IMAGEN"},
		{"size:>1KB", DirSize, ">1KB"},
		{"category:3", DirCategory, "3"},
		{"unknown:thing", DirLabel, "unknown:thing"},
		{"category:abc", DirLabel, "category:abc"},
	}

	for _, tc := range testCases {
		q := ParseAt(tc.input, now)
		if len(q.Directives) != 1 {
			t.Fatalf("input %q: expected 1 directive, got %d", tc.input, len(q.Directives))
		}
		d := q.Directives[0]
		if d.Type != tc.wantType || d.Value != tc.wantVal {
			t.Errorf("input %q: got type %d value %q, expected %d %q", tc.input, d.Type, d.Value, tc.wantType, tc.wantVal)
		}
	}
}

func TestParse_QuotedValues(t *testing.T) {
	q := ParseAt(`"quarterly report" text:'rebase onto'`, now)
	if len(q.Directives) != 2 {
		t.Fatalf("expected 2 directives, got %d", len(q.Directives))
	}
	if q.Directives[0].Value != "quarterly report" || q.Directives[1].Value != "rebase onto" {
		t.Errorf("quotes not respected: %+v", q.Directives)
	}
}

func TestParseSize(t *testing.T) {
	testCases := []struct {
		input    string
		expected int64
	}{
		{"100", 100},
		{"100B", 100},
		{"1KB", 1024},
		{"1.5MB", 1572864},
		{"2GB", 2147483648},
		{"junk", 0},
	}
	for _, tc := range testCases {
		if got := parseSize(tc.input); got != tc.expected {
			t.Errorf("parseSize(%q) = %d, expected %d", tc.input, got, tc.expected)
		}
	}
}

func TestParseDate(t *testing.T) {
	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"today", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"week", now.AddDate(0, 0, -7)},
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2023-11", time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)},
		{"someday", time.Time{}},
	}
	for _, tc := range testCases {
		if got := parseDate(tc.input, now); !got.Equal(tc.expected) {
			t.Errorf("parseDate(%q) = %v, expected %v", tc.input, got, tc.expected)
		}
	}
}

func testItems() []store.Item {
	cat := int64(2)
	return []store.Item{
		{ID: 1, Label: "Quarterly Report.pdf", Content: "PDFS/Quarterly Report.pdf", Type: store.ItemTypePath,
			FileSize: 2048, FileType: "PDF", FileExtension: ".pdf", OriginalFilename: "Quarterly Report.pdf",
			CategoryID: &cat, CreatedAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)},
		{ID: 2, Label: "docker prune", Content: "docker system prune -af", Type: "TEXT",
			Description: "cleanup", CreatedAt: time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)},
		{ID: 3, Label: "logo", Content: "IMAGENES/logo.png", Type: store.ItemTypePath,
			FileSize: 512, FileType: "IMAGEN", FileExtension: ".png", OriginalFilename: "brand-logo.png",
			CategoryID: &cat, CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
}

func ids(items []store.Item) []int64 {
	var out []int64
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQuery_Filter(t *testing.T) {
	testCases := []struct {
		query    string
		expected []int64
	}{
		{"report", []int64{1}},
		{"brand", []int64{3}},
		{"*.png", []int64{3}},
		{"text:prune", []int64{2}},
		{"text:cleanup", []int64{2}},
		{"ext:pdf", []int64{1}},
		{"type:imagen", []int64{3}},
		{"size:>1KB", []int64{1}},
		{"size:<=1KB", []int64{3}},
		{"category:2", []int64{1, 3}},
		{"created:today", []int64{2}},
		{"created:>=2024-03-01", []int64{2, 3}},
		{"category:2 size:<1KB", []int64{3}},
		{"nothing-matches", nil},
	}

	items := testItems()
	for _, tc := range testCases {
		got := ids(ParseAt(tc.query, now).Filter(items))
		if !equalIDs(got, tc.expected) {
			t.Errorf("query %q: got %v, expected %v", tc.query, got, tc.expected)
		}
	}
}

func TestQuery_WithFilters(t *testing.T) {
	base := ParseAt("o", now)
	testCases := []struct {
		name     string
		filters  map[string]any
		expected []int64
	}{
		{"none", nil, []int64{1, 2, 3}},
		{"type", map[string]any{"type": "pdf"}, []int64{1}},
		{"json number category", map[string]any{"category_id": float64(2)}, []int64{1, 3}},
		{"ext", map[string]any{"ext": "png"}, []int64{3}},
		{"unknown keys ignored", map[string]any{"favorites": true}, []int64{1, 2, 3}},
	}

	items := testItems()
	for _, tc := range testCases {
		q := base.WithFilters(tc.filters)
		got := ids(q.Filter(items))
		if !equalIDs(got, tc.expected) {
			t.Errorf("%s: got %v, expected %v", tc.name, got, tc.expected)
		}
	}
	if len(base.Directives) != 1 {
		t.Errorf("WithFilters must not modify the receiver, got %d directives", len(base.Directives))
	}
}

func TestMatchGlob(t *testing.T) {
	testCases := []struct {
		name, pattern string
		expected      bool
	}{
		{"report.pdf", "port", true},
		{"report.pdf", "*.pdf", true},
		{"report.pdf", "re*.pdf", true},
		{"report.pdf", "*o*t*", true},
		{"report.pdf", "*.png", false},
		{"report.pdf", "x*", false},
	}
	for _, tc := range testCases {
		if got := matchGlob(tc.name, tc.pattern); got != tc.expected {
			t.Errorf("matchGlob(%q, %q) = %v, expected %v", tc.name, tc.pattern, got, tc.expected)
		}
	}
}
