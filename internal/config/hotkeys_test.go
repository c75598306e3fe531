package config

import (
	"testing"

	"gioui.org/io/key"
)

func TestParseShortcut(t *testing.T) {
	testCases := []struct {
		input string
		want  Shortcut
		ok    bool
	}{
		{"Ctrl+Shift+1", Shortcut{Key: "!", Modifiers: key.ModCtrl | key.ModShift}, true},
		{"shift+ctrl+4", Shortcut{Key: "$", Modifiers: key.ModCtrl | key.ModShift}, true},
		{"Ctrl+2", Shortcut{Key: "2", Modifiers: key.ModCtrl}, true},
		{"Alt+q", Shortcut{Key: "Q", Modifiers: key.ModAlt}, true},
		{"Ctrl+F5", Shortcut{}, false},
		{"Ctrl+A+B", Shortcut{}, false},
		{"Ctrl+Shift", Shortcut{}, false},
		{"", Shortcut{}, false},
	}

	for _, tc := range testCases {
		got, ok := ParseShortcut(tc.input)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseShortcut(%q) = (%+v, %v), expected (%+v, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestShortcutSlot(t *testing.T) {
	testCases := []struct {
		input string
		slot  int
		ok    bool
	}{
		{"Ctrl+Shift+1", 1, true},
		{"Ctrl+Shift+9", 9, true},
		{"ctrl+shift+5", 5, true},
		{"Ctrl+Shift+0", 0, false},
		{"Ctrl+1", 0, false},
		{"Ctrl+Shift+Alt+2", 0, false},
		{"Ctrl+Shift+A", 0, false},
		{"Ctrl+Shift+10", 0, false},
		{"", 0, false},
	}

	for _, tc := range testCases {
		slot, ok := ShortcutSlot(tc.input)
		if slot != tc.slot || ok != tc.ok {
			t.Errorf("ShortcutSlot(%q) = (%d, %v), expected (%d, %v)", tc.input, slot, ok, tc.slot, tc.ok)
		}
	}
}

func TestShortcutForSlot(t *testing.T) {
	for n := 1; n <= PanelSlots; n++ {
		s := ShortcutForSlot(n)
		if got, ok := ShortcutSlot(s); !ok || got != n {
			t.Errorf("ShortcutSlot(ShortcutForSlot(%d)) = (%d, %v)", n, got, ok)
		}
	}
	if ShortcutForSlot(0) != "" || ShortcutForSlot(10) != "" {
		t.Error("out of range slots should have no shortcut")
	}
}

func TestShortcutMatches(t *testing.T) {
	sc, _ := ParseShortcut("Ctrl+Shift+3")
	if !sc.Matches(sc.Event()) {
		t.Error("a shortcut should match its own event")
	}
	if sc.Matches(key.Event{Name: "#", Modifiers: key.ModCtrl | key.ModShift, State: key.Release}) {
		t.Error("release should not match")
	}
	if sc.Matches(key.Event{Name: "#", Modifiers: key.ModCtrl | key.ModShift | key.ModAlt, State: key.Press}) {
		t.Error("extra modifiers should not match")
	}
}

func TestPanelShortcutsMatch(t *testing.T) {
	ps := NewPanelShortcuts(map[int64]string{
		7: "Ctrl+Shift+2",
		8: "",
		9: "Ctrl+Q",
		3: "ctrl+shift+4",
		4: "Ctrl+Shift+4",
	})

	// Gio reports the shifted character for Shift+digit
	id, ok := ps.Match(key.Event{Name: "@", Modifiers: key.ModCtrl | key.ModShift, State: key.Press})
	if !ok || id != 7 {
		t.Errorf("expected panel 7, got (%d, %v)", id, ok)
	}
	if _, ok := ps.Match(key.Event{Name: "@", Modifiers: key.ModCtrl, State: key.Press}); ok {
		t.Error("missing Shift should not match")
	}
	if _, ok := ps.Match(key.Event{Name: "Q", Modifiers: key.ModCtrl, State: key.Press}); ok {
		t.Error("a non-slot shortcut should not be bound")
	}
	if id, _ := ps.Match(key.Event{Name: "$", Modifiers: key.ModCtrl | key.ModShift, State: key.Press}); id != 3 {
		t.Errorf("shared slot should go to the lowest id, got %d", id)
	}
}
