package config

import (
	"strconv"
	"strings"

	"gioui.org/io/key"
)

// PanelSlots is the number of panel shortcut slots, Ctrl+Shift+1..9.
const PanelSlots = 9

var panelModifiers = key.ModCtrl | key.ModShift

// Gio reports the shifted character for Shift+digit (US layout), so a
// stored "Ctrl+Shift+2" arrives as Name "@" with Ctrl|Shift held.
var shiftedDigits = map[string]key.Name{
	"1": "!", "2": "@", "3": "#", "4": "$", "5": "%",
	"6": "^", "7": "&", "8": "*", "9": "(", "0": ")",
}

var digitForShifted = func() map[key.Name]string {
	m := make(map[key.Name]string, len(shiftedDigits))
	for d, n := range shiftedDigits {
		m[n] = d
	}
	return m
}()

// Shortcut is a parsed keyboard shortcut in Gio's terms.
type Shortcut struct {
	Key       key.Name
	Modifiers key.Modifiers
}

// ParseShortcut parses strings like "Ctrl+Shift+3". Modifier names are
// case insensitive; the key must be a single character. ok is false for
// anything else.
func ParseShortcut(s string) (Shortcut, bool) {
	var (
		sc     Shortcut
		keyStr string
	)
	for _, part := range strings.Split(s, "+") {
		part = strings.TrimSpace(part)
		switch strings.ToLower(part) {
		case "ctrl", "control":
			sc.Modifiers |= key.ModCtrl
		case "shift":
			sc.Modifiers |= key.ModShift
		case "alt", "option":
			sc.Modifiers |= key.ModAlt
		case "cmd", "command":
			sc.Modifiers |= key.ModCommand
		case "super", "meta", "win":
			sc.Modifiers |= key.ModSuper
		default:
			if keyStr != "" || len(part) != 1 {
				return Shortcut{}, false
			}
			keyStr = part
		}
	}
	if keyStr == "" {
		return Shortcut{}, false
	}

	sc.Key = key.Name(strings.ToUpper(keyStr))
	if sc.Modifiers.Contain(key.ModShift) {
		if shifted, ok := shiftedDigits[keyStr]; ok {
			sc.Key = shifted
		}
	}
	return sc, true
}

// Slot returns the panel slot of sc, if it is one.
func (sc Shortcut) Slot() (int, bool) {
	if sc.Modifiers != panelModifiers {
		return 0, false
	}
	n, err := strconv.Atoi(digitForShifted[sc.Key])
	if err != nil || n < 1 || n > PanelSlots {
		return 0, false
	}
	return n, true
}

// Matches reports whether k is a press of sc with exactly its modifiers.
func (sc Shortcut) Matches(k key.Event) bool {
	return k.State == key.Press && k.Name == sc.Key && k.Modifiers == sc.Modifiers
}

// Event returns the key event Gio delivers when sc is pressed.
func (sc Shortcut) Event() key.Event {
	return key.Event{Name: sc.Key, Modifiers: sc.Modifiers, State: key.Press}
}

// ShortcutForSlot returns the canonical shortcut string for slot n (1..9),
// or "" when n is out of range.
func ShortcutForSlot(n int) string {
	if n < 1 || n > PanelSlots {
		return ""
	}
	return "Ctrl+Shift+" + strconv.Itoa(n)
}

// ShortcutSlot reports which panel slot s names, so "ctrl+shift+3" is
// slot 3. Anything other than exactly Ctrl+Shift plus a digit 1..9 is not
// a panel slot.
func ShortcutSlot(s string) (int, bool) {
	sc, ok := ParseShortcut(s)
	if !ok {
		return 0, false
	}
	return sc.Slot()
}

// PanelShortcuts maps key events to the panels bound to them.
type PanelShortcuts struct {
	bySlot map[int]int64
}

// NewPanelShortcuts indexes the shortcut of every panel id. Strings that
// are not a panel slot are skipped; on a shared slot the lowest id wins.
func NewPanelShortcuts(shortcuts map[int64]string) *PanelShortcuts {
	ps := &PanelShortcuts{bySlot: make(map[int]int64, len(shortcuts))}
	for id, s := range shortcuts {
		n, ok := ShortcutSlot(s)
		if !ok {
			continue
		}
		if prev, taken := ps.bySlot[n]; taken && prev < id {
			continue
		}
		ps.bySlot[n] = id
	}
	return ps
}

// Match returns the panel bound to the slot pressed in k.
func (ps *PanelShortcuts) Match(k key.Event) (int64, bool) {
	if k.State != key.Press {
		return 0, false
	}
	n, ok := Shortcut{Key: k.Name, Modifiers: k.Modifiers}.Slot()
	if !ok {
		return 0, false
	}
	id, ok := ps.bySlot[n]
	return id, ok
}
