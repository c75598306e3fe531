//go:build debug

// Package debug provides a centralized, categorized debug logging system.
// Build with -tags debug to enable logging.
package debug

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	// Core categories
	APP     Category = "APP"     // CLI wiring, session start/stop
	STORE   Category = "STORE"   // Database operations, settings, rows
	FILES   Category = "FILES"   // File classification, copy, hashing
	PANELS  Category = "PANELS"  // Pinned panel persistence, shortcuts
	MIGRATE Category = "MIGRATE" // Schema migrations and baseline detection
	CONFIG  Category = "CONFIG"  // Config file and settings facade

	// Detailed subcategories (use sparingly - can be verbose)
	FS_WALK Category = "FS_WALK" // Storage walking for stats
	SQL     Category = "SQL"     // Individual statements
)

var (
	// enabledCategories controls which categories are active
	enabledCategories = map[Category]bool{
		APP:     true,
		STORE:   true,
		FILES:   true,
		PANELS:  true,
		MIGRATE: true,
		CONFIG:  true,
		// Verbose categories disabled by default
		FS_WALK: false,
		SQL:     false,
	}
	categoryMu sync.RWMutex

	logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
)

func init() {
	// Format: SIDEBAR_DEBUG=PANELS,FILES or SIDEBAR_DEBUG=all or SIDEBAR_DEBUG=none
	if env := os.Getenv("SIDEBAR_DEBUG"); env != "" {
		Configure(env)
	}
}

// Configure applies a category list: "all", "none", or a comma-separated
// list of categories, which enables exactly those.
func Configure(list string) {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	list = strings.ToUpper(strings.TrimSpace(list))
	switch list {
	case "":
		return
	case "ALL":
		for cat := range enabledCategories {
			enabledCategories[cat] = true
		}
	case "NONE":
		for cat := range enabledCategories {
			enabledCategories[cat] = false
		}
	default:
		for cat := range enabledCategories {
			enabledCategories[cat] = false
		}
		for _, cat := range strings.Split(list, ",") {
			cat = strings.TrimSpace(cat)
			enabledCategories[Category(cat)] = true
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}

	msg := fmt.Sprintf(format, args...)
	logger.Printf("[%s] %s", cat, msg)
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

// EnableAll enables all debug categories including verbose ones
func EnableAll() {
	categoryMu.Lock()
	for cat := range enabledCategories {
		enabledCategories[cat] = true
	}
	categoryMu.Unlock()
}

// DisableAll disables all debug categories
func DisableAll() {
	categoryMu.Lock()
	for cat := range enabledCategories {
		enabledCategories[cat] = false
	}
	categoryMu.Unlock()
}

// SetCategories sets the enabled state for multiple categories
func SetCategories(cats map[Category]bool) {
	categoryMu.Lock()
	for cat, enabled := range cats {
		enabledCategories[cat] = enabled
	}
	categoryMu.Unlock()
}

// ListEnabled returns a slice of currently enabled categories
func ListEnabled() []Category {
	categoryMu.RLock()
	defer categoryMu.RUnlock()

	var enabled []Category
	for cat, on := range enabledCategories {
		if on {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}
