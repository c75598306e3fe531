package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/justyntemme/sidebar/internal/config"
	"github.com/justyntemme/sidebar/internal/domain"
	"github.com/justyntemme/sidebar/internal/panels"
	"github.com/justyntemme/sidebar/internal/search"
)

func (a *app) pinPanel(args []string) error {
	fs := flag.NewFlagSet("pin", flag.ContinueOnError)
	category := fs.Int64("category", 0, "Category id to bind the panel to")
	query := fs.String("search", "", "Search text; without -category pins a global search panel")
	state := fs.String("state", "", "State filter: normal, archived, inactive or all")
	name := fs.String("name", "", "Custom panel name")
	color := fs.String("color", "", "Custom panel color, #rrggbb")
	shortcut := fs.String("shortcut", "", "Shortcut, Ctrl+Shift+1..9 (default next free slot)")
	noShortcut := fs.Bool("no-shortcut", false, "Do not assign a shortcut")
	x := fs.Int("x", 0, "X position")
	y := fs.Int("y", 0, "Y position")
	width := fs.Int("width", 0, "Width (default from config)")
	height := fs.Int("height", 0, "Height (default from config)")
	if err := fs.Parse(args); err != nil {
		return domain.Invalid("%v", err)
	}

	snap := panels.Snapshot{
		Geometry: panels.Geometry{X: *x, Y: *y, Width: *width, Height: *height},
		Filters:  panels.FilterConfig{StateFilter: panels.StateFilter(*state), SearchText: *query},
	}
	opts := panels.SaveOptions{Name: *name, Color: *color, Shortcut: *shortcut, NoShortcut: *noShortcut}

	var (
		id  int64
		err error
	)
	switch {
	case *category > 0:
		// -search on a category panel becomes its search text filter
		id, err = a.panels.SaveCategoryPanel(*category, snap, opts)
	case isSet(fs, "search"):
		id, err = a.panels.SaveGlobalSearchPanel(snap, opts)
	default:
		return domain.Invalid("pin needs -category or -search")
	}
	if err != nil {
		return err
	}

	p, err := a.panels.PanelByID(id)
	if err != nil {
		return err
	}
	fmt.Printf("pinned panel %d (%s) shortcut %s\n", p.ID, p.Kind(), orNone(p.Shortcut))
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func (a *app) unpinPanel(args []string) error {
	if len(args) != 1 {
		return domain.Invalid("usage: sidebar unpin ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return domain.Invalid("panel id %q: %v", args[0], err)
	}
	return a.panels.Delete(id)
}

// openPanel opens the active panel bound to a shortcut, as pressing it
// in a session would.
func (a *app) openPanel(args []string) error {
	if len(args) != 1 {
		return domain.Invalid("usage: sidebar open SHORTCUT")
	}
	sc, ok := config.ParseShortcut(args[0])
	if !ok {
		return domain.Invalid("shortcut %q: expected e.g. Ctrl+Shift+1", args[0])
	}
	p, ok, err := a.panels.OpenByKey(sc.Event())
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("no active panel on %s", args[0])
	}
	fmt.Printf("%d\t%s\t%s\t%s\n", p.ID, p.Kind(), p.Name, describeBinding(p.Binding))
	return nil
}

// searchItems runs a query over every stored item. With -panel the
// query and advanced filters of that global search panel are used, and
// any extra terms narrow it further.
func (a *app) searchItems(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	panelID := fs.Int64("panel", 0, "Global search panel whose query to run")
	if err := fs.Parse(args); err != nil {
		return domain.Invalid("%v", err)
	}

	terms := strings.Join(fs.Args(), " ")
	var advanced map[string]any
	if *panelID > 0 {
		p, err := a.panels.PanelByID(*panelID)
		if err != nil {
			return err
		}
		st, err := a.panels.RestoreGlobalSearchPanel(*p)
		if err != nil {
			return err
		}
		terms = strings.TrimSpace(st.Query + " " + terms)
		advanced = st.AdvancedFilters
	}

	items, err := a.db.Items()
	if err != nil {
		return err
	}
	q := search.Parse(terms).WithFilters(advanced)
	for _, it := range q.Filter(items) {
		fmt.Printf("%d\t%s\t%s\n", it.ID, it.Label, it.Content)
	}
	return nil
}
