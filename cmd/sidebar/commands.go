package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/justyntemme/sidebar/internal/domain"
	"github.com/justyntemme/sidebar/internal/files"
	"github.com/justyntemme/sidebar/internal/panels"
)

// runSession restores the panels active at the last exit, then waits for
// SIGINT or SIGTERM and deactivates every panel before returning.
func (a *app) runSession() error {
	restored, err := a.panels.RestoreOnStartup()
	if err != nil {
		return err
	}

	for _, p := range restored {
		if err := a.panels.MarkOpened(p.ID); err != nil {
			a.logger.Warn("could not record panel open", zap.Int64("panel_id", p.ID), zap.Error(err))
		}
		a.logger.Info("panel restored",
			zap.Int64("panel_id", p.ID),
			zap.String("kind", p.Kind()),
			zap.String("shortcut", p.Shortcut))
	}
	a.logger.Info("session started", zap.Int("panels", len(restored)))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	signal.Stop(quit)

	a.logger.Info("shutting down", zap.String("signal", sig.String()))
	_, err = a.panels.CleanupOnExit()
	return err
}

func (a *app) listPanels(args []string) error {
	fs := flag.NewFlagSet("panels", flag.ContinueOnError)
	all := fs.Bool("all", false, "Include inactive panels")
	if err := fs.Parse(args); err != nil {
		return domain.Invalid("%v", err)
	}

	list, err := a.panels.All(!*all)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tNAME\tSHORTCUT\tACTIVE\tGEOMETRY\tBINDING")
	for _, p := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%v\t%dx%d+%d+%d\t%s\n",
			p.ID, p.Kind(), p.Name, p.Shortcut, p.Active,
			p.Geometry.Width, p.Geometry.Height, p.Geometry.X, p.Geometry.Y,
			describeBinding(p.Binding))
	}
	return w.Flush()
}

func describeBinding(b panels.Binding) string {
	switch b := b.(type) {
	case panels.CategoryBinding:
		s := fmt.Sprintf("category %d", b.CategoryID)
		if b.Filters != nil {
			s += fmt.Sprintf(" [%s %q]", b.Filters.StateFilter, b.Filters.SearchText)
		}
		return s
	case panels.GlobalSearchBinding:
		return fmt.Sprintf("search %q [%s]", b.Query, b.StateFilter)
	}
	return ""
}

func (a *app) importFiles(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	category := fs.Int64("category", 0, "Category id for the new items")
	label := fs.String("label", "", "Item label (single file only; default original filename)")
	description := fs.String("description", "", "Item description")
	allowDup := fs.Bool("allow-duplicate", false, "Store files whose content is already stored")
	if err := fs.Parse(args); err != nil {
		return domain.Invalid("%v", err)
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return domain.Invalid("import needs at least one file")
	}
	if *label != "" && len(paths) > 1 {
		return domain.Invalid("-label only applies to a single file")
	}

	opts := files.ImportOptions{
		Label:          *label,
		Description:    *description,
		AllowDuplicate: *allowDup,
	}
	if *category > 0 {
		opts.CategoryID = category
	}

	var firstErr error
	for _, p := range paths {
		res, err := a.files.Import(p, opts)
		var dupErr *domain.DuplicateError
		switch {
		case errors.As(err, &dupErr):
			fmt.Printf("skipped %s: same content as item %d (%s)\n", p, dupErr.Existing.ID, dupErr.Existing.Path)
		case err != nil:
			fmt.Printf("failed  %s: %v\n", p, err)
		default:
			fmt.Printf("stored  %s -> %s (item %d, %s)\n",
				p, res.Record.RelativePath, res.ItemID, files.FormatSize(res.Record.Size))
			if res.Duplicate != nil {
				fmt.Printf("        duplicate of item %d\n", res.Duplicate.ID)
			}
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *app) hashFile(args []string) error {
	if len(args) != 1 {
		return domain.Invalid("usage: sidebar hash FILE")
	}
	hash, err := a.files.Hash(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", hash, args[0])

	dup, err := a.files.DuplicateOf(hash)
	if err != nil {
		return err
	}
	if dup != nil {
		fmt.Printf("stored as item %d (%s)\n", dup.ID, dup.Content)
	}
	return nil
}

func (a *app) printStats() error {
	stats, err := a.files.StorageStats()
	if err != nil {
		return err
	}
	base, _ := a.files.BasePath()
	fmt.Printf("Base path: %s\n", base)
	fmt.Printf("Items:     %d\n", stats.Items)
	fmt.Printf("Files:     %d (%s)\n", stats.Files, stats.TotalSizeFormatted)

	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, t := range types {
		ts := stats.ByType[t]
		fmt.Fprintf(w, "  %s %s\t%d\t%s\n", files.IconForType(t), t, ts.Count, files.FormatSize(ts.Size))
	}
	return w.Flush()
}

func (a *app) basePath(args []string) error {
	switch len(args) {
	case 0:
		base, err := a.files.BasePath()
		if err != nil {
			return err
		}
		if base == "" {
			fmt.Println("(not set)")
			return nil
		}
		fmt.Println(base)
		return nil
	case 1:
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return domain.Invalid("base path %q: %v", args[0], err)
		}
		if err := a.files.SetBasePath(abs); err != nil {
			return err
		}
		fmt.Println(abs)
		return nil
	}
	return domain.Invalid("usage: sidebar base-path [PATH]")
}
