package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/justyntemme/sidebar/internal/config"
	"github.com/justyntemme/sidebar/internal/domain"
)

const usage = `usage: sidebar [-config FILE] [-v] <command> [args]

commands:
  run                 restore pinned panels and hold the session until interrupted
  panels [-all]       list pinned panels
  pin [flags]         pin a category panel (-category N) or a global search panel (-search Q)
  unpin ID            delete a pinned panel
  open SHORTCUT       open the active panel bound to a shortcut
  search [-panel ID] [QUERY]
                      search stored items, optionally with a global search panel's query
  import [flags] FILE store a file and add it as an item
  hash FILE           print the SHA-256 of a file
  stats               summarize the file storage
  base-path [PATH]    print or set the storage base path
  config init         write a default config file, backing up the old one
`

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file (default $SIDEBAR_CONFIG or ~/.config/sidebar/config.yaml)")
	verbose := flag.Bool("v", false, "Log at debug level")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// config init must work even when the current file does not parse.
	if args[0] == "config" {
		os.Exit(runConfig(*configPath, args[1:]))
	}

	a, err := newApp(*configPath, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sidebar: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	var cmdErr error
	switch args[0] {
	case "run":
		cmdErr = a.runSession()
	case "panels":
		cmdErr = a.listPanels(args[1:])
	case "pin":
		cmdErr = a.pinPanel(args[1:])
	case "unpin":
		cmdErr = a.unpinPanel(args[1:])
	case "open":
		cmdErr = a.openPanel(args[1:])
	case "search":
		cmdErr = a.searchItems(args[1:])
	case "import":
		cmdErr = a.importFiles(args[1:])
	case "hash":
		cmdErr = a.hashFile(args[1:])
	case "stats":
		cmdErr = a.printStats()
	case "base-path":
		cmdErr = a.basePath(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "sidebar: unknown command %q\n\n", args[0])
		flag.Usage()
		a.Close()
		os.Exit(2)
	}

	if cmdErr != nil {
		a.logger.Error("command failed", zap.String("command", args[0]), zap.Error(cmdErr))
		a.Close()
		os.Exit(exitCode(cmdErr))
	}
}

// exitCode maps error kinds to distinct exit statuses for scripts.
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return 2
	case errors.Is(err, domain.ErrDuplicate):
		return 3
	case errors.Is(err, domain.ErrNotFound):
		return 4
	default:
		return 1
	}
}

func runConfig(path string, args []string) int {
	if len(args) != 1 || args[0] != "init" {
		fmt.Fprintln(os.Stderr, "usage: sidebar config init")
		return 2
	}
	if path == "" {
		path = config.ConfigPath()
	}
	backup, err := config.GenerateConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sidebar: %v\n", err)
		return 1
	}
	if backup != "" {
		fmt.Printf("Backed up existing config to %s\n", backup)
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return 0
}
