// Command sidebar-migrate brings a sidebar database up to the latest schema.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/justyntemme/sidebar/internal/config"
	"github.com/justyntemme/sidebar/internal/store"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", "", "SQLite database path (default from config, $SIDEBAR_DB_PATH overrides)")
	configPath := flag.String("config", "", "Path to YAML config file")
	status := flag.Bool("status", false, "Print the schema version after migrating")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sidebar-migrate: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	path := *dbPath
	if path == "" {
		cfg := config.NewManager(*configPath, config.WithLogger(logger))
		if err := cfg.Load(); err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
		path = cfg.DatabasePath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Fatal("failed to create database directory", zap.Error(err))
	}

	st, err := store.Migrate(path, logger)
	if err != nil {
		logger.Error("migration failed", zap.String("path", path), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	if *status {
		fmt.Printf("database: %s\n", path)
		fmt.Printf("version:  %d (latest %d)\n", st.Version, store.LatestVersion)
		fmt.Printf("applied:  %d\n", st.Applied())
		if st.Baselined {
			fmt.Printf("baseline: adopted existing database at version %d\n", st.From)
		}
		if st.Dirty {
			fmt.Println("state:    dirty")
		}
	}
}
