package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/justyntemme/sidebar/internal/debug"
)

// Migrations are forward-only. There are no down files: reverting
// 000004 would need a column drop, which is deliberately not offered.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// LatestVersion is the version of the newest embedded migration.
const LatestVersion uint = 5

const baseSchemaFile = "migrations/000001_base_schema.up.sql"

// MigrationStatus describes the outcome of Migrate.
type MigrationStatus struct {
	From      uint // version before the run (0 for a fresh database)
	Version   uint // version after the run
	Dirty     bool
	Baselined bool // legacy database adopted via baseline detection
}

// Applied reports how many steps were executed by this run.
func (s *MigrationStatus) Applied() uint {
	if s.Version < s.From {
		return 0
	}
	return s.Version - s.From
}

// migrateLogger adapts zap to migrate.Logger.
type migrateLogger struct {
	s *zap.SugaredLogger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.s.Infof(strings.TrimSpace(format), v...)
}

func (l *migrateLogger) Verbose() bool {
	return debug.IsEnabled(debug.MIGRATE)
}

// Migrate applies all pending migrations to the database at dbPath using a
// dedicated connection. Running it again on an up-to-date database is a
// no-op.
func Migrate(dbPath string, logger *zap.Logger) (*MigrationStatus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("Migrate")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database for migration: %w", err)
	}

	baseline, err := detectBaseline(conn, logger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("inspect existing schema: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(conn, &sqlitemigrate.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("init migration driver: %w", err)
	}

	// Closing m also closes conn through the driver.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()
	m.Log = &migrateLogger{s: logger.Sugar()}

	status := &MigrationStatus{}
	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		if baseline > 0 {
			logger.Info("adopting existing database", zap.String("path", dbPath), zap.Uint("baseline", baseline))
			if err := m.Force(int(baseline)); err != nil {
				return nil, fmt.Errorf("record baseline version %d: %w", baseline, err)
			}
			status.Baselined = true
			from = baseline
		}
	case err != nil:
		return nil, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return nil, fmt.Errorf("schema version %d is dirty: a previous migration failed part-way and needs manual repair", from)
	}
	status.From = from

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, _ := m.Version()
		status.Version, status.Dirty = version, dirty
		return status, fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	status.Version, status.Dirty = version, dirty

	logger.Info("migrations applied",
		zap.String("path", dbPath),
		zap.Uint("from", status.From),
		zap.Uint("version", status.Version),
		zap.Bool("dirty", status.Dirty),
	)
	return status, nil
}

// legacySteps are the migrations the earlier standalone scripts ran one
// at a time. Any subset of them may already be applied, even partially.
var legacySteps = []uint{2, 3, 4}

var addColumnRe = regexp.MustCompile(`(?is)^ALTER\s+TABLE\s+(\w+)\s+ADD\s+COLUMN\s+(\w+)`)

// detectBaseline inspects a database that has no version table yet. A
// database written by the earlier standalone scripts is brought up to
// step 4 in place, adding only the columns it lacks, and gets baseline 4,
// or 5 when category_id is already nullable. Fresh databases return 0.
func detectBaseline(db *sql.DB, logger *zap.Logger) (uint, error) {
	exists, err := tableExists(db, "schema_migrations")
	if err != nil || exists {
		return 0, err
	}
	legacy := false
	for _, table := range []string{"items", "pinned_panels"} {
		ok, err := tableExists(db, table)
		if err != nil {
			return 0, err
		}
		legacy = legacy || ok
	}
	if !legacy {
		return 0, nil
	}

	// Step 1 is CREATE IF NOT EXISTS only; run it so tables missing from
	// the legacy file exist before the later steps are reconciled.
	base, err := migrationsFS.ReadFile(baseSchemaFile)
	if err != nil {
		return 0, err
	}
	if _, err := db.Exec(string(base)); err != nil {
		return 0, fmt.Errorf("complete base schema: %w", err)
	}

	for _, version := range legacySteps {
		added, err := reconcileStep(db, version)
		if err != nil {
			return 0, fmt.Errorf("reconcile step %d: %w", version, err)
		}
		if len(added) > 0 {
			logger.Info("added missing legacy columns", zap.Uint("step", version), zap.Strings("columns", added))
		}
	}

	cols, err := tableColumns(db, "pinned_panels")
	if err != nil {
		return 0, err
	}
	if col, ok := cols["category_id"]; ok && !col.notNull {
		return 5, nil
	}
	return 4, nil
}

// reconcileStep runs the statements of one embedded migration, skipping
// each ADD COLUMN whose column already exists. Its other statements are
// IF NOT EXISTS or OR IGNORE and run as they are. It returns the
// columns it added as table.column.
func reconcileStep(db *sql.DB, version uint) ([]string, error) {
	stmts, err := migrationStatements(version)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, stmt := range stmts {
		if m := addColumnRe.FindStringSubmatch(stmt); m != nil {
			table, column := m[1], m[2]
			ok, err := hasColumns(db, table, column)
			if err != nil {
				return nil, err
			}
			if ok {
				debug.Log(debug.MIGRATE, "step %d: %s.%s present", version, table, column)
				continue
			}
			added = append(added, table+"."+column)
		}
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return added, nil
}

// migrationStatements splits the up file of version into statements,
// dropping comment lines.
func migrationStatements(version uint) ([]string, error) {
	matches, err := fs.Glob(migrationsFS, fmt.Sprintf("migrations/%06d_*.up.sql", version))
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, fmt.Errorf("expected one up migration for version %d, found %d", version, len(matches))
	}
	body, err := migrationsFS.ReadFile(matches[0])
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, line := range strings.Split(string(body), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	var stmts []string
	for _, stmt := range strings.Split(sb.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	return n > 0, err
}

type columnInfo struct {
	name    string
	notNull bool
}

func tableColumns(db *sql.DB, table string) (map[string]columnInfo, error) {
	rows, err := db.Query("SELECT name, \"notnull\" FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]columnInfo)
	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.name, &c.notNull); err != nil {
			return nil, err
		}
		cols[c.name] = c
	}
	return cols, rows.Err()
}

func hasColumns(db *sql.DB, table string, names ...string) (bool, error) {
	cols, err := tableColumns(db, table)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if _, ok := cols[name]; !ok {
			return false, nil
		}
	}
	return true, nil
}
