package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/justyntemme/sidebar/internal/debug"
	"github.com/justyntemme/sidebar/internal/domain"
)

// DB is the Database Manager: it owns the SQLite connection and exposes
// row-level CRUD for items, pinned_panels, categories and settings.
type DB struct {
	conn   *sql.DB
	path   string
	logger *zap.Logger

	// Migration is the result of the migration run performed by Open.
	Migration *MigrationStatus
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for migration progress.
func WithLogger(l *zap.Logger) Option {
	return func(d *DB) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDB(opts ...Option) *DB {
	d := &DB{logger: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Open brings the schema up to date and opens the connection used for
// all row operations.
func (d *DB) Open(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	status, err := Migrate(dbPath, d.logger)
	if err != nil {
		return err
	}
	d.Migration = status

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return err
	}
	// One writer; pragmas in the DSN apply to every pooled connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	debug.Log(debug.STORE, "opened %s (schema version %d)", dbPath, status.Version)
	d.conn = db
	d.path = dbPath
	return nil
}

// dsn appends the connection pragmas understood by modernc.org/sqlite.
// WAL allows readers alongside the writer; synchronous NORMAL is safe
// against app crashes and faster than FULL.
func dsn(dbPath string) string {
	pragmas := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
	}
	return dbPath + "?" + strings.Join(pragmas, "&")
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}

// Setting returns the value stored for key. ok is false when the row
// does not exist.
func (d *DB) Setting(key string) (value string, ok bool, err error) {
	err = d.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %q: %w", key, err)
	}
	return value, true, nil
}

// SetSetting upserts a settings row.
func (d *DB) SetSetting(key, value string) error {
	_, err := d.conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("save setting %q: %w", key, err)
	}
	debug.Log(debug.STORE, "setting %s updated", key)
	return nil
}

// Settings returns every settings row.
func (d *DB) Settings() (map[string]string, error) {
	rows, err := d.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// Category is a row of the categories table.
type Category struct {
	ID         int64
	Name       string
	Icon       string
	OrderIndex int
}

// CreateCategory inserts a category and returns its id.
func (d *DB) CreateCategory(name, icon string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, domain.Invalid("category name is required")
	}
	res, err := d.conn.Exec(
		"INSERT INTO categories (name, icon, order_index) VALUES (?, ?, (SELECT COALESCE(MAX(order_index), -1) + 1 FROM categories))",
		name, nullString(icon),
	)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return res.LastInsertId()
}

// Categories returns all categories ordered for display.
func (d *DB) Categories() ([]Category, error) {
	rows, err := d.conn.Query("SELECT id, name, COALESCE(icon, ''), COALESCE(order_index, 0) FROM categories ORDER BY order_index, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.OrderIndex); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// timestampLayouts covers CURRENT_TIMESTAMP text and the RFC3339 form the
// driver produces when it hands back time.Time values.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return t
		}
	}
	debug.Log(debug.STORE, "unparseable timestamp %q", ns.String)
	return time.Time{}
}
