package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/justyntemme/sidebar/internal/debug"
	"github.com/justyntemme/sidebar/internal/domain"
)

// ItemTypePath marks an item backed by a stored file.
const ItemTypePath = "PATH"

// Item is a row of the items table. For PATH items Content holds the
// portable relative path (FOLDER/filename) under the files base path.
type Item struct {
	ID               int64
	CategoryID       *int64
	Label            string
	Content          string
	Type             string
	Description      string
	FileSize         int64
	FileType         string
	FileExtension    string
	OriginalFilename string
	FileHash         string
	CreatedAt        time.Time
}

const itemColumns = `id, category_id, label, content, type, COALESCE(description, ''),
	COALESCE(file_size, 0), COALESCE(file_type, ''), COALESCE(file_extension, ''),
	COALESCE(original_filename, ''), COALESCE(file_hash, ''), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*Item, error) {
	var (
		it       Item
		category sql.NullInt64
		created  sql.NullString
	)
	err := s.Scan(&it.ID, &category, &it.Label, &it.Content, &it.Type, &it.Description,
		&it.FileSize, &it.FileType, &it.FileExtension, &it.OriginalFilename, &it.FileHash, &created)
	if err != nil {
		return nil, err
	}
	if category.Valid {
		id := category.Int64
		it.CategoryID = &id
	}
	it.CreatedAt = parseTimestamp(created)
	return &it, nil
}

// InsertItem stores a new item and returns its id.
func (d *DB) InsertItem(it Item) (int64, error) {
	if it.Label == "" || it.Content == "" {
		return 0, domain.Invalid("item label and content are required")
	}
	if it.Type == "" {
		it.Type = ItemTypePath
	}
	var category sql.NullInt64
	if it.CategoryID != nil {
		category = sql.NullInt64{Int64: *it.CategoryID, Valid: true}
	}

	res, err := d.conn.Exec(`INSERT INTO items
		(category_id, label, content, type, description,
		 file_size, file_type, file_extension, original_filename, file_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		category, it.Label, it.Content, it.Type, nullString(it.Description),
		it.FileSize, nullString(it.FileType), nullString(it.FileExtension),
		nullString(it.OriginalFilename), nullString(it.FileHash),
	)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	debug.Log(debug.STORE, "item %d inserted (%s)", id, it.Content)
	return id, nil
}

// ItemByID returns the item with the given id.
func (d *DB) ItemByID(id int64) (*Item, error) {
	row := d.conn.QueryRow("SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, domain.NotFound("item %d", id)
	}
	return it, err
}

// ItemByHash returns the first item whose file hash equals hash.
// It returns an error wrapping domain.ErrNotFound when there is none.
func (d *DB) ItemByHash(hash string) (*Item, error) {
	row := d.conn.QueryRow("SELECT "+itemColumns+" FROM items WHERE file_hash = ? ORDER BY id LIMIT 1", hash)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, domain.NotFound("item with hash %s", hash)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup item by hash: %w", err)
	}
	return it, nil
}

// ItemsByType returns every item of the given type, oldest first.
func (d *DB) ItemsByType(itemType string) ([]Item, error) {
	return d.queryItems("SELECT "+itemColumns+" FROM items WHERE type = ? ORDER BY id", itemType)
}

// Items returns every item, oldest first.
func (d *DB) Items() ([]Item, error) {
	return d.queryItems("SELECT " + itemColumns + " FROM items ORDER BY id")
}

func (d *DB) queryItems(query string, args ...any) ([]Item, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}
