package files

import (
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/justyntemme/sidebar/internal/domain"
	"github.com/justyntemme/sidebar/internal/store"
)

// ImportOptions controls Import.
type ImportOptions struct {
	CategoryID  *int64
	Label       string // defaults to the original filename
	Description string

	// AllowDuplicate stores the file even when its content is already
	// stored under another item.
	AllowDuplicate bool
}

func (o ImportOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Label, validation.Length(0, 255)),
		validation.Field(&o.Description, validation.Length(0, 2000)),
	)
}

// ImportResult is the outcome of Import.
type ImportResult struct {
	ItemID int64
	Record *FileRecord

	// Duplicate is the existing item with the same content, if any. Only
	// set when AllowDuplicate let the import through.
	Duplicate *store.Item
}

// Import hashes sourcePath, checks for stored duplicates, stores the file
// and inserts a PATH item for it. A duplicate is refused with a
// *domain.DuplicateError unless opts.AllowDuplicate is set. If the item
// cannot be inserted the copied file is removed again.
func (m *Manager) Import(sourcePath string, opts ImportOptions) (*ImportResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, domain.Invalid("import options: %v", err)
	}
	if _, err := statRegular(sourcePath); err != nil {
		return nil, err
	}

	hash, err := m.Hash(sourcePath)
	if err != nil {
		return nil, err
	}
	dup, err := m.DuplicateOf(hash)
	if err != nil {
		return nil, err
	}
	if dup != nil && !opts.AllowDuplicate {
		return nil, &domain.DuplicateError{Existing: domain.DuplicateItem{
			ID:       dup.ID,
			Label:    dup.Label,
			Path:     dup.Content,
			FileHash: dup.FileHash,
		}}
	}

	rec, err := m.Store(sourcePath)
	if err != nil {
		return nil, err
	}

	label := opts.Label
	if label == "" {
		label = rec.OriginalFilename
	}
	id, err := m.items.InsertItem(store.Item{
		CategoryID:       opts.CategoryID,
		Label:            label,
		Content:          rec.RelativePath,
		Type:             store.ItemTypePath,
		Description:      opts.Description,
		FileSize:         rec.Size,
		FileType:         rec.FileType,
		FileExtension:    rec.Extension,
		OriginalFilename: rec.OriginalFilename,
		FileHash:         rec.Hash,
	})
	if err != nil {
		if rmErr := os.Remove(rec.FullPath); rmErr != nil {
			m.logger.Warn("could not remove orphaned copy", zap.String("path", rec.FullPath), zap.Error(rmErr))
		}
		return nil, err
	}

	m.logger.Info("file imported", zap.Int64("item_id", id), zap.String("relative_path", rec.RelativePath))
	return &ImportResult{ItemID: id, Record: rec, Duplicate: dup}, nil
}
