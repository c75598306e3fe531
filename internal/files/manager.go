package files

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/sidebar/internal/debug"
	"github.com/justyntemme/sidebar/internal/domain"
	"github.com/justyntemme/sidebar/internal/store"
)

// hashBlockSize is the read size used when hashing.
const hashBlockSize = 4096

// Common file permission modes
const (
	DirPermission = 0o755
)

// Settings is the configuration the manager reads and writes.
// config.FilesSettings implements it.
type Settings interface {
	BasePath() (string, error)
	SetBasePath(path string) error
	FoldersConfig() (map[string]string, error)
	SetFoldersConfig(folders map[string]string) error
	AutoCreateFolders() (bool, error)
}

// ItemStore is the slice of the database used for duplicate lookup,
// imports and stats. *store.DB implements it.
type ItemStore interface {
	ItemByHash(hash string) (*store.Item, error)
	InsertItem(it store.Item) (int64, error)
	ItemsByType(itemType string) ([]store.Item, error)
}

// FileRecord describes a stored file. FullPath is only meaningful on this
// machine; RelativePath is what gets persisted.
type FileRecord struct {
	FullPath         string
	RelativePath     string // FOLDER/filename, forward slashes
	Size             int64
	Category         Category
	FileType         string
	Extension        string
	OriginalFilename string
	Hash             string

	// Pixel dimensions for decodable images, zero otherwise.
	Width, Height int
}

// FileMetadata is what Metadata reports for a file that is not copied.
type FileMetadata struct {
	Size             int64
	FileType         string
	Extension        string
	OriginalFilename string
	Hash             string
}

// Manager is the File Manager.
type Manager struct {
	settings Settings
	items    ItemStore
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l.Named("FileManager")
		}
	}
}

// WithClock replaces time.Now for collision suffixes.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(settings Settings, items ItemStore, opts ...Option) *Manager {
	m := &Manager{
		settings: settings,
		items:    items,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// BasePath returns the configured storage root, "" when unset.
func (m *Manager) BasePath() (string, error) {
	return m.settings.BasePath()
}

// SetBasePath validates and stores the storage root. The path must be
// absolute; it is created when missing and must be a writable directory.
func (m *Manager) SetBasePath(path string) error {
	if !filepath.IsAbs(path) {
		return domain.Invalid("base path must be absolute: %s", path)
	}
	path = filepath.Clean(path)

	if err := m.EnsureFolder(path); err != nil {
		return err
	}
	if err := checkWritable(path); err != nil {
		return err
	}
	if err := m.settings.SetBasePath(path); err != nil {
		return err
	}
	m.logger.Info("base path set", zap.String("path", path))
	return nil
}

// checkWritable creates and removes a probe file in dir.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".sidebar-probe-*")
	if err != nil {
		return fmt.Errorf("%w: no write access to %s: %v", domain.ErrPermission, dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// FoldersConfig returns the category to folder-name mapping.
func (m *Manager) FoldersConfig() (map[string]string, error) {
	return m.settings.FoldersConfig()
}

// UpdateFoldersConfig validates and stores folder-name overrides.
func (m *Manager) UpdateFoldersConfig(folders map[string]string) error {
	if err := m.settings.SetFoldersConfig(folders); err != nil {
		return err
	}
	m.logger.Info("folders config updated", zap.Int("entries", len(folders)))
	return nil
}

func (m *Manager) AutoCreateFolders() (bool, error) {
	return m.settings.AutoCreateFolders()
}

// TargetFolder returns the configured folder name for ext.
func (m *Manager) TargetFolder(ext string) (string, error) {
	cat := Classify(ext)
	folders, err := m.settings.FoldersConfig()
	if err != nil {
		if !errors.Is(err, domain.ErrParse) {
			return "", err
		}
		// FoldersConfig hands back defaults with a parse error
		m.logger.Warn("folders config unreadable, using defaults", zap.Error(err))
	}
	if name, ok := folders[string(cat)]; ok && name != "" {
		return name, nil
	}
	return string(cat), nil
}

// requireBasePath returns the base path or an ErrStorage error.
func (m *Manager) requireBasePath() (string, error) {
	base, err := m.settings.BasePath()
	if err != nil {
		return "", err
	}
	if base == "" {
		return "", fmt.Errorf("%w: files base path is not set", domain.ErrStorage)
	}
	if !filepath.IsAbs(base) {
		return "", fmt.Errorf("%w: files base path %q is not absolute", domain.ErrStorage, base)
	}
	return base, nil
}

// statRegular checks that path exists and is a regular file.
func statRegular(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, domain.NotFound("file %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrIO, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, domain.Invalid("not a regular file: %s", path)
	}
	return info, nil
}

// Store copies sourcePath into its category folder under the base path
// and returns the record of the copy. A same-named file already in the
// folder is left alone; the copy gets a _YYYYMMDD_HHMMSS suffix instead.
func (m *Manager) Store(sourcePath string) (*FileRecord, error) {
	info, err := statRegular(sourcePath)
	if err != nil {
		return nil, err
	}
	base, err := m.requireBasePath()
	if err != nil {
		return nil, err
	}

	original := filepath.Base(sourcePath)
	ext := NormalizeExtension(filepath.Ext(original))
	cat := Classify(ext)
	folder, err := m.TargetFolder(ext)
	if err != nil {
		return nil, err
	}

	destDir := filepath.Join(base, folder)
	auto, err := m.settings.AutoCreateFolders()
	if err != nil {
		return nil, err
	}
	if auto {
		if err := m.EnsureFolder(destDir); err != nil {
			return nil, err
		}
	}
	if st, err := os.Stat(destDir); err != nil || !st.IsDir() {
		return nil, domain.Invalid("destination folder does not exist: %s", destDir)
	}

	destName := uniqueName(destDir, original, m.now())
	destPath := filepath.Join(destDir, destName)
	if err := copyStaged(sourcePath, destPath, info); err != nil {
		m.logger.Error("copy failed", zap.String("source", sourcePath), zap.String("dest", destPath), zap.Error(err))
		return nil, fmt.Errorf("%w: copy %s: %v", domain.ErrIO, sourcePath, err)
	}
	debug.Log(debug.FILES, "copied %s -> %s", sourcePath, destPath)

	copied, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat copy: %v", domain.ErrIO, err)
	}
	hash, err := m.Hash(destPath)
	if err != nil {
		return nil, err
	}

	rec := &FileRecord{
		FullPath:         destPath,
		RelativePath:     folder + "/" + destName,
		Size:             copied.Size(),
		Category:         cat,
		FileType:         cat.FileType(),
		Extension:        ext,
		OriginalFilename: original,
		Hash:             hash,
	}
	if cat == Images {
		rec.Width, rec.Height = imageDimensions(destPath)
	}

	m.logger.Info("file stored",
		zap.String("relative_path", rec.RelativePath),
		zap.Int64("size", rec.Size),
		zap.String("type", rec.FileType))
	return rec, nil
}

// uniqueName returns name if it is free in dir, otherwise the stem with a
// timestamp suffix. A second collision within the same second adds a
// counter.
func uniqueName(dir, name string, now time.Time) string {
	if !pathExists(filepath.Join(dir, name)) {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := stem + "_" + now.Format("20060102_150405") + ext
	for i := 2; pathExists(filepath.Join(dir, candidate)); i++ {
		candidate = fmt.Sprintf("%s_%s_%d%s", stem, now.Format("20060102_150405"), i, ext)
	}
	return candidate
}

// Hash returns the hex SHA-256 of the file at path, read in 4 KiB blocks.
func (m *Manager) Hash(path string) (string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", domain.NotFound("file %s", path)
	}
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", domain.ErrIO, path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashBlockSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: read %s: %v", domain.ErrIO, path, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DuplicateOf returns the first item stored with hash. It returns
// (nil, nil) when there is none and an error only when the lookup failed.
func (m *Manager) DuplicateOf(hash string) (*store.Item, error) {
	it, err := m.items.ItemByHash(hash)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		m.logger.Error("duplicate lookup failed", zap.String("hash", hash), zap.Error(err))
		return nil, err
	}
	m.logger.Info("duplicate found", zap.Int64("item_id", it.ID), zap.String("label", it.Label))
	return it, nil
}

// ToAbsolute resolves a stored relative path against the current base
// path. Backslashes are treated as separators.
func (m *Manager) ToAbsolute(relativePath string) (string, error) {
	base, err := m.requireBasePath()
	if err != nil {
		return "", err
	}
	rel := strings.ReplaceAll(relativePath, `\`, "/")
	return filepath.Join(base, filepath.FromSlash(rel)), nil
}

// EnsureFolder creates path when missing. An existing non-directory is a
// validation error.
func (m *Manager) EnsureFolder(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return domain.Invalid("path exists but is not a directory: %s", path)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("%w: stat %s: %v", domain.ErrIO, path, err)
	}

	if err := os.MkdirAll(path, DirPermission); err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: create %s: %v", domain.ErrPermission, path, err)
		}
		return fmt.Errorf("%w: create %s: %v", domain.ErrIO, path, err)
	}
	m.logger.Info("folder created", zap.String("path", path))
	return nil
}

// Metadata reports size, type and hash of a file without copying it.
func (m *Manager) Metadata(path string) (*FileMetadata, error) {
	info, err := statRegular(path)
	if err != nil {
		return nil, err
	}
	hash, err := m.Hash(path)
	if err != nil {
		return nil, err
	}
	ext := NormalizeExtension(filepath.Ext(path))
	return &FileMetadata{
		Size:             info.Size(),
		FileType:         Classify(ext).FileType(),
		Extension:        ext,
		OriginalFilename: filepath.Base(path),
		Hash:             hash,
	}, nil
}

// ValidateFileExists reports whether path is an existing regular file.
func ValidateFileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with 1024-based units: whole bytes, two
// decimals otherwise. Negative sizes render as "0 B".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", bytes, sizeUnits[0])
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}
