package files

import (
	iofs "io/fs"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/justyntemme/sidebar/internal/debug"
	"github.com/justyntemme/sidebar/internal/store"
)

// TypeStats is the count and total size of one file type.
type TypeStats struct {
	Count int
	Size  int64
}

// StorageStats summarizes the storage tree and the PATH items pointing
// into it.
type StorageStats struct {
	Items              int // PATH rows in the database
	Files              int // regular files under the base path
	TotalSize          int64
	TotalSizeFormatted string
	ByType             map[string]TypeStats
}

// StorageStats walks the base path and counts files per type. Hidden
// files and in-flight copies are skipped.
func (m *Manager) StorageStats() (*StorageStats, error) {
	base, err := m.requireBasePath()
	if err != nil {
		return nil, err
	}

	stats := &StorageStats{ByType: make(map[string]TypeStats)}
	var mu sync.Mutex

	conf := &fastwalk.Config{Follow: false}
	err = fastwalk.Walk(conf, base, func(fullPath string, d iofs.DirEntry, walkErr error) error {
		if walkErr != nil {
			debug.Log(debug.FS_WALK, "stats: walk error at %q: %v", fullPath, walkErr)
			return nil // Skip errors, continue walking
		}
		if fullPath == base {
			return nil
		}
		name := d.Name()
		if len(name) > 0 && name[0] == '.' {
			if isStagingFile(name) {
				debug.Log(debug.FS_WALK, "stats: skipping staging file %q", fullPath)
			}
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			return nil // Skip files we can't stat
		}
		fileType := Classify(filepath.Ext(name)).FileType()

		mu.Lock()
		stats.Files++
		stats.TotalSize += info.Size()
		ts := stats.ByType[fileType]
		ts.Count++
		ts.Size += info.Size()
		stats.ByType[fileType] = ts
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	items, err := m.items.ItemsByType(store.ItemTypePath)
	if err != nil {
		return nil, err
	}
	stats.Items = len(items)
	m.logger.Debug("storage stats", zap.Int("files", stats.Files), zap.Int("items", stats.Items))

	stats.TotalSizeFormatted = FormatSize(stats.TotalSize)
	return stats, nil
}
