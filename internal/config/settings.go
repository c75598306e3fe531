package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/justyntemme/sidebar/internal/debug"
	"github.com/justyntemme/sidebar/internal/domain"
)

// Settings rows owned by the file manager.
const (
	KeyFilesBasePath          = "files_base_path"
	KeyFilesFoldersConfig     = "files_folders_config"
	KeyFilesAutoCreateFolders = "files_auto_create_folders"
)

// FolderCategories lists the storage categories in display order.
var FolderCategories = []string{"IMAGENES", "VIDEOS", "PDFS", "WORDS", "EXCELS", "TEXT", "OTROS"}

// DefaultFolders maps every storage category to a folder of the same name.
func DefaultFolders() map[string]string {
	m := make(map[string]string, len(FolderCategories))
	for _, c := range FolderCategories {
		m[c] = c
	}
	return m
}

// SettingsStore is the slice of the database the facade needs.
type SettingsStore interface {
	Setting(key string) (string, bool, error)
	SetSetting(key, value string) error
}

// FilesSettings reads and writes the file manager's settings rows.
type FilesSettings struct {
	store SettingsStore
}

func NewFilesSettings(store SettingsStore) *FilesSettings {
	return &FilesSettings{store: store}
}

// BasePath returns the configured storage root, "" when unset.
func (s *FilesSettings) BasePath() (string, error) {
	v, _, err := s.store.Setting(KeyFilesBasePath)
	return v, err
}

// SetBasePath stores the storage root. Filesystem checks are the caller's
// job; this only persists the value.
func (s *FilesSettings) SetBasePath(path string) error {
	debug.Log(debug.CONFIG, "files base path -> %s", path)
	return s.store.SetSetting(KeyFilesBasePath, path)
}

// FoldersConfig returns the category to folder-name mapping. Categories
// missing from the stored JSON, or stored with a name that is not a single
// path element, get their default folder. A malformed row yields the
// defaults and an ErrParse error.
func (s *FilesSettings) FoldersConfig() (map[string]string, error) {
	folders := DefaultFolders()
	raw, ok, err := s.store.Setting(KeyFilesFoldersConfig)
	if err != nil {
		return folders, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return folders, nil
	}

	var stored map[string]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return folders, fmt.Errorf("%w: %s: %v", domain.ErrParse, KeyFilesFoldersConfig, err)
	}
	for k, v := range stored {
		k = strings.ToUpper(k)
		if _, known := folders[k]; !known {
			continue
		}
		if err := validateFolderName(v); err != nil {
			debug.Log(debug.CONFIG, "stored folder for %s ignored: %q: %v", k, v, err)
			continue
		}
		folders[k] = v
	}
	return folders, nil
}

// SetFoldersConfig validates and stores a folder mapping. Unknown
// categories and folder names that are not a single path element are
// rejected. Categories left out keep their current folder.
func (s *FilesSettings) SetFoldersConfig(folders map[string]string) error {
	if err := validateFolders(folders); err != nil {
		return err
	}
	merged, err := s.FoldersConfig()
	if err != nil {
		// A broken row is replaced rather than merged
		merged = DefaultFolders()
	}
	for k, v := range folders {
		merged[strings.ToUpper(k)] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	return s.store.SetSetting(KeyFilesFoldersConfig, string(data))
}

// AutoCreateFolders reports whether missing category folders are created
// on store. Defaults to true when the row is missing.
func (s *FilesSettings) AutoCreateFolders() (bool, error) {
	v, ok, err := s.store.Setting(KeyFilesAutoCreateFolders)
	if err != nil {
		return true, err
	}
	if !ok {
		return true, nil
	}
	return strings.EqualFold(strings.TrimSpace(v), "true"), nil
}

func (s *FilesSettings) SetAutoCreateFolders(enabled bool) error {
	v := "false"
	if enabled {
		v = "true"
	}
	return s.store.SetSetting(KeyFilesAutoCreateFolders, v)
}

func validateFolders(folders map[string]string) error {
	known := make(map[string]bool, len(FolderCategories))
	for _, c := range FolderCategories {
		known[c] = true
	}

	keys := make([]string, 0, len(folders))
	for k := range folders {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !known[strings.ToUpper(k)] {
			return domain.Invalid("unknown folder category %q", k)
		}
		if err := validateFolderName(folders[k]); err != nil {
			return domain.Invalid("folder for %s: %v", k, err)
		}
	}
	return nil
}

func validateFolderName(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.Length(1, 255),
		validation.By(singlePathElement),
	)
}

func singlePathElement(value any) error {
	s, _ := value.(string)
	if s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return validation.NewError("validation_folder_name", "must be a single folder name")
	}
	return nil
}
