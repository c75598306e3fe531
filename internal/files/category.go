// Package files stores PATH item files in a type-organized folder tree
// under a configured base path.
package files

import "strings"

// Category is a storage category. Its value is also the settings key and
// the default folder name.
type Category string

const (
	Images Category = "IMAGENES"
	Videos Category = "VIDEOS"
	PDFs   Category = "PDFS"
	Words  Category = "WORDS"
	Excels Category = "EXCELS"
	Text   Category = "TEXT"
	Other  Category = "OTROS" // catch-all
)

// Categories in table order.
var Categories = []Category{Images, Videos, PDFs, Words, Excels, Text, Other}

var extensionTable = map[Category][]string{
	Images: {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".webp", ".ico", ".tiff", ".tif"},
	Videos: {".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv", ".webm", ".m4v", ".mpg", ".mpeg"},
	PDFs:   {".pdf"},
	Words:  {".doc", ".docx", ".odt", ".rtf"},
	Excels: {".xls", ".xlsx", ".csv", ".ods"},
	Text:   {".txt", ".md", ".log", ".json", ".xml", ".yaml", ".yml", ".ini", ".cfg"},
}

// byExtension is the inverse of extensionTable.
var byExtension = func() map[string]Category {
	m := make(map[string]Category)
	for cat, exts := range extensionTable {
		for _, ext := range exts {
			m[ext] = cat
		}
	}
	return m
}()

var fileTypes = map[Category]string{
	Images: "IMAGEN",
	Videos: "VIDEO",
	PDFs:   "PDF",
	Words:  "WORD",
	Excels: "EXCEL",
	Text:   "TEXT",
	Other:  "OTROS",
}

var typeIcons = map[string]string{
	"IMAGEN": "🖼️",
	"VIDEO":  "🎬",
	"PDF":    "📕",
	"WORD":   "📘",
	"EXCEL":  "📊",
	"TEXT":   "📄",
	"OTROS":  "📎",
}

// NormalizeExtension lower-cases ext and adds a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Classify maps an extension, with or without the dot and in any case, to
// its category. Unknown extensions are Other.
func Classify(ext string) Category {
	if cat, ok := byExtension[NormalizeExtension(ext)]; ok {
		return cat
	}
	return Other
}

// FileType returns the type label stored in items.file_type.
func (c Category) FileType() string {
	if t, ok := fileTypes[c]; ok {
		return t
	}
	return fileTypes[Other]
}

// Extensions returns the static extension set of c. Other has none.
func (c Category) Extensions() []string {
	return append([]string(nil), extensionTable[c]...)
}

// IconForType returns the emoji for a file type label, case insensitive.
func IconForType(fileType string) string {
	if icon, ok := typeIcons[strings.ToUpper(fileType)]; ok {
		return icon
	}
	return typeIcons["OTROS"]
}

// IconForExtension returns the emoji for the type ext classifies to.
func IconForExtension(ext string) string {
	return IconForType(Classify(ext).FileType())
}
