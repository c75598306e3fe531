package files

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/justyntemme/sidebar/internal/debug"
)

// partialSuffix marks in-flight copies.
const partialSuffix = ".partial"

// copyStaged copies src to dst through a hidden temp file in dst's
// directory, so dst only ever appears complete. Permissions and
// modification time of src are carried over.
func copyStaged(src, dst string, info os.FileInfo) (err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	tmp := filepath.Join(filepath.Dir(dst), "."+uuid.NewString()+partialSuffix)
	tmpFile, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmpFile.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(tmpFile, srcFile); err != nil {
		return err
	}
	if err = tmpFile.Sync(); err != nil {
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	// OpenFile's mode is filtered by the umask
	if err = os.Chmod(tmp, info.Mode().Perm()); err != nil {
		return err
	}
	if err = os.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// isStagingFile reports whether name is a leftover in-flight copy.
func isStagingFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, partialSuffix)
}

// imageDimensions decodes only the image header. Formats without a
// registered decoder (svg, ico) report zero.
func imageDimensions(path string) (width, height int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		debug.Log(debug.FILES, "no dimensions for %s: %v", path, err)
		return 0, 0
	}
	debug.Log(debug.FILES, "%s: %s %dx%d", path, format, cfg.Width, cfg.Height)
	return cfg.Width, cfg.Height
}
