// Package msd implements the mass-storage-device engine: image lifecycle
// with a sidecar "incomplete" marker, fsync-paced writes, a throttled
// chunked reader, virtual drive state, and an inotify reconciliation loop.
package msd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kvmd-go/kvmd/internal/validator"
)

// Image is one entry under the storage root.
type Image struct {
	Name       string
	Path       string
	InStorage  bool
	Complete   bool
	Removable  bool
	Size       int64
	ModTime    int64
}

func sidecarPath(imagePath string) string {
	dir := filepath.Dir(imagePath)
	name := filepath.Base(imagePath)
	return filepath.Join(dir, fmt.Sprintf(".__%s.incomplete", name))
}

// markIncomplete writes the sidecar marker before the first byte.
func markIncomplete(imagePath string) error {
	return os.WriteFile(sidecarPath(imagePath), nil, 0o644)
}

// clearIncomplete removes the sidecar marker; missing is not an error.
func clearIncomplete(imagePath string) error {
	err := os.Remove(sidecarPath(imagePath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsComplete reports whether imagePath's sidecar marker is absent.
func IsComplete(imagePath string) bool {
	_, err := os.Stat(sidecarPath(imagePath))
	return os.IsNotExist(err)
}

// ImagePath resolves name to an absolute path under root, rejecting
// any attempt to escape it. name may carry directory components
// ("prefix/ubuntu.iso"), but each component is validated so the
// result always stays under root.
func ImagePath(root, name string) (string, error) {
	if _, err := validator.Path(name); err != nil {
		return "", err
	}
	if _, err := validator.ImageName(filepath.Base(name)); err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

// RemoveImage deletes the image and its sidecar marker, if any.
func RemoveImage(imagePath string) error {
	if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return clearIncomplete(imagePath)
}

// ListImages recursively enumerates regular files under root,
// skipping sidecar markers, hidden names, and lost+found. Image names are paths relative to root.
func ListImages(root string) ([]Image, error) {
	var images []Image
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || name == "lost+found" {
			if d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		images = append(images, Image{
			Name:      rel,
			Path:      path,
			InStorage: true,
			Complete:  IsComplete(path),
			Removable: true,
			Size:      info.Size(),
			ModTime:   info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}
