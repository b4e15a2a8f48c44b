package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shotbox/shotbox/internal/model"
)

// Compile-time check that FileSystem implements Storage.
var _ Storage = (*FileSystem)(nil)

// FileSystem implements Storage on the local filesystem under a single
// uploads root.
type FileSystem struct {
	root string
}

// NewFileSystem creates a FileSystem storage rooted at root.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root: root}
}

// Abs resolves rel to an absolute path under the uploads root.
func (fs *FileSystem) Abs(rel string) string {
	return filepath.Join(fs.root, filepath.FromSlash(rel))
}

// Write writes data to rel using an atomic write (temp file + rename). The
// shard directory is created idempotently.
func (fs *FileSystem) Write(rel string, data io.Reader) (int64, error) {
	dst := fs.Abs(rel)
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Write to a temp file in the same directory for atomic rename.
	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing data: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("renaming temp file to %s: %w", dst, err)
	}

	// Rename succeeded; prevent deferred cleanup from removing the final file.
	tmpPath = ""

	return n, nil
}

// Remove deletes all files of an image set. Missing files are skipped so a
// partial derivative set can be cleaned up with the same call.
func (fs *FileSystem) Remove(set model.ImageSet) error {
	for _, rel := range set.Files {
		path := fs.Abs(rel)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}

// Exists checks whether a file exists at rel.
func (fs *FileSystem) Exists(rel string) (bool, error) {
	path := fs.Abs(rel)
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking file %s: %w", path, err)
}
