package storage

import (
	"io"

	"github.com/shotbox/shotbox/internal/model"
)

// Storage is the uploads sink for derivative files. Paths are relative to the
// uploads root and follow the persisted contract:
// <shard>/<hash>.<tier>.jpg for current shots,
// legacy/<shard>/<hash>.1200.jpg for legacy imports.
type Storage interface {
	// Write stores data at rel, creating parent directories as needed.
	// It returns the number of bytes written. Writing to an existing path
	// overwrites it.
	Write(rel string, data io.Reader) (int64, error)

	// Remove deletes every file of an image set. It is idempotent: missing
	// files are not an error.
	Remove(set model.ImageSet) error

	// Exists checks whether a file exists at rel.
	Exists(rel string) (bool, error)

	// Abs resolves rel to an absolute filesystem path.
	Abs(rel string) string
}
