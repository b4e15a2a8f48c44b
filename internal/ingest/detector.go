package ingest

import (
	"time"

	"github.com/shotbox/shotbox/internal/database"
	"github.com/shotbox/shotbox/internal/model"
)

// DefaultWindow is the recency window for duplicate detection.
const DefaultWindow = 7 * 24 * time.Hour

const detectorLimit = 10

// Detector finds recent shots whose normalized caption key exactly matches a
// candidate key.
type Detector struct {
	db     database.Database
	window time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewDetector creates a Detector over db. A zero window falls back to
// DefaultWindow.
func NewDetector(db database.Database, window time.Duration) *Detector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Detector{db: db, window: window, now: time.Now}
}

// Find returns shots matching key within the window, newest first, capped.
// userID restricts the search to that user's shots; 0 searches all users.
// No match is an empty result, never an error.
func (d *Detector) Find(key string, userID int64) ([]*model.Shot, error) {
	if key == "" {
		return nil, nil
	}
	since := d.now().UTC().Add(-d.window)
	return d.db.FindDuplicates(key, userID, since, detectorLimit)
}
