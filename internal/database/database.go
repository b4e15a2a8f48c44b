package database

import (
	"errors"
	"time"

	"github.com/shotbox/shotbox/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConstraint is returned when an insert violates a unique constraint,
// e.g. a colliding shot hash or username.
var ErrConstraint = errors.New("constraint violation")

// ToggleResult reports the outcome of a bookmark/flag toggle.
type ToggleResult struct {
	// Present is true when the association exists after the call.
	Present bool
	// Count is the shot's denormalized counter after the call.
	Count int
}

// Database is the persistence interface for all domain entities. It is the
// only component that mutates persisted rows.
type Database interface {
	// Users
	CreateUser(u *model.User) error
	GetUser(id int64) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	GetUserByProvider(provider, providerID string) (*model.User, error)
	UpdateUser(u *model.User) error

	// Shots
	CreateShot(s *model.Shot) error
	GetShot(id int64) (*model.Shot, error)
	GetShotByHash(hash string) (*model.Shot, error)
	// DeleteShot removes the shot row and all bookmark/flag rows referencing
	// it in one transaction. It never touches the filesystem.
	DeleteShot(id int64) error

	// Listings. All return the total count for page-bound computation and
	// order by creation descending.
	RecentShots(limit, offset int) ([]*model.Shot, int, error)
	// TopShots lists shots with at least one bookmark.
	TopShots(limit, offset int) ([]*model.Shot, int, error)
	// FlaggedShots lists shots with at least one flag, for moderation.
	FlaggedShots(limit, offset int) ([]*model.Shot, int, error)
	UserShots(userID int64, limit, offset int) ([]*model.Shot, int, error)
	// SearchShots matches the normalized key by substring containment.
	SearchShots(key string, limit, offset int) ([]*model.Shot, int, error)

	// FindDuplicates returns shots whose normalized key equals key exactly,
	// created at or after since, newest first. userID restricts the search to
	// one user's shots; 0 searches all users. An empty result is not an error.
	FindDuplicates(key string, userID int64, since time.Time, limit int) ([]*model.Shot, error)

	// Interactions. The association row mutation and the counter update are
	// applied in a single transaction; a concurrent duplicate insert is
	// translated into a no-op result, not an error.
	ToggleBookmark(userID, shotID int64) (*ToggleResult, error)
	ToggleFlag(userID, shotID int64) (*ToggleResult, error)

	// UserBookmarks lists the shots a user bookmarked, newest bookmark first.
	UserBookmarks(userID int64, limit, offset int) ([]*model.Shot, int, error)
	CountBookmarks(shotID int64) (int, error)
	CountFlags(shotID int64) (int, error)

	Close() error
}
