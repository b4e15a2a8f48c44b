// Package moderation toggles bookmark/flag state and handles authorized shot
// deletion. Counter maintenance lives in the store; this package adds the
// permission checks and the derivative file cleanup.
package moderation

import (
	"errors"
	"fmt"

	"github.com/shotbox/shotbox/internal/database"
	"github.com/shotbox/shotbox/internal/model"
	"github.com/shotbox/shotbox/internal/storage"
)

// ErrForbidden is returned when the acting user is neither a moderator nor
// the shot's owner.
var ErrForbidden = errors.New("not allowed")

// Service implements the interaction engine.
type Service struct {
	db    database.Database
	store storage.Storage
}

// NewService wires the engine over the store and the uploads sink.
func NewService(db database.Database, store storage.Storage) *Service {
	return &Service{db: db, store: store}
}

// Bookmark toggles the user's bookmark on a shot. The association row and the
// denormalized counter move together in one store transaction.
func (s *Service) Bookmark(user *model.User, shotID int64) (*database.ToggleResult, error) {
	if _, err := s.db.GetShot(shotID); err != nil {
		return nil, err
	}
	return s.db.ToggleBookmark(user.ID, shotID)
}

// Flag toggles the user's flag on a shot.
func (s *Service) Flag(user *model.User, shotID int64) (*database.ToggleResult, error) {
	if _, err := s.db.GetShot(shotID); err != nil {
		return nil, err
	}
	return s.db.ToggleFlag(user.ID, shotID)
}

// DeleteShot removes a shot on behalf of actor: moderators may delete any
// shot, everyone else only their own. Derivative files go first, then the row
// with its association rows — a mid-failure leaves an orphaned-but-harmless
// row rather than dangling associations pointing at a missing shot.
func (s *Service) DeleteShot(actor *model.User, shotID int64) error {
	shot, err := s.db.GetShot(shotID)
	if err != nil {
		return err
	}
	if !actor.IsMod && actor.ID != shot.UserID {
		return fmt.Errorf("delete shot %d: %w", shotID, ErrForbidden)
	}

	if err := s.store.Remove(shot.Image()); err != nil {
		return fmt.Errorf("removing derivative files: %w", err)
	}

	return s.db.DeleteShot(shotID)
}
