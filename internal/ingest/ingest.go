// Package ingest implements shot submission as a single logical operation:
// structural validation, caption normalization and duplicate detection,
// derivative generation, and persistence. There is no cross-step transaction;
// forward-only compensation on failure is the consistency mechanism.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shotbox/shotbox/internal/database"
	"github.com/shotbox/shotbox/internal/derivative"
	"github.com/shotbox/shotbox/internal/model"
	"github.com/shotbox/shotbox/internal/storage"
	"github.com/shotbox/shotbox/internal/textnorm"
)

const (
	// MaxCaptionLen is the caption limit in runes.
	MaxCaptionLen = 255

	// MinDuplicateCheckLen: captions this short bypass duplicate checking
	// entirely to avoid flooding false positives.
	MinDuplicateCheckLen = 4
)

// Service orchestrates shot submission.
type Service struct {
	db       database.Database
	store    storage.Storage
	pipe     *derivative.Pipeline
	detector *Detector

	minUploadBytes int64

	// now is replaceable in tests.
	now func() time.Time
}

// NewService wires the orchestrator. minUploadBytes rejects near-empty
// uploads before any side effect.
func NewService(db database.Database, store storage.Storage, pipe *derivative.Pipeline, detector *Detector, minUploadBytes int64) *Service {
	return &Service{
		db:             db,
		store:          store,
		pipe:           pipe,
		detector:       detector,
		minUploadBytes: minUploadBytes,
		now:            time.Now,
	}
}

// Submit runs the four-gate submission state machine and returns the persisted
// shot. Failure types: *ValidationError (bad input, no side effects to undo),
// *DuplicateError (recoverable, carries the matches), *ProcessingError and
// *StoreError (derivative files cleaned up before returning).
func (s *Service) Submit(ctx context.Context, userID int64, caption, sourcePath string) (*model.Shot, error) {
	// Gate 1: structural validation, before any side effect.
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return nil, &ValidationError{Reason: "caption is empty"}
	}
	if n := utf8.RuneCountInString(caption); n > MaxCaptionLen {
		return nil, &ValidationError{Reason: fmt.Sprintf("caption is %d characters, limit is %d", n, MaxCaptionLen)}
	}
	fi, err := os.Stat(sourcePath)
	if err != nil {
		return nil, &ValidationError{Reason: "source file is not readable"}
	}
	if fi.Size() < s.minUploadBytes {
		return nil, &ValidationError{Reason: fmt.Sprintf("source file is %d bytes, minimum is %d", fi.Size(), s.minUploadBytes)}
	}

	// Gate 2: normalize and check for recent duplicates by this user.
	key := textnorm.Normalize(caption)
	if utf8.RuneCountInString(caption) > MinDuplicateCheckLen {
		matches, err := s.detector.Find(key, userID)
		if err != nil {
			return nil, &StoreError{Err: err}
		}
		if len(matches) > 0 {
			return nil, &DuplicateError{Matches: matches}
		}
	}

	// Gate 3: generate the derivative ladder under a fresh content hash.
	hash := newContentHash()
	set, err := s.pipe.Ingest(ctx, sourcePath, hash)
	if err != nil {
		if cleanupErr := s.removeDerivatives(hash, err); cleanupErr != nil {
			return nil, cleanupErr
		}
		var dimErr *derivative.DimensionError
		if errors.As(err, &dimErr) {
			return nil, &ValidationError{Reason: dimErr.Error()}
		}
		return nil, &ProcessingError{Err: err}
	}

	// A caller deadline hit between steps aborts with the same compensating
	// cleanup as a processing failure.
	if err := ctx.Err(); err != nil {
		if cleanupErr := s.removeDerivatives(hash, err); cleanupErr != nil {
			return nil, cleanupErr
		}
		return nil, &ProcessingError{Err: err}
	}

	// Gate 4: persist the shot row with zeroed counters.
	now := s.now().UTC()
	shot := &model.Shot{
		Hash:        hash,
		Text:        caption,
		Romanized:   key,
		UserID:      userID,
		ImageWidth:  &set.Width,
		ImageHeight: &set.Height,
		Created:     now,
		Updated:     now,
	}
	if err := s.db.CreateShot(shot); err != nil {
		if cleanupErr := s.removeDerivatives(hash, err); cleanupErr != nil {
			return nil, cleanupErr
		}
		return nil, &StoreError{Err: err}
	}

	return shot, nil
}

// removeDerivatives deletes any derivative files written for hash after cause
// failed the submission. A cleanup failure escalates as unrecoverable rather
// than leaving unreported files behind.
func (s *Service) removeDerivatives(hash string, cause error) error {
	set := (&model.Shot{Hash: hash}).Image()
	if err := s.store.Remove(set); err != nil {
		return fmt.Errorf("compensating cleanup for %s failed: %w (after: %v)", hash, err, cause)
	}
	return nil
}

// newContentHash generates a fresh, effectively-unique content hash. Hashes
// are generated per submission, so two ingestions never write the same shard
// path concurrently.
func newContentHash() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
