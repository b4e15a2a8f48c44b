package model

import (
	"fmt"
	"time"
)

// User is a registered account. Users are created on first login through an
// external identity provider and carry at most one linked identity per provider.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`

	TwitterID       string `json:"-"`
	TwitterUsername string `json:"-"`
	TwitterAvatar   string `json:"-"`

	GithubID       string `json:"-"`
	GithubUsername string `json:"-"`
	GithubAvatar   string `json:"-"`

	TelegramID       string `json:"-"`
	TelegramUsername string `json:"-"`

	IsMod     bool      `json:"is_mod"`
	CanUpload bool      `json:"can_upload"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

// Shot is a captioned image record, the core content unit. The content hash is
// the public identifier and fully determines derivative file locations together
// with the Legacy flag.
type Shot struct {
	ID            int64  `json:"id"`
	Hash          string `json:"hash"`
	Text          string `json:"text"`
	Romanized     string `json:"romanized"`
	UserID        int64  `json:"user_id"`
	BookmarkCount int    `json:"bookmark_count"`
	FlagCount     int    `json:"flag_count"`

	// Dimensions are absent for legacy imports.
	ImageWidth  *int `json:"image_width"`
	ImageHeight *int `json:"image_height"`

	Legacy  bool      `json:"legacy"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Bookmark links a user to a shot they saved. At most one per (user, shot).
type Bookmark struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"user_id"`
	ShotID  int64     `json:"shot_id"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Flag links a user to a shot they reported. At most one per (user, shot).
type Flag struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"user_id"`
	ShotID  int64     `json:"shot_id"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Tiers is the fixed derivative ladder, smallest first.
var Tiers = []string{"720p", "1080p", "1440p", "2160p"}

// Shard returns the two-character shard folder for a content hash.
func Shard(hash string) string {
	if len(hash) < 2 {
		return hash
	}
	return hash[len(hash)-2:]
}

// ImageSet is the resolved derivative layout for a shot: either the modern
// multi-tier ladder or the single-file legacy layout.
type ImageSet struct {
	Legacy bool
	// Files are paths relative to the uploads root, smallest tier first.
	Files []string
}

// Image resolves the derivative layout for the shot once, so call sites do not
// branch on the legacy flag themselves.
func (s *Shot) Image() ImageSet {
	if s.Legacy {
		return ImageSet{
			Legacy: true,
			Files:  []string{fmt.Sprintf("legacy/%s/%s.1200.jpg", Shard(s.Hash), s.Hash)},
		}
	}
	files := make([]string, 0, len(Tiers))
	for _, tier := range Tiers {
		files = append(files, fmt.Sprintf("%s/%s.%s.jpg", Shard(s.Hash), s.Hash, tier))
	}
	return ImageSet{Files: files}
}
