package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shotbox/shotbox/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements Database backed by SQLite.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) an SQLite database at dsn and runs migrations.
// For in-memory use pass "file::memory:?cache=shared".
func NewSQLiteDB(dsn string) (*SQLiteDB, error) {
	if !strings.Contains(dsn, "_pragma") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows one writer at a time; a single connection serializes the
	// toggle transactions instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

const userCols = `id, username, nickname,
	twitter_id, twitter_username, twitter_avatar,
	github_id, github_username, github_avatar,
	telegram_id, telegram_username,
	is_mod, can_upload, created, updated`

func (s *SQLiteDB) CreateUser(u *model.User) error {
	res, err := s.db.Exec(`
		INSERT INTO users (username, nickname,
			twitter_id, twitter_username, twitter_avatar,
			github_id, github_username, github_avatar,
			telegram_id, telegram_username,
			is_mod, can_upload, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Nickname,
		u.TwitterID, u.TwitterUsername, u.TwitterAvatar,
		u.GithubID, u.GithubUsername, u.GithubAvatar,
		u.TelegramID, u.TelegramUsername,
		boolToInt(u.IsMod), boolToInt(u.CanUpload),
		formatTime(u.Created), formatTime(u.Updated),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", ErrConstraint)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user id: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetUser(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *SQLiteDB) GetUserByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *SQLiteDB) GetUserByProvider(provider, providerID string) (*model.User, error) {
	var col string
	switch provider {
	case "twitter":
		col = "twitter_id"
	case "github":
		col = "github_id"
	case "telegram":
		col = "telegram_id"
	default:
		return nil, fmt.Errorf("unknown identity provider %q", provider)
	}
	if providerID == "" {
		return nil, fmt.Errorf("get user by provider: %w", ErrNotFound)
	}
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE `+col+` = ?`, providerID)
	return scanUser(row)
}

func (s *SQLiteDB) UpdateUser(u *model.User) error {
	res, err := s.db.Exec(`
		UPDATE users SET username = ?, nickname = ?,
			twitter_id = ?, twitter_username = ?, twitter_avatar = ?,
			github_id = ?, github_username = ?, github_avatar = ?,
			telegram_id = ?, telegram_username = ?,
			is_mod = ?, can_upload = ?, updated = ?
		WHERE id = ?`,
		u.Username, u.Nickname,
		u.TwitterID, u.TwitterUsername, u.TwitterAvatar,
		u.GithubID, u.GithubUsername, u.GithubAvatar,
		u.TelegramID, u.TelegramUsername,
		boolToInt(u.IsMod), boolToInt(u.CanUpload), formatTime(u.Updated),
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return checkRowsAffected(res, "user")
}

// ---------------------------------------------------------------------------
// Shots
// ---------------------------------------------------------------------------

const shotCols = `id, hash, text, romanized, user_id,
	bookmark_count, flag_count, image_width, image_height, legacy, created, updated`

func (s *SQLiteDB) CreateShot(shot *model.Shot) error {
	res, err := s.db.Exec(`
		INSERT INTO shots (hash, text, romanized, user_id,
			bookmark_count, flag_count, image_width, image_height, legacy, created, updated)
		VALUES (?, ?, ?, ?, 0, 0, ?, ?, ?, ?, ?)`,
		shot.Hash, shot.Text, shot.Romanized, shot.UserID,
		nullableInt(shot.ImageWidth), nullableInt(shot.ImageHeight),
		boolToInt(shot.Legacy), formatTime(shot.Created), formatTime(shot.Updated),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert shot: %w", ErrConstraint)
		}
		return fmt.Errorf("insert shot: %w", err)
	}
	shot.BookmarkCount = 0
	shot.FlagCount = 0
	shot.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert shot id: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetShot(id int64) (*model.Shot, error) {
	row := s.db.QueryRow(`SELECT `+shotCols+` FROM shots WHERE id = ?`, id)
	return scanShot(row)
}

func (s *SQLiteDB) GetShotByHash(hash string) (*model.Shot, error) {
	row := s.db.QueryRow(`SELECT `+shotCols+` FROM shots WHERE hash = ?`, hash)
	return scanShot(row)
}

// DeleteShot removes the shot and its association rows in one transaction, so
// a mid-failure never leaves bookmarks or flags pointing at a missing shot.
func (s *SQLiteDB) DeleteShot(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx, "DeleteShot")

	if _, err := tx.Exec(`DELETE FROM bookmarks WHERE shot_id = ?`, id); err != nil {
		return fmt.Errorf("delete bookmarks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM flags WHERE shot_id = ?`, id); err != nil {
		return fmt.Errorf("delete flags: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM shots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shot: %w", err)
	}
	if err := checkRowsAffected(res, "shot"); err != nil {
		return err
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

func (s *SQLiteDB) RecentShots(limit, offset int) ([]*model.Shot, int, error) {
	return s.listShots(``, nil, limit, offset)
}

func (s *SQLiteDB) TopShots(limit, offset int) ([]*model.Shot, int, error) {
	return s.listShots(`WHERE bookmark_count > 0`, nil, limit, offset)
}

func (s *SQLiteDB) FlaggedShots(limit, offset int) ([]*model.Shot, int, error) {
	return s.listShots(`WHERE flag_count > 0`, nil, limit, offset)
}

func (s *SQLiteDB) UserShots(userID int64, limit, offset int) ([]*model.Shot, int, error) {
	return s.listShots(`WHERE user_id = ?`, []interface{}{userID}, limit, offset)
}

func (s *SQLiteDB) SearchShots(key string, limit, offset int) ([]*model.Shot, int, error) {
	pattern := "%" + escapeLike(key) + "%"
	return s.listShots(`WHERE romanized LIKE ? ESCAPE '\'`, []interface{}{pattern}, limit, offset)
}

// listShots runs a count plus a page query for one WHERE clause.
func (s *SQLiteDB) listShots(where string, args []interface{}, limit, offset int) ([]*model.Shot, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM shots ` + where
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shots: %w", err)
	}

	query := `SELECT ` + shotCols + ` FROM shots ` + where + `
		ORDER BY created DESC, id DESC
		LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(append([]interface{}{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list shots: %w", err)
	}
	defer rows.Close()

	shots, err := scanShots(rows)
	if err != nil {
		return nil, 0, err
	}
	return shots, total, nil
}

// ---------------------------------------------------------------------------
// Duplicate detection
// ---------------------------------------------------------------------------

func (s *SQLiteDB) FindDuplicates(key string, userID int64, since time.Time, limit int) ([]*model.Shot, error) {
	query := `SELECT ` + shotCols + ` FROM shots
		WHERE romanized = ? AND created >= ?`
	args := []interface{}{key, formatTime(since)}
	if userID != 0 {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	defer rows.Close()

	return scanShots(rows)
}

// ---------------------------------------------------------------------------
// Bookmarks and flags
// ---------------------------------------------------------------------------

func (s *SQLiteDB) ToggleBookmark(userID, shotID int64) (*ToggleResult, error) {
	return s.toggle("bookmarks", "bookmark_count", userID, shotID)
}

func (s *SQLiteDB) ToggleFlag(userID, shotID int64) (*ToggleResult, error) {
	return s.toggle("flags", "flag_count", userID, shotID)
}

// toggle flips the (user, shot) association row and adjusts the shot's
// denormalized counter in the same transaction. The counter update is a
// relative, in-database adjustment, never a read-modify-write from stale
// in-memory state.
func (s *SQLiteDB) toggle(table, counter string, userID, shotID int64) (*ToggleResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx, "toggle "+table)

	res, err := tx.Exec(`DELETE FROM `+table+` WHERE user_id = ? AND shot_id = ?`, userID, shotID)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", table, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	present := false
	if deleted > 0 {
		_, err = tx.Exec(`UPDATE shots SET `+counter+` = MAX(`+counter+` - 1, 0), updated = ?
			WHERE id = ?`, formatTime(time.Now().UTC()), shotID)
		if err != nil {
			return nil, fmt.Errorf("decrement %s: %w", counter, err)
		}
	} else {
		now := formatTime(time.Now().UTC())
		_, err = tx.Exec(`INSERT INTO `+table+` (user_id, shot_id, created, updated)
			VALUES (?, ?, ?, ?)`, userID, shotID, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				// Lost a race against a concurrent toggle: the association
				// already exists, report it as present without mutating.
				return s.toggleResultAfterRace(tx, counter, shotID)
			}
			return nil, fmt.Errorf("insert %s: %w", table, err)
		}
		_, err = tx.Exec(`UPDATE shots SET `+counter+` = `+counter+` + 1, updated = ?
			WHERE id = ?`, now, shotID)
		if err != nil {
			return nil, fmt.Errorf("increment %s: %w", counter, err)
		}
		present = true
	}

	var count int
	if err := tx.QueryRow(`SELECT `+counter+` FROM shots WHERE id = ?`, shotID).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("toggle %s: shot %d: %w", table, shotID, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", counter, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit toggle: %w", err)
	}
	return &ToggleResult{Present: present, Count: count}, nil
}

func (s *SQLiteDB) toggleResultAfterRace(tx *sql.Tx, counter string, shotID int64) (*ToggleResult, error) {
	var count int
	if err := tx.QueryRow(`SELECT `+counter+` FROM shots WHERE id = ?`, shotID).Scan(&count); err != nil {
		return nil, fmt.Errorf("read %s: %w", counter, err)
	}
	return &ToggleResult{Present: true, Count: count}, nil
}

func (s *SQLiteDB) UserBookmarks(userID int64, limit, offset int) ([]*model.Shot, int, error) {
	var total int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM bookmarks WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count bookmarks: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT s.id, s.hash, s.text, s.romanized, s.user_id,
			s.bookmark_count, s.flag_count, s.image_width, s.image_height, s.legacy, s.created, s.updated
		FROM bookmarks b
		INNER JOIN shots s ON s.id = b.shot_id
		WHERE b.user_id = ?
		ORDER BY b.created DESC, b.id DESC
		LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	shots, err := scanShots(rows)
	if err != nil {
		return nil, 0, err
	}
	return shots, total, nil
}

func (s *SQLiteDB) CountBookmarks(shotID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM bookmarks WHERE shot_id = ?`, shotID).Scan(&count)
	return count, err
}

func (s *SQLiteDB) CountFlags(shotID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM flags WHERE shot_id = ?`, shotID).Scan(&count)
	return count, err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scannable) (*model.User, error) {
	u := &model.User{}
	var isMod, canUpload int
	var createdStr, updatedStr string

	err := row.Scan(&u.ID, &u.Username, &u.Nickname,
		&u.TwitterID, &u.TwitterUsername, &u.TwitterAvatar,
		&u.GithubID, &u.GithubUsername, &u.GithubAvatar,
		&u.TelegramID, &u.TelegramUsername,
		&isMod, &canUpload, &createdStr, &updatedStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.IsMod = isMod != 0
	u.CanUpload = canUpload != 0
	u.Created, _ = time.Parse(time.RFC3339, createdStr)
	u.Updated, _ = time.Parse(time.RFC3339, updatedStr)
	return u, nil
}

func scanShot(row scannable) (*model.Shot, error) {
	shot := &model.Shot{}
	var width, height sql.NullInt64
	var legacy int
	var createdStr, updatedStr string

	err := row.Scan(&shot.ID, &shot.Hash, &shot.Text, &shot.Romanized, &shot.UserID,
		&shot.BookmarkCount, &shot.FlagCount, &width, &height, &legacy, &createdStr, &updatedStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("shot: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan shot: %w", err)
	}

	if width.Valid {
		w := int(width.Int64)
		shot.ImageWidth = &w
	}
	if height.Valid {
		h := int(height.Int64)
		shot.ImageHeight = &h
	}
	shot.Legacy = legacy != 0
	shot.Created, _ = time.Parse(time.RFC3339, createdStr)
	shot.Updated, _ = time.Parse(time.RFC3339, updatedStr)
	return shot, nil
}

func scanShots(rows *sql.Rows) ([]*model.Shot, error) {
	var shots []*model.Shot
	for rows.Next() {
		shot, err := scanShot(rows)
		if err != nil {
			return nil, err
		}
		shots = append(shots, shot)
	}
	return shots, rows.Err()
}

func rollback(tx *sql.Tx, op string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Printf("%s: rollback failed: %v", op, err)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func checkRowsAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return nil
}
