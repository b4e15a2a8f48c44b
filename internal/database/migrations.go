package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    nickname TEXT NOT NULL DEFAULT '',
    twitter_id TEXT NOT NULL DEFAULT '',
    twitter_username TEXT NOT NULL DEFAULT '',
    twitter_avatar TEXT NOT NULL DEFAULT '',
    github_id TEXT NOT NULL DEFAULT '',
    github_username TEXT NOT NULL DEFAULT '',
    github_avatar TEXT NOT NULL DEFAULT '',
    telegram_id TEXT NOT NULL DEFAULT '',
    telegram_username TEXT NOT NULL DEFAULT '',
    is_mod INTEGER NOT NULL DEFAULT 0,
    can_upload INTEGER NOT NULL DEFAULT 1,
    created DATETIME NOT NULL,
    updated DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_twitter ON users (twitter_id) WHERE twitter_id != '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github ON users (github_id) WHERE github_id != '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_telegram ON users (telegram_id) WHERE telegram_id != '';

CREATE TABLE IF NOT EXISTS shots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    hash TEXT NOT NULL UNIQUE,
    text TEXT NOT NULL DEFAULT '',
    romanized TEXT NOT NULL DEFAULT '',
    user_id INTEGER NOT NULL REFERENCES users(id),
    bookmark_count INTEGER NOT NULL DEFAULT 0,
    flag_count INTEGER NOT NULL DEFAULT 0,
    image_width INTEGER,
    image_height INTEGER,
    legacy INTEGER NOT NULL DEFAULT 0,
    created DATETIME NOT NULL,
    updated DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shots_created ON shots (created);
CREATE INDEX IF NOT EXISTS idx_shots_user_created ON shots (user_id, created);
CREATE INDEX IF NOT EXISTS idx_shots_romanized ON shots (romanized);
CREATE INDEX IF NOT EXISTS idx_shots_bookmark_count ON shots (bookmark_count);
CREATE INDEX IF NOT EXISTS idx_shots_flag_count ON shots (flag_count);

CREATE TABLE IF NOT EXISTS bookmarks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    shot_id INTEGER NOT NULL REFERENCES shots(id),
    created DATETIME NOT NULL,
    updated DATETIME NOT NULL,
    UNIQUE (user_id, shot_id)
);

CREATE INDEX IF NOT EXISTS idx_bookmarks_user_created ON bookmarks (user_id, created);
CREATE INDEX IF NOT EXISTS idx_bookmarks_shot_created ON bookmarks (shot_id, created);

CREATE TABLE IF NOT EXISTS flags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    shot_id INTEGER NOT NULL REFERENCES shots(id),
    created DATETIME NOT NULL,
    updated DATETIME NOT NULL,
    UNIQUE (user_id, shot_id)
);

CREATE INDEX IF NOT EXISTS idx_flags_user_created ON flags (user_id, created);
CREATE INDEX IF NOT EXISTS idx_flags_shot_created ON flags (shot_id, created);
`
