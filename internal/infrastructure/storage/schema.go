package storage

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id         TEXT    NOT NULL UNIQUE,
	title              TEXT    NOT NULL,
	content            TEXT    NOT NULL,
	translation        TEXT,
	category           TEXT    NOT NULL,
	level              INTEGER NOT NULL CHECK (level BETWEEN 1 AND 10),
	published_date     TEXT    NOT NULL,
	source             TEXT    NOT NULL CHECK (source IN ('bbc', 'voa', 'engoo')),
	source_url         TEXT    NOT NULL UNIQUE,
	source_attribution TEXT    NOT NULL,
	audio_url          TEXT,
	audio_cached_at    INTEGER,
	local_audio_path   TEXT,
	created_at         INTEGER NOT NULL,
	updated_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_source ON articles (source);
CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles (created_at DESC);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id                 BIGSERIAL PRIMARY KEY,
	article_id         TEXT     NOT NULL UNIQUE,
	title              TEXT     NOT NULL,
	content            TEXT     NOT NULL,
	translation        TEXT,
	category           TEXT     NOT NULL,
	level              SMALLINT NOT NULL CHECK (level BETWEEN 1 AND 10),
	published_date     TEXT     NOT NULL,
	source             TEXT     NOT NULL CHECK (source IN ('bbc', 'voa', 'engoo')),
	source_url         TEXT     NOT NULL UNIQUE,
	source_attribution TEXT     NOT NULL,
	audio_url          TEXT,
	audio_cached_at    BIGINT,
	local_audio_path   TEXT,
	created_at         BIGINT   NOT NULL,
	updated_at         BIGINT   NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_source ON articles (source);
CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles (created_at DESC);
`
