package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ShadowNews/internal/domain"
	"ShadowNews/internal/ports"
)

// ErrNotFound is returned by Get and PatchAudio for unknown article ids.
var ErrNotFound = errors.New("article not found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	articlesTable = "articles"
)

var articleColumns = []string{
	"article_id",
	"title",
	"content",
	"translation",
	"category",
	"level",
	"published_date",
	"source",
	"source_url",
	"source_attribution",
	"audio_url",
	"audio_cached_at",
	"local_audio_path",
	"created_at",
	"updated_at",
}

// SQLRepository persists articles into SQLite or Postgres.
type SQLRepository struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ArticleRepository = (*SQLRepository)(nil)

// Open connects to the configured driver and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	repo := NewSQLRepository(db, driver)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLRepository wires an already opened sql.DB.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	placeholder := sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &SQLRepository{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

// Migrate creates the articles table and indexes when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if r.driver == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *SQLRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// FindBySourceURL returns nil without error when no article has that URL.
func (r *SQLRepository) FindBySourceURL(ctx context.Context, sourceURL string) (*domain.Article, error) {
	article, err := r.getOne(ctx, sq.Eq{"source_url": sourceURL})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return article, err
}

// InsertIfAbsent writes the article unless its source URL is already stored.
func (r *SQLRepository) InsertIfAbsent(ctx context.Context, article domain.Article) (bool, error) {
	now := r.now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	if article.UpdatedAt.IsZero() {
		article.UpdatedAt = article.CreatedAt
	}

	query := r.builder.Insert(articlesTable).
		Columns(articleColumns...).
		Values(
			article.ArticleID,
			article.Title,
			article.Content,
			nullableString(article.Translation),
			string(article.Category),
			article.Level,
			article.PublishedDate,
			string(article.Source),
			article.SourceURL,
			article.SourceAttribution,
			emptyAsNull(article.AudioURL),
			nullableMillis(article.AudioCachedAt),
			emptyAsNull(article.LocalAudioPath),
			toMillis(article.CreatedAt),
			toMillis(article.UpdatedAt),
		).
		Suffix("ON CONFLICT (source_url) DO NOTHING")

	res, err := query.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Get loads one article by its articleId.
func (r *SQLRepository) Get(ctx context.Context, articleID string) (*domain.Article, error) {
	return r.getOne(ctx, sq.Eq{"article_id": articleID})
}

// List returns articles newest first.
func (r *SQLRepository) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	query := r.builder.Select(articleColumns...).
		From(articlesTable).
		OrderBy("created_at DESC", "id DESC")

	if filter.Source != "" {
		query = query.Where(sq.Eq{"source": string(filter.Source)})
	}
	if filter.Category != "" {
		query = query.Where(sq.Eq{"category": string(filter.Category)})
	}
	if filter.Level > 0 {
		query = query.Where(sq.Eq{"level": filter.Level})
	}
	switch {
	case filter.Limit > 0:
		query = query.Limit(uint64(filter.Limit))
	case filter.Offset > 0 && r.driver == DriverSQLite:
		// SQLite only accepts OFFSET after a LIMIT clause.
		query = query.Limit(math.MaxInt64)
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	var result []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		result = append(result, article)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// PatchAudio updates the audio pointers; an empty string clears a column.
func (r *SQLRepository) PatchAudio(ctx context.Context, articleID string, patch domain.AudioPatch) error {
	query := r.builder.Update(articlesTable).
		Set("updated_at", toMillis(r.now())).
		Where(sq.Eq{"article_id": articleID})

	if patch.AudioURL != nil {
		query = query.Set("audio_url", emptyAsNull(*patch.AudioURL))
	}
	if patch.AudioCachedAt != nil {
		query = query.Set("audio_cached_at", toMillis(*patch.AudioCachedAt))
	}
	if patch.LocalAudioPath != nil {
		query = query.Set("local_audio_path", emptyAsNull(*patch.LocalAudioPath))
	}

	res, err := query.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("patch audio: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("patch audio %s: %w", articleID, ErrNotFound)
	}
	return nil
}

// Count returns the number of stored articles.
func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.builder.Select("COUNT(*)").
		From(articlesTable).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) getOne(ctx context.Context, where sq.Eq) (*domain.Article, error) {
	row := r.builder.Select(articleColumns...).
		From(articlesTable).
		Where(where).
		Limit(1).
		RunWith(r.db).
		QueryRowContext(ctx)

	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		a              domain.Article
		translation    sql.NullString
		category       string
		source         string
		audioURL       sql.NullString
		audioCachedAt  sql.NullInt64
		localAudioPath sql.NullString
		createdAt      int64
		updatedAt      int64
	)

	err := row.Scan(
		&a.ArticleID,
		&a.Title,
		&a.Content,
		&translation,
		&category,
		&a.Level,
		&a.PublishedDate,
		&source,
		&a.SourceURL,
		&a.SourceAttribution,
		&audioURL,
		&audioCachedAt,
		&localAudioPath,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, err
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("scan article: %w", err)
	}

	if translation.Valid {
		text := translation.String
		a.Translation = &text
	}
	a.Category = domain.Category(category)
	a.Source = domain.Source(source)
	a.AudioURL = audioURL.String
	if audioCachedAt.Valid {
		at := fromMillis(audioCachedAt.Int64)
		a.AudioCachedAt = &at
	}
	a.LocalAudioPath = localAudioPath.String
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)

	return a, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullableMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func emptyAsNull(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
