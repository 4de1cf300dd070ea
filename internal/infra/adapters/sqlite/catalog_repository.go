package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jortega/karaokejam/internal/domain/models"
)

var ErrSongNotFound = errors.New("song not found")

// CatalogRepository resolves opaque song references against the catalog.
type CatalogRepository interface {
	ListSongs(ctx context.Context) ([]models.Song, error)
	GetSongURL(ctx context.Context, filename string) (string, error)
	UpsertSong(ctx context.Context, song models.Song) error
}

type catalogRepo struct {
	db *sqlx.DB
}

func NewCatalogRepo(db *sqlx.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) ListSongs(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song

	query := "SELECT artist, title, url, filename FROM songs ORDER BY artist, title"

	if err := r.db.SelectContext(ctx, &songs, query); err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}

	return songs, nil
}

func (r *catalogRepo) GetSongURL(ctx context.Context, filename string) (string, error) {
	var url string

	query := "SELECT url FROM songs WHERE filename = ?"

	err := r.db.GetContext(ctx, &url, query, filename)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSongNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get song url: %w", err)
	}

	return url, nil
}

func (r *catalogRepo) UpsertSong(ctx context.Context, song models.Song) error {
	query := "INSERT OR IGNORE INTO songs (artist, title, url, filename) VALUES (?, ?, ?, ?)"

	if _, err := r.db.ExecContext(ctx, query, song.Artist, song.Title, song.URL, song.Filename); err != nil {
		return fmt.Errorf("upsert song: %w", err)
	}

	return nil
}
