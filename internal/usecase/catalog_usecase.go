package usecase

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/jortega/karaokejam/internal/domain/models"
	"github.com/jortega/karaokejam/internal/infra/adapters/sqlite"
)

// DigitBucket collects artists whose name starts with a digit.
const DigitBucket = "#"

// GroupedSongs maps first-letter-of-artist -> artist -> filenames.
type GroupedSongs map[string]map[string][]string

// CatalogUsecase serves the song browser and the CSV import tooling.
type CatalogUsecase interface {
	ListGrouped(ctx context.Context) (GroupedSongs, error)
	SongURL(ctx context.Context, filename string) (string, error)

	// ImportCSV reads artist,title,url lines and upserts them into the
	// catalog. The URL may itself contain commas. Returns the number of
	// rows imported.
	ImportCSV(ctx context.Context, r io.Reader) (int, error)
}

type catalogUsecase struct {
	catalogRepo sqlite.CatalogRepository
}

func NewCatalogUsecase(catalogRepo sqlite.CatalogRepository) CatalogUsecase {
	return &catalogUsecase{catalogRepo: catalogRepo}
}

func (uc *catalogUsecase) ListGrouped(ctx context.Context) (GroupedSongs, error) {
	songs, err := uc.catalogRepo.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}

	grouped := make(GroupedSongs)

	for _, song := range songs {
		letter := bucketFor(song.Artist)

		if grouped[letter] == nil {
			grouped[letter] = make(map[string][]string)
		}

		grouped[letter][song.Artist] = append(grouped[letter][song.Artist], song.Filename)
	}

	return grouped, nil
}

func bucketFor(artist string) string {
	if artist == "" {
		return DigitBucket
	}

	first := []rune(strings.ToUpper(artist))[0]
	if unicode.IsDigit(first) {
		return DigitBucket
	}

	return string(first)
}

func (uc *catalogUsecase) SongURL(ctx context.Context, filename string) (string, error) {
	return uc.catalogRepo.GetSongURL(ctx, filename)
}

func (uc *catalogUsecase) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)

	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}

		artist := strings.TrimSpace(parts[0])
		title := strings.TrimSpace(parts[1])
		url := strings.TrimSpace(strings.Join(parts[2:], ","))

		if artist == "" || title == "" || url == "" {
			continue
		}

		song := models.Song{
			Artist:   artist,
			Title:    title,
			URL:      url,
			Filename: fmt.Sprintf("%s - %s.mp4", artist, title),
		}

		if err := uc.catalogRepo.UpsertSong(ctx, song); err != nil {
			return count, fmt.Errorf("import song %q: %w", song.Filename, err)
		}

		count++
	}

	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read csv: %w", err)
	}

	return count, nil
}
