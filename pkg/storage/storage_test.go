package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"letterboxd-capture/internal/config"
	"letterboxd-capture/internal/scraper"
)

func TestSaveAndLoadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "data", "letterboxd_reviews.json")
	records := []scraper.Record{
		{
			Title:       "Your Name",
			Year:        "2016",
			PosterURL:   "https://a.ltrbxd.com/p.jpg?a=1&b=2",
			Rating:      4.0,
			WatchedDate: "May 8, 2024",
			Review:      "When she disappeared when writing her name 😭 <3",
		},
		{Title: "No Poster", Year: "2000", Rating: 3.5, WatchedDate: "x", Review: "y"},
	}

	require.NoError(t, SaveRecords(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "[\n  {\n    \"title\": \"Your Name\""))
	assert.Contains(t, text, "😭 <3", "unicode and html kept literally")
	assert.Contains(t, text, "?a=1&b=2")
	assert.NotContains(t, text, `"poster_url": ""`)

	loaded, err := LoadRecords(path)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed")
}

func TestSaveRecords_NilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, SaveRecords(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestLoadRecords_Errors(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read reviews file")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"title":`), 0644))
	_, err = LoadRecords(bad)
	assert.ErrorContains(t, err, "failed to parse reviews file")
}

func TestStorage_Save(t *testing.T) {
	cfg := config.Default()
	cfg.Common.OutputPath = filepath.Join(t.TempDir(), "reviews.json")
	cfg.Poster.Folder = "posters"

	s := New(cfg)
	path, err := s.Save([]scraper.Record{{Title: "A", Year: "2001"}})
	require.NoError(t, err)
	assert.Equal(t, cfg.Common.OutputPath, path)
	assert.FileExists(t, path)

	assert.Equal(t, filepath.Join("posters", "A (2001).png"),
		s.PosterPath(scraper.Record{Title: "A", Year: "2001", PosterURL: "https://x/y.PNG"}))
}

func TestPosterFileName(t *testing.T) {
	tests := []struct {
		name string
		rec  scraper.Record
		want string
	}{
		{"plain", scraper.Record{Title: "Perfect Blue", Year: "1997", PosterURL: "https://a.ltrbxd.com/p-crop.jpg?v=3"}, "Perfect Blue (1997).jpg"},
		{"illegal chars", scraper.Record{Title: `Mission: Impossible / "Fallout"?`, Year: "2018"}, "Mission꞉ Impossible ∕ ＂Fallout＂？ (2018).jpg"},
		{"no year", scraper.Record{Title: "Your Name."}, "Your Name.jpg"},
		{"empty title", scraper.Record{}, "unnamed_file.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PosterFileName(tt.rec))
		})
	}
}

func TestPosterFileName_Long(t *testing.T) {
	title := strings.Repeat("word ", 60)
	name := PosterFileName(scraper.Record{Title: title, Year: "2001"})
	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.LessOrEqual(t, utf8.RuneCountInString(strings.TrimSuffix(name, ".jpg")), maxPosterNameLen)
}
