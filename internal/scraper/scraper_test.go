package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"letterboxd-capture/internal/config"
)

// fakeFetcher serves canned pages; unknown URLs fail like a 404
type fakeFetcher struct {
	pages map[string]string
	texts map[string]string
	calls []string
}

func (f *fakeFetcher) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	if !ok {
		return nil, &FetchError{URL: url, Err: errors.New("HTTP 404: 404 Not Found")}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(page))
}

func (f *fakeFetcher) FetchText(ctx context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	text, ok := f.texts[url]
	if !ok {
		return "", &FetchError{URL: url, Err: errors.New("HTTP 404: 404 Not Found")}
	}
	return text, nil
}

type panicFetcher struct{}

func (panicFetcher) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	panic("transport exploded")
}

func (panicFetcher) FetchText(ctx context.Context, url string) (string, error) {
	panic("transport exploded")
}

var fixedNow = time.Date(2024, time.August, 1, 12, 0, 0, 0, time.UTC)

func newTestScraper(t *testing.T, fetcher Fetcher) *Scraper {
	t.Helper()
	cfg := config.Default()
	cfg.Common.Username = "tester"
	cfg.Common.Sleep = 0
	s := NewWithFetcher(cfg, fetcher)
	s.now = func() time.Time { return fixedNow }
	return s
}

const (
	filmBase = "https://letterboxd.com/film/"

	listPage = `<html><body><ul class="films">
<li class="film-detail"><a href="/film/memories-of-murder/"><img alt="Poster for Memories of Murder" src="//a.ltrbxd.com/resized/film-poster/5/1/3/7/0/51370-memories-of-murder-0-70-0-105-crop.jpg"></a></li>
<li class="film-detail"><span>no link here</span></li>
<li class="film-detail"><a href="/film/the-prestige/">The Prestige</a></li>
<li class="film-detail"><a href="https://letterboxd.com/film/memories-of-murder/">again</a></li>
<li class="film-detail"><a href="/film/perfect-blue/">Perfect Blue</a></li>
<li class="film-detail"><a href="/film/your-name/"><img alt="Your Name." src="https://cdn.example.com/your-name.jpg"></a></li>
</ul></body></html>`

	memoriesPage = `<html><head>
<meta property="og:image" content="https://a.ltrbxd.com/resized/sm/upload/backdrop.jpg">
<script type="application/ld+json">/* <![CDATA[ */ {"@type":"Movie","datePublished":"2003-05-02"} /* ]]> */</script>
</head><body>
<section class="film-header"><h1>Memories of Murder</h1></section>
<span class="rating rated-8">★★★★</span>
<div class="film-detail-content"><p class="metadata"><time datetime="2024-07-22T10:00:00Z">Jul 22</time></p>
<div class="review body-text -prose js-review-body"><p>dafandikri's review published on Letterboxd:</p><p>This movie is getting a 4<br>because of the dropkicks.</p><p>Bong Joon Ho has the eyes.</p></div>
</div></body></html>`

	prestigePage = `<html><head><meta property="og:image" content="//a.ltrbxd.com/resized/film-poster/5/1/4/7/8/51478-the-prestige-0-230-0-345-crop.jpg"></head>
<body><div class="film-header"><h1>The Prestige</h1> <small>2006</small></div></body></html>`

	yourNamePage = `<html><body><div class="film-title-wrapper">Your Name. (2016)</div>
<span class="rating rated-9"></span><div class="review-text"><p>Short</p></div></body></html>`
)

func detailPages() map[string]string {
	return map[string]string{
		filmBase + "memories-of-murder/": memoriesPage,
		filmBase + "the-prestige/":       prestigePage,
		filmBase + "your-name/":          yourNamePage,
	}
}

func TestAssembleFromDocument(t *testing.T) {
	f := &fakeFetcher{pages: detailPages()}
	s := newTestScraper(t, f)

	records := s.AssembleFromDocument(context.Background(), parseHTML(t, listPage), 4)
	require.Len(t, records, 3)

	assert.Equal(t, Record{
		Title:       "Memories Of Murder",
		Year:        "2003",
		PosterURL:   "https://a.ltrbxd.com/resized/film-poster/5/1/3/7/0/51370-memories-of-murder-0-460-0-690-crop.jpg",
		Rating:      4.0,
		WatchedDate: "July 22, 2024",
		Review:      "This movie is getting a 4\nbecause of the dropkicks.\n\nBong Joon Ho has the eyes.",
	}, records[0], "list poster wins over og:image")

	assert.Equal(t, Record{
		Title:       "The Prestige",
		Year:        "2006",
		PosterURL:   "https://a.ltrbxd.com/resized/film-poster/5/1/4/7/8/51478-the-prestige-0-460-0-690-crop.jpg",
		Rating:      4.0,
		WatchedDate: "August 01, 2024",
		Review:      "A great film! Really enjoyed watching The Prestige.",
	}, records[1], "detail poster fills the gap and defaults apply")

	assert.Equal(t, Record{
		Title:       "Your Name.",
		Year:        "2016",
		PosterURL:   "https://cdn.example.com/your-name.jpg",
		Rating:      4.5,
		WatchedDate: "August 01, 2024",
		Review:      "A great film! Really enjoyed watching Your Name..",
	}, records[2], "alt text replaces slug title; short review rejected")

	// the duplicate still costs a detail fetch; the missing film page is skipped
	assert.Equal(t, []string{
		filmBase + "memories-of-murder/",
		filmBase + "the-prestige/",
		filmBase + "memories-of-murder/",
		filmBase + "perfect-blue/",
		filmBase + "your-name/",
	}, f.calls)
}

func TestAssembleFromDocument_StopsAtLimit(t *testing.T) {
	f := &fakeFetcher{pages: detailPages()}
	s := newTestScraper(t, f)

	records := s.AssembleFromDocument(context.Background(), parseHTML(t, listPage), 1)
	require.Len(t, records, 1)
	assert.Equal(t, "Memories Of Murder", records[0].Title)
	assert.Len(t, f.calls, 1)
}

func TestAssembleFromDocument_ExaminesAtMostFourTimesLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<ul>`)
	for i := 0; i < 4; i++ {
		b.WriteString(`<li class="film-detail"><span>no link</span></li>`)
	}
	b.WriteString(`<li class="film-detail"><a href="/film/the-prestige/">x</a></li></ul>`)

	f := &fakeFetcher{pages: detailPages()}
	s := newTestScraper(t, f)

	records := s.AssembleFromDocument(context.Background(), parseHTML(t, b.String()), 1)
	assert.Empty(t, records)
	assert.Empty(t, f.calls)

	records = s.AssembleFromDocument(context.Background(), parseHTML(t, b.String()), 2)
	require.Len(t, records, 1)
	assert.Equal(t, "The Prestige", records[0].Title)
}

func TestAssembleFromDocument_ZeroCandidates(t *testing.T) {
	s := newTestScraper(t, &fakeFetcher{})
	records := s.AssembleFromDocument(context.Background(), parseHTML(t, `<p>private profile</p>`), 4)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestAssembleFromDocument_Throttles(t *testing.T) {
	f := &fakeFetcher{pages: detailPages()}
	s := newTestScraper(t, f)
	s.delay = 20 * time.Millisecond

	start := time.Now()
	records := s.AssembleFromDocument(context.Background(), parseHTML(t, listPage), 3)
	elapsed := time.Since(start)

	require.Len(t, records, 3)
	assert.GreaterOrEqual(t, elapsed, 35*time.Millisecond, "two waits between three accepted items")
}

func TestBuildRecord_Errors(t *testing.T) {
	doc := parseHTML(t, `<ul><li class="a"><span>nothing</span></li><li class="b"><a href="/film/perfect-blue/">x</a></li></ul>`)

	s := newTestScraper(t, &fakeFetcher{})
	_, err := s.BuildRecord(context.Background(), doc.Find("li.a"))
	assert.ErrorIs(t, err, ErrNoFilmLink)

	_, err = s.BuildRecord(context.Background(), doc.Find("li.b"))
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, filmBase+"perfect-blue/", fetchErr.URL)

	s = newTestScraper(t, panicFetcher{})
	var rec *Record
	assert.NotPanics(t, func() {
		rec, err = s.BuildRecord(context.Background(), doc.Find("li.b"))
	})
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrCandidateFailed)
}

func TestGetRecentReviews_TriesVariants(t *testing.T) {
	pages := detailPages()
	pages["https://letterboxd.com/tester/films/diary/"] = `<p>no items</p>`
	pages["https://letterboxd.com/tester/films/by/date/"] = listPage
	f := &fakeFetcher{pages: pages}
	s := newTestScraper(t, f)

	records, err := s.GetRecentReviews(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Memories Of Murder", records[0].Title)
	assert.Equal(t, "The Prestige", records[1].Title)
	assert.Equal(t, []string{
		"https://letterboxd.com/tester/films/reviews/by/date/",
		"https://letterboxd.com/tester/films/diary/",
		"https://letterboxd.com/tester/films/by/date/",
	}, f.calls[:3])
}

func TestGetRecentReviews_AllEmpty(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://letterboxd.com/tester/": `<p>nothing to see</p>`,
	}}
	s := newTestScraper(t, f)

	records, err := s.GetRecentReviews(context.Background(), 4)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, s.ListingURLs(), f.calls)
}

func TestGetRecentReviews_NoUsername(t *testing.T) {
	cfg := config.Default()
	s := NewWithFetcher(cfg, &fakeFetcher{})
	_, err := s.GetRecentReviews(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNoUsername)
}

func TestRecordJSON(t *testing.T) {
	data, err := json.Marshal([]Record{
		{Title: "A", Year: "2000", Rating: 4, WatchedDate: "July 22, 2024", Review: "r"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"A","year":"2000","rating":4,"watchedDate":"July 22, 2024","review":"r"}]`, string(data))
}

func TestTitleFromSlug(t *testing.T) {
	tests := map[string]string{
		"https://letterboxd.com/film/memories-of-murder/":       "Memories Of Murder",
		"https://letterboxd.com/tester/film/perfect-blue/":      "Perfect Blue",
		"https://letterboxd.com/film/your-name/reviews/by/date": "Your Name",
		"https://letterboxd.com/film/":                          "",
		"https://letterboxd.com/films/":                         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, titleFromSlug(in), in)
	}
}
