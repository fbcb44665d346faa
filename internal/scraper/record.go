package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"letterboxd-capture/internal/config"
)

const filmLinkSelector = `a[href*="/film/"]`

// Defaults 无法解析字段时使用的取值
type Defaults struct {
	Year           string
	Rating         float64
	ReviewTemplate string // 必须包含一个 %s，替换为片名
	DateLayout     string
}

// DefaultsFromConfig converts the defaults config section
func DefaultsFromConfig(cfg config.DefaultsConfig) Defaults {
	d := Defaults{
		Year:           cfg.Year,
		Rating:         cfg.Rating,
		ReviewTemplate: cfg.ReviewTemplate,
		DateLayout:     cfg.DateLayout,
	}
	if d.DateLayout == "" {
		d.DateLayout = DefaultDateLayout
	}
	return d
}

// BuildRecord turns one list item into a Record. Items without a film link
// return ErrNoFilmLink; a failed film page fetch returns a *FetchError.
func (s *Scraper) BuildRecord(ctx context.Context, item *goquery.Selection) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("%w: %v", ErrCandidateFailed, r)
		}
	}()

	href := strings.TrimSpace(item.Find(filmLinkSelector).First().AttrOr("href", ""))
	if href == "" {
		return nil, ErrNoFilmLink
	}

	filmURL, err := s.absoluteURL(href)
	if err != nil {
		return nil, fmt.Errorf("%w: bad film link %q: %v", ErrCandidateFailed, href, err)
	}

	title := titleFromSlug(filmURL)
	poster := ResolveListPoster(item)
	if alt := altTitle(item, title); alt != "" {
		title = alt
	}
	if title == "" {
		return nil, fmt.Errorf("%w: no title for %s", ErrCandidateFailed, filmURL)
	}

	doc, err := s.fetcher.FetchDocument(ctx, filmURL)
	if err != nil {
		return nil, err
	}

	return s.finishRecord(title, poster, s.details.ResolveDetails(doc.Selection)), nil
}

// finishRecord 合并详情页结果并填充默认值。列表阶段的海报优先，详情页只补空缺。
func (s *Scraper) finishRecord(title, listPoster string, d Details) *Record {
	rec := &Record{
		Title:       title,
		Year:        d.Year,
		PosterURL:   listPoster,
		Rating:      d.Rating,
		WatchedDate: d.WatchedDate,
		Review:      d.Review,
	}

	if rec.PosterURL == "" {
		rec.PosterURL = d.PosterURL
	}
	if rec.Year == "" {
		rec.Year = s.defaults.Year
	}
	if !d.HasRating {
		rec.Rating = s.defaults.Rating
	}
	if rec.WatchedDate == "" {
		rec.WatchedDate = s.now().Format(s.defaults.DateLayout)
	}
	if rec.Review == "" {
		rec.Review = fmt.Sprintf(s.defaults.ReviewTemplate, rec.Title)
	}
	return rec
}

func (s *Scraper) absoluteURL(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	return s.baseURL.ResolveReference(ref).String(), nil
}

// titleFromSlug 由 /film/<slug>/ 得到标题，连字符转空格并首字母大写
func titleFromSlug(filmURL string) string {
	parts := strings.SplitN(filmURL, "/film/", 2)
	if len(parts) < 2 {
		return ""
	}
	slug := strings.SplitN(strings.Trim(parts[1], "/"), "/", 2)[0]
	slug = strings.TrimSpace(strings.ReplaceAll(slug, "-", " "))
	if slug == "" {
		return ""
	}
	return cases.Title(language.Und).String(slug)
}

// altTitle 返回比 slug 标题更长且不是 "Poster for ..." 的图片 alt 文本
func altTitle(item *goquery.Selection, slugTitle string) string {
	var title string
	item.Find("img[alt]").EachWithBreak(func(i int, img *goquery.Selection) bool {
		alt := strings.TrimSpace(img.AttrOr("alt", ""))
		if alt == "" || strings.HasPrefix(strings.ToLower(alt), "poster for") {
			return true
		}
		if utf8.RuneCountInString(alt) > utf8.RuneCountInString(slugTitle) {
			title = alt
			return false
		}
		return true
	})
	return title
}
