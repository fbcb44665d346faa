package scraper

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
	"letterboxd-capture/internal/config"
	"letterboxd-capture/pkg/httpclient"
	"letterboxd-capture/pkg/logger"
)

// Record 表示一条影评
type Record struct {
	Title       string  `json:"title"`
	Year        string  `json:"year"`
	PosterURL   string  `json:"poster_url,omitempty"`
	Rating      float64 `json:"rating"`
	WatchedDate string  `json:"watchedDate"`
	Review      string  `json:"review"`
}

// 候选条目被跳过的原因
var (
	ErrNoFilmLink      = errors.New("no film link in item")
	ErrCandidateFailed = errors.New("candidate extraction failed")
	ErrNoUsername      = errors.New("username is not configured")
)

// 列表页候选条目选择器
const candidateSelector = "li.poster-container, li.film-detail, .poster-list li, " +
	".film-list li, .poster, .film-poster, li[data-film-id], " +
	"li[data-target-link], .poster-item, .film-item"

// 依次尝试的列表页路径
var listingPaths = []string{
	"films/reviews/by/date/",
	"films/diary/",
	"films/by/date/",
	"films/",
	"",
}

// Scraper 从 Letterboxd 抓取最近的影评
type Scraper struct {
	fetcher  Fetcher
	baseURL  *url.URL
	username string
	delay    time.Duration
	defaults Defaults
	details  *DetailResolver
	now      func() time.Time
}

// New 创建使用 HTTP 客户端的抓取器实例
func New(cfg *config.Config) *Scraper {
	client := httpclient.NewClient(&cfg.Proxy)
	client.SetUserAgent(cfg.Site.UserAgent)
	client.SetHeader("Referer", strings.TrimRight(cfg.Site.BaseURL, "/")+"/")
	return NewWithFetcher(cfg, NewHTTPFetcher(client))
}

// NewWithFetcher 使用指定的 Fetcher 创建抓取器
func NewWithFetcher(cfg *config.Config, fetcher Fetcher) *Scraper {
	base, err := url.Parse(strings.TrimRight(cfg.Site.BaseURL, "/") + "/")
	if err != nil || !base.IsAbs() {
		logger.Warn("Invalid base_url %q, using https://letterboxd.com/", cfg.Site.BaseURL)
		base, _ = url.Parse("https://letterboxd.com/")
	}

	defaults := DefaultsFromConfig(cfg.Defaults)
	return &Scraper{
		fetcher:  fetcher,
		baseURL:  base,
		username: strings.TrimSpace(cfg.Common.Username),
		delay:    time.Duration(cfg.Common.Sleep) * time.Millisecond,
		defaults: defaults,
		details:  NewDetailResolver(defaults.DateLayout),
		now:      time.Now,
	}
}

// ListingURLs 返回按优先级排列的列表页地址
func (s *Scraper) ListingURLs() []string {
	user := url.PathEscape(s.username)
	urls := make([]string, 0, len(listingPaths))
	for _, p := range listingPaths {
		urls = append(urls, s.baseURL.String()+user+"/"+p)
	}
	return urls
}

// GetRecentReviews 依次尝试各个列表页，返回第一个非空结果。
// 全部为空时返回空集合，不视为错误。
func (s *Scraper) GetRecentReviews(ctx context.Context, limit int) ([]Record, error) {
	if s.username == "" {
		return nil, ErrNoUsername
	}

	logger.Info("Scraping %d latest reviews for user: %s", limit, s.username)

	for _, listingURL := range s.ListingURLs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Debug("Trying URL: %s", listingURL)
		doc, err := s.fetcher.FetchDocument(ctx, listingURL)
		if err != nil {
			logger.Warn("Error fetching %s: %v", listingURL, err)
			continue
		}

		n := doc.Find(candidateSelector).Length()
		if n == 0 {
			logger.Info("No film items found on %s", listingURL)
			continue
		}
		logger.Debug("Found %d film items on %s", n, listingURL)

		records := s.AssembleFromDocument(ctx, doc, limit)
		if len(records) > 0 {
			return records, nil
		}
	}

	return []Record{}, nil
}

// AssembleFromDocument 按文档顺序处理候选条目，按 (标题, 年份) 去重，
// 最多检查 4*limit 个条目，收满 limit 条即停止。
func (s *Scraper) AssembleFromDocument(ctx context.Context, doc *goquery.Document, limit int) []Record {
	records := []Record{}
	if limit <= 0 {
		return records
	}

	maxExamined := max(limit*4, limit)
	limiter := s.newLimiter()
	seen := make(map[string]bool)

	doc.Find(candidateSelector).EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= maxExamined || ctx.Err() != nil {
			return false
		}

		rec, err := s.BuildRecord(ctx, item)
		if err != nil {
			logCandidateError(err)
			return true
		}

		key := dedupKey(rec)
		if seen[key] {
			logger.Debug("Skipping duplicate: %s (%s)", rec.Title, rec.Year)
			return true
		}
		seen[key] = true
		records = append(records, *rec)

		posterMark := "✗"
		if rec.PosterURL != "" {
			posterMark = "✓"
		}
		logger.Info("Extracted: %s (%s) - Poster: %s", rec.Title, rec.Year, posterMark)

		if len(records) >= limit {
			return false
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return false
			}
		}
		return true
	})

	return records
}

// newLimiter 返回礼貌限速器；初始令牌已消耗，第一次等待即生效
func (s *Scraper) newLimiter() *rate.Limiter {
	if s.delay <= 0 {
		return nil
	}
	l := rate.NewLimiter(rate.Every(s.delay), 1)
	l.Allow()
	return l
}

// Close 释放底层 Fetcher 持有的资源
func (s *Scraper) Close() error {
	if c, ok := s.fetcher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func dedupKey(rec *Record) string {
	return rec.Title + "\x00" + rec.Year
}

func logCandidateError(err error) {
	var fetchErr *FetchError
	switch {
	case errors.Is(err, ErrNoFilmLink):
		logger.Debug("Skipping item: %v", err)
	case errors.As(err, &fetchErr):
		logger.Warn("Skipping item: %v", err)
	default:
		logger.Warn("Error extracting from item: %v", err)
	}
}
