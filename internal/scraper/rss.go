package scraper

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"letterboxd-capture/pkg/logger"
)

// RSS 标题格式 "Title, 2003 - ★★★★½"
var rssTitleRe = regexp.MustCompile(`^(.+?),\s*(\d{4})\s*-\s*(.*)$`)

const letterboxdNS = "letterboxd"

// RSSURL 返回用户的 RSS 地址
func (s *Scraper) RSSURL() string {
	return s.baseURL.String() + url.PathEscape(s.username) + "/rss/"
}

// GetRSSReviews 从用户的 RSS 订阅读取最近的影评。没有详情页请求。
func (s *Scraper) GetRSSReviews(ctx context.Context, limit int) ([]Record, error) {
	if s.username == "" {
		return nil, ErrNoUsername
	}

	feedURL := s.RSSURL()
	logger.Info("Fetching RSS feed from: %s", feedURL)

	body, err := s.fetcher.FetchText(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	logger.Debug("Found %d RSS items", len(feed.Items))
	return s.RecordsFromFeed(feed, limit), nil
}

// RecordsFromFeed 把订阅条目转换为影评，按 (标题, 年份) 去重
func (s *Scraper) RecordsFromFeed(feed *gofeed.Feed, limit int) []Record {
	records := []Record{}
	if feed == nil || limit <= 0 {
		return records
	}

	seen := make(map[string]bool)
	for _, item := range feed.Items {
		rec, ok := s.recordFromItem(item)
		if !ok {
			logger.Debug("Skipping RSS item without film data: %s", item.Title)
			continue
		}

		key := dedupKey(rec)
		if seen[key] {
			continue
		}
		seen[key] = true
		records = append(records, *rec)
		logger.Info("Extracted from RSS: %s (%s)", rec.Title, rec.Year)

		if len(records) >= limit {
			break
		}
	}
	return records
}

func (s *Scraper) recordFromItem(item *gofeed.Item) (*Record, bool) {
	if item == nil {
		return nil, false
	}

	var (
		title string
		d     Details
	)

	if filmTitle := extensionValue(item.Extensions, "filmTitle"); filmTitle != "" {
		title = filmTitle
		d.Year = extensionValue(item.Extensions, "filmYear")
		if r, err := strconv.ParseFloat(extensionValue(item.Extensions, "memberRating"), 64); err == nil && r > 0 && r <= 5 && r*2 == math.Trunc(r*2) {
			d.Rating, d.HasRating = r, true
		}
	} else {
		m := rssTitleRe.FindStringSubmatch(strings.TrimSpace(item.Title))
		if m == nil {
			return nil, false
		}
		title = strings.TrimSpace(m[1])
		d.Year = m[2]
		d.Rating, d.HasRating = ParseStarRating(m[3])
	}

	if title == "" {
		return nil, false
	}
	if !validYear(d.Year) {
		d.Year = ""
	}

	var poster string
	if desc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description)); err == nil {
		body := desc.Find("body")
		d.Review = CleanReview(ExtractReview(body))
		if img := body.Find("img").First(); img.Length() > 0 {
			poster = NormalizePosterURL(imageSource(img))
		}
	}

	d.WatchedDate = s.feedDate(item)
	return s.finishRecord(title, poster, d), true
}

// feedDate 优先使用 letterboxd:watchedDate，其次是发布时间
func (s *Scraper) feedDate(item *gofeed.Item) string {
	if watched := extensionValue(item.Extensions, "watchedDate"); watched != "" {
		if t, err := time.Parse("2006-01-02", watched); err == nil {
			return t.Format(s.defaults.DateLayout)
		}
	}
	if item.PublishedParsed != nil {
		return item.PublishedParsed.Format(s.defaults.DateLayout)
	}
	return ""
}

func extensionValue(exts ext.Extensions, name string) string {
	values := exts[letterboxdNS][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}
