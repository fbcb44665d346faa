package scraper

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultDateLayout renders dates like "July 22, 2024"
const DefaultDateLayout = "January 02, 2006"

var watchedDateSelectors = []string{
	".film-detail-content .metadata time",
	".diary-entry-date",
	"time[datetime]",
	".date",
}

// 带时间部分的时间戳依次尝试的格式
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// NewWatchedDateChain builds the watched-date resolver
func NewWatchedDateChain(layout string) *Chain[string] {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return NewChain("watchedDate",
		Strategy[string]{Name: "time-element", Fn: func(doc *goquery.Selection) (string, bool) {
			return watchedDateFromTime(doc, layout)
		}},
	)
}

func watchedDateFromTime(doc *goquery.Selection, layout string) (string, bool) {
	for _, selector := range watchedDateSelectors {
		el := doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}

		value := strings.TrimSpace(el.AttrOr("datetime", ""))
		if value == "" {
			value = strings.TrimSpace(el.Text())
		}
		if value == "" {
			continue
		}
		return FormatTimestamp(value, layout), true
	}
	return "", false
}

// FormatTimestamp reformats values carrying a time component; anything it
// cannot parse is returned unchanged.
func FormatTimestamp(value, layout string) string {
	if !strings.Contains(value, "T") {
		return value
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l, value); err == nil {
			return t.Format(layout)
		}
	}
	return value
}
