package scraper

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"letterboxd-capture/internal/config"
)

var (
	yearTokenRe = regexp.MustCompile(`\b(\d{4})\b`)
	cdataRe     = regexp.MustCompile(`/\*\s*<!\[CDATA\[\s*\*/|/\*\s*\]\]>\s*\*/`)

	// 标题区域依次尝试的年份模式
	titleYearPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{4})\b`),
		regexp.MustCompile(`(\d{4})\s*\)`),
		regexp.MustCompile(`\(\s*(\d{4})\s*\)`),
	}
)

var jsonLDDateFields = []string{"datePublished", "releaseDate", "dateCreated"}

// validYear 检查年份是否在 1888-2030 之间
func validYear(s string) bool {
	y, err := strconv.Atoi(s)
	if err != nil || len(s) != 4 {
		return false
	}
	return y >= config.MinYear && y <= config.MaxYear
}

// firstValidYear 返回文本中第一个有效的四位年份
func firstValidYear(text string) (string, bool) {
	for _, m := range yearTokenRe.FindAllStringSubmatch(text, -1) {
		if validYear(m[1]) {
			return m[1], true
		}
	}
	return "", false
}

// NewYearChain builds the release-year resolver
func NewYearChain() *Chain[string] {
	return NewChain("year",
		Strategy[string]{Name: "jsonld", Fn: yearFromJSONLD},
		Strategy[string]{Name: "title-region", Fn: yearFromTitleRegion},
		Strategy[string]{Name: "meta", Fn: yearFromMeta},
		Strategy[string]{Name: "breadcrumb", Fn: yearFromBreadcrumb},
		Strategy[string]{Name: "page-vote", Fn: yearFromPageVote},
	)
}

func yearFromJSONLD(doc *goquery.Selection) (string, bool) {
	for _, node := range jsonLDNodes(doc) {
		for _, field := range jsonLDDateFields {
			value, ok := node[field].(string)
			if !ok {
				continue
			}
			if m := yearTokenRe.FindStringSubmatch(value); m != nil && validYear(m[1]) {
				return m[1], true
			}
		}
	}
	return "", false
}

func yearFromTitleRegion(doc *goquery.Selection) (string, bool) {
	region := doc.Find(".film-title-wrapper, .film-header, .headline-1").First()
	if region.Length() == 0 {
		return "", false
	}

	text := region.Text()
	for _, re := range titleYearPatterns {
		if m := re.FindStringSubmatch(text); m != nil && validYear(m[1]) {
			return m[1], true
		}
	}
	return "", false
}

func yearFromMeta(doc *goquery.Selection) (string, bool) {
	selectors := []string{
		"meta[property='og:title']",
		"meta[name='twitter:title']",
		"meta[property='film:release_date']",
	}
	for _, selector := range selectors {
		content, _ := doc.Find(selector).First().Attr("content")
		if year, ok := firstValidYear(content); ok {
			return year, true
		}
	}
	return "", false
}

func yearFromBreadcrumb(doc *goquery.Selection) (string, bool) {
	var year string
	doc.Find(".breadcrumb, .nav-breadcrumb, .film-nav").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if y, ok := firstValidYear(s.Text()); ok {
			year = y
			return false
		}
		return true
	})
	return year, year != ""
}

// yearFromPageVote 统计页面可见文本中所有有效年份，出现次数最多者胜出，次数相同取较大年份
func yearFromPageVote(doc *goquery.Selection) (string, bool) {
	counts := map[string]int{}
	for _, m := range yearTokenRe.FindAllStringSubmatch(scrubbedClone(doc).Text(), -1) {
		if validYear(m[1]) {
			counts[m[1]]++
		}
	}

	best, bestCount := "", 0
	for year, n := range counts {
		if n > bestCount || (n == bestCount && year > best) {
			best, bestCount = year, n
		}
	}
	return best, best != ""
}

// jsonLDNodes 解析所有 JSON-LD 脚本，展开数组和 @graph
func jsonLDNodes(doc *goquery.Selection) []map[string]any {
	var nodes []map[string]any

	var collect func(v any)
	collect = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				collect(item)
			}
		case map[string]any:
			nodes = append(nodes, t)
			if graph, ok := t["@graph"]; ok {
				collect(graph)
			}
		}
	}

	doc.Find("script[type='application/ld+json']").Each(func(i int, s *goquery.Selection) {
		payload := strings.TrimSpace(cdataRe.ReplaceAllString(s.Text(), ""))
		if payload == "" {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return
		}
		collect(v)
	})

	return nodes
}
