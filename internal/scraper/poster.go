package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	backgroundImageRe = regexp.MustCompile(`background-image:\s*url\(\s*["']?([^"')]+)["']?\s*\)`)

	posterDataAttrs  = []string{"data-film-poster", "data-poster", "data-image"}
	posterImageTypes = map[string]bool{"Movie": true, "VideoObject": true, "CreativeWork": true}

	detailPosterSelectors = []string{
		".film-poster img",
		".poster img",
		"img.film-poster",
		`img[src*="ltrbxd.com"]`,
		".film-header img",
	}
)

var listPosterChain = NewChain("list-poster",
	Strategy[string]{Name: "link-data", Fn: posterFromLinkData},
	Strategy[string]{Name: "img", Fn: posterFromImages},
	Strategy[string]{Name: "noscript", Fn: posterFromNoscript},
	Strategy[string]{Name: "background-image", Fn: posterFromBackground},
	Strategy[string]{Name: "container-data", Fn: posterFromDataAttrs},
)

// ResolveListPoster finds a poster URL in the markup of a single list item
func ResolveListPoster(item *goquery.Selection) string {
	u, _ := listPosterChain.Resolve(item)
	return u
}

// NewDetailPosterChain builds the poster resolver for film pages
func NewDetailPosterChain() *Chain[string] {
	return NewChain("poster",
		Strategy[string]{Name: "meta", Fn: posterFromMeta},
		Strategy[string]{Name: "jsonld", Fn: posterFromJSONLD},
		Strategy[string]{Name: "dom", Fn: posterFromDOM},
	)
}

// firstAttr 返回第一个非空属性值
func firstAttr(s *goquery.Selection, attrs ...string) string {
	for _, attr := range attrs {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// normalized 规范化后非空才算命中
func normalized(raw string) (string, bool) {
	u := NormalizePosterURL(raw)
	return u, u != ""
}

func posterFromDataAttrs(s *goquery.Selection) (string, bool) {
	return normalized(firstAttr(s, posterDataAttrs...))
}

func posterFromLinkData(item *goquery.Selection) (string, bool) {
	return posterFromDataAttrs(item.Find(`a[href*="/film/"]`).First())
}

// imageSource 按 srcset > data-src > src 的顺序取图片地址
func imageSource(img *goquery.Selection, extra ...string) string {
	if srcset := firstAttr(img, "data-srcset", "srcset"); srcset != "" {
		if best := BestFromSrcset(srcset); best != "" {
			return best
		}
	}
	return firstAttr(img, append([]string{"data-src", "src"}, extra...)...)
}

func posterFromImages(item *goquery.Selection) (string, bool) {
	var u string
	item.Find("img").EachWithBreak(func(i int, img *goquery.Selection) bool {
		if v, ok := normalized(imageSource(img, "data-film-poster")); ok {
			u = v
			return false
		}
		return true
	})
	return u, u != ""
}

// posterFromNoscript 处理 noscript 中的图片；解析器可能把内容保留为原始文本
func posterFromNoscript(item *goquery.Selection) (string, bool) {
	var u string
	item.Find("noscript").EachWithBreak(func(i int, ns *goquery.Selection) bool {
		img := ns.Find("img").First()
		if img.Length() == 0 {
			inner, err := goquery.NewDocumentFromReader(strings.NewReader(ns.Text()))
			if err != nil {
				return true
			}
			img = inner.Find("img").First()
		}
		if img.Length() == 0 {
			return true
		}
		if v, ok := normalized(imageSource(img)); ok {
			u = v
			return false
		}
		return true
	})
	return u, u != ""
}

func posterFromBackground(item *goquery.Selection) (string, bool) {
	var u string
	item.Find(`[style*="background-image"]`).EachWithBreak(func(i int, el *goquery.Selection) bool {
		style, _ := el.Attr("style")
		if m := backgroundImageRe.FindStringSubmatch(style); m != nil {
			if v, ok := normalized(m[1]); ok {
				u = v
				return false
			}
		}
		return true
	})
	return u, u != ""
}

func posterFromMeta(doc *goquery.Selection) (string, bool) {
	content, _ := doc.Find("meta[property='og:image']").First().Attr("content")
	if strings.TrimSpace(content) == "" {
		content, _ = doc.Find("meta[name='twitter:image']").First().Attr("content")
	}
	return normalized(content)
}

func posterFromJSONLD(doc *goquery.Selection) (string, bool) {
	for _, node := range jsonLDNodes(doc) {
		if !hasPosterType(node["@type"]) {
			continue
		}
		if v, ok := normalized(jsonLDImage(node["image"])); ok {
			return v, true
		}
	}
	return "", false
}

// hasPosterType 接受字符串或字符串列表形式的 @type
func hasPosterType(t any) bool {
	switch v := t.(type) {
	case string:
		return posterImageTypes[v]
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && posterImageTypes[s] {
				return true
			}
		}
	}
	return false
}

// jsonLDImage 读取 image 字段：字符串、带 url 的对象或列表首元素
func jsonLDImage(image any) string {
	switch v := image.(type) {
	case string:
		return v
	case map[string]any:
		u, _ := v["url"].(string)
		return u
	case []any:
		if len(v) > 0 {
			return jsonLDImage(v[0])
		}
	}
	return ""
}

func posterFromDOM(doc *goquery.Selection) (string, bool) {
	for _, selector := range detailPosterSelectors {
		img := doc.Find(selector).First()
		if img.Length() == 0 {
			continue
		}
		if v, ok := normalized(imageSource(img)); ok {
			return v, true
		}
	}
	return "", false
}
