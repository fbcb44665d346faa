package scraper

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// 私有区字符作为哨兵，不会出现在正常文本中
const (
	singleBreakMark    = "\uE000"
	paragraphStartMark = "\uE001"
	paragraphEndMark   = "\uE002"
)

var (
	rawWhitespaceRe   = regexp.MustCompile(`[ \t\r\n\f]+`)
	paragraphMarkRe   = regexp.MustCompile(paragraphStartMark + "|" + paragraphEndMark)
	blankLineRunRe    = regexp.MustCompile(`\n\s*\n`)
	horizontalSpaceRe = regexp.MustCompile(`[ \t]+`)
	excessNewlinesRe  = regexp.MustCompile(`\n{3,}`)

	// 站点生成的署名前缀，只去掉一次。措辞变化后将不再匹配。
	attributionRe = regexp.MustCompile(`(?i)^(?:[^:\n]*?'?s\s+)?review\s+published\s+on\s+letterboxd:\s*`)
)

// 遇到这些元素时结束当前段落
var paragraphBoundaries = map[string]bool{
	"p": true, "div": true, "blockquote": true, "li": true,
	"section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// ExtractReview rebuilds the review text of fragment: paragraphs are joined
// with a blank line and <br> becomes a single newline. fragment is not modified.
func ExtractReview(fragment *goquery.Selection) string {
	if fragment == nil || fragment.Length() == 0 {
		return ""
	}
	fragment = fragment.First()

	paragraphs := paragraphsFromContainers(collapsedClone(fragment))
	if len(paragraphs) == 0 {
		paragraphs = paragraphsFromWalk(collapsedClone(fragment))
	}
	if len(paragraphs) == 0 {
		paragraphs = paragraphsFromSentinels(scrubbedClone(fragment))
	}
	if len(paragraphs) == 0 {
		if text := strings.TrimSpace(scrubbedClone(fragment).Text()); text != "" {
			paragraphs = []string{text}
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

// CleanReview strips the leading attribution clause once and normalizes
// whitespace while keeping line and paragraph breaks.
func CleanReview(text string) string {
	text = strings.TrimLeft(text, " \t\r\n\f")
	text = horizontalSpaceRe.ReplaceAllString(text, " ")
	text = attributionRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = excessNewlinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// scrubbedClone 复制片段并去掉 script 和 style，它们的内容不是可见文本
func scrubbedClone(sel *goquery.Selection) *goquery.Selection {
	clone := sel.Clone()
	clone.Find("script, style").Remove()
	return clone
}

// collapsedClone 复制片段并按 HTML 渲染规则把文本节点中的空白折叠为单个空格
func collapsedClone(fragment *goquery.Selection) *goquery.Selection {
	clone := scrubbedClone(fragment)
	for _, root := range clone.Nodes {
		collapseTextNodes(root)
	}
	return clone
}

func collapseTextNodes(n *html.Node) {
	if n.Type == html.TextNode {
		n.Data = rawWhitespaceRe.ReplaceAllString(n.Data, " ")
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collapseTextNodes(c)
	}
}

func textNode(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

// replaceBreaks 把每个 <br> 替换为给定文本
func replaceBreaks(sel *goquery.Selection, with string) {
	sel.Find("br").Each(func(i int, br *goquery.Selection) {
		br.ReplaceWithNodes(textNode(with))
	})
}

// tidyParagraph 去掉每行首尾空白以及整体首尾空白
func tidyParagraph(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func paragraphsFromContainers(root *goquery.Selection) []string {
	var paragraphs []string
	root.Find("p").Each(func(i int, p *goquery.Selection) {
		replaceBreaks(p, "\n")
		if text := tidyParagraph(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}

func paragraphsFromWalk(root *goquery.Selection) []string {
	var (
		paragraphs []string
		buf        strings.Builder
	)

	flush := func() {
		if text := tidyParagraph(buf.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		buf.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				buf.WriteString(c.Data)
			case html.ElementNode:
				switch {
				case c.Data == "br":
					buf.WriteString("\n")
				case c.Data == "script" || c.Data == "style":
				case paragraphBoundaries[c.Data]:
					flush()
					walk(c)
					flush()
				default:
					walk(c)
				}
			}
		}
	}

	for _, n := range root.Nodes {
		walk(n)
	}
	flush()
	return paragraphs
}

func paragraphsFromSentinels(root *goquery.Selection) []string {
	replaceBreaks(root, singleBreakMark)
	root.Find("p").Each(func(i int, p *goquery.Selection) {
		p.BeforeNodes(textNode(paragraphStartMark))
		p.AfterNodes(textNode(paragraphEndMark))
	})

	text := root.Text()
	var paragraphs []string

	if strings.Contains(text, paragraphStartMark) {
		for _, chunk := range paragraphMarkRe.Split(text, -1) {
			chunk = tidyParagraph(strings.ReplaceAll(chunk, singleBreakMark, "\n"))
			if chunk != "" {
				paragraphs = append(paragraphs, chunk)
			}
		}
		return paragraphs
	}

	text = strings.ReplaceAll(text, singleBreakMark, "\n")
	for _, chunk := range blankLineRunRe.Split(text, -1) {
		chunk = tidyParagraph(chunk)
		if utf8.RuneCountInString(chunk) > 3 {
			paragraphs = append(paragraphs, chunk)
		}
	}
	return paragraphs
}
