package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var ratedClassRe = regexp.MustCompile(`^rated-(\d+)$`)

const ratingSelector = ".film-rating-histogram .rating, .user-rating, .rating"

// NewRatingChain builds the rating resolver. Ratings are 0-5 in half steps.
func NewRatingChain() *Chain[float64] {
	return NewChain("rating",
		Strategy[float64]{Name: "class-token", Fn: ratingFromClass},
		Strategy[float64]{Name: "star-glyphs", Fn: ratingFromGlyphs},
	)
}

// ratingFromClass 解析 rated-N 类名，N 为 0-10 的半星数
func ratingFromClass(doc *goquery.Selection) (float64, bool) {
	class, _ := doc.Find(ratingSelector).First().Attr("class")
	for _, token := range strings.Fields(class) {
		m := ratedClassRe.FindStringSubmatch(token)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 || n > 10 {
			continue
		}
		return float64(n) / 2.0, true
	}
	return 0, false
}

func ratingFromGlyphs(doc *goquery.Selection) (float64, bool) {
	return ParseStarRating(doc.Find(ratingSelector).First().Text())
}

// ParseStarRating decodes "★★★½" style text. A result of zero is a miss.
func ParseStarRating(text string) (float64, bool) {
	rating := float64(strings.Count(text, "★"))
	if strings.Contains(text, "½") {
		rating += 0.5
	}
	if rating <= 0 || rating > 5 {
		return 0, false
	}
	return rating, true
}
