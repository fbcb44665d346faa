package scraper

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var reviewSelectors = []string{
	".js-review-body",
	".review .body-text",
	".film-detail-content .body-text",
	".review-text",
	".body-text",
}

// Details holds what a film page contributed. Empty strings are unresolved.
type Details struct {
	Year        string
	PosterURL   string
	Rating      float64
	HasRating   bool
	WatchedDate string
	Review      string
}

// DetailResolver bundles the field chains run against a film page
type DetailResolver struct {
	year    *Chain[string]
	poster  *Chain[string]
	rating  *Chain[float64]
	watched *Chain[string]
	review  *Chain[string]
}

// NewDetailResolver builds every chain once; dateLayout formats watched dates
func NewDetailResolver(dateLayout string) *DetailResolver {
	return &DetailResolver{
		year:    NewYearChain(),
		poster:  NewDetailPosterChain(),
		rating:  NewRatingChain(),
		watched: NewWatchedDateChain(dateLayout),
		review:  NewReviewChain(),
	}
}

// NewReviewChain builds the review resolver. The first fragment whose text
// is longer than 10 characters wins.
func NewReviewChain() *Chain[string] {
	strategies := make([]Strategy[string], 0, len(reviewSelectors))
	for _, selector := range reviewSelectors {
		selector := selector
		strategies = append(strategies, Strategy[string]{
			Name: selector,
			Fn: func(doc *goquery.Selection) (string, bool) {
				return reviewFromSelector(doc, selector)
			},
		})
	}
	return NewChain("review", strategies...)
}

func reviewFromSelector(doc *goquery.Selection, selector string) (string, bool) {
	fragment := doc.Find(selector).First()
	if fragment.Length() == 0 {
		return "", false
	}

	text := ExtractReview(fragment)
	if utf8.RuneCountInString(text) <= 10 {
		return "", false
	}

	cleaned := CleanReview(text)
	return cleaned, cleaned != ""
}

// ResolveDetails runs every chain against a film page
func (r *DetailResolver) ResolveDetails(doc *goquery.Selection) Details {
	var d Details
	d.Year, _ = r.year.Resolve(doc)
	d.PosterURL, _ = r.poster.Resolve(doc)
	d.Rating, d.HasRating = r.rating.Resolve(doc)
	d.WatchedDate, _ = r.watched.Resolve(doc)
	d.Review, _ = r.review.Resolve(doc)
	return d
}
