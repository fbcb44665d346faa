package scraper

import (
	"github.com/PuerkitoBio/goquery"
	"letterboxd-capture/pkg/logger"
)

// Strategy is one named way of resolving a field from a document
type Strategy[T any] struct {
	Name string
	Fn   func(*goquery.Selection) (T, bool)
}

// Chain tries its strategies in order and returns the first hit.
// A strategy that panics counts as a miss.
type Chain[T any] struct {
	field      string
	strategies []Strategy[T]
}

// NewChain builds a chain for the named field
func NewChain[T any](field string, strategies ...Strategy[T]) *Chain[T] {
	return &Chain[T]{field: field, strategies: strategies}
}

// Resolve runs the strategies against sel
func (c *Chain[T]) Resolve(sel *goquery.Selection) (T, bool) {
	var zero T
	if sel == nil {
		return zero, false
	}

	for _, s := range c.strategies {
		if v, ok := c.try(s, sel); ok {
			logger.Debug("Resolved %s via %s", c.field, s.Name)
			return v, true
		}
	}
	return zero, false
}

// Names lists the strategy names in order
func (c *Chain[T]) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name
	}
	return names
}

func (c *Chain[T]) try(s Strategy[T], sel *goquery.Selection) (v T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("Strategy %s/%s panicked: %v", c.field, s.Name, r)
			var zero T
			v, ok = zero, false
		}
	}()
	return s.Fn(sel)
}
