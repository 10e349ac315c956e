// Package slides holds the slide records exchanged between the content
// deriver and the presentation renderer.
package slides

import (
	"errors"
	"strings"
)

// ErrEmptyDeck is returned when a deck carries no slides.
var ErrEmptyDeck = errors.New("slide deck is empty")

// Record is one slide: a title and its flat bullet points.
type Record struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

// Deck is an ordered sequence of slides. Slide order is render order.
type Deck []Record

// Validate reports ErrEmptyDeck for a deck without slides.
func (d Deck) Validate() error {
	if len(d) == 0 {
		return ErrEmptyDeck
	}
	return nil
}

// WithDefaultTitle returns r with its title replaced by fallback when blank.
func (r Record) WithDefaultTitle(fallback string) Record {
	if strings.TrimSpace(r.Title) == "" {
		r.Title = fallback
	}
	return r
}

// Tier identifies the step of the derivation chain that produced a deck.
type Tier string

const (
	TierJSONBracket    Tier = "json-bracket"
	TierJSONWhole      Tier = "json-whole"
	TierHeuristicLines Tier = "heuristic-lines"
	TierOverview       Tier = "overview"
	TierTextFallback   Tier = "text-fallback"
)
