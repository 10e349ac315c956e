package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"textdeck/slides"
)

const (
	defaultSlideTitle = "No Title"
	overviewTitle     = "Content Overview"
	overviewMaxRunes  = 200
	ellipsis          = "..."
)

// parseStep is one fallible tier of the response parsing chain. parsed
// reports whether the step recognised its format at all, even when that
// yielded no records.
type parseStep struct {
	tier  slides.Tier
	parse func(raw string) (deck slides.Deck, parsed bool)
}

// ParseResponse turns a raw completion into a deck, trying in order: the
// bracketed JSON array, the whole response as a JSON object with a "slides"
// array, heuristic line reconstruction, and finally a single overview slide
// built from sourceText. JSON that parses but holds no slide objects goes
// straight to the overview slide. The returned tier names the step that
// succeeded.
func ParseResponse(raw, sourceText string) (slides.Deck, slides.Tier) {
	chain := []parseStep{
		{slides.TierJSONBracket, parseBracketedJSON},
		{slides.TierJSONWhole, parseWholeJSON},
		{slides.TierHeuristicLines, ReconstructFromLines},
	}
	for _, step := range chain {
		deck, parsed := step.parse(raw)
		if !parsed {
			continue
		}
		if len(deck) == 0 {
			break
		}
		return deck, step.tier
	}
	return OverviewDeck(sourceText), slides.TierOverview
}

// parseBracketedJSON parses the span from the first '[' to the last ']'.
func parseBracketedJSON(raw string) (slides.Deck, bool) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, false
	}
	return coerceRecords(items), true
}

// parseWholeJSON accepts an object with a "slides" array. A bare top-level
// array never reaches this step: the bracketed span already covers it.
func parseWholeJSON(raw string) (slides.Deck, bool) {
	var wrapper struct {
		Slides []json.RawMessage `json:"slides"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &wrapper); err != nil {
		return nil, false
	}
	return coerceRecords(wrapper.Slides), true
}

// coerceRecords maps every JSON object to a Record, tolerating a missing or
// oddly typed title or points. Non-object elements are skipped.
func coerceRecords(items []json.RawMessage) slides.Deck {
	deck := make(slides.Deck, 0, len(items))
	for _, item := range items {
		var fields map[string]interface{}
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		rec := slides.Record{
			Title:  stringify(fields["title"]),
			Points: coercePoints(fields["points"]),
		}
		deck = append(deck, rec.WithDefaultTitle(defaultSlideTitle))
	}
	return deck
}

func coercePoints(v interface{}) []string {
	points := []string{}
	switch typed := v.(type) {
	case []interface{}:
		for _, p := range typed {
			if s := strings.TrimSpace(stringify(p)); s != "" {
				points = append(points, s)
			}
		}
	case string:
		if s := strings.TrimSpace(typed); s != "" {
			points = append(points, s)
		}
	}
	return points
}

func stringify(v interface{}) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64, bool:
		return fmt.Sprint(typed)
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// OverviewDeck is the last resort: one slide carrying the text, cut to 200
// runes with an ellipsis when longer.
func OverviewDeck(text string) slides.Deck {
	return slides.Deck{{
		Title:  overviewTitle,
		Points: []string{truncateRunes(text, overviewMaxRunes)},
	}}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
