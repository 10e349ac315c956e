package agent

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"textdeck/slides"
)

const (
	maxShortTitleWords  = 6
	maxSentenceTitle    = 8
	maxContentSlides    = 10
	maxPointsPerSlide   = 5
	sentencesPerSection = 3

	fallbackDeckTitle = "Presentation Overview"
)

var (
	numberedMarker = regexp.MustCompile(`^\d+[.):]`)
	bulletPrefix   = regexp.MustCompile(`^[-*•]\s*`)
	numberPrefix   = regexp.MustCompile(`^\d+[.):]\s*`)
)

type lineKind int

const (
	lineIgnored lineKind = iota
	lineTitle
	lineBullet
)

// classifyLine decides whether a trimmed, non-blank line opens a slide or adds a point.
// Heading, bold and trailing-colon lines are titles even with a bullet marker;
// the short-line rule only applies to lines without one.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "#"):
		return lineTitle
	case len(line) >= 4 && strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**"):
		return lineTitle
	case strings.HasSuffix(line, ":"):
		return lineTitle
	case isBulletLine(line):
		return lineBullet
	case len(strings.Fields(line)) <= maxShortTitleWords:
		return lineTitle
	}
	return lineIgnored
}

func isBulletLine(line string) bool {
	return strings.HasPrefix(line, "-") ||
		strings.HasPrefix(line, "*") ||
		strings.HasPrefix(line, "•") ||
		numberedMarker.MatchString(line)
}

// cleanTitle strips heading, bold and colon punctuation, then any bullet or
// number marker left in front ("- Key facts:" becomes "Key facts").
func cleanTitle(line string) string {
	return cleanBullet(strings.Trim(line, "# *:"))
}

func cleanBullet(line string) string {
	point := bulletPrefix.ReplaceAllString(line, "")
	point = numberPrefix.ReplaceAllString(point, "")
	return strings.TrimSpace(point)
}

// ReconstructFromLines rebuilds slides from unstructured completion text.
// Bullets seen before the first title are dropped.
func ReconstructFromLines(content string) (slides.Deck, bool) {
	var deck slides.Deck
	var current *slides.Record

	for _, line := range strings.Split(normalizeNewlines(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch classifyLine(line) {
		case lineTitle:
			if current != nil {
				deck = append(deck, *current)
			}
			rec := slides.Record{Title: cleanTitle(line), Points: []string{}}.WithDefaultTitle(defaultSlideTitle)
			current = &rec
		case lineBullet:
			if current == nil {
				continue
			}
			if point := cleanBullet(line); point != "" {
				current.Points = append(current.Points, point)
			}
		}
	}

	if current != nil {
		deck = append(deck, *current)
	}
	return deck, len(deck) > 0
}

// TextFallbackDeck builds slides from the source text alone, used when the
// provider call fails. The first slide introduces the deck; each following
// slide covers one paragraph, at most ten of them.
func TextFallbackDeck(text, guidance string) slides.Deck {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) <= 1 {
		paragraphs = groupSentences(text, sentencesPerSection)
	}

	title := fallbackDeckTitle
	if g := strings.TrimSpace(guidance); g != "" {
		title = cases.Title(language.Und).String(g)
	}

	deck := slides.Deck{{
		Title:  title,
		Points: []string{"Based on provided content", "Generated automatically"},
	}}

	for i, para := range paragraphs {
		if i >= maxContentSlides {
			break
		}
		deck = append(deck, paragraphSlide(i+1, para))
	}
	return deck
}

func paragraphSlide(n int, para string) slides.Record {
	slideTitle := "Topic " + strconv.Itoa(n)
	firstSentence := strings.TrimSpace(strings.Split(para, ".")[0])
	if words := len(strings.Fields(firstSentence)); words > 0 && words <= maxSentenceTitle {
		slideTitle = firstSentence
	}

	points := []string{}
	for _, s := range strings.Split(para, ".") {
		if s = strings.TrimSpace(s); s != "" {
			points = append(points, s+".")
		}
		if len(points) == maxPointsPerSlide {
			break
		}
	}
	return slides.Record{Title: slideTitle, Points: points}
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(normalizeNewlines(text), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// groupSentences splits on '.' and joins every n sentences into one paragraph.
func groupSentences(text string, n int) []string {
	var sentences []string
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	var paragraphs []string
	var current strings.Builder
	for i, s := range sentences {
		current.WriteString(s)
		current.WriteString(". ")
		if (i+1)%n == 0 || i == len(sentences)-1 {
			paragraphs = append(paragraphs, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	return paragraphs
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
