package export

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"textdeck/slides"
)

// Renderer writes a deck to a .pptx file, from a template when one is given.
type Renderer struct {
	goppt  *GoPPTService
	logger *zap.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{goppt: NewGoPPTService(), logger: logger}
}

// Render writes one slide per record to outputPath and returns outputPath.
// With an empty templatePath the deck is composed on the built-in
// Title and Content design. Failures are *RenderError values wrapping
// ErrTemplate or ErrOutput.
func (r *Renderer) Render(ctx context.Context, deck slides.Deck, outputPath, templatePath string) (string, error) {
	if err := deck.Validate(); err != nil {
		return "", &RenderError{Op: "deck", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	start := time.Now()
	var err error
	if templatePath == "" {
		err = r.renderBlank(deck, outputPath)
	} else {
		err = r.renderTemplate(deck, outputPath, templatePath)
	}
	if err != nil {
		return "", err
	}

	r.logger.Info("presentation rendered",
		zap.String("output", outputPath),
		zap.Bool("template", templatePath != ""),
		zap.Int("slides", len(deck)),
		zap.Duration("elapsed", time.Since(start)))
	return outputPath, nil
}

func (r *Renderer) renderBlank(deck slides.Deck, outputPath string) error {
	data, err := r.goppt.BuildDeck(deck)
	if err != nil {
		return outputError(outputPath, err)
	}
	if err := writeFileAtomic(outputPath, data); err != nil {
		return outputError(outputPath, err)
	}
	return nil
}

func (r *Renderer) renderTemplate(deck slides.Deck, outputPath, templatePath string) error {
	tp, err := OpenTemplate(templatePath)
	if err != nil {
		return templateError(templatePath, err)
	}
	layout, err := tp.SelectLayout()
	if err != nil {
		return templateError(templatePath, err)
	}
	if !layout.Qualifies() {
		r.logger.Warn("no layout with title and body placeholders, using fallback layout",
			zap.Int("layout_index", layout.Index),
			zap.String("layout", layout.Name))
	}

	skipped := 0
	for _, rec := range deck {
		if hasBody := tp.AddSlide(layout, rec); !hasBody && len(rec.Points) > 0 {
			skipped++
		}
	}
	if skipped > 0 {
		r.logger.Warn("layout has no body placeholder, slide points were not written",
			zap.String("layout", layout.Name),
			zap.Int("slides", skipped))
	}

	if err := tp.Save(outputPath); err != nil {
		if errors.Is(err, ErrOutput) {
			return &RenderError{Op: "output", Path: outputPath, Err: err}
		}
		return &RenderError{Op: "template", Path: templatePath, Err: err}
	}
	return nil
}
