package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"textdeck/slides"
)

// DeriveRequest carries the user input for one deck.
type DeriveRequest struct {
	Text     string
	Guidance string
	Provider string
	APIKey   string
}

// DeriveResult is the derived deck plus the tier that produced it.
type DeriveResult struct {
	Deck slides.Deck
	Tier slides.Tier
}

// SlideDeriver turns free text into slides with one LLM call and a chain of
// fallbacks. Only precondition failures and cancellation are returned as errors.
type SlideDeriver struct {
	providers *ProviderSet
	logger    *zap.Logger
}

// NewSlideDeriver creates a deriver over the given provider strategies.
func NewSlideDeriver(providers *ProviderSet, logger *zap.Logger) *SlideDeriver {
	return &SlideDeriver{providers: providers, logger: logger}
}

// Providers returns the supported provider names.
func (d *SlideDeriver) Providers() []string {
	return d.providers.Names()
}

// Derive produces a non-empty deck for req.
//
// A failed provider call degrades to the text fallback built from req.Text;
// an unparseable completion degrades through the parse chain. Neither is
// reported to the caller.
func (d *SlideDeriver) Derive(ctx context.Context, req DeriveRequest) (DeriveResult, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return DeriveResult{}, ErrMissingCredential
	}
	provider, err := d.providers.Lookup(req.Provider)
	if err != nil {
		return DeriveResult{}, fmt.Errorf("%w (supported: %s)", err, strings.Join(d.Providers(), ", "))
	}
	if strings.TrimSpace(req.Text) == "" {
		return DeriveResult{}, ErrEmptyInput
	}

	prompt := BuildSlidePrompt(req.Text, req.Guidance)

	start := time.Now()
	raw, err := provider.Complete(ctx, prompt, req.APIKey)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return DeriveResult{}, ctxErr
		}
		d.logger.Warn("Error calling LLM API, using fallback text analysis",
			zap.String("provider", provider.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return DeriveResult{Deck: TextFallbackDeck(req.Text, req.Guidance), Tier: slides.TierTextFallback}, nil
	}

	deck, tier := ParseResponse(raw, req.Text)
	if tier != slides.TierJSONBracket && tier != slides.TierJSONWhole {
		d.logger.Warn("Failed to parse JSON response, used degraded parsing",
			zap.String("provider", provider.Name()),
			zap.String("tier", string(tier)),
			zap.Int("raw_chars", len(raw)))
	}
	d.logger.Info("slide content derived",
		zap.String("provider", provider.Name()),
		zap.String("tier", string(tier)),
		zap.Int("slides", len(deck)),
		zap.Duration("elapsed", time.Since(start)))
	return DeriveResult{Deck: deck, Tier: tier}, nil
}
