package agent

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingCredential is returned before any network call when no API key was supplied.
	ErrMissingCredential = errors.New("API key is required")
	// ErrUnsupportedProvider is returned for provider names outside the known set.
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
	// ErrEmptyInput is returned when there is no text to turn into slides.
	ErrEmptyInput = errors.New("text content is empty")
	// ErrEmptyCompletion is returned by providers that answered without any text.
	ErrEmptyCompletion = errors.New("provider returned an empty completion")
)

// improveProviderError rewrites common vendor failures into messages an
// operator can act on. The original error stays in the chain.
func improveProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "401") || strings.Contains(strings.ToLower(errStr), "invalid api key") || strings.Contains(errStr, "UNAUTHENTICATED"):
		return fmt.Errorf("%s authentication failed (401), check the API key: %w", provider, err)
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "RESOURCE_EXHAUSTED"):
		return fmt.Errorf("%s rate limit or quota exceeded (429): %w", provider, err)
	case strings.Contains(errStr, "503") || strings.Contains(errStr, "overloaded") || strings.Contains(errStr, "UNAVAILABLE"):
		return fmt.Errorf("%s is temporarily unavailable: %w", provider, err)
	case strings.Contains(errStr, "404"):
		return fmt.Errorf("%s model not found (404), verify the model name: %w", provider, err)
	}
	return fmt.Errorf("%s API error: %w", provider, err)
}
