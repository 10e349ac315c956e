package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"textdeck/slides"
)

type stubProvider struct {
	name    string
	reply   string
	err     error
	calls   int
	prompts []string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Complete(ctx context.Context, prompt, apiKey string) (string, error) {
	p.calls++
	p.prompts = append(p.prompts, prompt)
	return p.reply, p.err
}

func newTestDeriver(providers ...Provider) *SlideDeriver {
	return NewSlideDeriver(NewProviderSet(providers...), zap.NewNop())
}

func TestDerive_MissingCredentialNeverCallsProvider(t *testing.T) {
	stub := &stubProvider{name: ProviderOpenAI, reply: "[]"}
	d := newTestDeriver(stub)

	for _, key := range []string{"", "   "} {
		_, err := d.Derive(context.Background(), DeriveRequest{Text: "hello", Provider: "openai", APIKey: key})
		assert.ErrorIs(t, err, ErrMissingCredential)
	}
	assert.Zero(t, stub.calls)
}

func TestDerive_UnsupportedProvider(t *testing.T) {
	d := newTestDeriver(&stubProvider{name: ProviderOpenAI})

	_, err := d.Derive(context.Background(), DeriveRequest{Text: "hello", Provider: "mistral", APIKey: "k"})

	assert.ErrorIs(t, err, ErrUnsupportedProvider)
	assert.Contains(t, err.Error(), "mistral")
	assert.Contains(t, err.Error(), "(supported: openai)")
}

func TestDerive_UnsupportedProviderListsSupportedNames(t *testing.T) {
	d := newTestDeriver(
		&stubProvider{name: ProviderOpenAI},
		&stubProvider{name: ProviderGemini},
		&stubProvider{name: ProviderAnthropic},
	)

	assert.Equal(t, []string{"anthropic", "gemini", "openai"}, d.Providers())

	_, err := d.Derive(context.Background(), DeriveRequest{Text: "hello", Provider: "llama", APIKey: "k"})
	require.ErrorIs(t, err, ErrUnsupportedProvider)
	assert.Equal(t, "unsupported LLM provider: llama (supported: anthropic, gemini, openai)", err.Error())
}

func TestDerive_EmptyInput(t *testing.T) {
	d := newTestDeriver(&stubProvider{name: ProviderOpenAI})

	_, err := d.Derive(context.Background(), DeriveRequest{Text: " \n ", Provider: "openai", APIKey: "k"})

	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestDerive_ProviderNameIsCaseInsensitive(t *testing.T) {
	stub := &stubProvider{name: ProviderGemini, reply: `[{"title":"A","points":["x"]}]`}
	d := newTestDeriver(stub)

	res, err := d.Derive(context.Background(), DeriveRequest{Text: "t", Provider: " Gemini ", APIKey: "k"})

	require.NoError(t, err)
	assert.Equal(t, slides.TierJSONBracket, res.Tier)
	assert.Equal(t, 1, stub.calls)
}

func TestDerive_PromptCarriesTextAndGuidance(t *testing.T) {
	stub := &stubProvider{name: ProviderAnthropic, reply: `[{"title":"A","points":[]}]`}
	d := newTestDeriver(stub)

	_, err := d.Derive(context.Background(), DeriveRequest{
		Text: "quarterly numbers", Guidance: "for executives", Provider: "anthropic", APIKey: "k",
	})

	require.NoError(t, err)
	require.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], "quarterly numbers")
	assert.Contains(t, stub.prompts[0], "Additional guidance: for executives")
}

func TestDerive_ProviderFailureUsesTextFallback(t *testing.T) {
	stub := &stubProvider{name: ProviderOpenAI, err: errors.New("401 unauthorized")}
	d := newTestDeriver(stub)

	res, err := d.Derive(context.Background(), DeriveRequest{
		Text: "Sentence one. Sentence two. Sentence three. Sentence four.", Provider: "openai", APIKey: "bad",
	})

	require.NoError(t, err)
	assert.Equal(t, slides.TierTextFallback, res.Tier)
	assert.Len(t, res.Deck, 3)
}

func TestDerive_CancelledContextIsReturned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub := &stubProvider{name: ProviderOpenAI, err: context.Canceled}
	d := newTestDeriver(stub)

	_, err := d.Derive(ctx, DeriveRequest{Text: "t", Provider: "openai", APIKey: "k"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDerive_AlwaysNonEmptyWithTitles(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[A-Za-z .\n-]{0,200}`).Draw(t, "text")
		if strings.TrimSpace(text) == "" {
			text = "x"
		}
		reply := rapid.StringMatching(`[A-Za-z#*:\-\[\]{}" .\n0-9]{0,200}`).Draw(t, "reply")
		fail := rapid.Bool().Draw(t, "fail")

		stub := &stubProvider{name: ProviderOpenAI, reply: reply}
		if fail {
			stub.err = errors.New("network down")
		}
		d := newTestDeriver(stub)

		res, err := d.Derive(context.Background(), DeriveRequest{Text: text, Provider: "openai", APIKey: "k"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Deck) == 0 {
			t.Fatalf("empty deck for text %q reply %q", text, reply)
		}
		for i, rec := range res.Deck {
			if strings.TrimSpace(rec.Title) == "" {
				t.Fatalf("slide %d has a blank title (tier %s)", i, res.Tier)
			}
		}
	})
}
