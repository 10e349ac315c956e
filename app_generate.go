package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"textdeck/agent"
	"textdeck/slides"
	"textdeck/workspace"
)

const (
	pptxExtension  = ".pptx"
	templateSuffix = ".template"
)

// GenerateRequest is one text-to-deck job.
type GenerateRequest struct {
	Text     string
	Guidance string
	Provider string
	APIKey   string
	Filename string

	// Template is the optional uploaded template; nil means none.
	Template     io.Reader
	TemplateName string
}

// GenerateResult points at the rendered file inside the request's workspace.
// Release must be called once the file has been delivered.
type GenerateResult struct {
	Path       string
	Filename   string
	SlideCount int
	Tier       slides.Tier

	scope *workspace.Scope
}

// Release removes the workspace holding the file.
func (r *GenerateResult) Release() error {
	if r == nil || r.scope == nil {
		return nil
	}
	return r.scope.Release()
}

// SanitizeFilename replaces spaces with underscores and appends .pptx.
func SanitizeFilename(name string) string {
	return strings.ReplaceAll(name, " ", "_") + pptxExtension
}

// GeneratePresentation derives the slides and renders them into a fresh
// workspace. On error nothing is left on disk.
func (a *App) GeneratePresentation(ctx context.Context, req GenerateRequest) (result *GenerateResult, err error) {
	start := time.Now()
	log := a.zlog().With(zap.String("provider", req.Provider), zap.String("filename", req.Filename))

	if a.limiter != nil {
		if err := a.limiter.Acquire(ctx, 1); err != nil {
			return nil, WrapError("Generator", "Acquire", err)
		}
		defer a.limiter.Release(1)
	}

	scope, err := a.workspaces.Acquire(ctx)
	if err != nil {
		return nil, WrapError("Generator", "Workspace", err)
	}
	defer func() {
		if err != nil {
			scope.Release()
		}
	}()

	templatePath := ""
	if req.Template != nil {
		templatePath, err = saveTemplate(scope, req.TemplateName, req.Template)
		if err != nil {
			return nil, WrapError("Generator", "SaveTemplate", err)
		}
	}

	derived, err := a.deriver.Derive(ctx, agent.DeriveRequest{
		Text:     req.Text,
		Guidance: req.Guidance,
		Provider: req.Provider,
		APIKey:   req.APIKey,
	})
	if err != nil {
		return nil, WrapError("Generator", "Derive", err)
	}
	if err := derived.Deck.Validate(); err != nil {
		return nil, WrapError("Generator", "Derive", fmt.Errorf("failed to generate slide content: %w", err))
	}

	filename := SanitizeFilename(req.Filename)
	outPath, err := a.renderer.Render(ctx, derived.Deck, scope.Join(filename), templatePath)
	if err != nil {
		return nil, WrapError("Generator", "Render", err)
	}

	log.Info("presentation generated",
		zap.String("tier", string(derived.Tier)),
		zap.Int("slides", len(derived.Deck)),
		zap.Bool("template", templatePath != ""),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResult{
		Path:       outPath,
		Filename:   filename,
		SlideCount: len(derived.Deck),
		Tier:       derived.Tier,
		scope:      scope,
	}, nil
}

// saveTemplate copies the upload into the scope. Output names always end in
// .pptx, so the suffix keeps the two apart.
func saveTemplate(scope *workspace.Scope, name string, src io.Reader) (string, error) {
	if name == "" {
		name = "template" + pptxExtension
	}
	path := scope.Join(filepath.Base(name) + templateSuffix)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to store template: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// isClientError reports precondition failures caused by the request itself.
func isClientError(err error) bool {
	return errors.Is(err, agent.ErrMissingCredential) ||
		errors.Is(err, agent.ErrUnsupportedProvider) ||
		errors.Is(err, agent.ErrEmptyInput)
}
