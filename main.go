package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"textdeck/config"
	"textdeck/export"
	"textdeck/logger"
)

var (
	// Global flags
	configPath string
	logLevel   string

	// serve
	listenAddr string

	// generate
	inputPath    string
	outputPath   string
	providerName string
	apiKey       string
	guidance     string
	templatePath string
)

var rootCmd = &cobra.Command{
	Use:   "textdeck",
	Short: "Turn plain text into PowerPoint decks",
	Long: `textdeck asks an LLM to structure free text into slides and renders them
as a .pptx file, optionally on top of a template's layouts.

Run "textdeck serve" to expose the HTTP API or "textdeck generate" for a
one-off conversion.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a presentation from a text file",
	Long: `Reads text from --input (or stdin with "-"), derives slides with the chosen
provider and writes the deck to --output.

Example:
  textdeck generate --input notes.txt --provider openai --output notes.pptx`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [file.pptx]",
	Short: "Print the slides of a presentation as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./"+config.DefaultConfigFilename+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address host:port (overrides config)")

	generateCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Text file to convert, - for stdin (required)")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination .pptx (required)")
	generateCmd.Flags().StringVarP(&providerName, "provider", "p", "openai", "LLM provider: openai, anthropic or gemini")
	generateCmd.Flags().StringVar(&apiKey, "api-key", "", "Provider API key (or set TEXTDECK_API_KEY env)")
	generateCmd.Flags().StringVarP(&guidance, "guidance", "g", "", "Extra instructions for the model")
	generateCmd.Flags().StringVarP(&templatePath, "template", "t", "", "Template .pptx whose layouts are used")
	_ = generateCmd.MarkFlagRequired("input")
	_ = generateCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(serveCmd, generateCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadRuntime reads the configuration and builds the logger for a command.
func loadRuntime() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	l, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Log.Dir != "" {
		if err := l.Init(cfg.Log.Dir); err != nil {
			return nil, nil, err
		}
	}
	return cfg, l, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, l, err := loadRuntime()
	if err != nil {
		return err
	}
	defer l.Close()

	ctx, stop := signalContext()
	defer stop()

	app := NewApp(cfg, l)
	server := NewServer(app, listenAddr)
	if err := app.startup(ctx, server); err != nil {
		app.shutdown()
		return err
	}
	defer app.shutdown()

	select {
	case <-ctx.Done():
		l.Log("Received shutdown signal")
		return nil
	case err := <-server.Done():
		if err != nil {
			l.Zap().Error("server stopped", zap.Error(err))
		}
		return err
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	key := apiKey
	if key == "" {
		key = os.Getenv("TEXTDECK_API_KEY")
	}

	text, err := readInput(cmd.InOrStdin(), inputPath)
	if err != nil {
		return err
	}

	cfg, l, err := loadRuntime()
	if err != nil {
		return err
	}
	defer l.Close()

	ctx, stop := signalContext()
	defer stop()

	app := NewApp(cfg, l)
	if err := app.startup(ctx); err != nil {
		app.shutdown()
		return err
	}
	defer app.shutdown()

	req := GenerateRequest{
		Text:     text,
		Guidance: guidance,
		Provider: providerName,
		APIKey:   key,
		Filename: strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath)),
	}
	if templatePath != "" {
		f, err := os.Open(templatePath)
		if err != nil {
			return fmt.Errorf("failed to open template: %w", err)
		}
		defer f.Close()
		req.Template = f
		req.TemplateName = filepath.Base(templatePath)
	}

	result, err := app.GeneratePresentation(ctx, req)
	if err != nil {
		return err
	}
	defer result.Release()

	if err := copyFile(result.Path, outputPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d slides to %s (%s)\n", result.SlideCount, outputPath, result.Tier)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	deck, err := export.ReadDeck(args[0])
	if err != nil {
		return err
	}
	count, err := export.CountSlides(args[0])
	if err != nil {
		return err
	}

	out := struct {
		SlideCount int         `json:"slide_count"`
		Slides     interface{} `json:"slides"`
	}{SlideCount: count, Slides: deck}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readInput(stdin io.Reader, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("input is empty")
	}
	return string(data), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
