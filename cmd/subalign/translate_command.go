package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subalign/internal/config"
	"subalign/internal/language"
	"subalign/internal/subtitle"
	"subalign/internal/translate"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var (
		outputPath   string
		srcLang      string
		dstLang      string
		backendName  string
		modelName    string
		apiKey       string
		chunkSize    int
		instructions string
	)

	cmd := &cobra.Command{
		Use:   "translate <input.srt>",
		Short: "Translate subtitle text while keeping every timing",
		Long: `Translate rewrites each cue's text into the target language through an AI
backend. Cue indices and timings never change, so the output stays in sync
with whatever the input was synced to:

  subalign translate movie.ja.srt -o movie.en.srt -s ja -d en`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("provide the subtitle file to translate. Example: subalign translate movie.srt -o out.srt -d en")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			cues, sourceFile, err := loadCueFile(args[0], "input")
			if err != nil {
				return err
			}
			output := strings.TrimSpace(outputPath)
			if output == "" {
				return errors.New("output path is required")
			}
			output, err = config.ExpandPath(output)
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return fmt.Errorf("ensure output directory: %w", err)
			}
			if strings.TrimSpace(dstLang) == "" {
				return errors.New("target language is required (-d)")
			}
			if strings.TrimSpace(srcLang) == "" {
				srcLang = language.FromFileName(sourceFile)
			}

			name := resolveBackendName(cfg, backendName)
			if name == config.LexicalBackend {
				return errors.New("the lexical backend cannot translate; pick an AI backend (gemini, openai, grok)")
			}

			if cmd.Flags().Changed("chunk-size") {
				cfg.Translate.ChunkSize = chunkSize
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}

			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			client, err := buildBackendClient(cfg, name, modelName, apiKey)
			if err != nil {
				return err
			}

			translator := translate.New(client, translate.Options{
				ChunkSize:    cfg.Translate.ChunkSize,
				Instructions: instructions,
				Logger:       logger,
			})

			started := time.Now()
			translated, stats, err := translator.Translate(cmd.Context(), cues, languageLabel(srcLang), languageLabel(dstLang))
			if err != nil {
				return fmt.Errorf("translation failed: %w", err)
			}

			if err := subtitle.WriteSRTFile(output, translated); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Backend", fmt.Sprintf("%s/%s", client.Name(), client.Model())},
				{"Cues", strconv.Itoa(stats.Cues)},
				{"Translated", strconv.Itoa(stats.Translated)},
				{"Skipped", strconv.Itoa(stats.Skipped)},
				{"Requests", strconv.Itoa(stats.Chunks)},
				{"Tokens", strconv.FormatInt(stats.Usage.Total(), 10)},
				{"Elapsed", time.Since(started).Round(time.Millisecond).String()},
			}
			fmt.Fprintln(out, renderTable([]string{"Run", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			fmt.Fprintf(out, "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the translated subtitle file (required)")
	cmd.Flags().StringVarP(&srcLang, "src-lang", "s", "", "Source language code (default: inferred from filename)")
	cmd.Flags().StringVarP(&dstLang, "dst-lang", "d", "", "Target language code (required)")
	cmd.Flags().StringVar(&backendName, "backend", "", "AI backend: gemini, openai, or grok (default from config)")
	cmd.Flags().StringVar(&modelName, "model", "", "Override the backend model")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Override the backend API key")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Cues per translation request")
	cmd.Flags().StringVar(&instructions, "instructions", "", "Extra instructions appended to the translation prompt")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("dst-lang")

	return cmd
}
