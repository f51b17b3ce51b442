package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subalign/internal/align"
	"subalign/internal/config"
	"subalign/internal/language"
	"subalign/internal/logging"
	"subalign/internal/ratelimit"
	"subalign/internal/scorecache"
	"subalign/internal/subtitle"
)

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var (
		inputPath     string
		referencePath string
		outputPath    string
		backendName   string
		modelName     string
		apiKey        string
		srcLang       string
		refLang       string
		threshold     float64
		window        int
		maxWindow     int
		batchSize     int
		concurrency   int
		budget        int
		timeoutSecs   int
		rateLimit     float64
		persistCache  bool
	)

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Retime a subtitle file against a reference track",
		Long: `Align retimes the input subtitle track so its cues match the timing of the
reference track. The two tracks may be in different languages; an AI backend
judges which cues correspond. For same-language material the offline lexical
backend needs no API key:

  subalign align -i movie.ja.srt -r movie.en.srt -o out.srt
  subalign align -i fansub.srt -r official.srt -o out.srt --backend lexical

Cue text is never modified; only timings change. On fatal errors no output
file is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			source, sourceFile, err := loadCueFile(inputPath, "input")
			if err != nil {
				return err
			}
			reference, referenceFile, err := loadCueFile(referencePath, "reference")
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

			if strings.TrimSpace(srcLang) == "" {
				srcLang = language.FromFileName(sourceFile)
			}
			if strings.TrimSpace(refLang) == "" {
				refLang = language.FromFileName(referenceFile)
			}

			flags := cmd.Flags()
			if flags.Changed("threshold") {
				cfg.Alignment.Threshold = threshold
			}
			if flags.Changed("window") {
				cfg.Alignment.Window = window
			}
			if flags.Changed("max-window") {
				cfg.Alignment.MaxWindow = maxWindow
			}
			if flags.Changed("batch-size") {
				cfg.Alignment.BatchSize = batchSize
			}
			if flags.Changed("concurrency") {
				cfg.Alignment.Concurrency = concurrency
			}
			if flags.Changed("budget") {
				cfg.Alignment.Budget = budget
			}
			if flags.Changed("timeout") {
				cfg.Alignment.CallTimeoutSeconds = timeoutSecs
			}
			if flags.Changed("rate-limit") {
				cfg.Alignment.RateLimitPerSec = rateLimit
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}

			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			scorer, scorerLabel, err := buildScorer(cfg, backendName, modelName, apiKey, srcLang, refLang, reference)
			if err != nil {
				return err
			}

			var store *scorecache.Store
			if cfg.Cache.Enabled || persistCache {
				store, err = scorecache.Open(cfg.Cache.Directory)
				if err != nil {
					logger.Warn("score cache unavailable, continuing without it",
						logging.Error(err),
						logging.String("directory", cfg.Cache.Directory))
					store = nil
				} else {
					defer store.Close()
				}
			}

			var limiter *ratelimit.KeyedLimiter
			if cfg.Alignment.RateLimitPerSec > 0 {
				limiter = ratelimit.New(cfg.Alignment.RateLimitPerSec, 1)
			}

			engine := align.New(scorer, align.Options{
				Threshold:   cfg.Alignment.Threshold,
				Window:      cfg.Alignment.Window,
				MaxWindow:   cfg.Alignment.MaxWindow,
				MatchBonus:  cfg.Alignment.MatchBonus,
				BatchSize:   cfg.Alignment.BatchSize,
				Concurrency: cfg.Alignment.Concurrency,
				Budget:      cfg.Alignment.Budget,
				CallTimeout: time.Duration(cfg.Alignment.CallTimeoutSeconds) * time.Second,
				Limiter:     limiter,
				Cache:       store,
				Logger:      logger,
			})

			result, err := engine.Align(cmd.Context(), source, reference)
			if err != nil {
				return fmt.Errorf("alignment failed: %w", err)
			}

			if err := subtitle.WriteSRTFile(output, result.Cues); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			printRunReport(cmd.OutOrStdout(), output, scorerLabel, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Subtitle file to retime (required)")
	cmd.Flags().StringVarP(&referencePath, "reference", "r", "", "Reference subtitle file with the desired timing (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the retimed subtitle file (required)")
	cmd.Flags().StringVar(&backendName, "backend", "", "Scoring backend: gemini, openai, grok, or lexical (default from config)")
	cmd.Flags().StringVar(&modelName, "model", "", "Override the backend model")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Override the backend API key")
	cmd.Flags().StringVar(&srcLang, "src-lang", "", "Input track language code, e.g. ja (default: inferred from filename)")
	cmd.Flags().StringVar(&refLang, "ref-lang", "", "Reference track language code, e.g. en (default: inferred from filename)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum correspondence score accepted as a match (0..1]")
	cmd.Flags().IntVar(&window, "window", 0, "Initial candidate window half-width on the reference axis")
	cmd.Flags().IntVar(&maxWindow, "max-window", 0, "Cap for adaptive window expansion")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Source cues grouped into one backend call")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Backend calls in flight at once")
	cmd.Flags().IntVar(&budget, "budget", 0, "Maximum backend calls per run (0 = unlimited)")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "Per-call timeout in seconds")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "Backend requests per second (0 = unlimited)")
	cmd.Flags().BoolVar(&persistCache, "persistent-cache", false, "Persist correspondence scores across runs even when disabled in config")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("reference")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func printRunReport(out io.Writer, outputPath, scorerLabel string, result *align.Result) {
	stats := result.Stats
	calls := strconv.Itoa(stats.Backend.BackendCalls)
	if stats.Backend.FailedCalls > 0 {
		calls = fmt.Sprintf("%d (%d failed)", stats.Backend.BackendCalls, stats.Backend.FailedCalls)
	}
	if stats.Backend.BudgetExhausted {
		calls += ", budget exhausted"
	}

	rows := [][]string{
		{"Backend", scorerLabel},
		{"Source cues", strconv.Itoa(stats.SourceCues)},
		{"Reference cues", strconv.Itoa(stats.ReferenceCues)},
		{"Matched", strconv.Itoa(stats.Matched)},
		{"Gaps", strconv.Itoa(stats.Gaps)},
		{"Repairs", strconv.Itoa(stats.Repairs)},
		{"Rounds", strconv.Itoa(stats.Rounds)},
		{"Backend calls", calls},
		{"Cache hits", strconv.Itoa(stats.Backend.CacheHits)},
		{"Tokens", strconv.FormatInt(stats.Backend.Usage.Total(), 10)},
		{"Elapsed", stats.Elapsed.Round(time.Millisecond).String()},
	}
	fmt.Fprintln(out, renderTable([]string{"Run", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(out, "Wrote %s\n", outputPath)
}
