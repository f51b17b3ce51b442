package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"subalign/internal/config"
	"subalign/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, backend, and cache health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printSection(out, "Configuration", colorize)
			configPath := ctx.configPath
			if !ctx.configExists {
				configPath = fmt.Sprintf("%s (not found, defaults in effect)", configPath)
			}
			printKV(out, "Config file", configPath)
			printKV(out, "Default backend", describeDefaultBackend(cfg))
			printKV(out, "Threshold", strconv.FormatFloat(cfg.Alignment.Threshold, 'g', -1, 64))
			printKV(out, "Window", fmt.Sprintf("%d (max %d)", cfg.Alignment.Window, cfg.Alignment.MaxWindow))
			printKV(out, "Batching", fmt.Sprintf("%d cues x %d workers", cfg.Alignment.BatchSize, cfg.Alignment.Concurrency))
			printKV(out, "Call budget", describeBudget(cfg.Alignment.Budget))
			if cfg.Cache.Enabled {
				printKV(out, "Score cache", fmt.Sprintf("enabled (%s)", cfg.Cache.Directory))
			} else {
				printKV(out, "Score cache", "disabled")
			}
			printKV(out, "Logging", fmt.Sprintf("%s / %s", cfg.Logging.Level, cfg.Logging.Format))

			fmt.Fprintln(out)
			printSection(out, "Preflight", colorize)
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusError
				if result.Passed {
					kind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			return nil
		},
	}
}

func printSection(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func printKV(out io.Writer, label, value string) {
	fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, label+":", value)
}

func describeDefaultBackend(cfg *config.Config) string {
	if cfg.Backends.Default == config.LexicalBackend {
		return "lexical (offline)"
	}
	resolved, err := cfg.ResolveBackend("")
	if err != nil {
		return cfg.Backends.Default
	}
	return fmt.Sprintf("%s (%s)", resolved.Name, resolved.Model)
}

func describeBudget(budget int) string {
	if budget <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d calls per run", budget)
}
