package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"subalign/internal/subtitle"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "inspect <file.srt>...",
		Short:       "Show cue counts, time spans, and invariant violations",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			type report struct {
				path   string
				issues []string
			}
			var reports []report
			var rows [][]string
			broken := 0

			for _, arg := range args {
				cues, path, err := loadCueFile(arg, "subtitle")
				if err != nil {
					return err
				}
				span := "-"
				if len(cues) > 0 {
					span = fmt.Sprintf("%s - %s",
						subtitle.FormatTimestamp(cues[0].Start),
						subtitle.FormatTimestamp(cues[len(cues)-1].End))
				}
				issues := subtitle.Issues(cues)
				if len(issues) > 0 {
					broken++
				}
				rows = append(rows, []string{
					filepath.Base(path),
					strconv.Itoa(len(cues)),
					span,
					strconv.Itoa(len(issues)),
				})
				reports = append(reports, report{path: path, issues: issues})
			}

			fmt.Fprintln(out, renderTable(
				[]string{"File", "Cues", "Span", "Issues"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight},
			))

			for _, r := range reports {
				if len(r.issues) == 0 {
					continue
				}
				fmt.Fprintf(out, "\n%s:\n", r.path)
				for _, issue := range r.issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}

			if broken > 0 {
				return fmt.Errorf("%d of %d files violate cue invariants", broken, len(args))
			}
			return nil
		},
	}
}
