package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivlev/redactshot/internal/export"
	"github.com/ivlev/redactshot/internal/system"
)

var (
	redactOutput    string
	redactSelection string
	redactReport    string
)

var redactCmd = &cobra.Command{
	Use:   "redact [image]",
	Short: "Write a copy of an image with sensitive items blacked out",
	Long: `Detects sensitive items and writes a PNG of the same size with every
selected item covered by an opaque black box.

Pass --selection with a report written by "detect --report" to choose which
items are redacted: set "selected: false" on the items to keep visible.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, err := inputPath(args, cfg)
		if err != nil {
			return err
		}

		s, err := detectFile(cmd.Context(), cfg, path)
		if err != nil {
			return err
		}
		defer s.Close()

		if redactSelection != "" {
			report, err := export.ReadReport(redactSelection)
			if err != nil {
				return err
			}
			n := export.ApplySelection(report, s, s.Items())
			log.Info().Str("selection", redactSelection).Int("applied", n).Msg("selection_applied")
		}

		out, err := s.Render()
		if err != nil {
			return err
		}

		dst := redactOutput
		if dst == "" {
			dst = system.OutputPath(cfg.OutputDir, path, "redacted", time.Now())
		}
		if err := export.SavePNG(dst, out); err != nil {
			return err
		}

		if redactReport != "" {
			if err := writeReport(redactReport, path, s); err != nil {
				return err
			}
		}

		log.Info().
			Int("items", len(s.Items())).
			Int("redacted", len(s.ActiveItems())).
			Str("output", dst).
			Msg("redaction_saved")
		fmt.Fprintf(cmd.OutOrStdout(), "Redacted %d of %d items: %s\n", len(s.ActiveItems()), len(s.Items()), dst)
		return nil
	},
}

func init() {
	redactCmd.Flags().StringVarP(&redactOutput, "output", "o", "", "output PNG (default: <output-dir>/<name>_redacted_<time>.png)")
	redactCmd.Flags().StringVar(&redactSelection, "selection", "", "report whose selected flags choose the items to redact")
	redactCmd.Flags().StringVar(&redactReport, "report", "", "also write the items to a YAML report")
	rootCmd.AddCommand(redactCmd)
}
