package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ivlev/redactshot/internal/engine"
	"github.com/ivlev/redactshot/internal/source"
)

var batchReports bool

var batchCmd = &cobra.Command{
	Use:   "batch [dir|pdf]",
	Short: "Redact every image in a directory or every page of a PDF",
	Long: `Redacts each image of a directory, or each rendered page of a PDF, in
parallel and writes <name>_redacted.png files to the output directory.
A page that fails is reported and the others are still written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		in := cfg.InputDir
		if len(args) > 0 {
			in = args[0]
		}

		src, err := source.Open(in)
		if err != nil {
			return fmt.Errorf("opening %s: %w", in, err)
		}
		defer src.Close()

		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}

		pipe, release, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer release()

		project := engine.NewProject(cfg, src, pipe)
		project.WriteReports = batchReports

		results, runErr := project.Run(cmd.Context())

		out := cmd.OutOrStdout()
		written := 0
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(out, "%s  %s: %v\n", color.RedString("FAIL"), r.Name, r.Err)
				continue
			}
			written++
			fmt.Fprintf(out, "%s    %s -> %s (%d/%d redacted)\n", color.GreenString("ok"), r.Name, r.Output, r.Active, r.Items)
		}
		fmt.Fprintf(out, "%d of %d pages written to %s\n", written, len(results), cfg.OutputDir)
		return runErr
	},
}

func init() {
	batchCmd.Flags().BoolVar(&batchReports, "reports", false, "write a YAML report next to every output image")
	rootCmd.AddCommand(batchCmd)
}
