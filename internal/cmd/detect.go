package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivlev/redactshot/internal/config"
	"github.com/ivlev/redactshot/internal/export"
	"github.com/ivlev/redactshot/internal/model"
	"github.com/ivlev/redactshot/internal/session"
	"github.com/ivlev/redactshot/internal/source"
)

var detectReport string

var detectCmd = &cobra.Command{
	Use:   "detect [image]",
	Short: "List the sensitive items found in an image",
	Args:  cobra.MaximumNArgs(1),
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

		renderItems(cmd.OutOrStdout(), s.Items(), s.Config())

		if detectReport != "" {
			if err := writeReport(detectReport, path, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", detectReport)
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectReport, "report", "", "write the detected items to a YAML report")
	rootCmd.AddCommand(detectCmd)
}

// detectFile decodes path and waits for detection to finish on it.
// The caller closes the returned session.
func detectFile(ctx context.Context, cfg *config.Config, path string) (*session.Session, error) {
	if source.IsPDFPath(path) {
		return nil, fmt.Errorf("%s: use batch for PDF documents", path)
	}

	img, format, err := source.DecodeFile(path)
	if err != nil {
		return nil, err
	}

	pipe, release, err := newPipeline(cfg)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	s := session.New(pipe, cfg.Detectors)
	s.Load(img)
	if err := s.Wait(ctx); err != nil {
		s.Close()
		return nil, err
	}

	log.Info().
		Str("input", path).
		Str("format", format).
		Str("detectors", cfg.Detectors.String()).
		Int("items", len(s.Items())).
		Dur("elapsed", time.Since(start)).
		Msg("detection_finished")
	return s, nil
}

func writeReport(path, input string, s *session.Session) error {
	b := s.Original().Bounds()
	r := &export.Report{
		Source:    input,
		CreatedAt: time.Now().UTC(),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Detectors: s.Config(),
		Items:     s.Items(),
	}
	return export.WriteReport(r, path)
}

func renderItems(w io.Writer, items []model.SensitiveItem, cfg model.DetectorConfig) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No sensitive items found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTYPE\tREDACT\tBOX (x, y, w, h)\tTEXT\tID")
	for i, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f, %.3f, %.3f, %.3f\t%s\t%s\n",
			i+1, it.Type, redactState(it, cfg),
			it.Box.X, it.Box.Y, it.Box.W, it.Box.H,
			it.Text, it.ID)
	}
	_ = tw.Flush()
}

func redactState(it model.SensitiveItem, cfg model.DetectorConfig) string {
	switch {
	case !cfg.Enabled(it.Type):
		return "off"
	case !it.Selected:
		return "no"
	default:
		return "yes"
	}
}
