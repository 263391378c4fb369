package cmd

import (
	"fmt"
	"image"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/redactshot/internal/export"
	"github.com/ivlev/redactshot/internal/geometry"
	"github.com/ivlev/redactshot/internal/redact"
	"github.com/ivlev/redactshot/internal/system"
)

var previewOutput string

var previewCmd = &cobra.Command{
	Use:   "preview [image]",
	Short: "Write a scaled copy of an image with the regions to redact outlined",
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

		img := s.Original()
		b := img.Bounds()
		var rects []image.Rectangle
		for _, it := range s.ActiveItems() {
			rects = append(rects, geometry.ToPixelRect(it.Box, b.Dx(), b.Dy()))
		}

		dst := previewOutput
		if dst == "" {
			dst = system.OutputPath(cfg.OutputDir, path, "preview", time.Now())
		}
		if err := export.SavePNG(dst, redact.Preview(img, rects, cfg.PreviewSize)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Preview with %d regions: %s\n", len(rects), dst)
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVarP(&previewOutput, "output", "o", "", "output PNG (default: <output-dir>/<name>_preview_<time>.png)")
	rootCmd.AddCommand(previewCmd)
}
