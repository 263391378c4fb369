package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivlev/redactshot/internal/config"
	"github.com/ivlev/redactshot/internal/engine"
	"github.com/ivlev/redactshot/internal/session"
	"github.com/ivlev/redactshot/internal/source"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Redact images as they are written to a directory",
	Long: `Watches a directory and redacts every image created or rewritten in it
once the file has been quiet for --settle. Results go to the output directory
as <name>_redacted.png. Stops on interrupt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir := cfg.InputDir
		if len(args) > 0 {
			dir = args[0]
		}

		pipe, release, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer release()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}

		log.Info().Str("dir", dir).Str("output_dir", cfg.OutputDir).Dur("settle", watchSettle).Msg("watch_started")
		return watchLoop(cmd.Context(), watcher, cfg, pipe, cmd.OutOrStdout())
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 500*time.Millisecond, "quiet period before a changed file is redacted")
	rootCmd.AddCommand(watchCmd)
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, cfg *config.Config, det session.Detector, out io.Writer) error {
	outDir, _ := filepath.Abs(cfg.OutputDir)
	pending := make(map[string]time.Time)

	tick := time.NewTicker(max(watchSettle/2, 10*time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !watchable(event.Name, outDir) {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch_error")

		case now := <-tick.C:
			for path, changed := range pending {
				if now.Sub(changed) < watchSettle {
					continue
				}
				delete(pending, path)
				redactOne(ctx, cfg, det, path, out)
			}
		}
	}
}

// watchable skips non-images and anything this tool wrote itself.
func watchable(path, outDir string) bool {
	if !source.IsImagePath(path) {
		return false
	}
	if strings.HasSuffix(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), "_redacted") {
		return false
	}
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil && abs == outDir {
		return false
	}
	return true
}

func redactOne(ctx context.Context, cfg *config.Config, det session.Detector, path string, out io.Writer) {
	src, err := source.NewImageSource(path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("watch_open_failed")
		return
	}
	defer src.Close()

	results, err := engine.NewProject(cfg, src, det).Run(ctx)
	if err != nil {
		fmt.Fprintf(out, "%s  %s: %v\n", color.RedString("FAIL"), filepath.Base(path), err)
		return
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s  %s -> %s (%d/%d redacted)\n", color.GreenString("ok"), r.Name, r.Output, r.Active, r.Items)
	}
}
