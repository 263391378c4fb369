package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ivlev/redactshot/internal/config"
	"github.com/ivlev/redactshot/internal/detect"
	"github.com/ivlev/redactshot/internal/ocr"
	"github.com/ivlev/redactshot/internal/system"
)

var (
	// Version info injected via ldflags at build time
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	// Global flags
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string

	noEmails bool
	noPhones bool
	noURLs   bool
)

// resolvedVersion prefers the module version from build info over "dev".
func resolvedVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

var rootCmd = &cobra.Command{
	Use:   "redactshot",
	Short: "Find and black out emails, phone numbers and URLs in screenshots",
	Long: `redactshot recognizes the text in an image, flags lines that contain an
email address, a phone number or a URL, and writes a copy of the image with
the selected regions painted opaque black.

Text comes from Tesseract (build with -tags ocr) or from a YAML lines file
produced by any other OCR engine (--lines).`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd.ErrOrStderr())
		return nil
	},
}

func setupLogging(w io.Writer) {
	// Flags, REDACTSHOT_LOG_* and the config file all resolve through viper.
	level, err := zerolog.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Batch workers log concurrently.
	w = zerolog.SyncWriter(w)

	// stdout carries command output; logs always go to stderr.
	if viper.GetString("log_format") == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).
			With().
			Timestamp().
			Logger()
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./redactshot.yaml or ~/.redactshot/redactshot.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	pf.BoolVar(&noEmails, "no-emails", false, "do not detect email addresses")
	pf.BoolVar(&noPhones, "no-phones", false, "do not detect phone numbers")
	pf.BoolVar(&noURLs, "no-urls", false, "do not detect URLs")
	pf.String("recognizer", "", "text recognizer: tesseract or sidecar (default: sidecar when --lines is set)")
	pf.String("lines", "", "YAML file with recognized text lines")
	pf.String("lang", config.DefaultLanguage, "tesseract language, e.g. eng or eng+deu")
	pf.Int("workers", 0, "parallel workers for batch (default: derived from CPU and memory)")
	pf.Int("dpi", config.DefaultDPI, "resolution for rendering PDF pages")
	pf.String("input-dir", config.DefaultInputDir, "directory searched when no input is given")
	pf.String("output-dir", config.DefaultOutputDir, "directory for redacted images")

	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", pf.Lookup("log-format"))
	_ = viper.BindPFlag(config.KeyRecognizer, pf.Lookup("recognizer"))
	_ = viper.BindPFlag(config.KeyLinesFile, pf.Lookup("lines"))
	_ = viper.BindPFlag(config.KeyLanguage, pf.Lookup("lang"))
	_ = viper.BindPFlag(config.KeyWorkers, pf.Lookup("workers"))
	_ = viper.BindPFlag(config.KeyDPI, pf.Lookup("dpi"))
	_ = viper.BindPFlag(config.KeyInputDir, pf.Lookup("input-dir"))
	_ = viper.BindPFlag(config.KeyOutputDir, pf.Lookup("output-dir"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.redactshot")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("redactshot")
		viper.SetConfigType("yaml")
	}

	// REDACTSHOT_* values may also come from a .env file; real env wins.
	_ = godotenv.Load()
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("config_loaded")
	}
}

// loadConfig resolves the effective configuration. The --no-* flags can
// only turn a detector off, never back on.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if noEmails {
		cfg.Detectors.DetectEmails = false
	}
	if noPhones {
		cfg.Detectors.DetectPhoneNumbers = false
	}
	if noURLs {
		cfg.Detectors.DetectURLs = false
	}
	return cfg, nil
}

// newPipeline builds the detection pipeline for cfg. The returned func
// releases the recognizer.
func newPipeline(cfg *config.Config) (*detect.Pipeline, func(), error) {
	rec, err := ocr.NewRecognizer(cfg.Recognizer, ocr.Options{
		Language:    cfg.Language,
		SidecarPath: cfg.LinesFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating recognizer: %w", err)
	}
	release := func() {
		if c, ok := rec.(io.Closer); ok {
			_ = c.Close()
		}
	}
	return detect.NewPipeline(rec), release, nil
}

// inputPath returns the first argument, or the newest input in the
// configured input directory.
func inputPath(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	path, err := system.FindLatestInput(cfg.InputDir)
	if err != nil {
		return "", fmt.Errorf("no input given: %w", err)
	}
	log.Info().Str("input", path).Msg("using_latest_input")
	return path, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
