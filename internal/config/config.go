// Package config resolves redactshot settings from flags, REDACTSHOT_*
// environment variables and an optional redactshot.yaml file.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/ivlev/redactshot/internal/model"
	"github.com/ivlev/redactshot/internal/system"
)

// Viper keys. Each maps to a REDACTSHOT_ env var and a YAML field.
const (
	KeyDetectEmails = "detect_emails"
	KeyDetectPhones = "detect_phone_numbers"
	KeyDetectURLs   = "detect_urls"
	KeyRecognizer   = "recognizer"
	KeyLanguage     = "language"
	KeyLinesFile    = "lines_file"
	KeyWorkers      = "workers"
	KeyDPI          = "dpi"
	KeyInputDir     = "input_dir"
	KeyOutputDir    = "output_dir"
	KeyPreviewSize  = "preview_size"
)

const (
	EnvPrefix         = "REDACTSHOT"
	DefaultRecognizer = "tesseract"
	DefaultLanguage   = "eng"
	DefaultDPI        = 150
	DefaultInputDir   = "input"
	DefaultOutputDir  = "output"
	DefaultPreview    = 1200
)

type Config struct {
	Detectors   model.DetectorConfig
	Recognizer  string
	Language    string
	LinesFile   string
	Workers     int
	DPI         int
	InputDir    string
	OutputDir   string
	PreviewSize int
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDetectEmails, true)
	v.SetDefault(KeyDetectPhones, true)
	v.SetDefault(KeyDetectURLs, true)
	v.SetDefault(KeyLanguage, DefaultLanguage)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyDPI, DefaultDPI)
	v.SetDefault(KeyInputDir, DefaultInputDir)
	v.SetDefault(KeyOutputDir, DefaultOutputDir)
	v.SetDefault(KeyPreviewSize, DefaultPreview)
}

// Load reads v and returns a validated Config. Without an explicit
// recognizer a lines file selects the sidecar recognizer, otherwise
// tesseract is used.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Detectors: model.DetectorConfig{
			DetectEmails:       v.GetBool(KeyDetectEmails),
			DetectPhoneNumbers: v.GetBool(KeyDetectPhones),
			DetectURLs:         v.GetBool(KeyDetectURLs),
		},
		Recognizer:  v.GetString(KeyRecognizer),
		Language:    v.GetString(KeyLanguage),
		LinesFile:   v.GetString(KeyLinesFile),
		Workers:     v.GetInt(KeyWorkers),
		DPI:         v.GetInt(KeyDPI),
		InputDir:    v.GetString(KeyInputDir),
		OutputDir:   v.GetString(KeyOutputDir),
		PreviewSize: v.GetInt(KeyPreviewSize),
	}

	if cfg.Recognizer == "" {
		cfg.Recognizer = DefaultRecognizer
		if cfg.LinesFile != "" {
			cfg.Recognizer = "sidecar"
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = system.DefaultWorkers()
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Recognizer {
	case "tesseract":
	case "sidecar":
		if c.LinesFile == "" {
			return fmt.Errorf("recognizer %q needs %s", c.Recognizer, KeyLinesFile)
		}
	default:
		return fmt.Errorf("unknown recognizer %q", c.Recognizer)
	}
	if c.DPI < 36 || c.DPI > 1200 {
		return fmt.Errorf("%s must be between 36 and 1200, got %d", KeyDPI, c.DPI)
	}
	if c.PreviewSize < 0 {
		return fmt.Errorf("%s must not be negative", KeyPreviewSize)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%s must not be empty", KeyOutputDir)
	}
	return nil
}
