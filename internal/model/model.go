// Package model holds the types shared by every stage of the redaction
// pipeline: detected items, detector flags and the error kinds callers
// match with errors.Is.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ivlev/redactshot/internal/geometry"
)

var (
	ErrImageDecodeFailed = errors.New("image decode failed")
	ErrRecognitionFailed = errors.New("text recognition failed")
	ErrEncodeFailed      = errors.New("image encode failed")
	ErrSaveFailed        = errors.New("image save failed")
)

// DataType is the category of a sensitive item.
type DataType int

const (
	Email DataType = iota + 1
	Phone
	URL
)

// DataTypes lists every category in display order.
var DataTypes = []DataType{Email, Phone, URL}

func (t DataType) String() string {
	switch t {
	case Email:
		return "email"
	case Phone:
		return "phone"
	case URL:
		return "url"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// ParseDataType is the inverse of String.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return Email, nil
	case "phone":
		return Phone, nil
	case "url":
		return URL, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}

func (t DataType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

func (t *DataType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDataType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SensitiveItem is one classified, positioned text detection.
type SensitiveItem struct {
	ID       string            `yaml:"id"`
	Type     DataType          `yaml:"type"`
	Text     string            `yaml:"text"`
	Box      geometry.NormRect `yaml:"box"`
	Selected bool              `yaml:"selected"`
}

// NewItem creates a selected item with a fresh id. The box is clamped into
// the unit square.
func NewItem(t DataType, text string, box geometry.NormRect) SensitiveItem {
	return SensitiveItem{
		ID:       NewItemID(),
		Type:     t,
		Text:     text,
		Box:      box.Clamp(),
		Selected: true,
	}
}

// NewItemID returns a random identifier that is never reused.
func NewItemID() string {
	return "item_" + uuid.New().String()
}

// DetectorConfig holds the three user-controlled detector flags.
type DetectorConfig struct {
	DetectEmails       bool `yaml:"detect_emails" mapstructure:"detect_emails"`
	DetectPhoneNumbers bool `yaml:"detect_phone_numbers" mapstructure:"detect_phone_numbers"`
	DetectURLs         bool `yaml:"detect_urls" mapstructure:"detect_urls"`
}

// AllDetectors enables every category.
func AllDetectors() DetectorConfig {
	return DetectorConfig{DetectEmails: true, DetectPhoneNumbers: true, DetectURLs: true}
}

// Any reports whether at least one detector is enabled.
func (c DetectorConfig) Any() bool {
	return c.DetectEmails || c.DetectPhoneNumbers || c.DetectURLs
}

// Enabled reports whether items of type t currently count.
func (c DetectorConfig) Enabled(t DataType) bool {
	switch t {
	case Email:
		return c.DetectEmails
	case Phone:
		return c.DetectPhoneNumbers
	case URL:
		return c.DetectURLs
	}
	return false
}

// With returns a copy of c with the flag for t set to on.
func (c DetectorConfig) With(t DataType, on bool) DetectorConfig {
	switch t {
	case Email:
		c.DetectEmails = on
	case Phone:
		c.DetectPhoneNumbers = on
	case URL:
		c.DetectURLs = on
	}
	return c
}

func (c DetectorConfig) String() string {
	var on []string
	for _, t := range DataTypes {
		if c.Enabled(t) {
			on = append(on, t.String())
		}
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, ",")
}
