// Package classifier decides whether a recognized text line carries an
// email address, phone number or URL.
package classifier

import (
	"strings"
	"unicode"

	"github.com/ivlev/redactshot/internal/model"
)

// Match is the single classification result for a line.
type Match struct {
	Type  model.DataType
	Text  string
	Start int // byte offset of Text in the line
	End   int
}

// Classifier applies the line precedence rule: the first link in the line
// wins (mailto and bare addresses are emails, anything else a URL),
// otherwise the first phone number, otherwise nothing. A line never yields
// more than one match.
type Classifier struct {
	links  bool
	phones bool
}

// New creates a classifier that only runs the matchers the config asks for.
// Links are matched when either emails or URLs are enabled because both are
// found by the same matcher.
func New(cfg model.DetectorConfig) *Classifier {
	return &Classifier{
		links:  cfg.DetectEmails || cfg.DetectURLs,
		phones: cfg.DetectPhoneNumbers,
	}
}

// Enabled reports whether any matcher is active.
func (c *Classifier) Enabled() bool {
	return c.links || c.phones
}

// Classify returns the match for line, if any.
func (c *Classifier) Classify(line string) (Match, bool) {
	if c.links {
		if m, ok := findLink(line); ok {
			return m, true
		}
	}
	if c.phones {
		if m, ok := findPhone(line); ok {
			return m, true
		}
	}
	return Match{}, false
}

func findLink(line string) (Match, bool) {
	idx := linkPattern.FindStringSubmatchIndex(line)
	if idx == nil {
		return Match{}, false
	}
	start, end := idx[0], idx[1]
	text := strings.TrimRight(line[start:end], linkTrailers)
	if text == "" {
		return Match{}, false
	}

	t := model.URL
	if idx[2*groupMailto] >= 0 || idx[2*groupEmail] >= 0 {
		t = model.Email
	}
	return Match{Type: t, Text: text, Start: start, End: start + len(text)}, true
}

func findPhone(line string) (Match, bool) {
	for _, loc := range phonePattern.FindAllStringIndex(line, -1) {
		start, end := loc[0], loc[1]
		if !standsAlone(line, start, end) {
			continue
		}
		text := trimTrailingGroups(line[start:end])
		if !validPhone(text) {
			continue
		}
		return Match{Type: model.Phone, Text: text, Start: start, End: start + len(text)}, true
	}
	return Match{}, false
}

// trimTrailingGroups cuts s at the first whitespace that follows
// fullPhoneDigits digits, so "555-123-4567 2024" keeps only the number.
func trimTrailingGroups(s string) string {
	digits := 0
	for i, r := range s {
		if unicode.IsDigit(r) {
			digits++
			continue
		}
		if digits >= fullPhoneDigits && unicode.IsSpace(r) {
			return s[:i]
		}
	}
	return s
}

func validPhone(s string) bool {
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return false
	}
	return !datePattern.MatchString(s)
}

// standsAlone rejects candidates glued to surrounding letters or digits,
// e.g. the digits of an order number like "INV20240115".
func standsAlone(line string, start, end int) bool {
	if start > 0 {
		prev := rune(line[start-1])
		if isWordByte(prev) {
			return false
		}
	}
	if end < len(line) {
		next := rune(line[end])
		if isWordByte(next) {
			return false
		}
	}
	return true
}

func isWordByte(r rune) bool {
	return r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}
