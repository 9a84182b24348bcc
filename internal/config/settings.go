package config

import (
	"strings"
)

const (
	DefaultMicColor  = "#ff0000"
	DefaultStopColor = "#00ff00"
)

// Theme holds the presentation values of the toggle button
type Theme struct {
	MicColor  string
	StopColor string
}

// WithDefaults fills blank colors with the built-in defaults
func (t Theme) WithDefaults() Theme {
	if strings.TrimSpace(t.MicColor) == "" {
		t.MicColor = DefaultMicColor
	}
	if strings.TrimSpace(t.StopColor) == "" {
		t.StopColor = DefaultStopColor
	}
	return t
}

// Settings is the configuration of one recognition session.
// A session captures a copy at start; later host refreshes do not affect it.
type Settings struct {
	SubscriptionKey string
	Region          string
	SourceLanguage  string
	TargetLanguage  string
	Theme           Theme
}

// ConfigurationError reports the settings a session cannot start without
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "configuration incomplete: missing " + strings.Join(e.Missing, ", ")
}

// Validate checks that credential, region and both languages are present
func (s Settings) Validate() error {
	var missing []string
	if strings.TrimSpace(s.SubscriptionKey) == "" {
		missing = append(missing, "subscription key")
	}
	if strings.TrimSpace(s.Region) == "" {
		missing = append(missing, "region")
	}
	if strings.TrimSpace(s.SourceLanguage) == "" {
		missing = append(missing, "source language")
	}
	if strings.TrimSpace(s.TargetLanguage) == "" {
		missing = append(missing, "target language")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// PrimarySubtag returns the language part of a BCP-47 tag
func PrimarySubtag(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		return tag[:i]
	}
	return tag
}
