package config

import (
	"errors"
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Set required environment variables
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("DEEPGRAM_API_KEY")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error when required keys are missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.DeepgramModel != "nova-2" {
		t.Errorf("Expected default DeepgramModel 'nova-2', got '%s'", cfg.DeepgramModel)
	}

	if cfg.DefaultSourceLanguage != "en-US" {
		t.Errorf("Expected default SourceLanguage 'en-US', got '%s'", cfg.DefaultSourceLanguage)
	}

	if cfg.DefaultTargetLanguage != "fr-FR" {
		t.Errorf("Expected default TargetLanguage 'fr-FR', got '%s'", cfg.DefaultTargetLanguage)
	}

	if cfg.MicButtonColor != "#ff0000" {
		t.Errorf("Expected default MicButtonColor '#ff0000', got '%s'", cfg.MicButtonColor)
	}

	if cfg.StopButtonColor != "#00ff00" {
		t.Errorf("Expected default StopButtonColor '#00ff00', got '%s'", cfg.StopButtonColor)
	}

	if cfg.AudioSampleRate != 16000 {
		t.Errorf("Expected default AudioSampleRate 16000, got %d", cfg.AudioSampleRate)
	}

	if cfg.EventQueueSize != 256 {
		t.Errorf("Expected default EventQueueSize 256, got %d", cfg.EventQueueSize)
	}

	if cfg.VADEnergyThreshold != 500.0 {
		t.Errorf("Expected default VADEnergyThreshold 500.0, got %f", cfg.VADEnergyThreshold)
	}

	if cfg.NATSURL != "" {
		t.Errorf("Expected NATS publishing disabled by default, got '%s'", cfg.NATSURL)
	}
}

func TestLoad_InvalidSampleRate(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	os.Setenv("AUDIO_SAMPLE_RATE", "0")
	defer os.Unsetenv("DEEPGRAM_API_KEY")
	defer os.Unsetenv("AUDIO_SAMPLE_RATE")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}

	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}

	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}

	if cfg.RetryInitialBackoff != 100 {
		t.Errorf("Expected default RetryInitialBackoff 100, got %d", cfg.RetryInitialBackoff)
	}
}

func TestConfig_DefaultSettings(t *testing.T) {
	cfg := &Config{
		DefaultSubscriptionKey: "key",
		DefaultRegion:          "westeurope",
		DefaultSourceLanguage:  "en-US",
		DefaultTargetLanguage:  "de-DE",
		MicButtonColor:         "#111111",
		StopButtonColor:        "#222222",
	}

	s := cfg.DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("Expected default settings to validate, got %v", err)
	}
	if s.Theme.MicColor != "#111111" || s.Theme.StopColor != "#222222" {
		t.Errorf("Unexpected theme: %+v", s.Theme)
	}
}

func TestSettings_ValidateMissing(t *testing.T) {
	s := Settings{SourceLanguage: "en-US", TargetLanguage: "  "}

	err := s.Validate()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}

	if len(cfgErr.Missing) != 3 {
		t.Fatalf("Expected 3 missing fields, got %v", cfgErr.Missing)
	}
	if cfgErr.Missing[0] != "subscription key" || cfgErr.Missing[2] != "target language" {
		t.Errorf("Unexpected missing fields: %v", cfgErr.Missing)
	}
}

func TestPrimarySubtag(t *testing.T) {
	cases := map[string]string{
		"fr-FR":   "fr",
		"zh-Hans": "zh",
		"de":      "de",
		"pt_BR":   "pt",
		"":        "",
	}
	for tag, want := range cases {
		if got := PrimarySubtag(tag); got != want {
			t.Errorf("PrimarySubtag(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestTheme_WithDefaults(t *testing.T) {
	theme := Theme{MicColor: "", StopColor: "#123456"}.WithDefaults()
	if theme.MicColor != DefaultMicColor {
		t.Errorf("Expected mic color default, got %s", theme.MicColor)
	}
	if theme.StopColor != "#123456" {
		t.Errorf("Expected stop color kept, got %s", theme.StopColor)
	}
}
