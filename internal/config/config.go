package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the live translator service
type Config struct {
	// Server configuration
	Port           string `envconfig:"PORT" default:"8080"`
	GRPCHealthPort string `envconfig:"GRPC_HEALTH_PORT" default:"9090"` // Empty disables the gRPC health server

	// Deepgram STT API configuration
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"` // nova-2, enhanced, base

	// Translator API configuration (Azure Translator v3 compatible)
	TranslatorEndpoint string `envconfig:"TRANSLATOR_ENDPOINT" default:"https://api.cognitive.microsofttranslator.com"`
	TranslatorTimeout  int    `envconfig:"TRANSLATOR_TIMEOUT" default:"5000"` // milliseconds

	// Control defaults, used when the host leaves a property unset
	DefaultSubscriptionKey string `envconfig:"TRANSLATOR_KEY" default:""`
	DefaultRegion          string `envconfig:"TRANSLATOR_REGION" default:""`
	DefaultSourceLanguage  string `envconfig:"SOURCE_LANGUAGE" default:"en-US"`
	DefaultTargetLanguage  string `envconfig:"TARGET_LANGUAGE" default:"fr-FR"`
	MicButtonColor         string `envconfig:"MIC_BUTTON_COLOR" default:"#ff0000"`
	StopButtonColor        string `envconfig:"STOP_BUTTON_COLOR" default:"#00ff00"`
	ManifestPath           string `envconfig:"MANIFEST_PATH" default:""` // Empty uses the embedded manifest

	// Audio processing configuration
	AudioSampleRate    int     `envconfig:"AUDIO_SAMPLE_RATE" default:"16000"`    // Rate sent to the recognizer (linear16)
	AudioChunkMs       int     `envconfig:"AUDIO_CHUNK_MS" default:"100"`         // Recognizer frame length
	AudioBufferSize    int     `envconfig:"AUDIO_BUFFER_SIZE" default:"65536"`    // Ring buffer size in bytes
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold for VAD
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"10"`      // Frames of silence to mark speech end

	// Session configuration
	EventQueueSize int `envconfig:"EVENT_QUEUE_SIZE" default:"256"` // Pending provider callbacks per control

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Output bus configuration
	NATSURL           string `envconfig:"NATS_URL" default:""` // Empty disables publishing
	NATSSubjectPrefix string `envconfig:"NATS_SUBJECT_PREFIX" default:"livetranslate"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if cfg.AudioSampleRate <= 0 {
		return nil, fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", cfg.AudioSampleRate)
	}
	if cfg.EventQueueSize <= 0 {
		return nil, fmt.Errorf("EVENT_QUEUE_SIZE must be positive, got %d", cfg.EventQueueSize)
	}

	return &cfg, nil
}

// DefaultSettings returns the control settings used before the host supplies any
func (c *Config) DefaultSettings() Settings {
	return Settings{
		SubscriptionKey: c.DefaultSubscriptionKey,
		Region:          c.DefaultRegion,
		SourceLanguage:  c.DefaultSourceLanguage,
		TargetLanguage:  c.DefaultTargetLanguage,
		Theme: Theme{
			MicColor:  c.MicButtonColor,
			StopColor: c.StopButtonColor,
		},
	}
}
