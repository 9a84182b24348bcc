package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/observability"
	"github.com/lexiqai/live-translator/internal/resilience"
)

const defaultEndpoint = "https://api.cognitive.microsofttranslator.com"

// AzureClient implements Translator against the Azure Translator v3 REST API
type AzureClient struct {
	endpoint   string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	retry      *resilience.RetryConfig
	logger     zerolog.Logger
}

type translateItem struct {
	Text string `json:"Text"`
}

type translateResult struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAzureClient creates a translator client from service configuration
func NewAzureClient(cfg *config.Config, breaker *resilience.CircuitBreaker, logger zerolog.Logger) *AzureClient {
	endpoint := strings.TrimRight(cfg.TranslatorEndpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("translator",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second)
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.RetryMaxAttempts > 0 {
		retry.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialBackoff > 0 {
		retry.InitialBackoff = time.Duration(cfg.RetryInitialBackoff) * time.Millisecond
	}

	return &AzureClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TranslatorTimeout) * time.Millisecond},
		breaker:    breaker,
		retry:      retry,
		logger:     logger,
	}
}

// Translate returns the translation of req.Text. Blank text is returned
// unchanged without a request.
func (c *AzureClient) Translate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", nil
	}
	if req.SubscriptionKey == "" || req.Region == "" {
		return "", ErrMissingCredentials
	}

	start := time.Now()
	var translated string
	err := c.breaker.Call(func() error {
		return resilience.Retry(ctx, func(ctx context.Context) error {
			var err error
			translated, err = c.do(ctx, req)
			return err
		}, c.retry, resilience.IsRetryableNetworkError)
	})
	observability.RecordTranslation(err == nil, time.Since(start))

	if err != nil {
		c.logger.Warn().Err(err).Str("to", req.To).Msg("Translation failed")
		return "", err
	}
	return translated, nil
}

func (c *AzureClient) do(ctx context.Context, req Request) (string, error) {
	q := url.Values{}
	q.Set("api-version", "3.0")
	if from := config.PrimarySubtag(req.From); from != "" {
		q.Set("from", from)
	}
	q.Set("to", config.PrimarySubtag(req.To))

	body, err := json.Marshal([]translateItem{{Text: req.Text}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/translate?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", req.SubscriptionKey)
	httpReq.Header.Set("Ocp-Apim-Subscription-Region", req.Region)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", resilience.NewRetryableError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var envelope errorEnvelope
		if json.Unmarshal(payload, &envelope) == nil {
			statusErr.Code = envelope.Error.Code
			statusErr.Message = envelope.Error.Message
		}
		if statusErr.Temporary() {
			return "", resilience.NewRetryableError(statusErr)
		}
		return "", statusErr
	}

	var results []translateResult
	if err := json.Unmarshal(payload, &results); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(results) == 0 || len(results[0].Translations) == 0 {
		return "", errors.New("translator returned no translations")
	}
	return results[0].Translations[0].Text, nil
}
