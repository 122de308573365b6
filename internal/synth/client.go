package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// outputFormat is the only artifact format the player understands, so
	// every synthesis request asks for it explicitly.
	outputFormat = "riff-24khz-16bit-mono-pcm"

	userAgent = "sayboard/1.0"
)

// Request describes one synthesis call. Language carries the provider's
// locale code, or LanguageMulti for per-segment auto-detection.
type Request struct {
	Text     string
	Voice    string
	Pitch    float64
	Rate     float64
	Language string
}

// Config holds connection settings for the synthesis service.
type Config struct {
	// Region selects the service endpoint, e.g. "westeurope".
	Region string

	// Key is the subscription key sent with every request.
	Key string

	// Timeout bounds a single HTTP call. Defaults to 30s.
	Timeout time.Duration

	// RequestsPerMinute rate-limits outgoing calls to stay under the
	// service's throttling thresholds. Defaults to 60.
	RequestsPerMinute int

	// Endpoint overrides the region-derived base URL; tests point it at a
	// local server.
	Endpoint string
}

// Client calls the speech-synthesis service over authenticated HTTPS.
type Client struct {
	endpoint   string
	key        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the configured region.
func NewClient(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com", cfg.Region)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		key:        cfg.Key,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// Synthesize renders the request to audio bytes in the service's wav
// format. The request text is wrapped in a speech-markup envelope before it
// goes on the wire.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body := BuildSSML(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/cognitiveservices/v1", strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", outputFormat)
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach synthesis service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis service error: %s - %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return io.ReadAll(resp.Body)
}

// VoiceDescriptor is one entry of the service's voice list.
type VoiceDescriptor struct {
	ShortName           string   `json:"ShortName"`
	Gender              string   `json:"Gender"`
	Locale              string   `json:"Locale"`
	SecondaryLocaleList []string `json:"SecondaryLocaleList,omitempty"`
}

// Voices fetches the per-region voice catalog.
func (c *Client) Voices(ctx context.Context) ([]VoiceDescriptor, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/cognitiveservices/voices/list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach voice catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("voice catalog error: %s - %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var voices []VoiceDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("failed to decode voice list: %w", err)
	}
	return voices, nil
}
