package falai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cardforgehq/cardforge/internal/pkg/env"
)

// DefaultModel is the generation model used for card artwork.
const DefaultModel = "fal-ai/flux-pro/v1.1"

const defaultBaseURL = "https://queue.fal.run"

// Queue states reported by the provider while a request is in flight.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Config holds the generation client settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	PollInterval time.Duration
}

// ConfigFromEnv reads the generation client settings from the environment.
func ConfigFromEnv() Config {
	return Config{
		APIKey:  env.GetEnv("FAL_KEY", ""),
		BaseURL: env.GetEnv("FAL_BASE_URL", defaultBaseURL),
		Model:   env.GetEnv("FAL_MODEL", DefaultModel),
	}
}

// IsEnabled reports whether the generation client is configured.
func (c Config) IsEnabled() bool {
	return c.APIKey != ""
}

// GenerateInput is the request body for one generation.
type GenerateInput struct {
	Prompt              string `json:"prompt"`
	ImageSize           string `json:"image_size,omitempty"`
	NumImages           int    `json:"num_images,omitempty"`
	EnableSafetyChecker bool   `json:"enable_safety_checker"`
	SafetyTolerance     string `json:"safety_tolerance,omitempty"`
}

// Image is one produced image as reported by the provider. The URL is
// ephemeral; callers must copy the bytes to durable storage.
type Image struct {
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"content_type"`
}

// Result is the final generation output. Raw keeps the provider's full
// response payload for audit.
type Result struct {
	Images          []Image         `json:"images"`
	Seed            int64           `json:"seed"`
	HasNsfwConcepts []bool          `json:"has_nsfw_concepts"`
	Prompt          string          `json:"prompt"`
	RequestID       string          `json:"-"`
	Raw             json.RawMessage `json:"-"`
}

// QueueUpdate is an informational progress notification. It carries no
// contractual guarantee beyond "non-final".
type QueueUpdate struct {
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position"`
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type statusResponse struct {
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position"`
	ResponseURL   string `json:"response_url"`
}

// Client talks to the fal.ai queue API: submit a request, poll its status
// until completion, then fetch the result.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a generation client. BaseURL, model and poll interval
// fall back to defaults when unset.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Generate runs one generation to completion. Queue updates are forwarded to
// onUpdate when non-nil. Cancelling the context aborts the submit, the
// polling loop and the result fetch.
func (c *Client) Generate(ctx context.Context, input GenerateInput, onUpdate func(QueueUpdate)) (*Result, error) {
	sub, err := c.submit(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("submit generation request: %w", err)
	}

	responseURL := sub.ResponseURL

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := c.status(ctx, sub.StatusURL)
		if err != nil {
			return nil, fmt.Errorf("poll generation status: %w", err)
		}
		if onUpdate != nil {
			onUpdate(QueueUpdate{Status: status.Status, QueuePosition: status.QueuePosition})
		}
		if status.ResponseURL != "" {
			responseURL = status.ResponseURL
		}
		if status.Status == StatusCompleted {
			break
		}
	}

	result, err := c.fetchResult(ctx, responseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch generation result: %w", err)
	}
	result.RequestID = sub.RequestID
	return result, nil
}

func (c *Client) submit(ctx context.Context, input GenerateInput) (*submitResponse, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+c.cfg.Model, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.cfg.APIKey)

	var sub submitResponse
	if err := c.do(req, &sub); err != nil {
		return nil, err
	}
	if sub.StatusURL == "" {
		return nil, fmt.Errorf("provider returned no status url for request %q", sub.RequestID)
	}
	return &sub, nil
}

func (c *Client) status(ctx context.Context, statusURL string) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.cfg.APIKey)

	var status statusResponse
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) fetchResult(ctx context.Context, responseURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, responseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode generation result: %w", err)
	}
	result.Raw = raw
	return &result, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return json.Unmarshal(body, out)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
