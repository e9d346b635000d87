// Package imaging generates the main image for a post and places it where
// the selected publishing provider can reference it.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ImageClient calls an OpenAI-compatible images API.
type ImageClient struct {
	apiKey     string
	baseURL    string
	model      string
	size       string
	httpClient *http.Client
}

// ImageClientConfig holds configuration for the images client.
type ImageClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
	Timeout time.Duration
}

// DefaultImageClientConfig returns sensible defaults.
func DefaultImageClientConfig(apiKey string) ImageClientConfig {
	return ImageClientConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-image-1",
		Size:    "1024x1024",
		Timeout: 180 * time.Second,
	}
}

// NewImageClient creates an images client with default config.
func NewImageClient(apiKey string) *ImageClient {
	return NewImageClientWithConfig(DefaultImageClientConfig(apiKey))
}

// NewImageClientWithConfig creates an images client with custom config.
func NewImageClientWithConfig(config ImageClientConfig) *ImageClient {
	return &ImageClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		size:    config.Size,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// ImageRequest represents the image generation request.
type ImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

// ImageResponse represents the image generation response.
type ImageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Generate produces one PNG image for the prompt and returns its raw bytes.
func (c *ImageClient) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	reqBody := ImageRequest{
		Model:  c.model,
		Prompt: prompt,
		N:      1,
		Size:   c.size,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Retry loop for 429 errors
	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			// Exponential backoff: 1s, 2s, 4s
			time.Sleep(time.Duration(1<<uint(i-1)) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/images/generations", bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var imgResp ImageResponse
		if err := json.Unmarshal(body, &imgResp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		if imgResp.Error != nil {
			return nil, fmt.Errorf("API error: %s", imgResp.Error.Message)
		}

		if len(imgResp.Data) == 0 || imgResp.Data[0].B64JSON == "" {
			return nil, fmt.Errorf("no image data returned")
		}

		raw, err := base64.StdEncoding.DecodeString(imgResp.Data[0].B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data: %w", err)
		}
		return raw, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
