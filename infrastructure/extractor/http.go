// Package extractor provides the REST client for the managed
// text-extraction (OCR) service.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client implements extraction.TextExtractor over the service's HTTP API:
// one endpoint to submit a detection job, one to fetch the finished text.
// Job completion itself arrives out-of-band through the notification bus.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Config holds construction parameters for Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// StartDetection submits an asynchronous text-detection job. A response
// without a job ID means the service refused the document; that is not a
// transport error and comes back as ("", nil).
func (c *Client) StartDetection(ctx context.Context, bucket, key string) (string, error) {
	body := map[string]any{
		"document_location": map[string]any{
			"s3_bucket":      bucket,
			"s3_object_name": key,
		},
	}

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.post(ctx, "/v1/detection-jobs", body, &resp); err != nil {
		return "", fmt.Errorf("start detection for %s/%s: %w", bucket, key, err)
	}
	return resp.JobID, nil
}

// FetchText retrieves the extracted text of a finished job.
func (c *Client) FetchText(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/detection-jobs/%s/text", c.baseURL, jobID), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch text for job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch text for job %s: %s: %s", jobID, resp.Status, snippet)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode text for job %s: %w", jobID, err)
	}
	return out.Text, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %s", resp.Status, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
