package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	custom_errors "starmap/internal/errors"
)

// Sink accepts one indexed entry per call.
type Sink interface {
	AddMemory(ctx context.Context, content string, metadata map[string]any) error
}

// SupermemoryClient is a minimal client for the Supermemory memories endpoint.
type SupermemoryClient struct {
	http   *http.Client
	apiURL string
	apiKey string
}

// NewSupermemoryClient returns a client posting to apiURL with apiKey.
func NewSupermemoryClient(apiKey, apiURL string) *SupermemoryClient {
	return &SupermemoryClient{
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		apiURL: strings.TrimSuffix(apiURL, "/"),
		apiKey: apiKey,
	}
}

type memoryRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// AddMemory posts one entry to {apiURL}/memories.
func (c *SupermemoryClient) AddMemory(ctx context.Context, content string, metadata map[string]any) error {
	body, err := json.Marshal(memoryRequest{Content: content, Metadata: metadata})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/memories", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &custom_errors.ErrUpstream{Op: "add memory", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &custom_errors.ErrUpstream{
			Op:         "add memory",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg))),
		}
	}
	return nil
}
