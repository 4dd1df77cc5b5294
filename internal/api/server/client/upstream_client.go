package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bz888/deepchat/internal/config"
)

const (
	HeaderDeepSeekToken  = "X-DeepSeek-API-Token"
	HeaderAnthropicToken = "X-Anthropic-API-Token"
)

// UpstreamClientInterface opens a streaming completion against the provider.
// The returned body yields the provider's raw event lines.
type UpstreamClientInterface interface {
	Open(ctx context.Context, req *UpstreamRequest) (io.ReadCloser, error)
}

// UpstreamClient represents a client for the streaming inference provider
type UpstreamClient struct {
	Client
	credentials config.Credentials
}

// NewUpstreamClient creates a client for the provider at baseURL. Credentials
// are attached to every request and never logged.
func NewUpstreamClient(baseURL string, credentials config.Credentials, httpClient *http.Client) (*UpstreamClient, error) {
	c, err := NewClient(ClientConfig{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return &UpstreamClient{
		Client:      *c,
		credentials: credentials,
	}, nil
}

// Open posts req and returns the response body once the provider has
// answered with a success status. A non-success status is reported as an
// *UpstreamError carrying the provider's body text. Nothing is retried.
func (c *UpstreamClient) Open(ctx context.Context, req *UpstreamRequest) (io.ReadCloser, error) {
	bts, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GetChatURL(), bytes.NewReader(bts))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(HeaderDeepSeekToken, c.credentials.DeepSeekAPIKey)
	request.Header.Set(HeaderAnthropicToken, c.credentials.AnthropicAPIKey)

	response, err := c.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		defer response.Body.Close()
		body, readErr := io.ReadAll(response.Body)
		if readErr != nil {
			body = []byte(fmt.Sprintf("<failed to read body: %v>", readErr))
		}
		return nil, &UpstreamError{StatusCode: response.StatusCode, Body: string(body)}
	}

	return response.Body, nil
}
