package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bz888/deepchat/internal/api/server"
	"github.com/bz888/deepchat/internal/api/server/client"
	"github.com/bz888/deepchat/internal/api/server/handlers"
)

// StatusError is a non-success answer from the relay.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay responded with %s", e.Status)
}

// RelayClient talks to the relay over HTTP.
type RelayClient struct {
	base *url.URL
	http *http.Client
}

func NewRelayClient(relayURL string, httpClient *http.Client) (*RelayClient, error) {
	base, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url %q: %w", relayURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid relay url %q: scheme and host are required", relayURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &RelayClient{base: base, http: httpClient}, nil
}

func (c *RelayClient) resolve(path string) string {
	return c.base.ResolveReference(&url.URL{Path: path}).String()
}

// Chat posts the whole transcript and returns the streaming response once the
// relay has answered with a success status. The caller closes the body.
func (c *RelayClient) Chat(ctx context.Context, messages []client.Message) (*http.Response, error) {
	requestData, err := json.Marshal(client.RelayRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(server.ChatPath), bytes.NewReader(requestData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// Status fetches the relay's health report.
func (c *RelayClient) Status(ctx context.Context) (*handlers.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(server.StatusPath), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var status handlers.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}
