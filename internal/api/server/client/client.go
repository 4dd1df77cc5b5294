package client

import (
	"fmt"
	"net/http"
	"net/url"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is the shared HTTP plumbing for talking to the upstream provider.
type Client struct {
	base    *url.URL
	http    *http.Client
	chatUrl *url.URL
}

// ClientConfig holds the configuration for the client
type ClientConfig struct {
	BaseURL  string
	ChatPath string
	// HTTPClient defaults to a client without a timeout.
	HTTPClient *http.Client
}

// NewClient creates a new API client with configurable base URL and endpoints
func NewClient(config ClientConfig) (*Client, error) {
	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url %q: %w", config.BaseURL, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q: scheme and host are required", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		base:    baseURL,
		http:    httpClient,
		chatUrl: baseURL.ResolveReference(&url.URL{Path: config.ChatPath}),
	}, nil
}

func (c *Client) GetBaseURL() string {
	return c.base.String()
}

func (c *Client) GetChatURL() string {
	return c.chatUrl.String()
}
