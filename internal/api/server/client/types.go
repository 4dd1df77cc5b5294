package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Message is one transcript entry as it travels between client, relay and
// upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RelayRequest is the body the chat client posts to the relay.
type RelayRequest struct {
	Messages []Message `json:"messages"`
}

// ProviderConfig is a per-provider override block understood by the upstream.
type ProviderConfig struct {
	Headers map[string]string `json:"headers"`
	Body    map[string]any    `json:"body"`
}

// UpstreamRequest is what the relay sends to the inference provider.
type UpstreamRequest struct {
	Stream          bool           `json:"stream"`
	Verbose         bool           `json:"verbose"`
	Messages        []Message      `json:"messages"`
	DeepSeekConfig  ProviderConfig `json:"deepseek_config"`
	AnthropicConfig ProviderConfig `json:"anthropic_config"`
}

// NewUpstreamRequest builds a streaming request carrying only role and content
// of each message.
func NewUpstreamRequest(messages []Message) *UpstreamRequest {
	copied := make([]Message, len(messages))
	for i, msg := range messages {
		copied[i] = Message{Role: msg.Role, Content: msg.Content}
	}
	return &UpstreamRequest{
		Stream:          true,
		Verbose:         false,
		Messages:        copied,
		DeepSeekConfig:  emptyProviderConfig(),
		AnthropicConfig: emptyProviderConfig(),
	}
}

func emptyProviderConfig() ProviderConfig {
	return ProviderConfig{
		Headers: map[string]string{},
		Body:    map[string]any{},
	}
}

// DecodeRelayRequest parses a relay request body. The messages field must be
// present and be a JSON array.
func DecodeRelayRequest(r io.Reader) (*RelayRequest, error) {
	var raw struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	trimmed := bytes.TrimSpace(raw.Messages)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: messages must be an array", ErrMalformedRequest)
	}

	var req RelayRequest
	if err := json.Unmarshal(trimmed, &req.Messages); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return &req, nil
}
