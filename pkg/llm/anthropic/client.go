// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package anthropic implements the provider contract against the Anthropic
// Messages API.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/teradata-labs/horde/pkg/llm"
	"github.com/teradata-labs/horde/pkg/types"
)

const defaultEndpoint = "https://api.anthropic.com/v1/messages"

// Client implements the Provider interface for Anthropic.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	httpClient  *http.Client
	maxTokens   int
	temperature float64

	mu        sync.Mutex
	lastInput int
	lastOut   int
	lastOK    bool
}

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey      string
	Endpoint    string        // Default: the public Messages API
	Model       string        // Default: claude-3-5-sonnet-20241022
	MaxTokens   int           // Default: 4096
	Temperature float64       // Default: 0.7
	Timeout     time.Duration // Default: 120s
}

// NewClient creates a new Anthropic client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-sonnet-20241022"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "anthropic"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate produces the full completion for a prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts types.GenerateOptions) (string, error) {
	httpResp, err := c.send(ctx, c.buildRequest(prompt, opts, false))
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", llm.WrapTransport("anthropic", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", llm.ErrorFromStatus("anthropic", httpResp.StatusCode, string(respBody))
	}

	var resp messagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", llm.NewError("anthropic", llm.ErrInvalidResponse, "failed to unmarshal response", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	c.recordUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return content.String(), nil
}

// GenerateStream streams the completion via the Messages API SSE protocol.
func (c *Client) GenerateStream(ctx context.Context, prompt string, opts types.GenerateOptions, cb types.TokenCallback) (string, error) {
	httpResp, err := c.send(ctx, c.buildRequest(prompt, opts, true))
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", llm.ErrorFromStatus("anthropic", httpResp.StatusCode, string(respBody))
	}

	var content strings.Builder
	var inputTokens, outputTokens int

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &event); err != nil {
			// Skip malformed events but continue processing.
			continue
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil {
				inputTokens = event.Message.Usage.InputTokens
			}
		case "content_block_delta":
			if event.Delta != nil && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				content.WriteString(event.Delta.Text)
				if cb != nil {
					cb(event.Delta.Text)
				}
			}
		case "message_delta":
			if event.Usage != nil {
				outputTokens = event.Usage.OutputTokens
			}
		}

		select {
		case <-ctx.Done():
			return "", llm.WrapTransport("anthropic", ctx.Err())
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		return "", llm.WrapTransport("anthropic", err)
	}

	c.recordUsage(inputTokens, outputTokens)
	return content.String(), nil
}

// HealthCheck verifies credentials are present and the API answers. A tiny
// one-token request keeps the probe cheap.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if c.apiKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: 1,
		Messages:  []apiMessage{{Role: "user", Content: "ping"}},
	}
	httpResp, err := c.send(ctx, req)
	if err != nil {
		return false
	}
	defer httpResp.Body.Close()
	_, _ = io.Copy(io.Discard, httpResp.Body)
	return httpResp.StatusCode == http.StatusOK
}

// LastUsage implements types.UsageReporter.
func (c *Client) LastUsage() (int, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastInput, c.lastOut, c.lastOK
}

func (c *Client) recordUsage(input, output int) {
	c.mu.Lock()
	c.lastInput, c.lastOut = input, output
	c.lastOK = input > 0 || output > 0
	c.mu.Unlock()
}

func (c *Client) buildRequest(prompt string, opts types.GenerateOptions, stream bool) messagesRequest {
	temperature := c.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := c.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	req := messagesRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      stream,
		Messages:    []apiMessage{{Role: "user", Content: prompt}},
	}
	if opts.SystemPrompt != "" {
		req.System = opts.SystemPrompt
	}
	return req
}

func (c *Client) send(ctx context.Context, req messagesRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, llm.NewError("anthropic", llm.ErrInvalidResponse, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewError("anthropic", llm.ErrTransport, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.WrapTransport("anthropic", err)
	}
	return httpResp, nil
}

// Anthropic API types

type messagesRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float64      `json:"temperature,omitempty"`
	System      string       `json:"system,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
	Messages    []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      apiUsage       `json:"usage"`
}

type streamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Usage apiUsage `json:"usage"`
	} `json:"message,omitempty"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	Usage *apiUsage `json:"usage,omitempty"`
}

// Ensure Client implements the provider contracts.
var _ types.Provider = (*Client)(nil)
var _ types.UsageReporter = (*Client)(nil)
