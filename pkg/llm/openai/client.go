// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package openai implements the provider contract against the OpenAI chat
// completions API.
package openai

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

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Client implements the Provider interface for OpenAI.
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

// Config holds configuration for the OpenAI client.
type Config struct {
	APIKey      string
	Endpoint    string        // Default: the public chat completions API
	Model       string        // Default: gpt-4o
	MaxTokens   int           // Default: 4096
	Temperature float64       // Default: 0.7
	Timeout     time.Duration // Default: 120s
}

// NewClient creates a new OpenAI client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
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
	return "openai"
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
		return "", llm.WrapTransport("openai", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", llm.ErrorFromStatus("openai", httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", llm.NewError("openai", llm.ErrInvalidResponse, "failed to unmarshal response", err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.NewError("openai", llm.ErrInvalidResponse, "response contained no choices", nil)
	}

	c.recordUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream streams the completion via the chat completions SSE protocol.
func (c *Client) GenerateStream(ctx context.Context, prompt string, opts types.GenerateOptions, cb types.TokenCallback) (string, error) {
	req := c.buildRequest(prompt, opts, true)
	// Ask OpenAI to attach usage to the final chunk.
	req.StreamOptions = &streamOptions{IncludeUsage: true}

	httpResp, err := c.send(ctx, req)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", llm.ErrorFromStatus("openai", httpResp.StatusCode, string(respBody))
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
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			token := chunk.Choices[0].Delta.Content
			content.WriteString(token)
			if cb != nil {
				cb(token)
			}
		}
		if chunk.Usage != nil {
			inputTokens = chunk.Usage.PromptTokens
			outputTokens = chunk.Usage.CompletionTokens
		}

		select {
		case <-ctx.Done():
			return "", llm.WrapTransport("openai", ctx.Err())
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		return "", llm.WrapTransport("openai", err)
	}

	c.recordUsage(inputTokens, outputTokens)
	return content.String(), nil
}

// HealthCheck probes the models endpoint with the configured credentials.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if c.apiKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	base := strings.TrimSuffix(c.endpoint, "/chat/completions")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
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

func (c *Client) buildRequest(prompt string, opts types.GenerateOptions, stream bool) chatRequest {
	var messages []apiMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, apiMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, apiMessage{Role: "user", Content: prompt})

	temperature := c.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := c.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	return chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      stream,
	}
}

func (c *Client) send(ctx context.Context, req chatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, llm.NewError("openai", llm.ErrInvalidResponse, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewError("openai", llm.ErrTransport, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.WrapTransport("openai", err)
	}
	return httpResp, nil
}

// OpenAI API types

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []apiMessage   `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Temperature   float64        `json:"temperature,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      apiMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Usage apiUsage `json:"usage"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *apiUsage `json:"usage,omitempty"`
}

// Ensure Client implements the provider contracts.
var _ types.Provider = (*Client)(nil)
var _ types.UsageReporter = (*Client)(nil)
