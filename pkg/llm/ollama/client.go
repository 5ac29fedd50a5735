// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package ollama implements the provider contract against a local Ollama
// server. It is the zero-cost "local" brain in the router alias table.
package ollama

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

// Client implements the Provider interface for Ollama.
type Client struct {
	endpoint    string
	model       string
	httpClient  *http.Client
	maxTokens   int
	temperature float64

	mu        sync.Mutex
	lastUsage usage
}

type usage struct {
	input  int
	output int
	ok     bool
}

// Config holds configuration for the Ollama client.
type Config struct {
	Endpoint    string        // Default: http://localhost:11434
	Model       string        // Default: llama3.1
	MaxTokens   int           // Default: 4096
	Temperature float64       // Default: 0.7
	Timeout     time.Duration // Default: 120s
}

// NewClient creates a new Ollama client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
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
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
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
	return "ollama"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate produces the full completion for a prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts types.GenerateOptions) (string, error) {
	req := c.buildRequest(prompt, opts, false)

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return "", err
	}

	c.recordUsage(resp.PromptEvalCount, resp.EvalCount)
	return resp.Message.Content, nil
}

// GenerateStream streams the completion chunk by chunk over Ollama's
// newline-delimited JSON protocol.
func (c *Client) GenerateStream(ctx context.Context, prompt string, opts types.GenerateOptions, cb types.TokenCallback) (string, error) {
	req := c.buildRequest(prompt, opts, true)

	body, err := json.Marshal(req)
	if err != nil {
		return "", llm.NewError("ollama", llm.ErrInvalidResponse, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", llm.NewError("ollama", llm.ErrTransport, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", llm.WrapTransport("ollama", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", llm.ErrorFromStatus("ollama", httpResp.StatusCode, string(respBody))
	}

	var content strings.Builder
	var last chatResponse

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var chunk chatResponse
		if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
			// Skip malformed lines but continue processing.
			continue
		}

		if chunk.Message.Content != "" {
			content.WriteString(chunk.Message.Content)
			if cb != nil {
				cb(chunk.Message.Content)
			}
		}
		if chunk.Done {
			last = chunk
		}

		select {
		case <-ctx.Done():
			return "", llm.WrapTransport("ollama", ctx.Err())
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		return "", llm.WrapTransport("ollama", err)
	}

	c.recordUsage(last.PromptEvalCount, last.EvalCount)
	return content.String(), nil
}

// HealthCheck probes the Ollama tags endpoint.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
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
	return c.lastUsage.input, c.lastUsage.output, c.lastUsage.ok
}

func (c *Client) recordUsage(input, output int) {
	c.mu.Lock()
	c.lastUsage = usage{input: input, output: output, ok: input > 0 || output > 0}
	c.mu.Unlock()
}

func (c *Client) buildRequest(prompt string, opts types.GenerateOptions, stream bool) chatRequest {
	var messages []ollamaMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: prompt})

	temperature := c.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := c.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	return chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   stream,
		Options: map[string]interface{}{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}
}

// callAPI makes a blocking HTTP request to Ollama.
func (c *Client) callAPI(ctx context.Context, req chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, llm.NewError("ollama", llm.ErrInvalidResponse, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewError("ollama", llm.ErrTransport, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.WrapTransport("ollama", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, llm.WrapTransport("ollama", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, llm.ErrorFromStatus("ollama", httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, llm.NewError("ollama", llm.ErrInvalidResponse, "failed to unmarshal response", err)
	}

	return &resp, nil
}

// Ollama API types

type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string        `json:"model"`
	CreatedAt       string        `json:"created_at"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// Ensure Client implements the provider contracts.
var _ types.Provider = (*Client)(nil)
var _ types.UsageReporter = (*Client)(nil)
