// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package gemini implements the provider contract against the Google
// Generative Language API.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/teradata-labs/horde/pkg/llm"
	"github.com/teradata-labs/horde/pkg/types"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements the Provider interface for Gemini.
type Client struct {
	baseURL     string
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

// Config holds configuration for the Gemini client.
type Config struct {
	APIKey      string
	BaseURL     string        // Default: the public v1beta API
	Model       string        // Default: gemini-1.5-pro
	MaxTokens   int           // Default: 4096
	Temperature float64       // Default: 0.7
	Timeout     time.Duration // Default: 120s
}

// NewClient creates a new Gemini client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
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
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
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
	return "gemini"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate produces the full completion for a prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts types.GenerateOptions) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	httpResp, err := c.send(ctx, url, c.buildRequest(prompt, opts))
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", llm.WrapTransport("gemini", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", llm.ErrorFromStatus("gemini", httpResp.StatusCode, string(respBody))
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", llm.NewError("gemini", llm.ErrInvalidResponse, "failed to unmarshal response", err)
	}
	if len(resp.Candidates) == 0 {
		return "", llm.NewError("gemini", llm.ErrInvalidResponse, "response contained no candidates", nil)
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}

	c.recordUsage(resp.UsageMetadata.PromptTokenCount, resp.UsageMetadata.CandidatesTokenCount)
	return content.String(), nil
}

// GenerateStream streams the completion via streamGenerateContent with SSE.
func (c *Client) GenerateStream(ctx context.Context, prompt string, opts types.GenerateOptions, cb types.TokenCallback) (string, error) {
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, c.model, c.apiKey)

	httpResp, err := c.send(ctx, url, c.buildRequest(prompt, opts))
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", llm.ErrorFromStatus("gemini", httpResp.StatusCode, string(respBody))
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

		var chunk generateResponse
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &chunk); err != nil {
			continue
		}

		if len(chunk.Candidates) > 0 {
			for _, part := range chunk.Candidates[0].Content.Parts {
				if part.Text == "" {
					continue
				}
				content.WriteString(part.Text)
				if cb != nil {
					cb(part.Text)
				}
			}
		}
		if chunk.UsageMetadata.PromptTokenCount > 0 {
			inputTokens = chunk.UsageMetadata.PromptTokenCount
			outputTokens = chunk.UsageMetadata.CandidatesTokenCount
		}

		select {
		case <-ctx.Done():
			return "", llm.WrapTransport("gemini", ctx.Err())
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		return "", llm.WrapTransport("gemini", err)
	}

	c.recordUsage(inputTokens, outputTokens)
	return content.String(), nil
}

// HealthCheck probes the model metadata endpoint.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if c.apiKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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
	return c.lastInput, c.lastOut, c.lastOK
}

func (c *Client) recordUsage(input, output int) {
	c.mu.Lock()
	c.lastInput, c.lastOut = input, output
	c.lastOK = input > 0 || output > 0
	c.mu.Unlock()
}

func (c *Client) buildRequest(prompt string, opts types.GenerateOptions) generateRequest {
	temperature := c.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := c.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	req := generateRequest{
		Contents: []apiContent{
			{Role: "user", Parts: []apiPart{{Text: prompt}}},
		},
		GenerationConfig: &generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if opts.SystemPrompt != "" {
		req.SystemInstruction = &apiContent{Parts: []apiPart{{Text: opts.SystemPrompt}}}
	}
	return req
}

func (c *Client) send(ctx context.Context, url string, req generateRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, llm.NewError("gemini", llm.ErrInvalidResponse, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewError("gemini", llm.ErrTransport, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.WrapTransport("gemini", err)
	}
	return httpResp, nil
}

// Gemini API types

type generateRequest struct {
	Contents          []apiContent      `json:"contents"`
	SystemInstruction *apiContent       `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      apiContent `json:"content"`
		FinishReason string     `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Ensure Client implements the provider contracts.
var _ types.Provider = (*Client)(nil)
var _ types.UsageReporter = (*Client)(nil)
