// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/teradata-labs/horde/pkg/types"
)

// MockProvider is a scriptable provider for tests. It satisfies both the
// Provider and UsageReporter contracts.
type MockProvider struct {
	mu sync.Mutex

	// ProviderName and ModelName default to "mock" / "mock-model".
	ProviderName string
	ModelName    string

	// Chunks, when set, drives GenerateStream; Generate returns their
	// concatenation. When empty, Response is used as a single chunk.
	Chunks   []string
	Response string

	// Err, when set, is returned by both generate paths.
	Err error

	// Healthy drives HealthCheck (default true unless SetUnhealthy called).
	unhealthy bool

	// Usage reported after each call.
	InputTokens  int
	OutputTokens int

	// Calls records every prompt received, in order.
	Calls []string
}

// NewMockProvider returns a provider that always answers with response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

func (m *MockProvider) Generate(ctx context.Context, prompt string, opts types.GenerateOptions) (string, error) {
	return m.GenerateStream(ctx, prompt, opts, nil)
}

func (m *MockProvider) GenerateStream(ctx context.Context, prompt string, _ types.GenerateOptions, cb types.TokenCallback) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, prompt)
	err := m.Err
	chunks := m.Chunks
	response := m.Response
	m.mu.Unlock()

	if err != nil {
		return "", err
	}
	if len(chunks) == 0 && response != "" {
		chunks = []string{response}
	}

	var full strings.Builder
	for _, chunk := range chunks {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		full.WriteString(chunk)
		if cb != nil {
			cb(chunk)
		}
	}
	return full.String(), nil
}

func (m *MockProvider) HealthCheck(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unhealthy
}

// SetUnhealthy makes subsequent health checks fail.
func (m *MockProvider) SetUnhealthy() {
	m.mu.Lock()
	m.unhealthy = true
	m.mu.Unlock()
}

// LastUsage implements UsageReporter.
func (m *MockProvider) LastUsage() (int, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InputTokens == 0 && m.OutputTokens == 0 {
		return 0, 0, false
	}
	return m.InputTokens, m.OutputTokens, true
}

// CallCount returns how many generate calls were made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

var _ types.Provider = (*MockProvider)(nil)
var _ types.UsageReporter = (*MockProvider)(nil)
