// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/horde/pkg/llm"
	"github.com/teradata-labs/horde/pkg/types"
)

func named(name string) types.Provider {
	return &llm.MockProvider{ProviderName: name}
}

func TestResolveAliases(t *testing.T) {
	tests := map[string]string{
		"claude":    "anthropic",
		"Claude":    "anthropic",
		"gpt":       "openai",
		"google":    "gemini",
		"local":     "ollama",
		" ollama ":  "ollama",
		"anthropic": "anthropic",
	}
	for router, want := range tests {
		got, ok := Resolve(router)
		require.True(t, ok, "router %q", router)
		assert.Equal(t, want, got)
	}

	_, ok := Resolve("mistral")
	assert.False(t, ok)
}

func TestSelectRouterOrder(t *testing.T) {
	providers := map[string]types.Provider{
		"anthropic": named("anthropic"),
		"openai":    named("openai"),
	}

	p, err := Select([]string{"claude", "gpt"}, false, providers)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	// First router unavailable falls through to the second.
	p, err = Select([]string{"gemini", "gpt"}, false, providers)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestSelectUnknownRoutersSkipped(t *testing.T) {
	providers := map[string]types.Provider{"openai": named("openai")}

	p, err := Select([]string{"mistral", "gpt"}, false, providers)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestSelectPrefersLocal(t *testing.T) {
	providers := map[string]types.Provider{
		"ollama": named("ollama"),
		"openai": named("openai"),
	}

	p, err := Select(nil, true, providers)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	// Routers still take precedence over the local preference.
	p, err = Select([]string{"gpt"}, true, providers)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestSelectDefaultCloud(t *testing.T) {
	providers := map[string]types.Provider{
		"gemini": named("gemini"),
		"openai": named("openai"),
	}

	p, err := Select(nil, false, providers)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestSelectDeterministicFallback(t *testing.T) {
	providers := map[string]types.Provider{
		"gemini": named("gemini"),
		"ollama": named("ollama"),
	}

	// No routers, no local preference, no openai: first name in sorted order.
	for i := 0; i < 10; i++ {
		p, err := Select(nil, false, providers)
		require.NoError(t, err)
		assert.Equal(t, "gemini", p.Name())
	}
}

func TestSelectNoProviders(t *testing.T) {
	_, err := Select([]string{"claude"}, true, nil)
	assert.ErrorIs(t, err, ErrNoProviderAvailable)
}
