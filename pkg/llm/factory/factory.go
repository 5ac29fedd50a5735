// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package factory initializes LLM providers from the environment and picks
// the provider an agent's brain preferences call for.
package factory

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/teradata-labs/horde/pkg/llm/anthropic"
	"github.com/teradata-labs/horde/pkg/llm/gemini"
	"github.com/teradata-labs/horde/pkg/llm/ollama"
	"github.com/teradata-labs/horde/pkg/llm/openai"
	"github.com/teradata-labs/horde/pkg/types"
	"go.uber.org/zap"
)

// ErrNoProviderAvailable is returned by Select when no initialized provider
// can serve the agent.
var ErrNoProviderAvailable = errors.New("no LLM provider available")

// LocalProvider is the canonical name of the local backend.
const LocalProvider = "ollama"

// defaultCloudProvider is preferred when an agent expresses no usable
// preference and the local backend is absent.
const defaultCloudProvider = "openai"

// aliases maps brain router identifiers to canonical provider names.
// Matching is case-insensitive.
var aliases = map[string]string{
	"ollama":    "ollama",
	"local":     "ollama",
	"anthropic": "anthropic",
	"claude":    "anthropic",
	"openai":    "openai",
	"gpt":       "openai",
	"gemini":    "gemini",
	"google":    "gemini",
}

// Resolve maps a router identifier to its canonical provider name.
// Returns false for identifiers outside the known set.
func Resolve(router string) (string, bool) {
	name, ok := aliases[strings.ToLower(strings.TrimSpace(router))]
	return name, ok
}

// Config holds configuration for provider detection.
type Config struct {
	OllamaEndpoint  string
	OllamaModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	GeminiAPIKey    string
	GeminiModel     string
	Timeout         time.Duration
	Logger          *zap.Logger
}

// ConfigFromEnv builds a detection config from the conventional variables.
func ConfigFromEnv() Config {
	return Config{
		OllamaEndpoint:  os.Getenv("OLLAMA_ENDPOINT"),
		OllamaModel:     os.Getenv("OLLAMA_MODEL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
	}
}

// Detect initializes every provider whose credentials (or endpoint, for the
// local backend) are present and passes a health check. The returned map is
// keyed by canonical provider name and may be empty.
func Detect(ctx context.Context, cfg Config) map[string]types.Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	providers := make(map[string]types.Provider)

	// Local backend: probed even without explicit configuration, since a
	// default Ollama install listens on localhost.
	local := ollama.NewClient(ollama.Config{
		Endpoint: cfg.OllamaEndpoint,
		Model:    cfg.OllamaModel,
		Timeout:  cfg.Timeout,
	})
	if local.HealthCheck(ctx) {
		providers["ollama"] = local
		logger.Info("Provider initialized", zap.String("provider", "ollama"), zap.String("model", local.Model()))
	}

	if cfg.AnthropicAPIKey != "" {
		client := anthropic.NewClient(anthropic.Config{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.Timeout,
		})
		providers["anthropic"] = client
		logger.Info("Provider initialized", zap.String("provider", "anthropic"), zap.String("model", client.Model()))
	}

	if cfg.OpenAIAPIKey != "" {
		client := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.Timeout,
		})
		providers["openai"] = client
		logger.Info("Provider initialized", zap.String("provider", "openai"), zap.String("model", client.Model()))
	}

	if cfg.GeminiAPIKey != "" {
		client := gemini.NewClient(gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.Timeout,
		})
		providers["gemini"] = client
		logger.Info("Provider initialized", zap.String("provider", "gemini"), zap.String("model", client.Model()))
	}

	return providers
}

// Select picks the provider for an agent given its brain preferences.
//
// Preference order: the agent's routers in declared order, then the local
// backend when prefersLocal is set, then the default cloud provider, then
// any initialized provider in deterministic name order.
func Select(routers []string, prefersLocal bool, providers map[string]types.Provider) (types.Provider, error) {
	for _, router := range routers {
		name, known := Resolve(router)
		if !known {
			continue
		}
		if p, ok := providers[name]; ok {
			return p, nil
		}
	}

	if prefersLocal {
		if p, ok := providers[LocalProvider]; ok {
			return p, nil
		}
	}

	if p, ok := providers[defaultCloudProvider]; ok {
		return p, nil
	}

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, ErrNoProviderAvailable
	}
	sort.Strings(names)
	return providers[names[0]], nil
}
