// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package types contains shared types used across the horde runtime.
// This package breaks import cycles by providing common types that the
// provider, executor and server packages all depend on.
package types

import (
	"context"
	"time"
)

// GenerateOptions carries the per-call knobs accepted by every provider.
// Zero values mean "use the provider's default".
type GenerateOptions struct {
	// SystemPrompt is prepended as the system message when non-empty.
	SystemPrompt string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens caps the generated output length.
	MaxTokens int
}

// TokenCallback is called for each text chunk during streaming generation.
// Implementations should be lightweight and non-blocking; the provider calls
// it synchronously between network reads.
type TokenCallback func(chunk string)

// Provider defines the contract for LLM backends. Implementations are plain
// HTTP clients; the runtime holds them in a map keyed by Name().
type Provider interface {
	// Name returns the provider identifier (e.g. "ollama", "anthropic").
	Name() string

	// Model returns the model identifier this provider is configured with.
	Model() string

	// Generate produces the full completion for a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream produces the completion chunk by chunk, invoking cb for
	// each chunk as it arrives. The returned string is the concatenation of
	// every chunk passed to cb.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions, cb TokenCallback) (string, error)

	// HealthCheck reports whether the backend is reachable. Best effort,
	// bounded by the context deadline.
	HealthCheck(ctx context.Context) bool
}

// UsageReporter is implemented by providers that report token usage for the
// last completed call. Providers that cannot report usage have their token
// counts estimated by the executor.
type UsageReporter interface {
	// LastUsage returns input and output token counts for the most recent
	// Generate or GenerateStream call, and whether counts are available.
	LastUsage() (inputTokens, outputTokens int, ok bool)
}

// TaskRequest describes one unit of work addressed to a single agent.
type TaskRequest struct {
	AgentID string            `json:"agentId"`
	Task    string            `json:"task"`
	Context map[string]string `json:"context,omitempty"`
	DryRun  bool              `json:"dryRun,omitempty"`
}

// ToolExecutionResult records the outcome of a shell tool invocation.
// Output holds combined stdout and stderr. On dry runs Output is the
// sentinel "(dry-run)" and ExitCode is zero.
type ToolExecutionResult struct {
	ToolID    string `json:"toolId"`
	Command   string `json:"command"`
	Output    string `json:"output"`
	ExitCode  int    `json:"exitCode"`
	Succeeded bool   `json:"succeeded"`
}

// TaskResponse is the terminal record of a task execution. Provider and
// Model identify the backend that served the call; empty when no provider
// call completed.
type TaskResponse struct {
	AgentID       string               `json:"agentId"`
	Task          string               `json:"task"`
	ToolExecution *ToolExecutionResult `json:"toolExecution,omitempty"`
	Reasoning     string               `json:"reasoning"`
	Provider      string               `json:"provider,omitempty"`
	Model         string               `json:"model,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
	DurationMs    int64                `json:"durationMs"`
	Succeeded     bool                 `json:"succeeded"`
	KPIs          map[string]float64   `json:"kpis"`
}

// HistoryEntry is one persisted record in an agent's task history.
type HistoryEntry struct {
	ID        string             `json:"id"`
	AgentID   string             `json:"agentId"`
	Task      string             `json:"task"`
	Reasoning string             `json:"reasoning"`
	Timestamp time.Time          `json:"timestamp"`
	KPIs      map[string]float64 `json:"kpis"`
	Succeeded bool               `json:"succeeded"`
}
