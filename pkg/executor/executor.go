// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package executor runs a single agent task end to end: prompt assembly,
// provider call, tool-selection heuristic, bounded subprocess execution, KPI
// capture, and history/cost/audit recording.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/horde/pkg/audit"
	"github.com/teradata-labs/horde/pkg/costs"
	"github.com/teradata-labs/horde/pkg/guild"
	"github.com/teradata-labs/horde/pkg/history"
	"github.com/teradata-labs/horde/pkg/llm"
	"github.com/teradata-labs/horde/pkg/llm/factory"
	"github.com/teradata-labs/horde/pkg/prompt"
	"github.com/teradata-labs/horde/pkg/types"
)

// actionVerbs trigger the tool heuristic when they appear as words in the
// task text.
var actionVerbs = map[string]bool{
	"start":   true,
	"run":     true,
	"build":   true,
	"test":    true,
	"deploy":  true,
	"execute": true,
}

// Config wires the executor's collaborators. Catalog and Providers are
// required; the rest degrade to no-ops when nil.
type Config struct {
	Catalog   *guild.Catalog
	Providers map[string]types.Provider
	Costs     *costs.Tracker
	History   *history.Store
	Audit     *audit.Sink
	Logger    *zap.Logger

	// Workdir is where tool subprocesses run. Empty means the process cwd.
	Workdir string

	// ToolTimeout bounds tool subprocesses. Zero means DefaultToolTimeout.
	ToolTimeout time.Duration
}

// Executor runs tasks. Re-entrant: concurrent Execute calls share no
// mutable state beyond the thread-safe collaborators.
type Executor struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an executor.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewSink("", logger)
	}
	return &Executor{cfg: cfg, logger: logger}
}

// Execute runs one task. A non-nil stream callback switches the provider
// call to streaming; every chunk is forwarded before the next is produced.
//
// An unknown agent id fails with guild.ErrAgentNotFound. Every other
// failure is folded into the response: succeeded=false and the reasoning
// set to "Error: <message>", with no tool executed.
func (e *Executor) Execute(ctx context.Context, req types.TaskRequest, stream types.TokenCallback) (*types.TaskResponse, error) {
	agent, err := e.cfg.Catalog.Agent(req.AgentID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	e.cfg.Audit.Send(audit.Event{
		Actor:   agent.ID,
		Action:  "task.start",
		Context: map[string]string{"task": req.Task, "guild": agent.Guild},
	})

	resp := e.run(ctx, agent, req, stream, start)

	resp.DurationMs = time.Since(start).Milliseconds()
	resp.Timestamp = time.Now().UTC()
	e.fillKPIs(agent, resp)

	e.record(ctx, agent, req, resp)
	e.cfg.Audit.Send(audit.Event{
		Actor:  agent.ID,
		Action: "task.complete",
		Context: map[string]string{
			"task":      req.Task,
			"succeeded": fmt.Sprintf("%t", resp.Succeeded),
		},
	})
	return resp, nil
}

// run performs the provider call and tool phase, folding failures into the
// response.
func (e *Executor) run(ctx context.Context, agent *guild.Agent, req types.TaskRequest, stream types.TokenCallback, start time.Time) *types.TaskResponse {
	resp := &types.TaskResponse{
		AgentID: agent.ID,
		Task:    req.Task,
	}

	provider, err := factory.Select(agent.Brain.Routers, agent.Brain.PrefersLocal, e.cfg.Providers)
	if err != nil {
		resp.Reasoning = "Error: " + err.Error()
		return resp
	}

	opts := types.GenerateOptions{SystemPrompt: prompt.System(agent)}
	userPrompt := prompt.User(req.Task, req.Context)

	var reasoning string
	if stream != nil {
		reasoning, err = provider.GenerateStream(ctx, userPrompt, opts, stream)
	} else {
		reasoning, err = provider.Generate(ctx, userPrompt, opts)
	}
	if err != nil {
		e.logger.Warn("Provider call failed",
			zap.String("agent", agent.ID),
			zap.String("provider", provider.Name()),
			zap.Error(err))
		resp.Reasoning = "Error: " + err.Error()
		return resp
	}
	resp.Reasoning = reasoning
	resp.Provider = provider.Name()
	resp.Model = provider.Model()

	if toolNeeded(req.Task, reasoning) {
		resp.ToolExecution = e.toolPhase(ctx, agent, req)
	}

	if resp.ToolExecution != nil {
		resp.Succeeded = resp.ToolExecution.Succeeded
	} else {
		resp.Succeeded = true
	}
	return resp
}

// toolPhase selects and (unless dry-run) executes the agent's tool. A
// selection miss or a permission denial yields no tool execution.
func (e *Executor) toolPhase(ctx context.Context, agent *guild.Agent, req types.TaskRequest) *types.ToolExecutionResult {
	tool, err := e.cfg.Catalog.SelectTool(agent, req.Task)
	if err != nil {
		e.logger.Warn("Tool selection denied",
			zap.String("agent", agent.ID),
			zap.Error(err))
		return nil
	}
	if tool == nil {
		return nil
	}

	e.cfg.Audit.Send(audit.Event{
		Actor:   agent.ID,
		Action:  "tool.invoke",
		Context: map[string]string{"tool": tool.ID, "command": tool.Command, "dryRun": fmt.Sprintf("%t", req.DryRun)},
	})

	if req.DryRun {
		return dryRunResult(tool.ID, tool.Command)
	}

	result := runTool(ctx, tool.ID, tool.Command, e.cfg.Workdir, e.cfg.ToolTimeout)
	return &result
}

// fillKPIs populates the standard KPI set plus zeroes for the agent's
// declared KPI names.
func (e *Executor) fillKPIs(agent *guild.Agent, resp *types.TaskResponse) {
	kpis := map[string]float64{
		"duration_ms":            float64(resp.DurationMs),
		"success":                0,
		"task_completion_time_s": float64(resp.DurationMs) / 1000,
	}
	if resp.Succeeded {
		kpis["success"] = 1
	}
	for _, name := range agent.KPIs {
		if _, ok := kpis[name]; !ok {
			kpis[name] = 0
		}
	}
	resp.KPIs = kpis
}

// record appends history and cost entries. Failures are logged; they never
// fail the task.
func (e *Executor) record(ctx context.Context, agent *guild.Agent, req types.TaskRequest, resp *types.TaskResponse) {
	if e.cfg.History != nil {
		err := e.cfg.History.Append(ctx, types.HistoryEntry{
			AgentID:   agent.ID,
			Task:      req.Task,
			Reasoning: resp.Reasoning,
			Timestamp: resp.Timestamp,
			KPIs:      resp.KPIs,
			Succeeded: resp.Succeeded,
		})
		if err != nil {
			e.logger.Warn("History append failed", zap.String("agent", agent.ID), zap.Error(err))
		}
	}

	if e.cfg.Costs != nil && resp.Provider != "" {
		input, output := e.usage(resp)
		e.cfg.Costs.Record(costs.Entry{
			AgentID:      agent.ID,
			Guild:        agent.Guild,
			Provider:     resp.Provider,
			Model:        resp.Model,
			Task:         req.Task,
			InputTokens:  input,
			OutputTokens: output,
			DurationMs:   resp.DurationMs,
			Success:      resp.Succeeded,
			Timestamp:    resp.Timestamp,
		})
	}
}

// usage reads the provider's reported token counts, falling back to a
// tiktoken estimate of the task and reasoning text.
func (e *Executor) usage(resp *types.TaskResponse) (int, int) {
	if p, ok := e.cfg.Providers[resp.Provider]; ok {
		if reporter, ok := p.(types.UsageReporter); ok {
			if input, output, ok := reporter.LastUsage(); ok {
				return input, output
			}
		}
	}
	counter := llm.GetTokenCounter()
	return counter.CountTokens(resp.Task), counter.CountTokens(resp.Reasoning)
}

// toolNeeded applies the tool-trigger heuristic: the model asked via the
// literal marker, or the task text contains an action verb.
func toolNeeded(taskText, modelText string) bool {
	if strings.Contains(modelText, prompt.ToolMarker) {
		return true
	}
	for _, word := range strings.Fields(strings.ToLower(taskText)) {
		if actionVerbs[strings.Trim(word, ".,!?;:\"'()")] {
			return true
		}
	}
	return false
}
