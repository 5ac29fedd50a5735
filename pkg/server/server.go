// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package server exposes the runtime over HTTP and WebSocket: task
// execution, orchestration, history, stats, and cost reporting.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/horde/pkg/costs"
	"github.com/teradata-labs/horde/pkg/executor"
	"github.com/teradata-labs/horde/pkg/guild"
	"github.com/teradata-labs/horde/pkg/history"
	"github.com/teradata-labs/horde/pkg/orchestration"
	"github.com/teradata-labs/horde/pkg/types"
)

// Runtime owns all long-lived state: the catalog, the provider map, and the
// mutable trackers. Handlers borrow read access; mutation goes through the
// owned components' methods.
type Runtime struct {
	Catalog   *guild.Catalog
	Providers map[string]types.Provider
	Executor  *executor.Executor
	Costs     *costs.Tracker
	History   *history.Store
	Plans     *orchestration.Manager
	Steps     *orchestration.Scheduler
}

// StartPlan registers a plan and executes it in the background. Used by the
// cron scheduler; HTTP execute runs plans synchronously instead.
func (rt *Runtime) StartPlan(ctx context.Context, plan *orchestration.Plan) {
	rt.Plans.Add(plan)
	go rt.Steps.Execute(ctx, plan)
}

// NewStepRunner adapts the task executor to the orchestration scheduler.
// A step's output is the model reasoning plus any tool output; executor
// errors (unknown agent) fail the step with the error text as output.
func NewStepRunner(exec *executor.Executor) orchestration.StepRunner {
	return orchestration.StepRunnerFunc(func(ctx context.Context, goblin, task string) orchestration.StepResult {
		resp, err := exec.Execute(ctx, types.TaskRequest{AgentID: goblin, Task: task}, nil)
		if err != nil {
			return orchestration.StepResult{
				Output: "Error: " + err.Error(),
				Error:  err.Error(),
			}
		}

		output := resp.Reasoning
		if resp.ToolExecution != nil && resp.ToolExecution.Output != "" {
			output += "\n" + resp.ToolExecution.Output
		}
		result := orchestration.StepResult{
			Output:     output,
			DurationMs: resp.DurationMs,
			Succeeded:  resp.Succeeded,
		}
		if !resp.Succeeded {
			result.Error = resp.Reasoning
		}
		return result
	})
}

// Config holds server configuration.
type Config struct {
	Port          int  // Default: 3001
	AuthEnabled   bool //
	JWTSecret     string
	DashboardUser string
	DashboardPass string

	// RateLimitPerMinute is the per-IP request budget. Default: 100.
	RateLimitPerMinute int

	CORS CORSConfig
}

// Server is the HTTP/WebSocket front end.
type Server struct {
	runtime    *Runtime
	cfg        Config
	logger     *zap.Logger
	httpServer *http.Server
	limiter    *ipLimiter
}

// New creates a server. The runtime must be fully constructed.
func New(runtime *Runtime, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Port == 0 {
		cfg.Port = 3001
	}
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 100
	}
	if cfg.CORS.AllowedOrigins == nil {
		cfg.CORS = DefaultCORSConfig()
	}

	s := &Server{
		runtime: runtime,
		cfg:     cfg,
		logger:  logger,
		limiter: newIPLimiter(cfg.RateLimitPerMinute),
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler builds the route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/goblins", s.handleGoblins)
	mux.HandleFunc("POST /api/execute", s.handleExecute)
	mux.HandleFunc("POST /api/execute/stream", s.handleExecuteSSE)
	mux.HandleFunc("GET /api/history/{agent}", s.handleHistory)
	mux.HandleFunc("GET /api/stats/{agent}", s.handleStats)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/orchestrate/parse", s.handleOrchestrateParse)
	mux.HandleFunc("POST /api/orchestrate/execute", s.handleOrchestrateExecute)
	mux.HandleFunc("GET /api/orchestrate/plans", s.handlePlans)
	mux.HandleFunc("GET /api/orchestrate/plans/{id}", s.handlePlan)
	mux.HandleFunc("POST /api/orchestrate/cancel/{id}", s.handleCancel)
	mux.HandleFunc("GET /api/costs/summary", s.handleCostSummary)
	mux.HandleFunc("GET /api/costs/goblin/{id}", s.handleCostGoblin)
	mux.HandleFunc("GET /api/costs/guild/{id}", s.handleCostGuild)
	mux.HandleFunc("GET /api/costs/export", s.handleCostExport)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.rateLimitMiddleware(handler)
	handler = s.corsMiddleware(handler)
	return handler
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop drains and shuts down the listener.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
