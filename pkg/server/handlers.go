// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/horde/pkg/costs"
	"github.com/teradata-labs/horde/pkg/orchestration"
	"github.com/teradata-labs/horde/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"initialized": len(s.runtime.Providers) > 0,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// goblinView is the public listing shape for one agent.
type goblinView struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Guild            string   `json:"guild"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	KPIs             []string `json:"kpis,omitempty"`
	Tools            []string `json:"tools"`
}

func (s *Server) handleGoblins(w http.ResponseWriter, _ *http.Request) {
	agents := s.runtime.Catalog.Agents()
	out := make([]goblinView, 0, len(agents))
	for _, a := range agents {
		tools := a.OwnedTools
		if tools == nil {
			tools = []string{}
		}
		out = append(out, goblinView{
			ID:               a.ID,
			Title:            a.Title,
			Guild:            a.Guild,
			Responsibilities: a.Responsibilities,
			KPIs:             a.KPIs,
			Tools:            tools,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// executeRequest is the wire shape for task execution.
type executeRequest struct {
	Goblin  string            `json:"goblin"`
	Task    string            `json:"task"`
	Context map[string]string `json:"context,omitempty"`
	DryRun  bool              `json:"dryRun,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Goblin == "" || req.Task == "" {
		writeError(w, http.StatusBadRequest, "goblin and task are required")
		return
	}

	resp, err := s.runtime.Executor.Execute(r.Context(), types.TaskRequest{
		AgentID: req.Goblin,
		Task:    req.Task,
		Context: req.Context,
		DryRun:  req.DryRun,
	}, nil)
	if err != nil {
		// Unknown agent has always surfaced as a 500 here; dashboard
		// clients depend on it.
		s.logger.Warn("Execute failed", zap.String("goblin", req.Goblin), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.runtime.History.Recent(r.Context(), agentID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent")

	stats, err := s.runtime.History.StatsFor(r.Context(), agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	recent, err := s.runtime.History.Recent(r.Context(), agentID, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recent == nil {
		recent = []types.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalTasks":      stats.TotalTasks,
		"successfulTasks": stats.Succeeded,
		"failedTasks":     stats.TotalTasks - stats.Succeeded,
		"successRate":     stats.SuccessRate,
		"avgDuration":     stats.AvgDurationMs,
		"recentTasks":     recent,
	})
}

// orchestrateRequest is the wire shape for plan parse/execute.
type orchestrateRequest struct {
	Text            string `json:"text"`
	DefaultGoblinID string `json:"defaultGoblinId,omitempty"`
}

func (s *Server) parsePlan(w http.ResponseWriter, r *http.Request) *orchestration.Plan {
	var req orchestrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil
	}

	plan, err := orchestration.Parse(req.Text, req.DefaultGoblinID)
	if err != nil {
		var parseErr *orchestration.ParseError
		if errors.As(err, &parseErr) {
			writeError(w, http.StatusBadRequest, parseErr.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil
	}
	return plan
}

func (s *Server) handleOrchestrateParse(w http.ResponseWriter, r *http.Request) {
	plan := s.parsePlan(w, r)
	if plan == nil {
		return
	}
	s.runtime.Plans.Add(plan)
	writeJSON(w, http.StatusOK, plan.Snapshot())
}

func (s *Server) handleOrchestrateExecute(w http.ResponseWriter, r *http.Request) {
	plan := s.parsePlan(w, r)
	if plan == nil {
		return
	}
	s.runtime.Plans.Add(plan)
	s.runtime.Steps.Execute(r.Context(), plan)
	writeJSON(w, http.StatusOK, plan.Snapshot())
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	status := orchestration.PlanStatus(r.URL.Query().Get("status"))
	writeJSON(w, http.StatusOK, s.runtime.Plans.List(status))
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.runtime.Plans.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok := s.runtime.Plans.Cancel(id)
	if !ok {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "planId": id})
}

func (s *Server) handleCostSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	summary := s.runtime.Costs.Summarize(costs.Query{
		AgentID: q.Get("goblinId"),
		Guild:   q.Get("guildId"),
		Limit:   limit,
	})
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCostGoblin(w http.ResponseWriter, r *http.Request) {
	summary := s.runtime.Costs.Summarize(costs.Query{AgentID: r.PathValue("id")})
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCostGuild(w http.ResponseWriter, r *http.Request) {
	summary := s.runtime.Costs.Summarize(costs.Query{Guild: r.PathValue("id")})
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCostExport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="costs.csv"`)
	if err := s.runtime.Costs.ExportCSV(w); err != nil {
		s.logger.Error("CSV export failed", zap.Error(err))
	}
}
