// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/teradata-labs/horde/pkg/types"
)

// handleExecuteSSE is the streaming fallback for clients that cannot hold a
// WebSocket. Frames use the same shapes as /ws, one SSE event per frame.
func (s *Server) handleExecuteSSE(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Goblin == "" || req.Task == "" {
		writeError(w, http.StatusBadRequest, "goblin and task are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	send := func(frame wsFrame) {
		payload, err := json.Marshal(frame)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	send(newFrame("start", req.Goblin))

	resp, err := s.runtime.Executor.Execute(r.Context(), types.TaskRequest{
		AgentID: req.Goblin,
		Task:    req.Task,
		Context: req.Context,
		DryRun:  req.DryRun,
	}, func(chunk string) {
		frame := newFrame("chunk", req.Goblin)
		frame.Data = chunk
		send(frame)
	})
	if err != nil {
		s.logger.Warn("SSE execute failed", zap.String("goblin", req.Goblin), zap.Error(err))
		frame := newFrame("error", req.Goblin)
		frame.Error = err.Error()
		send(frame)
		return
	}

	frame := newFrame("complete", req.Goblin)
	frame.Data = resp
	send(frame)
}
