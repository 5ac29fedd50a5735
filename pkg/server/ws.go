// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teradata-labs/horde/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The REST middleware already applies CORS policy; the upgrade itself
	// accepts any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsFrame is one message pushed to a WebSocket client.
type wsFrame struct {
	Type      string `json:"type"` // start | chunk | complete | error
	Goblin    string `json:"goblin"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func newFrame(frameType, goblin string) wsFrame {
	return wsFrame{
		Type:      frameType,
		Goblin:    goblin,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// handleWebSocket upgrades the connection and serves execute requests over
// it. Each request streams: one start frame, a chunk frame per token, then
// complete with the full TaskResponse (or a single error frame). The
// connection stays open for further requests.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		var req executeRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		if req.Goblin == "" || req.Task == "" {
			frame := newFrame("error", req.Goblin)
			frame.Error = "goblin and task are required"
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
			continue
		}

		if !s.streamTask(r.Context(), conn, req) {
			return
		}
	}
}

// streamTask executes one task over the socket, pushing each chunk before
// the provider produces the next. Returns false when the socket is dead.
func (s *Server) streamTask(ctx context.Context, conn *websocket.Conn, req executeRequest) bool {
	if err := conn.WriteJSON(newFrame("start", req.Goblin)); err != nil {
		return false
	}

	writeFailed := false
	resp, err := s.runtime.Executor.Execute(ctx, types.TaskRequest{
		AgentID: req.Goblin,
		Task:    req.Task,
		Context: req.Context,
		DryRun:  req.DryRun,
	}, func(chunk string) {
		if writeFailed {
			return
		}
		frame := newFrame("chunk", req.Goblin)
		frame.Data = chunk
		if err := conn.WriteJSON(frame); err != nil {
			writeFailed = true
		}
	})
	if writeFailed {
		return false
	}

	if err != nil {
		frame := newFrame("error", req.Goblin)
		frame.Error = err.Error()
		return conn.WriteJSON(frame) == nil
	}

	frame := newFrame("complete", req.Goblin)
	frame.Data = resp
	return conn.WriteJSON(frame) == nil
}
