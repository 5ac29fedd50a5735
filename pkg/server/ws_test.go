// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/horde/pkg/llm"
	"github.com/teradata-labs/horde/pkg/types"
)

func dialWS(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketStreamingEquality(t *testing.T) {
	mock := &llm.MockProvider{Chunks: []string{"Hel", "lo ", "world"}}
	conn := dialWS(t, newTestServer(t, mock, Config{}))

	require.NoError(t, conn.WriteJSON(map[string]string{
		"goblin": "crafter",
		"task":   "greet the world",
	}))

	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "start", frame.Type)
	assert.Equal(t, "crafter", frame.Goblin)
	assert.NotEmpty(t, frame.Timestamp)

	var chunks []string
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.ReadJSON(&frame))
		require.Equal(t, "chunk", frame.Type)
		chunks = append(chunks, frame.Data.(string))
	}
	assert.Equal(t, []string{"Hel", "lo ", "world"}, chunks)

	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "complete", frame.Type)

	raw, err := json.Marshal(frame.Data)
	require.NoError(t, err)
	var resp types.TaskResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, "Hello world", resp.Reasoning)
	assert.Equal(t, strings.Join(chunks, ""), resp.Reasoning)
	assert.True(t, resp.Succeeded)
}

func TestWebSocketUnknownGoblin(t *testing.T) {
	conn := dialWS(t, newTestServer(t, llm.NewMockProvider("ok"), Config{}))

	require.NoError(t, conn.WriteJSON(map[string]string{
		"goblin": "nobody",
		"task":   "anything",
	}))

	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "start", frame.Type)
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame.Type)
	assert.Contains(t, frame.Error, "agent not found")

	// The connection survives for the next request.
	require.NoError(t, conn.WriteJSON(map[string]string{
		"goblin": "crafter",
		"task":   "hello",
	}))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "start", frame.Type)
}

func TestWebSocketValidation(t *testing.T) {
	conn := dialWS(t, newTestServer(t, llm.NewMockProvider("ok"), Config{}))

	require.NoError(t, conn.WriteJSON(map[string]string{"goblin": "crafter"}))

	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame.Type)
	assert.Contains(t, frame.Error, "required")
}

func TestSSEStreaming(t *testing.T) {
	mock := &llm.MockProvider{Chunks: []string{"Hel", "lo ", "world"}}
	s := newTestServer(t, mock, Config{})

	body, err := json.Marshal(map[string]string{"goblin": "crafter", "task": "greet"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/execute/stream", bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.1:50000"
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var frames []wsFrame
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame wsFrame
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
		frames = append(frames, frame)
	}

	require.Len(t, frames, 5)
	assert.Equal(t, "start", frames[0].Type)
	assert.Equal(t, "chunk", frames[1].Type)
	assert.Equal(t, "Hel", frames[1].Data)
	assert.Equal(t, "complete", frames[4].Type)
}
