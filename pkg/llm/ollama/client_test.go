// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/horde/pkg/llm"
	"github.com/teradata-labs/horde/pkg/types"
)

func TestGenerate(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(chatResponse{
			Message:         ollamaMessage{Role: "assistant", Content: "hello"},
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       3,
		})
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Model: "llama3.1"})
	out, err := c.Generate(context.Background(), "say hello", types.GenerateOptions{
		SystemPrompt: "be brief",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.False(t, gotReq.Stream)

	in, outTok, ok := c.LastUsage()
	require.True(t, ok)
	assert.Equal(t, 12, in)
	assert.Equal(t, 3, outTok)
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		enc := json.NewEncoder(w)
		for _, word := range []string{"one ", "two ", "three"} {
			enc.Encode(chatResponse{Message: ollamaMessage{Content: word}})
		}
		enc.Encode(chatResponse{Done: true, PromptEvalCount: 5, EvalCount: 3})
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL})
	var chunks []string
	out, err := c.GenerateStream(context.Background(), "count", types.GenerateOptions{}, func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, "one two three", out)
	assert.Equal(t, []string{"one ", "two ", "three"}, chunks)

	in, outTok, ok := c.LastUsage()
	require.True(t, ok)
	assert.Equal(t, 5, in)
	assert.Equal(t, 3, outTok)
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL})
	_, err := c.Generate(context.Background(), "hi", types.GenerateOptions{})
	require.Error(t, err)

	var perr *llm.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, llm.ErrInvalidResponse, perr.Kind)
	assert.Equal(t, "ollama", perr.Provider)
}

func TestGenerateTransportError(t *testing.T) {
	c := NewClient(Config{Endpoint: "http://127.0.0.1:1"})
	_, err := c.Generate(context.Background(), "hi", types.GenerateOptions{})

	var perr *llm.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, llm.ErrTransport, perr.Kind)
	assert.True(t, perr.Retryable())
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			fmt.Fprint(w, `{"models":[]}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.True(t, NewClient(Config{Endpoint: srv.URL}).HealthCheck(context.Background()))
	assert.False(t, NewClient(Config{Endpoint: "http://127.0.0.1:1"}).HealthCheck(context.Background()))
}

func TestDefaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, "ollama", c.Name())
	assert.Equal(t, "llama3.1", c.Model())
	assert.Equal(t, "http://localhost:11434", c.endpoint)
}
