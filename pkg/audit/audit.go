// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package audit emits fire-and-forget event records to an external HTTP
// sink. Delivery is best-effort: failures are logged and never surface to
// the caller, and sends never block the task path.
package audit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is one audit record. Context carries free-form event detail.
type Event struct {
	EventID    string            `json:"event_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Actor      string            `json:"actor"`
	Action     string            `json:"action"`
	Context    map[string]string `json:"context,omitempty"`
}

// Sink posts events to a configured HTTP endpoint. A Sink with an empty URL
// is a no-op, so callers never need a nil check.
type Sink struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSink creates a sink for the given URL. Pass "" to disable auditing.
func NewSink(url string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		url:        url,
		httpClient: &http.Client{Timeout: 3 * time.Second},
		logger:     logger,
	}
}

// Enabled reports whether events will actually be sent.
func (s *Sink) Enabled() bool {
	return s.url != ""
}

// Send dispatches an event asynchronously. The event id and timestamp are
// filled in when absent. Send returns immediately.
func (s *Sink) Send(event Event) {
	if s.url == "" {
		return
	}
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	go func() {
		body, err := json.Marshal(event)
		if err != nil {
			s.logger.Warn("Failed to encode audit event", zap.Error(err))
			return
		}

		resp, err := s.httpClient.Post(s.url, "application/json", bytes.NewReader(body))
		if err != nil {
			s.logger.Warn("Audit sink unreachable", zap.String("action", event.Action), zap.Error(err))
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			s.logger.Warn("Audit sink rejected event", zap.String("action", event.Action), zap.Int("status", resp.StatusCode))
		}
	}()
}
