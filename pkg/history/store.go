// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package history persists per-agent task history in SQLite. The store is
// append-only; retrieval is bounded and newest-first.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teradata-labs/horde/pkg/types"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id         TEXT PRIMARY KEY,
	agent_id   TEXT NOT NULL,
	task       TEXT NOT NULL,
	reasoning  TEXT NOT NULL DEFAULT '',
	kpis       TEXT NOT NULL DEFAULT '{}',
	succeeded  INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_agent_time ON history (agent_id, created_at DESC);
`

// DefaultRecentLimit bounds Recent when the caller passes limit <= 0.
const DefaultRecentLimit = 20

// Stats summarizes an agent's recorded history.
type Stats struct {
	AgentID       string  `json:"agentId"`
	TotalTasks    int     `json:"totalTasks"`
	Succeeded     int     `json:"succeeded"`
	SuccessRate   float64 `json:"successRate"`
	AvgDurationMs float64 `json:"avgDurationMs"`
}

// Store is a SQLite-backed history store. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the history database at path. Use ":memory:" for
// an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	// modernc's driver serializes writes per connection; a single connection
	// avoids SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one completed task. A missing id or timestamp is filled in.
func (s *Store) Append(ctx context.Context, entry types.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	kpis := entry.KPIs
	if kpis == nil {
		kpis = map[string]float64{}
	}
	kpisJSON, err := json.Marshal(kpis)
	if err != nil {
		return fmt.Errorf("failed to encode kpis: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history (id, agent_id, task, reasoning, kpis, succeeded, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AgentID, entry.Task, entry.Reasoning, string(kpisJSON), boolToInt(entry.Succeeded), entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for the agent, newest first. Ties on
// created_at break on insertion order (rowid) so ordering stays stable.
func (s *Store) Recent(ctx context.Context, agentID string, limit int) ([]types.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, task, reasoning, kpis, succeeded, created_at
		 FROM history WHERE agent_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		var kpisJSON string
		var succeeded int
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Task, &e.Reasoning, &kpisJSON, &succeeded, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Succeeded = succeeded != 0
		if err := json.Unmarshal([]byte(kpisJSON), &e.KPIs); err != nil {
			e.KPIs = map[string]float64{}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// StatsFor aggregates totals, success rate, and average duration_ms for the
// agent. Agents with no history return zeroes rather than an error.
func (s *Store) StatsFor(ctx context.Context, agentID string) (Stats, error) {
	stats := Stats{AgentID: agentID}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kpis, succeeded FROM history WHERE agent_id = ?`, agentID,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var durationSum float64
	var durationCount int
	for rows.Next() {
		var kpisJSON string
		var succeeded int
		if err := rows.Scan(&kpisJSON, &succeeded); err != nil {
			return stats, fmt.Errorf("failed to scan history row: %w", err)
		}

		stats.TotalTasks++
		if succeeded != 0 {
			stats.Succeeded++
		}

		var kpis map[string]float64
		if err := json.Unmarshal([]byte(kpisJSON), &kpis); err == nil {
			if d, ok := kpis["duration_ms"]; ok {
				durationSum += d
				durationCount++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if stats.TotalTasks > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.TotalTasks)
	}
	if durationCount > 0 {
		stats.AvgDurationMs = durationSum / float64(durationCount)
	}
	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
