// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package costs

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxEntries bounds the in-memory ledger; the oldest entry is dropped on
// overflow.
const MaxEntries = 10000

// DefaultRecentLimit is the recent_entries count when a summary query does
// not specify one.
const DefaultRecentLimit = 10

// Entry is one recorded LLM call.
type Entry struct {
	ID           string    `json:"id"`
	AgentID      string    `json:"agentId"`
	Guild        string    `json:"guild"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Task         string    `json:"task"`
	InputTokens  int       `json:"inputTokens"`
	OutputTokens int       `json:"outputTokens"`
	DurationMs   int64     `json:"durationMs"`
	Success      bool      `json:"success"`
	Cost         float64   `json:"cost"`
	Timestamp    time.Time `json:"timestamp"`
}

// Tokens aggregates token counts in a summary bucket.
type Tokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Bucket is one aggregate line in a summary (per provider, agent, or guild).
type Bucket struct {
	Cost   float64 `json:"cost"`
	Tasks  int     `json:"tasks"`
	Tokens Tokens  `json:"tokens"`
}

// Query filters a summary. Zero values mean "no filter".
type Query struct {
	AgentID string
	Guild   string
	Limit   int
}

// Summary is the result of a summary query. All aggregates respect the
// query's filters.
type Summary struct {
	TotalCost      float64           `json:"totalCost"`
	TotalTasks     int               `json:"totalTasks"`
	AvgCostPerTask float64           `json:"avgCostPerTask"`
	ByProvider     map[string]Bucket `json:"byProvider"`
	ByAgent        map[string]Bucket `json:"byAgent"`
	ByGuild        map[string]Bucket `json:"byGuild"`
	RecentEntries  []Entry           `json:"recentEntries"`
}

// Tracker is the bounded cost ledger. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries []Entry
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record appends an entry, computing its cost from the pricing table and
// filling in id/timestamp when absent. The oldest entry is evicted once the
// ledger holds MaxEntries.
func (t *Tracker) Record(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Cost = Cost(entry.Provider, entry.Model, entry.InputTokens, entry.OutputTokens)

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) >= MaxEntries {
		t.entries = t.entries[1:]
	}
	t.entries = append(t.entries, entry)
	return entry
}

// Len reports how many entries are retained.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Summarize runs a summary query over the retained entries.
func (t *Tracker) Summarize(q Query) Summary {
	if q.Limit <= 0 {
		q.Limit = DefaultRecentLimit
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	summary := Summary{
		ByProvider: make(map[string]Bucket),
		ByAgent:    make(map[string]Bucket),
		ByGuild:    make(map[string]Bucket),
	}

	var matched []Entry
	for _, e := range t.entries {
		if q.AgentID != "" && e.AgentID != q.AgentID {
			continue
		}
		if q.Guild != "" && e.Guild != q.Guild {
			continue
		}
		matched = append(matched, e)

		summary.TotalCost += e.Cost
		summary.TotalTasks++
		accumulate(summary.ByProvider, e.Provider, e)
		accumulate(summary.ByAgent, e.AgentID, e)
		accumulate(summary.ByGuild, e.Guild, e)
	}

	if summary.TotalTasks > 0 {
		summary.AvgCostPerTask = summary.TotalCost / float64(summary.TotalTasks)
	}

	start := len(matched) - q.Limit
	if start < 0 {
		start = 0
	}
	// Newest first.
	recent := matched[start:]
	summary.RecentEntries = make([]Entry, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		summary.RecentEntries = append(summary.RecentEntries, recent[i])
	}
	return summary
}

func accumulate(buckets map[string]Bucket, key string, e Entry) {
	b := buckets[key]
	b.Cost += e.Cost
	b.Tasks++
	b.Tokens.Input += e.InputTokens
	b.Tokens.Output += e.OutputTokens
	b.Tokens.Total += e.InputTokens + e.OutputTokens
	buckets[key] = b
}

// ExportCSV writes every retained entry as RFC-4180 CSV.
func (t *Tracker) ExportCSV(w io.Writer) error {
	t.mu.Lock()
	entries := append([]Entry(nil), t.entries...)
	t.mu.Unlock()

	cw := csv.NewWriter(w)
	header := []string{"id", "agentId", "guild", "provider", "model", "task", "input_tokens", "output_tokens", "total_tokens", "duration_ms", "success", "cost", "timestamp"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.ID,
			e.AgentID,
			e.Guild,
			e.Provider,
			e.Model,
			e.Task,
			strconv.Itoa(e.InputTokens),
			strconv.Itoa(e.OutputTokens),
			strconv.Itoa(e.InputTokens + e.OutputTokens),
			strconv.FormatInt(e.DurationMs, 10),
			strconv.FormatBool(e.Success),
			strconv.FormatFloat(e.Cost, 'f', -1, 64),
			e.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
