// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package costs

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostKnownModels(t *testing.T) {
	assert.InDelta(t, 0.09, Cost("openai", "gpt-4", 1000, 1000), 1e-9)
	assert.InDelta(t, 0.001, Cost("gemini", "gemini-1.5-pro", 1000, 1000), 1e-9)
	assert.Zero(t, Cost("ollama", "llama3.1", 1000, 1000))
	assert.InDelta(t, 0.018, Cost("anthropic", "claude-3-5-sonnet-20241022", 1000, 1000), 1e-9)
}

func TestCostLongestPrefixWins(t *testing.T) {
	// gpt-4o must match the gpt-4o rate, not the shorter gpt-4 prefix.
	assert.InDelta(t, 0.0125, Cost("openai", "gpt-4o", 1000, 1000), 1e-9)
	assert.InDelta(t, 0.00075, Cost("openai", "gpt-4o-mini-2024-07-18", 1000, 1000), 1e-9)
}

func TestCostUnknownModelIsZero(t *testing.T) {
	assert.Zero(t, Cost("openai", "gpt-99-ultra", 1000, 1000))
	assert.Zero(t, Cost("mystery", "whatever", 1000, 1000))

	_, ok := Lookup("openai", "gpt-99-ultra")
	assert.False(t, ok)
	_, ok = Lookup("ollama", "anything")
	assert.True(t, ok)
}

func TestRecordAndSummarize(t *testing.T) {
	tracker := NewTracker()

	tracker.Record(Entry{AgentID: "websmith", Guild: "engineering", Provider: "openai", Model: "gpt-4", Task: "a", InputTokens: 1000, OutputTokens: 1000, Success: true})
	tracker.Record(Entry{AgentID: "crafter", Guild: "engineering", Provider: "gemini", Model: "gemini-1.5-pro", Task: "b", InputTokens: 1000, OutputTokens: 1000, Success: true})
	tracker.Record(Entry{AgentID: "scribe", Guild: "operations", Provider: "ollama", Model: "llama3.1", Task: "c", InputTokens: 1000, OutputTokens: 1000, Success: false})

	summary := tracker.Summarize(Query{})
	assert.Equal(t, 3, summary.TotalTasks)
	assert.InDelta(t, 0.091, summary.TotalCost, 1e-9)
	assert.InDelta(t, 0.091/3, summary.AvgCostPerTask, 1e-9)
	assert.Len(t, summary.RecentEntries, 3)

	openaiBucket := summary.ByProvider["openai"]
	assert.Equal(t, 1, openaiBucket.Tasks)
	assert.InDelta(t, 0.09, openaiBucket.Cost, 1e-9)
	assert.Equal(t, Tokens{Input: 1000, Output: 1000, Total: 2000}, openaiBucket.Tokens)

	engineering := summary.ByGuild["engineering"]
	assert.Equal(t, 2, engineering.Tasks)
	assert.InDelta(t, 0.091, engineering.Cost, 1e-9)
}

func TestSummarizeFilters(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(Entry{AgentID: "websmith", Guild: "engineering", Provider: "openai", Model: "gpt-4", InputTokens: 1000, OutputTokens: 1000})
	tracker.Record(Entry{AgentID: "crafter", Guild: "engineering", Provider: "ollama", Model: "llama3.1"})
	tracker.Record(Entry{AgentID: "scribe", Guild: "operations", Provider: "ollama", Model: "llama3.1"})

	byAgent := tracker.Summarize(Query{AgentID: "websmith"})
	assert.Equal(t, 1, byAgent.TotalTasks)
	assert.InDelta(t, 0.09, byAgent.TotalCost, 1e-9)
	assert.Len(t, byAgent.ByGuild, 1)

	byGuild := tracker.Summarize(Query{Guild: "engineering"})
	assert.Equal(t, 2, byGuild.TotalTasks)
	assert.NotContains(t, byGuild.ByAgent, "scribe")
}

func TestSummarizeRecentLimit(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < 25; i++ {
		tracker.Record(Entry{AgentID: "websmith", Task: fmt.Sprintf("task-%d", i), Provider: "ollama", Model: "llama3.1"})
	}

	summary := tracker.Summarize(Query{})
	require.Len(t, summary.RecentEntries, DefaultRecentLimit)
	assert.Equal(t, "task-24", summary.RecentEntries[0].Task, "newest entry leads")
	assert.Equal(t, "task-15", summary.RecentEntries[len(summary.RecentEntries)-1].Task)

	summary = tracker.Summarize(Query{Limit: 5})
	require.Len(t, summary.RecentEntries, 5)
	assert.Equal(t, "task-24", summary.RecentEntries[0].Task)
	assert.Equal(t, "task-20", summary.RecentEntries[4].Task)
}

func TestRecordEvictsOldest(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < MaxEntries+10; i++ {
		tracker.Record(Entry{AgentID: "websmith", Task: fmt.Sprintf("task-%d", i), Provider: "ollama", Model: "llama3.1"})
	}

	assert.Equal(t, MaxEntries, tracker.Len())
	summary := tracker.Summarize(Query{Limit: 1})
	assert.Equal(t, fmt.Sprintf("task-%d", MaxEntries+9), summary.RecentEntries[0].Task)
}

func TestExportCSV(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(Entry{AgentID: "websmith", Guild: "engineering", Provider: "openai", Model: "gpt-4", Task: `deploy "v2", carefully`, InputTokens: 1000, OutputTokens: 1000, DurationMs: 1234, Success: true})

	var buf bytes.Buffer
	require.NoError(t, tracker.ExportCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"id", "agentId", "guild", "provider", "model", "task", "input_tokens", "output_tokens", "total_tokens", "duration_ms", "success", "cost", "timestamp"}, records[0])
	row := records[1]
	assert.Equal(t, "websmith", row[1])
	assert.Equal(t, `deploy "v2", carefully`, row[5])
	assert.Equal(t, "2000", row[8])
	assert.Equal(t, "true", row[10])
	assert.Equal(t, "0.09", row[11])
}
