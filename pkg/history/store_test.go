// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/horde/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndRecentNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := store.Append(ctx, types.HistoryEntry{
			AgentID:   "websmith",
			Task:      fmt.Sprintf("task-%d", i),
			Reasoning: "done",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Succeeded: true,
			KPIs:      map[string]float64{"duration_ms": float64(100 * (i + 1))},
		})
		require.NoError(t, err)
	}

	entries, err := store.Recent(ctx, "websmith", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "task-4", entries[0].Task)
	assert.Equal(t, "task-3", entries[1].Task)
	assert.Equal(t, "task-2", entries[2].Task)
	assert.Equal(t, 500.0, entries[0].KPIs["duration_ms"])
	assert.NotEmpty(t, entries[0].ID)
}

func TestRecentStableOrderOnTimestampTies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, types.HistoryEntry{
			AgentID:   "crafter",
			Task:      fmt.Sprintf("tied-%d", i),
			Timestamp: ts,
		}))
	}

	entries, err := store.Recent(ctx, "crafter", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Same timestamp: later insertions come first.
	assert.Equal(t, "tied-2", entries[0].Task)
	assert.Equal(t, "tied-0", entries[2].Task)
}

func TestRecentScopedToAgent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, types.HistoryEntry{AgentID: "websmith", Task: "a"}))
	require.NoError(t, store.Append(ctx, types.HistoryEntry{AgentID: "crafter", Task: "b"}))

	entries, err := store.Recent(ctx, "websmith", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Task)

	entries, err = store.Recent(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStatsFor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, types.HistoryEntry{
		AgentID: "websmith", Task: "a", Succeeded: true,
		KPIs: map[string]float64{"duration_ms": 100},
	}))
	require.NoError(t, store.Append(ctx, types.HistoryEntry{
		AgentID: "websmith", Task: "b", Succeeded: true,
		KPIs: map[string]float64{"duration_ms": 300},
	}))
	require.NoError(t, store.Append(ctx, types.HistoryEntry{
		AgentID: "websmith", Task: "c", Succeeded: false,
		// Legacy KPI name: ignored by the duration average.
		KPIs: map[string]float64{"response_time_ms": 900},
	}))

	stats, err := store.StatsFor(ctx, "websmith")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 2, stats.Succeeded)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 1e-9)
	assert.Equal(t, 200.0, stats.AvgDurationMs)
}

func TestStatsForUnknownAgent(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.StatsFor(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTasks)
	assert.Zero(t, stats.SuccessRate)
}
