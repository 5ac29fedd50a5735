// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/horde/pkg/orchestration"
)

type captureRunner struct {
	mu    sync.Mutex
	plans []*orchestration.Plan
}

func (r *captureRunner) StartPlan(_ context.Context, plan *orchestration.Plan) {
	r.mu.Lock()
	r.plans = append(r.plans, plan)
	r.mu.Unlock()
}

func (r *captureRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plans)
}

func TestRegisterValidation(t *testing.T) {
	s := New(&captureRunner{}, nil)

	err := s.Register(Schedule{Cron: "* * * * *", Plan: "build", Goblin: "websmith"})
	assert.ErrorContains(t, err, "name is required")

	err = s.Register(Schedule{Name: "nightly", Cron: "* * * * *", Plan: "THEN", Goblin: "websmith"})
	assert.ErrorContains(t, err, "parse error")

	err = s.Register(Schedule{Name: "nightly", Cron: "not-cron", Plan: "build", Goblin: "websmith"})
	assert.ErrorContains(t, err, "invalid cron expression")

	require.NoError(t, s.Register(Schedule{Name: "nightly", Cron: "0 2 * * *", Plan: "build THEN test", Goblin: "websmith"}))
	err = s.Register(Schedule{Name: "nightly", Cron: "0 3 * * *", Plan: "build", Goblin: "websmith"})
	assert.ErrorContains(t, err, "duplicate schedule name")

	assert.Len(t, s.Schedules(), 1)
}

func TestTickStartsPlan(t *testing.T) {
	runner := &captureRunner{}
	s := New(runner, nil)

	require.NoError(t, s.Register(Schedule{Name: "t", Cron: "0 2 * * *", Plan: "websmith: build THEN test", Goblin: "crafter"}))

	// Drive the tick directly rather than waiting for cron wall-clock.
	s.tick(s.Schedules()[0])

	require.Equal(t, 1, runner.count())
	plan := runner.plans[0]
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "websmith", plan.Steps[0].Goblin)
	assert.Equal(t, "crafter", plan.Steps[1].Goblin)

	// Each tick produces a fresh plan instance.
	s.tick(s.Schedules()[0])
	require.Equal(t, 2, runner.count())
	assert.NotEqual(t, runner.plans[0].ID, runner.plans[1].ID)
}

func TestStartStop(t *testing.T) {
	s := New(&captureRunner{}, nil)
	require.NoError(t, s.Register(Schedule{Name: "t", Cron: "@every 1h", Plan: "build", Goblin: "websmith"}))

	s.Start()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
