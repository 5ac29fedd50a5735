// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package scheduler runs orchestration plans on cron schedules. Schedules
// come from configuration; each tick parses the plan text fresh so an agent
// catalog reload never leaves stale step bindings.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teradata-labs/horde/pkg/orchestration"
)

// Schedule is one recurring plan definition.
type Schedule struct {
	// Name identifies the schedule in logs and listings.
	Name string `mapstructure:"name" yaml:"name"`

	// Cron is a standard 5-field cron expression.
	Cron string `mapstructure:"cron" yaml:"cron"`

	// Plan is orchestration DSL text.
	Plan string `mapstructure:"plan" yaml:"plan"`

	// Goblin is the default agent for steps without an explicit prefix.
	Goblin string `mapstructure:"goblin" yaml:"goblin"`
}

// Runner launches one plan execution. The scheduler does not wait for it.
type Runner interface {
	StartPlan(ctx context.Context, plan *orchestration.Plan)
}

// Scheduler owns the cron engine and the registered schedules.
type Scheduler struct {
	mu        sync.Mutex
	cron      *cron.Cron
	runner    Runner
	logger    *zap.Logger
	entries   map[string]cron.EntryID
	schedules map[string]Schedule
}

// New creates a scheduler. Call Start to begin ticking.
func New(runner Runner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron.New(),
		runner:    runner,
		logger:    logger,
		entries:   make(map[string]cron.EntryID),
		schedules: make(map[string]Schedule),
	}
}

// Register validates and adds a schedule. The plan text is parsed once up
// front so a bad schedule fails at startup, not at first tick.
func (s *Scheduler) Register(schedule Schedule) error {
	if schedule.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if _, err := orchestration.Parse(schedule.Plan, schedule.Goblin); err != nil {
		return fmt.Errorf("schedule %s: %w", schedule.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[schedule.Name]; exists {
		return fmt.Errorf("duplicate schedule name %s", schedule.Name)
	}

	id, err := s.cron.AddFunc(schedule.Cron, func() { s.tick(schedule) })
	if err != nil {
		return fmt.Errorf("schedule %s: invalid cron expression %q: %w", schedule.Name, schedule.Cron, err)
	}
	s.entries[schedule.Name] = id
	s.schedules[schedule.Name] = schedule

	s.logger.Info("Schedule registered",
		zap.String("schedule", schedule.Name),
		zap.String("cron", schedule.Cron))
	return nil
}

// Schedules returns the registered schedules, unordered.
func (s *Scheduler) Schedules() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, sched)
	}
	return out
}

// Start begins cron evaluation in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts cron evaluation and waits for tick callbacks to return.
// Plan executions already handed to the runner keep going.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) tick(schedule Schedule) {
	plan, err := orchestration.Parse(schedule.Plan, schedule.Goblin)
	if err != nil {
		s.logger.Error("Scheduled plan no longer parses",
			zap.String("schedule", schedule.Name),
			zap.Error(err))
		return
	}

	s.logger.Info("Scheduled plan starting",
		zap.String("schedule", schedule.Name),
		zap.String("plan", plan.ID))
	s.runner.StartPlan(context.Background(), plan)
}
