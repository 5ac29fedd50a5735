// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package orchestration

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StepResult is what a runner reports back for one step.
type StepResult struct {
	Output     string
	Error      string
	DurationMs int64
	Succeeded  bool
}

// StepRunner dispatches one step to an agent. Implementations must be safe
// for concurrent calls.
type StepRunner interface {
	RunStep(ctx context.Context, goblin, task string) StepResult
}

// StepRunnerFunc adapts a function to the StepRunner interface.
type StepRunnerFunc func(ctx context.Context, goblin, task string) StepResult

func (f StepRunnerFunc) RunStep(ctx context.Context, goblin, task string) StepResult {
	return f(ctx, goblin, task)
}

// ProgressFunc is invoked after each step reaches a terminal state.
type ProgressFunc func(plan *Plan, step Step)

// Scheduler executes plans wave by wave.
type Scheduler struct {
	runner     StepRunner
	logger     *zap.Logger
	onProgress ProgressFunc
}

// NewScheduler creates a scheduler. onProgress may be nil.
func NewScheduler(runner StepRunner, logger *zap.Logger, onProgress ProgressFunc) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{runner: runner, logger: logger, onProgress: onProgress}
}

// Execute runs the plan to a terminal state and returns it.
//
// Each pass collects the pending steps whose dependencies are all terminal,
// evaluates their conditions (ineligible steps are skipped in place), and
// runs the eligible set concurrently. Cancellation is checked at the top of
// every pass and before each launch; in-flight steps finish naturally but
// the plan lands on cancelled.
func (s *Scheduler) Execute(ctx context.Context, plan *Plan) *Plan {
	plan.setStatus(PlanRunning)
	s.logger.Info("Orchestration started",
		zap.String("plan", plan.ID),
		zap.Int("steps", len(plan.Steps)),
		zap.Int("batches", plan.Metadata.ParallelBatches))

	for {
		if plan.isCancelled() || ctx.Err() != nil {
			s.finishCancelled(plan)
			return plan
		}

		ready := s.collectReady(plan)
		if len(ready) == 0 {
			break
		}

		var wave []*Step
		for _, step := range ready {
			if s.eligible(plan, step) {
				wave = append(wave, step)
				continue
			}
			s.markStep(plan, step, StepSkipped, StepResult{})
		}
		if len(wave) == 0 {
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, step := range wave {
			if plan.isCancelled() {
				s.markStep(plan, step, StepCancelled, StepResult{})
				continue
			}
			s.setStepStatus(plan, step, StepRunning)
			g.Go(func() error {
				result := s.runner.RunStep(gctx, step.Goblin, step.Task)
				status := StepCompleted
				if !result.Succeeded {
					status = StepFailed
				}
				s.markStep(plan, step, status, result)
				return nil
			})
		}
		_ = g.Wait()
	}

	if plan.isCancelled() {
		s.finishCancelled(plan)
		return plan
	}

	status := PlanCompleted
	for _, step := range plan.Steps {
		if s.stepStatus(plan, step) == StepFailed {
			status = PlanFailed
			break
		}
	}
	plan.setStatus(status)
	s.logger.Info("Orchestration finished", zap.String("plan", plan.ID), zap.String("status", string(status)))
	return plan
}

// collectReady returns pending steps whose dependencies are all terminal.
func (s *Scheduler) collectReady(plan *Plan) []*Step {
	plan.mu.Lock()
	defer plan.mu.Unlock()

	var ready []*Step
	for _, step := range plan.Steps {
		if step.Status != StepPending {
			continue
		}
		allTerminal := true
		for _, depID := range step.Dependencies {
			if dep := plan.byID[depID]; dep == nil || !dep.Status.Terminal() {
				allTerminal = false
				break
			}
		}
		if allTerminal {
			ready = append(ready, step)
		}
	}
	return ready
}

// eligible evaluates a step's condition against its dependencies' immediate
// results. A step without dependencies sees the vacuous truth: IF_SUCCESS
// runs, IF_FAILURE skips, IF_CONTAINS matches against the empty string.
func (s *Scheduler) eligible(plan *Plan, step *Step) bool {
	plan.mu.Lock()
	defer plan.mu.Unlock()

	switch step.Condition.Kind {
	case CondNone:
		return true
	case CondSuccess:
		for _, depID := range step.Dependencies {
			if dep := plan.byID[depID]; dep == nil || dep.Status != StepCompleted {
				return false
			}
		}
		return true
	case CondFailure:
		for _, depID := range step.Dependencies {
			if dep := plan.byID[depID]; dep != nil && dep.Status == StepFailed {
				return true
			}
		}
		return false
	case CondContains:
		var combined strings.Builder
		for _, depID := range step.Dependencies {
			if dep := plan.byID[depID]; dep != nil {
				combined.WriteString(dep.Output)
			}
		}
		return strings.Contains(combined.String(), step.Condition.Value)
	}
	return true
}

func (s *Scheduler) setStepStatus(plan *Plan, step *Step, status StepStatus) {
	plan.mu.Lock()
	step.Status = status
	plan.mu.Unlock()
}

func (s *Scheduler) stepStatus(plan *Plan, step *Step) StepStatus {
	plan.mu.Lock()
	defer plan.mu.Unlock()
	return step.Status
}

// markStep records a terminal outcome and emits a progress event.
func (s *Scheduler) markStep(plan *Plan, step *Step, status StepStatus, result StepResult) {
	plan.mu.Lock()
	if step.Status.Terminal() {
		plan.mu.Unlock()
		return
	}
	step.Status = status
	step.Output = result.Output
	step.Error = result.Error
	step.DurationMs = result.DurationMs
	snapshot := *step
	plan.mu.Unlock()

	if s.onProgress != nil {
		s.onProgress(plan, snapshot)
	}
}

// finishCancelled marks every non-terminal step cancelled and settles the
// plan on cancelled.
func (s *Scheduler) finishCancelled(plan *Plan) {
	plan.mu.Lock()
	var cancelled []Step
	for _, step := range plan.Steps {
		if !step.Status.Terminal() && step.Status != StepRunning {
			step.Status = StepCancelled
			cancelled = append(cancelled, *step)
		}
	}
	plan.mu.Unlock()

	for _, step := range cancelled {
		if s.onProgress != nil {
			s.onProgress(plan, step)
		}
	}
	plan.setStatus(PlanCancelled)
	s.logger.Info("Orchestration cancelled", zap.String("plan", plan.ID))
}
