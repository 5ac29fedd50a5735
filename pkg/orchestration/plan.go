// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package orchestration parses the plan DSL into a layered DAG of steps and
// executes it with batched topological scheduling.
package orchestration

import (
	"sync"
	"time"
)

// StepStatus is the lifecycle state of one step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
	StepCancelled StepStatus = "cancelled"
)

// Terminal reports whether the status will never transition again.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepCompleted, StepFailed, StepSkipped, StepCancelled:
		return true
	}
	return false
}

// PlanStatus is the lifecycle state of a plan.
type PlanStatus string

const (
	PlanPending   PlanStatus = "pending"
	PlanRunning   PlanStatus = "running"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
	PlanCancelled PlanStatus = "cancelled"
)

// ConditionKind is the type of guard attached to a step.
type ConditionKind string

const (
	CondNone     ConditionKind = ""
	CondSuccess  ConditionKind = "if_success"
	CondFailure  ConditionKind = "if_failure"
	CondContains ConditionKind = "if_contains"
)

// Condition guards a step's eligibility, evaluated at ready-time against
// the step's dependencies.
type Condition struct {
	Kind ConditionKind `json:"kind,omitempty"`

	// Value is the needle for if_contains.
	Value string `json:"value,omitempty"`
}

// Step is one unit of execution in a plan. Dependencies are stored as step
// ids, never as pointers, so the graph cannot form reference cycles.
type Step struct {
	ID           string     `json:"id"`
	Goblin       string     `json:"goblin"`
	Task         string     `json:"task"`
	Dependencies []string   `json:"dependencies"`
	Condition    Condition  `json:"condition,omitempty"`
	Status       StepStatus `json:"status"`
	Output       string     `json:"output,omitempty"`
	Error        string     `json:"error,omitempty"`
	DurationMs   int64      `json:"durationMs,omitempty"`
}

// Metadata describes plan shape and a rough duration estimate.
type Metadata struct {
	ParallelBatches   int    `json:"parallelBatches"`
	EstimatedDuration string `json:"estimatedDuration"`
}

// Plan is a parsed orchestration DAG plus its execution state. All state
// mutation goes through methods holding the plan's lock; readers take
// snapshots.
type Plan struct {
	mu sync.Mutex

	ID          string     `json:"id"`
	Status      PlanStatus `json:"status"`
	Steps       []*Step    `json:"steps"`
	Metadata    Metadata   `json:"metadata"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	cancelled bool
	byID      map[string]*Step
}

// Step returns the step with the given id, or nil.
func (p *Plan) Step(id string) *Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byID[id]
}

// Cancel flips the plan-scoped cancellation flag. The scheduler observes it
// at the top of every pass and before launching each step.
func (p *Plan) Cancel() {
	p.mu.Lock()
	p.cancelled = true
	p.mu.Unlock()
}

func (p *Plan) isCancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

// Snapshot returns a deep copy safe to serialize while the plan runs.
func (p *Plan) Snapshot() *Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := &Plan{
		ID:        p.ID,
		Status:    p.Status,
		Metadata:  p.Metadata,
		CreatedAt: p.CreatedAt,
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		copied.CompletedAt = &t
	}
	copied.Steps = make([]*Step, len(p.Steps))
	copied.byID = make(map[string]*Step, len(p.Steps))
	for i, s := range p.Steps {
		dup := *s
		dup.Dependencies = append([]string(nil), s.Dependencies...)
		copied.Steps[i] = &dup
		copied.byID[dup.ID] = &dup
	}
	return copied
}

// setStatus transitions the plan, refusing to leave a terminal state.
func (p *Plan) setStatus(status PlanStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.Status {
	case PlanCompleted, PlanFailed, PlanCancelled:
		return
	}
	p.Status = status
	if status == PlanCompleted || status == PlanFailed || status == PlanCancelled {
		now := time.Now().UTC()
		p.CompletedAt = &now
	}
}
