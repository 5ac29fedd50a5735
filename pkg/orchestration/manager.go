// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package orchestration

import (
	"sync"
)

// MaxRetainedPlans bounds the manager's in-memory plan set; the oldest plan
// is evicted on overflow.
const MaxRetainedPlans = 1000

// Manager retains plans for listing, inspection, and cancellation. Safe for
// concurrent use.
type Manager struct {
	mu    sync.Mutex
	plans map[string]*Plan
	order []string
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{plans: make(map[string]*Plan)}
}

// Add registers a plan, evicting the oldest once the bound is reached.
func (m *Manager) Add(plan *Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) >= MaxRetainedPlans {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.plans, oldest)
	}
	m.plans[plan.ID] = plan
	m.order = append(m.order, plan.ID)
}

// Get returns a snapshot of the plan with the given id.
func (m *Manager) Get(id string) (*Plan, bool) {
	m.mu.Lock()
	plan, ok := m.plans[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return plan.Snapshot(), true
}

// List returns snapshots of retained plans in insertion order, optionally
// filtered by status.
func (m *Manager) List(status PlanStatus) []*Plan {
	m.mu.Lock()
	ids := append([]string(nil), m.order...)
	plans := make([]*Plan, 0, len(ids))
	for _, id := range ids {
		plans = append(plans, m.plans[id])
	}
	m.mu.Unlock()

	out := make([]*Plan, 0, len(plans))
	for _, plan := range plans {
		snap := plan.Snapshot()
		if status != "" && snap.Status != status {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// Cancel flags the plan for cancellation. Returns false for unknown ids.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	plan, ok := m.plans[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	plan.Cancel()
	return true
}
