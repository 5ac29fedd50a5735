// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package orchestration

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseError reports invalid plan DSL input. The server maps it to HTTP 400.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return "parse error: " + e.Message
}

var (
	thenSplit     = regexp.MustCompile(`\bTHEN\b`)
	andSplit      = regexp.MustCompile(`\bAND\b`)
	containsCond  = regexp.MustCompile(`IF_CONTAINS\(\s*"([^"]*)"\s*\)`)
	successCond   = regexp.MustCompile(`\bIF_SUCCESS\b`)
	failureCond   = regexp.MustCompile(`\bIF_FAILURE\b`)
	agentPrefixRE = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*)\s*:\s*(\S.*)$`)
)

// Parse turns plan DSL text into a pending Plan. Atoms without an explicit
// "agent:" prefix are addressed to defaultGoblin.
//
// The grammar is a sequence of parallel groups: atoms joined by AND run
// together, groups joined by THEN run one after another, and every step in
// a group depends on every step in the previous group.
func Parse(text, defaultGoblin string) (*Plan, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Message: "empty plan"}
	}

	plan := &Plan{
		ID:        uuid.New().String(),
		Status:    PlanPending,
		CreatedAt: time.Now().UTC(),
		byID:      make(map[string]*Step),
	}

	var prevGroup []string
	groups := thenSplit.Split(text, -1)
	for _, group := range groups {
		var currentGroup []string
		for _, atomText := range andSplit.Split(group, -1) {
			step, err := parseAtom(atomText, defaultGoblin)
			if err != nil {
				return nil, err
			}
			step.Dependencies = append([]string(nil), prevGroup...)
			plan.Steps = append(plan.Steps, step)
			plan.byID[step.ID] = step
			currentGroup = append(currentGroup, step.ID)
		}
		prevGroup = currentGroup
	}

	if len(plan.Steps) == 0 {
		return nil, &ParseError{Message: "plan contains no steps"}
	}

	plan.Metadata = Metadata{
		ParallelBatches:   len(groups),
		EstimatedDuration: fmt.Sprintf("~%ds", 10*len(groups)),
	}

	if err := assertAcyclic(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// parseAtom handles one "[agent:] task [condition]" fragment.
func parseAtom(text, defaultGoblin string) (*Step, error) {
	step := &Step{
		ID:     uuid.New().String(),
		Status: StepPending,
	}

	if m := containsCond.FindStringSubmatch(text); m != nil {
		step.Condition = Condition{Kind: CondContains, Value: m[1]}
		text = containsCond.ReplaceAllString(text, " ")
	} else if successCond.MatchString(text) {
		step.Condition = Condition{Kind: CondSuccess}
		text = successCond.ReplaceAllString(text, " ")
	} else if failureCond.MatchString(text) {
		step.Condition = Condition{Kind: CondFailure}
		text = failureCond.ReplaceAllString(text, " ")
	}

	text = strings.TrimSpace(text)
	if m := agentPrefixRE.FindStringSubmatch(text); m != nil {
		step.Goblin = m[1]
		text = strings.TrimSpace(m[2])
	} else {
		step.Goblin = defaultGoblin
	}

	if text == "" {
		return nil, &ParseError{Message: "empty task in plan"}
	}
	step.Task = text
	return step, nil
}

// assertAcyclic runs Kahn's algorithm over the step graph. The parser only
// produces layered dependencies, so a cycle here means a construction bug.
func assertAcyclic(plan *Plan) error {
	indegree := make(map[string]int, len(plan.Steps))
	dependents := make(map[string][]string, len(plan.Steps))
	for _, s := range plan.Steps {
		indegree[s.ID] = len(s.Dependencies)
		for _, dep := range s.Dependencies {
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	var ready []string
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}

	visited := 0
	for len(ready) > 0 {
		id := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		visited++
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if visited != len(plan.Steps) {
		return fmt.Errorf("orchestration plan has a dependency cycle (%d of %d steps reachable)", visited, len(plan.Steps))
	}
	return nil
}
