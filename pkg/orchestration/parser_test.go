// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleAtom(t *testing.T) {
	plan, err := Parse("build the site", "websmith")
	require.NoError(t, err)

	require.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	assert.Equal(t, "build the site", step.Task)
	assert.Equal(t, "websmith", step.Goblin)
	assert.Empty(t, step.Dependencies)
	assert.Equal(t, CondNone, step.Condition.Kind)
	assert.Equal(t, StepPending, step.Status)
	assert.Equal(t, 1, plan.Metadata.ParallelBatches)
	assert.Equal(t, "~10s", plan.Metadata.EstimatedDuration)
	assert.Equal(t, PlanPending, plan.Status)
}

func TestParseSequential(t *testing.T) {
	plan, err := Parse("build THEN test", "websmith")
	require.NoError(t, err)

	require.Len(t, plan.Steps, 2)
	assert.Equal(t, 2, plan.Metadata.ParallelBatches)
	assert.Equal(t, "build", plan.Steps[0].Task)
	assert.Equal(t, "test", plan.Steps[1].Task)
	assert.Equal(t, []string{plan.Steps[0].ID}, plan.Steps[1].Dependencies)
}

func TestParseParallelMixed(t *testing.T) {
	plan, err := Parse("build THEN lint AND test THEN deploy IF_SUCCESS", "websmith")
	require.NoError(t, err)

	require.Len(t, plan.Steps, 4)
	assert.Equal(t, 3, plan.Metadata.ParallelBatches)

	build, lint, test, deploy := plan.Steps[0], plan.Steps[1], plan.Steps[2], plan.Steps[3]
	assert.Empty(t, build.Dependencies)
	assert.Equal(t, []string{build.ID}, lint.Dependencies)
	assert.Equal(t, []string{build.ID}, test.Dependencies)
	assert.ElementsMatch(t, []string{lint.ID, test.ID}, deploy.Dependencies)
	assert.Equal(t, CondSuccess, deploy.Condition.Kind)
	assert.Equal(t, "deploy", deploy.Task)
}

func TestParseMultiAgentPrefix(t *testing.T) {
	plan, err := Parse("websmith: build THEN crafter: review", "gatekeeper")
	require.NoError(t, err)

	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "websmith", plan.Steps[0].Goblin)
	assert.Equal(t, "build", plan.Steps[0].Task)
	assert.Equal(t, "crafter", plan.Steps[1].Goblin)
	assert.Equal(t, "review", plan.Steps[1].Task)
	assert.Equal(t, []string{plan.Steps[0].ID}, plan.Steps[1].Dependencies)
}

func TestParseConditions(t *testing.T) {
	plan, err := Parse(`test THEN rollback IF_FAILURE`, "websmith")
	require.NoError(t, err)
	assert.Equal(t, CondFailure, plan.Steps[1].Condition.Kind)
	assert.Equal(t, "rollback", plan.Steps[1].Task)

	plan, err = Parse(`scan logs THEN alert the team IF_CONTAINS("ERROR")`, "websmith")
	require.NoError(t, err)
	require.Equal(t, CondContains, plan.Steps[1].Condition.Kind)
	assert.Equal(t, "ERROR", plan.Steps[1].Condition.Value)
	assert.Equal(t, "alert the team", plan.Steps[1].Task)
}

func TestParseAllParallel(t *testing.T) {
	plan, err := Parse("lint AND test AND vet", "crafter")
	require.NoError(t, err)

	require.Len(t, plan.Steps, 3)
	assert.Equal(t, 1, plan.Metadata.ParallelBatches)
	for _, step := range plan.Steps {
		assert.Empty(t, step.Dependencies)
	}
}

func TestParseAllSequential(t *testing.T) {
	plan, err := Parse("a THEN b THEN c THEN d", "crafter")
	require.NoError(t, err)

	require.Len(t, plan.Steps, 4)
	assert.Equal(t, 4, plan.Metadata.ParallelBatches)
	for i := 1; i < 4; i++ {
		assert.Equal(t, []string{plan.Steps[i-1].ID}, plan.Steps[i].Dependencies)
	}
}

func TestParseErrors(t *testing.T) {
	var parseErr *ParseError

	_, err := Parse("", "websmith")
	require.ErrorAs(t, err, &parseErr)

	_, err = Parse("   \n\t  ", "websmith")
	require.ErrorAs(t, err, &parseErr)

	_, err = Parse("THEN", "websmith")
	require.ErrorAs(t, err, &parseErr)

	_, err = Parse("AND THEN AND", "websmith")
	require.ErrorAs(t, err, &parseErr)

	_, err = Parse("IF_SUCCESS", "websmith")
	require.ErrorAs(t, err, &parseErr)

	_, err = Parse("build THEN", "websmith")
	require.ErrorAs(t, err, &parseErr)
}

func TestParseDeterministicTopology(t *testing.T) {
	const text = "websmith: build THEN lint AND crafter: test THEN deploy IF_SUCCESS"

	first, err := Parse(text, "gatekeeper")
	require.NoError(t, err)
	second, err := Parse(text, "gatekeeper")
	require.NoError(t, err)

	require.Equal(t, len(first.Steps), len(second.Steps))
	assert.Equal(t, first.Metadata, second.Metadata)
	for i := range first.Steps {
		assert.Equal(t, first.Steps[i].Task, second.Steps[i].Task)
		assert.Equal(t, first.Steps[i].Goblin, second.Steps[i].Goblin)
		assert.Equal(t, first.Steps[i].Condition, second.Steps[i].Condition)
		assert.Equal(t, len(first.Steps[i].Dependencies), len(second.Steps[i].Dependencies))
	}
}

func TestParseKeywordsAreCaseSensitive(t *testing.T) {
	// Lowercase "then" is ordinary task text, not a separator.
	plan, err := Parse("build then test", "websmith")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "build then test", plan.Steps[0].Task)
}

func TestParseConditionOnFirstAtom(t *testing.T) {
	plan, err := Parse("cleanup IF_FAILURE", "websmith")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, CondFailure, plan.Steps[0].Condition.Kind)
	assert.Empty(t, plan.Steps[0].Dependencies)
}
