// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package prompt assembles the system and user prompts sent to a provider.
// The builder is a pure function of the agent and the task; nothing here is
// provider-specific.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/teradata-labs/horde/pkg/guild"
)

// ToolMarker is the literal the model is instructed to emit when it wants a
// shell tool executed. The executor scans responses for this marker.
const ToolMarker = "EXECUTE_TOOL:"

// System builds the system prompt for an agent.
func System(agent *guild.Agent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, %s of the %s guild.\n\n", agent.ID, agent.Title, agent.Guild)

	if len(agent.Responsibilities) > 0 {
		b.WriteString("Your responsibilities:\n")
		for _, r := range agent.Responsibilities {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "When completing a task requires running a shell tool, include the literal marker %s in your response. Otherwise answer directly and concisely.", ToolMarker)

	return b.String()
}

// User builds the user prompt: the task text followed by any context entries
// rendered as "key: value" lines in sorted key order, so identical inputs
// always produce identical prompts.
func User(taskText string, context map[string]string) string {
	if len(context) == 0 {
		return taskText
	}

	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(taskText)
	b.WriteString("\n\nContext:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, context[k])
	}
	return strings.TrimRight(b.String(), "\n")
}
