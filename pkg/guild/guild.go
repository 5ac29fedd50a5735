// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package guild holds the declarative agent catalog: guilds, their shared
// toolbelts, and the agents (goblins) that belong to them. The catalog is
// loaded once at startup and immutable thereafter.
package guild

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAgentNotFound is returned when a task addresses an unknown agent id.
var ErrAgentNotFound = errors.New("agent not found")

// ErrPermissionDenied is returned when a selection rule resolves to a tool
// the agent does not own.
var ErrPermissionDenied = errors.New("tool not owned by agent")

// Brain captures an agent's model routing preferences.
type Brain struct {
	// Routers is the ordered list of provider identifiers to try first.
	Routers []string `yaml:"routers"`

	// PrefersLocal selects the local backend when no router matches.
	PrefersLocal bool `yaml:"prefers_local"`
}

// SelectionRule maps a trigger substring in the task text to a tool id.
// An empty Tool means "match but run no tool".
type SelectionRule struct {
	Trigger string `yaml:"trigger"`
	Tool    string `yaml:"tool"`
	Note    string `yaml:"note,omitempty"`
}

// Tool is one entry in a guild's toolbelt.
type Tool struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Summary string `yaml:"summary"`
	Owner   string `yaml:"owner"`
	Command string `yaml:"command"`
}

// Agent is a named LLM persona with its own toolbelt slice and model
// preferences. Immutable after load.
type Agent struct {
	ID               string          `yaml:"id"`
	Title            string          `yaml:"title"`
	Guild            string          `yaml:"-"`
	Brain            Brain           `yaml:"brain"`
	Responsibilities []string        `yaml:"responsibilities"`
	KPIs             []string        `yaml:"kpis"`
	OwnedTools       []string        `yaml:"-"`
	SelectionRules   []SelectionRule `yaml:"-"`
}

// OwnsTool reports whether the agent owns the given tool id.
func (a *Agent) OwnsTool(toolID string) bool {
	for _, id := range a.OwnedTools {
		if id == toolID {
			return true
		}
	}
	return false
}

// Guild is a named grouping of agents that share a toolbelt.
type Guild struct {
	Name     string
	Charter  string
	Toolbelt []Tool
	Members  []*Agent
}

// Tool returns the toolbelt entry with the given id, if present.
func (g *Guild) Tool(id string) (*Tool, bool) {
	for i := range g.Toolbelt {
		if g.Toolbelt[i].ID == id {
			return &g.Toolbelt[i], true
		}
	}
	return nil, false
}

// Catalog is the loaded, validated agent catalog.
type Catalog struct {
	guilds   []*Guild
	agents   map[string]*Agent
	byGuild  map[string]*Guild
	warnings []string
}

// Agent looks up an agent by id.
func (c *Catalog) Agent(id string) (*Agent, error) {
	a, ok := c.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return a, nil
}

// Agents returns every agent, ordered by guild then declaration order.
func (c *Catalog) Agents() []*Agent {
	out := make([]*Agent, 0, len(c.agents))
	for _, g := range c.guilds {
		out = append(out, g.Members...)
	}
	return out
}

// Guilds returns the guilds in declaration order.
func (c *Catalog) Guilds() []*Guild {
	return c.guilds
}

// GuildOf returns the guild an agent belongs to.
func (c *Catalog) GuildOf(agent *Agent) (*Guild, bool) {
	g, ok := c.byGuild[agent.Guild]
	return g, ok
}

// Warnings returns non-fatal findings from load-time validation, such as
// unknown brain router identifiers.
func (c *Catalog) Warnings() []string {
	return c.warnings
}

// SelectTool walks the agent's ordered selection rules and returns the first
// tool whose trigger appears (case-insensitively) in the task text.
//
// A matching rule with an empty tool id means the agent explicitly declines
// to run a tool for that trigger; a rule naming a tool outside the agent's
// owned set fails with ErrPermissionDenied. No match returns (nil, nil) and
// the caller's heuristics take over.
func (c *Catalog) SelectTool(agent *Agent, taskText string) (*Tool, error) {
	lower := strings.ToLower(taskText)
	for _, rule := range agent.SelectionRules {
		if rule.Trigger == "" || !strings.Contains(lower, strings.ToLower(rule.Trigger)) {
			continue
		}
		if rule.Tool == "" {
			return nil, nil
		}
		if !agent.OwnsTool(rule.Tool) {
			return nil, fmt.Errorf("%w: agent %s, tool %s", ErrPermissionDenied, agent.ID, rule.Tool)
		}
		g, ok := c.byGuild[agent.Guild]
		if !ok {
			return nil, nil
		}
		tool, ok := g.Tool(rule.Tool)
		if !ok {
			return nil, nil
		}
		return tool, nil
	}
	return nil, nil
}
