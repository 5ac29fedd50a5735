// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package guild

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigError reports hard validation failures in the catalog document.
// Any ConfigError at startup is fatal.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid guild catalog: %s", strings.Join(e.Problems, "; "))
}

// catalogYAML is the on-disk structure of the guild catalog.
type catalogYAML struct {
	Guilds []guildYAML `yaml:"guilds"`
}

type guildYAML struct {
	Name      string      `yaml:"name"`
	Charter   string      `yaml:"charter"`
	Verbosity string      `yaml:"verbosity,omitempty"`
	Toolbelt  []Tool      `yaml:"toolbelt"`
	Members   []agentYAML `yaml:"members"`
}

type agentYAML struct {
	ID               string   `yaml:"id"`
	Title            string   `yaml:"title"`
	Brain            Brain    `yaml:"brain"`
	Responsibilities []string `yaml:"responsibilities"`
	KPIs             []string `yaml:"kpis"`
	Tools            struct {
		Owned          []string        `yaml:"owned"`
		SelectionRules []SelectionRule `yaml:"selection_rules"`
	} `yaml:"tools"`
}

// knownRouters is the set of brain router identifiers (including aliases)
// recognized at validation time. Unknown identifiers are warnings, not
// errors: a deployment may simply omit that provider.
var knownRouters = map[string]bool{
	"ollama": true, "local": true,
	"anthropic": true, "claude": true,
	"openai": true, "gpt": true,
	"gemini": true, "google": true,
}

// Load reads the catalog from the first existing path. With no existing
// path it returns os.ErrNotExist so the caller can fall back to the
// embedded default catalog.
func Load(paths ...string) (*Catalog, error) {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
		return LoadFromBytes(data)
	}
	return nil, os.ErrNotExist
}

// LoadFromBytes parses and validates a catalog document. Environment
// variables referenced as ${NAME} are expanded before parsing.
func LoadFromBytes(data []byte) (*Catalog, error) {
	expanded := os.Expand(string(data), os.Getenv)

	var doc catalogYAML
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, &ConfigError{Problems: []string{fmt.Sprintf("YAML parse failed: %v", err)}}
	}
	if len(doc.Guilds) == 0 {
		return nil, &ConfigError{Problems: []string{"catalog declares no guilds"}}
	}

	catalog := &Catalog{
		agents:  make(map[string]*Agent),
		byGuild: make(map[string]*Guild),
	}
	var problems []string

	for _, gy := range doc.Guilds {
		if gy.Name == "" {
			problems = append(problems, "guild with empty name")
			continue
		}

		g := &Guild{
			Name:     gy.Name,
			Charter:  gy.Charter,
			Toolbelt: gy.Toolbelt,
		}

		toolIDs := make(map[string]bool, len(gy.Toolbelt))
		for _, tool := range gy.Toolbelt {
			if tool.ID == "" {
				problems = append(problems, fmt.Sprintf("guild %s: tool with empty id", gy.Name))
				continue
			}
			if toolIDs[tool.ID] {
				problems = append(problems, fmt.Sprintf("guild %s: duplicate tool id %s", gy.Name, tool.ID))
			}
			toolIDs[tool.ID] = true
		}

		memberIDs := make(map[string]bool, len(gy.Members))
		for _, ay := range gy.Members {
			if ay.ID == "" {
				problems = append(problems, fmt.Sprintf("guild %s: agent with empty id", gy.Name))
				continue
			}
			if _, dup := catalog.agents[ay.ID]; dup {
				problems = append(problems, fmt.Sprintf("duplicate agent id %s", ay.ID))
				continue
			}
			memberIDs[ay.ID] = true

			agent := &Agent{
				ID:               ay.ID,
				Title:            ay.Title,
				Guild:            gy.Name,
				Brain:            ay.Brain,
				Responsibilities: ay.Responsibilities,
				KPIs:             ay.KPIs,
				OwnedTools:       ay.Tools.Owned,
				SelectionRules:   ay.Tools.SelectionRules,
			}

			for _, owned := range agent.OwnedTools {
				if !toolIDs[owned] {
					problems = append(problems, fmt.Sprintf("agent %s: owned tool %s not in guild %s toolbelt", agent.ID, owned, gy.Name))
				}
			}
			for _, rule := range agent.SelectionRules {
				if rule.Tool == "" {
					continue
				}
				if !toolIDs[rule.Tool] {
					problems = append(problems, fmt.Sprintf("agent %s: selection rule %q references tool %s outside guild %s toolbelt", agent.ID, rule.Trigger, rule.Tool, gy.Name))
					continue
				}
				if !agent.OwnsTool(rule.Tool) {
					problems = append(problems, fmt.Sprintf("agent %s: selection rule %q references unowned tool %s", agent.ID, rule.Trigger, rule.Tool))
				}
			}
			for _, router := range agent.Brain.Routers {
				if !knownRouters[strings.ToLower(strings.TrimSpace(router))] {
					catalog.warnings = append(catalog.warnings, fmt.Sprintf("agent %s: unknown brain router %q", agent.ID, router))
				}
			}

			catalog.agents[agent.ID] = agent
			g.Members = append(g.Members, agent)
		}

		for _, tool := range gy.Toolbelt {
			if tool.Owner != "" && !memberIDs[tool.Owner] {
				problems = append(problems, fmt.Sprintf("guild %s: tool %s owner %s is not a guild member", gy.Name, tool.ID, tool.Owner))
			}
		}

		catalog.guilds = append(catalog.guilds, g)
		catalog.byGuild[g.Name] = g
	}

	if len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}
	return catalog, nil
}
