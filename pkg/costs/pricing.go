// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package costs tracks per-task LLM spend: a static pricing table, a bounded
// in-memory ledger, summary queries, and CSV export.
package costs

import "strings"

// Rate is a per-1K-token price pair in USD.
type Rate struct {
	InputPer1K  float64
	OutputPer1K float64
}

// pricing maps provider → model prefix → rate. Lookup takes the longest
// matching prefix; an unknown model costs zero rather than a guessed figure.
var pricing = map[string]map[string]Rate{
	"openai": {
		"gpt-4o-mini":   {InputPer1K: 0.00015, OutputPer1K: 0.0006},
		"gpt-4o":        {InputPer1K: 0.0025, OutputPer1K: 0.01},
		"gpt-4":         {InputPer1K: 0.03, OutputPer1K: 0.06},
		"gpt-3.5-turbo": {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	},
	"anthropic": {
		"claude-3-opus":     {InputPer1K: 0.015, OutputPer1K: 0.075},
		"claude-3-5-sonnet": {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-sonnet-4":   {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-3-haiku":    {InputPer1K: 0.00025, OutputPer1K: 0.00125},
	},
	"gemini": {
		"gemini-1.5-pro":   {InputPer1K: 0.00025, OutputPer1K: 0.00075},
		"gemini-1.5-flash": {InputPer1K: 0.000075, OutputPer1K: 0.0003},
		"gemini-2.0-flash": {InputPer1K: 0.0001, OutputPer1K: 0.0004},
	},
	// Local inference is free.
	"ollama": {},
}

// Lookup returns the rate for a provider/model pair by longest-prefix match.
// ok is false when neither the provider nor any model prefix is known.
func Lookup(provider, model string) (Rate, bool) {
	models, ok := pricing[strings.ToLower(provider)]
	if !ok {
		return Rate{}, false
	}
	if strings.EqualFold(provider, "ollama") {
		return Rate{}, true
	}

	var best string
	var bestRate Rate
	for prefix, rate := range models {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
			bestRate = rate
		}
	}
	if best == "" {
		return Rate{}, false
	}
	return bestRate, true
}

// Cost computes the USD cost of a call. Unknown provider/model pairs cost
// zero.
func Cost(provider, model string, inputTokens, outputTokens int) float64 {
	rate, ok := Lookup(provider, model)
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000*rate.InputPer1K + float64(outputTokens)/1000*rate.OutputPer1K
}
