// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "horde",
	Short:   "Multi-agent LLM orchestration runtime",
	Version: version,
	Long: `Horde runs a catalog of LLM agents (goblins) organized into guilds.

Agents execute tasks against pluggable model providers, run guild shell
tools, and cooperate through orchestration plans written in a small DSL
(THEN / AND / IF_SUCCESS / IF_FAILURE / IF_CONTAINS).`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
