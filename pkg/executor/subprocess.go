// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package executor

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/teradata-labs/horde/pkg/types"
)

// DefaultToolTimeout bounds how long a shell tool may run.
const DefaultToolTimeout = 120 * time.Second

// DryRunOutput is the sentinel emitted instead of running a process.
const DryRunOutput = "(dry-run)"

// runTool shell-interprets a tool command in dir with a bounded timeout,
// capturing combined stdout+stderr. exit_code 0 means success; a timeout or
// start failure reports exit code -1.
func runTool(ctx context.Context, toolID, command, dir string, timeout time.Duration) types.ToolExecutionResult {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	result := types.ToolExecutionResult{
		ToolID:  toolID,
		Command: command,
		Output:  string(output),
	}

	switch {
	case err == nil:
		result.ExitCode = 0
		result.Succeeded = true
	case ctx.Err() == context.DeadlineExceeded:
		result.ExitCode = -1
		result.Output += "\n(tool timed out)"
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.Output = err.Error()
		}
	}
	return result
}

// dryRunResult builds the synthetic result for a dry-run tool invocation.
func dryRunResult(toolID, command string) *types.ToolExecutionResult {
	return &types.ToolExecutionResult{
		ToolID:    toolID,
		Command:   command,
		Output:    DryRunOutput,
		ExitCode:  0,
		Succeeded: true,
	}
}
