package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

const usage = "usage: schooldesk jobs <trigger NAME | stats | scheduled>"

// Run executes a jobs subcommand and returns the process exit code.
func Run(ctx context.Context, c *JobsCLI, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	var out any
	var err error
	switch args[0] {
	case "trigger":
		if len(args) != 2 {
			fmt.Fprintln(stderr, usage)
			return 2
		}
		out, err = c.Trigger(ctx, args[1])
	case "stats":
		out, err = c.InspectQueue(ctx)
	case "scheduled":
		out, err = c.ListScheduled(ctx, 20)
	default:
		fmt.Fprintln(stderr, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "jobs %s: %v\n", args[0], err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "jobs %s: %v\n", args[0], err)
		return 1
	}
	return 0
}
