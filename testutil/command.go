package testutil

import (
	"bytes"
	"context"

	"github.com/spf13/cobra"
)

// CommandOutput is what a command printed while it ran.
type CommandOutput struct {
	Stdout string
	Stderr string
}

// ExecuteCommand runs root with args, capturing both output streams.
func ExecuteCommand(ctx context.Context, root *cobra.Command, args ...string) (CommandOutput, error) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	root.SilenceErrors = true

	err := root.ExecuteContext(ctx)
	return CommandOutput{Stdout: stdout.String(), Stderr: stderr.String()}, err
}
