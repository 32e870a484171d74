package main

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// WriteCmd creates the write command, which stores stdin at a virtual path.
func WriteCmd(a *app) *Command {
	flags := flag.NewFlagSet("write", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")

	return &Command{
		Flags: flags,
		Usage: "write <path>",
		Short: "Write stdin to a file",
		Long:  "Write stdin to path through the sandbox, creating parent directories.",
		Exec: func(_ context.Context, stdin io.Reader, stdout, _ io.Writer, args []string) error {
			if len(args) != 1 {
				return usageErrorf("expected exactly one path")
			}

			if stdin == nil {
				return usageErrorf("no input on stdin")
			}

			content, err := io.ReadAll(stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}

			ts, err := a.NewToolset()
			if err != nil {
				return err
			}

			msg, err := ts.Write(args[0], string(content))
			if err != nil {
				return err
			}

			fprintln(stdout, msg)

			return nil
		},
	}
}
