package main

import (
	"context"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// RootsCmd creates the roots command.
func RootsCmd(a *app) *Command {
	flags := flag.NewFlagSet("roots", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")

	return &Command{
		Flags: flags,
		Usage: "roots",
		Short: "Print readable and writable roots",
		Long:  "Print the virtual roots the sandbox may read and write.",
		Exec: func(_ context.Context, _ io.Reader, stdout, _ io.Writer, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unexpected argument %q", args[0])
			}

			sb, err := a.NewSandbox()
			if err != nil {
				return err
			}

			fprintf(stdout, "readable: %s\n", joinOrNone(sb.ReadableRoots()))
			fprintf(stdout, "writable: %s\n", joinOrNone(sb.WritableRoots()))

			return nil
		},
	}
}

func joinOrNone(roots []string) string {
	if len(roots) == 0 {
		return "(none)"
	}

	return strings.Join(roots, ", ")
}
