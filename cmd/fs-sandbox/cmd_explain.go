package main

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"
)

// ExplainCmd creates the explain command, which prints the loaded config,
// the mount table and the decision trace for each path.
func ExplainCmd(a *app) *Command {
	flags := flag.NewFlagSet("explain", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")

	return &Command{
		Flags: flags,
		Usage: "explain [path]...",
		Short: "Show mounts and how paths are decided",
		Long: "Print the config files, the mount table, the readable and writable roots, and for\n" +
			"each path its normalized form, owning mount, host path and read/write decision.",
		Exec: func(_ context.Context, _ io.Reader, stdout, _ io.Writer, args []string) error {
			debug := NewDebugLogger(stdout)

			debugConfigLoading(debug, a.cfg)

			sb, err := a.NewSandbox()
			if err != nil {
				return err
			}

			debugSandbox(debug, sb)

			for _, p := range args {
				debugPathDecision(debug, sb, p)
			}

			return nil
		},
	}
}
