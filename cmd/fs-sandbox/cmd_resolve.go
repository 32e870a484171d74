package main

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

// ResolveCmd creates the resolve command, which maps readable virtual paths
// to host paths.
func ResolveCmd(a *app) *Command {
	flags := flag.NewFlagSet("resolve", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")

	return &Command{
		Flags: flags,
		Usage: "resolve <path>...",
		Short: "Print the host path of virtual paths",
		Long: "Resolve each readable virtual path and print \"<virtual>\\t<host>\".\n" +
			"Paths that cannot be read are reported on stderr; the exit code is 1 if any failed.",
		Exec: func(_ context.Context, _ io.Reader, stdout, stderr io.Writer, args []string) error {
			if len(args) == 0 {
				return usageErrorf("expected at least one path")
			}

			sb, err := a.NewSandbox()
			if err != nil {
				return err
			}

			failed := false

			for _, p := range args {
				r, err := sb.GetPathConfig(p, sandbox.OpRead)
				if err != nil {
					fprintError(stderr, err)

					failed = true

					continue
				}

				fprintf(stdout, "%s\t%s\n", r.VirtualPath, r.HostPath)
			}

			if failed {
				return ErrSilentExit
			}

			return nil
		},
	}
}
