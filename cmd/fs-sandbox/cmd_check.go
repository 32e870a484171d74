package main

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

// CheckCmd creates the check command, which reports the access decision for
// virtual paths.
func CheckCmd(a *app) *Command {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.BoolP("write", "w", false, "Check write access instead of read access")
	flags.BoolP("quiet", "q", false, "Quiet mode, no output")

	return &Command{
		Flags: flags,
		Usage: "check [flags] <path>...",
		Short: "Check whether paths may be read or written",
		Long: "Print one line per path: \"allow\" or \"deny\", the virtual path, and whether the\n" +
			"operation needs approval (or the kind of denial).\n" +
			"Exits 0 if every path is allowed, 1 otherwise.",
		Exec: func(_ context.Context, _ io.Reader, stdout, stderr io.Writer, args []string) error {
			if len(args) == 0 {
				return usageErrorf("expected at least one path")
			}

			write, _ := flags.GetBool("write")
			quiet, _ := flags.GetBool("quiet")

			op := sandbox.OpRead
			if write {
				op = sandbox.OpWrite
			}

			sb, err := a.NewSandbox()
			if err != nil {
				return err
			}

			denied := false

			for _, p := range args {
				r, err := sb.GetPathConfig(p, op)
				if err != nil {
					denied = true

					if !quiet {
						fprintf(stdout, "deny\t%s\t%s\n", p, sandbox.KindOf(err))
						fprintln(stderr, err)
					}

					continue
				}

				if quiet {
					continue
				}

				approval := "no approval"
				if (op == sandbox.OpWrite && r.Mount.RequiresWriteApproval()) || (op == sandbox.OpRead && r.Mount.ReadApproval) {
					approval = "needs approval"
				}

				fprintf(stdout, "allow\t%s\t%s\n", r.VirtualPath, approval)
			}

			if denied {
				return ErrSilentExit
			}

			return nil
		},
	}
}
