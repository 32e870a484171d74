package main

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/fs-sandbox/toolset"
)

// LsCmd creates the ls command.
func LsCmd(a *app) *Command {
	flags := flag.NewFlagSet("ls", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.StringP("pattern", "p", toolset.DefaultListPattern, "Glob `pattern` relative to the listed directory")

	return &Command{
		Flags:   flags,
		Usage:   "ls [flags] [path]",
		Short:   "List readable files",
		Long:    "List the virtual paths of readable files below path (default: every readable root).",
		Aliases: []string{"list"},
		Exec: func(ctx context.Context, _ io.Reader, stdout, _ io.Writer, args []string) error {
			if len(args) > 1 {
				return usageErrorf("expected at most one path")
			}

			dir := "/"
			if len(args) == 1 {
				dir = args[0]
			}

			pattern, _ := flags.GetString("pattern")

			ts, err := a.NewToolset()
			if err != nil {
				return err
			}

			files, err := ts.List(dir, pattern)
			if err != nil {
				return err
			}

			for _, f := range files {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				fprintln(stdout, f)
			}

			return nil
		},
	}
}
