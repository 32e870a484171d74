package main

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/fs-sandbox/toolset"
)

// CatCmd creates the cat command.
func CatCmd(a *app) *Command {
	flags := flag.NewFlagSet("cat", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.Int("offset", 0, "First character to print")
	flags.Int("max-chars", 0, "Maximum characters to print (0: configured default)")

	return &Command{
		Flags:   flags,
		Usage:   "cat [flags] <path>",
		Short:   "Print a text file",
		Long:    "Read a text file through the sandbox. Truncation is reported on stderr.",
		Aliases: []string{"read"},
		Exec: func(_ context.Context, _ io.Reader, stdout, stderr io.Writer, args []string) error {
			if len(args) != 1 {
				return usageErrorf("expected exactly one path")
			}

			offset, _ := flags.GetInt("offset")
			maxChars, _ := flags.GetInt("max-chars")

			if offset < 0 || maxChars < 0 {
				return usageErrorf("--offset and --max-chars must not be negative")
			}

			ts, err := a.NewToolset()
			if err != nil {
				return err
			}

			res, err := ts.Read(args[0], toolset.ReadOptions{Offset: offset, MaxChars: maxChars})
			if err != nil {
				return err
			}

			fprintf(stdout, "%s", res.Content)

			if res.Truncated {
				fprintf(stderr, "[truncated: showing characters %d-%d of %d]\n",
					res.Offset, res.Offset+res.CharsRead, res.TotalChars)
			}

			return nil
		},
	}
}
