package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// ErrSilentExit makes a command exit with code 1 without printing an error.
// Commands return it after they already reported the failure themselves.
var ErrSilentExit = errors.New("silent exit")

// errUsage marks errors caused by invalid invocation (exit code 2).
var errUsage = errors.New("usage error")

// usageErrorf returns an error that makes the command print its usage.
func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// Command is a sub-command of the CLI.
type Command struct {
	// Flags holds the command's own flags. "help" is expected to be defined.
	Flags *flag.FlagSet

	// Usage is the synopsis without the binary name, e.g. "ls [flags] [path]".
	Usage string

	// Short is shown in the global command list.
	Short string

	// Long is shown in the command's --help output.
	Long string

	Aliases []string

	// Exec runs the command with the positional arguments left after flag
	// parsing.
	Exec func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error
}

// Name is the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine is the command's entry in the global help.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-22s %s", c.Usage, c.Short)
}

// PrintHelp writes the command's full help.
func (c *Command) PrintHelp(output io.Writer) {
	fprintln(output, "Usage: fs-sandbox "+c.Usage)
	fprintln(output)
	fprintln(output, c.Long)

	if c.Flags.HasFlags() {
		fprintln(output)
		fprintln(output, "Flags:")
		fprintf(output, "%s", c.Flags.FlagUsages())
	}
}

// Run parses args and executes the command. Returns the exit code.
func (c *Command) Run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})
	c.Flags.Usage = func() {}

	err := c.Flags.Parse(args)
	if err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		c.PrintHelp(stderr)

		return 2
	}

	if help, _ := c.Flags.GetBool("help"); help {
		c.PrintHelp(stdout)

		return 0
	}

	err = c.Exec(ctx, stdin, stdout, stderr, c.Flags.Args())

	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrSilentExit):
		return 1
	case errors.Is(err, errUsage):
		fprintError(stderr, err)
		fprintln(stderr)
		c.PrintHelp(stderr)

		return 2
	case errors.Is(err, context.Canceled):
		return 130
	default:
		fprintError(stderr, err)

		return 1
	}
}
