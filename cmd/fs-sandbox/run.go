package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

// Run is the main entry point. Returns exit code.
// sigCh can be nil if signal handling is not needed (e.g., in tests).
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	// Create fresh global flags for this invocation
	globalFlags := flag.NewFlagSet("fs-sandbox", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagVersion := globalFlags.BoolP("version", "v", false, "Show version and exit")
	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file`")
	flagDebug := globalFlags.Bool("debug", false, "Log debug messages to stderr")
	flagLogLevel := globalFlags.String("log-level", "warn", "Minimum log `level`")
	flagLogFormat := globalFlags.String("log-format", "console", "Log `format` (json or console)")
	flagAllowRead := globalFlags.StringArray("allow-read", nil, "Derive: readable `dir`")
	flagAllowWrite := globalFlags.StringArray("allow-write", nil, "Derive: writable `dir`")
	flagReadOnly := globalFlags.Bool("readonly", false, "Derive: drop write access")
	flagInherit := globalFlags.Bool("inherit", false, "Derive: keep unset allowlists of the parent")

	err := globalFlags.Parse(args[1:])
	if err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		printGlobalOptions(stderr)

		return 2
	}

	// Handle --version early, before loading config
	if *flagVersion {
		if commit == "none" && date == "unknown" {
			fprintf(stdout, "fs-sandbox %s (built from source)\n", version)
		} else {
			fprintf(stdout, "fs-sandbox %s (%s, %s)\n", version, commit, date)
		}

		return 0
	}

	level, err := ParseLevel(*flagLogLevel)
	if err != nil {
		fprintError(stderr, err)

		return 2
	}

	if *flagDebug {
		level = min(level, zerolog.DebugLevel)
	}

	pretty, err := ParseFormat(*flagLogFormat)
	if err != nil {
		fprintError(stderr, err)

		return 2
	}

	logger := NewLogger(LogConfig{Level: level, Output: stderr, Pretty: pretty})

	// Create context early so config loading can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load config (handles --cwd resolution internally)
	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride: *flagCwd,
		ConfigPath:      *flagConfig,
		Env:             env,
	})
	if err != nil {
		fprintError(stderr, err)

		return 1
	}

	for label, path := range cfg.LoadedConfigFiles {
		logger.Debug().Str("source", label).Str("path", path).Msg("config loaded")
	}

	a := &app{cfg: &cfg, env: env, logger: logger}

	if derivationRequested(globalFlags) {
		opts := sandbox.DeriveOptions{Inherit: *flagInherit}

		if globalFlags.Changed("allow-read") {
			opts.AllowRead = nonNil(*flagAllowRead)
		}

		if globalFlags.Changed("allow-write") {
			opts.AllowWrite = nonNil(*flagAllowWrite)
		}

		if globalFlags.Changed("readonly") {
			opts.ReadOnly = flagReadOnly
		}

		a.derive = &opts
	}

	// Create all commands
	commands := []*Command{
		ResolveCmd(a),
		CheckCmd(a),
		RootsCmd(a),
		LsCmd(a),
		CatCmd(a),
		WriteCmd(a),
		ExplainCmd(a),
	}

	commandMap := make(map[string]*Command, len(commands)*2)
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases {
			commandMap[alias] = cmd
		}
	}

	commandAndArgs := globalFlags.Args()

	// Show help: explicit --help or bare `fs-sandbox` with no args
	if *flagHelp || len(commandAndArgs) == 0 {
		printUsage(stdout, commands)

		return 0
	}

	cmdName := commandAndArgs[0]

	cmd, ok := commandMap[cmdName]
	if !ok {
		fprintError(stderr, fmt.Errorf("unknown command %q", cmdName))
		fprintln(stderr)
		printGlobalOptions(stderr)

		return 2
	}

	// Run command in goroutine so we can handle signals
	done := make(chan int, 1)

	go func() {
		done <- cmd.Run(ctx, stdin, stdout, stderr, commandAndArgs[1:])
	}()

	// Handle nil sigCh for tests
	if sigCh == nil {
		return <-done
	}

	// Wait for completion or first signal
	select {
	case exitCode := <-done:
		return exitCode
	case <-sigCh:
		fprintln(stderr, "Interrupted, waiting up to 10s for cleanup... (Ctrl+C again to force exit)")
		cancel()
	}

	// Wait for completion, timeout, or second signal
	select {
	case <-done:
		fprintln(stderr, "Cleanup complete.")

		return 130
	case <-time.After(10 * time.Second):
		fprintln(stderr, "Cleanup timed out, forced exit.")

		return 130
	case <-sigCh:
		fprintln(stderr, "Forced exit.")

		return 130
	}
}

func derivationRequested(flags *flag.FlagSet) bool {
	for _, name := range []string{"allow-read", "allow-write", "readonly", "inherit"} {
		if flags.Changed(name) {
			return true
		}
	}

	return false
}

// nonNil keeps "given but empty" distinct from "not given".
func nonNil(entries []string) []string {
	if entries == nil {
		return []string{}
	}

	return entries
}

func fprintln(output io.Writer, a ...any) {
	_, _ = fmt.Fprintln(output, a...)
}

func fprintf(output io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(output, format, a...)
}

// ANSI color codes for terminal output.
const (
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// fprintError prints an error message with optional red coloring for TTY.
func fprintError(output io.Writer, err error) {
	if IsTerminal() {
		fprintln(output, colorRed+"error:"+colorReset, err)
	} else {
		fprintln(output, "error:", err)
	}
}

const globalOptionsHelp = `  -h, --help               Show help
  -v, --version            Show version and exit
  -C, --cwd <dir>          Run as if started in <dir>
  -c, --config <file>      Use specified config file
      --debug              Log debug messages to stderr
      --log-level <level>  Minimum log level: trace, debug, info, warn, error (default warn)
      --log-format <fmt>   Log format: json or console (default console)

Derivation flags (narrow the sandbox before running the command):
      --allow-read <dir>   Allow reading below <dir> (repeatable)
      --allow-write <dir>  Allow writing below <dir> (repeatable)
      --readonly           Drop write access (--readonly=false demands it)
      --inherit            Keep the parent's access for allowlists not given`

func printGlobalOptions(output io.Writer) {
	fprintln(output, "Usage: fs-sandbox [flags] <command> [args]")
	fprintln(output)
	fprintln(output, "Global flags:")
	fprintln(output, globalOptionsHelp)
	fprintln(output)
	fprintln(output, "Run 'fs-sandbox --help' for a list of commands.")
}

func printUsage(output io.Writer, commands []*Command) {
	fprintln(output, "fs-sandbox - filesystem boundary for tool-calling agents")
	fprintln(output)
	fprintln(output, "Usage: fs-sandbox [flags] <command> [args]")
	fprintln(output)
	fprintln(output, "Flags:")
	fprintln(output, globalOptionsHelp)
	fprintln(output)
	fprintln(output, "Commands:")

	for _, cmd := range commands {
		fprintln(output, cmd.HelpLine())
	}

	fprintln(output)
	fprintln(output, "Run 'fs-sandbox <command> --help' for more information on a command.")
}

// isTerminal is a function variable that returns true if stdin is a terminal.
// It can be overridden in tests to control TTY behavior.
var isTerminal = func() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return isTerminal()
}
