// Command fs-sandbox inspects and exercises a filesystem sandbox from the
// shell: it loads a mount configuration, optionally derives a narrower
// sandbox, and resolves, checks, lists, reads or writes virtual paths
// through it.
package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// Set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	env := make(map[string]string)

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env, sigCh))
}
