package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

// DebugLogger writes the human-readable trace of the explain command.
// It is disabled when output is nil.
type DebugLogger struct {
	output io.Writer
}

// NewDebugLogger creates a new debug logger.
// If output is nil, the logger is disabled and all methods are no-ops.
func NewDebugLogger(output io.Writer) *DebugLogger {
	return &DebugLogger{output: output}
}

// Enabled returns true if debug logging is enabled.
func (d *DebugLogger) Enabled() bool {
	return d.output != nil
}

// Section outputs a section header.
func (d *DebugLogger) Section(name string) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "\n=== %s ===\n", name)
}

// Logf outputs a formatted debug message.
func (d *DebugLogger) Logf(format string, args ...any) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, format+"\n", args...)
}

// ConfigFile outputs information about a config file.
func (d *DebugLogger) ConfigFile(label, path string, loaded bool) {
	if d.output == nil {
		return
	}

	if loaded {
		_, _ = fmt.Fprintf(d.output, "  %s: %s\n", label, path)
	} else {
		_, _ = fmt.Fprintf(d.output, "  %s: (not found)\n", label)
	}
}

// Mount outputs one mount with its policy.
func (d *DebugLogger) Mount(m sandbox.Mount) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "  %s -> %s [%s]%s\n", m.MountPoint, m.HostDir, m.Mode, mountPolicy(m))
}

// Roots outputs a list of virtual roots.
func (d *DebugLogger) Roots(label string, roots []string) {
	if d.output == nil {
		return
	}

	if len(roots) == 0 {
		_, _ = fmt.Fprintf(d.output, "  %s: (none)\n", label)
	} else {
		_, _ = fmt.Fprintf(d.output, "  %s: %s\n", label, strings.Join(roots, ", "))
	}
}

// Decision outputs the result of checking a path for op.
func (d *DebugLogger) Decision(op sandbox.Op, r sandbox.Resolved, err error) {
	if d.output == nil {
		return
	}

	if err != nil {
		_, _ = fmt.Fprintf(d.output, "  %s: deny (%s)\n", op, sandbox.KindOf(err))

		return
	}

	approval := r.Mount.ReadApproval
	if op == sandbox.OpWrite {
		approval = r.Mount.RequiresWriteApproval()
	}

	if approval {
		_, _ = fmt.Fprintf(d.output, "  %s: allow (needs approval)\n", op)
	} else {
		_, _ = fmt.Fprintf(d.output, "  %s: allow\n", op)
	}
}

// mountPolicy renders the optional policy fields of m, or "".
func mountPolicy(m sandbox.Mount) string {
	var parts []string

	if m.Suffixes != nil {
		parts = append(parts, "suffixes "+strings.Join(m.Suffixes, ","))
	}

	if m.MaxFileBytes > 0 {
		parts = append(parts, "max "+humanize.Comma(m.MaxFileBytes)+" bytes")
	}

	if m.ReadApproval {
		parts = append(parts, "read approval")
	}

	if m.Writable() && m.RequiresWriteApproval() {
		parts = append(parts, "write approval")
	}

	if len(parts) == 0 {
		return ""
	}

	return " " + strings.Join(parts, "; ")
}

// debugConfigLoading outputs which config files were loaded.
func debugConfigLoading(debug *DebugLogger, cfg *Config) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Config Loading")

	if len(cfg.LoadedConfigFiles) == 0 {
		debug.Logf("  No config files loaded")

		return
	}

	if path, ok := cfg.LoadedConfigFiles["global"]; ok {
		debug.ConfigFile("Global config", path, true)
	} else {
		debug.ConfigFile("Global config", "", false)
	}

	if path, ok := cfg.LoadedConfigFiles["explicit"]; ok {
		debug.ConfigFile("Explicit config (--config)", path, true)
	} else if path, ok := cfg.LoadedConfigFiles["project"]; ok {
		debug.ConfigFile("Project config", path, true)
	} else {
		debug.ConfigFile("Project config", "", false)
	}
}

// debugSandbox outputs the mount table and the effective roots of sb.
func debugSandbox(debug *DebugLogger, sb *sandbox.Sandbox) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Mounts")

	for _, m := range sb.Mounts() {
		debug.Mount(m)
	}

	debug.Section("Access")

	if sb.Parent() != nil {
		debug.Logf("  derived sandbox")
	}

	debug.Roots("readable", sb.ReadableRoots())
	debug.Roots("writable", sb.WritableRoots())
}

// debugPathDecision outputs how raw is normalized, which mount owns it, and
// whether it may be read and written.
func debugPathDecision(debug *DebugLogger, sb *sandbox.Sandbox, raw string) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Path " + raw)

	virtual, err := sb.Normalize(raw)
	if err != nil {
		debug.Logf("  normalize: %s", firstLine(err))

		return
	}

	debug.Logf("  virtual: %s", virtual)

	read, readErr := sb.GetPathConfig(virtual, sandbox.OpRead)
	write, writeErr := sb.GetPathConfig(virtual, sandbox.OpWrite)

	switch {
	case readErr == nil:
		debug.Logf("  mount: %s", read.MountPoint)
		debug.Logf("  host: %s", read.HostPath)
	case writeErr == nil:
		debug.Logf("  mount: %s", write.MountPoint)
		debug.Logf("  host: %s", write.HostPath)
	}

	debug.Decision(sandbox.OpRead, read, readErr)
	debug.Decision(sandbox.OpWrite, write, writeErr)

	if readErr == nil {
		suffixErr := read.CheckSuffix()
		if suffixErr != nil {
			debug.Logf("  suffix: %s", firstLine(suffixErr))
		}
	}
}

func firstLine(err error) string {
	line, _, _ := strings.Cut(err.Error(), "\n")

	return line
}
