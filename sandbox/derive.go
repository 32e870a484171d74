package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"
)

// DeriveOptions narrows a derived sandbox.
//
// AllowRead and AllowWrite distinguish nil (not given) from empty but
// non-nil (no access). Entries are virtual directory paths resolved against
// the parent.
type DeriveOptions struct {
	AllowRead  []string
	AllowWrite []string

	// ReadOnly true removes write access. ReadOnly false demands write access
	// and fails with [*PermissionEscalationError] when the parent has no
	// writable root.
	ReadOnly *bool

	// Inherit leaves allowlists that were not given to the parent instead of
	// defaulting them to no access.
	Inherit bool
}

// allowEntry is one resolved allowlist directory.
type allowEntry struct {
	mountPoint string
	hostPrefix string
	label      string
}

type allowlist struct {
	entries []allowEntry
}

func (l *allowlist) permits(mountPoint, hostPath string) bool {
	for _, e := range l.entries {
		if e.mountPoint == mountPoint && isWithin(e.hostPrefix, hostPath) {
			return true
		}
	}

	return false
}

func (l *allowlist) labels() []string {
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		if !slices.Contains(out, e.label) {
			out = append(out, e.label)
		}
	}

	return out
}

func (l *allowlist) String() string {
	if l == nil {
		return "inherit"
	}

	return "[" + strings.Join(l.labels(), ", ") + "]"
}

// Derive returns a child sandbox whose access is a subset of s.
//
// The rules apply in order:
//  1. ReadOnly false with no writable root in s fails with
//     [*PermissionEscalationError].
//  2. Without Inherit: AllowWrite alone implies AllowRead of the same
//     entries, AllowRead alone means no write access, and neither means no
//     access at all.
//  3. ReadOnly true forces no write access.
//  4. With Inherit, an allowlist that was not given defers to s.
//
// Every entry must be a directory path without ".." segments, and must be
// readable (AllowRead) or writable (AllowWrite) in s.
func (s *Sandbox) Derive(opts DeriveOptions) (*Sandbox, error) {
	if opts.ReadOnly != nil && !*opts.ReadOnly && len(s.WritableRoots()) == 0 {
		return nil, &PermissionEscalationError{Reason: "write access requested but the parent sandbox has no writable paths"}
	}

	read := cleanEntries(opts.AllowRead)
	write := cleanEntries(opts.AllowWrite)

	if !opts.Inherit {
		switch {
		case read == nil && write == nil:
			read, write = []string{}, []string{}
		case read == nil:
			read = slices.Clone(write)
		case write == nil:
			write = []string{}
		}
	}

	if opts.ReadOnly != nil && *opts.ReadOnly {
		write = []string{}
	}

	readList, readErr := s.resolveAllowlist(read, OpRead)
	writeList, writeErr := s.resolveAllowlist(write, OpWrite)

	err := errors.Join(readErr, writeErr)
	if err != nil {
		return nil, fmt.Errorf("sandbox: deriving: %w", err)
	}

	s.debugf.logf("sandbox: derive: read=%s write=%s", readList, writeList)

	return &Sandbox{
		table:  s.table,
		norm:   s.norm,
		parent: s,
		read:   readList,
		write:  writeList,
		debugf: s.debugf,
	}, nil
}

// cleanEntries trims entries and drops blank ones. nil stays nil.
func cleanEntries(entries []string) []string {
	if entries == nil {
		return nil
	}

	out := make([]string, 0, len(entries))

	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e != "" {
			out = append(out, e)
		}
	}

	return out
}

func (s *Sandbox) resolveAllowlist(entries []string, op Op) (*allowlist, error) {
	if entries == nil {
		return nil, nil
	}

	list := &allowlist{entries: make([]allowEntry, 0, len(entries))}

	var errs []error

	for _, raw := range entries {
		entry, err := s.resolveAllowEntry(raw, op)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		list.entries = append(list.entries, entry)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return list, nil
}

// resolveAllowEntry validates raw against s for op and resolves it to the
// owning mount and host directory prefix.
func (s *Sandbox) resolveAllowEntry(raw string, op Op) (allowEntry, error) {
	virtual, err := s.Normalize(raw)
	if err != nil {
		return allowEntry{}, err
	}

	if hasDotDot(virtual) {
		return allowEntry{}, Configurationf("allowlist entry %q must not contain '..' segments", raw)
	}

	r, err := s.GetPathConfig(virtual, op)
	if err != nil {
		return allowEntry{}, err
	}

	info, err := os.Stat(r.HostPath)
	if err == nil && !info.IsDir() {
		return allowEntry{}, Configurationf("allowlist entry %q is a file; allowlists take directories, use %q instead", virtual, path.Dir(virtual))
	}

	return allowEntry{mountPoint: r.MountPoint, hostPrefix: r.HostPath, label: virtual}, nil
}
