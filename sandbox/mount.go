package sandbox

import (
	"path/filepath"
	"slices"
	"strings"
)

// Mode is the access mode of a mount.
type Mode string

const (
	// ModeReadOnly allows reads only. It is the default for an empty Mode.
	ModeReadOnly Mode = "ro"
	// ModeReadWrite allows reads and writes.
	ModeReadWrite Mode = "rw"
)

// Op is the class of operation a path is checked for.
type Op int

const (
	// OpRead covers read, list and the source side of copy.
	OpRead Op = iota + 1
	// OpWrite covers write, edit, delete, both sides of move and the
	// destination side of copy.
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Mount declares a mapping from a virtual path prefix to a host directory
// together with its access policy.
//
// The zero values of the optional fields are usable defaults:
//   - Mode "" means [ModeReadOnly]
//   - Suffixes nil means every suffix is allowed
//   - MaxFileBytes 0 means no size limit
//   - WriteApproval nil means writes require approval
//   - ReadApproval false means reads do not require approval
type Mount struct {
	// HostDir is the host directory. It may be absolute, relative to
	// [Environment.WorkDir] or "~"-prefixed. It is created if missing and
	// canonicalized (symlinks resolved) during construction.
	HostDir string

	// MountPoint is the virtual path prefix, e.g. "/data" or "/".
	// A missing leading "/" is added.
	MountPoint string

	Mode Mode

	// Suffixes lists allowed file extensions (".txt"). Matching is
	// case-insensitive and a missing leading dot is added.
	Suffixes []string

	MaxFileBytes int64

	WriteApproval *bool
	ReadApproval  bool
}

// Writable reports whether the mount allows writes.
func (m Mount) Writable() bool {
	return m.Mode == ModeReadWrite
}

// RequiresWriteApproval reports whether writes under the mount need approval.
func (m Mount) RequiresWriteApproval() bool {
	return m.WriteApproval == nil || *m.WriteApproval
}

// RO returns a read-only mount of hostDir at mountPoint.
func RO(hostDir, mountPoint string) Mount {
	return Mount{HostDir: hostDir, MountPoint: mountPoint, Mode: ModeReadOnly}
}

// RW returns a read-write mount of hostDir at mountPoint.
func RW(hostDir, mountPoint string) Mount {
	return Mount{HostDir: hostDir, MountPoint: mountPoint, Mode: ModeReadWrite}
}

func cloneMount(m Mount) Mount {
	out := m
	out.Suffixes = slices.Clone(m.Suffixes)

	if m.WriteApproval != nil {
		v := *m.WriteApproval
		out.WriteApproval = &v
	}

	return out
}

// normalizeSuffixes lowercases suffixes and adds a leading dot.
// nil stays nil so "no restriction" survives.
func normalizeSuffixes(suffixes []string) []string {
	if suffixes == nil {
		return nil
	}

	out := make([]string, 0, len(suffixes))

	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}

		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}

		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}

	return out
}

func lowerExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
