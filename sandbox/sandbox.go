// Package sandbox confines file access of tool-calling agents to declared
// directory mounts.
//
// A [Sandbox] maps virtual paths (what an agent sees, e.g. "/data/report.md")
// to host paths inside the mount that owns them, and decides whether the
// path may be read or written. The package does not perform file I/O
// itself; callers ask the sandbox for a [Resolved] path before every
// operation and run the suffix and size checks before touching the file.
//
// # Mounts
//
// Mounts are declared through one of three configuration sources: a mount
// list ([Mounts]), a single host directory at "/" ([Root]) or a map of named
// paths ([NamedPaths]). Whatever the source, construction produces one
// immutable mount table:
//
//   - host directories are created if missing and canonicalized
//   - duplicate mount points and overlapping host directories are rejected
//   - the longest matching mount point owns a path, "/" is the fallback
//
// # Resolution
//
// Resolution normalizes the virtual path, finds the owning mount, and
// resolves the remainder against the mount's host directory. Containment is
// checked after symlinks are resolved, so neither ".." nor a symlink inside
// the mount can reach host files outside it.
//
// # Derivation
//
// [Sandbox.Derive] returns a child restricted to allowlists of directories.
// Every allowlist entry is validated against the parent for the same
// operation, so a child can never read or write anything its parent cannot.
//
// # Security Note
//
// Checks and the I/O that follows are not atomic. A process that can modify
// the host directories concurrently can race a resolved path. The sandbox
// constrains an agent's tool calls; it is not a replacement for OS-level
// isolation.
package sandbox

import (
	"errors"
	"fmt"
	"os"
)

// Sandbox is a filesystem boundary: a shared mount table plus optional read
// and write allowlists.
//
// A Sandbox must not be copied after first use. It is immutable after
// construction and safe for concurrent use. Derived sandboxes share the
// mount table of the root and hold a reference to their parent.
type Sandbox struct {
	noCopy noCopy

	table *mountTable
	norm  normalizer

	parent *Sandbox

	// read and write restrict the sandbox to allowlisted directories.
	// nil inherits the parent's decision; the root has no restriction.
	read  *allowlist
	write *allowlist

	debugf Debugf
}

// Config configures a root sandbox.
//
// Config is independent from any config-file loading or CLI flag parsing;
// callers are expected to produce a final Config before constructing a
// Sandbox.
type Config struct {
	// Source declares the mounts. It is required.
	Source Source

	// StrictTraversal rejects every path containing a ".." segment when the
	// sandbox consists of a single mount at "/". For other mount layouts ".."
	// is resolved and checked for escapes like any other path.
	StrictTraversal bool

	// Debugf receives debug messages from construction, derivation and
	// resolution. Derived sandboxes inherit it.
	Debugf Debugf
}

// Resolved is the result of a single resolution. It is never cached:
// allowlists and the host filesystem can change between calls.
type Resolved struct {
	// VirtualPath is the normalized virtual path that was resolved.
	VirtualPath string
	// MountPoint is the mount point of the owning mount.
	MountPoint string
	// HostPath is the canonical host path.
	HostPath string
	// Mount is the owning mount with defaults applied and HostDir canonical.
	Mount Mount
}

// CheckSuffix runs [CheckSuffix] for r.
func (r Resolved) CheckSuffix() error {
	return CheckSuffix(r.HostPath, r.Mount, r.VirtualPath)
}

// CheckSize runs [CheckSize] for r.
func (r Resolved) CheckSize() error {
	return CheckSize(r.HostPath, r.Mount, r.VirtualPath)
}

// CheckContentSize runs [CheckContentSize] for r.
func (r Resolved) CheckContentSize(size int64) error {
	return CheckContentSize(size, r.Mount, r.VirtualPath)
}

// Debugf receives debug messages.
//
// The function should be safe to call from any goroutine.
type Debugf func(format string, args ...any)

func (d Debugf) logf(format string, args ...any) {
	if d == nil {
		return
	}

	d(format, args...)
}

// New constructs a root Sandbox using an Environment derived from the
// current process (see [DefaultEnvironment]).
func New(cfg *Config) (*Sandbox, error) {
	env, err := DefaultEnvironment()
	if err != nil {
		return nil, fmt.Errorf("sandbox: creating default environment: %w", err)
	}

	return NewWithEnvironment(cfg, env)
}

// NewWithEnvironment constructs a root Sandbox using an explicit environment
// to resolve "~" and relative host directories.
//
// Errors describing the configuration are [*ConfigurationError] values
// (possibly several, joined).
func NewWithEnvironment(cfg *Config, env Environment) (*Sandbox, error) {
	if cfg == nil {
		return nil, errors.New("sandbox: config is nil")
	}

	decls, aliases, err := validateConfigAndEnv(cfg, env)
	if err != nil {
		return nil, fmt.Errorf("sandbox: validating: %w", err)
	}

	table, err := buildMountTable(decls, newPathResolver(env), cfg.Debugf)
	if err != nil {
		return nil, fmt.Errorf("sandbox: building mount table: %w", err)
	}

	norm := normalizer{strict: cfg.StrictTraversal && table.singleRoot()}

	if len(aliases) > 0 {
		norm.aliases = make(map[string]struct{}, len(aliases))
		for _, name := range aliases {
			norm.aliases[name] = struct{}{}
		}
	}

	return &Sandbox{table: table, norm: norm, debugf: cfg.Debugf}, nil
}

// Normalize returns the canonical virtual path for raw, applying the
// sandbox's named-path aliases and traversal policy.
func (s *Sandbox) Normalize(raw string) (string, error) {
	virtual, err := s.norm.normalize(raw)
	if err != nil {
		return "", s.withRoots(err)
	}

	return virtual, nil
}

// Resolve returns the host path of a readable virtual path.
func (s *Sandbox) Resolve(path string) (string, error) {
	r, err := s.GetPathConfig(path, OpRead)
	if err != nil {
		return "", err
	}

	return r.HostPath, nil
}

// GetPathConfig resolves path for op.
//
// It normalizes the path, finds the owning mount, resolves the remainder
// inside the mount's host directory and applies the mount mode (for
// [OpWrite]) and the allowlist chain.
func (s *Sandbox) GetPathConfig(path string, op Op) (Resolved, error) {
	virtual, err := s.Normalize(path)
	if err != nil {
		return Resolved{}, err
	}

	m, ok := s.table.find(virtual)
	if !ok {
		return Resolved{}, s.notInSandbox(virtual)
	}

	hostPath, err := resolveWithin(m.HostDir, s.table.fragment(virtual, m))
	if err != nil {
		s.debugf.logf("sandbox: resolve %s: %v", virtual, err)

		return Resolved{}, s.notInSandbox(virtual)
	}

	if op == OpWrite && !m.Writable() {
		return Resolved{}, &PathNotWritableError{Path: virtual, WritableRoots: s.WritableRoots()}
	}

	if !s.permits(op, m.MountPoint, hostPath) {
		s.debugf.logf("sandbox: %s %s: denied by allowlist", op, virtual)

		return Resolved{}, s.notInSandbox(virtual)
	}

	return Resolved{
		VirtualPath: virtual,
		MountPoint:  m.MountPoint,
		HostPath:    hostPath,
		Mount:       cloneMount(m),
	}, nil
}

// CanRead reports whether path may be read. It never fails.
func (s *Sandbox) CanRead(path string) bool {
	_, err := s.GetPathConfig(path, OpRead)

	return err == nil
}

// CanWrite reports whether path may be written. It never fails.
func (s *Sandbox) CanWrite(path string) bool {
	_, err := s.GetPathConfig(path, OpWrite)

	return err == nil
}

// NeedsReadApproval reports whether reading path requires approval. It is
// false whenever the read would be denied anyway.
func (s *Sandbox) NeedsReadApproval(path string) bool {
	r, err := s.GetPathConfig(path, OpRead)
	if err != nil {
		return false
	}

	return r.Mount.ReadApproval
}

// NeedsWriteApproval reports whether writing path requires approval. It is
// false whenever the write would be denied anyway.
func (s *Sandbox) NeedsWriteApproval(path string) bool {
	r, err := s.GetPathConfig(path, OpWrite)
	if err != nil {
		return false
	}

	return r.Mount.RequiresWriteApproval()
}

// ReadableRoots lists the virtual roots the sandbox may read, for messages
// and listings: the mount points of a root sandbox or the allowlist labels
// of a derived one.
func (s *Sandbox) ReadableRoots() []string {
	return s.roots(OpRead)
}

// WritableRoots is like [Sandbox.ReadableRoots] for writes. For a root
// sandbox only read-write mounts are listed.
func (s *Sandbox) WritableRoots() []string {
	return s.roots(OpWrite)
}

// Mounts returns the mounts in declaration order with defaults applied and
// host directories canonical.
func (s *Sandbox) Mounts() []Mount {
	out := make([]Mount, 0, len(s.table.declared))
	for _, m := range s.table.declared {
		out = append(out, cloneMount(m))
	}

	return out
}

// Parent returns the sandbox s was derived from, or nil for a root sandbox.
func (s *Sandbox) Parent() *Sandbox {
	return s.parent
}

func (s *Sandbox) roots(op Op) []string {
	if list := s.effectiveList(op); list != nil {
		return list.labels()
	}

	return s.table.mountPoints(op == OpWrite)
}

// permits applies the nearest non-nil allowlist for op.
func (s *Sandbox) permits(op Op, mountPoint, hostPath string) bool {
	list := s.effectiveList(op)
	if list == nil {
		return true
	}

	return list.permits(mountPoint, hostPath)
}

// effectiveList walks up to the first sandbox with an allowlist for op.
// nil means no restriction.
func (s *Sandbox) effectiveList(op Op) *allowlist {
	for b := s; b != nil; b = b.parent {
		list := b.read
		if op == OpWrite {
			list = b.write
		}

		if list != nil {
			return list
		}
	}

	return nil
}

func (s *Sandbox) notInSandbox(virtual string) error {
	return &PathNotInSandboxError{Path: virtual, AccessibleRoots: s.ReadableRoots()}
}

// withRoots fills in the accessible roots of normalizer errors.
func (s *Sandbox) withRoots(err error) error {
	var notIn *PathNotInSandboxError
	if errors.As(err, &notIn) && notIn.AccessibleRoots == nil {
		notIn.AccessibleRoots = s.ReadableRoots()
	}

	return err
}

// CheckSuffix fails with [*SuffixNotAllowedError] when m restricts suffixes
// and the extension of hostPath (compared case-insensitively) is not among
// them. The error carries virtualPath, never the host path.
func CheckSuffix(hostPath string, m Mount, virtualPath string) error {
	if m.Suffixes == nil {
		return nil
	}

	suffix := lowerExt(hostPath)

	for _, allowed := range normalizeSuffixes(m.Suffixes) {
		if suffix == allowed {
			return nil
		}
	}

	return &SuffixNotAllowedError{Path: virtualPath, Suffix: suffix, Allowed: normalizeSuffixes(m.Suffixes)}
}

// CheckSize fails with [*FileTooLargeError] when m limits file size and the
// file at hostPath exists and exceeds it.
func CheckSize(hostPath string, m Mount, virtualPath string) error {
	if m.MaxFileBytes <= 0 {
		return nil
	}

	info, err := os.Stat(hostPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("stat '%s': %w", virtualPath, err)
	}

	return CheckContentSize(info.Size(), m, virtualPath)
}

// CheckContentSize fails with [*FileTooLargeError] when m limits file size
// and size exceeds it. It is used for content about to be written.
func CheckContentSize(size int64, m Mount, virtualPath string) error {
	if m.MaxFileBytes <= 0 || size <= m.MaxFileBytes {
		return nil
	}

	return &FileTooLargeError{Path: virtualPath, Size: size, Limit: m.MaxFileBytes}
}

// marker for go vet.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
