package sandbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrorKind identifies the category of a boundary error.
//
// The zero value is KindUnknown and is returned by [KindOf] for errors that
// did not originate in this package.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPathNotInSandbox
	KindPathNotWritable
	KindSuffixNotAllowed
	KindFileTooLarge
	KindEditConflict
	KindPermissionEscalation
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindPathNotInSandbox:
		return "path_not_in_sandbox"
	case KindPathNotWritable:
		return "path_not_writable"
	case KindSuffixNotAllowed:
		return "suffix_not_allowed"
	case KindFileTooLarge:
		return "file_too_large"
	case KindEditConflict:
		return "edit_conflict"
	case KindPermissionEscalation:
		return "permission_escalation"
	case KindConfiguration:
		return "configuration_error"
	default:
		return "unknown"
	}
}

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrPathNotInSandbox     = errors.New("path not in sandbox")
	ErrPathNotWritable      = errors.New("path not writable")
	ErrSuffixNotAllowed     = errors.New("suffix not allowed")
	ErrFileTooLarge         = errors.New("file too large")
	ErrEditConflict         = errors.New("edit conflict")
	ErrPermissionEscalation = errors.New("permission escalation")
	ErrConfiguration        = errors.New("configuration error")
)

// Error is implemented by every error this package returns to describe a
// boundary decision. The set of implementations is closed.
//
// Messages are self-contained and always list the alternatives that are
// currently valid (accessible roots, writable roots, allowed suffixes), so
// they can be handed to a language model as-is.
type Error interface {
	error
	Kind() ErrorKind
	sealed()
}

// KindOf returns the kind of the first [Error] in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var sbErr Error
	if errors.As(err, &sbErr) {
		return sbErr.Kind()
	}

	return KindUnknown
}

// PathNotInSandboxError reports a path outside every mount, outside the
// allowlist, or escaping its mount through traversal or a symlink.
type PathNotInSandboxError struct {
	Path            string
	AccessibleRoots []string
}

func (e *PathNotInSandboxError) Error() string {
	return fmt.Sprintf("Cannot access '%s': path is outside sandbox.\nReadable paths: %s", e.Path, joinRoots(e.AccessibleRoots))
}

func (*PathNotInSandboxError) Kind() ErrorKind { return KindPathNotInSandbox }
func (*PathNotInSandboxError) Is(target error) bool { return target == ErrPathNotInSandbox }
func (*PathNotInSandboxError) sealed() {}

// PathNotWritableError reports a write-class operation on a read-only mount.
type PathNotWritableError struct {
	Path          string
	WritableRoots []string
}

func (e *PathNotWritableError) Error() string {
	return fmt.Sprintf("Cannot write to '%s': path is read-only.\nWritable paths: %s", e.Path, joinRoots(e.WritableRoots))
}

func (*PathNotWritableError) Kind() ErrorKind { return KindPathNotWritable }
func (*PathNotWritableError) Is(target error) bool { return target == ErrPathNotWritable }
func (*PathNotWritableError) sealed() {}

// SuffixNotAllowedError reports a file extension outside the mount's
// allowed suffixes. Path is always the virtual path.
type SuffixNotAllowedError struct {
	Path    string
	Suffix  string
	Allowed []string
}

func (e *SuffixNotAllowedError) Error() string {
	return fmt.Sprintf("Cannot access '%s': suffix '%s' not allowed.\nAllowed suffixes: %s", e.Path, e.Suffix, joinRoots(e.Allowed))
}

func (*SuffixNotAllowedError) Kind() ErrorKind { return KindSuffixNotAllowed }
func (*SuffixNotAllowedError) Is(target error) bool { return target == ErrSuffixNotAllowed }
func (*SuffixNotAllowedError) sealed() {}

// FileTooLargeError reports a file, or edited content, above the mount's
// size limit.
type FileTooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("Cannot access '%s': file too large (%s bytes).\nMaximum allowed: %s bytes",
		e.Path, humanize.Comma(e.Size), humanize.Comma(e.Limit))
}

func (*FileTooLargeError) Kind() ErrorKind { return KindFileTooLarge }
func (*FileTooLargeError) Is(target error) bool { return target == ErrFileTooLarge }
func (*FileTooLargeError) sealed() {}

// previewLimit caps the searched text quoted back in an EditConflictError.
const previewLimit = 100

// EditConflictError reports that the text to replace was missing or not unique.
type EditConflictError struct {
	Path    string
	Reason  string
	Preview string
}

// NewEditConflict builds an EditConflictError, truncating searched to a
// short preview.
func NewEditConflict(path, reason, searched string) *EditConflictError {
	preview := searched
	if r := []rune(preview); len(r) > previewLimit {
		preview = string(r[:previewLimit]) + "..."
	}

	return &EditConflictError{Path: path, Reason: reason, Preview: preview}
}

func (e *EditConflictError) Error() string {
	return fmt.Sprintf("Cannot edit '%s': %s.\nSearched for: %q", e.Path, e.Reason, e.Preview)
}

func (*EditConflictError) Kind() ErrorKind { return KindEditConflict }
func (*EditConflictError) Is(target error) bool { return target == ErrEditConflict }
func (*EditConflictError) sealed() {}

// PermissionEscalationError reports a derivation that would grant a child
// more than its parent has.
type PermissionEscalationError struct {
	Reason string
}

func (e *PermissionEscalationError) Error() string {
	return "Cannot derive sandbox: " + e.Reason
}

func (*PermissionEscalationError) Kind() ErrorKind { return KindPermissionEscalation }
func (*PermissionEscalationError) Is(target error) bool { return target == ErrPermissionEscalation }
func (*PermissionEscalationError) sealed() {}

// ConfigurationError reports a malformed mount table, configuration source,
// or allowlist entry.
type ConfigurationError struct {
	Reason string
}

// Configurationf formats a ConfigurationError.
func Configurationf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return "invalid sandbox configuration: " + e.Reason
}

func (*ConfigurationError) Kind() ErrorKind { return KindConfiguration }
func (*ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
func (*ConfigurationError) sealed() {}

func joinRoots(roots []string) string {
	if len(roots) == 0 {
		return "(none)"
	}

	return strings.Join(roots, ", ")
}

// internalErrorf reports an internal invariant violation.
//
// These errors indicate a bug in this package rather than invalid caller input.
func internalErrorf(op, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)

	if op == "" {
		return fmt.Errorf("sandbox: internal error: %s", detail)
	}

	return fmt.Errorf("sandbox: internal error: %s: %s", op, detail)
}
