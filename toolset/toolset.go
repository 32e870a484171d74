// Package toolset performs agent file operations through a sandbox.
//
// Every operation takes virtual paths, asks the [sandbox.Sandbox] for the
// resolved host path and permission first, runs the mount's suffix and size
// checks, and only then touches the filesystem. Results and errors mention
// virtual paths only.
package toolset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

// DefaultMaxReadChars is the read limit used when neither [Options] nor
// [ReadOptions] set one.
const DefaultMaxReadChars = 20_000

var (
	// ErrNotAFile is returned when a file operation targets a directory or
	// another non-regular file.
	ErrNotAFile = errors.New("not a regular file")
	// ErrNotText is returned by Read and Edit for content that is not UTF-8.
	ErrNotText = errors.New("not a UTF-8 text file")
)

// Toolset runs file operations confined by a sandbox.
//
// A Toolset is safe for concurrent use; it does not serialize operations on
// the same path.
type Toolset struct {
	sb           *sandbox.Sandbox
	maxReadChars int
	debugf       sandbox.Debugf
}

// Options configures a Toolset.
type Options struct {
	// MaxReadChars is the default read limit. Zero means DefaultMaxReadChars.
	MaxReadChars int

	// Debugf receives one line per operation.
	Debugf sandbox.Debugf
}

// New returns a Toolset operating on sb.
func New(sb *sandbox.Sandbox, opts Options) *Toolset {
	maxChars := opts.MaxReadChars
	if maxChars <= 0 {
		maxChars = DefaultMaxReadChars
	}

	return &Toolset{sb: sb, maxReadChars: maxChars, debugf: opts.Debugf}
}

// Sandbox returns the sandbox the toolset is confined to.
func (ts *Toolset) Sandbox() *sandbox.Sandbox {
	return ts.sb
}

func (ts *Toolset) logf(format string, args ...any) {
	if ts.debugf == nil {
		return
	}

	ts.debugf("toolset: "+format, args...)
}

// ReadOptions selects a window of a file, counted in characters.
type ReadOptions struct {
	// MaxChars limits the characters returned. Zero means the toolset default.
	MaxChars int
	// Offset is the first character returned.
	Offset int
}

// ReadResult is the outcome of [Toolset.Read].
type ReadResult struct {
	Content    string
	Truncated  bool
	TotalChars int
	Offset     int
	CharsRead  int
}

// Read returns the text of a file.
func (ts *Toolset) Read(path string, opts ReadOptions) (ReadResult, error) {
	r, err := ts.sb.GetPathConfig(path, sandbox.OpRead)
	if err != nil {
		return ReadResult{}, err
	}

	_, err = statRegular(r)
	if err != nil {
		return ReadResult{}, err
	}

	err = checkSuffixAndSize(r)
	if err != nil {
		return ReadResult{}, err
	}

	text, err := readText(r)
	if err != nil {
		return ReadResult{}, err
	}

	chars := []rune(text)
	total := len(chars)

	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = ts.maxReadChars
	}

	offset := max(opts.Offset, 0)
	chars = chars[min(offset, total):]

	truncated := len(chars) > maxChars
	if truncated {
		chars = chars[:maxChars]
	}

	ts.logf("read %s: %d/%d chars from %d", r.VirtualPath, len(chars), total, offset)

	return ReadResult{
		Content:    string(chars),
		Truncated:  truncated,
		TotalChars: total,
		Offset:     offset,
		CharsRead:  len(chars),
	}, nil
}

// Write creates or replaces a file, creating parent directories.
func (ts *Toolset) Write(path, content string) (string, error) {
	r, err := ts.sb.GetPathConfig(path, sandbox.OpWrite)
	if err != nil {
		return "", err
	}

	err = r.CheckSuffix()
	if err != nil {
		return "", err
	}

	err = r.CheckContentSize(int64(len(content)))
	if err != nil {
		return "", err
	}

	info, err := os.Stat(r.HostPath)
	if err == nil && !info.Mode().IsRegular() {
		return "", fmt.Errorf("cannot write '%s': %w", r.VirtualPath, ErrNotAFile)
	}

	err = os.MkdirAll(filepath.Dir(r.HostPath), 0o755)
	if err != nil {
		return "", ioError("write", r.VirtualPath, err)
	}

	err = os.WriteFile(r.HostPath, []byte(content), 0o644)
	if err != nil {
		return "", ioError("write", r.VirtualPath, err)
	}

	n := utf8.RuneCountInString(content)
	ts.logf("write %s: %d chars", r.VirtualPath, n)

	return fmt.Sprintf("Written %d characters to %s", n, r.VirtualPath), nil
}

// Edit replaces the single occurrence of oldText with newText.
//
// Missing or repeated oldText fails with [*sandbox.EditConflictError]; the
// edited content must still fit the mount's size limit.
func (ts *Toolset) Edit(path, oldText, newText string) (string, error) {
	r, err := ts.sb.GetPathConfig(path, sandbox.OpWrite)
	if err != nil {
		return "", err
	}

	info, err := statRegular(r)
	if err != nil {
		return "", err
	}

	err = checkSuffixAndSize(r)
	if err != nil {
		return "", err
	}

	content, err := readText(r)
	if err != nil {
		return "", err
	}

	if oldText == "" {
		return "", sandbox.NewEditConflict(r.VirtualPath, "search text is empty", oldText)
	}

	switch count := strings.Count(content, oldText); count {
	case 0:
		return "", sandbox.NewEditConflict(r.VirtualPath, "text not found in file", oldText)
	case 1:
	default:
		return "", sandbox.NewEditConflict(r.VirtualPath, fmt.Sprintf("text found %d times (must be unique)", count), oldText)
	}

	updated := strings.Replace(content, oldText, newText, 1)

	err = r.CheckContentSize(int64(len(updated)))
	if err != nil {
		return "", err
	}

	err = os.WriteFile(r.HostPath, []byte(updated), info.Mode().Perm())
	if err != nil {
		return "", ioError("edit", r.VirtualPath, err)
	}

	oldChars, newChars := utf8.RuneCountInString(oldText), utf8.RuneCountInString(newText)
	ts.logf("edit %s: %d -> %d chars", r.VirtualPath, oldChars, newChars)

	return fmt.Sprintf("Edited %s: replaced %d characters with %d characters", r.VirtualPath, oldChars, newChars), nil
}

// statRegular requires the resolved path to be an existing regular file.
func statRegular(r sandbox.Resolved) (fs.FileInfo, error) {
	info, err := os.Stat(r.HostPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file not found: '%s': %w", r.VirtualPath, fs.ErrNotExist)
		}

		return nil, ioError("stat", r.VirtualPath, err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("'%s': %w", r.VirtualPath, ErrNotAFile)
	}

	return info, nil
}

func checkSuffixAndSize(r sandbox.Resolved) error {
	err := r.CheckSuffix()
	if err != nil {
		return err
	}

	return r.CheckSize()
}

func readText(r sandbox.Resolved) (string, error) {
	data, err := os.ReadFile(r.HostPath)
	if err != nil {
		return "", ioError("read", r.VirtualPath, err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("cannot read '%s': %w", r.VirtualPath, ErrNotText)
	}

	return string(data), nil
}

// ioError replaces host paths in err with the virtual path.
func ioError(op, virtual string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("cannot %s '%s': %w", op, virtual, pathErr.Err)
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return fmt.Errorf("cannot %s '%s': %w", op, virtual, linkErr.Err)
	}

	return fmt.Errorf("cannot %s '%s': %w", op, virtual, err)
}
