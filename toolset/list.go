package toolset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

// DefaultListPattern matches every file below the listed directory.
const DefaultListPattern = "**/*"

// List returns the virtual paths of readable regular files below dir whose
// path relative to dir matches pattern (doublestar syntax).
//
// dir "", "." or "/" lists every readable root of the sandbox. Files that
// resolve elsewhere (symlinks, paths shadowed by a nested mount) are left
// out. The result is sorted.
func (ts *Toolset) List(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultListPattern
	}

	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	all := isListAll(dir)

	roots := []string{dir}
	if all {
		roots = ts.sb.ReadableRoots()
	}

	seen := make(map[string]struct{})

	for _, root := range roots {
		r, err := ts.sb.GetPathConfig(root, sandbox.OpRead)
		if err != nil {
			if all {
				continue
			}

			return nil, err
		}

		err = ts.walk(r, pattern, seen)
		if err != nil {
			if all && errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, err
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}

	slices.Sort(out)

	ts.logf("list %q %q: %d files", dir, pattern, len(out))

	return out, nil
}

func isListAll(dir string) bool {
	switch strings.TrimSpace(dir) {
	case "", ".", "/":
		return true
	default:
		return false
	}
}

func (ts *Toolset) walk(root sandbox.Resolved, pattern string, seen map[string]struct{}) error {
	info, err := os.Stat(root.HostPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("directory not found: '%s': %w", root.VirtualPath, fs.ErrNotExist)
		}

		return ioError("list", root.VirtualPath, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("cannot list '%s': not a directory", root.VirtualPath)
	}

	return filepath.WalkDir(root.HostPath, func(hostPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable subtrees are skipped rather than failing the listing.
			if d != nil && d.IsDir() && hostPath != root.HostPath {
				return fs.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root.HostPath, hostPath)
		if err != nil {
			return nil
		}

		rel = filepath.ToSlash(rel)

		matched, err := doublestar.Match(pattern, rel)
		if err != nil || !matched {
			return nil
		}

		virtual := path.Join(root.VirtualPath, rel)

		check, err := ts.sb.GetPathConfig(virtual, sandbox.OpRead)
		if err != nil || check.HostPath != hostPath {
			return nil
		}

		seen[virtual] = struct{}{}

		return nil
	})
}
