package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// maxSymlinkHops matches the Linux MAXSYMLINKS limit for one path walk.
const maxSymlinkHops = 40

var errEscapesMount = errors.New("path escapes its mount")

// resolveWithin joins fragment to hostDir, canonicalizes the result and
// verifies it is still hostDir or below it.
//
// hostDir must already be canonical. The containment check runs on the
// canonical path, so both ".." and symlinks pointing outside are caught.
func resolveWithin(hostDir, fragment string) (string, error) {
	fragment = strings.TrimLeft(fragment, "/")
	if fragment == "" {
		return hostDir, nil
	}

	canonical, err := canonicalize(hostDir + string(filepath.Separator) + filepath.FromSlash(fragment))
	if err != nil {
		return "", err
	}

	if !isWithin(hostDir, canonical) {
		return "", fmt.Errorf("%w: resolves to %s", errEscapesMount, canonical)
	}

	return canonical, nil
}

// canonicalize resolves ".", ".." and symlinks in an absolute host path one
// component at a time. Unlike filepath.EvalSymlinks the path does not need
// to exist: missing components are appended as-is, while dangling symlinks
// are still followed so a write through them cannot leave the mount.
func canonicalize(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", internalErrorf("canonicalize", "path %q is not absolute", path)
	}

	pending := splitComponents(path)
	resolved := string(filepath.Separator)
	hops := 0

	for len(pending) > 0 {
		comp := pending[0]
		pending = pending[1:]

		switch comp {
		case "", ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)

			continue
		}

		next := filepath.Join(resolved, comp)

		info, err := os.Lstat(next)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
				resolved = next

				continue
			}

			return "", fmt.Errorf("stat %s: %w", next, err)
		}

		if info.Mode()&fs.ModeSymlink == 0 {
			resolved = next

			continue
		}

		hops++
		if hops > maxSymlinkHops {
			return "", fmt.Errorf("%s: too many levels of symbolic links", path)
		}

		target, err := os.Readlink(next)
		if err != nil {
			return "", fmt.Errorf("readlink %s: %w", next, err)
		}

		if filepath.IsAbs(target) {
			resolved = string(filepath.Separator)
		}

		pending = append(splitComponents(target), pending...)
	}

	return resolved, nil
}

func splitComponents(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
