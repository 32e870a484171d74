package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// mountTable is the immutable set of mounts of a sandbox tree. It is built
// once by the root sandbox and shared by reference with derived sandboxes.
type mountTable struct {
	// declared keeps configuration order, used for root listings.
	declared []Mount
	// byPrecedence is ordered by mount point length, longest first. "/" is
	// always last.
	byPrecedence []Mount
}

// buildMountTable canonicalizes host directories (creating them if needed)
// and rejects host directory overlap between distinct mounts.
//
// decls must already have passed validateMounts.
func buildMountTable(decls []Mount, paths pathResolver, debugf Debugf) (*mountTable, error) {
	mounts := make([]Mount, 0, len(decls))

	var errs []error

	for _, decl := range decls {
		m := cloneMount(decl)

		point, err := normalizeMountPoint(m.MountPoint)
		if err != nil {
			return nil, internalErrorf("buildMountTable", "mount point %q passed validation: %v", m.MountPoint, err)
		}

		m.MountPoint = point

		if m.Mode == "" {
			m.Mode = ModeReadOnly
		}

		m.Suffixes = normalizeSuffixes(m.Suffixes)

		hostDir, err := canonicalHostDir(paths.Resolve(m.HostDir))
		if err != nil {
			errs = append(errs, Configurationf("mount %s: %v", point, err))

			continue
		}

		m.HostDir = hostDir

		debugf.logf("sandbox: mount %s -> %s (%s)", m.MountPoint, m.HostDir, m.Mode)

		mounts = append(mounts, m)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for i := range mounts {
		for j := i + 1; j < len(mounts); j++ {
			a, b := mounts[i], mounts[j]
			if isWithin(a.HostDir, b.HostDir) || isWithin(b.HostDir, a.HostDir) {
				errs = append(errs, Configurationf("mounts %s and %s overlap on the host (%s, %s); host directories of distinct mounts must be disjoint",
					a.MountPoint, b.MountPoint, a.HostDir, b.HostDir))
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	byPrecedence := slices.Clone(mounts)
	slices.SortStableFunc(byPrecedence, func(a, b Mount) int {
		return len(b.MountPoint) - len(a.MountPoint)
	})

	return &mountTable{declared: mounts, byPrecedence: byPrecedence}, nil
}

// canonicalHostDir creates dir if missing and resolves its symlinks.
func canonicalHostDir(dir string) (string, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", fmt.Errorf("creating host directory: %w", err)
	}

	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", fmt.Errorf("resolving host directory: %w", err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return "", fmt.Errorf("stat host directory: %w", err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("host path %q is not a directory", canonical)
	}

	return canonical, nil
}

// find returns the mount owning virtual: the longest mount point that equals
// it or is a "/"-bounded prefix of it, with "/" as the fallback.
func (t *mountTable) find(virtual string) (Mount, bool) {
	for _, m := range t.byPrecedence {
		if m.MountPoint == "/" || virtual == m.MountPoint || strings.HasPrefix(virtual, m.MountPoint+"/") {
			return m, true
		}
	}

	return Mount{}, false
}

// fragment strips the mount point from virtual, leaving a relative path.
func (*mountTable) fragment(virtual string, m Mount) string {
	if m.MountPoint == "/" {
		return strings.TrimPrefix(virtual, "/")
	}

	return strings.TrimPrefix(strings.TrimPrefix(virtual, m.MountPoint), "/")
}

// singleRoot reports whether the table is exactly one mount at "/".
func (t *mountTable) singleRoot() bool {
	return len(t.declared) == 1 && t.declared[0].MountPoint == "/"
}

func (t *mountTable) mountPoints(writableOnly bool) []string {
	points := make([]string, 0, len(t.declared))

	for _, m := range t.declared {
		if writableOnly && !m.Writable() {
			continue
		}

		points = append(points, m.MountPoint)
	}

	return points
}

func normalizeMountPoint(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("mount point is empty")
	}

	point, err := NormalizePath(raw)
	if err != nil {
		return "", fmt.Errorf("mount point %q is not a valid virtual path", raw)
	}

	if hasDotDot(point) {
		return "", fmt.Errorf("mount point %q must not contain '..'", raw)
	}

	return point, nil
}

// isWithin reports whether path equals base or lies below it. Both must be
// clean absolute host paths.
func isWithin(base, path string) bool {
	if base == path {
		return true
	}

	if base == string(filepath.Separator) {
		return filepath.IsAbs(path)
	}

	return strings.HasPrefix(path, base+string(filepath.Separator))
}
