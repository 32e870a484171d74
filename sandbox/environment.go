package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment describes the host process environment used to resolve mount
// host directories.
type Environment struct {
	// HomeDir is the host home directory. "~" in host directories expands to it.
	HomeDir string
	// WorkDir is the host working directory. Relative host directories are
	// resolved against it.
	WorkDir string
}

// DefaultEnvironment returns an Environment derived from the current process.
//
// HomeDir is resolved from os.UserHomeDir(). WorkDir is resolved from os.Getwd().
func DefaultEnvironment() (Environment, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return Environment{}, fmt.Errorf("get working directory: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Environment{}, fmt.Errorf("get home directory: %w", err)
	}

	return Environment{HomeDir: homeDir, WorkDir: workDir}, nil
}

// pathResolver converts caller-provided host directories into absolute host paths.
type pathResolver struct {
	homeDir string
	workDir string
}

func newPathResolver(env Environment) pathResolver {
	return pathResolver{homeDir: env.HomeDir, workDir: env.WorkDir}
}

// Resolve converts a caller-supplied host path into an absolute, cleaned path.
//
// - "~" and "~/..." are expanded using Environment.HomeDir
// - relative paths are interpreted relative to Environment.WorkDir.
func (p pathResolver) Resolve(path string) string {
	if path == "" {
		return ""
	}

	switch {
	case path == "~":
		path = p.homeDir
	case strings.HasPrefix(path, "~/"):
		path = filepath.Join(p.homeDir, path[2:])
	case !filepath.IsAbs(path):
		path = filepath.Join(p.workDir, path)
	}

	return filepath.Clean(path)
}
