package sandbox

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// validateConfigAndEnv validates user-controlled configuration and environment
// and expands the configuration source into mount declarations.
//
// This function is the input boundary for the sandbox package. Later stages
// assume the declarations it returns have valid mount points, modes and
// limits, and treat violations as internal errors.
func validateConfigAndEnv(cfg *Config, env Environment) ([]Mount, []string, error) {
	errs := make([]error, 0, 4)

	errs = append(errs, validateEnvironment(env)...)

	if cfg.Source == nil {
		errs = append(errs, Configurationf("no configuration source: set one of mounts, root, paths"))

		return nil, nil, errors.Join(errs...)
	}

	decls, err := cfg.Source.mountDecls()
	if err != nil {
		errs = append(errs, err)

		return nil, nil, errors.Join(errs...)
	}

	errs = append(errs, validateMounts(decls)...)

	err = errors.Join(errs...)
	if err != nil {
		return nil, nil, err
	}

	return decls, cfg.Source.aliases(), nil
}

func validateEnvironment(env Environment) []error {
	var errs []error

	if strings.TrimSpace(env.WorkDir) == "" {
		errs = append(errs, errors.New("environment WorkDir is empty"))
	} else if !filepath.IsAbs(env.WorkDir) {
		errs = append(errs, fmt.Errorf("environment WorkDir %q is not absolute", env.WorkDir))
	}

	if strings.TrimSpace(env.HomeDir) == "" {
		errs = append(errs, errors.New("environment HomeDir is empty"))
	} else if !filepath.IsAbs(env.HomeDir) {
		errs = append(errs, fmt.Errorf("environment HomeDir %q is not absolute", env.HomeDir))
	}

	return errs
}

func validateMounts(mounts []Mount) []error {
	var errs []error

	seen := make(map[string]int, len(mounts))

	for i, mount := range mounts {
		if strings.TrimSpace(mount.HostDir) == "" {
			errs = append(errs, Configurationf("mount %d (%s) has empty host directory", i, mount.MountPoint))
		}

		switch mount.Mode {
		case "", ModeReadOnly, ModeReadWrite:
		default:
			errs = append(errs, Configurationf("mount %d (%s) has unknown mode %q (want %q or %q)", i, mount.MountPoint, mount.Mode, ModeReadOnly, ModeReadWrite))
		}

		if mount.MaxFileBytes < 0 {
			errs = append(errs, Configurationf("mount %d (%s) has negative max file size %d", i, mount.MountPoint, mount.MaxFileBytes))
		}

		point, err := normalizeMountPoint(mount.MountPoint)
		if err != nil {
			errs = append(errs, Configurationf("mount %d: %v", i, err))

			continue
		}

		if j, dup := seen[point]; dup {
			errs = append(errs, Configurationf("mount %d: duplicate mount point %s (already used by mount %d)", i, point, j))

			continue
		}

		seen[point] = i
	}

	return errs
}
