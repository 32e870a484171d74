package sandbox

import (
	"slices"
	"sort"
	"strings"
)

// Source declares the mounts of a root sandbox. The implementations are
// [Mounts], [Root] and [NamedPaths]; the set is closed.
type Source interface {
	mountDecls() ([]Mount, error)
	aliases() []string
}

// Mounts is a mount-list configuration source.
type Mounts []Mount

func (ms Mounts) mountDecls() ([]Mount, error) {
	if len(ms) == 0 {
		return nil, Configurationf("no mounts configured")
	}

	out := make([]Mount, 0, len(ms))
	for _, m := range ms {
		out = append(out, cloneMount(m))
	}

	return out, nil
}

func (Mounts) aliases() []string { return nil }

// Root is the single-root configuration source: one host directory mounted
// at "/".
type Root struct {
	HostDir  string
	ReadOnly bool

	Suffixes      []string
	MaxFileBytes  int64
	WriteApproval *bool
	ReadApproval  bool
}

func (r Root) mountDecls() ([]Mount, error) {
	mode := ModeReadWrite
	if r.ReadOnly {
		mode = ModeReadOnly
	}

	m := Mount{
		HostDir:       r.HostDir,
		MountPoint:    "/",
		Mode:          mode,
		Suffixes:      r.Suffixes,
		MaxFileBytes:  r.MaxFileBytes,
		WriteApproval: r.WriteApproval,
		ReadApproval:  r.ReadApproval,
	}

	return []Mount{cloneMount(m)}, nil
}

func (Root) aliases() []string { return nil }

// PathConfig configures one entry of [NamedPaths].
type PathConfig struct {
	// Root is the host directory.
	Root string
	// Mode defaults to [ModeReadOnly].
	Mode Mode

	Suffixes      []string
	MaxFileBytes  int64
	WriteApproval *bool
	ReadApproval  bool
}

// NamedPaths is the named-paths configuration source. Each name is mounted
// at "/name" and may also be addressed as "name/rel" or "name:rel".
type NamedPaths map[string]PathConfig

func (np NamedPaths) mountDecls() ([]Mount, error) {
	if len(np) == 0 {
		return nil, Configurationf("no paths configured")
	}

	names := np.aliases()
	out := make([]Mount, 0, len(names))

	for _, name := range names {
		if !validPathName(name) {
			return nil, Configurationf("path name %q must be a single segment without ':', '~' or '\\'", name)
		}

		pc := np[name]
		out = append(out, cloneMount(Mount{
			HostDir:       pc.Root,
			MountPoint:    "/" + name,
			Mode:          pc.Mode,
			Suffixes:      pc.Suffixes,
			MaxFileBytes:  pc.MaxFileBytes,
			WriteApproval: pc.WriteApproval,
			ReadApproval:  pc.ReadApproval,
		}))
	}

	return out, nil
}

// aliases returns the names in sorted order.
func (np NamedPaths) aliases() []string {
	names := make([]string, 0, len(np))
	for name := range np {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func validPathName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, "~") {
		return false
	}

	return !strings.ContainsAny(name, `/\:`) && strings.TrimSpace(name) == name
}

// SourceOf picks the single configuration source among mounts, root and
// paths. Supplying more than one, or none, is a [*ConfigurationError].
func SourceOf(mounts []Mount, root *Root, paths NamedPaths) (Source, error) {
	var given []string

	if mounts != nil {
		given = append(given, "mounts")
	}

	if root != nil {
		given = append(given, "root")
	}

	if paths != nil {
		given = append(given, "paths")
	}

	switch len(given) {
	case 0:
		return nil, Configurationf("no configuration source: set one of mounts, root, paths")
	case 1:
	default:
		return nil, Configurationf("configuration mixes %s; use exactly one of mounts, root, paths", strings.Join(given, " and "))
	}

	switch {
	case mounts != nil:
		return Mounts(slices.Clone(mounts)), nil
	case root != nil:
		r := *root
		r.Suffixes = slices.Clone(root.Suffixes)

		return r, nil
	default:
		return paths, nil
	}
}
