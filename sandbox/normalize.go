package sandbox

import (
	"strings"
)

// normalizer turns caller-supplied path strings into canonical virtual paths.
// It never touches the filesystem.
type normalizer struct {
	// aliases are named-path names that may be addressed as "name:rel".
	aliases map[string]struct{}
	// strict rejects ".." segments outright.
	strict bool
}

// NormalizePath returns the canonical virtual path for raw.
//
//   - backslashes become "/" and surrounding whitespace is trimmed
//   - empty input is "/"
//   - "~"-prefixed input and drive-letter style input ("C:/x") are rejected
//   - the result starts with "/", has no empty or "." segments and no
//     trailing "/"
//
// ".." segments are kept; they are resolved, and checked for escapes, against
// the host directory of the owning mount. NormalizePath is idempotent.
func NormalizePath(raw string) (string, error) {
	return normalizer{}.normalize(raw)
}

func (n normalizer) normalize(raw string) (string, error) {
	p := strings.TrimSpace(strings.ReplaceAll(raw, `\`, "/"))
	if p == "" {
		return "/", nil
	}

	if strings.HasPrefix(p, "~") {
		return "", &PathNotInSandboxError{Path: p}
	}

	p = n.expandAlias(p)

	first, _, _ := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	if strings.Contains(first, ":") {
		return "", &PathNotInSandboxError{Path: p}
	}

	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))

	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if n.strict {
				return "", &PathNotInSandboxError{Path: p}
			}
		}

		out = append(out, seg)
	}

	return "/" + strings.Join(out, "/"), nil
}

// expandAlias rewrites "name:rel" to "/name/rel" for configured names.
func (n normalizer) expandAlias(p string) string {
	if len(n.aliases) == 0 {
		return p
	}

	name, rest, ok := strings.Cut(strings.TrimPrefix(p, "/"), ":")
	if !ok || strings.Contains(name, "/") {
		return p
	}

	if _, known := n.aliases[name]; !known {
		return p
	}

	return "/" + name + "/" + strings.TrimPrefix(rest, "/")
}

func hasDotDot(virtual string) bool {
	for seg := range strings.SplitSeq(virtual, "/") {
		if seg == ".." {
			return true
		}
	}

	return false
}
