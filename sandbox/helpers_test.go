package sandbox_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

func newTestEnv(t *testing.T) sandbox.Environment {
	t.Helper()

	return sandbox.Environment{
		HomeDir: t.TempDir(),
		WorkDir: t.TempDir(),
	}
}

func mustNew(t *testing.T, src sandbox.Source) *sandbox.Sandbox {
	t.Helper()

	sb, err := sandbox.NewWithEnvironment(&sandbox.Config{Source: src}, newTestEnv(t))
	if err != nil {
		t.Fatalf("NewWithEnvironment: %v", err)
	}

	return sb
}

func mustDerive(t *testing.T, sb *sandbox.Sandbox, opts sandbox.DeriveOptions) *sandbox.Sandbox {
	t.Helper()

	child, err := sb.Derive(opts)
	if err != nil {
		t.Fatalf("Derive(%+v): %v", opts, err)
	}

	return child
}

func mustResolve(t *testing.T, sb *sandbox.Sandbox, path string) string {
	t.Helper()

	host, err := sb.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", path, err)
	}

	return host
}

func mustKind(t *testing.T, err error, want sandbox.ErrorKind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}

	if got := sandbox.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s: %v", want, got, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()

	err := os.MkdirAll(path, 0o755)
	if err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

func mustWriteFile(t *testing.T, path string, data []byte, perm os.FileMode) {
	t.Helper()

	mustMkdir(t, filepath.Dir(path))

	err := os.WriteFile(path, data, perm)
	if err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustSymlink(t *testing.T, target, link string) {
	t.Helper()

	err := os.Symlink(target, link)
	if err != nil {
		t.Fatalf("symlink %s -> %s: %v", link, target, err)
	}
}

// mustCanonical returns path with symlinks resolved, so expectations match
// hosts where the temp dir sits behind a symlink.
func mustCanonical(t *testing.T, path string) string {
	t.Helper()

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("EvalSymlinks(%s): %v", path, err)
	}

	return resolved
}

func mustNotExist(t *testing.T, path string) {
	t.Helper()

	_, err := os.Lstat(path)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected %s to not exist, got err=%v", path, err)
	}
}

func boolPtr(b bool) *bool { return &b }
