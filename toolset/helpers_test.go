package toolset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/fs-sandbox/sandbox"
	"github.com/calvinalkan/fs-sandbox/toolset"
)

// testMounts is the layout used by most tests:
//
//	/data    read-only, reads need approval
//	/output  read-write, writes need approval
//	/scratch read-write, no approval, .txt/.md only, 64 bytes max
type testMounts struct {
	data    string
	output  string
	scratch string
}

func newTestToolset(t *testing.T) (*toolset.Toolset, testMounts) {
	t.Helper()

	dirs := testMounts{
		data:    mustCanonical(t, t.TempDir()),
		output:  mustCanonical(t, t.TempDir()),
		scratch: mustCanonical(t, t.TempDir()),
	}

	sb, err := sandbox.NewWithEnvironment(&sandbox.Config{Source: sandbox.Mounts{
		{HostDir: dirs.data, MountPoint: "/data", Mode: sandbox.ModeReadOnly, ReadApproval: true},
		{HostDir: dirs.output, MountPoint: "/output", Mode: sandbox.ModeReadWrite},
		{
			HostDir:       dirs.scratch,
			MountPoint:    "/scratch",
			Mode:          sandbox.ModeReadWrite,
			Suffixes:      []string{".txt", ".md"},
			MaxFileBytes:  64,
			WriteApproval: boolPtr(false),
		},
	}}, sandbox.Environment{HomeDir: t.TempDir(), WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewWithEnvironment: %v", err)
	}

	return toolset.New(sb, toolset.Options{}), dirs
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

func mustWriteFile(t *testing.T, path string, data []byte, perm os.FileMode) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}

	err = os.WriteFile(path, data, perm)
	if err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}

	return string(data)
}

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
	if !os.IsNotExist(err) {
		t.Fatalf("expected %s to not exist, got err=%v", path, err)
	}
}

func boolPtr(b bool) *bool { return &b }
