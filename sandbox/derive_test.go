package sandbox_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

func Test_Sandbox_Derive_Denies_Everything_When_No_Allowlists_Given(t *testing.T) {
	t.Parallel()

	sb, _, _ := newDataOutputSandbox(t)
	child := mustDerive(t, sb, sandbox.DeriveOptions{})

	for _, path := range []string{"/data", "/data/a/f.txt", "/output", "/output/sub/x"} {
		if !sb.CanRead(path) {
			t.Fatalf("parent must read %q", path)
		}

		if child.CanRead(path) || child.CanWrite(path) {
			t.Fatalf("child must not access %q", path)
		}
	}

	_, err := child.Resolve("/data/a/f.txt")
	mustKind(t, err, sandbox.KindPathNotInSandbox)

	if !strings.HasSuffix(err.Error(), "Readable paths: (none)") {
		t.Fatalf("unexpected message: %v", err)
	}

	if child.Parent() != sb || sb.Parent() != nil {
		t.Fatal("unexpected parent chain")
	}
}

func Test_Sandbox_Derive_Restricts_To_Allowlisted_Directories(t *testing.T) {
	t.Parallel()

	sb, _, _ := newDataOutputSandbox(t)
	child := mustDerive(t, sb, sandbox.DeriveOptions{AllowRead: []string{"/data/a"}})

	for path, want := range map[string]bool{
		"/data/a":             true,
		"/data/a/f.txt":       true,
		"/data/a/deep/x":      true,
		"data/a/../a/f.txt":   true,
		"/data/ab/f.txt":      false,
		"/data/b/f.txt":       false,
		"/data":               false,
		"/data/a/../b/f.txt":  false,
		"/output/sub/x":       false,
	} {
		if got := child.CanRead(path); got != want {
			t.Fatalf("CanRead(%q) = %v, want %v", path, got, want)
		}
	}

	if child.CanWrite("/output/sub/x") {
		t.Fatal("read allowlist alone must not grant write")
	}

	if diff := cmp.Diff([]string{"/data/a"}, child.ReadableRoots()); diff != "" {
		t.Fatalf("readable roots mismatch (-want +got):\n%s", diff)
	}

	if got := child.WritableRoots(); len(got) != 0 {
		t.Fatalf("expected no writable roots, got %v", got)
	}
}

func Test_Sandbox_Derive_Grants_Read_When_Only_Write_Given(t *testing.T) {
	t.Parallel()

	sb, _, _ := newDataOutputSandbox(t)
	child := mustDerive(t, sb, sandbox.DeriveOptions{AllowWrite: []string{"/output/sub"}})

	if !child.CanRead("/output/sub/f") || !child.CanWrite("/output/sub/f") {
		t.Fatal("write allowlist must grant read and write")
	}

	if child.CanWrite("/output/other.txt") || child.CanRead("/output/other.txt") || child.CanRead("/data/a/f.txt") {
		t.Fatal("child must be limited to /output/sub")
	}

	if !child.NeedsWriteApproval("/output/sub/f") || child.NeedsWriteApproval("/output/other.txt") {
		t.Fatal("approval must follow the child's permissions")
	}
}

func Test_Sandbox_Derive_Inherits_Parent_When_Inherit_Set(t *testing.T) {
	t.Parallel()

	sb, _, _ := newDataOutputSandbox(t)

	all := mustDerive(t, sb, sandbox.DeriveOptions{Inherit: true})
	if !all.CanRead("/data/a/f.txt") || !all.CanWrite("/output/x") {
		t.Fatal("inheriting child must match its parent")
	}

	if diff := cmp.Diff(sb.ReadableRoots(), all.ReadableRoots()); diff != "" {
		t.Fatalf("readable roots mismatch (-parent +child):\n%s", diff)
	}

	narrowRead := mustDerive(t, sb, sandbox.DeriveOptions{AllowRead: []string{"/data/a"}, Inherit: true})
	if narrowRead.CanRead("/data/b/f.txt") || !narrowRead.CanWrite("/output/x") {
		t.Fatal("inherit must keep parent write when only read is narrowed")
	}

	readOnly := mustDerive(t, sb, sandbox.DeriveOptions{Inherit: true, ReadOnly: boolPtr(true)})
	if !readOnly.CanRead("/output/x") || readOnly.CanWrite("/output/x") {
		t.Fatal("ReadOnly must drop write but keep inherited read")
	}

	grandchild := mustDerive(t, narrowRead, sandbox.DeriveOptions{Inherit: true})
	if grandchild.CanRead("/data/b/f.txt") || !grandchild.CanRead("/data/a/f.txt") {
		t.Fatal("inheritance must be transitive")
	}
}

func Test_Sandbox_Derive_Drops_Write_When_ReadOnly(t *testing.T) {
	t.Parallel()

	sb, _, _ := newDataOutputSandbox(t)

	child := mustDerive(t, sb, sandbox.DeriveOptions{AllowWrite: []string{"/output"}, ReadOnly: boolPtr(true)})

	if !child.CanRead("/output/x") || child.CanWrite("/output/x") {
		t.Fatal("ReadOnly must override AllowWrite")
	}
}

func Test_Sandbox_Derive_Returns_PermissionEscalation_When_Parent_Has_No_Write(t *testing.T) {
	t.Parallel()

	sb, _, _ := newDataOutputSandbox(t)
	readOnlyChild := mustDerive(t, sb, sandbox.DeriveOptions{AllowRead: []string{"/data", "/output"}})

	_, err := readOnlyChild.Derive(sandbox.DeriveOptions{ReadOnly: boolPtr(false)})
	mustKind(t, err, sandbox.KindPermissionEscalation)

	roOnly := mustNew(t, sandbox.Mounts{sandbox.RO(t.TempDir(), "/data")})

	_, err = roOnly.Derive(sandbox.DeriveOptions{ReadOnly: boolPtr(false), Inherit: true})
	mustKind(t, err, sandbox.KindPermissionEscalation)

	if !errors.Is(err, sandbox.ErrPermissionEscalation) {
		t.Fatalf("expected ErrPermissionEscalation, got %v", err)
	}

	if _, err := sb.Derive(sandbox.DeriveOptions{ReadOnly: boolPtr(false), Inherit: true}); err != nil {
		t.Fatalf("writable parent: %v", err)
	}
}

func Test_Sandbox_Derive_Rejects_Widening_When_Nested(t *testing.T) {
	t.Parallel()

	sb, _, _ := newDataOutputSandbox(t)
	child := mustDerive(t, sb, sandbox.DeriveOptions{AllowRead: []string{"/data/a", "/output"}})

	_, err := child.Derive(sandbox.DeriveOptions{AllowRead: []string{"/data"}})
	mustKind(t, err, sandbox.KindPathNotInSandbox)

	_, err = child.Derive(sandbox.DeriveOptions{AllowWrite: []string{"/output/sub"}})
	if kind := sandbox.KindOf(err); kind != sandbox.KindPathNotInSandbox && kind != sandbox.KindPathNotWritable {
		t.Fatalf("expected write derivation to fail, got %v", err)
	}

	grandchild := mustDerive(t, child, sandbox.DeriveOptions{AllowRead: []string{"/data/a/deep"}})
	if !grandchild.CanRead("/data/a/deep/x") || grandchild.CanRead("/data/a/f.txt") {
		t.Fatal("grandchild must narrow to /data/a/deep")
	}
}

func Test_Sandbox_Derive_Returns_PathNotWritable_When_Write_Entry_On_ReadOnly_Mount(t *testing.T) {
	t.Parallel()

	sb, _, _ := newDataOutputSandbox(t)

	_, err := sb.Derive(sandbox.DeriveOptions{AllowWrite: []string{"/data/a"}})
	mustKind(t, err, sandbox.KindPathNotWritable)
}

func Test_Sandbox_Derive_Returns_ConfigurationError_When_Entry_Invalid(t *testing.T) {
	t.Parallel()

	sb, _, _ := newDataOutputSandbox(t)

	_, err := sb.Derive(sandbox.DeriveOptions{AllowRead: []string{"/data/a/f.txt"}})
	mustKind(t, err, sandbox.KindConfiguration)

	if !strings.Contains(err.Error(), `use "/data/a" instead`) {
		t.Fatalf("expected parent directory hint, got: %v", err)
	}

	_, err = sb.Derive(sandbox.DeriveOptions{AllowRead: []string{"/data/a/../b"}})
	mustKind(t, err, sandbox.KindConfiguration)

	_, err = sb.Derive(sandbox.DeriveOptions{AllowRead: []string{"/nowhere"}})
	mustKind(t, err, sandbox.KindPathNotInSandbox)
}

func Test_Sandbox_Derive_Allows_Entries_That_Do_Not_Exist_Yet(t *testing.T) {
	t.Parallel()

	sb, _, outputDir := newDataOutputSandbox(t)
	child := mustDerive(t, sb, sandbox.DeriveOptions{AllowWrite: []string{"/output/new/area"}})

	if got, want := mustResolve(t, child, "/output/new/area/f.txt"), filepath.Join(outputDir, "new", "area", "f.txt"); got != want {
		t.Fatalf("Resolve = %q, want %q", got, want)
	}

	if child.CanWrite("/output/new/other.txt") {
		t.Fatal("sibling of allowlisted dir must be denied")
	}
}

func Test_Sandbox_Derive_Checks_Resolved_Host_Path_When_Symlink_Inside_Allowlist(t *testing.T) {
	t.Parallel()

	sb, dataDir, _ := newDataOutputSandbox(t)
	mustWriteFile(t, filepath.Join(dataDir, "b", "secret.txt"), []byte("s"), 0o644)
	mustSymlink(t, filepath.Join(dataDir, "b"), filepath.Join(dataDir, "a", "to-b"))

	child := mustDerive(t, sb, sandbox.DeriveOptions{AllowRead: []string{"/data/a"}})

	if child.CanRead("/data/a/to-b/secret.txt") {
		t.Fatal("symlink must not bypass the allowlist")
	}

	if !sb.CanRead("/data/a/to-b/secret.txt") {
		t.Fatal("parent may follow the symlink inside its mount")
	}
}

func Test_Sandbox_Derive_Does_Not_Extend_Into_Nested_Mounts(t *testing.T) {
	t.Parallel()

	sb := mustNew(t, sandbox.Mounts{
		sandbox.RW(t.TempDir(), "/data"),
		sandbox.RW(t.TempDir(), "/data/special"),
	})

	child := mustDerive(t, sb, sandbox.DeriveOptions{AllowWrite: []string{"/data"}})

	if !child.CanWrite("/data/x.txt") || child.CanRead("/data/special/x.txt") {
		t.Fatal("allowlist entries are scoped to their own mount")
	}
}

func Test_Sandbox_Derive_Never_Escalates(t *testing.T) {
	t.Parallel()

	sb, _, _ := newDataOutputSandbox(t)

	parents := map[string]*sandbox.Sandbox{
		"root":      sb,
		"read_a":    mustDerive(t, sb, sandbox.DeriveOptions{AllowRead: []string{"/data/a"}}),
		"write_sub": mustDerive(t, sb, sandbox.DeriveOptions{AllowWrite: []string{"/output/sub"}}),
		"inherit":   mustDerive(t, sb, sandbox.DeriveOptions{Inherit: true, ReadOnly: boolPtr(true)}),
	}

	entries := [][]string{nil, {}, {"/data"}, {"/data/a"}, {"/data/a/deep"}, {"/output"}, {"/output/sub"}, {"/data/a", "/output/sub"}}
	readOnly := []*bool{nil, boolPtr(true), boolPtr(false)}

	paths := []string{
		"/data/a/f.txt", "/data/a/deep/x", "/data/b/x", "/data/ab/x",
		"/output/x", "/output/sub/x", "/output/sub/deep/x", "/elsewhere",
	}

	for parentName, parent := range parents {
		for _, read := range entries {
			for _, write := range entries {
				for _, ro := range readOnly {
					for _, inherit := range []bool{false, true} {
						opts := sandbox.DeriveOptions{AllowRead: read, AllowWrite: write, ReadOnly: ro, Inherit: inherit}

						child, err := parent.Derive(opts)
						if err != nil {
							continue
						}

						for _, p := range paths {
							label := fmt.Sprintf("%s %+v %s", parentName, opts, p)

							if child.CanRead(p) && !parent.CanRead(p) {
								t.Fatalf("read escalation: %s", label)
							}

							if child.CanWrite(p) && !parent.CanWrite(p) {
								t.Fatalf("write escalation: %s", label)
							}
						}
					}
				}
			}
		}
	}
}
