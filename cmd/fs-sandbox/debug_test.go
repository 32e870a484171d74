package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

func Test_DebugLogger_Is_Disabled_When_Output_Is_Nil(t *testing.T) {
	t.Parallel()

	debug := NewDebugLogger(nil)

	if debug.Enabled() {
		t.Error("expected logger to be disabled when output is nil")
	}

	// No panic, no output
	debug.Section("Test Section")
	debug.Mount(sandbox.RO("/srv", "/data"))
	debug.Roots("readable", nil)
}

func Test_DebugLogger_Section_Outputs_Header(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	debug := NewDebugLogger(&buf)
	debug.Section("Test Section")

	if !strings.Contains(buf.String(), "=== Test Section ===") {
		t.Errorf("expected section header, got: %s", buf.String())
	}
}

func Test_DebugLogger_Mount_Shows_Policy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		mount sandbox.Mount
		want  string
	}{
		{
			name:  "ReadOnly_Plain",
			mount: sandbox.RO("/srv/data", "/data"),
			want:  "  /data -> /srv/data [ro]\n",
		},
		{
			name:  "ReadWrite_Default_Approval",
			mount: sandbox.RW("/srv/out", "/out"),
			want:  "  /out -> /srv/out [rw] write approval\n",
		},
		{
			name: "ReadWrite_Limits_Without_Approval",
			mount: sandbox.Mount{
				HostDir: "/srv/n", MountPoint: "/n", Mode: sandbox.ModeReadWrite,
				Suffixes: []string{".md", ".txt"}, MaxFileBytes: 1_048_576, WriteApproval: boolPtr(false), ReadApproval: true,
			},
			want: "  /n -> /srv/n [rw] suffixes .md,.txt; max 1,048,576 bytes; read approval\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			NewDebugLogger(&buf).Mount(tt.mount)

			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func Test_DebugLogger_Roots_Shows_None_When_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	debug := NewDebugLogger(&buf)
	debug.Roots("writable", []string{})
	debug.Roots("readable", []string{"/a", "/b"})

	want := "  writable: (none)\n  readable: /a, /b\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func Test_DebugConfigLoading_Shows_Loaded_Files(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	debugConfigLoading(NewDebugLogger(&buf), &Config{LoadedConfigFiles: map[string]string{
		"global":   "/home/u/.config/fs-sandbox/config.yaml",
		"explicit": "/work/alt.json",
	}})

	out := buf.String()
	AssertContains(t, out, "Global config: /home/u/.config/fs-sandbox/config.yaml")
	AssertContains(t, out, "Explicit config (--config): /work/alt.json")
	AssertNotContains(t, out, "Project config")
}
