package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func Test_ParseLevel_Accepts_Known_Levels_Case_Insensitively(t *testing.T) {
	t.Parallel()

	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" info ":  zerolog.InfoLevel,
		"Warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	}

	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", in, err)

			continue
		}

		if got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}

	_, err := ParseLevel("verbose")
	if err == nil {
		t.Error("expected error for unknown level")
	}
}

func Test_ParseFormat_Selects_Console_Or_JSON(t *testing.T) {
	t.Parallel()

	pretty, err := ParseFormat("console")
	if err != nil || !pretty {
		t.Errorf("ParseFormat(console) = %v, %v", pretty, err)
	}

	pretty, err = ParseFormat("JSON")
	if err != nil || pretty {
		t.Errorf("ParseFormat(JSON) = %v, %v", pretty, err)
	}

	_, err = ParseFormat("logfmt")
	if err == nil {
		t.Error("expected error for unknown format")
	}
}

func Test_DebugfTo_Is_Nil_Above_Debug_Level(t *testing.T) {
	t.Parallel()

	logger := NewLogger(LogConfig{Level: zerolog.WarnLevel, Output: &bytes.Buffer{}})

	if debugfTo(logger) != nil {
		t.Error("expected nil Debugf when debug messages are filtered")
	}
}

func Test_DebugfTo_Writes_Debug_Messages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := NewLogger(LogConfig{Level: zerolog.DebugLevel, Output: &buf, Pretty: true})

	debugf := debugfTo(logger)
	if debugf == nil {
		t.Fatal("expected Debugf at debug level")
	}

	debugf("sandbox: mount %s -> %s", "/data", "/srv/data")

	out := buf.String()
	if !strings.Contains(out, "DBG") || !strings.Contains(out, "sandbox: mount /data -> /srv/data") {
		t.Errorf("unexpected console output: %q", out)
	}
}
