package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

type bufferCloser struct {
	sync.Mutex
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	return b.Buffer.Write(p)
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func TestBackendFiltersByWriterLevel(t *testing.T) {
	backend := NewBackendWithFlags(0)
	all := &bufferCloser{}
	errorsOnly := &bufferCloser{}
	if err := backend.AddLogWriter(all, LevelTrace); err != nil {
		t.Fatalf("TestBackendFiltersByWriterLevel: AddLogWriter failed: %s", err)
	}
	if err := backend.AddLogWriter(errorsOnly, LevelError); err != nil {
		t.Fatalf("TestBackendFiltersByWriterLevel: AddLogWriter failed: %s", err)
	}
	if err := backend.Run(); err != nil {
		t.Fatalf("TestBackendFiltersByWriterLevel: Run failed: %s", err)
	}
	if err := backend.AddLogWriter(&bufferCloser{}, LevelInfo); err == nil {
		t.Fatalf("TestBackendFiltersByWriterLevel: AddLogWriter unexpectedly succeeded on a running backend")
	}

	log := backend.Logger("TEST")
	log.SetLevel(LevelDebug)
	log.Tracef("dropped %d", 1)
	log.Debugf("debug %d", 2)
	log.Errorf("error %d", 3)
	backend.Close()

	allOutput := all.String()
	if strings.Contains(allOutput, "dropped") {
		t.Fatalf("TestBackendFiltersByWriterLevel: trace entry was written below the logger level")
	}
	if !strings.Contains(allOutput, "[DBG] TEST: debug 2") || !strings.Contains(allOutput, "[ERR] TEST: error 3") {
		t.Fatalf("TestBackendFiltersByWriterLevel: unexpected output %q", allOutput)
	}
	errorOutput := errorsOnly.String()
	if strings.Contains(errorOutput, "debug 2") || !strings.Contains(errorOutput, "error 3") {
		t.Fatalf("TestBackendFiltersByWriterLevel: unexpected error writer output %q", errorOutput)
	}
	if !all.closed || !errorsOnly.closed {
		t.Fatalf("TestBackendFiltersByWriterLevel: writers were not closed")
	}
}

func TestParseAndSetDebugLevels(t *testing.T) {
	first := RegisterSubSystem("TSTA")
	second := RegisterSubSystem("TSTB")
	if RegisterSubSystem("TSTA") != first {
		t.Fatalf("TestParseAndSetDebugLevels: RegisterSubSystem returned a different logger for the same tag")
	}

	tests := []struct {
		levels      string
		expectError bool
		first       Level
		second      Level
	}{
		{levels: "debug", first: LevelDebug, second: LevelDebug},
		{levels: "warn,TSTB=trace", first: LevelWarn, second: LevelTrace},
		{levels: "nonsense", expectError: true},
		{levels: "TSTX=info", expectError: true},
		{levels: "TSTA=info=trace", expectError: true},
	}
	for _, test := range tests {
		err := ParseAndSetDebugLevels(test.levels)
		if test.expectError {
			if err == nil {
				t.Fatalf("TestParseAndSetDebugLevels: %q: expected an error", test.levels)
			}
			continue
		}
		if err != nil {
			t.Fatalf("TestParseAndSetDebugLevels: %q: unexpected error: %s", test.levels, err)
		}
		if first.Level() != test.first || second.Level() != test.second {
			t.Fatalf("TestParseAndSetDebugLevels: %q: got levels %s/%s, want %s/%s",
				test.levels, first.Level(), second.Level(), test.first, test.second)
		}
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		name     string
		expected Level
		ok       bool
	}{
		{name: "trace", expected: LevelTrace, ok: true},
		{name: "DBG", expected: LevelDebug, ok: true},
		{name: "Warn", expected: LevelWarn, ok: true},
		{name: "crt", expected: LevelCritical, ok: true},
		{name: "off", expected: LevelOff, ok: true},
		{name: "verbose", expected: LevelInfo, ok: false},
	}
	for _, test := range tests {
		level, ok := LevelFromString(test.name)
		if level != test.expected || ok != test.ok {
			t.Errorf("TestLevelFromString: %q: got %s/%t, want %s/%t", test.name, level, ok, test.expected, test.ok)
		}
	}
}
