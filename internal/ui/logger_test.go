package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevelFiltering(t *testing.T) {
	t.Parallel()

	var out, full bytes.Buffer
	l := New(Options{Out: &out, FullLogWriter: &full, LogLevel: LogLevelWarn})

	l.Debug("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.Error("always %d", 3)

	if strings.Contains(out.String(), "hidden 1") {
		t.Fatalf("debug line leaked to out: %q", out.String())
	}
	for _, want := range []string{"shown 2", "always 3"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("out missing %q: %q", want, out.String())
		}
	}
	for _, want := range []string{"[DEBG] hidden 1", "[WARN] shown 2", "[ERR ] always 3"} {
		if !strings.Contains(full.String(), want) {
			t.Fatalf("full log missing %q: %q", want, full.String())
		}
	}
}

func TestLoggerBuffersUntilFullWriterSet(t *testing.T) {
	t.Parallel()

	var out, full bytes.Buffer
	l := New(Options{Out: &out, LogLevel: LogLevelDebug})

	l.Debug("early")
	l.SetFullLogWriter(&full)
	l.Debug("late")

	got := full.String()
	if !strings.Contains(got, "early") || !strings.Contains(got, "late") {
		t.Fatalf("full log = %q, want both early and late lines", got)
	}
	if strings.Index(got, "early") > strings.Index(got, "late") {
		t.Fatalf("buffered lines flushed out of order: %q", got)
	}
}

func TestSetLogLevel(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	l := New(Options{Out: &out, LogLevel: LogLevelWarn})
	l.SetLogLevel(LogLevelDebug)
	if l.LogLevel() != LogLevelDebug {
		t.Fatalf("LogLevel() = %v, want %v", l.LogLevel(), LogLevelDebug)
	}
	l.Debug("now visible")
	if !strings.Contains(out.String(), "now visible") {
		t.Fatalf("out = %q, want debug line", out.String())
	}
}

func TestTailWritesLinesToFullLog(t *testing.T) {
	t.Parallel()

	var out, full bytes.Buffer
	l := New(Options{Out: &out, FullLogWriter: &full, LogLevel: LogLevelInfo})

	tail := l.NewTail("docker build")
	tail.Write([]byte("Step 1/9 : FROM continuumio/miniconda3:4.7.12\r\nStep 2/9"))
	tail.Write([]byte(" : ENV CONDA_DIR=/opt/conda\n"))
	tail.Close()
	// writes after close must not panic
	tail.Write([]byte("late\n"))

	got := full.String()
	for _, want := range []string{
		"[TAIL docker build] start",
		"[TAIL docker build] Step 1/9 : FROM continuumio/miniconda3:4.7.12\n",
		"[TAIL docker build] Step 2/9 : ENV CONDA_DIR=/opt/conda",
		"[TAIL docker build] end",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("full log missing %q:\n%s", want, got)
		}
	}
	if !strings.Contains(out.String(), "Step 2/9") {
		t.Fatalf("out = %q, want tail lines printed when tail box disabled", out.String())
	}
}

func TestTimestampWriterPrefixes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tw := NewTimestampWriter(&buf)
	if _, err := tw.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := buf.String()
	if !strings.HasPrefix(got, "[") || !strings.HasSuffix(got, "] hello\n") {
		t.Fatalf("TimestampWriter output = %q", got)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDebugWriterSplitsLines(t *testing.T) {
	t.Parallel()

	var out, full bytes.Buffer
	l := New(Options{Out: &out, FullLogWriter: &full, LogLevel: LogLevelWarn})

	w := l.DebugWriter()
	if _, err := w.Write([]byte("first\r\nsec")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(full.String(), "sec") {
		t.Fatalf("partial line logged early: %q", full.String())
	}
	if _, err := w.Write([]byte("ond\n\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	for _, want := range []string{"[DEBG] first\n", "[DEBG] second\n"} {
		if !strings.Contains(full.String(), want) {
			t.Fatalf("full log missing %q: %q", want, full.String())
		}
	}
	if out.Len() != 0 {
		t.Fatalf("debug lines reached out at warn level: %q", out.String())
	}
}
