package status

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintNonTerminalUsesPlainLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Print(Line{Filename: "session.tty", Elapsed: "12.5s", Speed: 1.0})
	p.Print(Line{Filename: "session.tty", Elapsed: "13.0s", Speed: 2.0, Paused: true})

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), out)
	}
	if !strings.Contains(lines[0], "session.tty") || !strings.Contains(lines[0], "12.5s") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "[paused]") {
		t.Fatalf("expected paused marker in %q", lines[1])
	}
}

func TestDoneNoOpWhenNotColored(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Print(Line{Filename: "a", Elapsed: "0s", Speed: 1})
	before := buf.Len()
	p.Done()
	if buf.Len() != before {
		t.Fatalf("Done wrote bytes for a non-terminal printer")
	}
}
