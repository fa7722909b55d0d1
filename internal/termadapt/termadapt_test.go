package termadapt

import (
	"bytes"
	"os"
	"testing"

	"github.com/creack/pty"
)

func TestSelectCharsetUTF8(t *testing.T) {
	var buf bytes.Buffer
	if err := SelectCharset(&buf, true); err != nil {
		t.Fatalf("SelectCharset: %v", err)
	}
	if buf.String() != "\x1b%G" {
		t.Fatalf("got %q, want ESC %% G", buf.String())
	}
}

func TestSelectCharsetLegacy(t *testing.T) {
	var buf bytes.Buffer
	if err := SelectCharset(&buf, false); err != nil {
		t.Fatalf("SelectCharset: %v", err)
	}
	if buf.String() != "\x1b%@" {
		t.Fatalf("got %q, want ESC %% @", buf.String())
	}
}

func TestEnterRawNoOpOnNonTerminal(t *testing.T) {
	// A pipe's read end is never a terminal; EnterRaw/Restore should be
	// harmless no-ops rather than erroring.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	term := New(int(r.Fd()))
	if err := term.EnterRaw(); err != nil {
		t.Fatalf("EnterRaw on non-terminal: %v", err)
	}
	if err := term.Restore(); err != nil {
		t.Fatalf("Restore on non-terminal: %v", err)
	}
}

func TestWindowSizeRoundTrip(t *testing.T) {
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("no pty device available: %v", err)
	}
	defer master.Close()
	defer slave.Close()

	want := &pty.Winsize{Rows: 24, Cols: 80}
	if err := pty.Setsize(master, want); err != nil {
		t.Fatalf("Setsize: %v", err)
	}

	cols, rows, err := WindowSize(master)
	if err != nil {
		t.Fatalf("WindowSize: %v", err)
	}
	if cols != 80 || rows != 24 {
		t.Fatalf("got %dx%d, want 80x24", cols, rows)
	}
}
