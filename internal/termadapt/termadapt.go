// Package termadapt owns the one piece of real terminal state the player
// touches: the controlling terminal's line discipline. It puts stdin into
// cbreak mode for the duration of playback, optionally selects a
// character set, queries the output window size, and restores everything
// exactly on exit or signal — grounded on the save/restore discipline the
// teacher's session attach path uses around golang.org/x/term.
package termadapt

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// selectUTF8 and selectLegacy choose the terminal's interpretation of the
// high bit: UTF-8 multibyte versus raw 8-bit (ISO 8859-ish) output.
var (
	selectUTF8   = []byte{0x1b, '%', 'G'}
	selectLegacy = []byte{0x1b, '%', '@'}
)

// Terminal holds the saved state needed to restore stdin's line
// discipline once playback ends.
type Terminal struct {
	fd       int
	oldState *term.State
}

// New wraps the terminal attached to fd (typically int(os.Stdin.Fd())).
func New(fd int) *Terminal {
	return &Terminal{fd: fd}
}

// EnterRaw disables canonical mode, echo, and newline translation, and
// sets read-one-byte semantics, matching the VMIN=1/VTIME=0 cbreak mode
// spec.md §4.H calls for. It is a no-op (and returns nil) if fd is not a
// terminal, so the player can run the same code path against a redirected
// stdin in -p peek mode or under test.
func (t *Terminal) EnterRaw() error {
	if !term.IsTerminal(t.fd) {
		return nil
	}
	old, err := term.MakeRaw(t.fd)
	if err != nil {
		return fmt.Errorf("termadapt: enter raw mode: %w", err)
	}
	t.oldState = old
	return nil
}

// Restore puts the terminal back exactly as EnterRaw found it. Safe to
// call more than once and safe to call when EnterRaw never ran.
func (t *Terminal) Restore() error {
	if t.oldState == nil {
		return nil
	}
	err := term.Restore(t.fd, t.oldState)
	t.oldState = nil
	return err
}

// RestoreOnSignal arranges for Restore to run before the process exits on
// any of sigs (typically os.Interrupt), then re-raises by calling exit.
// It returns a stop function the caller should defer to cancel the
// handler once playback ends normally.
func RestoreOnSignal(t *Terminal, exit func(code int), sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})

	go func() {
		select {
		case <-ch:
			_ = t.Restore()
			exit(130)
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(ch)
	}
}

// SelectCharset writes the escape sequence that tells the terminal how to
// interpret the high bit of subsequent output: UTF-8 multibyte if utf8 is
// true, raw 8-bit otherwise. cmd/ttyplay calls this once at startup when
// -u, -8 or the config file's charset selects one.
func SelectCharset(w io.Writer, utf8 bool) error {
	seq := selectLegacy
	if utf8 {
		seq = selectUTF8
	}
	_, err := w.Write(seq)
	return err
}

// WindowSize reports the terminal's column/row geometry attached to f,
// via the same ioctl creack/pty uses to size a child PTY. The player has
// no child PTY of its own — it queries its own controlling terminal — but
// reusing pty.GetsizeFull keeps this on the same ecosystem library the
// rest of the corpus uses for terminal geometry instead of hand-rolling
// the ioctl.
func WindowSize(f *os.File) (cols, rows int, err error) {
	ws, err := pty.GetsizeFull(f)
	if err != nil {
		return 0, 0, fmt.Errorf("termadapt: window size: %w", err)
	}
	return int(ws.Cols), int(ws.Rows), nil
}
