// Package status renders a one-line, stderr-only status indicator for the
// person driving the player — file, elapsed time, speed, pause state. It
// never writes to stdout, so it can never interleave with replayed
// payload bytes. Styling is applied only when stderr is a terminal,
// following the teacher's termStyle convention of gating color on
// term.IsTerminal rather than always emitting escape codes.
package status

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Line is a rendered status snapshot, kept as plain data so callers can
// unit-test its formatting without a terminal.
type Line struct {
	Filename string
	Elapsed  string
	Speed    float64
	Paused   bool
}

// Printer writes status Lines to w, one per call, overwriting the
// previous line in place when w is a terminal ("\r" + line, no newline)
// and falling back to plain newline-terminated lines otherwise (piped
// stderr, or tests).
type Printer struct {
	w      io.Writer
	color  bool
	widest int

	fileStyle  lipgloss.Style
	pausedText lipgloss.Style
	speedText  lipgloss.Style
}

// NewPrinter builds a Printer writing to w. Its own lipgloss.Renderer is
// bound to w rather than the package-default (which profiles os.Stdout),
// so color is decided per-destination — this printer writes to stderr,
// which may be redirected independently of stdout.
func NewPrinter(w io.Writer) *Printer {
	renderer := lipgloss.NewRenderer(w)
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{
		w:          w,
		color:      color,
		fileStyle:  renderer.NewStyle().Bold(true),
		pausedText: renderer.NewStyle().Foreground(lipgloss.Color("3")),
		speedText:  renderer.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Print renders and writes one status line.
func (p *Printer) Print(l Line) {
	text := p.render(l)
	pad := p.widest - len(text)
	if pad > 0 {
		text += spaces(pad)
	}
	if len(text) > p.widest {
		p.widest = len(text)
	}

	if p.color {
		fmt.Fprintf(p.w, "\r%s", text)
		return
	}
	fmt.Fprintln(p.w, text)
}

// Done clears the in-place line (terminal mode only) so the final screen
// state left by playback isn't obscured by a trailing status line.
func (p *Printer) Done() {
	if p.color && p.widest > 0 {
		fmt.Fprintf(p.w, "\r%s\r", spaces(p.widest))
	}
}

func (p *Printer) render(l Line) string {
	pause := ""
	if l.Paused {
		pause = " " + p.pausedText.Render("[paused]")
	}
	speed := p.speedText.Render(fmt.Sprintf("%.2gx", l.Speed))
	name := p.fileStyle.Render(l.Filename)
	return fmt.Sprintf("%s  %s  %s%s", name, l.Elapsed, speed, pause)
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
