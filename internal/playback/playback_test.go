package playback

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sergeknystautas/ttyplay/internal/index"
	"github.com/sergeknystautas/ttyplay/internal/input"
	"github.com/sergeknystautas/ttyplay/internal/ttyrec"
	"github.com/sergeknystautas/ttyplay/internal/ttytime"
)

// fakeWaiter returns a scripted sequence of commands, one per call,
// ignoring requested duration and speed entirely — it lets tests drive
// the dispatch/seek logic without any real waiting.
type fakeWaiter struct {
	cmds []input.Command
	i    int
}

func (f *fakeWaiter) Wait(requested ttytime.Value, speed float64) (input.Command, error) {
	if f.i >= len(f.cmds) {
		return input.Command{Kind: input.None}, nil
	}
	c := f.cmds[f.i]
	f.i++
	return c, nil
}

func writeRecording(t *testing.T, dir, name string, records [][2]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	for _, rec := range records {
		secs := rec[0].(float64)
		payload := []byte(rec[1].(string))
		ts := ttytime.FromSeconds(secs)
		hdr := ttyrec.EncodeHeader(ts, uint32(len(payload)))
		f.Write(hdr[:])
		f.Write(payload)
	}
	return path
}

func TestRunEmitsAllRecordsInOrderWithNoCommands(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "a.tty", [][2]any{
		{0.0, "AAAA"},
		{0.5, "BBBB"},
		{1.0, "CCCC"},
	})
	idx, err := index.Build([]string{path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var out bytes.Buffer
	p := New(idx, []string{path}, &out, &fakeWaiter{}, Options{InitialSpeed: 1.0})
	if err := p.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "AAAABBBBCCCC" {
		t.Fatalf("got %q", out.String())
	}
}

func TestRunRollsOverOnEOF(t *testing.T) {
	dir := t.TempDir()
	a := writeRecording(t, dir, "a.tty", [][2]any{{0.0, "one"}})
	b := writeRecording(t, dir, "b.tty", [][2]any{{0.0, "two"}})
	idx, err := index.Build([]string{a, b})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var out bytes.Buffer
	p := New(idx, []string{a, b}, &out, &fakeWaiter{}, Options{InitialSpeed: 1.0})
	if err := p.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "onetwo" {
		t.Fatalf("got %q", out.String())
	}
}

func TestRunQuitStopsEarly(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "a.tty", [][2]any{
		{0.0, "AAAA"},
		{0.5, "BBBB"},
		{1.0, "CCCC"},
	})
	idx, err := index.Build([]string{path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	waiter := &fakeWaiter{cmds: []input.Command{{Kind: input.Quit}}}
	var out bytes.Buffer
	p := New(idx, []string{path}, &out, waiter, Options{InitialSpeed: 1.0})
	if err := p.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "AAAA" {
		t.Fatalf("got %q, want only the first record emitted", out.String())
	}
}

// TestRunSeekStartReplaysFromEarliestClear exercises the full seek path
// end to end: a mid-playback ESC[H ("seek to start") command lands on
// the earliest clear-screen entry (not literal byte zero, since nothing
// precedes it there), fine-replays forward from it, and the outer loop
// resumes normal pacing on whatever record follows.
//
// Per spec.md §4.E, the fine phase's overshoot record ("BBB" here) is
// emitted once inside the seek itself, then the stream rewinds to that
// record's start so the resumed ordinary loop reads and emits it again
// as its new timing baseline — the overshoot record legitimately appears
// twice in the output.
func TestRunSeekStartReplaysFromEarliestClear(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "a.tty", [][2]any{
		{0.0, "AAA"},
		{1.0, "\x1b[2Jcls"},
		{2.0, "BBB"},
	})
	idx, err := index.Build([]string{path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	waiter := &fakeWaiter{cmds: []input.Command{{Kind: input.SeekStart}}}
	var out bytes.Buffer
	p := New(idx, []string{path}, &out, waiter, Options{InitialSpeed: 1.0})
	if err := p.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "AAA" + "\x1b[2Jcls" + "BBB" + "BBB"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestRunJumpFileNext(t *testing.T) {
	dir := t.TempDir()
	a := writeRecording(t, dir, "a.tty", [][2]any{
		{0.0, "a1"},
		{0.5, "a2"},
	})
	b := writeRecording(t, dir, "b.tty", [][2]any{
		{0.0, "b1"},
	})
	idx, err := index.Build([]string{a, b})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	waiter := &fakeWaiter{cmds: []input.Command{{Kind: input.JumpFileNext}}}
	var out bytes.Buffer
	p := New(idx, []string{a, b}, &out, waiter, Options{InitialSpeed: 1.0})
	if err := p.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "a1" + "b1"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestDriftHelpers(t *testing.T) {
	requested := ttytime.Value{Sec: 1}
	drift := ttytime.Value{Usec: 500_000}
	got := adjustForDrift(requested, drift)
	want := ttytime.Value{Usec: 500_000}
	if got != want {
		t.Fatalf("adjustForDrift: got %+v, want %+v", got, want)
	}

	// Drift larger than the requested delay clamps to zero, never
	// negative.
	got = adjustForDrift(ttytime.Value{Usec: 100_000}, ttytime.Value{Sec: 1})
	if got != (ttytime.Value{}) {
		t.Fatalf("adjustForDrift: got %+v, want zero", got)
	}

	// actual overshot requested by 200ms: drift becomes -0.2s, normalized
	// as {Sec: -1, Usec: 800_000}.
	nd := updateDrift(ttytime.Value{Sec: 1}, ttytime.Value{Sec: 1, Usec: 200_000})
	if nd != (ttytime.Value{Sec: -1, Usec: 800_000}) {
		t.Fatalf("updateDrift: got %+v", nd)
	}
}
