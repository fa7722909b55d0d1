package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sergeknystautas/ttyplay/internal/ttyrec"
	"github.com/sergeknystautas/ttyplay/internal/ttytime"
)

func writeRecording(t *testing.T, dir, name string, records [][2]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	for _, rec := range records {
		sec := rec[0].(float64)
		payload := []byte(rec[1].(string))
		ts := ttytime.FromSeconds(sec)
		hdr := ttyrec.EncodeHeader(ts, uint32(len(payload)))
		if _, err := f.Write(hdr[:]); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := f.Write(payload); err != nil {
			t.Fatalf("write payload: %v", err)
		}
	}
	return path
}

// TestBuildSingleClearScreen exercises spec scenario S2: three records,
// the middle one carrying a clear-screen marker.
func TestBuildSingleClearScreen(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "session.tty", [][2]any{
		{0.0, "hi"},
		{1.0, "\x1b[2Jcls"},
		{2.0, "end"},
	})

	idx, err := Build([]string{path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(idx.Clears) != 1 {
		t.Fatalf("got %d clear entries, want 1", len(idx.Clears))
	}

	c := idx.Clears[0]
	if c.ElapsedAtEntry != (ttytime.Value{Sec: 1}) {
		t.Fatalf("ElapsedAtEntry: got %+v, want {1,0}", c.ElapsedAtEntry)
	}
	wantRecordOffset := int64(ttyrec.HeaderSize + len("hi"))
	if c.RecordOffset != wantRecordOffset {
		t.Fatalf("RecordOffset: got %d, want %d", c.RecordOffset, wantRecordOffset)
	}

	f := idx.Files[0]
	if f.FirstClear != 0 || f.LastClear != 0 {
		t.Fatalf("FirstClear/LastClear: got %d/%d, want 0/0", f.FirstClear, f.LastClear)
	}
}

// TestBuildMultiFileMonotonic exercises spec scenario S3: two files, one
// clear-screen entry each, global chain spans both with non-decreasing
// elapsed time.
func TestBuildMultiFileMonotonic(t *testing.T) {
	dir := t.TempDir()
	fileA := writeRecording(t, dir, "a.tty", [][2]any{
		{0.0, "start"},
		{3.0, "\x1b[2Jclear-a"},
	})
	fileB := writeRecording(t, dir, "b.tty", [][2]any{
		{0.0, "more"}, // absolute timestamps restart per file; only deltas matter
		{4.0, "\x1b[2Jclear-b"},
	})

	idx, err := Build([]string{fileA, fileB})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(idx.Clears) != 2 {
		t.Fatalf("got %d clear entries, want 2", len(idx.Clears))
	}
	if idx.Clears[0].ElapsedAtEntry != (ttytime.Value{Sec: 3}) {
		t.Fatalf("first clear elapsed: got %+v, want {3,0}", idx.Clears[0].ElapsedAtEntry)
	}
	// file B's delta is +4s on top of file A's ending elapsed time (3s).
	if idx.Clears[1].ElapsedAtEntry != (ttytime.Value{Sec: 7}) {
		t.Fatalf("second clear elapsed: got %+v, want {7,0}", idx.Clears[1].ElapsedAtEntry)
	}
	if idx.Clears[1].FileIndex != 1 {
		t.Fatalf("second clear FileIndex: got %d, want 1", idx.Clears[1].FileIndex)
	}

	for i := 1; i < len(idx.Clears); i++ {
		if idx.Clears[i].ElapsedAtEntry.Sec < idx.Clears[i-1].ElapsedAtEntry.Sec {
			t.Fatalf("global chain elapsed time not monotonic at %d", i)
		}
	}

	if idx.Files[0].ElapsedAtEnd != (ttytime.Value{Sec: 3}) {
		t.Fatalf("file A ElapsedAtEnd: got %+v, want {3,0}", idx.Files[0].ElapsedAtEnd)
	}
	if idx.Files[1].ElapsedAtEnd != (ttytime.Value{Sec: 7}) {
		t.Fatalf("file B ElapsedAtEnd: got %+v, want {7,0}", idx.Files[1].ElapsedAtEnd)
	}
}

func TestBuildFileWithNoClears(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "plain.tty", [][2]any{
		{0.0, "no markers here"},
		{1.0, "still none"},
	})

	idx, err := Build([]string{path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(idx.Clears) != 0 {
		t.Fatalf("got %d clear entries, want 0", len(idx.Clears))
	}
	if idx.Files[0].FirstClear != NoClear || idx.Files[0].LastClear != NoClear {
		t.Fatalf("expected NoClear sentinels, got %+v", idx.Files[0])
	}
}

func TestBuildRecordOffsetsStrictlyIncreasing(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "many.tty", [][2]any{
		{0.0, "\x1b[2Ja"},
		{1.0, "\x1b[2Jbb"},
		{2.0, "\x1b[2Jccc"},
	})

	idx, err := Build([]string{path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 1; i < len(idx.Clears); i++ {
		if idx.Clears[i].RecordOffset <= idx.Clears[i-1].RecordOffset {
			t.Fatalf("record offsets not strictly increasing at %d", i)
		}
	}
}
