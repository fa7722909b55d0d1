// Package seek implements the two interactive navigation primitives of
// spec.md §4.E: a coarse seek to the latest clear-screen entry at or
// before a target elapsed time, and a fine forward replay that approaches
// the exact target without overshooting it by more than one record. It
// also implements whole-file and whole-clear-screen jumps.
package seek

import (
	"io"

	"github.com/sergeknystautas/ttyplay/internal/index"
	"github.com/sergeknystautas/ttyplay/internal/ttyrec"
	"github.com/sergeknystautas/ttyplay/internal/ttytime"
)

// Position is the outcome of a coarse seek or a file/clear jump: where
// the player should now consider itself to be.
type Position struct {
	FileIndex    int
	ClearIndex   int // index.NoClear if the file has no clear-screen entries
	Elapsed      ttytime.Value
	RecordOffset int64
}

// Coarse resolves target to the latest clear-screen entry whose
// ElapsedAtEntry is at or before it, or the first entry if target
// precedes all of them. The global chain is stored in ElapsedAtEntry
// order, so a single linear walk (matching the "walk from the first
// entry" wording of the spec) finds it; ok is false only when the index
// has no clear-screen entries at all, in which case seeking is a no-op.
func Coarse(idx *index.Index, target ttytime.Value) (Position, bool) {
	if idx == nil || !idx.HasClears() {
		return Position{}, false
	}

	best := 0
	for i, c := range idx.Clears {
		if ttytime.LessOrEqual(c.ElapsedAtEntry, target) {
			best = i
		} else {
			break
		}
	}

	c := idx.Clears[best]
	return Position{
		FileIndex:    c.FileIndex,
		ClearIndex:   best,
		Elapsed:      c.ElapsedAtEntry,
		RecordOffset: c.RecordOffset,
	}, true
}

// Emitter receives the payload of each record the fine phase decides to
// play. It is a plain func type rather than an io.Writer so callers can
// hook additional bookkeeping (e.g. updating player-visible elapsed time)
// without wrapping a Writer.
type Emitter func(payload []byte)

// FineReplay reads forward from dec (already positioned at the coarse
// seek's RecordOffset — the same *ttyrec.Reader the player uses for
// normal playback, not a fresh one, so its internal buffering stays
// consistent once the fine phase hands control back) and calls emit for
// every record up to and including the first one whose inclusion would
// advance elapsed past target — "may overshoot by at most one record"
// per spec.md's testable property. startElapsed is the coarse seek's
// resulting Elapsed. seeker must be the same underlying stream dec
// reads from, positioned consistently with it (typically the open
// *os.File backing dec).
//
// Per spec.md §4.E, the fine phase emits the overshoot record once
// itself (so the screen is visually current up to just past the
// target), then hands back the byte offset of that same record's start
// rather than the offset just past it — "restore the stream position to
// the start of the last fully-consumed record so normal playback picks
// up cleanly." The caller repositions to that offset, so the ordinary
// playback loop reads the overshoot record again as its next record and
// resumes normal per-record pacing from there, with that record now
// serving as the loop's timing baseline.
func FineReplay(dec *ttyrec.Reader, seeker io.Seeker, startElapsed ttytime.Value, target ttytime.Value, emit Emitter) (ttytime.Value, int64, error) {
	elapsed := startElapsed

	first, err := dec.ReadNext()
	if err != nil {
		if err == io.EOF {
			offset, serr := seeker.Seek(0, io.SeekCurrent)
			return elapsed, offset, serr
		}
		return elapsed, 0, err
	}
	emit(first.Payload)
	prevTimestamp := first.Timestamp

	for {
		offsetBefore, err := recordStartOffset(seeker, dec)
		if err != nil {
			return elapsed, 0, err
		}

		rec, err := dec.ReadNext()
		if err != nil {
			if err == io.EOF {
				return elapsed, offsetBefore, nil
			}
			return elapsed, 0, err
		}

		delta := ttytime.Subtract(rec.Timestamp, prevTimestamp)
		projected := ttytime.Add(elapsed, delta)

		if ttytime.Compare(projected, target) > 0 {
			emit(rec.Payload)
			return projected, offsetBefore, nil
		}

		elapsed = projected
		emit(rec.Payload)
		prevTimestamp = rec.Timestamp
	}
}

// recordStartOffset computes the absolute stream offset of the next
// byte ReadNext will actually decode, correcting for dec's internal
// read-ahead buffering.
func recordStartOffset(seeker io.Seeker, dec *ttyrec.Reader) (int64, error) {
	cur, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return cur - int64(dec.Buffered()), nil
}

// fileStartElapsed returns the elapsed time at the first record of file
// fileIndex: the previous file's ElapsedAtEnd, or zero for the first file.
func fileStartElapsed(idx *index.Index, fileIndex int) ttytime.Value {
	if fileIndex <= 0 {
		return ttytime.Value{}
	}
	return idx.Files[fileIndex-1].ElapsedAtEnd
}

// JumpFile resolves a "previous file" (delta == -1) or "next file"
// (delta == +1; other magnitudes walk further) request into a target
// file index and the byte offset to reposition to (its first
// clear-screen entry, or 0 if the file has none).
//
// The switch-latency adjustment applies only to delta == -1: if fewer
// than switchLatency has been spent in the current file, "previous file"
// really means "go to the previous file"; otherwise it means "restart
// the current file" (the common media-player UX of "back" only skipping
// tracks early in playback).
func JumpFile(idx *index.Index, currentFileIndex int, delta int, elapsed, switchLatency ttytime.Value) Position {
	n := len(idx.Files)
	if n == 0 {
		return Position{FileIndex: currentFileIndex, ClearIndex: index.NoClear}
	}

	target := currentFileIndex
	if delta == -1 {
		timeInFile := ttytime.Subtract(elapsed, fileStartElapsed(idx, currentFileIndex))
		if ttytime.Compare(timeInFile, switchLatency) < 0 {
			target = currentFileIndex - 1
		} else {
			target = currentFileIndex
		}
	} else {
		target = currentFileIndex + delta
	}

	target = clamp(target, 0, n-1)

	f := idx.Files[target]
	if f.FirstClear == index.NoClear {
		return Position{FileIndex: target, ClearIndex: index.NoClear, Elapsed: fileStartElapsed(idx, target)}
	}
	c := idx.Clears[f.FirstClear]
	return Position{FileIndex: target, ClearIndex: f.FirstClear, Elapsed: c.ElapsedAtEntry, RecordOffset: c.RecordOffset}
}

// JumpClear walks the global clear-screen chain by delta steps, clamping
// at the ends. Because the chain is a single flat, time-ordered slice,
// crossing a file boundary requires no special case: the adjacent file's
// first/last entry is simply the next/previous slice element.
func JumpClear(idx *index.Index, currentClearIndex int, delta int) (Position, bool) {
	if idx == nil || !idx.HasClears() {
		return Position{}, false
	}

	base := currentClearIndex
	if base == index.NoClear {
		// No clear-screen passed yet: treat as "before the first entry"
		// so that +1 lands on entry 0.
		base = -1
	}

	next := clamp(base+delta, 0, len(idx.Clears)-1)
	c := idx.Clears[next]
	return Position{
		FileIndex:    c.FileIndex,
		ClearIndex:   next,
		Elapsed:      c.ElapsedAtEntry,
		RecordOffset: c.RecordOffset,
	}, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
