// Package index builds and represents the navigation index: an
// ordered list of input files, each with an ordered list of clear-screen
// entries, linked across file boundaries so seeking is O(distance) in
// entries. Following the re-architecture guidance in spec.md's design
// notes, this is implemented with contiguous slices and integer indices
// rather than a hand-rolled doubly-linked pointer graph — "prev"/"next"
// are just i-1/i+1 into the relevant slice, and cross-file links are
// index pairs, never ownership.
package index

import (
	"fmt"
	"io"
	"os"

	"github.com/sergeknystautas/ttyplay/internal/ttyrec"
	"github.com/sergeknystautas/ttyplay/internal/ttytime"
)

// NoClear is the sentinel for "this file has no clear-screen entries" or
// "there is no entry in this direction."
const NoClear = -1

// FileEntry describes one input file's place in the concatenated session.
type FileEntry struct {
	Filename     string
	ElapsedAtEnd ttytime.Value
	FirstClear   int // index into Index.Clears, or NoClear
	LastClear    int // index into Index.Clears, or NoClear
}

// ClearEntry locates one clear-screen occurrence.
type ClearEntry struct {
	FileIndex      int // index into Index.Files
	RecordOffset   int64
	PayloadOffset  int64
	ElapsedAtEntry ttytime.Value
}

// Index is the read-only navigation structure produced by Build. Nothing
// in this package mutates an Index after construction.
type Index struct {
	Files  []FileEntry
	Clears []ClearEntry
}

// Build performs the one-pass scan described in spec.md §4.C: it opens
// each file in command-line order, accumulates elapsed time across file
// boundaries, and records every clear-screen occurrence into a single
// global, time-ordered chain.
func Build(filenames []string) (*Index, error) {
	idx := &Index{}
	cumulative := ttytime.Value{}

	for fi, name := range filenames {
		entry := FileEntry{Filename: name, FirstClear: NoClear, LastClear: NoClear}

		next, err := indexOneFile(idx, fi, name, cumulative)
		if err != nil {
			return nil, fmt.Errorf("indexing %s: %w", name, err)
		}
		entry.ElapsedAtEnd = next
		entry.FirstClear, entry.LastClear = fileClearBounds(idx.Clears, fi)
		idx.Files = append(idx.Files, entry)
		cumulative = next
	}

	return idx, nil
}

// fileClearBounds scans the (already-appended) global clear chain for the
// first and last entries belonging to fileIndex.
func fileClearBounds(clears []ClearEntry, fileIndex int) (first, last int) {
	first, last = NoClear, NoClear
	for i, c := range clears {
		if c.FileIndex != fileIndex {
			continue
		}
		if first == NoClear {
			first = i
		}
		last = i
	}
	return first, last
}

// indexOneFile scans a single file, appending clear-screen entries to
// idx.Clears as it finds them, and returns the cumulative elapsed time at
// end of file.
func indexOneFile(idx *Index, fileIndex int, filename string, cumulative ttytime.Value) (ttytime.Value, error) {
	f, err := os.Open(filename)
	if err != nil {
		return ttytime.Value{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	dec := ttyrec.NewReader(f)

	var prevTimestamp ttytime.Value
	first := true
	var offset int64

	for {
		recordOffset := offset
		rec, err := dec.ReadNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			return ttytime.Value{}, err
		}
		offset = recordOffset + ttyrec.HeaderSize + int64(len(rec.Payload))

		if first {
			prevTimestamp = rec.Timestamp
			first = false
		}

		delta := ttytime.Subtract(rec.Timestamp, prevTimestamp)
		cumulative = ttytime.Add(cumulative, delta)

		if markerOffset, found := ttyrec.ClearScreenOffset(rec.Payload); found {
			idx.Clears = append(idx.Clears, ClearEntry{
				FileIndex:      fileIndex,
				RecordOffset:   recordOffset,
				PayloadOffset:  recordOffset + ttyrec.HeaderSize + int64(markerOffset),
				ElapsedAtEntry: cumulative,
			})
		}

		prevTimestamp = rec.Timestamp
	}

	return cumulative, nil
}

// HasClears reports whether the index contains any clear-screen entries
// at all (an all-zero index never happens for a well-formed recording
// with at least one clear, but a short or degenerate recording may have
// none).
func (idx *Index) HasClears() bool {
	return len(idx.Clears) > 0
}

// Empty reports whether there are no indexed files at all (stdin-input
// mode, where navigation is unavailable per spec.md §6).
func (idx *Index) Empty() bool {
	return idx == nil || len(idx.Files) == 0
}
