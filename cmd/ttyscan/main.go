// Command ttyscan reports the navigation index internal/index would
// build for a set of ttyrec recordings, without playing them: how many
// clear-screen entries each file contributes, where they land, and the
// cumulative elapsed time across the whole concatenated session. It
// exists for diagnosing a recording that seeks strangely in ttyplay.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/sergeknystautas/ttyplay/internal/ansi"
	"github.com/sergeknystautas/ttyplay/internal/index"
	"github.com/sergeknystautas/ttyplay/internal/ttyrec"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: ttyscan <recording> [recording ...]")
		os.Exit(1)
	}

	files := os.Args[1:]
	idx, err := index.Build(files)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var totalBytes int64
	for _, name := range files {
		if fi, err := os.Stat(name); err == nil {
			totalBytes += fi.Size()
		}
	}

	fmt.Printf("Files indexed: %d (%s)\n", len(idx.Files), humanize.Bytes(uint64(totalBytes)))
	fmt.Printf("Clear-screen entries: %d\n", len(idx.Clears))
	if len(idx.Files) > 0 {
		fmt.Printf("Total elapsed: %s\n", idx.Files[len(idx.Files)-1].ElapsedAtEnd)
	}

	fmt.Println("\nPer-file summary:")
	for i, f := range idx.Files {
		n := 0
		if f.FirstClear != index.NoClear {
			n = f.LastClear - f.FirstClear + 1
		}
		fmt.Printf("  [%d] %-40s elapsed_at_end=%-12s clears=%d\n", i, f.Filename, f.ElapsedAtEnd, n)
	}

	fmt.Println("\nClear-screen chain:")
	for i, c := range idx.Clears {
		fmt.Printf("  #%-4d file=%-30s record_offset=%-8d elapsed=%s\n",
			i, idx.Files[c.FileIndex].Filename, c.RecordOffset, c.ElapsedAtEntry)
	}

	total, meaningful, err := countMeaningfulRecords(files)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("\nRecords: %d total, %d with visible content once escapes are stripped (%d control- or whitespace-only)\n",
		total, meaningful, total-meaningful)
}

// countMeaningfulRecords re-reads every file's records (index.Build
// already discarded payloads once it located clear-screen markers) and
// classifies each one with internal/ansi, distinguishing prompt redraws
// and cursor toggles from records that actually changed visible output.
func countMeaningfulRecords(files []string) (total, meaningful int, err error) {
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return 0, 0, fmt.Errorf("open %s: %w", name, err)
		}

		dec := ttyrec.NewReader(f)
		for {
			rec, err := dec.ReadNext()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				f.Close()
				return 0, 0, fmt.Errorf("scan %s: %w", name, err)
			}
			total++
			if ansi.IsMeaningful(rec.Payload) {
				meaningful++
			}
		}
		f.Close()
	}
	return total, meaningful, nil
}
