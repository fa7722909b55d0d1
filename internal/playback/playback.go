// Package playback implements the driver loop of spec.md §4.G: it reads
// records, waits the scaled inter-record delay with interruption on key
// input, dispatches the commands internal/input decodes, invokes
// internal/seek for navigation, emits payloads, and rolls over to the
// next indexed file on EOF. The concurrency shape — a state struct owned
// by the driver loop plus a background goroutine (RealWaiter's key
// reader) feeding a channel — is grounded on the teacher's SessionTracker.
package playback

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sergeknystautas/ttyplay/internal/index"
	"github.com/sergeknystautas/ttyplay/internal/input"
	"github.com/sergeknystautas/ttyplay/internal/seek"
	"github.com/sergeknystautas/ttyplay/internal/status"
	"github.com/sergeknystautas/ttyplay/internal/ttyrec"
	"github.com/sergeknystautas/ttyplay/internal/ttytime"
)

// ErrNoFiles is returned by Run when it was given no filenames to play.
var ErrNoFiles = errors.New("playback: no input files")

// Waiter implements the timing discipline of §5: it blocks for up to
// requested (scaled real time, already speed-adjusted by the caller is
// not the contract — Wait itself applies speed), returning early with a
// decoded Command if a key becomes readable first. Implementations own
// drift correction and must reset it whenever a key interrupts the wait.
type Waiter interface {
	Wait(requested ttytime.Value, speed float64) (input.Command, error)
}

// Options configures a Player's tunable behavior, sourced from
// internal/config defaults overridden by CLI flags.
type Options struct {
	InitialSpeed  float64
	SwitchLatency ttytime.Value
	Status        *status.Printer // nil disables the status line

	// DisableNavigation mirrors spec.md §7's NoIndex error kind: when
	// playing from stdin there is no seekable, indexable source, so
	// seek/jump commands are silently ignored rather than attempted
	// against an empty index.
	DisableNavigation bool
}

// StdinFilename is the sentinel filename that tells Player to read from
// os.Stdin instead of opening a path, used for the no-file-arguments
// invocation spec.md §6 describes.
const StdinFilename = "-"

// Player drives navigable playback across an indexed set of files.
type Player struct {
	idx       *index.Index
	filenames []string
	out       io.Writer
	waiter    Waiter
	opts      Options

	cur        *os.File
	dec        *ttyrec.Reader
	fileIndex  int
	clearIndex int
	elapsed    ttytime.Value
	speed      float64
	isStdin    bool
}

// New builds a Player over idx, whose Files must correspond 1:1 (in
// order) with filenames. Payloads are written to out; commands are
// sourced through waiter.
func New(idx *index.Index, filenames []string, out io.Writer, waiter Waiter, opts Options) *Player {
	speed := opts.InitialSpeed
	if speed == 0 {
		speed = 1.0
	}
	return &Player{
		idx:        idx,
		filenames:  filenames,
		out:        out,
		waiter:     waiter,
		opts:       opts,
		clearIndex: index.NoClear,
		speed:      speed,
	}
}

// Run drives playback until the input is exhausted, the viewer quits, or
// an I/O error occurs.
func (p *Player) Run() error {
	if len(p.filenames) == 0 {
		return ErrNoFiles
	}
	if err := p.openFile(0, 0); err != nil {
		return err
	}
	defer p.closeFile()
	if p.opts.Status != nil {
		defer p.opts.Status.Done()
	}

	var prevTimestamp ttytime.Value
	first := true

	for {
		rec, err := p.dec.ReadNext()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("playback: %w", err)
			}
			if p.fileIndex+1 >= len(p.filenames) {
				return nil
			}
			if err := p.openFile(p.fileIndex+1, 0); err != nil {
				return err
			}
			first = true
			continue
		}

		if !first {
			requested := ttytime.Subtract(rec.Timestamp, prevTimestamp)
			cmd, err := p.waiter.Wait(requested, p.speed)
			if err != nil {
				return fmt.Errorf("playback: %w", err)
			}

			switched, quit, err := p.dispatch(cmd)
			if err != nil {
				return fmt.Errorf("playback: %w", err)
			}
			if quit {
				return nil
			}
			if switched {
				// The record just read was at the pre-dispatch stream
				// position, now stale; re-read fresh at the new one.
				first = true
				continue
			}
		}

		if err := p.emit(rec.Payload); err != nil {
			return fmt.Errorf("playback: %w", err)
		}
		if first {
			first = false
		} else {
			p.elapsed = ttytime.Add(p.elapsed, ttytime.Subtract(rec.Timestamp, prevTimestamp))
		}
		prevTimestamp = rec.Timestamp
	}
}

// emit writes a payload and refreshes the status line, if any.
func (p *Player) emit(payload []byte) error {
	if p.opts.Status != nil {
		p.opts.Status.Print(status.Line{
			Filename: p.filenames[p.fileIndex],
			Elapsed:  ttytime.Normalize(p.elapsed).String(),
			Speed:    p.speed,
			Paused:   p.speed < 0,
		})
	}
	return ttyrec.Write(p.out, payload)
}

// dispatch applies one decoded command. switched reports whether the
// stream position moved out from under the caller's in-flight record
// read (a seek or jump), in which case the outer loop must discard that
// record and read fresh at the new position.
func (p *Player) dispatch(cmd input.Command) (switched, quit bool, err error) {
	switch cmd.Kind {
	case input.None:
		return false, false, nil
	case input.Quit:
		return false, true, nil
	case input.SpeedDouble:
		p.speed *= 2
	case input.SpeedHalve:
		p.speed /= 2
	case input.SpeedReset:
		p.speed = 1.0
	case input.TogglePause:
		p.speed = -p.speed
	case input.JumpFileNext:
		if p.opts.DisableNavigation {
			return false, false, nil
		}
		return p.jumpFile(1)
	case input.JumpFilePrev:
		if p.opts.DisableNavigation {
			return false, false, nil
		}
		return p.jumpFile(-1)
	case input.JumpClearNext:
		if p.opts.DisableNavigation {
			return false, false, nil
		}
		return p.jumpClear(1)
	case input.JumpClearPrev:
		if p.opts.DisableNavigation {
			return false, false, nil
		}
		return p.jumpClear(-1)
	case input.SeekRelative:
		if p.opts.DisableNavigation {
			return false, false, nil
		}
		target := ttytime.Add(p.elapsed, ttytime.FromSeconds(cmd.Seconds))
		if target.Sec < 0 {
			target = ttytime.Value{}
		}
		return p.seekTo(target)
	case input.SeekStart:
		if p.opts.DisableNavigation {
			return false, false, nil
		}
		return p.seekTo(ttytime.Value{})
	case input.SeekEnd:
		if p.opts.DisableNavigation {
			return false, false, nil
		}
		return p.seekTo(p.endOfIndexElapsed())
	}
	return false, false, nil
}

// endOfIndexElapsed resolves "seek to end" to the last clear-screen
// entry rather than wall-clock "now" — an open question spec.md flags as
// too fragile to resolve any other way without a live session.
func (p *Player) endOfIndexElapsed() ttytime.Value {
	if !p.idx.HasClears() {
		return p.elapsed
	}
	return p.idx.Clears[len(p.idx.Clears)-1].ElapsedAtEntry
}

func (p *Player) seekTo(target ttytime.Value) (switched, quit bool, err error) {
	pos, ok := seek.Coarse(p.idx, target)
	if !ok {
		return false, false, nil
	}
	if err := p.reposition(pos); err != nil {
		return false, false, err
	}

	var emitErr error
	finalElapsed, rewindOffset, err := seek.FineReplay(p.dec, p.cur, pos.Elapsed, target, func(payload []byte) {
		if emitErr == nil {
			emitErr = p.emit(payload)
		}
	})
	if err != nil {
		return false, false, err
	}
	if emitErr != nil {
		return false, false, emitErr
	}

	if err := p.seekWithinFile(rewindOffset); err != nil {
		return false, false, err
	}
	p.elapsed = finalElapsed
	return true, false, nil
}

func (p *Player) jumpFile(delta int) (switched, quit bool, err error) {
	pos := seek.JumpFile(p.idx, p.fileIndex, delta, p.elapsed, p.opts.SwitchLatency)
	if err := p.reposition(pos); err != nil {
		return false, false, err
	}
	return true, false, nil
}

func (p *Player) jumpClear(delta int) (switched, quit bool, err error) {
	pos, ok := seek.JumpClear(p.idx, p.clearIndex, delta)
	if !ok {
		return false, false, nil
	}
	if err := p.reposition(pos); err != nil {
		return false, false, err
	}
	return true, false, nil
}

// reposition switches the open file (if needed) and seeks to pos's byte
// offset, updating the player's notion of elapsed/current-clear.
func (p *Player) reposition(pos seek.Position) error {
	if pos.FileIndex != p.fileIndex {
		if err := p.openFile(pos.FileIndex, pos.RecordOffset); err != nil {
			return err
		}
	} else if err := p.seekWithinFile(pos.RecordOffset); err != nil {
		return err
	}
	p.clearIndex = pos.ClearIndex
	p.elapsed = pos.Elapsed
	return nil
}

func (p *Player) seekWithinFile(offset int64) error {
	if _, err := p.cur.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek within file: %w", err)
	}
	p.dec = ttyrec.NewReader(p.cur)
	return nil
}

func (p *Player) openFile(fileIndex int, offset int64) error {
	p.closeFile()

	name := p.filenames[fileIndex]
	if name == StdinFilename {
		p.isStdin = true
		p.dec = ttyrec.NewReader(os.Stdin)
		p.fileIndex = fileIndex
		return nil
	}

	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return fmt.Errorf("seek %s: %w", name, err)
		}
	}

	p.cur = f
	p.dec = ttyrec.NewReader(f)
	p.fileIndex = fileIndex
	return nil
}

func (p *Player) closeFile() {
	if p.isStdin {
		p.isStdin = false
		return
	}
	if p.cur != nil {
		p.cur.Close()
		p.cur = nil
	}
}
